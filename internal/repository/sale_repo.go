package repository

import (
	"context"

	"pos-backoffice/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SaleRepository interface {
	// Create persists the sale as a single insert.
	Create(ctx context.Context, sale *model.Sale) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Sale, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter model.SaleFilter) ([]model.Sale, int64, error)
	FindByIdempotencyKey(ctx context.Context, tenantID uuid.UUID, key string) (*model.Sale, error)
}

type saleRepo struct {
	db *gorm.DB
}

func NewSaleRepo(db *gorm.DB) SaleRepository {
	return &saleRepo{db}
}

func (r *saleRepo) Create(ctx context.Context, sale *model.Sale) error {
	if sale.ID == uuid.Nil {
		sale.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(sale).Error
}

func (r *saleRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	if err := r.db.WithContext(ctx).First(&sale, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		return nil, translate(err)
	}
	return &sale, nil
}

func (r *saleRepo) FindAll(ctx context.Context, tenantID uuid.UUID, filter model.SaleFilter) ([]model.Sale, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Sale{}).Where("tenant_id = ?", tenantID)
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at < ?", *filter.To)
	}
	if filter.POSNumber != nil {
		q = q.Where("pos_number = ?", *filter.POSNumber)
	}
	if filter.CustomerID != nil {
		q = q.Where("customer_id = ?", *filter.CustomerID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	var sales []model.Sale
	err := q.Order("created_at DESC").Limit(limit).Offset(filter.Offset).Find(&sales).Error
	return sales, total, err
}

func (r *saleRepo) FindByIdempotencyKey(ctx context.Context, tenantID uuid.UUID, key string) (*model.Sale, error) {
	var sale model.Sale
	if err := r.db.WithContext(ctx).First(&sale, "tenant_id = ? AND idempotency_key = ?", tenantID, key).Error; err != nil {
		return nil, translate(err)
	}
	return &sale, nil
}
