package repository

import (
	"context"

	"pos-backoffice/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	FindAll(ctx context.Context, tenantID uuid.UUID) ([]model.Product, error)
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Product, error)
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]model.Product, error)
	FindBySKU(ctx context.Context, tenantID uuid.UUID, sku string) (*model.Product, error)
	Update(ctx context.Context, product *model.Product) error
	// DecrementStockAtomic runs the server-side decrement_stock procedure.
	DecrementStockAtomic(ctx context.Context, id uuid.UUID, quantity decimal.Decimal) error
	SetStock(ctx context.Context, tenantID, id uuid.UUID, stock decimal.Decimal, updatedBy string) error
	// IncrementStock locks the row and adds quantity, returning the updated product.
	IncrementStock(ctx context.Context, tenantID, id uuid.UUID, quantity decimal.Decimal, updatedBy string) (*model.Product, error)
	CountLowStock(ctx context.Context, tenantID uuid.UUID, threshold decimal.Decimal) (int64, error)
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

func (r *productRepo) Create(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *productRepo) FindAll(ctx context.Context, tenantID uuid.UUID) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("name ASC").Find(&products).Error
	return products, err
}

func (r *productRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (r *productRepo) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]model.Product, error) {
	var products []model.Product
	if len(ids) == 0 {
		return products, nil
	}
	err := r.db.WithContext(ctx).Where("tenant_id = ? AND id IN ?", tenantID, ids).Find(&products).Error
	return products, err
}

func (r *productRepo) FindBySKU(ctx context.Context, tenantID uuid.UUID, sku string) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).First(&product, "tenant_id = ? AND sku = ?", tenantID, sku).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (r *productRepo) Update(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

func (r *productRepo) DecrementStockAtomic(ctx context.Context, id uuid.UUID, quantity decimal.Decimal) error {
	return r.db.WithContext(ctx).Exec("SELECT decrement_stock(?, ?)", id, quantity).Error
}

func (r *productRepo) SetStock(ctx context.Context, tenantID, id uuid.UUID, stock decimal.Decimal, updatedBy string) error {
	res := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Updates(map[string]interface{}{
			"stock":      stock,
			"updated_by": updatedBy,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productRepo) IncrementStock(ctx context.Context, tenantID, id uuid.UUID, quantity decimal.Decimal, updatedBy string) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&product, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
			return translate(err)
		}

		product.Stock = product.Stock.Add(quantity)
		product.UpdatedBy = updatedBy
		return tx.Model(&product).Updates(map[string]interface{}{
			"stock":      product.Stock,
			"updated_by": updatedBy,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) CountLowStock(ctx context.Context, tenantID uuid.UUID, threshold decimal.Decimal) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("tenant_id = ? AND stock < ?", tenantID, threshold).
		Count(&count).Error
	return count, err
}
