package repository

import (
	"context"

	"pos-backoffice/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CustomerRepository interface {
	Create(ctx context.Context, customer *model.Customer) error
	FindAll(ctx context.Context, tenantID uuid.UUID, search string) ([]model.Customer, error)
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Customer, error)
	Update(ctx context.Context, customer *model.Customer) error
	Delete(ctx context.Context, tenantID, id uuid.UUID, deletedBy string) error
	// Ranking aggregates the sales linked to each customer, best customers first.
	Ranking(ctx context.Context, tenantID uuid.UUID, limit int) ([]model.CustomerRanking, error)
}

type customerRepo struct {
	db *gorm.DB
}

func NewCustomerRepo(db *gorm.DB) CustomerRepository {
	return &customerRepo{db}
}

func (r *customerRepo) Create(ctx context.Context, customer *model.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

func (r *customerRepo) FindAll(ctx context.Context, tenantID uuid.UUID, search string) ([]model.Customer, error) {
	var customers []model.Customer
	q := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if search != "" {
		like := "%" + search + "%"
		q = q.Where("name ILIKE ? OR phone ILIKE ? OR email ILIKE ?", like, like, like)
	}
	err := q.Order("name ASC").Find(&customers).Error
	return customers, err
}

func (r *customerRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Customer, error) {
	var customer model.Customer
	if err := r.db.WithContext(ctx).First(&customer, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		return nil, translate(err)
	}
	return &customer, nil
}

func (r *customerRepo) Update(ctx context.Context, customer *model.Customer) error {
	return r.db.WithContext(ctx).Save(customer).Error
}

func (r *customerRepo) Delete(ctx context.Context, tenantID, id uuid.UUID, deletedBy string) error {
	res := r.db.WithContext(ctx).Model(&model.Customer{}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Updates(map[string]interface{}{
			"deleted_at": gorm.Expr("NOW()"),
			"deleted_by": deletedBy,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *customerRepo) Ranking(ctx context.Context, tenantID uuid.UUID, limit int) ([]model.CustomerRanking, error) {
	var ranking []model.CustomerRanking
	err := r.db.WithContext(ctx).Raw(`
		SELECT c.id AS customer_id,
		       c.name AS name,
		       COUNT(s.id) AS sales_count,
		       COALESCE(SUM(s.total), 0) AS total_spent,
		       MAX(s.created_at) AS last_purchase
		FROM customers c
		JOIN sales s ON s.customer_id = c.id AND s.tenant_id = c.tenant_id
		WHERE c.tenant_id = ? AND c.deleted_at IS NULL
		GROUP BY c.id, c.name
		ORDER BY total_spent DESC, sales_count DESC
		LIMIT ?`, tenantID, limit).
		Scan(&ranking).Error
	return ranking, err
}
