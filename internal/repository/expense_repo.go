package repository

import (
	"context"

	"pos-backoffice/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ExpenseFilter narrows expense listings. Empty fields are ignored.
type ExpenseFilter struct {
	Category       string
	PaymentStatus  string
	ApprovalStatus string
}

type ExpenseRepository interface {
	Create(ctx context.Context, expense *model.Expense) error
	FindAll(ctx context.Context, tenantID uuid.UUID, filter ExpenseFilter) ([]model.Expense, error)
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Expense, error)
	Update(ctx context.Context, expense *model.Expense) error
	Delete(ctx context.Context, tenantID, id uuid.UUID, deletedBy string) error
}

type expenseRepo struct {
	db *gorm.DB
}

func NewExpenseRepo(db *gorm.DB) ExpenseRepository {
	return &expenseRepo{db}
}

func (r *expenseRepo) Create(ctx context.Context, expense *model.Expense) error {
	return r.db.WithContext(ctx).Create(expense).Error
}

func (r *expenseRepo) FindAll(ctx context.Context, tenantID uuid.UUID, filter ExpenseFilter) ([]model.Expense, error) {
	q := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.PaymentStatus != "" {
		q = q.Where("payment_status = ?", filter.PaymentStatus)
	}
	if filter.ApprovalStatus != "" {
		q = q.Where("approval_status = ?", filter.ApprovalStatus)
	}

	var expenses []model.Expense
	err := q.Order("expense_date DESC, created_at DESC").Find(&expenses).Error
	return expenses, err
}

func (r *expenseRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Expense, error) {
	var expense model.Expense
	if err := r.db.WithContext(ctx).First(&expense, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		return nil, translate(err)
	}
	return &expense, nil
}

func (r *expenseRepo) Update(ctx context.Context, expense *model.Expense) error {
	return r.db.WithContext(ctx).Save(expense).Error
}

func (r *expenseRepo) Delete(ctx context.Context, tenantID, id uuid.UUID, deletedBy string) error {
	res := r.db.WithContext(ctx).Model(&model.Expense{}).
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
