package repository

import (
	"context"
	"time"

	"pos-backoffice/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BillingRepository interface {
	// Append inserts a ledger row. When extendDays is positive the tenant row
	// is locked and its paid_until extended in the same transaction; the new
	// value is returned.
	Append(ctx context.Context, entry *model.TenantBillingTransaction, extendDays int) (*time.Time, error)
	// FindByTenant returns all rows of a tenant, newest first.
	FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]model.TenantBillingTransaction, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.TenantBillingTransaction, error)
	AttachReceipt(ctx context.Context, id uuid.UUID, url string) error
}

type billingRepo struct {
	db *gorm.DB
}

func NewBillingRepo(db *gorm.DB) BillingRepository {
	return &billingRepo{db}
}

func (r *billingRepo) Append(ctx context.Context, entry *model.TenantBillingTransaction, extendDays int) (*time.Time, error) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	var paidUntil *time.Time
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if extendDays > 0 {
			var tenant model.Tenant
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Select("id", "paid_until").
				First(&tenant, "id = ?", entry.TenantID).Error; err != nil {
				return translate(err)
			}
			next := model.ExtendPaidUntil(tenant.PaidUntil, entry.CreatedAt, extendDays)
			if err := tx.Model(&model.Tenant{}).Where("id = ?", entry.TenantID).
				Updates(map[string]interface{}{"paid_until": next, "updated_at": time.Now()}).Error; err != nil {
				return err
			}
			paidUntil = &next
		}
		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, err
	}
	return paidUntil, nil
}

func (r *billingRepo) FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]model.TenantBillingTransaction, error) {
	var rows []model.TenantBillingTransaction
	err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("created_at DESC").Find(&rows).Error
	return rows, err
}

func (r *billingRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.TenantBillingTransaction, error) {
	var row model.TenantBillingTransaction
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

func (r *billingRepo) AttachReceipt(ctx context.Context, id uuid.UUID, url string) error {
	res := r.db.WithContext(ctx).Model(&model.TenantBillingTransaction{}).Where("id = ?", id).Update("receipt_url", url)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
