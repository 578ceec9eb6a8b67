package repository

import (
	"context"
	"time"

	"pos-backoffice/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TenantRepository interface {
	// CreateWithAdmin inserts the tenant and its first admin user in one transaction.
	CreateWithAdmin(ctx context.Context, tenant *model.Tenant, admin *model.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Tenant, error)
	FindAll(ctx context.Context) ([]model.Tenant, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool, updatedBy string) error
	UpdateSettings(ctx context.Context, id uuid.UUID, settings model.TenantSettings, updatedBy string) error
}

type tenantRepo struct {
	db *gorm.DB
}

func NewTenantRepo(db *gorm.DB) TenantRepository {
	return &tenantRepo{db}
}

func (r *tenantRepo) CreateWithAdmin(ctx context.Context, tenant *model.Tenant, admin *model.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(tenant).Error; err != nil {
			return err
		}
		admin.TenantID = &tenant.ID
		return tx.Create(admin).Error
	})
}

func (r *tenantRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	var tenant model.Tenant
	if err := r.db.WithContext(ctx).First(&tenant, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &tenant, nil
}

func (r *tenantRepo) FindAll(ctx context.Context) ([]model.Tenant, error) {
	var tenants []model.Tenant
	err := r.db.WithContext(ctx).Order("name ASC").Find(&tenants).Error
	return tenants, err
}

func (r *tenantRepo) SetActive(ctx context.Context, id uuid.UUID, active bool, updatedBy string) error {
	return r.update(ctx, id, map[string]interface{}{
		"is_active":  active,
		"updated_by": updatedBy,
		"updated_at": time.Now(),
	})
}

func (r *tenantRepo) UpdateSettings(ctx context.Context, id uuid.UUID, settings model.TenantSettings, updatedBy string) error {
	return r.update(ctx, id, map[string]interface{}{
		"settings":   datatypes.NewJSONType(settings),
		"updated_by": updatedBy,
		"updated_at": time.Now(),
	})
}

func (r *tenantRepo) update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.Tenant{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
