package service

import (
	"context"
	"errors"
	"strings"

	"pos-backoffice/internal/model"
	"pos-backoffice/internal/notify"
	"pos-backoffice/internal/repository"
	"pos-backoffice/pkg/validator"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type CreateTenantRequest struct {
	Name          string                `json:"name" validate:"required,min=2"`
	AdminEmail    string                `json:"admin_email" validate:"required,email"`
	AdminPassword string                `json:"admin_password" validate:"required,min=6"`
	AdminName     string                `json:"admin_name" validate:"required"`
	Settings      *model.TenantSettings `json:"settings,omitempty"`
}

type TenantService interface {
	CreateTenant(ctx context.Context, req *CreateTenantRequest, actor string) (*model.Tenant, *model.User, error)
	ListTenants(ctx context.Context) ([]model.TenantSummary, error)
	GetTenant(ctx context.Context, id uuid.UUID) (*model.Tenant, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool, actor string) (*model.Tenant, error)
	UpdateSettings(ctx context.Context, id uuid.UUID, settings model.TenantSettings, actor string) (*model.Tenant, error)
}

type tenantService struct {
	tenants  repository.TenantRepository
	users    repository.UserRepository
	billing  BillingService
	notifier notify.Notifier
	logger   *zap.Logger
}

func NewTenantService(
	tenants repository.TenantRepository,
	users repository.UserRepository,
	billing BillingService,
	notifier notify.Notifier,
	logger *zap.Logger,
) TenantService {
	return &tenantService{tenants: tenants, users: users, billing: billing, notifier: notifier, logger: logger}
}

func (s *tenantService) CreateTenant(ctx context.Context, req *CreateTenantRequest, actor string) (*model.Tenant, *model.User, error) {
	if err := validator.Validate(req); err != nil {
		return nil, nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.AdminEmail))
	if existing, err := s.users.FindByEmail(ctx, email); err == nil && existing != nil {
		return nil, nil, ErrEmailExists
	}

	settings := model.DefaultTenantSettings()
	if req.Settings != nil {
		settings = req.Settings.Effective()
	}

	tenant := &model.Tenant{
		Name:     strings.TrimSpace(req.Name),
		Settings: datatypes.NewJSONType(settings),
		IsActive: true,
	}
	tenant.CreatedBy = actor
	tenant.UpdatedBy = actor

	admin := &model.User{
		Email:    email,
		FullName: strings.TrimSpace(req.AdminName),
		Role:     model.RoleAdmin,
		IsActive: true,
	}
	admin.CreatedBy = actor
	admin.UpdatedBy = actor
	if err := admin.SetPassword(req.AdminPassword); err != nil {
		return nil, nil, errors.New("failed to hash password")
	}

	if err := s.tenants.CreateWithAdmin(ctx, tenant, admin); err != nil {
		return nil, nil, err
	}

	s.logger.Info("tenant created",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("name", tenant.Name),
		zap.String("admin", admin.Email),
	)
	return tenant, admin, nil
}

// ListTenants is the superadmin overview; a tenant whose ledger cannot be
// read is listed with a zero balance.
func (s *tenantService) ListTenants(ctx context.Context) ([]model.TenantSummary, error) {
	tenants, err := s.tenants.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]model.TenantSummary, 0, len(tenants))
	for i := range tenants {
		t := &tenants[i]
		row := model.TenantSummary{ID: t.ID, Name: t.Name, IsActive: t.IsActive, PaidUntil: t.PaidUntil}
		summary, err := s.billing.GetTenantBillingSummary(ctx, t)
		if err != nil {
			s.logger.Warn("tenant billing summary failed", zap.String("tenant_id", t.ID.String()), zap.Error(err))
		} else {
			row.Balance = summary.Balance
			row.LastPayment = summary.LastPayment
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *tenantService) GetTenant(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	tenant, err := s.tenants.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTenantNotFound
	}
	return tenant, err
}

func (s *tenantService) SetActive(ctx context.Context, id uuid.UUID, active bool, actor string) (*model.Tenant, error) {
	tenant, err := s.GetTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	if tenant.IsActive == active {
		return tenant, nil
	}

	if err := s.tenants.SetActive(ctx, id, active, actor); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	tenant.IsActive = active

	s.notifier.TenantStatusChanged(tenant.ID.String(), tenant.Name, active)
	return tenant, nil
}

// UpdateSettings overlays settings on the tenant's current effective
// settings. Fields left unset keep their current value.
func (s *tenantService) UpdateSettings(ctx context.Context, id uuid.UUID, settings model.TenantSettings, actor string) (*model.Tenant, error) {
	tenant, err := s.GetTenant(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := settings.Merge(tenant.EffectiveSettings())
	if err := s.tenants.UpdateSettings(ctx, id, merged, actor); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	tenant.Settings = datatypes.NewJSONType(merged)
	return tenant, nil
}
