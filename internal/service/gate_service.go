package service

import (
	"context"
	"errors"

	"pos-backoffice/internal/metrics"
	"pos-backoffice/internal/model"
	"pos-backoffice/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID    uuid.UUID
	TenantID  *uuid.UUID
	Email     string
	Name      string
	Role      string
	POSNumber *int
}

// Can reports whether the principal's role grants capability.
func (p *Principal) Can(capability string) bool {
	return model.HasCapability(p.Role, capability)
}

// Actor is the value written to audit columns.
func (p *Principal) Actor() string {
	if p.Email != "" {
		return p.Email
	}
	return p.UserID.String()
}

// GateDecision is the outcome of the suspension gate for one request.
type GateDecision struct {
	Allowed    bool            `json:"allowed"`
	Suspended  bool            `json:"suspended"`
	Bypassed   bool            `json:"bypassed,omitempty"`
	TenantID   string          `json:"tenant_id,omitempty"`
	TenantName string          `json:"tenant_name,omitempty"`
	Balance    decimal.Decimal `json:"balance"`
}

type GateService interface {
	Evaluate(ctx context.Context, p *Principal) (*GateDecision, error)
}

// gateService only reads tenant state. Suspending and reactivating a tenant
// happen through TenantService.
type gateService struct {
	tenants repository.TenantRepository
	billing BillingService
	logger  *zap.Logger
}

func NewGateService(tenants repository.TenantRepository, billing BillingService, logger *zap.Logger) GateService {
	return &gateService{tenants: tenants, billing: billing, logger: logger}
}

// Evaluate loads the tenant fresh on every call. Holders of CapBypassGate are
// always allowed and are the only principals allowed without a tenant.
func (s *gateService) Evaluate(ctx context.Context, p *Principal) (*GateDecision, error) {
	if p.Can(model.CapBypassGate) {
		return &GateDecision{Allowed: true, Bypassed: true}, nil
	}
	if p.TenantID == nil {
		return nil, ErrTenantNotFound
	}

	tenant, err := s.tenants.FindByID(ctx, *p.TenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}

	decision := &GateDecision{
		Allowed:    tenant.IsActive,
		Suspended:  !tenant.IsActive,
		TenantID:   tenant.ID.String(),
		TenantName: tenant.Name,
	}
	if tenant.IsActive {
		return decision, nil
	}

	metrics.GateBlocked()
	balance, err := s.billing.GetBalance(ctx, tenant.ID)
	if err != nil {
		// the suspension screen still renders without a balance
		s.logger.Warn("gate balance lookup failed", zap.String("tenant_id", tenant.ID.String()), zap.Error(err))
		return decision, nil
	}
	decision.Balance = balance
	return decision, nil
}
