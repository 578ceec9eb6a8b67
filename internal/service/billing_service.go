package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"pos-backoffice/internal/metrics"
	"pos-backoffice/internal/model"
	"pos-backoffice/internal/notify"
	"pos-backoffice/internal/repository"
	"pos-backoffice/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrInvalidAmount          = errors.New("amount must be greater than zero")
	ErrInvalidTransactionType = errors.New("type must be payment or debt")
	ErrInvalidExtendDays      = errors.New("extend_days cannot be negative")
	ErrTransactionNotFound    = errors.New("billing transaction not found")
	ErrBillingPersistence     = errors.New("could not register the billing transaction")
)

// DefaultOverdueAfter is how old a debt must be before the sweep reports it.
const DefaultOverdueAfter = 30 * 24 * time.Hour

// RegisterTransactionRequest is a superadmin ledger entry.
type RegisterTransactionRequest struct {
	Amount      decimal.Decimal              `json:"amount"`
	Type        model.BillingTransactionType `json:"type"`
	Description string                       `json:"description"`
	ExtendDays  int                          `json:"extend_days"`
}

// BillingSummary is the per-tenant figure shown in the superadmin tenant list.
type BillingSummary struct {
	Balance     decimal.Decimal `json:"balance"`
	PaidUntil   *time.Time      `json:"paid_until,omitempty"`
	LastPayment *time.Time      `json:"last_payment,omitempty"`
}

// OverdueTenant is one tenant reported by an overdue sweep.
type OverdueTenant struct {
	TenantID   uuid.UUID       `json:"tenant_id"`
	TenantName string          `json:"tenant_name"`
	Balance    decimal.Decimal `json:"balance"`
	OldestDebt time.Time       `json:"oldest_debt"`
}

type BillingService interface {
	RegisterTransaction(ctx context.Context, tenantID uuid.UUID, req *RegisterTransactionRequest, actor string) (*model.TenantBillingTransaction, error)
	GetBalance(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error)
	GetBillingHistory(ctx context.Context, tenantID uuid.UUID) ([]model.TenantBillingTransaction, error)
	GetTenantBillingSummary(ctx context.Context, tenant *model.Tenant) (*BillingSummary, error)
	UploadReceipt(ctx context.Context, transactionID uuid.UUID, fileName string, r io.Reader) (*model.TenantBillingTransaction, error)
	CheckOverdueDebts(ctx context.Context) ([]OverdueTenant, error)
}

type billingService struct {
	ledger       repository.BillingRepository
	tenants      repository.TenantRepository
	files        storage.FileStore
	notifier     notify.Notifier
	logger       *zap.Logger
	overdueAfter time.Duration
	now          func() time.Time
}

func NewBillingService(
	ledger repository.BillingRepository,
	tenants repository.TenantRepository,
	files storage.FileStore,
	notifier notify.Notifier,
	logger *zap.Logger,
	overdueAfter time.Duration,
) BillingService {
	if overdueAfter <= 0 {
		overdueAfter = DefaultOverdueAfter
	}
	return &billingService{
		ledger:       ledger,
		tenants:      tenants,
		files:        files,
		notifier:     notifier,
		logger:       logger,
		overdueAfter: overdueAfter,
		now:          time.Now,
	}
}

func (s *billingService) RegisterTransaction(ctx context.Context, tenantID uuid.UUID, req *RegisterTransactionRequest, actor string) (*model.TenantBillingTransaction, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if req.Type != model.BillingPayment && req.Type != model.BillingDebt {
		return nil, ErrInvalidTransactionType
	}
	if req.ExtendDays < 0 {
		return nil, ErrInvalidExtendDays
	}

	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTenantNotFound
		}
		s.logger.Error("billing tenant lookup failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		return nil, ErrBillingPersistence
	}

	now := s.now()
	entry := &model.TenantBillingTransaction{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Amount:      req.Amount.Round(2),
		Type:        req.Type,
		Description: strings.TrimSpace(req.Description),
		CreatedBy:   actor,
		CreatedAt:   now,
	}

	extendDays := 0
	if req.Type == model.BillingPayment {
		extendDays = req.ExtendDays
	}

	paidUntil, err := s.ledger.Append(ctx, entry, extendDays)
	if err != nil {
		s.logger.Error("billing append failed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("type", string(req.Type)),
			zap.Error(err),
		)
		return nil, ErrBillingPersistence
	}
	metrics.BillingTransaction(string(entry.Type))

	if paidUntil != nil {
		s.notifier.PaymentRegistered(tenantID.String(), tenant.Name, entry.Amount, *paidUntil)
	}
	return entry, nil
}

// Balance folds ledger rows: debts add, payments subtract.
func Balance(rows []model.TenantBillingTransaction) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.SignedAmount())
	}
	return total
}

func (s *billingService) GetBalance(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error) {
	rows, err := s.ledger.FindByTenant(ctx, tenantID)
	if err != nil {
		return decimal.Zero, err
	}
	return Balance(rows), nil
}

func (s *billingService) GetBillingHistory(ctx context.Context, tenantID uuid.UUID) ([]model.TenantBillingTransaction, error) {
	return s.ledger.FindByTenant(ctx, tenantID)
}

func (s *billingService) GetTenantBillingSummary(ctx context.Context, tenant *model.Tenant) (*BillingSummary, error) {
	rows, err := s.ledger.FindByTenant(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}
	summary := &BillingSummary{Balance: Balance(rows), PaidUntil: tenant.PaidUntil}
	for _, row := range rows {
		if row.Type == model.BillingPayment {
			// rows are newest first
			at := row.CreatedAt
			summary.LastPayment = &at
			break
		}
	}
	return summary, nil
}

func (s *billingService) UploadReceipt(ctx context.Context, transactionID uuid.UUID, fileName string, r io.Reader) (*model.TenantBillingTransaction, error) {
	entry, err := s.ledger.FindByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}

	objectPath := fmt.Sprintf("%s/%s/%s", entry.TenantID, entry.ID, storage.SanitizeFileName(fileName))
	url, err := s.files.Save(ctx, objectPath, r)
	if err != nil {
		return nil, fmt.Errorf("store receipt: %w", err)
	}
	if err := s.ledger.AttachReceipt(ctx, entry.ID, url); err != nil {
		return nil, fmt.Errorf("attach receipt: %w", err)
	}

	entry.ReceiptURL = url
	s.logger.Info("billing receipt attached",
		zap.String("transaction_id", entry.ID.String()),
		zap.String("tenant_id", entry.TenantID.String()),
	)
	return entry, nil
}

// CheckOverdueDebts reports every tenant holding a debt older than the
// overdue threshold while its balance is still positive. Each qualifying
// tenant gets one notification per call; nothing is remembered between calls.
func (s *billingService) CheckOverdueDebts(ctx context.Context) ([]OverdueTenant, error) {
	tenants, err := s.tenants.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := s.now().Add(-s.overdueAfter)
	var overdue []OverdueTenant
	for _, tenant := range tenants {
		if err := ctx.Err(); err != nil {
			return overdue, err
		}

		rows, err := s.ledger.FindByTenant(ctx, tenant.ID)
		if err != nil {
			s.logger.Warn("overdue sweep: ledger read failed", zap.String("tenant_id", tenant.ID.String()), zap.Error(err))
			continue
		}

		var oldest *time.Time
		for i := range rows {
			if rows[i].Type == model.BillingDebt && rows[i].CreatedAt.Before(cutoff) {
				if oldest == nil || rows[i].CreatedAt.Before(*oldest) {
					oldest = &rows[i].CreatedAt
				}
			}
		}
		if oldest == nil {
			continue
		}
		balance := Balance(rows)
		if !balance.IsPositive() {
			continue
		}

		overdue = append(overdue, OverdueTenant{
			TenantID:   tenant.ID,
			TenantName: tenant.Name,
			Balance:    balance,
			OldestDebt: *oldest,
		})
		s.notifier.OverdueDebt(tenant.ID.String(), tenant.Name, balance, *oldest)
		metrics.OverdueNotification()
	}

	s.logger.Info("overdue sweep finished", zap.Int("tenants", len(tenants)), zap.Int("overdue", len(overdue)))
	return overdue, nil
}
