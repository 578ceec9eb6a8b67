package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"pos-backoffice/internal/idempotency"
	"pos-backoffice/internal/metrics"
	"pos-backoffice/internal/model"
	"pos-backoffice/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MoneyTolerance is the largest accepted difference between a client amount
// and the amount recomputed on the server.
var MoneyTolerance = decimal.NewFromFloat(0.01)

// product names containing these markers come from a corrupted client cart
var unknownProductMarkers = []string{"unknown", "desconocido"}

// EventPublisher pushes realtime events to a tenant's sessions.
type EventPublisher interface {
	Publish(tenantID string, payload interface{})
}

// SaleRequest is a proposed sale as sent by the POS client.
type SaleRequest struct {
	TenantID         string               `json:"tenant_id"`
	POSID            string               `json:"pos_id"`
	POSNumber        int                  `json:"pos_number"`
	Items            []model.SaleItem     `json:"items"`
	Total            *decimal.Decimal     `json:"total"`
	PaymentMethod    string               `json:"payment_method"`
	PaymentBreakdown []model.PaymentSplit `json:"payment_breakdown,omitempty"`
	CustomerID       *string              `json:"customer_id,omitempty"`
	IdempotencyKey   string               `json:"idempotency_key,omitempty"`
}

// CommitResult carries the persisted sale. Replayed is true when the sale was
// committed by an earlier request with the same idempotency key.
type CommitResult struct {
	Sale     *model.Sale
	Replayed bool
}

type SaleService interface {
	Commit(ctx context.Context, req *SaleRequest, actor string) (*CommitResult, error)
	GetSale(ctx context.Context, tenantID, id uuid.UUID) (*model.Sale, error)
	ListSales(ctx context.Context, tenantID uuid.UUID, filter model.SaleFilter) ([]model.Sale, int64, error)
}

type saleService struct {
	sales     repository.SaleRepository
	products  repository.ProductRepository
	tenants   repository.TenantRepository
	customers repository.CustomerRepository
	stock     *StockAdjuster
	idem      idempotency.Store // nil when Redis is not configured
	events    EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewSaleService(
	sales repository.SaleRepository,
	products repository.ProductRepository,
	tenants repository.TenantRepository,
	customers repository.CustomerRepository,
	idem idempotency.Store,
	events EventPublisher,
	logger *zap.Logger,
) SaleService {
	return &saleService{
		sales:     sales,
		products:  products,
		tenants:   tenants,
		customers: customers,
		stock:     NewStockAdjuster(products, logger),
		idem:      idem,
		events:    events,
		logger:    logger,
		now:       time.Now,
	}
}

// Commit validates a proposed sale against the catalog, persists it as a
// single row and then decrements stock on a best-effort basis. Any error
// other than SaleErrPersistence is returned before anything is written.
func (s *saleService) Commit(ctx context.Context, req *SaleRequest, actor string) (*CommitResult, error) {
	result, err := s.commit(ctx, req, actor)
	if err != nil {
		var saleErr *SaleError
		if errors.As(err, &saleErr) {
			metrics.SaleRejected(string(saleErr.Kind))
			if saleErr.IsClientError() {
				s.logger.Info("sale rejected",
					zap.String("tenant_id", req.TenantID),
					zap.String("kind", string(saleErr.Kind)),
					zap.String("reason", saleErr.Message),
				)
			}
		}
		return nil, err
	}
	return result, nil
}

func (s *saleService) commit(ctx context.Context, req *SaleRequest, actor string) (*CommitResult, error) {
	// 1. Required fields
	if strings.TrimSpace(req.POSID) == "" || req.Items == nil || req.Total == nil || strings.TrimSpace(req.TenantID) == "" {
		return nil, validationError("pos_id, tenant_id, items and total are required")
	}
	if len(req.Items) == 0 {
		return nil, validationError("sale must contain at least one item")
	}
	tenantID, err := uuid.Parse(req.TenantID)
	if err != nil {
		return nil, validationError("invalid tenant_id")
	}

	// 2. Total sign
	if req.Total.IsNegative() {
		return nil, validationError("total cannot be negative")
	}

	// 3. Line items
	if err := validateItems(req.Items); err != nil {
		return nil, err
	}

	// Replays are answered before touching the catalog: the cart may have
	// changed prices since the original commit.
	key := strings.TrimSpace(req.IdempotencyKey)
	if key != "" {
		replay, reserved, err := s.claimKey(ctx, tenantID, key)
		if err != nil {
			return nil, err
		}
		if replay != nil {
			metrics.SaleReplayed()
			return &CommitResult{Sale: replay, Replayed: true}, nil
		}
		if reserved {
			committed := false
			defer func() {
				if !committed {
					s.releaseKey(tenantID, key)
				}
			}()
			result, err := s.validateAndPersist(ctx, tenantID, req, key, actor)
			if err == nil {
				committed = true
				if err := s.idem.Complete(ctx, tenantID.String(), key, result.Sale.ID.String()); err != nil {
					s.logger.Warn("idempotency key completion failed", zap.String("key", key), zap.Error(err))
				}
			}
			return result, err
		}
	}

	return s.validateAndPersist(ctx, tenantID, req, key, actor)
}

func validateItems(items []model.SaleItem) error {
	for i, item := range items {
		n := i + 1
		if strings.TrimSpace(item.ProductID) == "" || strings.TrimSpace(item.ProductName) == "" {
			return validationError("item %d: product reference and name are required", n)
		}
		if !item.Quantity.IsPositive() {
			return validationError("item %d: quantity must be a positive number", n)
		}
		if item.UnitPrice.IsNegative() {
			return validationError("item %d: unit price cannot be negative", n)
		}
		expected := item.UnitPrice.Mul(item.Quantity)
		if item.Subtotal.Sub(expected).Abs().GreaterThan(MoneyTolerance) {
			return validationError("item %d: subtotal %s does not match unit price x quantity (%s)",
				n, item.Subtotal.StringFixed(2), expected.StringFixed(2))
		}
		name := strings.ToLower(item.ProductName)
		for _, marker := range unknownProductMarkers {
			if strings.Contains(name, marker) {
				return validationError("item %d: product name %q is not a valid catalog product", n, item.ProductName)
			}
		}
	}
	return nil
}

func (s *saleService) validateAndPersist(ctx context.Context, tenantID uuid.UUID, req *SaleRequest, key, actor string) (*CommitResult, error) {
	// 4. Resolve products in one batch lookup
	if err := s.resolveProducts(ctx, tenantID, req.Items); err != nil {
		return nil, err
	}

	var customerID *uuid.UUID
	if req.CustomerID != nil && strings.TrimSpace(*req.CustomerID) != "" {
		id, err := uuid.Parse(strings.TrimSpace(*req.CustomerID))
		if err != nil {
			return nil, &SaleError{Kind: SaleErrReferential, Message: ErrCustomerNotFound.Error(), Err: ErrCustomerNotFound}
		}
		if _, err := s.customers.FindByID(ctx, tenantID, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, &SaleError{Kind: SaleErrReferential, Message: ErrCustomerNotFound.Error(), Err: ErrCustomerNotFound}
			}
			return nil, &SaleError{Kind: SaleErrPersistence, Message: "could not complete the sale", Err: err}
		}
		customerID = &id
	}

	// 5. Recompute the total from the cent-rounded item subtotals
	computed := decimal.Zero
	for _, item := range req.Items {
		computed = computed.Add(item.Subtotal.Round(2))
	}
	if computed.Sub(*req.Total).Abs().GreaterThan(MoneyTolerance) {
		return nil, totalMismatchError(computed, *req.Total)
	}

	// 6. Tenant stock setting
	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &SaleError{Kind: SaleErrReferential, Message: ErrTenantNotFound.Error(), Err: ErrTenantNotFound}
		}
		return nil, &SaleError{Kind: SaleErrPersistence, Message: "could not complete the sale", Err: err}
	}
	decrementStock := tenant.Settings.Data().StockDecrementEnabled()

	// 7. Single-row insert
	sale := buildSale(tenantID, req, customerID, computed, key, actor, s.now())
	if err := s.sales.Create(ctx, sale); err != nil {
		// a concurrent request may have committed the same key first
		if key != "" {
			if existing, findErr := s.sales.FindByIdempotencyKey(ctx, tenantID, key); findErr == nil {
				metrics.SaleReplayed()
				return &CommitResult{Sale: existing, Replayed: true}, nil
			}
		}
		s.logger.Error("sale insert failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		return nil, &SaleError{Kind: SaleErrPersistence, Message: "could not complete the sale", Err: err}
	}

	// 8. Best-effort stock decrement
	if decrementStock {
		for _, item := range sale.Items {
			productID := uuid.MustParse(item.ProductID)
			s.stock.Decrement(ctx, tenantID, productID, item.Quantity, actor)
		}
	}

	metrics.SaleCommitted(sale.PaymentMethod)
	s.logger.Info("sale committed",
		zap.String("sale_id", sale.ID.String()),
		zap.String("tenant_id", tenantID.String()),
		zap.Int("pos_number", sale.POSNumber),
		zap.String("total", sale.Total.StringFixed(2)),
		zap.Int("items", len(sale.Items)),
	)
	if s.events != nil {
		s.events.Publish(tenantID.String(), map[string]interface{}{
			"type":           "sale_committed",
			"sale_id":        sale.ID,
			"pos_number":     sale.POSNumber,
			"total":          sale.Total,
			"payment_method": sale.PaymentMethod,
		})
	}

	return &CommitResult{Sale: sale}, nil
}

// resolveProducts checks every distinct product reference against the
// tenant's catalog. Identifiers that are not UUIDs can never match.
func (s *saleService) resolveProducts(ctx context.Context, tenantID uuid.UUID, items []model.SaleItem) error {
	seen := make(map[string]bool, len(items))
	var ids []uuid.UUID
	var missing []string
	for _, item := range items {
		ref := strings.TrimSpace(item.ProductID)
		if seen[ref] {
			continue
		}
		seen[ref] = true
		id, err := uuid.Parse(ref)
		if err != nil {
			missing = append(missing, ref)
			continue
		}
		ids = append(ids, id)
	}

	found, err := s.products.FindByIDs(ctx, tenantID, ids)
	if err != nil {
		return &SaleError{Kind: SaleErrPersistence, Message: "could not complete the sale", Err: err}
	}
	present := make(map[uuid.UUID]bool, len(found))
	for _, p := range found {
		present[p.ID] = true
	}
	for _, id := range ids {
		if !present[id] {
			missing = append(missing, id.String())
		}
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return missingProductsError(missing)
	}
	return nil
}

func buildSale(tenantID uuid.UUID, req *SaleRequest, customerID *uuid.UUID, total decimal.Decimal, key, actor string, now time.Time) *model.Sale {
	items := make([]model.SaleItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = model.SaleItem{
			ProductID:   strings.TrimSpace(item.ProductID),
			ProductName: strings.TrimSpace(item.ProductName),
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    item.Subtotal.Round(2),
		}
	}

	method := strings.TrimSpace(strings.ToLower(req.PaymentMethod))
	if method == "" {
		method = model.PaymentCash
	}

	posNumber := req.POSNumber
	if posNumber <= 0 {
		posNumber = 1
	}

	sale := &model.Sale{
		ID:            uuid.New(),
		TenantID:      tenantID,
		POSID:         strings.TrimSpace(req.POSID),
		POSNumber:     posNumber,
		CustomerID:    customerID,
		Items:         items,
		Total:         total,
		PaymentMethod: method,
		CreatedBy:     actor,
		CreatedAt:     now,
	}
	if len(req.PaymentBreakdown) > 0 {
		sale.PaymentBreakdown = req.PaymentBreakdown
	}
	if key != "" {
		sale.IdempotencyKey = &key
	}
	return sale
}

// claimKey returns the sale already committed under key, or reserves the key
// for this request. Without a Redis store only the durable lookup is used.
func (s *saleService) claimKey(ctx context.Context, tenantID uuid.UUID, key string) (*model.Sale, bool, error) {
	if s.idem != nil {
		saleID, reserved, err := s.idem.Reserve(ctx, tenantID.String(), key)
		switch {
		case errors.Is(err, idempotency.ErrInFlight):
			return nil, false, &SaleError{Kind: SaleErrConflict, Message: err.Error(), Err: err}
		case err != nil:
			s.logger.Warn("idempotency store unavailable, using database lookup", zap.Error(err))
		case reserved:
			// the key may still have been committed before its reservation expired
			if existing, err := s.sales.FindByIdempotencyKey(ctx, tenantID, key); err == nil {
				if err := s.idem.Complete(ctx, tenantID.String(), key, existing.ID.String()); err != nil {
					s.logger.Warn("idempotency key completion failed", zap.String("key", key), zap.Error(err))
				}
				return existing, false, nil
			}
			return nil, true, nil
		default:
			if id, err := uuid.Parse(saleID); err == nil {
				if existing, err := s.sales.FindByID(ctx, tenantID, id); err == nil {
					return existing, false, nil
				}
			}
		}
	}

	existing, err := s.sales.FindByIdempotencyKey(ctx, tenantID, key)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, &SaleError{Kind: SaleErrPersistence, Message: "could not complete the sale", Err: fmt.Errorf("idempotency lookup: %w", err)}
	}
	return nil, false, nil
}

func (s *saleService) releaseKey(tenantID uuid.UUID, key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.idem.Release(ctx, tenantID.String(), key); err != nil {
		s.logger.Warn("idempotency key release failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *saleService) GetSale(ctx context.Context, tenantID, id uuid.UUID) (*model.Sale, error) {
	sale, err := s.sales.FindByID(ctx, tenantID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrSaleNotFound
	}
	return sale, err
}

func (s *saleService) ListSales(ctx context.Context, tenantID uuid.UUID, filter model.SaleFilter) ([]model.Sale, int64, error) {
	return s.sales.FindAll(ctx, tenantID, filter)
}
