package service

import (
	"context"

	"pos-backoffice/internal/metrics"
	"pos-backoffice/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Stock decrement paths, as reported to metrics.
const (
	StockPathAtomic   = "atomic"
	StockPathFallback = "fallback"
	StockPathFailed   = "failed"
)

// StockAdjuster decrements inventory after a sale. It first tries the
// server-side decrement_stock procedure and, when that is missing or fails,
// falls back to reading the current stock and writing stock - quantity.
//
// The fallback is not atomic: two concurrent sales of the same product can
// both read the same stock and one decrement is lost. Stock is an eventually
// corrected count, not a reservation, so this is accepted.
type StockAdjuster struct {
	products repository.ProductRepository
	logger   *zap.Logger
}

func NewStockAdjuster(products repository.ProductRepository, logger *zap.Logger) *StockAdjuster {
	return &StockAdjuster{products: products, logger: logger}
}

// Decrement never returns an error; the path taken is returned for logging and tests.
func (a *StockAdjuster) Decrement(ctx context.Context, tenantID, productID uuid.UUID, quantity decimal.Decimal, actor string) string {
	err := a.products.DecrementStockAtomic(ctx, productID, quantity)
	if err == nil {
		metrics.StockDecrement(StockPathAtomic)
		return StockPathAtomic
	}

	a.logger.Warn("atomic stock decrement failed, using read-modify-write",
		zap.String("tenant_id", tenantID.String()),
		zap.String("product_id", productID.String()),
		zap.Error(err),
	)

	product, err := a.products.FindByID(ctx, tenantID, productID)
	if err != nil {
		a.logger.Warn("stock fallback read failed", zap.String("product_id", productID.String()), zap.Error(err))
		metrics.StockDecrement(StockPathFailed)
		return StockPathFailed
	}

	if err := a.products.SetStock(ctx, tenantID, productID, product.Stock.Sub(quantity), actor); err != nil {
		a.logger.Warn("stock fallback write failed", zap.String("product_id", productID.String()), zap.Error(err))
		metrics.StockDecrement(StockPathFailed)
		return StockPathFailed
	}

	metrics.StockDecrement(StockPathFallback)
	return StockPathFallback
}
