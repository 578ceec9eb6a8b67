package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pos-backoffice/internal/model"
	"pos-backoffice/internal/repository"
	"pos-backoffice/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrSKUExists       = errors.New("SKU already exists")
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
)

type ProductRequest struct {
	SKU   string          `json:"sku" validate:"required,max=50"`
	Name  string          `json:"name" validate:"required"`
	Stock decimal.Decimal `json:"stock"`
	Unit  string          `json:"unit" validate:"max=20"`
	Price decimal.Decimal `json:"price"`
}

type PurchaseRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
	Note     string          `json:"note"`
}

type InventoryService interface {
	CreateProduct(ctx context.Context, caller *Principal, tenantID uuid.UUID, req *ProductRequest) (*model.Product, error)
	UpdateProduct(ctx context.Context, caller *Principal, tenantID, id uuid.UUID, req *ProductRequest) (*model.Product, error)
	RecordPurchase(ctx context.Context, caller *Principal, tenantID, id uuid.UUID, req *PurchaseRequest) (*model.Product, error)
	GetAllProducts(ctx context.Context, tenantID uuid.UUID) ([]model.Product, error)
	GetProduct(ctx context.Context, tenantID, id uuid.UUID) (*model.Product, error)
}

type inventoryService struct {
	products repository.ProductRepository
	events   EventPublisher
	logger   *zap.Logger
}

func NewInventoryService(products repository.ProductRepository, events EventPublisher, logger *zap.Logger) InventoryService {
	return &inventoryService{products: products, events: events, logger: logger}
}

func validateProduct(req *ProductRequest) error {
	if err := validator.Validate(req); err != nil {
		return err
	}
	if req.Price.IsNegative() {
		return errors.New("price cannot be negative")
	}
	if req.Stock.IsNegative() {
		return errors.New("stock cannot be negative")
	}
	return nil
}

func (s *inventoryService) CreateProduct(ctx context.Context, caller *Principal, tenantID uuid.UUID, req *ProductRequest) (*model.Product, error) {
	if err := validateProduct(req); err != nil {
		return nil, err
	}

	sku := strings.TrimSpace(req.SKU)
	if existing, _ := s.products.FindBySKU(ctx, tenantID, sku); existing != nil {
		return nil, ErrSKUExists
	}

	product := &model.Product{
		TenantID: tenantID,
		SKU:      sku,
		Name:     strings.TrimSpace(req.Name),
		Stock:    req.Stock,
		Unit:     req.Unit,
		Price:    req.Price.Round(2),
	}
	product.CreatedBy = caller.Actor()
	product.UpdatedBy = caller.Actor()

	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}

	s.publishStock(tenantID, caller, "product_created", product, fmt.Sprintf("%s created product '%s'", caller.Name, product.Name))
	return product, nil
}

// UpdateProduct edits catalog fields. Stock is only changed here as a manual
// correction; sales and purchases use their own paths.
func (s *inventoryService) UpdateProduct(ctx context.Context, caller *Principal, tenantID, id uuid.UUID, req *ProductRequest) (*model.Product, error) {
	if err := validateProduct(req); err != nil {
		return nil, err
	}

	product, err := s.products.FindByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	sku := strings.TrimSpace(req.SKU)
	if sku != product.SKU {
		if existing, _ := s.products.FindBySKU(ctx, tenantID, sku); existing != nil && existing.ID != product.ID {
			return nil, ErrSKUExists
		}
	}

	oldStock := product.Stock
	product.SKU = sku
	product.Name = strings.TrimSpace(req.Name)
	product.Stock = req.Stock
	product.Unit = req.Unit
	product.Price = req.Price.Round(2)
	product.UpdatedBy = caller.Actor()

	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}

	if !oldStock.Equal(product.Stock) {
		s.logger.Info("stock corrected manually",
			zap.String("product_id", product.ID.String()),
			zap.String("old_stock", oldStock.String()),
			zap.String("new_stock", product.Stock.String()),
			zap.String("by", caller.Actor()),
		)
	}
	s.publishStock(tenantID, caller, "product_updated", product, fmt.Sprintf("%s updated product '%s'", caller.Name, product.Name))
	return product, nil
}

// RecordPurchase adds purchased units to stock inside a locked transaction.
func (s *inventoryService) RecordPurchase(ctx context.Context, caller *Principal, tenantID, id uuid.UUID, req *PurchaseRequest) (*model.Product, error) {
	if !req.Quantity.IsPositive() {
		return nil, ErrInvalidQuantity
	}

	product, err := s.products.IncrementStock(ctx, tenantID, id, req.Quantity, caller.Actor())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	s.logger.Info("purchase recorded",
		zap.String("tenant_id", tenantID.String()),
		zap.String("product_id", product.ID.String()),
		zap.String("quantity", req.Quantity.String()),
	)
	s.publishStock(tenantID, caller, "purchase_recorded", product,
		fmt.Sprintf("%s added %s units of '%s'", caller.Name, req.Quantity.String(), product.Name))
	return product, nil
}

func (s *inventoryService) GetAllProducts(ctx context.Context, tenantID uuid.UUID) ([]model.Product, error) {
	return s.products.FindAll(ctx, tenantID)
}

func (s *inventoryService) GetProduct(ctx context.Context, tenantID, id uuid.UUID) (*model.Product, error) {
	product, err := s.products.FindByID(ctx, tenantID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	return product, err
}

func (s *inventoryService) publishStock(tenantID uuid.UUID, caller *Principal, action string, p *model.Product, message string) {
	if s.events == nil {
		return
	}
	s.events.Publish(tenantID.String(), map[string]interface{}{
		"type":   "stock_update",
		"action": action,
		"product": map[string]interface{}{
			"id":    p.ID,
			"sku":   p.SKU,
			"name":  p.Name,
			"stock": p.Stock,
			"price": p.Price,
		},
		"user": map[string]interface{}{
			"id":    caller.UserID,
			"name":  caller.Name,
			"email": caller.Email,
		},
		"message": message,
	})
}
