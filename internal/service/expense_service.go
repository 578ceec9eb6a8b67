package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"pos-backoffice/internal/model"
	"pos-backoffice/internal/repository"
	"pos-backoffice/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrApprovalForbidden = errors.New("you are not allowed to approve expenses")

type ExpenseRequest struct {
	Category      string              `json:"category" validate:"required,expense_category"`
	Description   string              `json:"description"`
	Amount        decimal.Decimal     `json:"amount"`
	PaymentStatus string              `json:"payment_status" validate:"required,oneof=paid unpaid"`
	Items         []model.ExpenseItem `json:"items"`
	ExpenseDate   string              `json:"expense_date" validate:"omitempty,datetime=2006-01-02"`
}

type ApprovalRequest struct {
	Status string `json:"status" validate:"required,oneof=pendiente aprobado rechazado"`
}

type ExpenseService interface {
	CreateExpense(ctx context.Context, caller *Principal, tenantID uuid.UUID, req *ExpenseRequest) (*model.Expense, error)
	UpdateExpense(ctx context.Context, caller *Principal, tenantID, id uuid.UUID, req *ExpenseRequest) (*model.Expense, error)
	SetApproval(ctx context.Context, caller *Principal, tenantID, id uuid.UUID, req *ApprovalRequest) (*model.Expense, error)
	DeleteExpense(ctx context.Context, caller *Principal, tenantID, id uuid.UUID) error
	GetExpense(ctx context.Context, tenantID, id uuid.UUID) (*model.Expense, error)
	ListExpenses(ctx context.Context, tenantID uuid.UUID, filter repository.ExpenseFilter) ([]model.Expense, error)
}

type expenseService struct {
	expenses repository.ExpenseRepository
	products repository.ProductRepository
	logger   *zap.Logger
	now      func() time.Time
}

func NewExpenseService(expenses repository.ExpenseRepository, products repository.ProductRepository, logger *zap.Logger) ExpenseService {
	return &expenseService{expenses: expenses, products: products, logger: logger, now: time.Now}
}

func (s *expenseService) validate(req *ExpenseRequest) (time.Time, error) {
	if err := validator.Validate(req); err != nil {
		return time.Time{}, err
	}
	if !req.Amount.IsPositive() {
		return time.Time{}, ErrInvalidAmount
	}
	for _, item := range req.Items {
		if !item.Quantity.IsPositive() {
			return time.Time{}, ErrInvalidQuantity
		}
		if item.UnitCost.IsNegative() {
			return time.Time{}, errors.New("unit cost cannot be negative")
		}
	}
	if req.ExpenseDate == "" {
		return s.now().Truncate(24 * time.Hour), nil
	}
	return time.Parse("2006-01-02", req.ExpenseDate)
}

func (s *expenseService) CreateExpense(ctx context.Context, caller *Principal, tenantID uuid.UUID, req *ExpenseRequest) (*model.Expense, error) {
	date, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	expense := &model.Expense{
		TenantID:       tenantID,
		Category:       req.Category,
		Description:    strings.TrimSpace(req.Description),
		Amount:         req.Amount.Round(2),
		PaymentStatus:  req.PaymentStatus,
		ApprovalStatus: model.ApprovalPending,
		Items:          req.Items,
		ExpenseDate:    date,
	}
	expense.CreatedBy = caller.Actor()
	expense.UpdatedBy = caller.Actor()

	if err := s.expenses.Create(ctx, expense); err != nil {
		return nil, err
	}
	return expense, nil
}

func (s *expenseService) UpdateExpense(ctx context.Context, caller *Principal, tenantID, id uuid.UUID, req *ExpenseRequest) (*model.Expense, error) {
	date, err := s.validate(req)
	if err != nil {
		return nil, err
	}
	expense, err := s.GetExpense(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if expense.StockApplied {
		return nil, errors.New("expense already applied to stock and cannot be edited")
	}

	expense.Category = req.Category
	expense.Description = strings.TrimSpace(req.Description)
	expense.Amount = req.Amount.Round(2)
	expense.PaymentStatus = req.PaymentStatus
	expense.Items = req.Items
	expense.ExpenseDate = date
	expense.UpdatedBy = caller.Actor()

	if err := s.expenses.Update(ctx, expense); err != nil {
		return nil, err
	}
	return expense, nil
}

// SetApproval changes the approval status. The first transition of an
// inventory purchase to approved adds its product items to stock.
func (s *expenseService) SetApproval(ctx context.Context, caller *Principal, tenantID, id uuid.UUID, req *ApprovalRequest) (*model.Expense, error) {
	if !caller.Can(model.CapExpenseApprove) {
		return nil, ErrApprovalForbidden
	}
	if err := validator.Validate(req); err != nil {
		return nil, err
	}
	expense, err := s.GetExpense(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	expense.ApprovalStatus = req.Status
	expense.UpdatedBy = caller.Actor()

	if req.Status == model.ApprovalApproved && expense.Category == model.ExpenseCategoryInventoryPurchase && !expense.StockApplied {
		if err := s.checkItemProducts(ctx, tenantID, expense.Items); err != nil {
			return nil, err
		}
		for _, item := range expense.Items {
			if item.ProductID == nil {
				continue
			}
			if _, err := s.products.IncrementStock(ctx, tenantID, *item.ProductID, item.Quantity, caller.Actor()); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return nil, ErrProductNotFound
				}
				return nil, err
			}
		}
		expense.StockApplied = true
	}

	if err := s.expenses.Update(ctx, expense); err != nil {
		s.logger.Error("expense approval update failed", zap.String("expense_id", id.String()), zap.Error(err))
		return nil, err
	}
	return expense, nil
}

// checkItemProducts fails before any stock change when an item references a
// product missing from the tenant's catalog.
func (s *expenseService) checkItemProducts(ctx context.Context, tenantID uuid.UUID, items []model.ExpenseItem) error {
	seen := map[uuid.UUID]bool{}
	var ids []uuid.UUID
	for _, item := range items {
		if item.ProductID != nil && !seen[*item.ProductID] {
			seen[*item.ProductID] = true
			ids = append(ids, *item.ProductID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	found, err := s.products.FindByIDs(ctx, tenantID, ids)
	if err != nil {
		return err
	}
	if len(found) != len(ids) {
		return ErrProductNotFound
	}
	return nil
}

func (s *expenseService) DeleteExpense(ctx context.Context, caller *Principal, tenantID, id uuid.UUID) error {
	err := s.expenses.Delete(ctx, tenantID, id, caller.Actor())
	if errors.Is(err, repository.ErrNotFound) {
		return ErrExpenseNotFound
	}
	return err
}

func (s *expenseService) GetExpense(ctx context.Context, tenantID, id uuid.UUID) (*model.Expense, error) {
	expense, err := s.expenses.FindByID(ctx, tenantID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrExpenseNotFound
	}
	return expense, err
}

func (s *expenseService) ListExpenses(ctx context.Context, tenantID uuid.UUID, filter repository.ExpenseFilter) ([]model.Expense, error) {
	return s.expenses.FindAll(ctx, tenantID, filter)
}
