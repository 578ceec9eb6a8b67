package handler

import (
	"errors"

	"pos-backoffice/internal/repository"
	"pos-backoffice/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ExpenseHandler struct {
	service service.ExpenseService
}

func NewExpenseHandler(s service.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{service: s}
}

func expenseError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrExpenseNotFound):
		return notFound(c, err)
	case errors.Is(err, service.ErrApprovalForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	}
	return badRequest(c, err)
}

// GET /api/v1/expenses?category=&payment_status=&approval_status=
func (h *ExpenseHandler) ListExpenses(c *fiber.Ctx) error {
	tenantID, ok, err := tenantScope(c)
	if !ok {
		return err
	}
	filter := repository.ExpenseFilter{
		Category:       c.Query("category"),
		PaymentStatus:  c.Query("payment_status"),
		ApprovalStatus: c.Query("approval_status"),
	}
	expenses, err := h.service.ListExpenses(c.UserContext(), tenantID, filter)
	if err != nil {
		return serverError(c, "Failed to fetch expenses")
	}
	return c.JSON(fiber.Map{"data": expenses})
}

// GET /api/v1/expenses/:id
func (h *ExpenseHandler) GetExpense(c *fiber.Ctx) error {
	tenantID, ok, err := tenantScope(c)
	if !ok {
		return err
	}
	id, ok, err := pathUUID(c, "id")
	if !ok {
		return err
	}
	expense, err := h.service.GetExpense(c.UserContext(), tenantID, id)
	if err != nil {
		return expenseError(c, err)
	}
	return c.JSON(fiber.Map{"data": expense})
}

// POST /api/v1/expenses
func (h *ExpenseHandler) CreateExpense(c *fiber.Ctx) error {
	tenantID, ok, err := tenantScope(c)
	if !ok {
		return err
	}
	var req service.ExpenseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	expense, err := h.service.CreateExpense(c.UserContext(), principal(c), tenantID, &req)
	if err != nil {
		return expenseError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Expense created", "data": expense})
}

// PUT /api/v1/expenses/:id
func (h *ExpenseHandler) UpdateExpense(c *fiber.Ctx) error {
	tenantID, ok, err := tenantScope(c)
	if !ok {
		return err
	}
	id, ok, err := pathUUID(c, "id")
	if !ok {
		return err
	}
	var req service.ExpenseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	expense, err := h.service.UpdateExpense(c.UserContext(), principal(c), tenantID, id, &req)
	if err != nil {
		return expenseError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Expense updated", "data": expense})
}

// PUT /api/v1/expenses/:id/approval
func (h *ExpenseHandler) SetApproval(c *fiber.Ctx) error {
	tenantID, ok, err := tenantScope(c)
	if !ok {
		return err
	}
	id, ok, err := pathUUID(c, "id")
	if !ok {
		return err
	}
	var req service.ApprovalRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	expense, err := h.service.SetApproval(c.UserContext(), principal(c), tenantID, id, &req)
	if err != nil {
		return expenseError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Approval updated", "data": expense})
}

// DELETE /api/v1/expenses/:id
func (h *ExpenseHandler) DeleteExpense(c *fiber.Ctx) error {
	tenantID, ok, err := tenantScope(c)
	if !ok {
		return err
	}
	id, ok, err := pathUUID(c, "id")
	if !ok {
		return err
	}
	if err := h.service.DeleteExpense(c.UserContext(), principal(c), tenantID, id); err != nil {
		return expenseError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Expense deleted"})
}
