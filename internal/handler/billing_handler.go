package handler

import (
	"errors"

	"pos-backoffice/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const maxReceiptSize = 10 << 20

type BillingHandler struct {
	service service.BillingService
	logger  *zap.Logger
}

func NewBillingHandler(s service.BillingService, logger *zap.Logger) *BillingHandler {
	return &BillingHandler{service: s, logger: logger}
}

// GetBalance returns the caller's tenant balance.
// GET /api/v1/billing/balance
func (h *BillingHandler) GetBalance(c *fiber.Ctx) error {
	tenantID, ok, err := tenantScope(c)
	if !ok {
		return err
	}
	balance, err := h.service.GetBalance(c.UserContext(), tenantID)
	if err != nil {
		return serverError(c, "Failed to fetch balance")
	}
	return c.JSON(fiber.Map{"tenant_id": tenantID, "balance": balance})
}

// GET /api/v1/billing/history
func (h *BillingHandler) GetHistory(c *fiber.Ctx) error {
	tenantID, ok, err := tenantScope(c)
	if !ok {
		return err
	}
	rows, err := h.service.GetBillingHistory(c.UserContext(), tenantID)
	if err != nil {
		return serverError(c, "Failed to fetch billing history")
	}
	return c.JSON(fiber.Map{"data": rows})
}

// RegisterTransaction appends a payment or debt to a tenant's ledger.
// POST /api/v1/admin/tenants/:id/billing
func (h *BillingHandler) RegisterTransaction(c *fiber.Ctx) error {
	tenantID, ok, err := pathUUID(c, "id")
	if !ok {
		return err
	}
	var req service.RegisterTransactionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	entry, err := h.service.RegisterTransaction(c.UserContext(), tenantID, &req, principal(c).Actor())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTenantNotFound):
			return notFound(c, err)
		case errors.Is(err, service.ErrBillingPersistence):
			return serverError(c, err.Error())
		default:
			return badRequest(c, err)
		}
	}

	balance, err := h.service.GetBalance(c.UserContext(), tenantID)
	if err != nil {
		h.logger.Warn("balance after billing append failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Transaction registered", "data": entry})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Transaction registered", "data": entry, "balance": balance})
}

// GET /api/v1/admin/tenants/:id/billing
func (h *BillingHandler) GetTenantHistory(c *fiber.Ctx) error {
	tenantID, ok, err := pathUUID(c, "id")
	if !ok {
		return err
	}
	rows, err := h.service.GetBillingHistory(c.UserContext(), tenantID)
	if err != nil {
		return serverError(c, "Failed to fetch billing history")
	}
	balance, err := h.service.GetBalance(c.UserContext(), tenantID)
	if err != nil {
		return serverError(c, "Failed to fetch balance")
	}
	return c.JSON(fiber.Map{"data": rows, "balance": balance})
}

// UploadReceipt takes a multipart "file" field.
// POST /api/v1/admin/billing/:txId/receipt
func (h *BillingHandler) UploadReceipt(c *fiber.Ctx) error {
	txID, ok, err := pathUUID(c, "txId")
	if !ok {
		return err
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
	}
	if fh.Size > maxReceiptSize {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "file exceeds 10MB"})
	}
	f, err := fh.Open()
	if err != nil {
		return badRequest(c, err)
	}
	defer f.Close()

	entry, err := h.service.UploadReceipt(c.UserContext(), txID, fh.Filename, f)
	if err != nil {
		if errors.Is(err, service.ErrTransactionNotFound) {
			return notFound(c, err)
		}
		h.logger.Error("receipt upload failed", zap.String("transaction_id", txID.String()), zap.Error(err))
		return serverError(c, "Failed to store receipt")
	}
	return c.JSON(fiber.Map{"message": "Receipt attached", "data": entry})
}

// POST /api/v1/admin/billing/overdue-sweep
func (h *BillingHandler) OverdueSweep(c *fiber.Ctx) error {
	overdue, err := h.service.CheckOverdueDebts(c.UserContext())
	if err != nil {
		return serverError(c, "Overdue sweep failed")
	}
	return c.JSON(fiber.Map{"data": overdue, "notified": len(overdue)})
}
