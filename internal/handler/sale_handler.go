package handler

import (
	"errors"
	"time"

	"pos-backoffice/internal/model"
	"pos-backoffice/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type SaleHandler struct {
	service service.SaleService
}

func NewSaleHandler(s service.SaleService) *SaleHandler {
	return &SaleHandler{service: s}
}

// CreateSale commits a sale for the caller's tenant.
// POST /api/v1/sales
func (h *SaleHandler) CreateSale(c *fiber.Ctx) error {
	var req service.SaleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON", "kind": service.SaleErrValidation})
	}

	p := principal(c)
	if p.TenantID != nil {
		if req.TenantID == "" {
			req.TenantID = p.TenantID.String()
		}
		if req.TenantID != p.TenantID.String() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": service.ErrForbiddenTenant.Error()})
		}
	}
	if req.POSNumber == 0 && p.POSNumber != nil {
		req.POSNumber = *p.POSNumber
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.Get("Idempotency-Key")
	}

	result, err := h.service.Commit(c.UserContext(), &req, p.Actor())
	if err != nil {
		return saleErrorResponse(c, err)
	}

	status := fiber.StatusCreated
	if result.Replayed {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(fiber.Map{
		"message":  "Sale committed",
		"data":     result.Sale,
		"replayed": result.Replayed,
	})
}

func saleErrorResponse(c *fiber.Ctx, err error) error {
	var saleErr *service.SaleError
	if !errors.As(err, &saleErr) {
		return serverError(c, "could not complete the sale")
	}

	body := fiber.Map{"error": saleErr.Message, "kind": saleErr.Kind}
	if len(saleErr.Missing) > 0 {
		body["missing"] = saleErr.Missing
	}
	if saleErr.Expected != nil {
		body["expected"] = saleErr.Expected
		body["received"] = saleErr.Received
	}

	switch saleErr.Kind {
	case service.SaleErrPersistence:
		return c.Status(fiber.StatusInternalServerError).JSON(body)
	case service.SaleErrConflict:
		return c.Status(fiber.StatusConflict).JSON(body)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(body)
	}
}

// ListSales supports from/to (YYYY-MM-DD), pos_number, customer_id, limit and offset.
// GET /api/v1/sales
func (h *SaleHandler) ListSales(c *fiber.Ctx) error {
	tenantID, ok, err := tenantScope(c)
	if !ok {
		return err
	}

	filter := model.SaleFilter{
		Limit:  queryInt(c, "limit", 50),
		Offset: queryInt(c, "offset", 0),
	}
	if from := c.Query("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid from date, use YYYY-MM-DD"})
		}
		filter.From = &t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid to date, use YYYY-MM-DD"})
		}
		end := t.AddDate(0, 0, 1)
		filter.To = &end
	}
	if pos := queryInt(c, "pos_number", 0); pos > 0 {
		filter.POSNumber = &pos
	}
	if cid := c.Query("customer_id"); cid != "" {
		id, err := uuid.Parse(cid)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid customer_id"})
		}
		filter.CustomerID = &id
	}

	sales, total, err := h.service.ListSales(c.UserContext(), tenantID, filter)
	if err != nil {
		return serverError(c, "Failed to fetch sales")
	}
	return c.JSON(fiber.Map{"data": sales, "total": total, "limit": filter.Limit, "offset": filter.Offset})
}

// GET /api/v1/sales/:id
func (h *SaleHandler) GetSale(c *fiber.Ctx) error {
	tenantID, ok, err := tenantScope(c)
	if !ok {
		return err
	}
	id, ok, err := pathUUID(c, "id")
	if !ok {
		return err
	}

	sale, err := h.service.GetSale(c.UserContext(), tenantID, id)
	if err != nil {
		if errors.Is(err, service.ErrSaleNotFound) {
			return notFound(c, err)
		}
		return serverError(c, "Failed to fetch sale")
	}
	return c.JSON(fiber.Map{"data": sale})
}
