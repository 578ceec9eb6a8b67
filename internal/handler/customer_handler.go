package handler

import (
	"errors"

	"pos-backoffice/internal/service"

	"github.com/gofiber/fiber/v2"
)

type CustomerHandler struct {
	service service.CustomerService
}

func NewCustomerHandler(s service.CustomerService) *CustomerHandler {
	return &CustomerHandler{service: s}
}

func customerError(c *fiber.Ctx, err error) error {
	if errors.Is(err, service.ErrCustomerNotFound) {
		return notFound(c, err)
	}
	return badRequest(c, err)
}

// GET /api/v1/customers?search=
func (h *CustomerHandler) ListCustomers(c *fiber.Ctx) error {
	tenantID, ok, err := tenantScope(c)
	if !ok {
		return err
	}
	customers, err := h.service.ListCustomers(c.UserContext(), tenantID, c.Query("search"))
	if err != nil {
		return serverError(c, "Failed to fetch customers")
	}
	return c.JSON(fiber.Map{"data": customers})
}

// GET /api/v1/customers/ranking?limit=
func (h *CustomerHandler) Ranking(c *fiber.Ctx) error {
	tenantID, ok, err := tenantScope(c)
	if !ok {
		return err
	}
	ranking, err := h.service.Ranking(c.UserContext(), tenantID, queryInt(c, "limit", 0))
	if err != nil {
		return serverError(c, "Failed to fetch customer ranking")
	}
	return c.JSON(fiber.Map{"data": ranking})
}

// POST /api/v1/customers
func (h *CustomerHandler) CreateCustomer(c *fiber.Ctx) error {
	tenantID, ok, err := tenantScope(c)
	if !ok {
		return err
	}
	var req service.CustomerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	customer, err := h.service.CreateCustomer(c.UserContext(), principal(c), tenantID, &req)
	if err != nil {
		return customerError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Customer created", "data": customer})
}

// PUT /api/v1/customers/:id
func (h *CustomerHandler) UpdateCustomer(c *fiber.Ctx) error {
	tenantID, ok, err := tenantScope(c)
	if !ok {
		return err
	}
	id, ok, err := pathUUID(c, "id")
	if !ok {
		return err
	}
	var req service.CustomerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	customer, err := h.service.UpdateCustomer(c.UserContext(), principal(c), tenantID, id, &req)
	if err != nil {
		return customerError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Customer updated", "data": customer})
}

// DELETE /api/v1/customers/:id
func (h *CustomerHandler) DeleteCustomer(c *fiber.Ctx) error {
	tenantID, ok, err := tenantScope(c)
	if !ok {
		return err
	}
	id, ok, err := pathUUID(c, "id")
	if !ok {
		return err
	}
	if err := h.service.DeleteCustomer(c.UserContext(), principal(c), tenantID, id); err != nil {
		return customerError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Customer deleted"})
}
