package handler

import (
	"errors"

	"pos-backoffice/internal/model"
	"pos-backoffice/internal/service"

	"github.com/gofiber/fiber/v2"
)

type TenantHandler struct {
	service service.TenantService
}

func NewTenantHandler(s service.TenantService) *TenantHandler {
	return &TenantHandler{service: s}
}

// GET /api/v1/admin/tenants
func (h *TenantHandler) ListTenants(c *fiber.Ctx) error {
	tenants, err := h.service.ListTenants(c.UserContext())
	if err != nil {
		return serverError(c, "Failed to fetch tenants")
	}
	return c.JSON(fiber.Map{"data": tenants})
}

// POST /api/v1/admin/tenants
func (h *TenantHandler) CreateTenant(c *fiber.Ctx) error {
	var req service.CreateTenantRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	tenant, admin, err := h.service.CreateTenant(c.UserContext(), &req, principal(c).Actor())
	if err != nil {
		if errors.Is(err, service.ErrEmailExists) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}
		return badRequest(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Tenant created",
		"data":    tenant,
		"admin":   admin.ToResponse(),
	})
}

type tenantStatusRequest struct {
	IsActive *bool `json:"is_active"`
}

// PUT /api/v1/admin/tenants/:id/status
func (h *TenantHandler) SetStatus(c *fiber.Ctx) error {
	id, ok, err := pathUUID(c, "id")
	if !ok {
		return err
	}
	var req tenantStatusRequest
	if err := c.BodyParser(&req); err != nil || req.IsActive == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "is_active is required"})
	}

	tenant, err := h.service.SetActive(c.UserContext(), id, *req.IsActive, principal(c).Actor())
	if err != nil {
		if errors.Is(err, service.ErrTenantNotFound) {
			return notFound(c, err)
		}
		return serverError(c, "Failed to update tenant status")
	}
	return c.JSON(fiber.Map{"message": "Tenant status updated", "data": tenant})
}

// PUT /api/v1/admin/tenants/:id/settings
func (h *TenantHandler) UpdateSettings(c *fiber.Ctx) error {
	id, ok, err := pathUUID(c, "id")
	if !ok {
		return err
	}
	var settings model.TenantSettings
	if err := c.BodyParser(&settings); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	tenant, err := h.service.UpdateSettings(c.UserContext(), id, settings, principal(c).Actor())
	if err != nil {
		if errors.Is(err, service.ErrTenantNotFound) {
			return notFound(c, err)
		}
		return serverError(c, "Failed to update settings")
	}
	return c.JSON(fiber.Map{"message": "Settings updated", "data": tenant})
}
