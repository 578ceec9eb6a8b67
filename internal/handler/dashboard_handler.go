package handler

import (
	"pos-backoffice/internal/service"

	"github.com/gofiber/fiber/v2"
)

type DashboardHandler struct {
	service service.DashboardService
}

func NewDashboardHandler(s service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: s}
}

// GetSalesMovement returns daily sales and expenses for charts
// Query params: days (default 7)
func (h *DashboardHandler) GetSalesMovement(c *fiber.Ctx) error {
	tenantID, ok, err := tenantScope(c)
	if !ok {
		return err
	}
	days := queryInt(c, "days", 7)
	if days <= 0 {
		days = 7
	}

	data, err := h.service.GetSalesMovement(c.UserContext(), tenantID, days)
	if err != nil {
		return serverError(c, "Failed to fetch sales movement")
	}

	return c.JSON(fiber.Map{
		"period": len(data),
		"data":   data,
	})
}

// GetSummary returns overview statistics
func (h *DashboardHandler) GetSummary(c *fiber.Ctx) error {
	tenantID, ok, err := tenantScope(c)
	if !ok {
		return err
	}
	stats, err := h.service.GetSummary(c.UserContext(), tenantID)
	if err != nil {
		return serverError(c, "Failed to fetch dashboard stats")
	}
	return c.JSON(stats)
}
