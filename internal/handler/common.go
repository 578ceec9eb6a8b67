package handler

import (
	"strconv"

	"pos-backoffice/internal/middleware"
	"pos-backoffice/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func principal(c *fiber.Ctx) *service.Principal {
	return middleware.GetPrincipal(c)
}

// tenantScope resolves the tenant of the request or writes a 400.
func tenantScope(c *fiber.Ctx) (uuid.UUID, bool, error) {
	id, err := middleware.TenantID(c)
	if err != nil {
		return uuid.Nil, false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return id, true, nil
}

func pathUUID(c *fiber.Ctx, name string) (uuid.UUID, bool, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid " + name})
	}
	return id, true, nil
}

func queryInt(c *fiber.Ctx, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
}

func notFound(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
}

func serverError(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": msg})
}
