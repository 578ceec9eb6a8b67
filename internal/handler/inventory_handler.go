package handler

import (
	"errors"

	"pos-backoffice/internal/service"

	"github.com/gofiber/fiber/v2"
)

type InventoryHandler struct {
	service service.InventoryService
}

func NewInventoryHandler(s service.InventoryService) *InventoryHandler {
	return &InventoryHandler{service: s}
}

func productError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrProductNotFound):
		return notFound(c, err)
	case errors.Is(err, service.ErrSKUExists):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	return badRequest(c, err)
}

// POST /api/v1/products
func (h *InventoryHandler) CreateProduct(c *fiber.Ctx) error {
	tenantID, ok, err := tenantScope(c)
	if !ok {
		return err
	}
	var req service.ProductRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	product, err := h.service.CreateProduct(c.UserContext(), principal(c), tenantID, &req)
	if err != nil {
		return productError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Product created", "data": product})
}

// PUT /api/v1/products/:id
func (h *InventoryHandler) UpdateProduct(c *fiber.Ctx) error {
	tenantID, ok, err := tenantScope(c)
	if !ok {
		return err
	}
	productID, ok, err := pathUUID(c, "id")
	if !ok {
		return err
	}
	var req service.ProductRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	updated, err := h.service.UpdateProduct(c.UserContext(), principal(c), tenantID, productID, &req)
	if err != nil {
		return productError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product updated", "data": updated})
}

// RecordPurchase adds received units to a product's stock.
// POST /api/v1/products/:id/purchases
func (h *InventoryHandler) RecordPurchase(c *fiber.Ctx) error {
	tenantID, ok, err := tenantScope(c)
	if !ok {
		return err
	}
	productID, ok, err := pathUUID(c, "id")
	if !ok {
		return err
	}
	var req service.PurchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	product, err := h.service.RecordPurchase(c.UserContext(), principal(c), tenantID, productID, &req)
	if err != nil {
		return productError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Purchase recorded", "data": product})
}

// GET /api/v1/products
func (h *InventoryHandler) GetProducts(c *fiber.Ctx) error {
	tenantID, ok, err := tenantScope(c)
	if !ok {
		return err
	}
	products, err := h.service.GetAllProducts(c.UserContext(), tenantID)
	if err != nil {
		return serverError(c, "Internal Server Error")
	}
	return c.JSON(products)
}

// GET /api/v1/products/:id
func (h *InventoryHandler) GetProduct(c *fiber.Ctx) error {
	tenantID, ok, err := tenantScope(c)
	if !ok {
		return err
	}
	productID, ok, err := pathUUID(c, "id")
	if !ok {
		return err
	}
	product, err := h.service.GetProduct(c.UserContext(), tenantID, productID)
	if err != nil {
		return productError(c, err)
	}
	return c.JSON(product)
}
