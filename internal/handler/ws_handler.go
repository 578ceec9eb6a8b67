package handler

import (
	"pos-backoffice/internal/middleware"
	"pos-backoffice/internal/model"
	"pos-backoffice/internal/service"
	"pos-backoffice/internal/ws"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type WSHandler struct {
	hub  *ws.Hub
	auth middleware.Authenticator
}

func NewWSHandler(hub *ws.Hub, auth middleware.Authenticator) *WSHandler {
	return &WSHandler{hub: hub, auth: auth}
}

// Upgrade authenticates the ?token= query before the websocket handshake.
func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.SendStatus(fiber.StatusUpgradeRequired)
	}
	token := c.Query("token")
	if token == "" {
		token, _ = middleware.BearerToken(c.Get(fiber.HeaderAuthorization))
	}
	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing token"})
	}
	p, err := h.auth.Authenticate(c.UserContext(), token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}
	middleware.SetPrincipal(c, p)
	return c.Next()
}

// Serve registers the connection with the hub and holds it open until the
// client goes away.
func (h *WSHandler) Serve() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		p, _ := c.Locals("principal").(*service.Principal)
		if p == nil {
			c.Close()
			return
		}
		client := &ws.Client{Conn: c, Superadmin: p.Can(model.CapBypassGate)}
		if p.TenantID != nil {
			client.TenantID = p.TenantID.String()
		}

		if !h.hub.Add(client) {
			c.Close()
			return
		}
		defer h.hub.Remove(c)

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	})
}
