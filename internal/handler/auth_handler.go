package handler

import (
	"errors"
	"time"

	"pos-backoffice/internal/service"

	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService  service.AuthService
	gate         service.GateService
	pollInterval time.Duration
}

func NewAuthHandler(authService service.AuthService, gate service.GateService, pollInterval time.Duration) *AuthHandler {
	return &AuthHandler{authService: authService, gate: gate, pollInterval: pollInterval}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ResetPasswordRequest represents the reset password request body
type ResetPasswordRequest struct {
	Email       string `json:"email"`
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// Login handles user authentication
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	if req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Email and password are required"})
	}

	response, err := h.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(response)
}

// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.authService.Logout(c.UserContext(), principal(c).UserID); err != nil {
		return serverError(c, "Failed to sign out")
	}
	return c.JSON(fiber.Map{"message": "Signed out"})
}

// ResetPassword handles password change
// POST /api/v1/auth/reset-password
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	if req.Email == "" || req.OldPassword == "" || req.NewPassword == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Email, old_password, and new_password are required"})
	}

	if err := h.authService.ChangePassword(c.UserContext(), req.Email, req.OldPassword, req.NewPassword); err != nil {
		return badRequest(c, err)
	}
	return c.JSON(fiber.Map{"message": "Password updated successfully"})
}

// POST /api/v1/auth/heartbeat
func (h *AuthHandler) Heartbeat(c *fiber.Ctx) error {
	if err := h.authService.Heartbeat(c.UserContext(), principal(c)); err != nil {
		return serverError(c, "Failed to update heartbeat")
	}
	return c.JSON(fiber.Map{"message": "Heartbeat received", "status": "online"})
}

// ValidateTokenRequest represents the validate token request body
type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// ValidateToken handles JWT token validation
// POST /api/v1/auth/validate-token
func (h *AuthHandler) ValidateToken(c *fiber.Ctx) error {
	var req ValidateTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	if req.Token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Token is required"})
	}

	response, err := h.authService.ValidateToken(c.UserContext(), req.Token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(response)
}

// SessionStatus is polled by open sessions to re-check the suspension gate.
// It stays reachable while the tenant is suspended.
// GET /api/v1/session/status
func (h *AuthHandler) SessionStatus(c *fiber.Ctx) error {
	decision, err := h.gate.Evaluate(c.UserContext(), principal(c))
	if err != nil {
		if errors.Is(err, service.ErrTenantNotFound) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "User is not assigned to a tenant"})
		}
		return serverError(c, "Failed to verify tenant status")
	}
	return c.JSON(fiber.Map{
		"allowed":               decision.Allowed,
		"suspended":             decision.Suspended,
		"tenant_name":           decision.TenantName,
		"balance":               decision.Balance,
		"poll_interval_seconds": int(h.pollInterval.Seconds()),
	})
}
