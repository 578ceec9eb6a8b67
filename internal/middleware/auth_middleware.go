package middleware

import (
	"context"
	"errors"
	"strings"

	"pos-backoffice/internal/model"
	"pos-backoffice/internal/service"
	"pos-backoffice/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const principalKey = "principal"

// Authenticator resolves a bearer token to the calling principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*service.Principal, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", jwt.ErrMissingToken
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", errors.New("invalid authorization format. Use: Bearer <token>")
	}
	return parts[1], nil
}

// RequireAuth validates the bearer token against the stored user and puts
// the principal in the request context.
func RequireAuth(auth Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := BearerToken(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			if errors.Is(err, jwt.ErrMissingToken) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing authorization token"})
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid authorization format. Use: Bearer <token>"})
		}

		principal, err := auth.Authenticate(c.UserContext(), token)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrSessionReplaced):
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Session expired (logged in on another device)"})
			case errors.Is(err, service.ErrUserInactive):
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User account is inactive"})
			case errors.Is(err, service.ErrUserNotFound):
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
			default:
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
			}
		}

		c.Locals(principalKey, principal)
		c.Locals("user_id", principal.UserID.String())
		if principal.TenantID != nil {
			c.Locals("tenant_id", principal.TenantID.String())
		}
		return c.Next()
	}
}

// SetPrincipal stores p for GetPrincipal. Used by routes that authenticate
// without the Authorization header.
func SetPrincipal(c *fiber.Ctx, p *service.Principal) {
	c.Locals(principalKey, p)
}

// GetPrincipal returns the principal set by RequireAuth, or nil.
func GetPrincipal(c *fiber.Ctx) *service.Principal {
	p, _ := c.Locals(principalKey).(*service.Principal)
	return p
}

// RequireCapability checks the caller's role for capability.
func RequireCapability(capability string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := GetPrincipal(c)
		if p == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
		}
		if !p.Can(capability) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Forbidden: requires '" + capability + "' capability",
			})
		}
		return c.Next()
	}
}

// RequireAnyCapability passes when the caller holds at least one capability.
func RequireAnyCapability(capabilities ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := GetPrincipal(c)
		if p == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
		}
		for _, capability := range capabilities {
			if p.Can(capability) {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Forbidden: requires one of " + strings.Join(capabilities, ", ") + " capabilities",
		})
	}
}

// TenantID is the tenant a request operates on: the caller's own tenant, or
// for principals exempt from tenant scoping the tenant_id query parameter.
func TenantID(c *fiber.Ctx) (uuid.UUID, error) {
	p := GetPrincipal(c)
	if p == nil {
		return uuid.Nil, errors.New("unauthorized")
	}
	if p.TenantID != nil {
		return *p.TenantID, nil
	}
	if q := c.Query("tenant_id"); q != "" && p.Can(model.CapBypassGate) {
		return uuid.Parse(q)
	}
	return uuid.Nil, errors.New("tenant_id is required")
}
