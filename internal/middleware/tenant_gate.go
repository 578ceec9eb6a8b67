package middleware

import (
	"errors"

	"pos-backoffice/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const gateDecisionKey = "gate_decision"

// RequireActiveTenant blocks every request of a suspended tenant with 402 and
// the data the suspension screen needs. It must run after RequireAuth.
func RequireActiveTenant(gate service.GateService, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := GetPrincipal(c)
		if p == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
		}

		decision, err := gate.Evaluate(c.UserContext(), p)
		if err != nil {
			if errors.Is(err, service.ErrTenantNotFound) {
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "User is not assigned to a tenant"})
			}
			logger.Error("tenant gate evaluation failed", zap.String("user_id", p.UserID.String()), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to verify tenant status"})
		}

		c.Locals(gateDecisionKey, decision)
		if decision.Suspended {
			return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
				"error":       "Account suspended. Contact support to restore access.",
				"suspended":   true,
				"tenant_name": decision.TenantName,
				"balance":     decision.Balance,
			})
		}
		return c.Next()
	}
}
