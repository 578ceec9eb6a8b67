package middleware

import (
	"strconv"
	"time"

	"pos-backoffice/internal/metrics"
	"pos-backoffice/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestLogger writes one log entry per request and records HTTP metrics.
func RequestLogger(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		requestID := c.Get(fiber.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(fiber.HeaderXRequestID, requestID)

		chainErr := c.Next()
		if chainErr != nil {
			// let the app error handler pick the status before it is logged
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		latency := time.Since(start)
		route := c.Route().Path

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("ip", c.IP()),
		}
		if tenantID, ok := c.Locals("tenant_id").(string); ok {
			fields = append(fields, zap.String("tenant_id", tenantID))
		}
		if auth := c.Get(fiber.HeaderAuthorization); auth != "" {
			fields = append(fields, zap.String("authorization", logger.MaskToken(auth)))
		}

		switch {
		case status >= fiber.StatusInternalServerError:
			log.Error("request", fields...)
		case status >= fiber.StatusBadRequest:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}

		metrics.ObserveHTTPRequest(c.Method(), route, strconv.Itoa(status), latency)
		return nil
	}
}
