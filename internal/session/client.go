package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"pos-backoffice/internal/service"

	"github.com/gofiber/fiber/v2"
)

// HTTPSubmitter posts sales to the back office API.
type HTTPSubmitter struct {
	BaseURL string
	Token   func() string
	Timeout time.Duration
}

func NewHTTPSubmitter(baseURL string, token func() string) *HTTPSubmitter {
	return &HTTPSubmitter{BaseURL: strings.TrimRight(baseURL, "/"), Token: token, Timeout: 15 * time.Second}
}

// SubmitSale returns nil for a created or replayed sale and a
// *RejectedError for a 4xx answer the same request can never pass.
// Expired sessions, suspended tenants, in-flight keys and throttling are
// retried on a later replay.
func (h *HTTPSubmitter) SubmitSale(ctx context.Context, req *service.SaleRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	agent := fiber.Post(h.BaseURL + "/api/v1/sales")
	agent.JSON(req)
	agent.Set("Idempotency-Key", req.IdempotencyKey)
	if h.Token != nil {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+h.Token())
	}
	if deadline, ok := ctx.Deadline(); ok {
		agent.Timeout(time.Until(deadline))
	} else {
		agent.Timeout(h.Timeout)
	}

	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("submit sale: %w", errs[0])
	}
	return classify(status, body)
}

var retryable = map[int]bool{
	fiber.StatusUnauthorized:    true,
	fiber.StatusPaymentRequired: true,
	fiber.StatusRequestTimeout:  true,
	fiber.StatusConflict:        true,
	fiber.StatusTooManyRequests: true,
}

func classify(status int, body []byte) error {
	switch {
	case status == fiber.StatusOK || status == fiber.StatusCreated:
		return nil
	case retryable[status]:
		return fmt.Errorf("submit sale: server answered %d", status)
	case status >= 400 && status < 500:
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &payload)
		return &RejectedError{Status: status, Message: payload.Error}
	default:
		return fmt.Errorf("submit sale: server answered %d", status)
	}
}
