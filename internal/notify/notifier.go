package notify

import (
	"time"

	"pos-backoffice/internal/ws"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Notifier delivers billing and tenant lifecycle notifications. Delivery is
// best-effort: implementations log failures and never return them.
type Notifier interface {
	PaymentRegistered(tenantID, tenantName string, amount decimal.Decimal, paidUntil time.Time)
	OverdueDebt(tenantID, tenantName string, balance decimal.Decimal, oldestDebt time.Time)
	TenantStatusChanged(tenantID, tenantName string, active bool)
}

// HubNotifier logs every notification and pushes it over the websocket hub
// to the tenant's sessions and to superadmins.
type HubNotifier struct {
	hub    *ws.Hub
	logger *zap.Logger
}

func NewHubNotifier(hub *ws.Hub, logger *zap.Logger) *HubNotifier {
	return &HubNotifier{hub: hub, logger: logger}
}

// NewLogNotifier only logs. Used by processes without websocket clients.
func NewLogNotifier(logger *zap.Logger) *HubNotifier {
	return &HubNotifier{logger: logger}
}

func (n *HubNotifier) publish(tenantID string, payload map[string]interface{}) {
	if n.hub == nil {
		return
	}
	n.hub.Publish(tenantID, payload)
}

func (n *HubNotifier) PaymentRegistered(tenantID, tenantName string, amount decimal.Decimal, paidUntil time.Time) {
	n.logger.Info("payment registered",
		zap.String("tenant_id", tenantID),
		zap.String("tenant_name", tenantName),
		zap.String("amount", amount.StringFixed(2)),
		zap.Time("paid_until", paidUntil),
	)
	n.publish(tenantID, map[string]interface{}{
		"type":        "payment_registered",
		"tenant_id":   tenantID,
		"tenant_name": tenantName,
		"amount":      amount,
		"paid_until":  paidUntil,
	})
}

func (n *HubNotifier) OverdueDebt(tenantID, tenantName string, balance decimal.Decimal, oldestDebt time.Time) {
	n.logger.Warn("overdue debt",
		zap.String("tenant_id", tenantID),
		zap.String("tenant_name", tenantName),
		zap.String("balance", balance.StringFixed(2)),
		zap.Time("oldest_debt", oldestDebt),
	)
	n.publish(tenantID, map[string]interface{}{
		"type":        "overdue_debt",
		"tenant_id":   tenantID,
		"tenant_name": tenantName,
		"balance":     balance,
		"oldest_debt": oldestDebt,
	})
}

func (n *HubNotifier) TenantStatusChanged(tenantID, tenantName string, active bool) {
	n.logger.Info("tenant status changed",
		zap.String("tenant_id", tenantID),
		zap.String("tenant_name", tenantName),
		zap.Bool("is_active", active),
	)
	n.publish(tenantID, map[string]interface{}{
		"type":        "tenant_status",
		"tenant_id":   tenantID,
		"tenant_name": tenantName,
		"is_active":   active,
	})
}
