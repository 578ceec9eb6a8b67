package notify

import (
	"encoding/json"
	"testing"
	"time"

	"pos-backoffice/internal/ws"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestHubNotifierPublishesToTenant(t *testing.T) {
	hub := ws.NewHub(zap.NewNop())
	n := NewHubNotifier(hub, zap.NewNop())

	paidUntil := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	n.PaymentRegistered("tenant-1", "Kiosco", decimal.NewFromInt(100), paidUntil)

	select {
	case msg := <-hub.Broadcast:
		assert.Equal(t, "tenant-1", msg.TenantID)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(msg.Payload, &body))
		assert.Equal(t, "payment_registered", body["type"])
		assert.Equal(t, "Kiosco", body["tenant_name"])
	default:
		t.Fatal("expected a broadcast message")
	}
}

func TestLogNotifierOnlyLogs(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewLogNotifier(zap.New(core))

	n.OverdueDebt("tenant-1", "Kiosco", decimal.NewFromInt(50), time.Now())
	n.TenantStatusChanged("tenant-1", "Kiosco", false)

	assert.Equal(t, 1, logs.FilterMessage("overdue debt").Len())
	assert.Equal(t, 1, logs.FilterMessage("tenant status changed").Len())
}
