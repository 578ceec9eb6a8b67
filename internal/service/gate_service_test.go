package service

import (
	"context"
	"errors"
	"testing"

	"pos-backoffice/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newGate(t *testing.T) (GateService, *billingFixture) {
	t.Helper()
	bf := newBillingFixture(t)
	return NewGateService(bf.tenants, bf.svc, zap.NewNop()), bf
}

func principalFor(role string, tenantID *uuid.UUID) *Principal {
	return &Principal{UserID: uuid.New(), TenantID: tenantID, Email: role + "@example.com", Role: role}
}

func TestGate_ActiveTenantAllowed(t *testing.T) {
	gate, bf := newGate(t)

	decision, err := gate.Evaluate(context.Background(), principalFor(model.RoleAdmin, &bf.tenant.ID))
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.False(t, decision.Suspended)
	assert.Equal(t, bf.tenant.Name, decision.TenantName)
}

func TestGate_SuspendedTenantShowsBalance(t *testing.T) {
	gate, bf := newGate(t)
	bf.register(t, model.BillingDebt, "1000", 0)
	bf.register(t, model.BillingPayment, "500", 0)
	bf.tenant.IsActive = false

	for _, role := range []string{model.RoleAdmin, model.RolePOS} {
		decision, err := gate.Evaluate(context.Background(), principalFor(role, &bf.tenant.ID))
		require.NoError(t, err)
		assert.False(t, decision.Allowed, role)
		assert.True(t, decision.Suspended, role)
		assert.Equal(t, "Almacen Sur", decision.TenantName)
		assert.Equal(t, "500.00", decision.Balance.StringFixed(2))
	}
}

func TestGate_SuperadminAlwaysBypasses(t *testing.T) {
	gate, bf := newGate(t)
	bf.tenant.IsActive = false
	bf.tenants.err = errors.New("database is down")

	decision, err := gate.Evaluate(context.Background(), principalFor(model.RoleSuperadmin, nil))
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.True(t, decision.Bypassed)
	assert.False(t, decision.Suspended)

	decision, err = gate.Evaluate(context.Background(), principalFor(model.RoleSuperadmin, &bf.tenant.ID))
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestGate_TenantStateReadFreshEachCall(t *testing.T) {
	gate, bf := newGate(t)
	p := principalFor(model.RoleAdmin, &bf.tenant.ID)

	decision, err := gate.Evaluate(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	bf.tenant.IsActive = false
	decision, err = gate.Evaluate(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, decision.Suspended)
}

func TestGate_BalanceFailureStillSuspends(t *testing.T) {
	gate, bf := newGate(t)
	bf.tenant.IsActive = false
	bf.ledger.readErr = errors.New("timeout")

	decision, err := gate.Evaluate(context.Background(), principalFor(model.RoleAdmin, &bf.tenant.ID))
	require.NoError(t, err)
	assert.True(t, decision.Suspended)
	assert.True(t, decision.Balance.IsZero())
}

func TestGate_UserWithoutTenant(t *testing.T) {
	gate, _ := newGate(t)
	_, err := gate.Evaluate(context.Background(), principalFor(model.RoleAdmin, nil))
	assert.ErrorIs(t, err, ErrTenantNotFound)

	missing := uuid.New()
	_, err = gate.Evaluate(context.Background(), principalFor(model.RolePOS, &missing))
	assert.ErrorIs(t, err, ErrTenantNotFound)
}
