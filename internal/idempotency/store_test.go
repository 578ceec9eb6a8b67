package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, time.Hour), mr
}

func TestReserveCompleteReplay(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)

	saleID, reserved, err := store.Reserve(ctx, "t1", "k1")
	require.NoError(t, err)
	assert.True(t, reserved)
	assert.Empty(t, saleID)

	_, _, err = store.Reserve(ctx, "t1", "k1")
	assert.ErrorIs(t, err, ErrInFlight)

	require.NoError(t, store.Complete(ctx, "t1", "k1", "sale-42"))

	saleID, reserved, err = store.Reserve(ctx, "t1", "k1")
	require.NoError(t, err)
	assert.False(t, reserved)
	assert.Equal(t, "sale-42", saleID)
}

func TestKeysAreTenantScoped(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)

	_, reserved, err := store.Reserve(ctx, "t1", "shared")
	require.NoError(t, err)
	assert.True(t, reserved)

	_, reserved, err = store.Reserve(ctx, "t2", "shared")
	require.NoError(t, err)
	assert.True(t, reserved)
}

func TestReleaseAllowsRetry(t *testing.T) {
	ctx := context.Background()
	store, mr := newStore(t)

	_, _, err := store.Reserve(ctx, "t1", "k1")
	require.NoError(t, err)
	assert.True(t, mr.Exists(redisKey("t1", "k1")))

	require.NoError(t, store.Release(ctx, "t1", "k1"))
	assert.False(t, mr.Exists(redisKey("t1", "k1")))

	_, reserved, err := store.Reserve(ctx, "t1", "k1")
	require.NoError(t, err)
	assert.True(t, reserved)
}

func TestAbandonedReservationExpiresQuickly(t *testing.T) {
	ctx := context.Background()
	store, mr := newStore(t)

	_, reserved, err := store.Reserve(ctx, "t1", "crashed")
	require.NoError(t, err)
	require.True(t, reserved)

	mr.FastForward(PendingTTL + time.Second)

	_, reserved, err = store.Reserve(ctx, "t1", "crashed")
	require.NoError(t, err)
	assert.True(t, reserved)
}

func TestCompletedKeyOutlivesPendingWindow(t *testing.T) {
	ctx := context.Background()
	store, mr := newStore(t)

	_, reserved, err := store.Reserve(ctx, "t1", "k1")
	require.NoError(t, err)
	require.True(t, reserved)
	require.NoError(t, store.Complete(ctx, "t1", "k1", "sale-7"))

	mr.FastForward(PendingTTL + time.Minute)

	saleID, reserved, err := store.Reserve(ctx, "t1", "k1")
	require.NoError(t, err)
	assert.False(t, reserved)
	assert.Equal(t, "sale-7", saleID)

	mr.FastForward(time.Hour)
	_, reserved, err = store.Reserve(ctx, "t1", "k1")
	require.NoError(t, err)
	assert.True(t, reserved)
}
