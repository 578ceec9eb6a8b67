package ws

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingConn struct {
	mu     sync.Mutex
	msgs   [][]byte
	closed bool
}

func (c *recordingConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, data)
	return nil
}

func (c *recordingConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *recordingConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *recordingConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

func TestHubRoutesByTenant(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(zap.NewNop())
	go hub.Run(ctx)

	tenantA := &recordingConn{}
	tenantB := &recordingConn{}
	admin := &recordingConn{}
	require.True(t, hub.Add(&Client{Conn: tenantA, TenantID: "a"}))
	require.True(t, hub.Add(&Client{Conn: tenantB, TenantID: "b"}))
	require.True(t, hub.Add(&Client{Conn: admin, Superadmin: true}))

	hub.Publish("a", map[string]string{"type": "sale_committed"})
	hub.Publish("", map[string]string{"type": "overdue_debt"})

	assert.Eventually(t, func() bool { return admin.count() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, tenantA.count())
	assert.Equal(t, 0, tenantB.count())
}

func TestHubUnregisterClosesConn(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(zap.NewNop())
	go hub.Run(ctx)

	conn := &recordingConn{}
	require.True(t, hub.Add(&Client{Conn: conn, TenantID: "a"}))
	hub.Remove(conn)

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, conn.isClosed, time.Second, 5*time.Millisecond)
}

func TestHubStopDoesNotStrandRemoveOrAdd(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	hub := NewHub(zap.NewNop())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	conn := &recordingConn{}
	require.True(t, hub.Add(&Client{Conn: conn, TenantID: "a"}))

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	assert.Eventually(t, conn.isClosed, time.Second, 5*time.Millisecond)

	removed := make(chan struct{})
	go func() {
		hub.Remove(conn)
		close(removed)
	}()
	select {
	case <-removed:
	case <-time.After(time.Second):
		t.Fatal("Remove blocked after the hub stopped")
	}

	assert.False(t, hub.Add(&Client{Conn: &recordingConn{}, TenantID: "a"}))
}

// blockingConn stalls every write until release is closed.
type blockingConn struct {
	recordingConn
	release chan struct{}
}

func (c *blockingConn) WriteMessage(mt int, data []byte) error {
	<-c.release
	return c.recordingConn.WriteMessage(mt, data)
}

func TestHubSlowClientDoesNotStallOthers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(zap.NewNop())
	go hub.Run(ctx)

	slow := &blockingConn{release: make(chan struct{})}
	defer close(slow.release)
	fast := &recordingConn{}
	require.True(t, hub.Add(&Client{Conn: slow, TenantID: "a"}))
	require.True(t, hub.Add(&Client{Conn: fast, TenantID: "a"}))

	events := clientSendBuffer + 2
	for i := 0; i < events; i++ {
		hub.Publish("a", map[string]int{"seq": i})
		want := i + 1
		require.Eventually(t, func() bool { return fast.count() == want }, time.Second, 5*time.Millisecond)
	}

	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
}
