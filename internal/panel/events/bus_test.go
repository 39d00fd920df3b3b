package events

import (
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/gookit/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	bus := NewBus(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	t.Cleanup(func() {
		_ = bus.Close()
	})
	return bus
}

func TestBus_ServerStatusChanged(t *testing.T) {
	bus := newTestBus(t)

	var received ServerStatusChangedEvent
	bus.Subscribe(EventServerStatusChanged, func(e event.Event) error {
		payload, ok := e.Get("payload").(ServerStatusChangedEvent)
		require.True(t, ok, "expected typed payload")
		received = payload
		return nil
	})

	err := bus.PublishServerStatusChanged("srv-1", "node-1", "offline", "online")
	require.NoError(t, err)

	assert.Equal(t, "srv-1", received.ServerID)
	assert.Equal(t, "node-1", received.NodeID)
	assert.Equal(t, "offline", received.OldStatus)
	assert.Equal(t, "online", received.NewStatus)
	assert.WithinDuration(t, time.Now(), received.Timestamp, time.Second)
}

func TestBus_NodeStatusChanged(t *testing.T) {
	bus := newTestBus(t)

	calls := 0
	bus.Subscribe(EventNodeStatusChanged, func(e event.Event) error {
		calls++
		payload := e.Get("payload").(NodeStatusChangedEvent)
		assert.Equal(t, "node-1", payload.NodeID)
		return nil
	})

	require.NoError(t, bus.PublishNodeStatusChanged("node-1", "unknown", "online"))
	require.NoError(t, bus.PublishNodeStatusChanged("node-1", "online", "offline"))
	assert.Equal(t, 2, calls)
}

func TestBus_ListenerErrorPropagates(t *testing.T) {
	bus := newTestBus(t)

	bus.Subscribe(EventServerProvisioned, func(e event.Event) error {
		return fmt.Errorf("handler failed")
	})

	err := bus.PublishServerProvisioned("srv-1", "uuid-1", "node-1", time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler failed")
}

func TestBus_ProvisionFailedEventCarriesCause(t *testing.T) {
	bus := newTestBus(t)

	var received ServerProvisionFailedEvent
	bus.Subscribe(EventServerProvisionFail, func(e event.Event) error {
		received = e.Get("payload").(ServerProvisionFailedEvent)
		return nil
	})

	require.NoError(t, bus.PublishServerProvisionFailed("srv-1", "node-1", fmt.Errorf("daemon unreachable at node1:8080"), true))
	assert.Contains(t, received.Error, "daemon unreachable")
	assert.True(t, received.Retryable)
}
