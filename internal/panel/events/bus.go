package events

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gookit/event"
)

// Bus wraps the gookit event manager with typed publish helpers so callers
// never build raw event payload maps themselves.
type Bus struct {
	manager *event.Manager
	logger  *slog.Logger
}

// NewBus creates the panel's event bus.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		manager: event.NewManager("panel"),
		logger:  logger,
	}
}

// Subscribe registers a listener for one event type. Listeners receive the
// typed payload under the "payload" key.
func (b *Bus) Subscribe(eventType string, fn func(e event.Event) error) {
	b.manager.On(eventType, event.ListenerFunc(fn))
}

// Close shuts the bus down and drops all listeners.
func (b *Bus) Close() error {
	return b.manager.Close()
}

func (b *Bus) fire(eventType string, payload any) error {
	err, _ := b.manager.Fire(eventType, event.M{"payload": payload})
	if err != nil {
		b.logger.Error("failed to publish event",
			slog.String("type", eventType),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}
	return nil
}

// PublishNodeRegistered publishes a node registered event
func (b *Bus) PublishNodeRegistered(nodeID, name, fqdn string) error {
	b.logger.Debug("publishing node registered event",
		slog.String("node_id", nodeID),
		slog.String("name", name))

	return b.fire(EventNodeRegistered, NodeRegisteredEvent{
		NodeID:    nodeID,
		Name:      name,
		FQDN:      fqdn,
		Timestamp: time.Now(),
	})
}

// PublishNodeStatusChanged publishes a node health transition event
func (b *Bus) PublishNodeStatusChanged(nodeID, oldStatus, newStatus string) error {
	b.logger.Debug("publishing node status changed event",
		slog.String("node_id", nodeID),
		slog.String("old_status", oldStatus),
		slog.String("new_status", newStatus))

	return b.fire(EventNodeStatusChanged, NodeStatusChangedEvent{
		NodeID:    nodeID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		Timestamp: time.Now(),
	})
}

// PublishNodeDeleted publishes a node deleted event
func (b *Bus) PublishNodeDeleted(nodeID string) error {
	return b.fire(EventNodeDeleted, NodeDeletedEvent{
		NodeID:    nodeID,
		Timestamp: time.Now(),
	})
}

// PublishServerProvisioned publishes a server provisioned event
func (b *Bus) PublishServerProvisioned(serverID, serverUUID, nodeID string, duration time.Duration) error {
	b.logger.Info("publishing server provisioned event",
		slog.String("server_id", serverID),
		slog.String("node_id", nodeID),
		slog.Duration("duration", duration))

	return b.fire(EventServerProvisioned, ServerProvisionedEvent{
		ServerID:   serverID,
		ServerUUID: serverUUID,
		NodeID:     nodeID,
		Duration:   duration,
		Timestamp:  time.Now(),
	})
}

// PublishServerProvisionFailed publishes a server provision failure event
func (b *Bus) PublishServerProvisionFailed(serverID, nodeID string, cause error, retryable bool) error {
	return b.fire(EventServerProvisionFail, ServerProvisionFailedEvent{
		ServerID:  serverID,
		NodeID:    nodeID,
		Error:     cause.Error(),
		Retryable: retryable,
		Timestamp: time.Now(),
	})
}

// PublishServerStatusChanged publishes a server power-state transition event
func (b *Bus) PublishServerStatusChanged(serverID, nodeID, oldStatus, newStatus string) error {
	b.logger.Debug("publishing server status changed event",
		slog.String("server_id", serverID),
		slog.String("old_status", oldStatus),
		slog.String("new_status", newStatus))

	return b.fire(EventServerStatusChanged, ServerStatusChangedEvent{
		ServerID:  serverID,
		NodeID:    nodeID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		Timestamp: time.Now(),
	})
}

// PublishServerDeleted publishes a server deleted event
func (b *Bus) PublishServerDeleted(serverID, nodeID string) error {
	return b.fire(EventServerDeleted, ServerDeletedEvent{
		ServerID:  serverID,
		NodeID:    nodeID,
		Timestamp: time.Now(),
	})
}
