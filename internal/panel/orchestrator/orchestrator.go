package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/blockpanel/blockpanel/internal/panel/daemon"
	"github.com/blockpanel/blockpanel/internal/panel/db"
	"github.com/blockpanel/blockpanel/internal/panel/events"
	"github.com/blockpanel/blockpanel/internal/panel/node"
	"github.com/blockpanel/blockpanel/internal/panel/server"
	apperrors "github.com/blockpanel/blockpanel/internal/shared/errors"
	"github.com/blockpanel/blockpanel/internal/shared/logger"
)

// OfflineLogMessage is returned in place of console output for a server the
// panel knows to be stopped. No daemon call is made in that case.
const OfflineLogMessage = "Server is offline. Start the server to view console output."

// Orchestrator coordinates panel state with remote node daemons. Every
// mutation follows the same discipline: the daemon acknowledges first, the
// database is written second. Panel state never runs ahead of reality.
type Orchestrator struct {
	store     db.Store
	bus       *events.Bus
	transport *daemon.Transport
	logger    *logger.Logger

	// serverLocks serializes power actions per server so two callers cannot
	// interleave daemon ack and status persistence.
	serverLocks sync.Map

	// breakers holds one circuit breaker per node, keyed by node ID.
	breakers      sync.Map
	breakerConfig CircuitBreakerConfig
}

// New creates an orchestrator.
func New(store db.Store, bus *events.Bus, transport *daemon.Transport, breakerConfig CircuitBreakerConfig, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		store:         store,
		bus:           bus,
		transport:     transport,
		logger:        log.WithComponent("orchestrator"),
		breakerConfig: breakerConfig,
	}
}

func (o *Orchestrator) lockServer(serverID string) func() {
	muAny, _ := o.serverLocks.LoadOrStore(serverID, &sync.Mutex{})
	mu := muAny.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (o *Orchestrator) breakerFor(nodeID string) *CircuitBreaker {
	cbAny, _ := o.breakers.LoadOrStore(nodeID, NewCircuitBreaker(o.breakerConfig))
	return cbAny.(*CircuitBreaker)
}

// PowerAction applies a power signal to a server. The daemon must acknowledge
// before the panel's status record changes; on any transport or daemon error
// the persisted status stays untouched and the error surfaces to the caller.
func (o *Orchestrator) PowerAction(ctx context.Context, serverID string, signal daemon.Signal) error {
	unlock := o.lockServer(serverID)
	defer unlock()

	ctx = logger.WithServerID(ctx, serverID)
	op := o.logger.StartOp(ctx, "server.power", "signal", string(signal))

	srv, err := o.store.GetServer(ctx, serverID)
	if err != nil {
		op.Fail(err, "server lookup failed")
		return err
	}
	n, err := o.store.GetNode(ctx, srv.NodeID)
	if err != nil {
		op.Fail(err, "node lookup failed")
		return err
	}

	client := daemon.NewClient(n.Conn(), o.transport, o.logger)
	if err := client.SetPowerState(ctx, srv.UUID, signal); err != nil {
		op.Fail(err, "daemon rejected power signal")
		return wrapDaemonError(err)
	}

	oldStatus := srv.Status
	if err := srv.UpdateStatus(statusAfterSignal(signal)); err != nil {
		op.Fail(err, "status transition rejected")
		return err
	}
	if err := o.store.UpdateServerStatus(ctx, srv); err != nil {
		op.Fail(err, "status persistence failed after daemon ack")
		return apperrors.NewDatabaseError(apperrors.ErrCodeDatabase, "failed to persist server status", true, err)
	}

	_ = o.bus.PublishServerStatusChanged(srv.ID, srv.NodeID, oldStatus.String(), srv.Status.String())
	op.Complete("power signal applied", "status", srv.Status.String())
	return nil
}

// statusAfterSignal maps an acknowledged power signal onto the panel status.
// Restart lands in Starting and resolves to Online or Offline on the next
// reconciliation, since the daemon restarts asynchronously.
func statusAfterSignal(signal daemon.Signal) server.Status {
	switch signal {
	case daemon.SignalStart:
		return server.StatusOnline
	case daemon.SignalRestart:
		return server.StatusStarting
	default:
		return server.StatusOffline
	}
}

// GetServerLogs returns the server's console output. A server the panel
// records as Offline short-circuits to a fixed message without any daemon
// contact.
func (o *Orchestrator) GetServerLogs(ctx context.Context, serverID string) (string, error) {
	srv, err := o.store.GetServer(ctx, serverID)
	if err != nil {
		return "", err
	}

	if srv.Status == server.StatusOffline {
		return OfflineLogMessage, nil
	}

	n, err := o.store.GetNode(ctx, srv.NodeID)
	if err != nil {
		return "", err
	}

	logs, err := daemon.NewClient(n.Conn(), o.transport, o.logger).GetLogs(ctx, srv.UUID)
	if err != nil {
		return "", wrapDaemonError(err)
	}
	return logs, nil
}

// ReconcileServer asks the daemon for the server's actual process state and
// folds it back into the panel record. This is what resolves the transient
// Starting status.
func (o *Orchestrator) ReconcileServer(ctx context.Context, serverID string) (*server.Server, error) {
	unlock := o.lockServer(serverID)
	defer unlock()

	ctx = logger.WithServerID(ctx, serverID)

	srv, err := o.store.GetServer(ctx, serverID)
	if err != nil {
		return nil, err
	}
	n, err := o.store.GetNode(ctx, srv.NodeID)
	if err != nil {
		return nil, err
	}

	details, err := daemon.NewClient(n.Conn(), o.transport, o.logger).GetServerDetails(ctx, srv.UUID)
	if err != nil {
		return nil, wrapDaemonError(err)
	}

	observed := server.FromDaemonState(details.State)
	if observed == srv.Status {
		return srv, nil
	}

	oldStatus := srv.Status
	if err := srv.UpdateStatus(observed); err != nil {
		return nil, err
	}
	if err := o.store.UpdateServerStatus(ctx, srv); err != nil {
		return nil, apperrors.NewDatabaseError(apperrors.ErrCodeDatabase, "failed to persist reconciled status", true, err)
	}

	o.logger.InfoContext(ctx, "server status reconciled",
		"old_status", oldStatus.String(),
		"new_status", srv.Status.String(),
	)
	_ = o.bus.PublishServerStatusChanged(srv.ID, srv.NodeID, oldStatus.String(), srv.Status.String())
	return srv, nil
}

// ReconcileNode probes a node's daemon and records the observed reachability.
// This is the only code path that writes node status.
func (o *Orchestrator) ReconcileNode(ctx context.Context, nodeID string) (*node.Node, error) {
	ctx = logger.WithNodeID(ctx, nodeID)

	n, err := o.store.GetNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}

	client := daemon.NewClient(n.Conn(), o.transport, o.logger)
	online := false
	probeErr := o.breakerFor(nodeID).Execute(func() error {
		if client.IsOnline(ctx) {
			online = true
			return nil
		}
		return node.NewHealthCheckError(nodeID, "daemon_probe", node.ErrNodeOffline)
	})

	var breakerErr *CircuitBreakerError
	if asErr(probeErr, &breakerErr) {
		// Probe suppressed while the breaker is open; the node keeps its
		// last recorded status.
		o.logger.DebugContext(ctx, "node probe suppressed by circuit breaker",
			"failure_count", breakerErr.FailureCount)
		return n, nil
	}

	oldStatus := n.Status
	now := time.Now()
	if online {
		n.MarkOnline(now)
	} else {
		n.MarkOffline(now)
	}

	if err := o.store.UpdateNodeStatus(ctx, n); err != nil {
		return nil, apperrors.NewDatabaseError(apperrors.ErrCodeDatabase, "failed to persist node status", true, err)
	}

	if oldStatus != n.Status {
		o.logger.InfoContext(ctx, "node status changed",
			"old_status", oldStatus.String(),
			"new_status", n.Status.String(),
		)
		_ = o.bus.PublishNodeStatusChanged(n.ID, oldStatus.String(), n.Status.String())
	}
	return n, nil
}

func asErr[T error](err error, target *T) bool {
	return errors.As(err, target)
}

func wrapDaemonError(err error) error {
	switch {
	case daemon.IsUnreachable(err):
		return apperrors.NewDaemonError(apperrors.ErrCodeDaemonUnreachable, "daemon unreachable", true, err)
	case daemon.IsAPIError(err):
		return apperrors.NewDaemonError(apperrors.ErrCodeDaemonAPIError, "daemon rejected the request", false, err)
	default:
		var malformed *daemon.MalformedResponseError
		if asErr(err, &malformed) {
			return apperrors.NewDaemonError(apperrors.ErrCodeDaemonMalformed, "daemon returned a malformed response", false, err)
		}
		return err
	}
}
