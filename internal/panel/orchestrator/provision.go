package orchestrator

import (
	"context"
	"time"

	"github.com/blockpanel/blockpanel/internal/panel/daemon"
	"github.com/blockpanel/blockpanel/internal/panel/node"
	"github.com/blockpanel/blockpanel/internal/panel/server"
	apperrors "github.com/blockpanel/blockpanel/internal/shared/errors"
	"github.com/blockpanel/blockpanel/internal/shared/logger"
)

// CreateServerRequest describes a server to be provisioned onto a node.
// Port may be zero, in which case the orchestrator allocates the first free
// port from the node's advertised range.
type CreateServerRequest struct {
	Name        string
	NodeID      string
	DockerImage string
	MemoryMB    int64
	DiskMB      int64
	Port        int
	Edition     string
	GameVersion string
	Environment map[string]string
}

// CreateServer provisions a new server. The daemon install call strictly
// precedes the database insert: if the daemon never acknowledged, no record
// exists. After a failed call whose outcome is unknown (timeout), the daemon
// is asked whether the server exists; a found orphan gets a best-effort
// delete so daemon and panel cannot drift apart.
func (o *Orchestrator) CreateServer(ctx context.Context, req CreateServerRequest) (*server.Server, error) {
	op := o.logger.StartOp(ctx, "server.provision", "node_id", req.NodeID, "name", req.Name)
	start := time.Now()

	n, err := o.store.GetNode(ctx, req.NodeID)
	if err != nil {
		op.Fail(err, "node lookup failed")
		return nil, err
	}

	port := req.Port
	if port == 0 {
		port, err = o.allocatePort(ctx, n)
		if err != nil {
			op.Fail(err, "port allocation failed")
			return nil, err
		}
	} else if port < n.PortsStart || port > n.PortsEnd {
		err := node.NewValidationError("port", "outside the node's allocatable range", port)
		op.Fail(err, "port validation failed")
		return nil, err
	}

	srv, err := server.NewServer(req.Name, n.ID, req.DockerImage, req.MemoryMB, req.DiskMB, port)
	if err != nil {
		op.Fail(err, "server validation failed")
		return nil, err
	}
	srv.Edition = req.Edition
	srv.GameVersion = req.GameVersion

	client := daemon.NewClient(n.Conn(), o.transport, o.logger)
	ack, installErr := client.CreateServer(ctx, daemon.ProvisionRequest{
		UUID:        srv.UUID,
		Name:        srv.Name,
		DockerImage: srv.DockerImage,
		MemoryMB:    srv.MemoryMB,
		DiskMB:      srv.DiskMB,
		Environment: req.Environment,
	})
	if installErr != nil {
		err := o.resolveFailedInstall(ctx, client, srv.UUID, installErr)
		_ = o.bus.PublishServerProvisionFailed(srv.ID, n.ID, installErr, apperrors.IsRetryable(err))
		op.Fail(err, "daemon install failed")
		return nil, err
	}

	if err := o.store.CreateServer(ctx, srv); err != nil {
		// The daemon accepted the install but the panel cannot record it.
		// Tear the orphan down so the daemon matches the database again.
		o.logger.ErrorCtx(ctx, "failed to persist provisioned server, rolling back install", err,
			"server_uuid", srv.UUID)
		if delErr := client.DeleteServer(ctx, srv.UUID); delErr != nil {
			o.logger.WarnContext(ctx, "rollback delete failed, daemon may hold an orphaned server",
				"server_uuid", srv.UUID,
				"error", delErr.Error())
		}
		op.Fail(err, "server persistence failed")
		return nil, apperrors.NewDatabaseError(apperrors.ErrCodeDatabase, "failed to persist server", true, err)
	}

	_ = o.bus.PublishServerProvisioned(srv.ID, srv.UUID, n.ID, time.Since(start))
	op.Complete("server provisioned", "server_id", srv.ID, "port", port, "daemon_state", ack.State)
	return srv, nil
}

// resolveFailedInstall classifies a failed install call. An unreachable
// daemon may still have received and applied the request, so the daemon is
// probed for the server's existence. A confirmed orphan is deleted
// best-effort; an unanswerable probe reports the state as unknown.
func (o *Orchestrator) resolveFailedInstall(ctx context.Context, client *daemon.Client, serverUUID string, installErr error) error {
	if daemon.IsAPIError(installErr) {
		// The daemon answered with a rejection; nothing was created.
		return apperrors.NewProvisioningError(apperrors.ErrCodeProvisionFailed, "daemon rejected the install", false, installErr)
	}

	_, detailsErr := client.GetServerDetails(ctx, serverUUID)
	switch {
	case daemon.IsNotFound(detailsErr):
		return apperrors.NewProvisioningError(apperrors.ErrCodeProvisionFailed, "daemon did not receive the install", true, installErr)
	case detailsErr == nil:
		o.logger.WarnContext(ctx, "install call failed but server exists on daemon, deleting orphan",
			"server_uuid", serverUUID)
		if delErr := client.DeleteServer(ctx, serverUUID); delErr != nil {
			return apperrors.NewProvisioningError(apperrors.ErrCodeProvisionUnknown,
				"install outcome unknown and orphan cleanup failed", false, installErr)
		}
		return apperrors.NewProvisioningError(apperrors.ErrCodeProvisionFailed, "install failed, orphan removed", true, installErr)
	default:
		return apperrors.NewProvisioningError(apperrors.ErrCodeProvisionUnknown,
			"install outcome could not be determined", false, installErr)
	}
}

// DeleteServer removes a server from its daemon and then from the panel.
// A daemon that no longer knows the server (404) does not block deletion.
func (o *Orchestrator) DeleteServer(ctx context.Context, serverID string) error {
	unlock := o.lockServer(serverID)
	defer unlock()

	ctx = logger.WithServerID(ctx, serverID)
	op := o.logger.StartOp(ctx, "server.delete")

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
	if err := client.DeleteServer(ctx, srv.UUID); err != nil && !daemon.IsNotFound(err) {
		op.Fail(err, "daemon delete failed")
		return wrapDaemonError(err)
	}

	if err := o.store.DeleteServer(ctx, srv.ID); err != nil {
		op.Fail(err, "server record delete failed")
		return err
	}

	_ = o.bus.PublishServerDeleted(srv.ID, srv.NodeID)
	op.Complete("server deleted")
	return nil
}

// allocatePort returns the lowest port in the node's range not already held
// by another server on that node.
func (o *Orchestrator) allocatePort(ctx context.Context, n *node.Node) (int, error) {
	existing, err := o.store.ListServersByNode(ctx, n.ID)
	if err != nil {
		return 0, err
	}

	taken := make(map[int]bool, len(existing))
	for _, srv := range existing {
		taken[srv.Port] = true
	}

	for port := n.PortsStart; port <= n.PortsEnd; port++ {
		if !taken[port] {
			return port, nil
		}
	}
	return 0, node.NewValidationError("port", "no free ports left in the node's range", nil)
}
