package orchestrator

import (
	"context"

	"github.com/blockpanel/blockpanel/internal/panel/node"
	"github.com/blockpanel/blockpanel/internal/shared/logger"
)

// RegisterNodeRequest describes a node joining the registry.
type RegisterNodeRequest struct {
	Name       string
	FQDN       string
	Port       int
	UseTLS     bool
	Token      string
	MemoryMB   int64
	DiskMB     int64
	PortsStart int
	PortsEnd   int
}

// RegisterNode validates and records a new node, then probes it once so the
// registry does not sit at Unknown until the next health sweep. The probe is
// best effort; a daemon that is not up yet is simply recorded as offline.
func (o *Orchestrator) RegisterNode(ctx context.Context, req RegisterNodeRequest) (*node.Node, error) {
	op := o.logger.StartOp(ctx, "node.register", "name", req.Name, "fqdn", req.FQDN)

	n, err := node.NewNode(req.Name, req.FQDN, req.Port, req.UseTLS, req.Token,
		req.MemoryMB, req.DiskMB, req.PortsStart, req.PortsEnd)
	if err != nil {
		op.Fail(err, "node validation failed")
		return nil, err
	}

	if err := o.store.CreateNode(ctx, n); err != nil {
		op.Fail(err, "node persistence failed")
		return nil, err
	}

	_ = o.bus.PublishNodeRegistered(n.ID, n.Name, n.FQDN)

	probed, err := o.ReconcileNode(ctx, n.ID)
	if err != nil {
		o.logger.WarnContext(ctx, "initial node probe failed",
			"node_id", n.ID,
			"error", err.Error())
		op.Complete("node registered, initial probe failed")
		return n, nil
	}

	op.Complete("node registered", "status", probed.Status.String())
	return probed, nil
}

// DeleteNode removes a node from the registry. Nodes still hosting servers
// cannot be removed.
func (o *Orchestrator) DeleteNode(ctx context.Context, nodeID string) error {
	ctx = logger.WithNodeID(ctx, nodeID)
	op := o.logger.StartOp(ctx, "node.delete")

	servers, err := o.store.ListServersByNode(ctx, nodeID)
	if err != nil {
		op.Fail(err, "server lookup failed")
		return err
	}
	if len(servers) > 0 {
		err := node.NewConflictError("node", nodeID, "node still hosts servers")
		op.Fail(err, "node delete rejected")
		return err
	}

	if err := o.store.DeleteNode(ctx, nodeID); err != nil {
		op.Fail(err, "node record delete failed")
		return err
	}

	o.breakers.Delete(nodeID)
	_ = o.bus.PublishNodeDeleted(nodeID)
	op.Complete("node deleted")
	return nil
}
