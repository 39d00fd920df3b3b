package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/blockpanel/blockpanel/internal/shared/logger"
)

// HealthMonitorConfig tunes the background node health sweep.
type HealthMonitorConfig struct {
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

// DefaultHealthMonitorConfig returns the default health monitor configuration.
func DefaultHealthMonitorConfig() HealthMonitorConfig {
	return HealthMonitorConfig{
		Interval: 30 * time.Second,
	}
}

// HealthMonitor periodically probes every registered node's daemon and
// records the observed reachability through the orchestrator.
type HealthMonitor struct {
	orch   *Orchestrator
	config HealthMonitorConfig
	logger *logger.Logger
}

// NewHealthMonitor creates a health monitor.
func NewHealthMonitor(orch *Orchestrator, config HealthMonitorConfig, log *logger.Logger) *HealthMonitor {
	if config.Interval <= 0 {
		config.Interval = DefaultHealthMonitorConfig().Interval
	}
	return &HealthMonitor{
		orch:   orch,
		config: config,
		logger: log.WithComponent("health-monitor"),
	}
}

// Run sweeps all nodes on the configured interval until ctx is cancelled.
// One unreachable node never delays probes of the others.
func (m *HealthMonitor) Run(ctx context.Context) {
	m.logger.InfoContext(ctx, "health monitor started", "interval", m.config.Interval)

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	m.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			m.logger.InfoContext(ctx, "health monitor stopped")
			return
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

func (m *HealthMonitor) sweep(ctx context.Context) {
	nodes, err := m.orch.store.ListNodes(ctx)
	if err != nil {
		m.logger.ErrorCtx(ctx, "failed to list nodes for health sweep", err)
		return
	}

	var wg sync.WaitGroup
	for _, n := range nodes {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(nodeID string) {
			defer wg.Done()
			if _, err := m.orch.ReconcileNode(ctx, nodeID); err != nil {
				m.logger.WarnContext(ctx, "node health probe errored",
					"node_id", nodeID,
					"error", err.Error())
			}
		}(n.ID)
	}
	wg.Wait()
}
