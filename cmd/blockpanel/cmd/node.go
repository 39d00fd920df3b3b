package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"

	"github.com/blockpanel/blockpanel/internal/panel/config"
	"github.com/blockpanel/blockpanel/internal/panel/daemon"
	"github.com/blockpanel/blockpanel/internal/panel/db"
	"github.com/blockpanel/blockpanel/internal/panel/events"
	"github.com/blockpanel/blockpanel/internal/panel/orchestrator"
	"github.com/blockpanel/blockpanel/internal/panel/provisioner"
)

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Operator utilities for the node registry",
}

var nodeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered nodes",
	Run: func(cmd *cobra.Command, args []string) {
		_, store, _, cleanup := openPanel()
		defer cleanup()

		nodes, err := store.ListNodes(context.Background())
		if err != nil {
			fatal(err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tFQDN\tSTATUS\tLAST CHECKED")
		for _, n := range nodes {
			lastChecked := "never"
			if n.LastCheckedAt != nil {
				lastChecked = n.LastCheckedAt.Format(time.RFC3339)
			}
			fmt.Fprintf(w, "%s\t%s\t%s:%d\t%s\t%s\n",
				n.ID, n.Name, n.FQDN, n.Port, n.Status, lastChecked)
		}
		w.Flush()
	},
}

var nodeCheckCmd = &cobra.Command{
	Use:   "check <node-id>",
	Short: "Probe a node's daemon and record the result",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		_, _, orch, cleanup := openPanel()
		defer cleanup()

		n, err := orch.ReconcileNode(context.Background(), args[0])
		if err != nil {
			fatal(err)
		}
		fmt.Printf("Node %s (%s) is %s\n", n.Name, n.FQDN, n.Status)
	},
}

var (
	provisionName       string
	provisionMemoryMB   int64
	provisionDiskMB     int64
	provisionPortsStart int
	provisionPortsEnd   int
)

var nodeProvisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Create a cloud machine running the node daemon and register it",
	Long: `Provision a Hetzner machine from the configured cloud-init template,
wait until its daemon answers health probes, then register it as a node.
Requires hetzner.api_token in the configuration.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, _, orch, cleanup := openPanel()
		defer cleanup()

		if !cfg.Hetzner.Enabled() {
			fatal(provisioner.ErrProvisioningDisabled)
		}

		log := newLogger(cfg, "provisioner")
		transport := daemon.NewTransport(daemon.TransportConfig{Timeout: cfg.Daemon.Timeout}, log)

		prov, err := provisioner.NewHetzner(cfg.Hetzner.APIToken, &provisioner.Config{
			ServerType:   cfg.Hetzner.ServerType,
			Image:        cfg.Hetzner.Image,
			Location:     cfg.Hetzner.Location,
			DaemonPort:   cfg.Hetzner.DaemonPort,
			SSHPublicKey: cfg.Hetzner.SSHPublicKey,
		}, transport, log)
		if err != nil {
			fatal(err)
		}

		if provisionName == "" {
			provisionName = fmt.Sprintf("bp-node-%d", time.Now().Unix())
		}

		ctx := context.Background()
		fmt.Println("Provisioning machine, this takes a few minutes...")
		result, err := prov.ProvisionMachine(ctx, provisionName)
		if err != nil {
			fatal(err)
		}

		n, err := orch.RegisterNode(ctx, orchestrator.RegisterNodeRequest{
			Name:       provisionName,
			FQDN:       result.IPAddress,
			Port:       result.DaemonPort,
			Token:      result.Token,
			MemoryMB:   provisionMemoryMB,
			DiskMB:     provisionDiskMB,
			PortsStart: provisionPortsStart,
			PortsEnd:   provisionPortsEnd,
		})
		if err != nil {
			// The machine is up but unregistered; keep it for manual recovery.
			fmt.Fprintf(os.Stderr, "machine %s is running at %s but registration failed\n",
				result.MachineID, result.IPAddress)
			fatal(err)
		}

		fmt.Printf("Node %s registered at %s:%d (status: %s)\n",
			n.Name, n.FQDN, n.Port, n.Status)
	},
}

// openPanel opens the configured store and builds an orchestrator for
// one-shot CLI operations.
func openPanel() (*config.Config, db.Store, *orchestrator.Orchestrator, func()) {
	cfg, err := loadConfig()
	if err != nil {
		fatal(err)
	}

	log := newLogger(cfg, "cli")
	store, err := db.NewStore(&db.Config{
		Path:            cfg.DB.Path,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		fatal(err)
	}

	bus := events.NewBus(log.Unwrap())
	transport := daemon.NewTransport(daemon.TransportConfig{Timeout: cfg.Daemon.Timeout}, log)
	orch := orchestrator.New(store, bus, transport, orchestrator.CircuitBreakerConfig{
		FailureThreshold: cfg.Health.FailureThreshold,
		ResetTimeout:     cfg.Health.ResetTimeout,
	}, log)

	cleanup := func() {
		_ = bus.Close()
		_ = store.Close()
	}
	return cfg, store, orch, cleanup
}

func init() {
	rootCmd.AddCommand(nodeCmd)
	nodeCmd.AddCommand(nodeListCmd)
	nodeCmd.AddCommand(nodeCheckCmd)
	nodeCmd.AddCommand(nodeProvisionCmd)

	nodeProvisionCmd.Flags().StringVar(&provisionName, "name", "", "node name (default bp-node-<timestamp>)")
	nodeProvisionCmd.Flags().Int64Var(&provisionMemoryMB, "memory", 8192, "schedulable memory in MB")
	nodeProvisionCmd.Flags().Int64Var(&provisionDiskMB, "disk", 51200, "schedulable disk in MB")
	nodeProvisionCmd.Flags().IntVar(&provisionPortsStart, "ports-start", 25565, "first allocatable game port")
	nodeProvisionCmd.Flags().IntVar(&provisionPortsEnd, "ports-end", 25665, "last allocatable game port")
}
