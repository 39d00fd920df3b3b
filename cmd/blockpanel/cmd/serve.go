package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"

	"github.com/blockpanel/blockpanel/internal/panel/api"
	"github.com/blockpanel/blockpanel/internal/panel/daemon"
	"github.com/blockpanel/blockpanel/internal/panel/db"
	"github.com/blockpanel/blockpanel/internal/panel/events"
	"github.com/blockpanel/blockpanel/internal/panel/orchestrator"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the panel API and node health reconciler",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fatal(err)
		}

		log := newLogger(cfg, "panel")
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.InfoContext(ctx, "starting blockpanel", "version", version)

		store, err := db.NewStore(&db.Config{
			Path:            cfg.DB.Path,
			MaxOpenConns:    cfg.DB.MaxOpenConns,
			MaxIdleConns:    cfg.DB.MaxIdleConns,
			ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		})
		if err != nil {
			log.ErrorCtx(ctx, "failed to open database", err)
			os.Exit(1)
		}
		defer store.Close()

		bus := events.NewBus(log.Unwrap())
		defer bus.Close()

		transport := daemon.NewTransport(daemon.TransportConfig{
			Timeout: cfg.Daemon.Timeout,
		}, log)

		orch := orchestrator.New(store, bus, transport, orchestrator.CircuitBreakerConfig{
			FailureThreshold: cfg.Health.FailureThreshold,
			ResetTimeout:     cfg.Health.ResetTimeout,
		}, log)

		apiServer := api.NewServer(api.ServerConfig{
			Address:     cfg.API.ListenAddr,
			CORSOrigins: cfg.API.CORSOrigins,
		}, orch, store, version, log)

		if err := apiServer.Start(ctx); err != nil {
			log.ErrorCtx(ctx, "failed to start API server", err)
			os.Exit(1)
		}

		monitor := orchestrator.NewHealthMonitor(orch, orchestrator.HealthMonitorConfig{
			Interval: cfg.Health.Interval,
		}, log)
		go monitor.Run(ctx)

		log.InfoContext(ctx, "panel started, waiting for shutdown signal",
			"listen_addr", cfg.API.ListenAddr)
		<-ctx.Done()

		log.Info("shutdown signal received, stopping")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Service.ShutdownTimeout)
		defer cancel()

		if err := apiServer.Stop(shutdownCtx); err != nil {
			log.ErrorCtx(shutdownCtx, "graceful API shutdown failed", err)
		}
		log.Info("panel stopped")
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
