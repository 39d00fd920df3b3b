package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blockpanel/blockpanel/internal/panel/config"
	"github.com/blockpanel/blockpanel/internal/shared/logger"
)

const version = "1.0.0"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "blockpanel",
	Short: "Game server panel talking to node daemons",
	Long: `blockpanel manages game servers spread across daemon nodes.

The panel keeps a registry of nodes and servers, relays power and
provisioning actions to the node daemons over their HTTP API, and
reconciles recorded state against what the daemons report.`,
	Version: version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches /etc/blockpanel, $HOME/.blockpanel, .)")
}

// loadConfig loads the panel configuration, honoring the --config flag.
func loadConfig() (*config.Config, error) {
	loader := config.NewLoader()
	if cfgFile != "" {
		return loader.LoadFromFile(cfgFile)
	}
	return loader.Load()
}

// newLogger builds the process logger from the loaded configuration.
func newLogger(cfg *config.Config, component string) *logger.Logger {
	return logger.New(logger.LoggerConfig{
		Level:     logger.LogLevel(cfg.Log.Level),
		Format:    logger.OutputFormat(cfg.Log.Format),
		Component: component,
		Version:   version,
	})
}

// fatal prints an error and exits; for CLI paths where no logger exists yet.
func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
