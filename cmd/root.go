// Package cmd defines and implements the CLI commands for the
// aislecrawler executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/basketdata/aisle-crawler/internal/config"
	"github.com/basketdata/aisle-crawler/internal/logging"
)

var cfgFile string

// loadConfig is a variable so tests can substitute a canned config.
var loadConfig = config.Load

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aislecrawler",
		Short: "Annotates grocery products with per-retailer category breadcrumbs.",
		Long: `aislecrawler fetches each product's retailer pages through a
multi-strategy acquisition cascade, extracts category breadcrumbs from
whatever the page offers (JSON-LD, microdata, DOM, embedded state), and
upserts the per-retailer aisle annotations.`,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newTestCmd())
	return cmd
}

// resolveConfig loads configuration honoring the --config flag.
func resolveConfig() (config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// Execute is the main entry point.
func Execute() {
	logging.InitLogger(true)
	if err := newRootCmd().Execute(); err != nil {
		logging.L.Fatal("command execution failed", zap.Error(err))
	}
}
