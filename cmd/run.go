package cmd

import (
	"fmt"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/basketdata/aisle-crawler/internal/app"
	"github.com/basketdata/aisle-crawler/internal/rows"
)

// newRunCmd creates the 'run [limit]' subcommand.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [limit]",
		Short: "Process product rows from the input file",
		Long: `Reads product rows from the configured input, annotates each with
per-retailer breadcrumbs, and writes the results to the configured
output. An optional limit caps how many rows are processed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRunCommand,
	}
}

func runRunCommand(cmd *cobra.Command, args []string) error {
	limit := 0
	if len(args) == 1 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil || parsed < 0 {
			return fmt.Errorf("limit must be a non-negative integer, got %q", args[0])
		}
		limit = parsed
	}

	cfg, err := resolveConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize services: %w", err)
	}
	defer application.Close(ctx)

	source, err := rows.OpenCSV(cfg.Input.Path, limit, application.Logger)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer source.Close() //nolint:errcheck

	runner := app.NewRunner(
		application.Dispatcher,
		application.Sink,
		application.Publisher,
		cfg.Publish.Topic,
		cfg.Fetch.Workers,
		application.Logger,
	)
	summary, err := runner.Run(ctx, source)
	if err != nil {
		return fmt.Errorf("run pipeline: %w", err)
	}

	application.Logger.Info("annotation run finished",
		zap.Int("rows", summary.Rows),
		zap.Int("successes", summary.Successes),
		zap.Int("failures", summary.Failures),
		zap.Int("renderer_used", application.Renderer.Used()),
		zap.Any("proxy_stats", application.Fetcher.ProxyStats()),
	)
	return nil
}
