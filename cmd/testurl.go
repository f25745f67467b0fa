package cmd

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/basketdata/aisle-crawler/internal/app"
	"github.com/basketdata/aisle-crawler/internal/extract"
	"github.com/basketdata/aisle-crawler/internal/pipeline"
	"github.com/basketdata/aisle-crawler/internal/retailer"
)

// newTestCmd creates the 'test <url> [retailer]' diagnostic subcommand.
func newTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test <url> [retailer]",
		Short: "Run a single-URL extraction diagnostic",
		Long: `Fetches one URL through the full Phase 1 cascade, runs the
retailer's extractor, and prints the outcome. When the retailer is not
given it is guessed from the URL host.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runTestCommand,
	}
}

func runTestCommand(cmd *cobra.Command, args []string) error {
	rawURL := args[0]
	retailerID := ""
	if len(args) == 2 {
		retailerID = retailer.Normalize(args[1])
	} else {
		retailerID = guessRetailer(rawURL)
	}

	cfg, err := resolveConfig()
	if err != nil {
		return err
	}
	// the diagnostic never touches the database
	cfg.Output.PreviewOnly = true
	cfg.Output.PreviewPath = "preview-test.csv"
	cfg.Diag.Enabled = false

	application, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("initialize services: %w", err)
	}
	defer application.Close(cmd.Context())

	row := pipeline.ProductRow{
		ProductCode: "TEST",
		StoreLinks:  map[string]string{retailerID: rawURL},
	}
	outcome := application.Dispatcher.ProcessRow(cmd.Context(), row)

	entry := outcome.PerRetailer[retailerID]
	cmd.Printf("retailer:    %s\n", retailerID)
	cmd.Printf("url:         %s\n", rawURL)
	cmd.Printf("status:      %s\n", entry.Status)
	cmd.Printf("method:      %s\n", entry.Method)
	cmd.Printf("score:       %d\n", entry.Score)
	cmd.Printf("breadcrumbs: %s\n", extract.JoinAisle(entry.Breadcrumbs))
	if entry.Debug != "" {
		cmd.Printf("debug:       %s\n", entry.Debug)
	}
	return nil
}

// guessRetailer derives a retailer id from the URL host.
func guessRetailer(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "unknown"
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for _, label := range strings.Split(host, ".") {
		id := retailer.Normalize(label)
		if retailer.Known(id) {
			return id
		}
	}
	if label, _, found := strings.Cut(host, "."); found && label != "" {
		return retailer.Normalize(label)
	}
	return retailer.Normalize(host)
}
