// cmd/codeforge-index/invalidate.go
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/kkkqkx123/codeforge-index/internal/app"
	"github.com/kkkqkx123/codeforge-index/internal/config"
	"github.com/spf13/cobra"
)

var invalidateProjectID string

// invalidateCmd drops a project's cached search results after a file changed
// outside of codeforge-index's own write path (e.g. an editor save hook).
// It never fails loudly — a hook's own write must never be blocked by a
// stale-cache bookkeeping miss.
var invalidateCmd = &cobra.Command{
	Use:   "invalidate-file [path]",
	Short: "Mark a project's cached search results stale",
	Args:  cobra.ExactArgs(1),
	RunE:  runInvalidateFile,
}

func init() {
	invalidateCmd.Flags().StringVar(&invalidateProjectID, "project", "", "Project ID owning the changed file (required)")
	_ = invalidateCmd.MarkFlagRequired("project")
	rootCmd.AddCommand(invalidateCmd)
}

func runInvalidateFile(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	cfg.ResolveSecrets()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	service, buildErr := app.New(*cfg, logger)
	if buildErr != nil {
		// Don't break the caller's write: log and exit quietly.
		logger.Warn("invalidate-file: could not build service", "error", buildErr)
		return nil
	}
	defer service.Close()

	if err := service.InvalidateCache(context.Background(), invalidateProjectID); err != nil {
		logger.Warn("invalidate-file: cache invalidation failed", "project", invalidateProjectID, "error", err)
	}
	return nil
}
