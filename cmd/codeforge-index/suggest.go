// cmd/codeforge-index/suggest.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/kkkqkx123/codeforge-index/internal/app"
	"github.com/kkkqkx123/codeforge-index/internal/config"
	"github.com/spf13/cobra"
)

var (
	suggestProjectID string
	suggestLimit     int
)

// suggestCmd prints related files for the given file to stderr, for
// consumption by an editor hook deciding what else to load into context.
var suggestCmd = &cobra.Command{
	Use:   "suggest-context [file-path]",
	Short: "Suggest related files for a file under edit",
	Args:  cobra.ExactArgs(1),
	RunE:  runSuggestContext,
}

func init() {
	suggestCmd.Flags().StringVar(&suggestProjectID, "project", "", "Project ID owning the file (required)")
	suggestCmd.Flags().IntVar(&suggestLimit, "limit", 5, "Maximum related files to suggest")
	_ = suggestCmd.MarkFlagRequired("project")
	rootCmd.AddCommand(suggestCmd)
}

func runSuggestContext(cmd *cobra.Command, args []string) error {
	filePath := args[0]

	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	cfg, err := config.LoadConfig(getGlobalConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = os.Getenv("VOYAGE_API_KEY")
	}
	if cfg.Embedding.APIKey == "" {
		return fmt.Errorf("no embedding API key configured (set embedding.api_key or VOYAGE_API_KEY)")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	service, err := app.New(*cfg, logger)
	if err != nil {
		return fmt.Errorf("build service: %w", err)
	}
	defer service.Close()

	related, err := service.SuggestContext(context.Background(), suggestProjectID, filePath, string(content), suggestLimit)
	if err != nil {
		return fmt.Errorf("suggest context: %w", err)
	}

	for _, r := range related {
		fmt.Fprintf(os.Stderr, "%s (%s)\n", r.Path, r.Reason)
	}
	return nil
}
