// cmd/codeforge-index/search.go
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
	searchProjectID string
	searchLimit     int
	searchMode      string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search an indexed project",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchProjectID, "project", "", "Project ID to search (required)")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "Maximum results (default from config)")
	searchCmd.Flags().StringVar(&searchMode, "mode", "", "Force a retrieval strategy: semantic|keyword|hybrid|graph|filename")
	_ = searchCmd.MarkFlagRequired("project")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	cfg, err := config.LoadConfig(getGlobalConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = os.Getenv("VOYAGE_API_KEY")
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	service, err := app.New(*cfg, logger)
	if err != nil {
		return fmt.Errorf("build service: %w", err)
	}
	defer service.Close()

	result, err := service.Search(context.Background(), searchProjectID, query, app.SearchOptions{
		Limit: searchLimit,
		Mode:  searchMode,
	})
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	fmt.Printf("query type: %s, %d result(s)\n\n", result.QueryKind, result.Total)
	for i, r := range result.Results {
		fmt.Printf("%d. %s:%d-%d (score %.3f, %s, via %s)\n", i+1, r.FilePath, r.LineRange[0], r.LineRange[1], r.Score, r.Kind, r.Backend)
		if r.Snippet != "" {
			fmt.Printf("   %s\n", truncateSnippet(r.Snippet, 160))
		}
	}
	return nil
}

func truncateSnippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
