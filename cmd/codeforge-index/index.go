// cmd/codeforge-index/index.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/kkkqkx123/codeforge-index/internal/app"
	"github.com/kkkqkx123/codeforge-index/internal/config"
	"github.com/spf13/cobra"
)

var (
	indexWatch bool
)

var indexCmd = &cobra.Command{
	Use:   "index [repo-path]",
	Short: "Index a repository",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexWatch, "watch", false, "Keep running and reindex on file changes after the initial pass")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	repoPath, err := resolveRepoPath(args[0])
	if err != nil {
		return err
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

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	service, err := app.New(*cfg, logger)
	if err != nil {
		return fmt.Errorf("build service: %w", err)
	}
	defer service.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	service.StartBackgroundMonitors(ctx)

	fmt.Printf("Indexing %s...\n", repoPath)
	result, err := service.CreateIndex(ctx, repoPath)
	if err != nil {
		return fmt.Errorf("index project: %w", err)
	}

	fmt.Printf("\nDone. project=%s status=%s\n", result.ProjectID, result.Status)
	fmt.Printf("  Files processed: %d\n", result.Result.TotalFiles)
	fmt.Printf("  Files indexed:   %d\n", result.Result.IndexedFiles)
	fmt.Printf("  Files skipped:   %d\n", result.Result.SkippedFiles)
	fmt.Printf("  Files failed:    %d\n", result.Result.FailedFiles)
	if len(result.Result.Errors) > 0 {
		fmt.Println("  Errors:")
		for path, msg := range result.Result.Errors {
			fmt.Printf("    - %s: %s\n", path, msg)
		}
	}

	if !indexWatch {
		return nil
	}

	fmt.Println("\nWatching for changes. Press Ctrl+C to stop.")
	if err := service.SetHotReload(ctx, result.ProjectID, true); err != nil {
		return fmt.Errorf("enable hot reload: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	fmt.Println("\nStopping.")
	return service.SetHotReload(ctx, result.ProjectID, false)
}

// resolveRepoPath mirrors the teacher CLI's convenience of accepting a bare
// repo name and checking ~/repos/<name> before falling back to a literal
// relative/absolute path.
func resolveRepoPath(path string) (string, error) {
	if _, err := os.Stat(path); err == nil {
		return filepath.Abs(path)
	}
	home, err := os.UserHomeDir()
	if err == nil {
		candidate := filepath.Join(home, "repos", path)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("path does not exist: %s", path)
}
