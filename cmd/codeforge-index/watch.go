// cmd/codeforge-index/watch.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kkkqkx123/codeforge-index/internal/app"
	"github.com/kkkqkx123/codeforge-index/internal/config"
	"github.com/spf13/cobra"
)

var watchProjectID string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Enable hot reload for an already-indexed project and block until interrupted",
	Long:  `Toggles HotReloadController on for the given project, printing periodic change counts until Ctrl+C, then disables it again before exiting.`,
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchProjectID, "project", "", "Project ID to watch (required; run index first)")
	_ = watchCmd.MarkFlagRequired("project")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(getGlobalConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = os.Getenv("VOYAGE_API_KEY")
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

	if err := service.SetHotReload(ctx, watchProjectID, true); err != nil {
		return fmt.Errorf("enable hot reload: %w", err)
	}
	fmt.Printf("Watching %s for changes. Press Ctrl+C to stop.\n", watchProjectID)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-sigCh:
			fmt.Println("\nStopping.")
			return service.SetHotReload(ctx, watchProjectID, false)
		case <-ticker.C:
			reports, err := service.Status(ctx, watchProjectID)
			if err != nil || len(reports) == 0 {
				continue
			}
			fmt.Printf("[%s] changes detected: %d\n", time.Now().Format(time.Kitchen), reports[0].Status.ChangesDetected)
		}
	}
}
