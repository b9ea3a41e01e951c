// cmd/codeforge-index/status.go
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

var statusProjectID string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show indexing status",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusProjectID, "project", "", "Project ID to report on; omit to list every known project")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(getGlobalConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	service, err := app.New(*cfg, logger)
	if err != nil {
		return fmt.Errorf("build service: %w", err)
	}
	defer service.Close()

	reports, err := service.Status(context.Background(), statusProjectID)
	if err != nil {
		return fmt.Errorf("get status: %w", err)
	}
	if len(reports) == 0 {
		fmt.Println("No indexed projects.")
		return nil
	}

	for _, r := range reports {
		fmt.Printf("project: %s\n", r.Project.ProjectID)
		fmt.Printf("  path:            %s\n", r.Project.Path)
		fmt.Printf("  status:          %s\n", r.Project.Status)
		if !r.Found {
			fmt.Println("  (no status row yet)")
			continue
		}
		fmt.Printf("  vector status:   %s\n", r.Status.VectorStatus.State)
		fmt.Printf("  graph status:    %s\n", r.Status.GraphStatus.State)
		fmt.Printf("  files:           %d indexed / %d total / %d failed\n",
			r.Status.IndexedFiles, r.Status.TotalFiles, r.Status.FailedFiles)
		fmt.Printf("  hot reload:      %v (changes detected: %d)\n", r.Status.HotReloadEnabled, r.Status.ChangesDetected)
		fmt.Println()
	}
	return nil
}
