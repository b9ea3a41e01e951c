// cmd/codeforge-index/serve_http.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kkkqkx123/codeforge-index/internal/app"
	"github.com/kkkqkx123/codeforge-index/internal/config"
	"github.com/kkkqkx123/codeforge-index/internal/httpapi"
	"github.com/spf13/cobra"
)

var serveHTTPAddr string

// serveHTTPCmd runs the debug/UI HTTP gateway: a chi-routed REST layout
// isomorphic to the MCP tool surface, for a browser-based frontend or
// curl-driven debugging rather than an MCP client.
var serveHTTPCmd = &cobra.Command{
	Use:   "serve-http",
	Short: "Run the debug/UI HTTP gateway",
	RunE:  runServeHTTP,
}

func init() {
	serveHTTPCmd.Flags().StringVar(&serveHTTPAddr, "addr", "", "Listen address (defaults to config http.addr)")
	rootCmd.AddCommand(serveHTTPCmd)
}

func runServeHTTP(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(getGlobalConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = os.Getenv("VOYAGE_API_KEY")
	}

	addr := serveHTTPAddr
	if addr == "" {
		addr = cfg.HTTP.Addr
	}
	if addr == "" {
		addr = "127.0.0.1:8733"
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	service, err := app.New(*cfg, logger)
	if err != nil {
		return fmt.Errorf("build service: %w", err)
	}
	defer service.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	service.StartBackgroundMonitors(ctx)

	router := httpapi.NewRouter(service, logger)
	return httpapi.Serve(ctx, addr, router.Handler(), logger)
}
