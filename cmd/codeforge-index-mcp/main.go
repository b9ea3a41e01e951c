// cmd/codeforge-index-mcp/main.go
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
	"github.com/kkkqkx123/codeforge-index/internal/mcp"
	"github.com/kkkqkx123/codeforge-index/internal/metrics"
	"github.com/spf13/cobra"
)

const (
	serverName    = "codeforge-index-mcp"
	serverVersion = "0.1.0"
)

var rootCmd = &cobra.Command{
	Use:   "codeforge-index-mcp",
	Short: "MCP server for codebase indexing and retrieval",
	Long:  `An MCP (Model Context Protocol) server exposing codebase.index.create, codebase.index.search, and codebase.status.get.`,
}

var (
	logFile    string
	configPath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long:  `Start the MCP server listening on stdin/stdout for JSON-RPC messages.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&logFile, "log-file", "", "Log file path (defaults to ~/.cache/codeforge-index-mcp/server.log)")
	serveCmd.Flags().StringVar(&configPath, "config", "", "Config file path (defaults to ~/.config/codeforge-index/config.yaml)")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	// Logging goes to a file, never stdout - that's the MCP JSON-RPC channel.
	logger, cleanup, err := setupLogging()
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer cleanup()

	logger.Info("starting MCP server", "name", serverName, "version", serverVersion)

	cfg, err := config.LoadConfig(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = os.Getenv("VOYAGE_API_KEY")
	}
	if cfg.Embedding.APIKey == "" {
		return fmt.Errorf("no embedding API key configured (set embedding.api_key or VOYAGE_API_KEY)")
	}

	service, err := app.New(*cfg, logger)
	if err != nil {
		return fmt.Errorf("build service: %w", err)
	}
	defer service.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	service.StartBackgroundMonitors(ctx)

	metricsLogger := openMetricsLogger(logger)
	if metricsLogger != nil {
		defer metricsLogger.Close()
	}

	handler := mcp.NewServiceHandler(service, metricsLogger, logger)
	server := mcp.NewServer(serverName, serverVersion, handler, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	if err := server.Run(ctx, os.Stdin, os.Stdout); err != nil {
		if err == context.Canceled {
			logger.Info("server stopped")
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "codeforge-index", "config.yaml")
}

func openMetricsLogger(logger *slog.Logger) *metrics.Logger {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	path := filepath.Join(home, ".local", "share", "codeforge-index", "metrics.jsonl")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		logger.Warn("could not create metrics directory, query metrics disabled", "error", err)
		return nil
	}
	l, err := metrics.NewLogger(path)
	if err != nil {
		logger.Warn("could not open metrics log, query metrics disabled", "error", err)
		return nil
	}
	return l
}

func setupLogging() (*slog.Logger, func(), error) {
	path := logFile
	if path == "" {
		cacheDir, err := os.UserCacheDir()
		if err != nil {
			cacheDir = "/tmp"
		}
		logDir := filepath.Join(cacheDir, "codeforge-index-mcp")
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		path = filepath.Join(logDir, "server.log")
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(file, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	cleanup := func() {
		file.Close()
	}

	return logger, cleanup, nil
}
