package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/codeowl/codeowl"
	"github.com/codeowl/codeowl/infrastructure/api"
	"github.com/codeowl/codeowl/internal/log"
)

func serveCmd() *cobra.Command {
	var (
		envFile string
		host    string
		port    int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server and background workers",
		Long: `Start the HTTP API server and background workers.

Configuration is loaded in the following order (later sources override earlier):
  1. Default values
  2. .env file (if --env-file specified or .env exists in current directory)
  3. Environment variables
  4. Command line flags

Environment variables:
  HOST                      Server host to bind to (default: 0.0.0.0)
  PORT                      Server port to listen on (default: 8080)
  DB_URL                    Database URL (default: sqlite:///codeowl.db)
  LOG_LEVEL                 Log level: DEBUG, INFO, WARN, ERROR (default: INFO)
  LOG_FORMAT                Log format: pretty, json (default: pretty)
  GITHUB_WEBHOOK_SECRET     Shared secret for webhook signature checks
  WEBHOOK_CALLBACK_URL      Public URL GitHub delivers webhooks to
  CORS_ORIGINS              Comma-separated allowed dashboard origins
  WORKER_COUNT              Workers per queue (default: 2)
  FREE_REPO_LIMIT           Free-tier repository ceiling (default: 5)
  FREE_REVIEW_LIMIT         Free-tier lifetime review ceiling (default: 50)

  EMBEDDING_ENDPOINT_*      Embedding AI service configuration
    BASE_URL                Base URL (e.g. https://api.openai.com/v1)
    MODEL                   Model identifier (e.g. text-embedding-3-small)
    API_KEY                 API key for authentication
    TIMEOUT_SECONDS         Request timeout in seconds (default: 60)
    MAX_RETRIES             Retry attempts (default: 5)

  REVIEW_ENDPOINT_*         Review-generation AI service configuration
    (same fields as EMBEDDING_ENDPOINT)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(envFile, host, port)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	cmd.Flags().StringVar(&host, "host", "", "Server host to bind to (default: 0.0.0.0)")
	cmd.Flags().IntVar(&port, "port", 0, "Server port to listen on (default: 8080)")

	return cmd
}

func runServe(envFile, host string, port int) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}

	// Flags take precedence over environment variables.
	if host != "" {
		cfg.Host = host
	}
	if port != 0 {
		cfg.Port = port
	}

	logger := log.New(cfg)
	logger.Info("starting codeowl",
		slog.String("version", version),
		slog.String("addr", cfg.Addr()),
		slog.Int("workers", cfg.WorkerCount),
	)

	client, err := codeowl.New(
		codeowl.WithConfig(cfg),
		codeowl.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("create codeowl client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close codeowl client", slog.Any("error", err))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client.Start(ctx)

	apiServer := api.NewAPIServer(client)
	server := api.NewServer(cfg.Addr(), cfg.CORSOrigins, logger)
	apiServer.MountRoutes(server.Router())
	server.Router().Get("/health", healthHandler)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("shutting down server")
		cancel()
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.Any("error", err))
		}
	}()

	if err := server.Start(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}
