// Ragchat serves the multi-app RAG chatbot HTTP API.
//
// Configuration comes from built-in defaults, an optional YAML file and
// RAGCHAT_* environment variables. A .env file in the working directory is
// loaded first when present. See internal/config for details.
//
// Usage:
//
//	# Start server with defaults
//	ragchat
//
//	# Use a config file and override the port
//	RAGCHAT_SERVER_PORT=9090 ragchat --config ragchat.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/config"
	apihttp "github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/http"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/logging"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/services"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (default ./config.yaml when present)")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  ragchat [--config file]   Start the API server\n")
			fmt.Fprintf(os.Stderr, "  ragchat version           Show version information\n")
			os.Exit(1)
		}
	}

	// A missing .env is normal outside development.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("ragchat\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the server and blocks until ctx is cancelled.
// Returns http.ErrServerClosed on graceful shutdown.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	tel, err := telemetry.New(ctx, cfg.Telemetry, version)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tel.Shutdown(shutdownCtx)
	}()

	logCfg, err := logging.FromAppConfig(cfg.Logging)
	if err != nil {
		return fmt.Errorf("invalid logging configuration: %w", err)
	}
	logger, err := logging.NewLogger(logCfg, tel.LoggerProvider())
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if degraded, derr := tel.Degraded(); degraded {
		logger.Warn(ctx, "telemetry degraded", zap.Error(derr))
	}

	logger.Info(ctx, "starting ragchat",
		zap.String("version", version),
		zap.String("addr", cfg.Server.Addr()),
		zap.String("storage_root", cfg.Storage.Root),
		zap.String("embeddings_provider", cfg.Embeddings.Provider),
		zap.Bool("llm_configured", cfg.LLM.APIKey.IsSet()),
	)

	reg, err := services.New(ctx, services.Options{Config: cfg, Logger: logger})
	if err != nil {
		return fmt.Errorf("initializing services: %w", err)
	}
	defer func() {
		if cerr := reg.Close(); cerr != nil {
			logger.Warn(ctx, "closing services", zap.Error(cerr))
		}
	}()

	srv, err := apihttp.NewServer(reg, logger, serverConfig(cfg))
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	logger.Info(ctx, "server configured",
		zap.String("health_endpoint", fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port)),
		zap.String("metrics_endpoint", "/metrics"),
		zap.String("generator", reg.Generator().Name()),
		zap.String("embedding_model", reg.Embedder().Model()),
	)

	return srv.Start(ctx)
}

func serverConfig(cfg *config.Config) *apihttp.Config {
	return &apihttp.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		CORSOrigins:     cfg.Server.CORSOrigins,
		MaxUploadBytes:  cfg.Server.MaxUploadBytes,
		Version:         version,
	}
}
