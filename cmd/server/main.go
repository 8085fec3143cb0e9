// Command main is the entry point for the Dreamly backend server.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rai-team-aiframe/dreamly/internal/bootstrap"
	"github.com/rai-team-aiframe/dreamly/internal/config"
	"github.com/rai-team-aiframe/dreamly/internal/imagegen"
	"github.com/rai-team-aiframe/dreamly/internal/middleware"
	"github.com/rai-team-aiframe/dreamly/internal/observability"
	"github.com/rai-team-aiframe/dreamly/internal/server"
)

// @title Dreamly API
// @version 1.0.0
// @description Share AI-generated images, follow dreamers and like their posts.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8000
// @BasePath /
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	seedPlan := flag.String("seed-plan", "", "YAML seed plan applied when the database has no users")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	middleware.InitLogger(cfg.Env)

	ctx := context.Background()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName:    "dreamly-api",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.OTelExporter,
		OTLPEndpoint:   cfg.OTelEndpoint,
		SamplerRatio:   1,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	db, rdb, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{SeedPlan: *seedPlan})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	generator := imagegen.NewClient(imagegen.ClientConfig{
		URL:     cfg.ImageAPIURL,
		APIKey:  cfg.ImageAPIKey,
		Model:   cfg.ImageModel,
		Timeout: cfg.ImageTimeout,
	})

	srv, err := server.NewServer(cfg, db, rdb, generator)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	go func() {
		if err := srv.Start(); err != nil {
			middleware.Logger.Error("server stopped", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	middleware.Logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		middleware.Logger.Error("server resource shutdown error", slog.String("error", err.Error()))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		middleware.Logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}
}
