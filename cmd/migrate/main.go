// Command migrate runs schema operations for the backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/rai-team-aiframe/dreamly/internal/config"
	"github.com/rai-team-aiframe/dreamly/internal/database"
	"github.com/rai-team-aiframe/dreamly/internal/middleware"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate/main.go <up|status>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	middleware.InitLogger(cfg.Env)

	slow := time.Duration(cfg.DBSlowQueryMS) * time.Millisecond
	db, err := database.Open(cfg.DBPath, database.NewGormLogger(middleware.Logger, slow))
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = database.Close(db) }()

	ctx := context.Background()
	cmd := strings.ToLower(strings.TrimSpace(flag.Arg(0)))
	switch cmd {
	case "up":
		if err := database.RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
		log.Println("sql migrations applied")
	case "status":
		pending, err := database.PendingMigrations(ctx, db)
		if err != nil {
			return fmt.Errorf("schema status failed: %w", err)
		}
		log.Printf("db=%s env=%s pending=%d", cfg.DBPath, cfg.Env, len(pending))
		for _, m := range pending {
			log.Printf("pending: %s", m)
		}
		missing, err := database.MissingTables(db)
		if err != nil {
			return fmt.Errorf("schema status failed: %w", err)
		}
		for _, table := range missing {
			log.Printf("missing table: %s", table)
		}
	default:
		return usage()
	}

	return nil
}
