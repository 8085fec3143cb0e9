package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rai-team-aiframe/dreamly/internal/cache"
	"github.com/rai-team-aiframe/dreamly/internal/config"
	"github.com/rai-team-aiframe/dreamly/internal/database"
	"github.com/rai-team-aiframe/dreamly/internal/middleware"
	"github.com/rai-team-aiframe/dreamly/internal/models"
	"github.com/rai-team-aiframe/dreamly/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedPlan, when set, names a YAML seed plan applied if the database has no users.
	SeedPlan string
}

// InitRuntime connects to the database and Redis and optionally seeds demo data.
// An unreachable Redis is fatal only in production; elsewhere the runtime
// continues with a nil client and the Redis-backed features degrade.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	rdb, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		if cfg.IsProduction() {
			_ = database.Close(db)
			return nil, nil, fmt.Errorf("redis connection failed: %w", err)
		}
		middleware.Logger.Warn("redis unavailable, continuing without it", slog.String("error", err.Error()))
		rdb = nil
	}

	if opts.SeedPlan != "" {
		if err := seedIfEmpty(ctx, db, opts.SeedPlan); err != nil {
			_ = database.Close(db)
			if rdb != nil {
				_ = rdb.Close()
			}
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return db, rdb, nil
}

func seedIfEmpty(ctx context.Context, db *gorm.DB, planPath string) error {
	var users int64
	if err := db.WithContext(ctx).Model(&models.User{}).Count(&users).Error; err != nil {
		return err
	}
	if users > 0 {
		middleware.Logger.Info("database already has users, skipping demo seed", slog.Int64("users", users))
		return nil
	}

	plan, err := seed.LoadPlan(planPath)
	if err != nil {
		return err
	}
	_, err = seed.NewSeeder(db, seed.Options{}).Run(ctx, plan)
	return err
}
