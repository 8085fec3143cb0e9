// Command main runs the demo data seeder for Dreamly.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/rai-team-aiframe/dreamly/internal/config"
	"github.com/rai-team-aiframe/dreamly/internal/database"
	"github.com/rai-team-aiframe/dreamly/internal/middleware"
	"github.com/rai-team-aiframe/dreamly/internal/seed"
)

func main() {
	planPath := flag.String("plan", "", "YAML seed plan (defaults to a small built-in plan)")
	numUsers := flag.Int("users", 0, "Override the plan's user count")
	shouldClean := flag.Bool("clean", false, "Delete existing users, posts, follows and likes first")
	fast := flag.Bool("fast", false, "Hash passwords at minimum bcrypt cost")
	dryRun := flag.Bool("dry-run", false, "Generate data without writing to the database")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	middleware.InitLogger(cfg.Env)

	plan := seed.DefaultPlan()
	if *planPath != "" {
		if plan, err = seed.LoadPlan(*planPath); err != nil {
			log.Fatalf("Failed to load seed plan: %v", err)
		}
	}
	if *numUsers > 0 {
		plan.Users = *numUsers
	}

	ctx := context.Background()
	opts := seed.Options{FastHash: *fast, DryRun: *dryRun}

	var s *seed.Seeder
	if *dryRun {
		s = seed.NewSeeder(nil, opts)
	} else {
		db, err := database.Connect(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer func() { _ = database.Close(db) }()
		s = seed.NewSeeder(db, opts)

		if *shouldClean {
			if err := s.ClearAll(ctx); err != nil {
				log.Fatalf("Cleanup failed: %v", err)
			}
		}
	}

	summary, err := s.Run(ctx, plan)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d users, %d posts, %d follows and %d likes", summary.Users, summary.Posts, summary.Follows, summary.Likes)
	log.Printf("All seeded users have the password: %s", plan.Password)
}
