package seed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rai-team-aiframe/dreamly/internal/middleware"
	"github.com/rai-team-aiframe/dreamly/internal/models"

	"gorm.io/gorm"
)

// Summary counts the rows a Run inserted.
type Summary struct {
	Users   int
	Posts   int
	Follows int
	Likes   int
}

// Seeder populates the database according to a Plan.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
}

// NewSeeder returns a Seeder writing through db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, factory: NewFactory(db, opts)}
}

// ClearAll deletes every user, post, follow and like. Children go first since
// the schema has no cascading deletes.
func (s *Seeder) ClearAll(ctx context.Context) error {
	middleware.Logger.Info("clearing existing data")
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range []string{"likes", "followers", "posts", "users"} {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
}

// Run creates the plan's users, then their posts, then a random follow graph
// and likes.
func (s *Seeder) Run(ctx context.Context, plan Plan) (*Summary, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	s.factory.opts.Password = plan.Password
	s.factory.passwordHash = ""
	if plan.MaxDays > 0 {
		s.factory.opts.MaxDays = plan.MaxDays
	}

	middleware.Logger.Info("starting database seeding",
		slog.Int("users", plan.Users), slog.Int("posts_per_user", plan.PostsPerUser))

	users, err := s.seedUsers(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("failed to create users: %w", err)
	}
	summary := &Summary{Users: len(users)}

	posts, err := s.seedPosts(ctx, plan, users)
	if err != nil {
		return nil, fmt.Errorf("failed to create posts: %w", err)
	}
	summary.Posts = len(posts)

	if summary.Follows, err = s.seedFollows(ctx, users, plan.FollowsPerUser); err != nil {
		return nil, fmt.Errorf("failed to create follows: %w", err)
	}
	if summary.Likes, err = s.seedLikes(ctx, users, posts, plan.LikesPerPost); err != nil {
		return nil, fmt.Errorf("failed to create likes: %w", err)
	}

	middleware.Logger.Info("database seeding completed",
		slog.Int("users", summary.Users),
		slog.Int("posts", summary.Posts),
		slog.Int("follows", summary.Follows),
		slog.Int("likes", summary.Likes))
	return summary, nil
}

func (s *Seeder) seedUsers(ctx context.Context, plan Plan) ([]*models.User, error) {
	users := make([]*models.User, 0, plan.Users)
	for i, account := range plan.Accounts {
		user, err := s.factory.CreateUser(ctx, i, func(u *models.User) {
			u.Username = account.Username
			u.Email = account.Email
			if u.Email == "" {
				u.Email = account.Username + "@example.com"
			}
			if account.Bio != "" {
				u.Bio = &account.Bio
			}
		})
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	for i := len(users); i < plan.Users; i++ {
		user, err := s.factory.CreateUser(ctx, i)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
		if (i+1)%100 == 0 {
			middleware.Logger.Info("created users", slog.Int("count", i+1))
		}
	}
	return users, nil
}

func (s *Seeder) seedPosts(ctx context.Context, plan Plan, users []*models.User) ([]*models.Post, error) {
	posts := make([]*models.Post, 0, len(users)*plan.PostsPerUser)
	for _, user := range users {
		for j := 0; j < plan.PostsPerUser; j++ {
			post, err := s.factory.BuildPost(user, s.factory.Prompt(plan.Prompts))
			if err != nil {
				return nil, err
			}
			posts = append(posts, post)
		}
	}
	if err := s.factory.CreatePostsBatch(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *Seeder) seedFollows(ctx context.Context, users []*models.User, perUser int) (int, error) {
	if len(users) < 2 {
		return 0, nil
	}
	perUser = min(perUser, len(users)-1)

	count := 0
	for i, follower := range users {
		picked := 0
		for _, j := range s.factory.rng.Perm(len(users)) {
			if picked == perUser {
				break
			}
			if j == i {
				continue
			}
			if err := s.factory.CreateFollow(ctx, follower, users[j]); err != nil {
				return count, err
			}
			picked++
			count++
		}
	}
	return count, nil
}

func (s *Seeder) seedLikes(ctx context.Context, users []*models.User, posts []*models.Post, perPost int) (int, error) {
	perPost = min(perPost, len(users))

	count := 0
	for _, post := range posts {
		for _, j := range s.factory.rng.Perm(len(users))[:perPost] {
			if err := s.factory.CreateLike(ctx, users[j], post); err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}
