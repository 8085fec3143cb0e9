// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/rai-team-aiframe/dreamly/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Search(ctx context.Context, query string, viewerID uint, limit int) ([]models.UserSummary, error)
	Followers(ctx context.Context, userID, viewerID uint) ([]models.UserSummary, error)
	Following(ctx context.Context, userID, viewerID uint) ([]models.UserSummary, error)
	CountPosts(ctx context.Context, userID uint) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return translateUserWriteError(err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return r.first(ctx, "User", id, "id = ?", id)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.first(ctx, "User", username, "username = ?", username)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "User", email, "email = ?", email)
}

func (r *userRepository) first(ctx context.Context, resource string, id interface{}, query string, args ...interface{}) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where(query, args...).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError(resource, id)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// Update writes the mutable profile columns of user.
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).
		Model(user).
		Select("email", "password", "bio").
		Updates(user).Error
	if err != nil {
		return translateUserWriteError(err)
	}
	return nil
}

// summarySelect projects a user row plus whether viewerID follows it.
func (r *userRepository) summarySelect(ctx context.Context, viewerID uint) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("users").
		Select("users.id, users.username, users.email, users.bio, users.created_at, "+
			"EXISTS(SELECT 1 FROM followers fv WHERE fv.follower_id = ? AND fv.followed_id = users.id) AS is_followed", viewerID)
}

func (r *userRepository) Search(ctx context.Context, query string, viewerID uint, limit int) ([]models.UserSummary, error) {
	like := likePattern(query)
	var users []models.UserSummary
	err := r.summarySelect(ctx, viewerID).
		Where(`(users.username LIKE ? ESCAPE '\' OR users.email LIKE ? ESCAPE '\')`, like, like).
		Order("users.username ASC").
		Limit(limit).
		Scan(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) Followers(ctx context.Context, userID, viewerID uint) ([]models.UserSummary, error) {
	var users []models.UserSummary
	err := r.summarySelect(ctx, viewerID).
		Joins("JOIN followers f ON users.id = f.follower_id").
		Where("f.followed_id = ?", userID).
		Order("users.username ASC").
		Scan(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) Following(ctx context.Context, userID, viewerID uint) ([]models.UserSummary, error) {
	var users []models.UserSummary
	err := r.summarySelect(ctx, viewerID).
		Joins("JOIN followers f ON users.id = f.followed_id").
		Where("f.follower_id = ?", userID).
		Order("users.username ASC").
		Scan(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) CountPosts(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

// translateUserWriteError turns unique violations into the messages clients expect.
func translateUserWriteError(err error) error {
	if !isUniqueConstraintError(err) {
		return models.NewInternalError(err)
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "username"):
		return models.NewConflictError("Username already registered")
	case strings.Contains(msg, "email"):
		return models.NewConflictError("Email already registered")
	default:
		return models.NewConflictError("Account already exists")
	}
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "constraint failed: unique")
}

// likePattern builds a substring pattern with LIKE wildcards escaped. SQLite's
// LIKE folds ASCII case only, so the term is passed through unlowered.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
