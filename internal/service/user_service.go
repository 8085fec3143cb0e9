package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rai-team-aiframe/dreamly/internal/auth"
	"github.com/rai-team-aiframe/dreamly/internal/models"
	"github.com/rai-team-aiframe/dreamly/internal/notifications"
	"github.com/rai-team-aiframe/dreamly/internal/observability"
	"github.com/rai-team-aiframe/dreamly/internal/repository"
	"github.com/rai-team-aiframe/dreamly/internal/validation"
)

const (
	msgUsernameTaken   = "Username already registered"
	msgEmailTaken      = "Email already registered"
	msgBadCredentials  = "Incorrect username or password"
	msgSelfFollow      = "You cannot follow yourself"
	msgSearchRequired  = "Search query is required"
	loginResultSuccess = "success"
	loginResultFailure = "failure"
)

type UserService struct {
	users    repository.UserRepository
	follows  repository.FollowRepository
	notifier EventNotifier
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Bio      *string
}

// UpdateProfileInput carries optional changes; nil fields are left as they are.
type UpdateProfileInput struct {
	UserID   uint
	Email    *string
	Password *string
	Bio      *string
}

func NewUserService(users repository.UserRepository, follows repository.FollowRepository, notifier EventNotifier) *UserService {
	return &UserService{users: users, follows: follows, notifier: notifier}
}

// Register creates an account. Duplicate usernames are reported before duplicate emails.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)

	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	bio, err := normalizeBio(in.Bio)
	if err != nil {
		return nil, err
	}

	if taken, err := s.exists(ctx, s.users.GetByUsername, username); err != nil {
		return nil, err
	} else if taken {
		return nil, models.NewConflictError(msgUsernameTaken)
	}
	if taken, err := s.exists(ctx, s.users.GetByEmail, email); err != nil {
		return nil, err
	} else if taken {
		return nil, models.NewConflictError(msgEmailTaken)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	user := &models.User{Username: username, Email: email, Password: hash, Bio: bio}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	observability.Registrations.Inc()
	return user, nil
}

func (s *UserService) exists(ctx context.Context, lookup func(context.Context, string) (*models.User, error), key string) (bool, error) {
	_, err := lookup(ctx, key)
	switch {
	case err == nil:
		return true, nil
	case models.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// Authenticate checks a username/password pair. Unknown users and wrong passwords
// produce the same error.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if models.IsNotFound(err) {
			observability.LoginAttempts.WithLabelValues(loginResultFailure).Inc()
			return nil, models.NewUnauthorizedError(msgBadCredentials)
		}
		return nil, err
	}
	if !auth.CheckPassword(password, user.Password) {
		observability.LoginAttempts.WithLabelValues(loginResultFailure).Inc()
		return nil, models.NewUnauthorizedError(msgBadCredentials)
	}
	observability.LoginAttempts.WithLabelValues(loginResultSuccess).Inc()
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.users.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if err := validation.ValidateEmail(email); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		if email != user.Email {
			other, err := s.users.GetByEmail(ctx, email)
			if err == nil && other.ID != user.ID {
				return nil, models.NewConflictError(msgEmailTaken)
			}
			if err != nil && !models.IsNotFound(err) {
				return nil, err
			}
			user.Email = email
		}
	}

	if in.Password != nil {
		if err := validation.ValidatePassword(*in.Password); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Password = hash
	}

	if in.Bio != nil {
		bio, err := normalizeBio(in.Bio)
		if err != nil {
			return nil, err
		}
		user.Bio = bio
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// normalizeBio trims the bio; a blank bio clears it.
func normalizeBio(bio *string) (*string, error) {
	if bio == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*bio)
	if trimmed == "" {
		return nil, nil
	}
	if err := validation.ValidateBio(trimmed); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	return &trimmed, nil
}

// Profile aggregates counts for username as seen by viewerID (0 for anonymous).
func (s *UserService) Profile(ctx context.Context, username string, viewerID uint) (*models.Profile, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	profile := &models.Profile{User: *user}
	if profile.FollowersCount, err = s.follows.CountFollowers(ctx, user.ID); err != nil {
		return nil, err
	}
	if profile.FollowingCount, err = s.follows.CountFollowing(ctx, user.ID); err != nil {
		return nil, err
	}
	if profile.PostsCount, err = s.users.CountPosts(ctx, user.ID); err != nil {
		return nil, err
	}
	if viewerID != 0 && viewerID != user.ID {
		if profile.IsFollowing, err = s.follows.IsFollowing(ctx, viewerID, user.ID); err != nil {
			return nil, err
		}
	}
	return profile, nil
}

// ToggleFollow follows targetID, or unfollows when actor already follows it.
func (s *UserService) ToggleFollow(ctx context.Context, actor *models.User, targetID uint) (*ToggleResult, error) {
	if actor == nil {
		return nil, models.NewUnauthorizedError("Not authenticated")
	}
	if actor.ID == targetID {
		return nil, models.NewValidationError(msgSelfFollow)
	}
	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		if models.IsNotFound(err) {
			return nil, models.NewNotFoundError("User", targetID)
		}
		return nil, err
	}

	following, err := s.follows.IsFollowing(ctx, actor.ID, targetID)
	if err != nil {
		return nil, err
	}

	result := &ToggleResult{}
	if following {
		if err := s.follows.Unfollow(ctx, actor.ID, targetID); err != nil {
			return nil, err
		}
		result.Action = models.ActionUnfollowed
	} else {
		if err := s.follows.Follow(ctx, actor.ID, targetID); err != nil {
			return nil, err
		}
		result.Action = models.ActionFollowed
	}

	if result.Count, err = s.follows.CountFollowers(ctx, targetID); err != nil {
		return nil, err
	}
	observability.ToggleActions.WithLabelValues(string(result.Action)).Inc()

	if result.Action == models.ActionFollowed {
		notify(ctx, s.notifier, []uint{targetID},
			notifications.NewEvent(notifications.EventFollowed, actor.ID, actor.Username, 0))
	}
	return result, nil
}

func (s *UserService) Followers(ctx context.Context, userID, viewerID uint) ([]models.UserSummary, error) {
	return s.users.Followers(ctx, userID, viewerID)
}

func (s *UserService) Following(ctx context.Context, userID, viewerID uint) ([]models.UserSummary, error) {
	return s.users.Following(ctx, userID, viewerID)
}

func (s *UserService) Search(ctx context.Context, query string, viewerID uint) ([]models.UserSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.NewValidationError(msgSearchRequired)
	}
	return s.users.Search(ctx, query, viewerID, repository.UserSearchLimit)
}

// IsBadCredentials reports whether err came from a failed Authenticate.
func IsBadCredentials(err error) bool {
	var appErr *models.AppError
	return errors.As(err, &appErr) && appErr.Code == models.CodeUnauthorized
}
