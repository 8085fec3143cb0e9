package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rai-team-aiframe/dreamly/internal/auth"
	"github.com/rai-team-aiframe/dreamly/internal/models"
	"github.com/rai-team-aiframe/dreamly/internal/notifications"
	"github.com/rai-team-aiframe/dreamly/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_Register(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bio := "  dreams in watercolor  "
	user, err := f.users.Register(ctx, RegisterInput{
		Username: " ada ",
		Email:    "ada@example.com",
		Password: "dreamer2024",
		Bio:      &bio,
	})
	require.NoError(t, err)
	assert.Equal(t, "ada", user.Username)
	require.NotNil(t, user.Bio)
	assert.Equal(t, "dreams in watercolor", *user.Bio)
	assert.NotEqual(t, "dreamer2024", user.Password)
	assert.True(t, auth.CheckPassword("dreamer2024", user.Password))

	t.Run("duplicate username", func(t *testing.T) {
		_, err := f.users.Register(ctx, RegisterInput{Username: "ada", Email: "other@example.com", Password: "dreamer2024"})
		assertCode(t, err, models.CodeConflict)
		assert.Equal(t, 400, models.StatusFor(err))
		assert.Contains(t, err.Error(), "Username already registered")
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := f.users.Register(ctx, RegisterInput{Username: "grace", Email: "ada@example.com", Password: "dreamer2024"})
		assertCode(t, err, models.CodeConflict)
		assert.Contains(t, err.Error(), "Email already registered")
	})

	t.Run("validation", func(t *testing.T) {
		cases := []RegisterInput{
			{Username: "x", Email: "x@example.com", Password: "dreamer2024"},
			{Username: "valid_name", Email: "not-an-email", Password: "dreamer2024"},
			{Username: "valid_name", Email: "v@example.com", Password: "short1"},
			{Username: "valid_name", Email: "v@example.com", Password: strings.Repeat("a", 80) + "1"},
		}
		for _, in := range cases {
			_, err := f.users.Register(ctx, in)
			assertCode(t, err, models.CodeValidation)
		}
	})
}

func TestUserService_Authenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.register(t, "ada")

	user, err := f.users.Authenticate(ctx, "ada", "dreamer2024")
	require.NoError(t, err)
	assert.Equal(t, ada.ID, user.ID)

	_, err = f.users.Authenticate(ctx, "ada", "wrong-password1")
	assert.True(t, IsBadCredentials(err))

	_, err = f.users.Authenticate(ctx, "nobody", "dreamer2024")
	assert.True(t, IsBadCredentials(err))
	assert.Equal(t, "Incorrect username or password", err.(*models.AppError).Message)
}

func TestUserService_UpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.register(t, "ada")
	f.register(t, "grace")

	email := "ada@lovelace.dev"
	password := "analytical9engine"
	bio := "first programmer"
	updated, err := f.users.UpdateProfile(ctx, UpdateProfileInput{UserID: ada.ID, Email: &email, Password: &password, Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, email, updated.Email)
	assert.Equal(t, bio, *updated.Bio)

	_, err = f.users.Authenticate(ctx, "ada", password)
	require.NoError(t, err)

	t.Run("blank bio clears it", func(t *testing.T) {
		blank := "   "
		user, err := f.users.UpdateProfile(ctx, UpdateProfileInput{UserID: ada.ID, Bio: &blank})
		require.NoError(t, err)
		assert.Nil(t, user.Bio)
	})

	t.Run("email taken", func(t *testing.T) {
		taken := "grace@example.com"
		_, err := f.users.UpdateProfile(ctx, UpdateProfileInput{UserID: ada.ID, Email: &taken})
		assertCode(t, err, models.CodeConflict)
	})

	t.Run("bio too long", func(t *testing.T) {
		long := strings.Repeat("x", 501)
		_, err := f.users.UpdateProfile(ctx, UpdateProfileInput{UserID: ada.ID, Bio: &long})
		assertCode(t, err, models.CodeValidation)
	})
}

func TestUserService_ToggleFollowAndProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.register(t, "ada")
	bob := f.register(t, "bob")

	result, err := f.users.ToggleFollow(ctx, bob, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ActionFollowed, result.Action)
	assert.Equal(t, int64(1), result.Count)

	sent := f.notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, ada.ID, sent[0].UserID)
	assert.Equal(t, notifications.EventFollowed, sent[0].Event.Type)
	assert.Equal(t, "bob", sent[0].Event.Payload.ActorUsername)

	profile, err := f.users.Profile(ctx, "ada", bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), profile.FollowersCount)
	assert.Zero(t, profile.FollowingCount)
	assert.Zero(t, profile.PostsCount)
	assert.True(t, profile.IsFollowing)

	followers, err := f.users.Followers(ctx, ada.ID, ada.ID)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, "bob", followers[0].Username)

	result, err = f.users.ToggleFollow(ctx, bob, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ActionUnfollowed, result.Action)
	assert.Zero(t, result.Count)
	assert.Len(t, f.notifier.Sent(), 1, "unfollow does not notify")

	_, err = f.users.Profile(ctx, "nobody", 0)
	assert.True(t, models.IsNotFound(err))
}

func TestUserService_ToggleFollow_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.register(t, "ada")

	_, err := f.users.ToggleFollow(ctx, ada, ada.ID)
	assertCode(t, err, models.CodeValidation)
	assert.Contains(t, err.Error(), "You cannot follow yourself")

	_, err = f.users.ToggleFollow(ctx, ada, 9999)
	assert.True(t, models.IsNotFound(err))
	assert.Equal(t, "User not found", err.(*models.AppError).Message)
}

func TestUserService_Search(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "ada")
	bob := f.register(t, "bob")

	found, err := f.users.Search(ctx, "ADA", bob.ID)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "ada", found[0].Username)

	_, err = f.users.Search(ctx, "  ", bob.ID)
	assertCode(t, err, models.CodeValidation)
}

// failingUserRepo fails every lookup with a storage error.
type failingUserRepo struct {
	repository.UserRepository
}

func (failingUserRepo) GetByUsername(context.Context, string) (*models.User, error) {
	return nil, models.NewInternalError(errors.New("disk full"))
}

func TestUserService_Register_PropagatesStorageErrors(t *testing.T) {
	svc := NewUserService(failingUserRepo{}, nil, nil)
	_, err := svc.Register(context.Background(), RegisterInput{Username: "ada", Email: "ada@example.com", Password: "dreamer2024"})
	assertCode(t, err, models.CodeInternal)

	_, err = svc.Authenticate(context.Background(), "ada", "dreamer2024")
	assertCode(t, err, models.CodeInternal)
}
