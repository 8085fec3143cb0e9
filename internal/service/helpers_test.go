package service

import (
	"context"
	"sync"
	"testing"

	"github.com/rai-team-aiframe/dreamly/internal/database"
	"github.com/rai-team-aiframe/dreamly/internal/models"
	"github.com/rai-team-aiframe/dreamly/internal/notifications"
	"github.com/rai-team-aiframe/dreamly/internal/repository"
	"github.com/rai-team-aiframe/dreamly/internal/testutil"

	"github.com/stretchr/testify/require"
)

type sentEvent struct {
	UserID uint
	Event  notifications.Event
}

// recordingNotifier captures published events.
type recordingNotifier struct {
	mu     sync.Mutex
	events []sentEvent
}

func (n *recordingNotifier) Notify(_ context.Context, userID uint, ev notifications.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, sentEvent{UserID: userID, Event: ev})
	return nil
}

func (n *recordingNotifier) NotifyMany(ctx context.Context, userIDs []uint, ev notifications.Event) error {
	for _, id := range userIDs {
		_ = n.Notify(ctx, id, ev)
	}
	return nil
}

func (n *recordingNotifier) Sent() []sentEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentEvent(nil), n.events...)
}

type fixture struct {
	users     *UserService
	posts     *PostService
	generator *testutil.GeneratorStub
	notifier  *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, database.RunMigrations(context.Background(), db))

	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	postRepo := repository.NewPostRepository(db)

	f := &fixture{generator: testutil.NewGeneratorStub(), notifier: &recordingNotifier{}}
	f.users = NewUserService(userRepo, followRepo, f.notifier)
	f.posts = NewPostService(postRepo, followRepo, f.generator, f.notifier)
	return f
}

func (f *fixture) register(t *testing.T, username string) *models.User {
	t.Helper()
	user, err := f.users.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "dreamer2024",
	})
	require.NoError(t, err)
	return user
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, code, appErr.Code, appErr.Message)
}
