package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_NilSafe(t *testing.T) {
	var n *Notifier
	assert.NoError(t, n.Notify(context.Background(), 1, NewEvent(EventLiked, 2, "bob", 3)))

	n = NewNotifier(nil, nil)
	assert.NoError(t, n.Notify(context.Background(), 1, NewEvent(EventLiked, 2, "bob", 3)))
	assert.NoError(t, n.StartPatternSubscriber(context.Background(), func(string, string) {}))
}

func TestNotifier_LocalDelivery(t *testing.T) {
	hub := NewHub()
	client, err := hub.Register(7, nil)
	require.NoError(t, err)

	n := NewNotifier(nil, hub)
	require.NoError(t, n.NotifyMany(context.Background(), []uint{7, 8}, NewEvent(EventNewPost, 2, "bob", 42)))

	var ev Event
	require.NoError(t, json.Unmarshal(<-client.Send, &ev))
	assert.Equal(t, EventNewPost, ev.Type)
	assert.Equal(t, uint(2), ev.Payload.ActorID)
	assert.Equal(t, "bob", ev.Payload.ActorUsername)
	assert.Equal(t, uint(42), ev.Payload.PostID)
	_ = hub.Shutdown(context.Background())
}

func TestHub_StartWiringThroughRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	hub := NewHub()
	client, err := hub.Register(9, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := NewNotifier(rdb, hub)
	require.NoError(t, hub.StartWiring(ctx, n))
	require.NoError(t, n.Notify(ctx, 9, NewEvent(EventFollowed, 1, "ada", 0)))

	select {
	case msg := <-client.Send:
		var ev Event
		require.NoError(t, json.Unmarshal(msg, &ev))
		assert.Equal(t, EventFollowed, ev.Type)
		assert.Zero(t, ev.Payload.PostID)
	case <-time.After(testEventuallyTimeout):
		t.Fatal("notification was not delivered through redis")
	}
	_ = hub.Shutdown(context.Background())
}

func TestUserChannel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		userID   uint
		expected string
	}{
		{1, "notifications:user:1"},
		{100, "notifications:user:100"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, UserChannel(tt.userID))
		id, ok := ParseUserChannel(tt.expected)
		assert.True(t, ok)
		assert.Equal(t, tt.userID, id)
	}

	_, ok := ParseUserChannel("notifications:user:abc")
	assert.False(t, ok)
	_, ok = ParseUserChannel("chat:conv:1")
	assert.False(t, ok)
}
