package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

func TestHub_RegisterBroadcastUnregister(t *testing.T) {
	hub := NewHub()

	a, err := hub.Register(10, nil)
	require.NoError(t, err)
	b, err := hub.Register(10, nil)
	require.NoError(t, err)
	other, err := hub.Register(11, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, hub.ConnectionCount())
	assert.True(t, hub.IsOnline(10))

	hub.Broadcast(10, "hello")
	assert.Equal(t, "hello", string(<-a.Send))
	assert.Equal(t, "hello", string(<-b.Send))
	assert.Empty(t, other.Send)

	hub.UnregisterClient(a)
	hub.UnregisterClient(a)
	assert.Equal(t, 2, hub.ConnectionCount())
	assert.True(t, hub.IsOnline(10))

	hub.UnregisterClient(b)
	assert.False(t, hub.IsOnline(10))

	require.NoError(t, hub.Shutdown(context.Background()))
	assert.Zero(t, hub.ConnectionCount())

	_, err = hub.Register(12, nil)
	assert.ErrorIs(t, err, ErrServerConnLimit)
}

func TestHub_PerUserLimit(t *testing.T) {
	hub := NewHub()
	for i := 0; i < maxConnsPerUser; i++ {
		_, err := hub.Register(3, nil)
		require.NoError(t, err)
	}
	_, err := hub.Register(3, nil)
	assert.ErrorIs(t, err, ErrUserConnLimit)
	_ = hub.Shutdown(context.Background())
}

func TestClient_TrySendDropsWhenFull(t *testing.T) {
	hub := NewHub()
	client, err := hub.Register(5, nil)
	require.NoError(t, err)

	for i := 0; i < sendBuffer; i++ {
		client.TrySend([]byte("x"))
	}
	client.TrySend([]byte("overflow"))
	assert.Len(t, client.Send, sendBuffer)

	<-client.Send
	client.TrySend([]byte("overflow"))
	assert.Len(t, client.Send, sendBuffer)
	_ = hub.Shutdown(context.Background())
}

func TestHub_ShutdownSignalsClients(t *testing.T) {
	hub := NewHub()
	a, err := hub.Register(1, nil)
	require.NoError(t, err)
	b, err := hub.Register(2, nil)
	require.NoError(t, err)

	require.NoError(t, hub.Shutdown(context.Background()))
	require.NoError(t, hub.Shutdown(context.Background()))

	for _, c := range []*Client{a, b} {
		select {
		case <-c.closing:
		default:
			t.Fatalf("client %d not signalled", c.UserID)
		}
	}
	a.Close()
}
