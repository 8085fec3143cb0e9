package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/rai-team-aiframe/dreamly/internal/models"
	"github.com/rai-team-aiframe/dreamly/internal/notifications"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listen serves the app on a random local port until the test ends.
func listen(t *testing.T, srv *Server) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.App().Listener(ln) }()
	t.Cleanup(func() { _ = srv.App().Shutdown() })
	return ln.Addr().String()
}

func dialNotifications(t *testing.T, addr, token string) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, resp, err := websocket.DefaultDialer.Dial("ws://"+addr+"/api/ws", header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// doLive sends a request to a listening server; app.Test must not run alongside Listener.
func doLive(t *testing.T, addr, method, path string, body any, token string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, "http://"+addr+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func readEvent(t *testing.T, conn *websocket.Conn) notifications.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev notifications.Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestWebsocketNotifications(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)
	app := srv.App()
	adaToken, adaID := signUp(t, app, "ada")
	graceToken, graceID := signUp(t, app, "grace")
	addr := listen(t, srv)

	conn := dialNotifications(t, addr, adaToken)
	require.Eventually(t, func() bool { return srv.hub.IsOnline(adaID) }, 2*time.Second, 10*time.Millisecond)

	resp := doLive(t, addr, http.MethodPost, fmt.Sprintf("/users/follow/%d", adaID), nil, graceToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ev := readEvent(t, conn)
	assert.Equal(t, notifications.EventFollowed, ev.Type)
	assert.Equal(t, graceID, ev.Payload.ActorID)
	assert.Equal(t, "grace", ev.Payload.ActorUsername)

	resp = doLive(t, addr, http.MethodPost, "/posts/", map[string]string{"prompt": "a lantern festival"}, adaToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	post := decodeJSON[models.Post](t, resp)
	resp = doLive(t, addr, http.MethodPost, fmt.Sprintf("/posts/like/%d", post.ID), nil, graceToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ev = readEvent(t, conn)
	assert.Equal(t, notifications.EventLiked, ev.Type)
	assert.Equal(t, post.ID, ev.Payload.PostID)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return !srv.hub.IsOnline(adaID) }, 2*time.Second, 10*time.Millisecond)
}

func TestWebsocketHubShutdownSendsGoingAway(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)
	adaToken, adaID := signUp(t, srv.App(), "ada")
	addr := listen(t, srv)

	conn := dialNotifications(t, addr, adaToken)
	require.Eventually(t, func() bool { return srv.hub.IsOnline(adaID) }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, srv.hub.Shutdown(context.Background()))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "unexpected read error: %v", err)
}

func TestWebsocketFollowerSeesNewPost(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)
	app := srv.App()
	adaToken, adaID := signUp(t, app, "ada")
	graceToken, graceID := signUp(t, app, "grace")
	resp := doRequest(t, app, http.MethodPost, fmt.Sprintf("/users/follow/%d", adaID), nil, graceToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	addr := listen(t, srv)

	conn := dialNotifications(t, addr, graceToken)
	require.Eventually(t, func() bool { return srv.hub.IsOnline(graceID) }, 2*time.Second, 10*time.Millisecond)

	resp = doLive(t, addr, http.MethodPost, "/posts/", map[string]string{"prompt": "a whale in the clouds"}, adaToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	post := decodeJSON[models.Post](t, resp)

	ev := readEvent(t, conn)
	assert.Equal(t, notifications.EventNewPost, ev.Type)
	assert.Equal(t, adaID, ev.Payload.ActorID)
	assert.Equal(t, post.ID, ev.Payload.PostID)
}

func TestWebsocketRequiresSession(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)
	addr := listen(t, srv)

	_, resp, err := websocket.DefaultDialer.Dial("ws://"+addr+"/api/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebsocketRequiresUpgrade(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)
	token, _ := signUp(t, srv.App(), "ada")

	resp := doRequest(t, srv.App(), http.MethodGet, "/api/ws", nil, token)
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}
