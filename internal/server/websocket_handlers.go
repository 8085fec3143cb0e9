package server

import (
	"encoding/json"

	"github.com/rai-team-aiframe/dreamly/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebsocketHandler streams follow, like and new-post notifications to the caller.
// The auth gate has already verified the session on the upgrade request.
// @Summary Notification stream
// @Tags realtime
// @Router /api/ws [get]
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		uid, ok := conn.Locals("userID").(uint)
		if !ok || uid == 0 {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		// Register connection with scaling guardrails
		client, err := s.hub.Register(uid, conn)
		if err != nil {
			middleware.Logger.Warn("websocket registration refused", "user_id", uid, "error", err)
			msg, _ := json.Marshal(map[string]string{"error": err.Error()})
			_ = conn.WriteMessage(websocket.TextMessage, msg)
			_ = conn.Close()
			return
		}
		defer s.hub.UnregisterClient(client)

		// Start pumps; the handler must not return while the writer still uses conn.
		stop := make(chan struct{})
		writerDone := make(chan struct{})
		go func() {
			client.WritePump(stop)
			close(writerDone)
		}()
		client.ReadPump()
		close(stop)
		<-writerDone
	})
}
