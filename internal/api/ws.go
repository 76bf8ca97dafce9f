package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/workstream-hq/workstream/internal/events"
	"github.com/workstream-hq/workstream/internal/middleware"
)

const wsWriteTimeout = 10 * time.Second

// WSHandler serves the same registry feed over a WebSocket for clients
// that can't hold an SSE stream. Each socket is an ordinary registry
// connection; frames carry the serialized events verbatim, so the
// protocol (presence first, heartbeats on idle) is identical to
// GET /v1/events.
type WSHandler struct {
	registry *events.Registry
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewWSHandler(registry *events.Registry, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger,
	}
}

// Stream handles GET /v1/events/ws
func (h *WSHandler) Stream(c *gin.Context) {
	userID := middleware.GetUserID(c)
	orgID := middleware.GetOrgID(c)
	displayName := middleware.GetDisplayName(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	connID := uuid.New()
	outbox := h.registry.Connect(connID, userID, orgID)
	defer h.registry.Disconnect(connID, userID)

	presence, err := events.FormatEvent(events.EventPresenceUpdate, gin.H{
		"user_id":      userID.String(),
		"display_name": displayName,
		"status":       "online",
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		h.logger.Error("format presence event", zap.Error(err))
		return
	}
	if !h.writeFrame(conn, presence) {
		return
	}

	// Read pump: we never expect client frames, but reading is how the
	// peer's close (or death) is detected.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	idle := time.NewTimer(heartbeatInterval)
	defer idle.Stop()

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return

		case msg := <-outbox:
			if !h.writeFrame(conn, msg) {
				return
			}
			if !idle.Stop() {
				<-idle.C
			}
			idle.Reset(heartbeatInterval)

		case <-idle.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			idle.Reset(heartbeatInterval)
		}
	}
}

func (h *WSHandler) writeFrame(conn *websocket.Conn, frame string) bool {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		h.logger.Debug("websocket write failed", zap.Error(err))
		return false
	}
	return true
}
