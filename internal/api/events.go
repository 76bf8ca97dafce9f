package api

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/workstream-hq/workstream/internal/events"
	"github.com/workstream-hq/workstream/internal/middleware"
)

// heartbeatInterval is how long a stream may sit idle before a
// keep-alive comment goes out.
const heartbeatInterval = 15 * time.Second

// EventsHandler serves GET /v1/events as a server-sent event stream.
//
// Per-connection lifecycle: register with the registry, emit the
// presence event, then loop on "next event or idle timeout" until the
// client goes away. Disconnect is deferred, so the registry entry is
// released on every exit path — cancellation, write error, shutdown.
type EventsHandler struct {
	registry  *events.Registry
	heartbeat time.Duration
	logger    *zap.Logger
}

func NewEventsHandler(registry *events.Registry, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{
		registry:  registry,
		heartbeat: heartbeatInterval,
		logger:    logger,
	}
}

// Stream handles GET /v1/events
func (h *EventsHandler) Stream(c *gin.Context) {
	userID := middleware.GetUserID(c)
	orgID := middleware.GetOrgID(c)
	displayName := middleware.GetDisplayName(c)

	connID := uuid.New()
	outbox := h.registry.Connect(connID, userID, orgID)
	defer h.registry.Disconnect(connID, userID)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	// The presence event goes out before anything is read from the
	// outbox — the first thing a subscriber ever receives.
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
	if !h.write(c, presence) {
		return
	}

	ctx := c.Request.Context()
	idle := time.NewTimer(h.heartbeat)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			// Client disconnect or server shutdown. The deferred
			// Disconnect cleans up the registry.
			return

		case msg := <-outbox:
			if !h.write(c, msg) {
				return
			}
			if !idle.Stop() {
				<-idle.C
			}
			idle.Reset(h.heartbeat)

		case <-idle.C:
			if !h.write(c, events.Heartbeat(time.Now())) {
				return
			}
			idle.Reset(h.heartbeat)
		}
	}
}

// write sends one frame and flushes it to the wire. A write error means
// the peer is gone; the caller should exit.
func (h *EventsHandler) write(c *gin.Context, frame string) bool {
	if _, err := io.WriteString(c.Writer, frame); err != nil {
		h.logger.Debug("event stream write failed", zap.Error(err))
		return false
	}
	c.Writer.Flush()
	return true
}
