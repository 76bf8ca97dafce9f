// Package events is the real-time distribution core: a registry of live
// event-stream subscribers with per-connection bounded outboxes,
// org-scoped fan-out, and the SSE wire format.
package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event type names on the wire.
const (
	EventNewMessage     = "newMessage"
	EventMessageUpdated = "messageUpdated"
	EventPresenceUpdate = "presenceUpdate"
)

// OutboxCapacity bounds each connection's undelivered-event queue. A
// full outbox drops new deliveries for that connection only — slow
// consumers never block the broadcaster or their neighbors.
const OutboxCapacity = 100

// Registry tracks live subscribers. It is an explicitly constructed
// instance, not a package singleton: main wires the same registry into
// both the stream handlers and the mutation services, and tests build
// their own.
//
// All three maps are guarded by mu. Broadcasts snapshot the eligible
// outboxes under the read lock and enqueue after releasing it, so a
// concurrent connect/disconnect can neither corrupt iteration nor
// receive a half-registered delivery.
type Registry struct {
	mu          sync.RWMutex
	connections map[uuid.UUID]chan string   // connection -> outbox
	userConns   map[uuid.UUID][]uuid.UUID   // user -> connections
	connOrgs    map[uuid.UUID]uuid.UUID     // connection -> org
	logger      *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		connections: make(map[uuid.UUID]chan string),
		userConns:   make(map[uuid.UUID][]uuid.UUID),
		connOrgs:    make(map[uuid.UUID]uuid.UUID),
		logger:      logger,
	}
}

// Connect registers a new connection and returns its outbox for the
// caller to drain. The caller owns the connection's lifecycle and must
// call Disconnect on every exit path.
func (r *Registry) Connect(connID, userID, orgID uuid.UUID) <-chan string {
	outbox := make(chan string, OutboxCapacity)

	r.mu.Lock()
	r.connections[connID] = outbox
	r.userConns[userID] = append(r.userConns[userID], connID)
	r.connOrgs[connID] = orgID
	r.mu.Unlock()

	r.logger.Info("event stream connected",
		zap.String("connection_id", connID.String()),
		zap.String("user_id", userID.String()),
		zap.String("org_id", orgID.String()),
	)
	return outbox
}

// Disconnect removes a connection from every index. Buffered but
// undelivered events are discarded with the queue. Safe to call when
// the connection is already gone — the second call is a no-op.
func (r *Registry) Disconnect(connID, userID uuid.UUID) {
	r.mu.Lock()
	_, existed := r.connections[connID]
	delete(r.connections, connID)
	delete(r.connOrgs, connID)

	if conns, ok := r.userConns[userID]; ok {
		remaining := conns[:0]
		for _, id := range conns {
			if id != connID {
				remaining = append(remaining, id)
			}
		}
		if len(remaining) == 0 {
			delete(r.userConns, userID)
		} else {
			r.userConns[userID] = remaining
		}
	}
	r.mu.Unlock()

	if existed {
		r.logger.Info("event stream disconnected",
			zap.String("connection_id", connID.String()),
			zap.String("user_id", userID.String()),
		)
	}
}

// ConnectionCount reports the number of live connections.
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}

type target struct {
	connID uuid.UUID
	outbox chan string
}

// BroadcastToOrg delivers an event to every connection registered under
// orgID, in registration-snapshot order.
func (r *Registry) BroadcastToOrg(orgID uuid.UUID, eventType string, data any) {
	r.mu.RLock()
	targets := make([]target, 0, len(r.connections))
	for connID, connOrg := range r.connOrgs {
		if connOrg != orgID {
			continue
		}
		if outbox, ok := r.connections[connID]; ok {
			targets = append(targets, target{connID, outbox})
		}
	}
	r.mu.RUnlock()

	r.deliver(targets, eventType, data)
}

// BroadcastToUser delivers an event to every connection a user holds.
func (r *Registry) BroadcastToUser(userID uuid.UUID, eventType string, data any) {
	r.mu.RLock()
	conns := r.userConns[userID]
	targets := make([]target, 0, len(conns))
	for _, connID := range conns {
		if outbox, ok := r.connections[connID]; ok {
			targets = append(targets, target{connID, outbox})
		}
	}
	r.mu.RUnlock()

	r.deliver(targets, eventType, data)
}

// BroadcastToAll delivers an event to every live connection regardless
// of org. Reserved for system-wide notices; org events go through
// BroadcastToOrg.
func (r *Registry) BroadcastToAll(eventType string, data any) {
	r.mu.RLock()
	targets := make([]target, 0, len(r.connections))
	for connID, outbox := range r.connections {
		targets = append(targets, target{connID, outbox})
	}
	r.mu.RUnlock()

	r.deliver(targets, eventType, data)
}

// deliver enqueues one formatted event onto each target outbox. The
// send never blocks: a full outbox drops that delivery, logged and
// skipped — a broadcast must never stall a mutation.
func (r *Registry) deliver(targets []target, eventType string, data any) {
	if len(targets) == 0 {
		return
	}

	message, err := FormatEvent(eventType, data)
	if err != nil {
		r.logger.Error("failed to format event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	for _, t := range targets {
		select {
		case t.outbox <- message:
		default:
			r.logger.Warn("outbox full, dropping event",
				zap.String("connection_id", t.connID.String()),
				zap.String("event_type", eventType),
			)
		}
	}
}

// FormatEvent serializes a named event in SSE framing:
// "event: <type>\ndata: <json>\n\n".
func FormatEvent(eventType string, data any) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal event payload: %w", err)
	}
	return fmt.Sprintf("event: %s\ndata: %s\n\n", eventType, payload), nil
}

// Heartbeat formats the keep-alive notice sent on idle streams. It is
// an SSE comment line — no event or data field — so clients ignore it
// while proxies see traffic.
func Heartbeat(now time.Time) string {
	return fmt.Sprintf(": heartbeat %s\n\n", now.UTC().Format(time.RFC3339))
}
