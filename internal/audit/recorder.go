// Package audit computes field-level diffs and writes the audit trail.
//
// Entities are handed in as flat field maps — values already normalized
// to JSON-safe primitives (identifiers as strings, timestamps as
// ISO-8601). Each entity type owns a pure snapshot function; the engine
// diffs the maps generically and never reflects over structs.
package audit

import (
	"context"
	"net/http"
	"reflect"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/workstream-hq/workstream/internal/apperr"
	"github.com/workstream-hq/workstream/internal/models"
	"github.com/workstream-hq/workstream/internal/repository"
)

const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionSearch = "search"

	maxEntityTypeLen = 50
)

var validActions = map[string]bool{
	ActionCreate: true,
	ActionUpdate: true,
	ActionDelete: true,
	ActionSearch: true,
}

// RequestMeta is the request context captured alongside a mutation.
type RequestMeta struct {
	Endpoint  string
	UserAgent string
	IPAddress string
}

// MetaFromRequest extracts audit metadata from an HTTP request. The
// client IP prefers the first hop of X-Forwarded-For, then X-Real-IP,
// then the raw peer address.
func MetaFromRequest(r *http.Request) *RequestMeta {
	if r == nil {
		return nil
	}
	return &RequestMeta{
		Endpoint:  r.Method + " " + r.URL.Path,
		UserAgent: r.UserAgent(),
		IPAddress: clientIP(r),
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.SplitN(forwarded, ",", 2)[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return host
}

// Entry identifies what changed and who changed it.
type Entry struct {
	EntityType string
	EntityID   uuid.UUID
	UserID     uuid.UUID
	OrgID      uuid.UUID
	Meta       *RequestMeta
}

// Recorder stages audit rows. It is handed a transaction-bound
// repository by the caller, so the row commits with the mutation it
// documents — or not at all.
type Recorder struct {
	logger *zap.Logger
}

func NewRecorder(logger *zap.Logger) *Recorder {
	return &Recorder{logger: logger}
}

// RecordCreate writes a "create" entry carrying the full new snapshot.
func (r *Recorder) RecordCreate(ctx context.Context, logs repository.AuditLogRepository, e Entry, newValues map[string]any) error {
	return r.record(ctx, logs, e, ActionCreate, nil, newValues)
}

// RecordUpdate diffs the before/after snapshots and writes an "update"
// entry with only the changed fields. If nothing changed, no row is
// written — an empty diff is a no-op, not an error.
func (r *Recorder) RecordUpdate(ctx context.Context, logs repository.AuditLogRepository, e Entry, before, after map[string]any) error {
	oldValues, newValues := Diff(before, after)
	if len(oldValues) == 0 && len(newValues) == 0 {
		return nil
	}
	return r.record(ctx, logs, e, ActionUpdate, oldValues, newValues)
}

func (r *Recorder) record(ctx context.Context, logs repository.AuditLogRepository, e Entry, action string, oldValues, newValues map[string]any) error {
	if err := validate(e.EntityType, action); err != nil {
		return err
	}

	log := &models.AuditLog{
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		UserID:     e.UserID,
		OrgID:      e.OrgID,
		Action:     action,
		OldValues:  oldValues,
		NewValues:  newValues,
	}
	if e.Meta != nil {
		log.Endpoint = e.Meta.Endpoint
		log.UserAgent = e.Meta.UserAgent
		log.IPAddress = e.Meta.IPAddress
	}

	if err := logs.Insert(ctx, log); err != nil {
		// Not swallowed: the caller's transaction must abort. A
		// mutation without its audit row never commits.
		return err
	}

	r.logger.Debug("audit entry staged",
		zap.String("entity_type", e.EntityType),
		zap.String("entity_id", e.EntityID.String()),
		zap.String("action", action),
	)
	return nil
}

// Diff compares two flat snapshots and returns only the fields whose
// value changed. Fields present in after but absent from before count
// as changed (old side nil), matching how snapshots gain fields over
// time.
func Diff(before, after map[string]any) (oldValues, newValues map[string]any) {
	oldValues = map[string]any{}
	newValues = map[string]any{}

	for field, newValue := range after {
		oldValue, ok := before[field]
		if !ok || !reflect.DeepEqual(oldValue, newValue) {
			oldValues[field] = oldValue
			newValues[field] = newValue
		}
	}

	if len(oldValues) == 0 {
		return nil, nil
	}
	return oldValues, newValues
}

func validate(entityType, action string) error {
	if !validActions[action] {
		return apperr.InvalidAudit("invalid action %q: must be one of create, update, delete, search", action)
	}
	if strings.TrimSpace(entityType) == "" {
		return apperr.InvalidAudit("entity type cannot be empty")
	}
	if len(entityType) > maxEntityTypeLen {
		return apperr.InvalidAudit("entity type cannot exceed %d characters", maxEntityTypeLen)
	}
	return nil
}
