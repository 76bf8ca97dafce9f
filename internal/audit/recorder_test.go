package audit

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/workstream-hq/workstream/internal/apperr"
	"github.com/workstream-hq/workstream/internal/models"
	"github.com/workstream-hq/workstream/internal/repository"
)

type captureLogs struct {
	repository.AuditLogRepository
	inserted []*models.AuditLog
	err      error
}

func (c *captureLogs) Insert(_ context.Context, log *models.AuditLog) error {
	if c.err != nil {
		return c.err
	}
	c.inserted = append(c.inserted, log)
	return nil
}

func TestDiffReportsOnlyChangedFields(t *testing.T) {
	before := map[string]any{"body": "old", "version": 1, "user_id": "u1"}
	after := map[string]any{"body": "new", "version": 2, "user_id": "u1"}

	oldValues, newValues := Diff(before, after)

	assert.Equal(t, map[string]any{"body": "old", "version": 1}, oldValues)
	assert.Equal(t, map[string]any{"body": "new", "version": 2}, newValues)
}

func TestDiffIdenticalSnapshotsIsEmpty(t *testing.T) {
	snap := map[string]any{"body": "same", "version": 1}

	oldValues, newValues := Diff(snap, map[string]any{"body": "same", "version": 1})

	assert.Nil(t, oldValues)
	assert.Nil(t, newValues)
}

func TestDiffNewFieldCountsAsChanged(t *testing.T) {
	oldValues, newValues := Diff(
		map[string]any{"body": "x"},
		map[string]any{"body": "x", "edited_at": "2025-06-01T00:00:00Z"},
	)

	assert.Equal(t, map[string]any{"edited_at": nil}, oldValues)
	assert.Equal(t, map[string]any{"edited_at": "2025-06-01T00:00:00Z"}, newValues)
}

func TestRecordCreateWritesFullSnapshot(t *testing.T) {
	logs := &captureLogs{}
	rec := NewRecorder(zap.NewNop())
	entry := Entry{
		EntityType: "message",
		EntityID:   uuid.New(),
		UserID:     uuid.New(),
		OrgID:      uuid.New(),
		Meta: &RequestMeta{
			Endpoint:  "POST /v1/messages",
			UserAgent: "test-agent",
			IPAddress: "10.0.0.1",
		},
	}

	err := rec.RecordCreate(context.Background(), logs, entry, map[string]any{"body": "hi", "version": 1})
	require.NoError(t, err)
	require.Len(t, logs.inserted, 1)

	row := logs.inserted[0]
	assert.Equal(t, ActionCreate, row.Action)
	assert.Nil(t, row.OldValues)
	assert.Equal(t, map[string]any{"body": "hi", "version": 1}, row.NewValues)
	assert.Equal(t, "POST /v1/messages", row.Endpoint)
	assert.Equal(t, "10.0.0.1", row.IPAddress)
}

func TestRecordUpdateNoChangeWritesNothing(t *testing.T) {
	logs := &captureLogs{}
	rec := NewRecorder(zap.NewNop())
	snap := map[string]any{"body": "same"}

	err := rec.RecordUpdate(context.Background(), logs, Entry{
		EntityType: "message",
		EntityID:   uuid.New(),
		UserID:     uuid.New(),
		OrgID:      uuid.New(),
	}, snap, map[string]any{"body": "same"})

	require.NoError(t, err)
	assert.Empty(t, logs.inserted)
}

func TestRecordRejectsInvalidEntityType(t *testing.T) {
	logs := &captureLogs{}
	rec := NewRecorder(zap.NewNop())

	err := rec.RecordCreate(context.Background(), logs, Entry{
		EntityType: "   ",
		EntityID:   uuid.New(),
		UserID:     uuid.New(),
		OrgID:      uuid.New(),
	}, map[string]any{"a": 1})

	require.Error(t, err)
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, 400, appErr.Status)
	assert.Empty(t, logs.inserted)
}

func TestRecordPropagatesInsertError(t *testing.T) {
	logs := &captureLogs{err: assert.AnError}
	rec := NewRecorder(zap.NewNop())

	err := rec.RecordCreate(context.Background(), logs, Entry{
		EntityType: "message",
		EntityID:   uuid.New(),
		UserID:     uuid.New(),
		OrgID:      uuid.New(),
	}, map[string]any{"a": 1})

	assert.ErrorIs(t, err, assert.AnError)
}

func TestMetaFromRequestPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest("PATCH", "/v1/messages/abc", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	req.Header.Set("X-Real-IP", "10.0.0.2")
	req.Header.Set("User-Agent", "client/1.0")

	meta := MetaFromRequest(req)

	require.NotNil(t, meta)
	assert.Equal(t, "PATCH /v1/messages/abc", meta.Endpoint)
	assert.Equal(t, "203.0.113.7", meta.IPAddress)
	assert.Equal(t, "client/1.0", meta.UserAgent)
}

func TestMetaFromRequestFallsBackToRemoteAddr(t *testing.T) {
	req := httptest.NewRequest("POST", "/v1/messages", nil)
	req.RemoteAddr = "192.0.2.9:54321"

	meta := MetaFromRequest(req)

	require.NotNil(t, meta)
	assert.Equal(t, "192.0.2.9", meta.IPAddress)
}
