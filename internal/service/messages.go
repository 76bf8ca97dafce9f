// Package service holds the domain orchestration: thread and edit
// invariants, audit coupling, and post-commit event fan-out. Services
// are the only writers of their entities.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/workstream-hq/workstream/internal/apperr"
	"github.com/workstream-hq/workstream/internal/audit"
	"github.com/workstream-hq/workstream/internal/events"
	"github.com/workstream-hq/workstream/internal/models"
	"github.com/workstream-hq/workstream/internal/repository"
	"github.com/workstream-hq/workstream/internal/search"
)

// MaxBodyLen bounds a message body in characters.
const MaxBodyLen = 10000

// Broadcaster is the slice of the connection registry the services
// need. Everything a mutation emits is scoped to one org.
type Broadcaster interface {
	BroadcastToOrg(orgID uuid.UUID, eventType string, data any)
}

// MessageIndexer pushes committed messages into the text index,
// asynchronously and best-effort.
type MessageIndexer interface {
	IndexMessage(rec search.Record)
}

// MessageService enforces thread and edit invariants. It is the sole
// writer of message rows; every mutation commits its audit entry in the
// same transaction and broadcasts to the author's org after commit.
type MessageService struct {
	store       repository.TxRunner
	channels    repository.ChannelRepository
	messages    repository.MessageRepository
	audit       *audit.Recorder
	broadcaster Broadcaster
	indexer     MessageIndexer
	logger      *zap.Logger
}

func NewMessageService(
	store repository.TxRunner,
	channels repository.ChannelRepository,
	messages repository.MessageRepository,
	recorder *audit.Recorder,
	broadcaster Broadcaster,
	indexer MessageIndexer,
	logger *zap.Logger,
) *MessageService {
	return &MessageService{
		store:       store,
		channels:    channels,
		messages:    messages,
		audit:       recorder,
		broadcaster: broadcaster,
		indexer:     indexer,
		logger:      logger,
	}
}

// CreateMessageInput carries one create request. ThreadID nil means a
// new root message (which anchors a new thread).
type CreateMessageInput struct {
	ChannelID uuid.UUID
	UserID    uuid.UUID
	OrgID     uuid.UUID
	ThreadID  *uuid.UUID
	Body      string
	Meta      *audit.RequestMeta
}

// Create posts a message or a reply.
//
// A root message needs two writes — the id is unknown until the insert
// returns, then thread_id is pointed back at it. Both writes share one
// transaction, so no reader ever observes the intermediate null thread.
func (s *MessageService) Create(ctx context.Context, in CreateMessageInput) (*models.Message, error) {
	body, err := validateBody(in.Body)
	if err != nil {
		return nil, err
	}

	channel, err := s.channels.GetByID(ctx, in.OrgID, in.ChannelID)
	if err != nil {
		return nil, err
	}
	if channel == nil {
		return nil, apperr.NotFound("Channel not found")
	}

	if in.ThreadID != nil {
		root, err := s.messages.GetInChannel(ctx, *in.ThreadID, in.ChannelID)
		if err != nil {
			return nil, err
		}
		if root == nil {
			return nil, apperr.NotFound("Thread not found in this channel")
		}
	}

	var msg *models.Message
	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		msg, err = tx.Messages().Insert(ctx, in.ChannelID, in.UserID, in.ThreadID, body)
		if err != nil {
			return err
		}

		if in.ThreadID == nil {
			if err := tx.Messages().SetThread(ctx, msg.ID, msg.ID); err != nil {
				return err
			}
			msg.ThreadID = msg.ID
		}

		return s.audit.RecordCreate(ctx, tx.AuditLogs(), audit.Entry{
			EntityType: "message",
			EntityID:   msg.ID,
			UserID:     in.UserID,
			OrgID:      in.OrgID,
			Meta:       in.Meta,
		}, messageFields(msg))
	})
	if err != nil {
		return nil, err
	}

	// Causally after commit: subscribers and the index only ever see
	// durable messages.
	s.broadcaster.BroadcastToOrg(in.OrgID, events.EventNewMessage, messageFields(msg))
	s.indexer.IndexMessage(search.Record{
		ID:        msg.ID.String(),
		ChannelID: msg.ChannelID.String(),
		Body:      msg.Body,
	})

	return msg, nil
}

// EditMessageInput carries one edit request. ExpectedVersion is the
// version the editor last saw.
type EditMessageInput struct {
	MessageID       uuid.UUID
	UserID          uuid.UUID
	OrgID           uuid.UUID
	Body            string
	ExpectedVersion int
	Meta            *audit.RequestMeta
}

// Edit applies an optimistic-concurrency edit: the caller's expected
// version must match the stored one, exactly one racer per version
// value wins, and the loser gets the current version back to refetch
// and retry. There is no merge.
func (s *MessageService) Edit(ctx context.Context, in EditMessageInput) (*models.Message, error) {
	body, err := validateBody(in.Body)
	if err != nil {
		return nil, err
	}

	var updated *models.Message
	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		msg, err := tx.Messages().GetForOrg(ctx, in.MessageID, in.OrgID)
		if err != nil {
			return err
		}
		if msg == nil {
			// Uniform 404 whether the message is absent or belongs to
			// another org.
			return apperr.NotFound("Message not found")
		}
		if msg.UserID != in.UserID {
			return apperr.Forbidden("You can only edit your own messages")
		}
		if msg.Version != in.ExpectedVersion {
			return apperr.VersionConflict(msg.Version)
		}

		updated, err = tx.Messages().UpdateBody(ctx, in.MessageID, body, in.ExpectedVersion)
		if err != nil {
			return err
		}
		if updated == nil {
			// Lost a race between our read and the conditional update.
			// Re-read for the current version the caller needs.
			current, err := tx.Messages().GetForOrg(ctx, in.MessageID, in.OrgID)
			if err != nil {
				return err
			}
			if current == nil {
				return apperr.NotFound("Message not found")
			}
			return apperr.VersionConflict(current.Version)
		}

		return s.audit.RecordUpdate(ctx, tx.AuditLogs(), audit.Entry{
			EntityType: "message",
			EntityID:   updated.ID,
			UserID:     in.UserID,
			OrgID:      in.OrgID,
			Meta:       in.Meta,
		}, messageFields(msg), messageFields(updated))
	})
	if err != nil {
		return nil, err
	}

	s.broadcaster.BroadcastToOrg(in.OrgID, events.EventMessageUpdated, messageFields(updated))
	s.indexer.IndexMessage(search.Record{
		ID:        updated.ID.String(),
		ChannelID: updated.ChannelID.String(),
		Body:      updated.Body,
	})

	return updated, nil
}

// ListThread returns a thread's messages in creation order, paginated.
func (s *MessageService) ListThread(ctx context.Context, orgID, channelID, threadID uuid.UUID, limit, offset int) ([]models.Message, error) {
	channel, err := s.channels.GetByID(ctx, orgID, channelID)
	if err != nil {
		return nil, err
	}
	if channel == nil {
		return nil, apperr.NotFound("Channel not found")
	}

	root, err := s.messages.GetInChannel(ctx, threadID, channelID)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, apperr.NotFound("Thread not found in this channel")
	}

	return s.messages.ListThread(ctx, channelID, threadID, limit, offset)
}

func validateBody(body string) (string, error) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return "", apperr.Validation("Message body cannot be empty or only whitespace")
	}
	if len(trimmed) > MaxBodyLen {
		return "", apperr.Validation("Message body cannot exceed %d characters", MaxBodyLen)
	}
	return trimmed, nil
}

// messageFields is the message's flat audit/event snapshot: identifiers
// as strings, timestamps as ISO-8601, matching the wire representation.
func messageFields(m *models.Message) map[string]any {
	var editedAt any
	if m.EditedAt != nil {
		editedAt = m.EditedAt.UTC().Format(time.RFC3339)
	}
	var threadID any
	if m.ThreadID != uuid.Nil {
		threadID = m.ThreadID.String()
	}
	return map[string]any{
		"id":         m.ID.String(),
		"channel_id": m.ChannelID.String(),
		"user_id":    m.UserID.String(),
		"thread_id":  threadID,
		"body":       m.Body,
		"version":    m.Version,
		"created_at": m.CreatedAt.UTC().Format(time.RFC3339),
		"edited_at":  editedAt,
	}
}
