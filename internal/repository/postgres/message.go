package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/workstream-hq/workstream/internal/models"
)

type MessageStore struct {
	q querier
}

func NewMessageStore(pool *pgxpool.Pool) *MessageStore {
	return &MessageStore{q: pool}
}

const messageColumns = `id, channel_id, user_id, thread_id, body, version, edited_at, created_at`

// scanMessage reads one message row. thread_id is nullable in the
// schema (a root message is inserted before its self-reference exists),
// but the null is only ever visible inside the creating transaction —
// externally ThreadID is always set.
func scanMessage(row pgx.Row) (*models.Message, error) {
	var m models.Message
	var threadID *uuid.UUID
	err := row.Scan(
		&m.ID,
		&m.ChannelID,
		&m.UserID,
		&threadID,
		&m.Body,
		&m.Version,
		&m.EditedAt,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if threadID != nil {
		m.ThreadID = *threadID
	}
	return &m, nil
}

func (s *MessageStore) GetForOrg(ctx context.Context, messageID, orgID uuid.UUID) (*models.Message, error) {
	// The join enforces tenancy: a message is only visible if its
	// channel belongs to the caller's org.
	query := `
		SELECT m.id, m.channel_id, m.user_id, m.thread_id, m.body, m.version, m.edited_at, m.created_at
		FROM messages m
		JOIN channels c ON c.id = m.channel_id
		WHERE m.id = $1 AND c.org_id = $2`

	msg, err := scanMessage(s.q.QueryRow(ctx, query, messageID, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get message: %w", err)
	}
	return msg, nil
}

func (s *MessageStore) GetInChannel(ctx context.Context, messageID, channelID uuid.UUID) (*models.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE id = $1 AND channel_id = $2`

	msg, err := scanMessage(s.q.QueryRow(ctx, query, messageID, channelID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get message in channel: %w", err)
	}
	return msg, nil
}

func (s *MessageStore) ListThread(ctx context.Context, channelID, threadID uuid.UUID, limit, offset int) ([]models.Message, error) {
	// seq is a plain identity column used only for ordering: created_at
	// has finite resolution, so ties are broken by insertion sequence.
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE channel_id = $1 AND thread_id = $2
		ORDER BY created_at ASC, seq ASC
		LIMIT $3 OFFSET $4`

	rows, err := s.q.Query(ctx, query, channelID, threadID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list thread: %w", err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate thread: %w", err)
	}

	return messages, nil
}

func (s *MessageStore) Insert(ctx context.Context, channelID, userID uuid.UUID, threadID *uuid.UUID, body string) (*models.Message, error) {
	query := `
		INSERT INTO messages (id, channel_id, user_id, thread_id, body, version, created_at)
		VALUES (uuid_generate_v4(), $1, $2, $3, $4, 1, now())
		RETURNING ` + messageColumns

	msg, err := scanMessage(s.q.QueryRow(ctx, query, channelID, userID, threadID, body))
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

func (s *MessageStore) SetThread(ctx context.Context, messageID, threadID uuid.UUID) error {
	tag, err := s.q.Exec(ctx,
		`UPDATE messages SET thread_id = $2 WHERE id = $1`,
		messageID, threadID)
	if err != nil {
		return fmt.Errorf("set thread: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("set thread: message %s not found", messageID)
	}
	return nil
}

func (s *MessageStore) UpdateBody(ctx context.Context, messageID uuid.UUID, body string, expectedVersion int) (*models.Message, error) {
	// The version predicate IS the optimistic lock: of two racing
	// editors with the same expected version, only one UPDATE matches a
	// row; the loser sees no rows and surfaces a conflict upstream.
	query := `
		UPDATE messages
		SET body = $2, version = version + 1, edited_at = now()
		WHERE id = $1 AND version = $3
		RETURNING ` + messageColumns

	msg, err := scanMessage(s.q.QueryRow(ctx, query, messageID, body, expectedVersion))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("update message: %w", err)
	}
	return msg, nil
}
