package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/workstream-hq/workstream/internal/models"
	"github.com/workstream-hq/workstream/internal/repository"
)

type ChannelStore struct {
	q querier
}

func NewChannelStore(pool *pgxpool.Pool) *ChannelStore {
	return &ChannelStore{q: pool}
}

func (s *ChannelStore) Create(ctx context.Context, orgID uuid.UUID, name, description string, isSystem bool) (*models.Channel, error) {
	query := `
		INSERT INTO channels (id, org_id, name, description, is_system, created_at)
		VALUES (uuid_generate_v4(), $1, $2, $3, $4, now())
		RETURNING id, org_id, name, description, is_system, created_at`

	var ch models.Channel
	err := s.q.QueryRow(ctx, query, orgID, name, description, isSystem).Scan(
		&ch.ID,
		&ch.OrgID,
		&ch.Name,
		&ch.Description,
		&ch.IsSystem,
		&ch.CreatedAt,
	)
	if err != nil {
		// 23505 on uq_channels_org_name = the per-org name collision.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, repository.ErrDuplicateChannelName
		}
		return nil, fmt.Errorf("insert channel: %w", err)
	}
	return &ch, nil
}

func (s *ChannelStore) GetByID(ctx context.Context, orgID, channelID uuid.UUID) (*models.Channel, error) {
	query := `
		SELECT id, org_id, name, description, is_system, created_at
		FROM channels
		WHERE id = $1 AND org_id = $2`

	var ch models.Channel
	err := s.q.QueryRow(ctx, query, channelID, orgID).Scan(
		&ch.ID,
		&ch.OrgID,
		&ch.Name,
		&ch.Description,
		&ch.IsSystem,
		&ch.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get channel: %w", err)
	}
	return &ch, nil
}

func (s *ChannelStore) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]models.Channel, error) {
	query := `
		SELECT id, org_id, name, description, is_system, created_at
		FROM channels
		WHERE org_id = $1
		ORDER BY name`

	rows, err := s.q.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	channels := make([]models.Channel, 0)
	for rows.Next() {
		var ch models.Channel
		if err := rows.Scan(
			&ch.ID,
			&ch.OrgID,
			&ch.Name,
			&ch.Description,
			&ch.IsSystem,
			&ch.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		channels = append(channels, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channels: %w", err)
	}

	return channels, nil
}
