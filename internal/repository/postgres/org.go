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

type OrgStore struct {
	q querier
}

func NewOrgStore(pool *pgxpool.Pool) *OrgStore {
	return &OrgStore{q: pool}
}

func (s *OrgStore) Create(ctx context.Context, name string) (*models.Org, error) {
	query := `
		INSERT INTO orgs (id, name, created_at)
		VALUES (uuid_generate_v4(), $1, now())
		RETURNING id, name, created_at`

	var org models.Org
	err := s.q.QueryRow(ctx, query, name).Scan(
		&org.ID,
		&org.Name,
		&org.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert org: %w", err)
	}
	return &org, nil
}

func (s *OrgStore) GetByID(ctx context.Context, orgID uuid.UUID) (*models.Org, error) {
	query := `
		SELECT id, name, created_at
		FROM orgs
		WHERE id = $1`

	var org models.Org
	err := s.q.QueryRow(ctx, query, orgID).Scan(
		&org.ID,
		&org.Name,
		&org.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get org: %w", err)
	}
	return &org, nil
}
