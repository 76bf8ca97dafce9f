package search

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgFTS implements Searcher over PostgreSQL full-text search. It is the
// fallback when Meilisearch is unreachable; the primary store doubles
// as a serviceable text index via plainto_tsquery/ts_rank.
type PgFTS struct {
	pool *pgxpool.Pool
}

func NewPgFTS(pool *pgxpool.Pool) *PgFTS {
	return &PgFTS{pool: pool}
}

// Healthy always reports true — if Postgres is down, the whole app is.
func (p *PgFTS) Healthy() bool {
	return true
}

func (p *PgFTS) Search(ctx context.Context, q Query) ([]Hit, int, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	where := "to_tsvector('english', m.body) @@ plainto_tsquery('english', $1)"
	args := []any{q.Text}
	if q.ChannelID != "" {
		args = append(args, q.ChannelID)
		where += fmt.Sprintf(" AND m.channel_id = $%d", len(args))
	}

	var total int
	countSQL := "SELECT count(*) FROM messages m WHERE " + where
	if err := p.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	args = append(args, limit, offset)
	dataSQL := fmt.Sprintf(`
		SELECT m.id, m.channel_id,
			ts_headline('english', m.body, plainto_tsquery('english', $1),
				'StartSel=<mark>,StopSel=</mark>,MaxFragments=1,MaxWords=32') AS snippet
		FROM messages m
		WHERE %s
		ORDER BY ts_rank(to_tsvector('english', m.body), plainto_tsquery('english', $1)) DESC
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := p.pool.Query(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts search: %w", err)
	}
	defer rows.Close()

	hits := make([]Hit, 0)
	for rows.Next() {
		var hit Hit
		var id, channelID uuid.UUID
		if err := rows.Scan(&id, &channelID, &hit.Snippet); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		hit.MessageID = id
		hit.ChannelID = channelID
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgfts iterate: %w", err)
	}

	return hits, total, nil
}
