package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/workstream-hq/workstream/internal/models"
	"github.com/workstream-hq/workstream/internal/repository"
)

type AuditLogStore struct {
	q querier
}

func NewAuditLogStore(pool *pgxpool.Pool) *AuditLogStore {
	return &AuditLogStore{q: pool}
}

func (s *AuditLogStore) Insert(ctx context.Context, log *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs
			(id, entity_type, entity_id, user_id, org_id, action, old_values, new_values, endpoint, user_agent, ip_address, created_at)
		VALUES (uuid_generate_v4(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		RETURNING id, created_at`

	// nil maps become SQL NULL, not the JSON literal "null".
	var oldValues, newValues any
	if log.OldValues != nil {
		oldValues = log.OldValues
	}
	if log.NewValues != nil {
		newValues = log.NewValues
	}

	err := s.q.QueryRow(ctx, query,
		log.EntityType,
		log.EntityID,
		log.UserID,
		log.OrgID,
		log.Action,
		oldValues,
		newValues,
		nullIfEmpty(log.Endpoint),
		nullIfEmpty(log.UserAgent),
		nullIfEmpty(log.IPAddress),
	).Scan(&log.ID, &log.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func (s *AuditLogStore) List(ctx context.Context, orgID uuid.UUID, filter repository.AuditFilter, limit, offset int) ([]models.AuditLog, int, error) {
	// Filters are optional; the org predicate is not. Both the data and
	// count queries share the same WHERE clause so totals stay honest.
	where := []string{"org_id = $1"}
	args := []any{orgID}

	if filter.EntityType != "" {
		args = append(args, filter.EntityType)
		where = append(where, fmt.Sprintf("entity_type = $%d", len(args)))
	}
	if filter.EntityID != nil {
		args = append(args, *filter.EntityID)
		where = append(where, fmt.Sprintf("entity_id = $%d", len(args)))
	}
	if filter.Action != "" {
		args = append(args, filter.Action)
		where = append(where, fmt.Sprintf("action = $%d", len(args)))
	}
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	countQuery := "SELECT count(*) FROM audit_logs WHERE " + whereClause
	if err := s.q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit logs: %w", err)
	}

	args = append(args, limit, offset)
	dataQuery := fmt.Sprintf(`
		SELECT id, entity_type, entity_id, user_id, org_id, action,
			old_values, new_values,
			coalesce(endpoint, ''), coalesce(user_agent, ''), coalesce(ip_address, ''),
			created_at
		FROM audit_logs
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, whereClause, len(args)-1, len(args))

	logs, err := s.queryLogs(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

func (s *AuditLogStore) EntityHistory(ctx context.Context, orgID uuid.UUID, entityType string, entityID uuid.UUID, limit, offset int) ([]models.AuditLog, error) {
	query := `
		SELECT id, entity_type, entity_id, user_id, org_id, action,
			old_values, new_values,
			coalesce(endpoint, ''), coalesce(user_agent, ''), coalesce(ip_address, ''),
			created_at
		FROM audit_logs
		WHERE entity_type = $1 AND entity_id = $2 AND org_id = $3
		ORDER BY created_at ASC
		LIMIT $4 OFFSET $5`

	return s.queryLogs(ctx, query, entityType, entityID, orgID, limit, offset)
}

func (s *AuditLogStore) queryLogs(ctx context.Context, query string, args ...any) ([]models.AuditLog, error) {
	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit logs: %w", err)
	}
	defer rows.Close()

	logs := make([]models.AuditLog, 0)
	for rows.Next() {
		var l models.AuditLog
		if err := rows.Scan(
			&l.ID,
			&l.EntityType,
			&l.EntityID,
			&l.UserID,
			&l.OrgID,
			&l.Action,
			&l.OldValues,
			&l.NewValues,
			&l.Endpoint,
			&l.UserAgent,
			&l.IPAddress,
			&l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit logs: %w", err)
	}

	return logs, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
