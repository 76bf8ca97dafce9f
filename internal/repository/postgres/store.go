package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/workstream-hq/workstream/internal/repository"
)

// querier is the subset of pgx that both *pgxpool.Pool and pgx.Tx
// satisfy. Stores are written against it so the same code runs inside
// and outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store owns the pool and hands out transaction-bound repository sets.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// InTx runs fn inside a single transaction. Rollback after a successful
// commit is a no-op, so the deferred call is safe on every path.
func (s *Store) InTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(storeTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// storeTx is a repository.Tx whose stores share one pgx.Tx.
type storeTx struct {
	tx pgx.Tx
}

func (t storeTx) Channels() repository.ChannelRepository {
	return &ChannelStore{q: t.tx}
}

func (t storeTx) Messages() repository.MessageRepository {
	return &MessageStore{q: t.tx}
}

func (t storeTx) AuditLogs() repository.AuditLogRepository {
	return &AuditLogStore{q: t.tx}
}
