package search

import (
	"context"

	"go.uber.org/zap"
)

// Service fronts the index: Meilisearch first, Postgres FTS when it is
// down or erroring. Indexing is fire-and-forget — the index is a
// secondary view of committed data and must never fail or delay the
// mutation that produced it.
type Service struct {
	meili  *Meili
	pgfts  *PgFTS
	logger *zap.Logger
}

// NewService builds the facade. meili may be nil when MEILI_URL is not
// configured; pgfts then serves everything.
func NewService(meili *Meili, pgfts *PgFTS, logger *zap.Logger) *Service {
	return &Service{meili: meili, pgfts: pgfts, logger: logger}
}

func (s *Service) Search(ctx context.Context, q Query) ([]Hit, int, error) {
	if s.meili != nil && s.meili.Healthy() {
		hits, total, err := s.meili.Search(ctx, q)
		if err == nil {
			return hits, total, nil
		}
		s.logger.Warn("meilisearch error, falling back to pgfts", zap.Error(err))
	}
	return s.pgfts.Search(ctx, q)
}

// IndexMessage pushes one message into Meilisearch asynchronously.
// Postgres needs no push — its FTS reads the committed row directly.
func (s *Service) IndexMessage(rec Record) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexMessage(rec); err != nil {
			s.logger.Warn("index message", zap.String("message_id", rec.ID), zap.Error(err))
		}
	}()
}
