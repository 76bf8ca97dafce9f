// Package search is the interface to the external full-text index. The
// index is deliberately NOT org-scoped — it knows message id, channel
// id, and body only. Callers must re-filter results by the requesting
// user's organization.
package search

import (
	"context"

	"github.com/google/uuid"
)

// Record is the data indexed per message.
type Record struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	Body      string `json:"body"`
}

// Query describes a search request. ChannelID empty means org-wide
// (subject to the caller's re-filtering).
type Query struct {
	Text      string
	ChannelID string
	Limit     int
	Offset    int
}

// Hit is a single ranked match. Snippet carries <mark>-highlighted
// fragments when the backend supports them; it may be empty.
type Hit struct {
	MessageID uuid.UUID
	ChannelID uuid.UUID
	Snippet   string
}

// Searcher executes ranked full-text queries.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Hit, int, error)
	Healthy() bool
}

// Indexer pushes messages into the index.
type Indexer interface {
	IndexMessage(rec Record) error
}
