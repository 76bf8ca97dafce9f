package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/workstream-hq/workstream/internal/models"
)

// Every method takes ctx (all of this is I/O) and an org id wherever a
// caller-supplied identifier could otherwise reach across tenants. The
// repository never trusts the handler — it always filters by org.

// ErrDuplicateChannelName reports a channel-name collision within an
// org. Names are only unique per org, so this comes from the partial
// unique index, not a global constraint.
var ErrDuplicateChannelName = errors.New("channel name already exists in this organization")

// OrgRepository handles organization rows.
type OrgRepository interface {
	Create(ctx context.Context, name string) (*models.Org, error)
	GetByID(ctx context.Context, orgID uuid.UUID) (*models.Org, error)
}

// UserRepository handles user rows.
type UserRepository interface {
	Create(ctx context.Context, orgID uuid.UUID, email, displayName string, role models.Role, passwordHash string) (*models.User, error)

	// GetByID is org-scoped. Returns nil, nil if not found.
	GetByID(ctx context.Context, orgID, userID uuid.UUID) (*models.User, error)

	// GetByEmail is global — login starts from an email, before we know
	// the org. Returns nil, nil if not found.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// ChannelRepository handles channel rows.
type ChannelRepository interface {
	// Create returns ErrDuplicateChannelName when the name is taken
	// within the org.
	Create(ctx context.Context, orgID uuid.UUID, name, description string, isSystem bool) (*models.Channel, error)

	// GetByID returns nil, nil if the channel doesn't exist in this org.
	GetByID(ctx context.Context, orgID, channelID uuid.UUID) (*models.Channel, error)

	ListByOrg(ctx context.Context, orgID uuid.UUID) ([]models.Channel, error)
}

// MessageRepository handles message rows. The thread service is the
// only mutation caller.
type MessageRepository interface {
	// GetForOrg resolves a message only if its channel belongs to the
	// org. Returns nil, nil otherwise — "absent" and "foreign org" are
	// indistinguishable on purpose.
	GetForOrg(ctx context.Context, messageID, orgID uuid.UUID) (*models.Message, error)

	// GetInChannel returns nil, nil unless the message lives in the
	// given channel. Used to validate thread anchors.
	GetInChannel(ctx context.Context, messageID, channelID uuid.UUID) (*models.Message, error)

	// ListThread returns the messages sharing a thread within one
	// channel, in creation order.
	ListThread(ctx context.Context, channelID, threadID uuid.UUID, limit, offset int) ([]models.Message, error)

	// Insert persists a new message with version 1. threadID nil means
	// a root message; the caller must follow up with SetThread in the
	// same transaction.
	Insert(ctx context.Context, channelID, userID uuid.UUID, threadID *uuid.UUID, body string) (*models.Message, error)

	// SetThread writes the root message's self-referencing thread id.
	SetThread(ctx context.Context, messageID, threadID uuid.UUID) error

	// UpdateBody applies an edit iff the stored version still equals
	// expectedVersion, bumping the version and stamping edited_at.
	// Returns nil, nil when the version no longer matches (or the row
	// vanished) — the optimistic-lock miss, not an error.
	UpdateBody(ctx context.Context, messageID uuid.UUID, body string, expectedVersion int) (*models.Message, error)
}

// AuditFilter narrows an audit listing. Zero values mean "no filter".
type AuditFilter struct {
	EntityType string
	EntityID   *uuid.UUID
	Action     string
	UserID     *uuid.UUID
}

// AuditLogRepository handles the append-only audit trail. There is no
// update or delete — rows are immutable once committed.
type AuditLogRepository interface {
	Insert(ctx context.Context, log *models.AuditLog) error

	// List returns org-scoped entries newest first, plus the total
	// count matching the filter.
	List(ctx context.Context, orgID uuid.UUID, filter AuditFilter, limit, offset int) ([]models.AuditLog, int, error)

	// EntityHistory returns one entity's org-scoped entries oldest
	// first — the evolution of the entity over time.
	EntityHistory(ctx context.Context, orgID uuid.UUID, entityType string, entityID uuid.UUID, limit, offset int) ([]models.AuditLog, error)
}

// Tx groups the repositories bound to one database transaction. A
// message mutation and its audit row commit or roll back together —
// never one without the other.
type Tx interface {
	Channels() ChannelRepository
	Messages() MessageRepository
	AuditLogs() AuditLogRepository
}

// TxRunner executes a function inside a transaction. fn returning an
// error rolls everything back.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}
