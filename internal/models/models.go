package models

import (
	"time"

	"github.com/google/uuid"
)

// Org is the top-level isolation boundary (like a Slack workspace).
// Every user, channel, message, and audit entry belongs to exactly one
// org. Company A never sees company B's data.
type Org struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Role is a user's permission level within their org.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// User is a person within an org. The OrgID keeps every query scoped:
// "give me users WHERE org_id = X" — cross-org leaks die at the data
// layer, not in handler code.
//
// Credential fields (password hash) live on the row but are owned by the
// auth layer; nothing in the messaging core reads them.
type User struct {
	ID           uuid.UUID `json:"id"`
	OrgID        uuid.UUID `json:"org_id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Channel is a chat room within an org. Names are unique within the org,
// not globally — two orgs can each have their own #general.
type Channel struct {
	ID          uuid.UUID `json:"id"`
	OrgID       uuid.UUID `json:"org_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsSystem    bool      `json:"is_system"`
	CreatedAt   time.Time `json:"created_at"`
}

// Message is a chat message in a channel.
//
// Threading: a root message's ThreadID equals its own ID (the
// self-reference is written in the same transaction as the insert, so
// no reader ever observes a null thread). A reply's ThreadID points at
// the root. ThreadID, ChannelID, and UserID never change after creation.
//
// Version starts at 1 and increments by exactly 1 per successful edit —
// the optimistic-locking counter for PATCH /messages/:id.
type Message struct {
	ID        uuid.UUID  `json:"id"`
	ChannelID uuid.UUID  `json:"channel_id"`
	UserID    uuid.UUID  `json:"user_id"`
	ThreadID  uuid.UUID  `json:"thread_id"`
	Body      string     `json:"body"`
	Version   int        `json:"version"`
	EditedAt  *time.Time `json:"edited_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// AuditLog is an append-only record of a mutation: what changed
// (entity_type/entity_id), who (user_id), which tenant (org_id,
// denormalized so listing queries filter in one hop), how (action),
// and the field-level before/after diff. Rows are written in the same
// transaction as the mutation they document and are never updated.
type AuditLog struct {
	ID         uuid.UUID      `json:"id"`
	EntityType string         `json:"entity_type"`
	EntityID   uuid.UUID      `json:"entity_id"`
	UserID     uuid.UUID      `json:"user_id"`
	OrgID      uuid.UUID      `json:"org_id"`
	Action     string         `json:"action"`
	OldValues  map[string]any `json:"old_values"`
	NewValues  map[string]any `json:"new_values"`
	Endpoint   string         `json:"endpoint,omitempty"`
	UserAgent  string         `json:"user_agent,omitempty"`
	IPAddress  string         `json:"ip_address,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
