package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RecordMeta captures identifiers and audit fields shared across persisted records.
type RecordMeta struct {
	ID        uuid.UUID `bun:",pk,type:uuid" json:"id"`
	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"updated_at"`
	DeletedAt time.Time `bun:",soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// EnsureID assigns a UUID when the struct is about to be persisted.
func (m *RecordMeta) EnsureID() {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
}

// JSONMap persists arbitrary metadata fields as JSON.
type JSONMap map[string]any

// Value implements driver.Valuer.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("null"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(value any) error {
	if m == nil {
		return errors.New("JSONMap: Scan on nil pointer")
	}
	switch v := value.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("JSONMap: unsupported type %T", value)
	}
}

// SessionRecord is the locally persisted session the identity tracker polls.
// Exactly one record is expected to be active at a time.
type SessionRecord struct {
	bun.BaseModel `bun:"table:viewer_sessions"`
	RecordMeta

	ViewerID    string  `bun:",nullzero" json:"viewer_id"`
	DisplayName string  `bun:",nullzero" json:"display_name"`
	Department  string  `bun:",nullzero" json:"department"`
	Token       string  `bun:",nullzero" json:"token,omitempty"`
	Active      bool    `bun:",notnull" json:"active"`
	Preferences JSONMap `bun:"type:jsonb,nullzero" json:"preferences,omitempty"`
}

// InboxItem mirrors a delivered notification for the viewer's in-app inbox.
// The server remains the system of record; these rows are a session cache.
type InboxItem struct {
	bun.BaseModel `bun:"table:notification_inbox_items"`
	RecordMeta

	UserID      string    `bun:",nullzero,notnull" json:"user_id"`
	DedupKey    string    `bun:",nullzero" json:"dedup_key"`
	Kind        string    `bun:",nullzero" json:"kind"`
	EventID     string    `bun:",nullzero" json:"event_id"`
	Title       string    `bun:",nullzero" json:"title"`
	Body        string    `bun:",nullzero" json:"body"`
	ActionURL   string    `bun:",nullzero" json:"action_url"`
	Unread      bool      `bun:",nullzero" json:"unread"`
	Metadata    JSONMap   `bun:"type:jsonb,nullzero" json:"metadata,omitempty"`
	OccurredAt  time.Time `bun:",nullzero" json:"occurred_at"`
	ReadAt      time.Time `bun:",nullzero" json:"read_at,omitempty"`
	DismissedAt time.Time `bun:",nullzero" json:"dismissed_at,omitempty"`
}
