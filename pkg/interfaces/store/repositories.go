package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-live-notifications/pkg/domain"
)

// ErrNotFound is returned when a record cannot be located.
var ErrNotFound = errors.New("store: not found")

// ListOptions capture pagination and filtering knobs common to repositories.
type ListOptions struct {
	Limit              int
	Offset             int
	Since              time.Time
	Until              time.Time
	IncludeSoftDeleted bool
	IncludeDismissed   bool
	UnreadOnly         bool
}

// ListResult bundles records and totals.
type ListResult[T any] struct {
	Items []T
	Total int
}

// Repository defines base CRUD helpers reused by entity-specific interfaces.
type Repository[T any] interface {
	Create(ctx context.Context, record *T) error
	Update(ctx context.Context, record *T) error
	GetByID(ctx context.Context, id uuid.UUID) (*T, error)
	List(ctx context.Context, opts ListOptions) (ListResult[T], error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// InboxRepository persists the viewer's inbox mirror.
type InboxRepository interface {
	Repository[domain.InboxItem]
	ListByUser(ctx context.Context, userID string, opts ListOptions) (ListResult[domain.InboxItem], error)
	GetByDedupKey(ctx context.Context, userID, key string) (*domain.InboxItem, error)
	MarkRead(ctx context.Context, id uuid.UUID, read bool) error
	Dismiss(ctx context.Context, id uuid.UUID) error
	CountUnread(ctx context.Context, userID string) (int, error)
}

// SessionRepository stores viewer session records. At most one is active.
type SessionRepository interface {
	Repository[domain.SessionRecord]
	Active(ctx context.Context) (*domain.SessionRecord, error)
	Activate(ctx context.Context, record *domain.SessionRecord) error
	Deactivate(ctx context.Context) error
}
