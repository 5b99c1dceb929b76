package bunrepo

import (
	"context"
	"errors"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-live-notifications/pkg/domain"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/store"
)

type SessionRepository struct {
	base baseRepository[domain.SessionRecord]
}

var _ store.SessionRepository = (*SessionRepository)(nil)

func NewSessionRepository(db *bun.DB) *SessionRepository {
	handlers := repository.ModelHandlers[*domain.SessionRecord]{
		NewRecord:          func() *domain.SessionRecord { return &domain.SessionRecord{} },
		GetID:              func(s *domain.SessionRecord) uuid.UUID { return s.ID },
		SetID:              func(s *domain.SessionRecord, id uuid.UUID) { s.ID = id },
		GetIdentifier:      func() string { return "id" },
		GetIdentifierValue: func(s *domain.SessionRecord) string { return s.ID.String() },
	}
	return &SessionRepository{
		base: newBaseRepository[domain.SessionRecord](db, handlers, func(s *domain.SessionRecord) *domain.RecordMeta { return &s.RecordMeta }),
	}
}

func (r *SessionRepository) Create(ctx context.Context, record *domain.SessionRecord) error {
	return r.base.create(ctx, record)
}

func (r *SessionRepository) Update(ctx context.Context, record *domain.SessionRecord) error {
	return r.base.update(ctx, record)
}

func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.SessionRecord, error) {
	return r.base.getByID(ctx, id, false)
}

func (r *SessionRepository) List(ctx context.Context, opts store.ListOptions) (store.ListResult[domain.SessionRecord], error) {
	return r.base.list(ctx, withListOptions(opts))
}

func (r *SessionRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.base.softDelete(ctx, id)
}

// Active returns the most recently updated active session.
func (r *SessionRepository) Active(ctx context.Context) (*domain.SessionRecord, error) {
	return r.base.get(ctx,
		func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("active = TRUE").Order("updated_at DESC").Limit(1)
		},
		withoutDeleted(),
	)
}

// Activate stores record as the single active session.
func (r *SessionRepository) Activate(ctx context.Context, record *domain.SessionRecord) error {
	if err := r.Deactivate(ctx); err != nil {
		return err
	}
	record.Active = true
	if record.ID == uuid.Nil {
		return r.base.create(ctx, record)
	}
	if _, err := r.base.getByID(ctx, record.ID, false); errors.Is(err, store.ErrNotFound) {
		return r.base.create(ctx, record)
	}
	return r.base.update(ctx, record)
}

func (r *SessionRepository) Deactivate(ctx context.Context) error {
	_, err := r.base.db.
		NewUpdate().
		Model((*domain.SessionRecord)(nil)).
		Set("active = ?", false).
		Set("updated_at = ?", time.Now().UTC()).
		Where("active = TRUE").
		Exec(ctx)
	return mapError(err)
}
