package memory

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/goliatone/go-live-notifications/pkg/domain"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/store"
)

type SessionRepository struct {
	base baseMemoryRepo[domain.SessionRecord]
}

var _ store.SessionRepository = (*SessionRepository)(nil)

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		base: newBaseMemoryRepo("viewer_session", func(s *domain.SessionRecord) *domain.RecordMeta { return &s.RecordMeta }),
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
	return r.base.list(ctx, opts, nil)
}

func (r *SessionRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.base.softDelete(ctx, id)
}

func (r *SessionRepository) Active(_ context.Context) (*domain.SessionRecord, error) {
	record, ok := r.base.find(func(s *domain.SessionRecord) bool { return s.Active })
	if !ok {
		return nil, store.ErrNotFound
	}
	return record, nil
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
	err := r.base.update(ctx, record)
	if errors.Is(err, store.ErrNotFound) {
		return r.base.create(ctx, record)
	}
	return err
}

func (r *SessionRepository) Deactivate(_ context.Context) error {
	r.base.mu.Lock()
	defer r.base.mu.Unlock()
	for id, record := range r.base.records {
		if record.Active {
			record.Active = false
			r.base.records[id] = record
		}
	}
	return nil
}
