package bunrepo

import (
	"context"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-live-notifications/pkg/domain"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/store"
)

type InboxRepository struct {
	base baseRepository[domain.InboxItem]
}

var _ store.InboxRepository = (*InboxRepository)(nil)

func NewInboxRepository(db *bun.DB) *InboxRepository {
	handlers := repository.ModelHandlers[*domain.InboxItem]{
		NewRecord:          func() *domain.InboxItem { return &domain.InboxItem{} },
		GetID:              func(i *domain.InboxItem) uuid.UUID { return i.ID },
		SetID:              func(i *domain.InboxItem, id uuid.UUID) { i.ID = id },
		GetIdentifier:      func() string { return "id" },
		GetIdentifierValue: func(i *domain.InboxItem) string { return i.ID.String() },
	}
	return &InboxRepository{
		base: newBaseRepository[domain.InboxItem](db, handlers, func(i *domain.InboxItem) *domain.RecordMeta { return &i.RecordMeta }),
	}
}

func (r *InboxRepository) Create(ctx context.Context, item *domain.InboxItem) error {
	return r.base.create(ctx, item)
}

func (r *InboxRepository) Update(ctx context.Context, item *domain.InboxItem) error {
	return r.base.update(ctx, item)
}

func (r *InboxRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.InboxItem, error) {
	return r.base.getByID(ctx, id, false)
}

func (r *InboxRepository) List(ctx context.Context, opts store.ListOptions) (store.ListResult[domain.InboxItem], error) {
	return r.base.list(ctx, withListOptions(opts))
}

func (r *InboxRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.base.softDelete(ctx, id)
}

func (r *InboxRepository) ListByUser(ctx context.Context, userID string, opts store.ListOptions) (store.ListResult[domain.InboxItem], error) {
	return r.base.list(ctx,
		withColumn("user_id", userID),
		withInboxFilters(opts),
		withListOptions(opts),
	)
}

func (r *InboxRepository) GetByDedupKey(ctx context.Context, userID, key string) (*domain.InboxItem, error) {
	return r.base.get(ctx,
		withColumn("user_id", userID),
		withColumn("dedup_key", key),
		withoutDeleted(),
	)
}

func (r *InboxRepository) MarkRead(ctx context.Context, id uuid.UUID, read bool) error {
	record, err := r.base.getByID(ctx, id, false)
	if err != nil {
		return err
	}
	record.Unread = !read
	if read {
		record.ReadAt = time.Now().UTC()
	} else {
		record.ReadAt = time.Time{}
	}
	return r.base.update(ctx, record)
}

func (r *InboxRepository) Dismiss(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	res, err := r.base.db.
		NewUpdate().
		Model((*domain.InboxItem)(nil)).
		Set("dismissed_at = ?", now).
		Set("unread = ?", false).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return mapError(err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *InboxRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	count, err := r.base.db.
		NewSelect().
		Model((*domain.InboxItem)(nil)).
		Where("user_id = ?", userID).
		Where("unread = TRUE").
		Where("dismissed_at IS NULL").
		Count(ctx)
	return count, mapError(err)
}
