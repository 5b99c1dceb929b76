package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-live-notifications/pkg/domain"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/store"
)

type InboxRepository struct {
	base baseMemoryRepo[domain.InboxItem]
}

var _ store.InboxRepository = (*InboxRepository)(nil)

func NewInboxRepository() *InboxRepository {
	return &InboxRepository{
		base: newBaseMemoryRepo("inbox_item", func(i *domain.InboxItem) *domain.RecordMeta { return &i.RecordMeta }),
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
	return r.base.list(ctx, opts, nil)
}

func (r *InboxRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.base.softDelete(ctx, id)
}

func (r *InboxRepository) ListByUser(ctx context.Context, userID string, opts store.ListOptions) (store.ListResult[domain.InboxItem], error) {
	return r.base.list(ctx, opts, func(item *domain.InboxItem) bool {
		if item.UserID != userID {
			return false
		}
		if !opts.IncludeDismissed && !item.DismissedAt.IsZero() {
			return false
		}
		if opts.UnreadOnly && !item.Unread {
			return false
		}
		return true
	})
}

func (r *InboxRepository) GetByDedupKey(_ context.Context, userID, key string) (*domain.InboxItem, error) {
	item, ok := r.base.find(func(item *domain.InboxItem) bool {
		return item.UserID == userID && item.DedupKey == key
	})
	if !ok {
		return nil, store.ErrNotFound
	}
	return item, nil
}

func (r *InboxRepository) MarkRead(_ context.Context, id uuid.UUID, read bool) error {
	return r.base.mutate(id, func(item *domain.InboxItem) {
		item.Unread = !read
		if read {
			item.ReadAt = time.Now().UTC()
		} else {
			item.ReadAt = time.Time{}
		}
	})
}

func (r *InboxRepository) Dismiss(_ context.Context, id uuid.UUID) error {
	return r.base.mutate(id, func(item *domain.InboxItem) {
		item.DismissedAt = time.Now().UTC()
		item.Unread = false
	})
}

func (r *InboxRepository) CountUnread(_ context.Context, userID string) (int, error) {
	r.base.mu.RLock()
	defer r.base.mu.RUnlock()

	count := 0
	for _, item := range r.base.records {
		if item.UserID == userID && item.Unread && item.DismissedAt.IsZero() && item.DeletedAt.IsZero() {
			count++
		}
	}
	return count, nil
}
