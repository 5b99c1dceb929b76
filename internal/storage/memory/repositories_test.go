package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-live-notifications/pkg/domain"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/store"
)

func TestInboxRepositoryMemory(t *testing.T) {
	repo := NewInboxRepository()
	ctx := context.Background()

	first := &domain.InboxItem{UserID: "u1", DedupKey: "k1", Title: "one", Unread: true}
	second := &domain.InboxItem{UserID: "u1", DedupKey: "k2", Title: "two", Unread: true}
	other := &domain.InboxItem{UserID: "u2", DedupKey: "k3", Title: "other", Unread: true}
	for _, item := range []*domain.InboxItem{first, second, other} {
		if err := repo.Create(ctx, item); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	list, err := repo.ListByUser(ctx, "u1", store.ListOptions{Limit: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list.Total != 2 || len(list.Items) != 1 {
		t.Fatalf("expected paged result of 2, got total=%d items=%d", list.Total, len(list.Items))
	}

	if err := repo.MarkRead(ctx, first.ID, true); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if err := repo.Dismiss(ctx, second.ID); err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	count, _ := repo.CountUnread(ctx, "u1")
	if count != 0 {
		t.Fatalf("expected no unread items, got %d", count)
	}
	visible, _ := repo.ListByUser(ctx, "u1", store.ListOptions{})
	if visible.Total != 1 || visible.Items[0].DedupKey != "k1" {
		t.Fatalf("expected dismissed item hidden, got %+v", visible.Items)
	}

	found, err := repo.GetByDedupKey(ctx, "u2", "k3")
	if err != nil || found.ID != other.ID {
		t.Fatalf("get by dedup key: %v", err)
	}
	if _, err := repo.GetByDedupKey(ctx, "u1", "k3"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found across users, got %v", err)
	}
}

func TestSessionRepositoryKeepsSingleActive(t *testing.T) {
	repo := NewSessionRepository()
	ctx := context.Background()

	if _, err := repo.Active(ctx); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected no active session, got %v", err)
	}
	if err := repo.Activate(ctx, &domain.SessionRecord{ViewerID: "u1"}); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := repo.Activate(ctx, &domain.SessionRecord{ViewerID: "u2"}); err != nil {
		t.Fatalf("activate: %v", err)
	}
	active, err := repo.Active(ctx)
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if active.ViewerID != "u2" {
		t.Fatalf("expected u2 active, got %s", active.ViewerID)
	}
	if err := repo.Deactivate(ctx); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := repo.Active(ctx); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected logout to clear active session")
	}
}
