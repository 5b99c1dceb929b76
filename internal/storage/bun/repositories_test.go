package bunrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/goliatone/go-live-notifications/pkg/domain"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/store"
)

func setupSQLiteDB(t *testing.T) *bun.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	sqldb, err := sql.Open(sqliteshim.DriverName(), fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("sql open: %v", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	models := []any{
		(*domain.InboxItem)(nil),
		(*domain.SessionRecord)(nil),
	}
	for _, model := range models {
		_, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
		if err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return db
}

func TestInboxRepositoryBun(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewInboxRepository(db)
	ctx := context.Background()

	item := &domain.InboxItem{
		UserID:   "u1",
		DedupKey: "entity_status_change|E1|approved|1714471200000",
		Title:    "Event Approved! 🎉",
		Unread:   true,
		Metadata: domain.JSONMap{"relationship": "owner"},
	}
	if err := repo.Create(ctx, item); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetByDedupKey(ctx, "u1", item.DedupKey)
	if err != nil {
		t.Fatalf("get by dedup key: %v", err)
	}
	if got.ID != item.ID || got.Metadata["relationship"] != "owner" {
		t.Fatalf("unexpected record %+v", got)
	}

	count, err := repo.CountUnread(ctx, "u1")
	if err != nil || count != 1 {
		t.Fatalf("expected 1 unread, got %d (%v)", count, err)
	}
	if err := repo.MarkRead(ctx, item.ID, true); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if count, _ := repo.CountUnread(ctx, "u1"); count != 0 {
		t.Fatalf("expected 0 unread, got %d", count)
	}

	if err := repo.Dismiss(ctx, item.ID); err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	list, err := repo.ListByUser(ctx, "u1", store.ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list.Total != 0 {
		t.Fatalf("expected dismissed item hidden, got %d", list.Total)
	}
	all, _ := repo.ListByUser(ctx, "u1", store.ListOptions{IncludeDismissed: true})
	if all.Total != 1 {
		t.Fatalf("expected dismissed item listed on request, got %d", all.Total)
	}
}

func TestSessionRepositoryBun(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	if _, err := repo.Active(ctx); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	first := &domain.SessionRecord{ViewerID: "u1", DisplayName: "Ana", Department: "PGSO"}
	if err := repo.Activate(ctx, first); err != nil {
		t.Fatalf("activate first: %v", err)
	}
	second := &domain.SessionRecord{ViewerID: "u2", DisplayName: "Ben"}
	if err := repo.Activate(ctx, second); err != nil {
		t.Fatalf("activate second: %v", err)
	}

	active, err := repo.Active(ctx)
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if active.ViewerID != "u2" {
		t.Fatalf("expected u2, got %s", active.ViewerID)
	}
	prior, err := repo.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("get first: %v", err)
	}
	if prior.Active {
		t.Fatalf("expected first session deactivated")
	}
}
