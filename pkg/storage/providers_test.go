package storage

import (
	"context"
	"testing"

	"github.com/goliatone/go-live-notifications/pkg/domain"
)

func TestOpenSQLiteProviders(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(ctx, "file:providers_test?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	providers := NewBunProviders(db)
	if err := providers.Sessions.Activate(ctx, &domain.SessionRecord{ViewerID: "u1"}); err != nil {
		t.Fatalf("activate: %v", err)
	}
	active, err := providers.Sessions.Active(ctx)
	if err != nil || active.ViewerID != "u1" {
		t.Fatalf("unexpected active session %+v (%v)", active, err)
	}
}

func TestOpenSQLiteRequiresDSN(t *testing.T) {
	if _, err := OpenSQLite(context.Background(), " "); err == nil {
		t.Fatalf("expected dsn error")
	}
}

func TestMemoryProviders(t *testing.T) {
	providers := NewMemoryProviders()
	if providers.Inbox == nil || providers.Sessions == nil {
		t.Fatalf("expected repositories")
	}
	if providers.DB != nil {
		t.Fatalf("memory providers must not carry a db")
	}
}
