package toast

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-live-notifications/pkg/domain"
)

type recordingSurface struct {
	mu     sync.Mutex
	shown  []domain.Toast
	hidden []string
}

func (r *recordingSurface) Show(_ context.Context, toast domain.Toast) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shown = append(r.shown, toast)
	return nil
}

func (r *recordingSurface) Hide(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hidden = append(r.hidden, id)
	return nil
}

func (r *recordingSurface) hiddenCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.hidden)
}

func descriptor(id string) domain.NotificationDescriptor {
	return domain.NotificationDescriptor{
		Kind:              domain.KindEntityStatusChange,
		Title:             "Event Approved! 🎉",
		Body:              "body",
		SubjectEventID:    id,
		SubjectEventTitle: "Budget Review",
		Status:            domain.StatusApproved,
		OccurredAt:        time.UnixMilli(1714471200000),
	}
}

func TestShowKeysToastByDedupKey(t *testing.T) {
	surface := &recordingSurface{}
	mgr := New(Dependencies{Surfaces: []Surface{surface}, Duration: time.Minute})

	first, shown := mgr.Show(context.Background(), descriptor("E1"))
	if !shown {
		t.Fatalf("expected toast shown")
	}
	if !strings.HasPrefix(first.ID, "toast-") || len(first.ID) != len("toast-")+8 {
		t.Fatalf("unexpected id %q", first.ID)
	}
	if first.Timestamp != "just now" || first.ActionURL != "/events/E1" {
		t.Fatalf("unexpected toast %+v", first)
	}
	if _, shown := mgr.Show(context.Background(), descriptor("E1")); shown {
		t.Fatalf("expected duplicate key to be suppressed")
	}
	mgr.Show(context.Background(), descriptor("E2"))

	visible := mgr.Visible()
	if len(visible) != 2 || visible[0].ID != first.ID {
		t.Fatalf("unexpected stack %+v", visible)
	}
	if len(surface.shown) != 2 {
		t.Fatalf("expected two renders, got %d", len(surface.shown))
	}
}

func TestToastAutoDismisses(t *testing.T) {
	surface := &recordingSurface{}
	mgr := New(Dependencies{Surfaces: []Surface{surface}, Duration: 20 * time.Millisecond})
	mgr.Show(context.Background(), descriptor("E1"))

	deadline := time.Now().Add(2 * time.Second)
	for surface.hiddenCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("toast was not dismissed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if len(mgr.Visible()) != 0 {
		t.Fatalf("expected empty stack")
	}
}

func TestActivateNavigatesAndDismisses(t *testing.T) {
	var routes []string
	mgr := New(Dependencies{
		Duration: time.Minute,
		Navigator: NavigatorFunc(func(_ context.Context, route string) error {
			routes = append(routes, route)
			return nil
		}),
	})
	toast, _ := mgr.Show(context.Background(), descriptor("E 9"))

	route, err := mgr.Activate(context.Background(), toast.ID)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if route != "/events/E%209" || len(routes) != 1 {
		t.Fatalf("unexpected navigation %q %v", route, routes)
	}
	if _, err := mgr.Activate(context.Background(), toast.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after dismissal, got %v", err)
	}
}

func TestIDIsStable(t *testing.T) {
	key := descriptor("E1").Key()
	if ID(key) != ID(key) {
		t.Fatalf("expected deterministic id")
	}
	if ID(key) == ID(descriptor("E2").Key()) {
		t.Fatalf("expected distinct ids for distinct keys")
	}
}
