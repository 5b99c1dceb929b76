package inbox

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-live-notifications/internal/delivery"
	"github.com/goliatone/go-live-notifications/internal/storage/memory"
	"github.com/goliatone/go-live-notifications/pkg/domain"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/broadcaster"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/logger"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/store"
)

func TestServiceCreateAndList(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewInboxRepository()
	events := captureBroadcaster()
	svc := newTestService(t, repo, events)

	item, err := svc.Create(ctx, CreateInput{
		UserID:   "user-1",
		DedupKey: "new_event|E1|1",
		Title:    "New Notification",
		Body:     "Body",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if item.ID == uuid.Nil {
		t.Fatalf("expected persisted inbox item")
	}
	if len(events.events) != 1 || events.events[0].Topic != broadcaster.TopicInboxCreated {
		t.Fatalf("expected broadcast on create, got %+v", events.events)
	}

	again, err := svc.Create(ctx, CreateInput{UserID: "user-1", DedupKey: "new_event|E1|1", Title: "New Notification"})
	if err != nil {
		t.Fatalf("create again: %v", err)
	}
	if again.ID != item.ID {
		t.Fatalf("expected same dedup key to reuse the item")
	}

	result, err := svc.List(ctx, "user-1", storeOpts(), ListFilters{UnreadOnly: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if result.Total != 1 {
		t.Fatalf("expected 1 item, got %d", result.Total)
	}
}

func TestServiceMarkReadDismiss(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewInboxRepository()
	svc := newTestService(t, repo, captureBroadcaster())

	item, err := svc.Create(ctx, CreateInput{
		UserID: "user-2",
		Title:  "Alert",
		Body:   "Body",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.MarkRead(ctx, "someone-else", []uuid.UUID{item.ID}, true); err != nil {
		t.Fatalf("mark read foreign: %v", err)
	}
	if count, _ := svc.BadgeCount(ctx, "user-2"); count != 1 {
		t.Fatalf("expected foreign mark read to be ignored, got %d", count)
	}
	if err := svc.MarkRead(ctx, "user-2", []uuid.UUID{item.ID, uuid.New()}, true); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if err := svc.Dismiss(ctx, "user-2", item.ID); err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	count, err := svc.BadgeCount(ctx, "user-2")
	if err != nil {
		t.Fatalf("badge count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected dismissed item to reduce badge count")
	}
}

func TestHandleReceivedMirrorsNotification(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewInboxRepository()
	svc := newTestService(t, repo, captureBroadcaster())

	desc := domain.NotificationDescriptor{
		Kind:              domain.KindEntityStatusChange,
		Title:             "Event Approved! 🎉",
		Body:              "Your event has been approved.",
		SubjectEventID:    "E1",
		SubjectEventTitle: "Budget Review",
		Status:            domain.StatusApproved,
		OccurredAt:        time.UnixMilli(1714471200000),
	}
	evt := broadcaster.Event{
		Topic: broadcaster.TopicNotificationReceived,
		Payload: delivery.Received{
			Descriptor: desc,
			Viewer:     domain.ViewerIdentity{ViewerID: "u1"},
		},
	}
	if err := svc.HandleReceived(ctx, evt); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if err := svc.HandleReceived(ctx, evt); err != nil {
		t.Fatalf("handle again: %v", err)
	}

	list, _ := svc.List(ctx, "u1", storeOpts(), ListFilters{})
	if list.Total != 1 {
		t.Fatalf("expected single mirrored item, got %d", list.Total)
	}
	if list.Items[0].ActionURL != "/events/E1" || list.Items[0].DedupKey != string(desc.Key()) {
		t.Fatalf("unexpected item %+v", list.Items[0])
	}

	unknown := evt
	unknown.Payload = delivery.Received{Descriptor: desc, Viewer: domain.Unknown()}
	if err := svc.HandleReceived(ctx, unknown); err != nil {
		t.Fatalf("handle unknown: %v", err)
	}
}

type capturedEvents struct {
	mu     sync.Mutex
	events []broadcaster.Event
}

func captureBroadcaster() *capturedEvents {
	return &capturedEvents{}
}

func (c *capturedEvents) Broadcast(_ context.Context, event broadcaster.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func newTestService(t *testing.T, repo *memory.InboxRepository, br broadcaster.Broadcaster) *Service {
	t.Helper()
	svc, err := NewService(Dependencies{
		Repository:  repo,
		Broadcaster: br,
		Logger:      &logger.Nop{},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func storeOpts() store.ListOptions {
	return store.ListOptions{
		Limit:  50,
		Offset: 0,
	}
}
