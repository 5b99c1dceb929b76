package memory

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-live-notifications/internal/push"
	"github.com/goliatone/go-live-notifications/pkg/domain"
)

func TestHubDeliversInOrder(t *testing.T) {
	ctx := context.Background()
	hub := NewHub(4, nil)
	sub, err := hub.Subscribe(ctx, domain.ViewerIdentity{ViewerID: "u-1"})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	for _, id := range []string{"1", "2", "3"} {
		if n := hub.Publish(ctx, domain.RawEvent{EventID: id}); n != 1 {
			t.Fatalf("expected one delivery, got %d", n)
		}
	}
	for _, want := range []string{"1", "2", "3"} {
		got := <-sub.Events()
		if got.EventID != want {
			t.Fatalf("expected %s, got %s", want, got.EventID)
		}
	}
}

func TestHubRejectsUnknownViewer(t *testing.T) {
	hub := NewHub(0, nil)
	if _, err := hub.Subscribe(context.Background(), domain.Unknown()); err != push.ErrUnknownViewer {
		t.Fatalf("expected ErrUnknownViewer, got %v", err)
	}
}

func TestHubCloseStopsDelivery(t *testing.T) {
	ctx := context.Background()
	hub := NewHub(1, nil)
	sub, _ := hub.Subscribe(ctx, domain.ViewerIdentity{ViewerID: "u-1"})

	if err := sub.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if hub.Subscribers() != 0 {
		t.Fatalf("expected subscription removed")
	}
	if n := hub.Publish(ctx, domain.RawEvent{EventID: "x"}); n != 0 {
		t.Fatalf("expected no deliveries after close, got %d", n)
	}
	if _, ok := <-sub.Events(); ok {
		t.Fatalf("expected closed channel")
	}
	if err := sub.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestHubClosesOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(1, nil)
	sub, _ := hub.Subscribe(ctx, domain.ViewerIdentity{ViewerID: "u-1"})
	cancel()

	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Fatalf("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatalf("expected stream to close on cancel")
	}
}

func TestPublishUnblocksWhenSubscriberCloses(t *testing.T) {
	ctx := context.Background()
	hub := NewHub(1, nil)
	sub, _ := hub.Subscribe(ctx, domain.ViewerIdentity{ViewerID: "u-1"})
	hub.Publish(ctx, domain.RawEvent{EventID: "fill"})

	done := make(chan int, 1)
	go func() { done <- hub.Publish(ctx, domain.RawEvent{EventID: "blocked"}) }()

	time.Sleep(20 * time.Millisecond)
	_ = sub.Close()

	select {
	case n := <-done:
		if n != 0 {
			t.Fatalf("expected blocked publish to be dropped, got %d", n)
		}
	case <-time.After(time.Second):
		t.Fatalf("publish stayed blocked after close")
	}
}
