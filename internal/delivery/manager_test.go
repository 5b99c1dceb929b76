package delivery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-live-notifications/pkg/activity"
	"github.com/goliatone/go-live-notifications/pkg/domain"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/broadcaster"
)

type stubToaster struct {
	mu    sync.Mutex
	shown []domain.NotificationDescriptor
	panic bool
}

func (s *stubToaster) Show(_ context.Context, desc domain.NotificationDescriptor) (domain.Toast, bool) {
	if s.panic {
		panic("render exploded")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shown = append(s.shown, desc)
	return domain.Toast{}, true
}

type stubCue struct {
	mu     sync.Mutex
	calls  int
	result bool
	block  chan struct{}
}

func (s *stubCue) PlayCue(context.Context, string, string) bool {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.result
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []broadcaster.Event
	err    error
}

func (r *recordingBroadcaster) Broadcast(_ context.Context, evt broadcaster.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return r.err
}

func sampleDescriptor() domain.NotificationDescriptor {
	return domain.NotificationDescriptor{
		Kind:           domain.KindNewEvent,
		Title:          "New Notification",
		Body:           "body",
		SubjectEventID: "E1",
		OccurredAt:     time.UnixMilli(1714471200000),
	}
}

func TestDeliverFansOut(t *testing.T) {
	toasts := &stubToaster{}
	cue := &stubCue{result: true}
	bus := &recordingBroadcaster{}
	var verbs []string
	var mu sync.Mutex
	mgr, err := New(Dependencies{
		Toasts:      toasts,
		Cue:         cue,
		Broadcaster: bus,
		Activity: activity.Hooks{activity.HookFunc(func(_ context.Context, evt activity.Event) {
			mu.Lock()
			verbs = append(verbs, evt.Verb)
			mu.Unlock()
		})},
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	raw := domain.RawEvent{EventID: "E1"}
	mgr.Deliver(context.Background(), sampleDescriptor(), raw, domain.ViewerIdentity{ViewerID: "u1"})
	mgr.Wait()

	if len(toasts.shown) != 1 || cue.calls != 1 {
		t.Fatalf("expected toast and cue once, got %d/%d", len(toasts.shown), cue.calls)
	}
	if len(bus.events) != 1 || bus.events[0].Topic != broadcaster.TopicNotificationReceived {
		t.Fatalf("unexpected signals %+v", bus.events)
	}
	received, ok := bus.events[0].Payload.(Received)
	if !ok || received.Raw.EventID != "E1" {
		t.Fatalf("unexpected payload %+v", bus.events[0].Payload)
	}
	if len(verbs) != 1 || verbs[0] != activity.VerbDelivered {
		t.Fatalf("unexpected activity %v", verbs)
	}
}

func TestDeliverDoesNotBlockOnCue(t *testing.T) {
	cue := &stubCue{block: make(chan struct{})}
	mgr, _ := New(Dependencies{Toasts: &stubToaster{}, Cue: cue})

	done := make(chan struct{})
	go func() {
		mgr.Deliver(context.Background(), sampleDescriptor(), domain.RawEvent{}, domain.Unknown())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("deliver blocked on cue")
	}
	close(cue.block)
	mgr.Wait()
}

func TestDeliverSurvivesFailures(t *testing.T) {
	bus := &recordingBroadcaster{err: errors.New("hub down")}
	var failed int
	mgr, _ := New(Dependencies{
		Toasts:      &stubToaster{panic: true},
		Cue:         &stubCue{result: false},
		Broadcaster: bus,
		Activity: activity.Hooks{activity.HookFunc(func(_ context.Context, evt activity.Event) {
			if evt.Verb == activity.VerbCueFailed {
				failed++
			}
		})},
	})

	mgr.Deliver(context.Background(), sampleDescriptor(), domain.RawEvent{}, domain.Unknown())
	mgr.Wait()

	if failed != 1 {
		t.Fatalf("expected cue failure activity, got %d", failed)
	}
}

func TestDeliverSkipsCueWhenMuted(t *testing.T) {
	cue := &stubCue{result: true}
	mgr, _ := New(Dependencies{
		Toasts: &stubToaster{},
		Cue:    cue,
		Muted:  func(context.Context) bool { return true },
	})
	mgr.Deliver(context.Background(), sampleDescriptor(), domain.RawEvent{}, domain.Unknown())
	mgr.Wait()
	if cue.calls != 0 {
		t.Fatalf("expected muted cue to be skipped")
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Dependencies{Cue: &stubCue{}}); err == nil {
		t.Fatalf("expected toast manager error")
	}
	if _, err := New(Dependencies{Toasts: &stubToaster{}}); err == nil {
		t.Fatalf("expected cue error")
	}
}
