package broadcaster

import (
	"context"
	"errors"
	"testing"
)

func TestFanoutBroadcast(t *testing.T) {
	var received []Event
	fn := Func(func(ctx context.Context, evt Event) error {
		received = append(received, evt)
		return nil
	})
	f := NewFanout(fn, nil, fn)
	if err := f.Broadcast(context.Background(), Event{Topic: TopicNotificationReceived, Payload: "hello"}); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if len(received) != 2 {
		t.Fatalf("expected event fanout, got %d", len(received))
	}
}

func TestFanoutJoinsErrors(t *testing.T) {
	calls := 0
	errFirst := errors.New("first")
	errSecond := errors.New("second")
	fail := func(err error) Func {
		return func(ctx context.Context, evt Event) error {
			calls++
			return err
		}
	}
	f := NewFanout(fail(errFirst), fail(nil), fail(errSecond))
	err := f.Broadcast(context.Background(), Event{})
	if !errors.Is(err, errFirst) || !errors.Is(err, errSecond) {
		t.Fatalf("expected both errors joined, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected every sink invoked, got %d", calls)
	}
}

func TestFanoutFlattensNested(t *testing.T) {
	var count int
	fn := Func(func(ctx context.Context, evt Event) error {
		count++
		return nil
	})
	var missing *Fanout
	outer := NewFanout(NewFanout(fn, fn), fn, missing)
	if outer.Len() != 3 {
		t.Fatalf("expected three flattened targets, got %d", outer.Len())
	}
	if err := outer.Broadcast(context.Background(), Event{Topic: TopicToastShow}); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected three deliveries, got %d", count)
	}
}

func TestBusTopicRouting(t *testing.T) {
	bus := NewBus()
	var topical, wildcard int
	unsub := bus.Subscribe(TopicNotificationReceived, Func(func(ctx context.Context, evt Event) error {
		topical++
		return nil
	}))
	bus.Subscribe("*", Func(func(ctx context.Context, evt Event) error {
		wildcard++
		return nil
	}))

	ctx := context.Background()
	_ = bus.Broadcast(ctx, Event{Topic: TopicNotificationReceived})
	_ = bus.Broadcast(ctx, Event{Topic: TopicToastShow})
	if topical != 1 || wildcard != 2 {
		t.Fatalf("unexpected counts topical=%d wildcard=%d", topical, wildcard)
	}

	unsub()
	unsub()
	_ = bus.Broadcast(ctx, Event{Topic: TopicNotificationReceived})
	if topical != 1 {
		t.Fatalf("expected unsubscribed target to stay silent, got %d", topical)
	}
	if bus.Len(TopicNotificationReceived) != 0 {
		t.Fatalf("expected topic cleaned up")
	}
}
