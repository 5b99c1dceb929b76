package broadcaster

import (
	"context"
	"errors"
)

// Func adapts a function to Broadcaster.
type Func func(ctx context.Context, event Event) error

func (f Func) Broadcast(ctx context.Context, event Event) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

// Fanout multicasts an event to every target in order. Nested fanouts are
// flattened and nil targets dropped.
type Fanout struct {
	targets []Broadcaster
}

// NewFanout builds a Fanout over targets.
func NewFanout(targets ...Broadcaster) *Fanout {
	f := &Fanout{targets: make([]Broadcaster, 0, len(targets))}
	for _, target := range targets {
		f.add(target)
	}
	return f
}

var _ Broadcaster = (*Fanout)(nil)

func (f *Fanout) add(target Broadcaster) {
	switch t := target.(type) {
	case nil:
	case *Fanout:
		if t != nil {
			f.targets = append(f.targets, t.targets...)
		}
	default:
		f.targets = append(f.targets, target)
	}
}

// Len reports how many targets receive each event.
func (f *Fanout) Len() int {
	return len(f.targets)
}

// Broadcast delivers the event to every target. A failing target does not
// stop the others; all failures are joined.
func (f *Fanout) Broadcast(ctx context.Context, event Event) error {
	var errs []error
	for _, target := range f.targets {
		if err := target.Broadcast(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
