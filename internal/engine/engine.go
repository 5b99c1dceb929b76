package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-live-notifications/internal/push"
	"github.com/goliatone/go-live-notifications/pkg/activity"
	"github.com/goliatone/go-live-notifications/pkg/domain"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/logger"
	"github.com/goliatone/go-live-notifications/pkg/retry"
)

var (
	errClassifierRequired = errors.New("engine: classifier is required")
	errDedupRequired      = errors.New("engine: dedup store is required")
	errDeliveryRequired   = errors.New("engine: delivery manager is required")
	errIdentityRequired   = errors.New("engine: identity tracker is required")
	errSourceRequired     = errors.New("engine: push source is required")
)

// Classifier turns a push payload into a descriptor.
type Classifier interface {
	Classify(raw domain.RawEvent, viewer domain.ViewerIdentity) domain.NotificationDescriptor
}

// Dedup admits descriptors and evicts old keys while running.
type Dedup interface {
	Admit(desc domain.NotificationDescriptor) bool
	Run(ctx context.Context) error
}

// Deliverer fans an admitted notification out to the delivery channels.
type Deliverer interface {
	Deliver(ctx context.Context, desc domain.NotificationDescriptor, raw domain.RawEvent, viewer domain.ViewerIdentity)
}

// Identity is the single source of viewer changes.
type Identity interface {
	Current() domain.ViewerIdentity
	Changes() <-chan domain.ViewerIdentity
	Run(ctx context.Context) error
}

// Observer receives engine measurements.
type Observer interface {
	Classified(kind domain.Kind)
	Resubscribed()
	Handled(d time.Duration)
}

// Dependencies wire the engine.
type Dependencies struct {
	Classifier Classifier
	Dedup      Dedup
	Delivery   Deliverer
	Identity   Identity
	Source     push.Source
	Backoff    retry.Backoff
	Activity   activity.Hooks
	Observer   Observer
	Clock      func() time.Time
	Logger     logger.Logger
}

// Result describes what happened to one handled event.
type Result struct {
	Descriptor domain.NotificationDescriptor
	Admitted   bool
}

// Engine consumes the viewer's push subscription and drives classification,
// deduplication and delivery. Events are handled one at a time in transport
// order.
type Engine struct {
	classifier Classifier
	dedup      Dedup
	delivery   Deliverer
	identity   Identity
	source     push.Source
	backoff    retry.Backoff
	activity   activity.Hooks
	observer   Observer
	now        func() time.Time
	logger     logger.Logger

	handleMu sync.Mutex
	mu       sync.RWMutex
	viewer   domain.ViewerIdentity
	active   bool
}

// New validates dependencies and returns an Engine.
func New(deps Dependencies) (*Engine, error) {
	switch {
	case deps.Classifier == nil:
		return nil, errClassifierRequired
	case deps.Dedup == nil:
		return nil, errDedupRequired
	case deps.Delivery == nil:
		return nil, errDeliveryRequired
	case deps.Identity == nil:
		return nil, errIdentityRequired
	case deps.Source == nil:
		return nil, errSourceRequired
	}
	if deps.Backoff == nil {
		deps.Backoff = retry.DefaultBackoff()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Engine{
		classifier: deps.Classifier,
		dedup:      deps.Dedup,
		delivery:   deps.Delivery,
		identity:   deps.Identity,
		source:     deps.Source,
		backoff:    deps.Backoff,
		activity:   deps.Activity,
		observer:   deps.Observer,
		now:        deps.Clock,
		logger:     logger.OrNop(deps.Logger),
		viewer:     domain.Unknown(),
	}, nil
}

// Run starts the identity tracker, the dedup sweeper and the consume loop and
// blocks until ctx is cancelled or one of them fails.
func (e *Engine) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.identity.Run(gctx) })
	g.Go(func() error { return e.dedup.Run(gctx) })
	g.Go(func() error { return e.loop(gctx) })
	return g.Wait()
}

// Viewer returns the identity the current subscription belongs to and
// whether a subscription is open.
func (e *Engine) Viewer() (domain.ViewerIdentity, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.viewer, e.active
}

// Ingest handles a payload that arrived outside the push subscription, under
// the current viewer.
func (e *Engine) Ingest(ctx context.Context, raw domain.RawEvent) Result {
	return e.Handle(ctx, raw, e.identity.Current())
}

// Handle classifies raw for viewer, admits it and starts delivery. Events
// without a timestamp are stamped with the receive time first.
func (e *Engine) Handle(ctx context.Context, raw domain.RawEvent, viewer domain.ViewerIdentity) Result {
	e.handleMu.Lock()
	defer e.handleMu.Unlock()

	started := e.now()
	if raw.Timestamp.IsZero() {
		raw.Timestamp = started
	}
	desc := e.classifier.Classify(raw, viewer)
	if e.observer != nil {
		e.observer.Classified(desc.Kind)
	}

	if !e.dedup.Admit(desc) {
		e.activity.Notify(ctx, activity.Event{
			Verb:       activity.VerbDuplicate,
			UserID:     viewer.ViewerID,
			ObjectType: "event",
			ObjectID:   desc.SubjectEventID,
			Kind:       string(desc.Kind),
			DedupKey:   string(desc.Key()),
		})
		e.observed(started)
		return Result{Descriptor: desc}
	}

	e.delivery.Deliver(ctx, desc, raw, viewer)
	e.observed(started)
	return Result{Descriptor: desc, Admitted: true}
}

func (e *Engine) observed(started time.Time) {
	if e.observer != nil {
		e.observer.Handled(e.now().Sub(started))
	}
}

func (e *Engine) loop(ctx context.Context) error {
	var (
		sub     push.Subscription
		retryC  <-chan time.Time
		attempt int
	)
	viewer := e.identity.Current()

	closeSub := func() {
		if sub == nil {
			return
		}
		if err := sub.Close(); err != nil {
			e.logger.Debug("engine: subscription close failed", logger.F("error", err))
		}
		sub = nil
		e.setViewer(viewer, false)
	}
	defer closeSub()

	open := func() {
		retryC = nil
		e.setViewer(viewer, false)
		if !viewer.IsKnown() {
			e.logger.Info("engine: no viewer session, subscription deferred")
			return
		}
		next, err := e.source.Subscribe(ctx, viewer)
		if err != nil {
			attempt++
			delay := e.backoff.Next(attempt)
			e.logger.Warn("engine: subscribe failed",
				logger.F("viewer_id", viewer.ViewerID),
				logger.F("attempt", attempt),
				logger.F("retry_in", delay.String()),
				logger.F("error", err),
			)
			retryC = time.After(delay)
			return
		}
		attempt = 0
		sub = next
		e.setViewer(viewer, true)
		if e.observer != nil {
			e.observer.Resubscribed()
		}
		e.logger.Info("engine: subscribed", logger.F("viewer_id", viewer.ViewerID))
	}
	open()

	for {
		var events <-chan domain.RawEvent
		if sub != nil {
			events = sub.Events()
		}
		select {
		case <-ctx.Done():
			return nil
		case next := <-e.identity.Changes():
			if next.Equal(viewer) {
				continue
			}
			closeSub()
			viewer = next
			attempt = 0
			open()
		case <-retryC:
			open()
		case raw, ok := <-events:
			if !ok {
				e.logger.Warn("engine: subscription ended", logger.F("viewer_id", viewer.ViewerID))
				sub = nil
				attempt++
				retryC = time.After(e.backoff.Next(attempt))
				continue
			}
			e.Handle(ctx, raw, viewer)
		}
	}
}

func (e *Engine) setViewer(viewer domain.ViewerIdentity, active bool) {
	e.mu.Lock()
	e.viewer = viewer
	e.active = active
	e.mu.Unlock()
}
