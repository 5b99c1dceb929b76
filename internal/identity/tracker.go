package identity

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goliatone/go-live-notifications/pkg/activity"
	"github.com/goliatone/go-live-notifications/pkg/domain"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/logger"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/store"
)

// DefaultPollInterval is how often the session record is re-read.
const DefaultPollInterval = 500 * time.Millisecond

var errSourceRequired = errors.New("identity: session source is required")

// SessionSource yields the currently active session record. It returns
// store.ErrNotFound when nobody is logged in.
type SessionSource interface {
	Active(ctx context.Context) (*domain.SessionRecord, error)
}

// Observer is told about every identity change.
type Observer interface {
	IdentityChanged(previous, current domain.ViewerIdentity)
}

// Dependencies configure the tracker.
type Dependencies struct {
	Source       SessionSource
	PollInterval time.Duration
	Activity     activity.Hooks
	Observer     Observer
	Logger       logger.Logger
}

// Tracker watches the persisted session and publishes a single stream of
// identity changes. Both the poll ticker and the storage-change signal feed
// the same refresh path.
type Tracker struct {
	source   SessionSource
	interval time.Duration
	activity activity.Hooks
	observer Observer
	logger   logger.Logger

	refreshMu sync.Mutex
	mu        sync.RWMutex
	current   domain.ViewerIdentity
	token     string
	prefs     map[string]any

	notify  chan struct{}
	changes chan domain.ViewerIdentity
}

// New validates dependencies and returns a Tracker seeded with the unknown
// viewer.
func New(deps Dependencies) (*Tracker, error) {
	if deps.Source == nil {
		return nil, errSourceRequired
	}
	if deps.PollInterval <= 0 {
		deps.PollInterval = DefaultPollInterval
	}
	return &Tracker{
		source:   deps.Source,
		interval: deps.PollInterval,
		activity: deps.Activity,
		observer: deps.Observer,
		logger:   logger.OrNop(deps.Logger),
		current:  domain.Unknown(),
		notify:   make(chan struct{}, 1),
		changes:  make(chan domain.ViewerIdentity, 1),
	}, nil
}

// Current returns the last observed identity.
func (t *Tracker) Current() domain.ViewerIdentity {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// Preferences returns a copy of the active session's preference overrides.
func (t *Tracker) Preferences(context.Context) map[string]any {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return activity.CloneMetadata(t.prefs)
}

// Token returns the bearer token of the active session, if any.
func (t *Tracker) Token(context.Context) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.token
}

// Changes delivers the latest identity whenever it changes. Only the most
// recent unread value is kept.
func (t *Tracker) Changes() <-chan domain.ViewerIdentity {
	return t.changes
}

// Notify signals that the session storage changed outside this process.
func (t *Tracker) Notify() {
	select {
	case t.notify <- struct{}{}:
	default:
	}
}

// Refresh reads the session source and publishes a change when the identity
// differs from the current one.
func (t *Tracker) Refresh(ctx context.Context) (domain.ViewerIdentity, bool) {
	t.refreshMu.Lock()
	defer t.refreshMu.Unlock()

	record, err := t.source.Active(ctx)
	switch {
	case errors.Is(err, store.ErrNotFound):
		record = nil
	case err != nil:
		t.logger.Warn("identity: session read failed", logger.F("error", err))
		return t.Current(), false
	}

	next := FromRecord(record)
	var (
		prefs map[string]any
		token string
	)
	if record != nil {
		prefs = activity.CloneMetadata(record.Preferences)
		token = record.Token
	}

	t.mu.Lock()
	previous := t.current
	changed := !previous.Equal(next)
	t.current = next
	t.prefs = prefs
	t.token = token
	t.mu.Unlock()

	if !changed {
		return next, false
	}

	fields := []logger.Field{
		logger.F("viewer_id", next.ViewerID),
		logger.F("previous_viewer_id", previous.ViewerID),
	}
	if record != nil && record.Token != "" {
		fields = append(fields, logger.F("token", MaskToken(record.Token)))
	}
	t.logger.Info("identity: viewer changed", fields...)

	if t.observer != nil {
		t.observer.IdentityChanged(previous, next)
	}
	t.activity.Notify(ctx, activity.Event{
		Verb:       activity.VerbIdentityChanged,
		ActorID:    next.ViewerID,
		UserID:     next.ViewerID,
		ObjectType: "viewer",
		ObjectID:   next.ViewerID,
		Metadata: map[string]any{
			"previous_viewer_id": previous.ViewerID,
			"display_name":       next.DisplayName,
			"department":         next.Department,
		},
	})
	t.publish(next)
	return next, true
}

// Run performs an initial refresh and then polls until ctx is cancelled.
func (t *Tracker) Run(ctx context.Context) error {
	t.Refresh(ctx)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			t.Refresh(ctx)
		case <-t.notify:
			t.Refresh(ctx)
		}
	}
}

func (t *Tracker) publish(identity domain.ViewerIdentity) {
	for {
		select {
		case t.changes <- identity:
			return
		default:
		}
		select {
		case <-t.changes:
		default:
		}
	}
}
