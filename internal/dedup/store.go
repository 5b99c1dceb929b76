package dedup

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-live-notifications/pkg/domain"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/logger"
)

const (
	DefaultWindow        = 100 * time.Millisecond
	DefaultHorizon       = 10 * time.Minute
	DefaultSweepInterval = 10 * time.Minute
)

// Clock returns the current time. Tests inject a fake.
type Clock func() time.Time

// Observer receives admission outcomes and store size changes.
type Observer interface {
	Admitted(key domain.DedupKey)
	Duplicate(key domain.DedupKey)
	Size(n int)
}

// Dependencies configure the store.
type Dependencies struct {
	Window        time.Duration
	Horizon       time.Duration
	SweepInterval time.Duration
	Clock         Clock
	Logger        logger.Logger
	Observer      Observer
}

type entry struct {
	admittedAt time.Time
	occurredAt time.Time
}

// Store is a session scoped map of admitted keys to their first-seen time.
type Store struct {
	mu       sync.Mutex
	entries  map[domain.DedupKey]entry
	latest   map[string]domain.DedupKey
	window   time.Duration
	horizon  time.Duration
	interval time.Duration
	now      Clock
	logger   logger.Logger
	observer Observer
}

// New constructs a Store with defaults for zero values.
func New(deps Dependencies) *Store {
	if deps.Window <= 0 {
		deps.Window = DefaultWindow
	}
	if deps.Horizon <= 0 {
		deps.Horizon = DefaultHorizon
	}
	if deps.SweepInterval <= 0 {
		deps.SweepInterval = DefaultSweepInterval
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Store{
		entries:  make(map[domain.DedupKey]entry),
		latest:   make(map[string]domain.DedupKey),
		window:   deps.Window,
		horizon:  deps.Horizon,
		interval: deps.SweepInterval,
		now:      deps.Clock,
		logger:   logger.OrNop(deps.Logger),
		observer: deps.Observer,
	}
}

// Admit records the descriptor and reports whether it should be delivered.
// A descriptor is a duplicate when its key, or the same logical notification
// stamped within the window, was admitted less than the window ago.
func (s *Store) Admit(desc domain.NotificationDescriptor) bool {
	key := desc.Key()
	identity := desc.Identity()
	now := s.now()

	s.mu.Lock()
	admitted := true
	if existing, ok := s.entries[key]; ok && now.Sub(existing.admittedAt) < s.window {
		admitted = false
	} else if prevKey, ok := s.latest[identity]; ok && prevKey != key {
		if prev, ok := s.entries[prevKey]; ok &&
			now.Sub(prev.admittedAt) < s.window &&
			absDuration(desc.OccurredAt.Sub(prev.occurredAt)) < s.window {
			admitted = false
		}
	}
	if admitted {
		s.entries[key] = entry{admittedAt: now, occurredAt: desc.OccurredAt}
		s.latest[identity] = key
	}
	size := len(s.entries)
	s.mu.Unlock()

	if s.observer != nil {
		if admitted {
			s.observer.Admitted(key)
		} else {
			s.observer.Duplicate(key)
		}
		s.observer.Size(size)
	}
	if !admitted {
		s.logger.Debug("dedup: duplicate dropped", logger.F("key", string(key)))
	}
	return admitted
}

// Seen reports whether key is currently tracked.
func (s *Store) Seen(key domain.DedupKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	return ok
}

// Len returns the number of tracked keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep removes entries last admitted at or before now minus the horizon and
// returns the number removed.
func (s *Store) Sweep(now time.Time) int {
	cutoff := now.Add(-s.horizon)

	s.mu.Lock()
	removed := 0
	for key, e := range s.entries {
		if e.admittedAt.After(cutoff) {
			continue
		}
		delete(s.entries, key)
		removed++
	}
	for identity, key := range s.latest {
		if _, ok := s.entries[key]; !ok {
			delete(s.latest, identity)
		}
	}
	size := len(s.entries)
	s.mu.Unlock()

	if s.observer != nil {
		s.observer.Size(size)
	}
	if removed > 0 {
		s.logger.Debug("dedup: swept entries",
			logger.F("removed", removed),
			logger.F("remaining", size),
		)
	}
	return removed
}

// Run sweeps on the configured interval until ctx is done.
func (s *Store) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Sweep(s.now())
		}
	}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
