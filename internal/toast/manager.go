package toast

import (
	"context"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/goliatone/go-live-notifications/pkg/domain"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/logger"
)

const (
	DefaultDuration = 5 * time.Second
	relativeNow     = "just now"
)

// ErrNotFound is returned when activating a toast that is no longer visible.
var ErrNotFound = errors.New("toast: not found")

// Surface renders toasts on a UI.
type Surface interface {
	Show(ctx context.Context, toast domain.Toast) error
	Hide(ctx context.Context, id string) error
}

// Navigator follows a toast activation.
type Navigator interface {
	Navigate(ctx context.Context, route string) error
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, route string) error

func (f NavigatorFunc) Navigate(ctx context.Context, route string) error {
	if f == nil {
		return nil
	}
	return f(ctx, route)
}

// Dependencies configure the Manager.
type Dependencies struct {
	Surfaces  []Surface
	Navigator Navigator
	Duration  time.Duration
	BaseRoute string
	Clock     func() time.Time
	Logger    logger.Logger
}

type entry struct {
	toast domain.Toast
	timer *time.Timer
}

// Manager keeps the stack of visible toasts keyed by dedup key.
type Manager struct {
	mu        sync.Mutex
	stack     []string
	byID      map[string]*entry
	surfaces  []Surface
	navigator Navigator
	duration  time.Duration
	baseRoute string
	now       func() time.Time
	logger    logger.Logger
}

// New builds a Manager.
func New(deps Dependencies) *Manager {
	if deps.Duration <= 0 {
		deps.Duration = DefaultDuration
	}
	if deps.BaseRoute == "" {
		deps.BaseRoute = "/events"
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Manager{
		byID:      make(map[string]*entry),
		surfaces:  deps.Surfaces,
		navigator: deps.Navigator,
		duration:  deps.Duration,
		baseRoute: strings.TrimRight(deps.BaseRoute, "/"),
		now:       deps.Clock,
		logger:    logger.OrNop(deps.Logger),
	}
}

// AddSurface registers an additional render surface.
func (m *Manager) AddSurface(surface Surface) {
	if surface == nil {
		return
	}
	m.mu.Lock()
	m.surfaces = append(m.surfaces, surface)
	m.mu.Unlock()
}

// ID derives the stable element id for a dedup key.
func ID(key domain.DedupKey) string {
	sum := blake2b.Sum256([]byte(key))
	return "toast-" + hex.EncodeToString(sum[:])[:8]
}

// Show renders a toast for desc. A toast already visible for the same key is
// left untouched and Show reports false.
func (m *Manager) Show(ctx context.Context, desc domain.NotificationDescriptor) (domain.Toast, bool) {
	key := desc.Key()
	id := ID(key)
	now := m.now()

	m.mu.Lock()
	if existing, ok := m.byID[id]; ok {
		m.mu.Unlock()
		return existing.toast, false
	}
	toast := domain.Toast{
		ID:          id,
		Key:         key,
		Kind:        desc.Kind,
		Title:       desc.Title,
		Body:        desc.Body,
		EventTitle:  desc.SubjectEventTitle,
		Requestor:   desc.Requestor,
		Department:  desc.Department,
		Schedule:    desc.Schedule,
		Timestamp:   relativeNow,
		ShownAt:     now,
		DismissAt:   now.Add(m.duration),
		Activatable: desc.SubjectEventID != "",
	}
	if toast.Activatable {
		toast.ActionURL = m.baseRoute + "/" + url.PathEscape(desc.SubjectEventID)
	}
	e := &entry{toast: toast}
	e.timer = time.AfterFunc(m.duration, func() {
		m.Dismiss(context.Background(), id)
	})
	m.byID[id] = e
	m.stack = append(m.stack, id)
	surfaces := append([]Surface(nil), m.surfaces...)
	m.mu.Unlock()

	for _, surface := range surfaces {
		if err := surface.Show(ctx, toast); err != nil {
			m.logger.Warn("toast: surface show failed",
				logger.F("toast_id", id),
				logger.F("error", err),
			)
		}
	}
	return toast, true
}

// Dismiss hides the toast. Unknown ids are ignored.
func (m *Manager) Dismiss(ctx context.Context, id string) bool {
	m.mu.Lock()
	e, ok := m.byID[id]
	if !ok {
		m.mu.Unlock()
		return false
	}
	e.timer.Stop()
	delete(m.byID, id)
	for i, existing := range m.stack {
		if existing == id {
			m.stack = append(m.stack[:i], m.stack[i+1:]...)
			break
		}
	}
	surfaces := append([]Surface(nil), m.surfaces...)
	m.mu.Unlock()

	for _, surface := range surfaces {
		if err := surface.Hide(ctx, id); err != nil {
			m.logger.Debug("toast: surface hide failed",
				logger.F("toast_id", id),
				logger.F("error", err),
			)
		}
	}
	return true
}

// Activate navigates to the toast subject and dismisses it.
func (m *Manager) Activate(ctx context.Context, id string) (string, error) {
	m.mu.Lock()
	e, ok := m.byID[id]
	m.mu.Unlock()
	if !ok {
		return "", ErrNotFound
	}
	route := e.toast.ActionURL
	m.Dismiss(ctx, id)
	if route == "" || m.navigator == nil {
		return route, nil
	}
	if err := m.navigator.Navigate(ctx, route); err != nil {
		return route, err
	}
	return route, nil
}

// Visible returns the stack in display order, oldest first.
func (m *Manager) Visible() []domain.Toast {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Toast, 0, len(m.stack))
	for _, id := range m.stack {
		out = append(out, m.byID[id].toast)
	}
	return out
}
