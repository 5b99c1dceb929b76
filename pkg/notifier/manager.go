package notifier

import (
	"context"
	"errors"

	"github.com/goliatone/go-live-notifications/internal/audio"
	"github.com/goliatone/go-live-notifications/internal/delivery"
	"github.com/goliatone/go-live-notifications/internal/engine"
	"github.com/goliatone/go-live-notifications/internal/realtime"
	"github.com/goliatone/go-live-notifications/pkg/domain"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/logger"
)

// Event encapsulates a host-provided payload. Keys follow the push wire format.
type Event map[string]any

// Result reports how an ingested event was handled.
type Result = engine.Result

// Manager runs the engine and tears its side effects down on exit.
type Manager struct {
	engine   *engine.Engine
	cue      *audio.Cue
	delivery *delivery.Manager
	realtime *realtime.Hub
	logger   logger.Logger
}

// Dependencies bundles the services required by the manager.
type Dependencies struct {
	Engine   *engine.Engine
	Cue      *audio.Cue
	Delivery *delivery.Manager
	Realtime *realtime.Hub
	Logger   logger.Logger
}

var (
	ErrMissingEngine = errors.New("notifier: engine is required")
	ErrEmptyEvent    = errors.New("notifier: event payload is empty")
)

// New constructs the notifier manager.
func New(deps Dependencies) (*Manager, error) {
	if deps.Engine == nil {
		return nil, ErrMissingEngine
	}
	return &Manager{
		engine:   deps.Engine,
		cue:      deps.Cue,
		delivery: deps.Delivery,
		realtime: deps.Realtime,
		logger:   logger.OrNop(deps.Logger),
	}, nil
}

// Run prepares the cue resources and consumes the push subscription until ctx
// is cancelled. Pending deliveries are awaited before it returns.
func (m *Manager) Run(ctx context.Context) error {
	if m.cue != nil {
		m.cue.Prepare(ctx)
	}
	m.logger.Info("notifier: engine starting")
	err := m.engine.Run(ctx)
	if m.delivery != nil {
		m.delivery.Wait()
	}
	if m.realtime != nil {
		m.realtime.Close()
	}
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	m.logger.Info("notifier: engine stopped", logger.F("error", err))
	return err
}

// Send handles evt under the current viewer as if it arrived on the push channel.
func (m *Manager) Send(ctx context.Context, evt Event) (Result, error) {
	if len(evt) == 0 {
		return Result{}, ErrEmptyEvent
	}
	return m.engine.Ingest(ctx, domain.RawEventFromMap(evt)), nil
}

// Viewer returns the viewer the engine is currently subscribed for.
func (m *Manager) Viewer() (domain.ViewerIdentity, bool) {
	return m.engine.Viewer()
}
