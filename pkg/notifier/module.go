package notifier

import (
	"context"

	i18n "github.com/goliatone/go-i18n"

	"github.com/goliatone/go-live-notifications/internal/di"
	"github.com/goliatone/go-live-notifications/internal/identity"
	"github.com/goliatone/go-live-notifications/internal/inbox"
	"github.com/goliatone/go-live-notifications/internal/metrics"
	"github.com/goliatone/go-live-notifications/internal/push"
	"github.com/goliatone/go-live-notifications/internal/realtime"
	"github.com/goliatone/go-live-notifications/internal/toast"
	"github.com/goliatone/go-live-notifications/pkg/activity"
	"github.com/goliatone/go-live-notifications/pkg/adapters"
	"github.com/goliatone/go-live-notifications/pkg/commands"
	"github.com/goliatone/go-live-notifications/pkg/config"
	"github.com/goliatone/go-live-notifications/pkg/domain"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/broadcaster"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/logger"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/platform"
	"github.com/goliatone/go-live-notifications/pkg/preferences"
	"github.com/goliatone/go-live-notifications/pkg/storage"
)

// ModuleOptions configure the notifier module facade.
type ModuleOptions struct {
	Config       config.Config
	Storage      storage.Providers
	Logger       logger.Logger
	Translator   i18n.Translator
	Capabilities platform.Capabilities

	// Source overrides the push transport selected by Config.Push.
	Source      push.Source
	Sessions    identity.SessionSource
	Surfaces    []toast.Surface
	Navigator   toast.Navigator
	Broadcaster broadcaster.Broadcaster
	Activity    activity.Hooks
	Metrics     *metrics.Metrics
}

// Module bundles the container and exposes high-level accessors.
type Module struct {
	container *di.Container
	manager   *Manager
}

// NewModule assembles storage, delivery channels, the engine and commands.
func NewModule(opts ModuleOptions) (*Module, error) {
	container, err := di.New(di.Options{
		Config:       opts.Config,
		Storage:      opts.Storage,
		Logger:       opts.Logger,
		Translator:   opts.Translator,
		Capabilities: opts.Capabilities,
		Source:       opts.Source,
		Sessions:     opts.Sessions,
		Surfaces:     opts.Surfaces,
		Navigator:    opts.Navigator,
		Broadcaster:  opts.Broadcaster,
		Activity:     opts.Activity,
		Metrics:      opts.Metrics,
	})
	if err != nil {
		return nil, err
	}
	manager, err := New(Dependencies{
		Engine:   container.Engine,
		Cue:      container.Cue,
		Delivery: container.Delivery,
		Realtime: container.Realtime,
		Logger:   opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	return &Module{container: container, manager: manager}, nil
}

// Run starts the engine and blocks until ctx is cancelled.
func (m *Module) Run(ctx context.Context) error {
	if m == nil || m.manager == nil {
		return ErrMissingEngine
	}
	defer m.container.Close()
	return m.manager.Run(ctx)
}

// Manager returns the notifier manager.
func (m *Module) Manager() *Manager {
	if m == nil || m.container == nil {
		return nil
	}
	return m.manager
}

// Identity returns the viewer identity tracker.
func (m *Module) Identity() *identity.Tracker {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.Identity
}

// Preferences returns the cue preference service.
func (m *Module) Preferences() *preferences.Service {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.Preferences
}

// Inbox exposes the inbox service.
func (m *Module) Inbox() *inbox.Service {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.Inbox
}

// Toasts exposes the visible toast stack.
func (m *Module) Toasts() *toast.Manager {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.Toasts
}

// Realtime exposes the WebSocket hub rendering toasts for UI clients.
func (m *Module) Realtime() *realtime.Hub {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.Realtime
}

// Commands returns the go-command registry.
func (m *Module) Commands() *commands.Registry {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.Commands
}

// AdapterRegistry exposes the ordered cue tiers.
func (m *Module) AdapterRegistry() *adapters.Registry {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.Adapters
}

// Metrics returns the engine collectors.
func (m *Module) Metrics() *metrics.Metrics {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.Metrics
}

// Publish pushes raw to viewers subscribed on the in-process transport. It
// reports how many subscribers received it and is a no-op for other
// transports.
func (m *Module) Publish(ctx context.Context, raw domain.RawEvent) int {
	if m == nil || m.container == nil || m.container.PushHub == nil {
		return 0
	}
	return m.container.PushHub.Publish(ctx, raw)
}

// Config returns the effective module configuration.
func (m *Module) Config() config.Config {
	if m == nil || m.container == nil {
		return config.Config{}
	}
	return m.container.Config
}

// Container returns the internal DI container.
// This is exposed for advanced use cases like direct storage access.
func (m *Module) Container() *di.Container {
	if m == nil {
		return nil
	}
	return m.container
}
