package di

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	i18n "github.com/goliatone/go-i18n"

	"github.com/goliatone/go-live-notifications/internal/audio"
	"github.com/goliatone/go-live-notifications/internal/classifier"
	"github.com/goliatone/go-live-notifications/internal/dedup"
	"github.com/goliatone/go-live-notifications/internal/delivery"
	"github.com/goliatone/go-live-notifications/internal/engine"
	"github.com/goliatone/go-live-notifications/internal/identity"
	"github.com/goliatone/go-live-notifications/internal/inbox"
	"github.com/goliatone/go-live-notifications/internal/metrics"
	"github.com/goliatone/go-live-notifications/internal/push"
	pushkafka "github.com/goliatone/go-live-notifications/internal/push/kafka"
	pushmemory "github.com/goliatone/go-live-notifications/internal/push/memory"
	pushmqtt "github.com/goliatone/go-live-notifications/internal/push/mqtt"
	pushws "github.com/goliatone/go-live-notifications/internal/push/websocket"
	"github.com/goliatone/go-live-notifications/internal/realtime"
	"github.com/goliatone/go-live-notifications/internal/toast"
	"github.com/goliatone/go-live-notifications/pkg/activity"
	"github.com/goliatone/go-live-notifications/pkg/adapters"
	"github.com/goliatone/go-live-notifications/pkg/adapters/clip"
	"github.com/goliatone/go-live-notifications/pkg/adapters/desktop"
	"github.com/goliatone/go-live-notifications/pkg/adapters/tone"
	"github.com/goliatone/go-live-notifications/pkg/commands"
	"github.com/goliatone/go-live-notifications/pkg/config"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/broadcaster"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/logger"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/platform"
	"github.com/goliatone/go-live-notifications/pkg/preferences"
	"github.com/goliatone/go-live-notifications/pkg/retry"
	"github.com/goliatone/go-live-notifications/pkg/storage"
)

// Options configure the DI container.
type Options struct {
	Config       config.Config
	Storage      storage.Providers
	Logger       logger.Logger
	Translator   i18n.Translator
	Capabilities platform.Capabilities
	Source       push.Source
	Sessions     identity.SessionSource
	Surfaces     []toast.Surface
	Navigator    toast.Navigator
	Broadcaster  broadcaster.Broadcaster
	Activity     activity.Hooks
	Metrics      *metrics.Metrics
	Clock        func() time.Time
}

// Container wires every service the engine needs.
type Container struct {
	Config      config.Config
	Storage     storage.Providers
	Metrics     *metrics.Metrics
	Bus         *broadcaster.Bus
	Realtime    *realtime.Hub
	Gestures    *audio.Gestures
	Device      *audio.Device
	Cue         *audio.Cue
	Adapters    *adapters.Registry
	Toasts      *toast.Manager
	Classifier  *classifier.Classifier
	Dedup       *dedup.Store
	Identity    *identity.Tracker
	Preferences *preferences.Service
	Delivery    *delivery.Manager
	Inbox       *inbox.Service
	Source      push.Source
	PushHub     *pushmemory.Hub
	Engine      *engine.Engine
	Commands    *commands.Registry

	unsubscribe func()
}

func isZeroConfig(cfg config.Config) bool {
	return reflect.ValueOf(cfg).IsZero()
}

// New constructs the container using the supplied options.
func New(opts Options) (*Container, error) {
	cfg := opts.Config
	if isZeroConfig(cfg) {
		cfg = config.Defaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	providers := opts.Storage
	if providers.Inbox == nil || providers.Sessions == nil {
		providers = storage.NewMemoryProviders()
	}

	lgr := logger.OrNop(opts.Logger)

	m := opts.Metrics
	if m == nil {
		m = metrics.New(nil)
	}

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	caps := opts.Capabilities
	if caps.Desktop == nil {
		caps.Desktop = platform.NopDesktop{}
	}
	if caps.ToneFactory == nil {
		caps.ToneFactory = platform.NoTone
	}
	if caps.Clips == nil {
		caps.Clips = platform.NopClips{}
	}
	if caps.DisplayFor <= 0 {
		caps.DisplayFor = cfg.Delivery.DesktopDuration
	}

	bus := broadcaster.NewBus()
	hub := realtime.NewHub(realtime.Dependencies{
		OnClients: m.ClientsConnected,
		Logger:    lgr,
	})
	outbound := broadcaster.NewFanout(hub, opts.Broadcaster)

	sessions := opts.Sessions
	if sessions == nil {
		if strings.EqualFold(cfg.Identity.Store, "file") {
			sessions = identity.FileSource{Path: cfg.Identity.SessionPath}
		} else {
			sessions = providers.Sessions
		}
	}
	tracker, err := identity.New(identity.Dependencies{
		Source:       sessions,
		PollInterval: cfg.Identity.PollInterval,
		Activity:     opts.Activity,
		Observer:     m,
		Logger:       lgr,
	})
	if err != nil {
		return nil, err
	}

	prefs := preferences.New(preferences.Dependencies{
		Muted:         cfg.Cue.Muted,
		DisabledTiers: cfg.Cue.DisabledTiers,
		Viewer:        tracker.Preferences,
		Logger:        lgr,
	})

	gestures := audio.NewGestures()
	device := audio.NewDevice(audio.DeviceDependencies{
		Factory:  caps.ToneFactory,
		Gestures: gestures,
		Logger:   lgr,
	})
	registry, err := cueTiers(cfg, caps, device, lgr)
	if err != nil {
		return nil, err
	}
	cue, err := audio.NewCue(audio.CueDependencies{
		Registry: registry,
		Device:   device,
		Desktop:  caps.Desktop,
		Filter:   prefs.TierEnabled,
		Observer: m,
		Logger:   lgr,
	})
	if err != nil {
		return nil, err
	}

	surfaces := append([]toast.Surface{hub}, opts.Surfaces...)
	navigator := opts.Navigator
	if navigator == nil {
		navigator = toast.NavigatorFunc(func(ctx context.Context, route string) error {
			return outbound.Broadcast(ctx, broadcaster.Event{Topic: "navigate", Payload: map[string]string{"route": route}})
		})
	}
	toasts := toast.New(toast.Dependencies{
		Surfaces:  surfaces,
		Navigator: navigator,
		Duration:  cfg.Delivery.ToastDuration,
		BaseRoute: cfg.Delivery.ActionBaseURL,
		Clock:     clock,
		Logger:    lgr,
	})

	var cls *classifier.Classifier
	if opts.Translator != nil {
		cls, err = classifier.New(classifier.Dependencies{
			Translator: opts.Translator,
			Locale:     cfg.Localization.DefaultLocale,
			Logger:     lgr,
		})
	} else {
		cls, err = classifier.NewDefault(cfg.Localization.DefaultLocale, lgr)
	}
	if err != nil {
		return nil, err
	}

	store := dedup.New(dedup.Dependencies{
		Window:        cfg.Dedup.Window,
		Horizon:       cfg.Dedup.Horizon,
		SweepInterval: cfg.Dedup.SweepInterval,
		Clock:         clock,
		Logger:        lgr,
		Observer:      m.Dedup(),
	})

	deliveryMgr, err := delivery.New(delivery.Dependencies{
		Toasts:      toasts,
		Cue:         cue,
		Broadcaster: broadcaster.NewFanout(bus, outbound),
		Activity:    opts.Activity,
		Muted:       prefs.Muted,
		Logger:      lgr,
	})
	if err != nil {
		return nil, err
	}

	inboxSvc, err := inbox.NewService(inbox.Dependencies{
		Repository:  providers.Inbox,
		Broadcaster: outbound,
		Logger:      lgr,
		Activity:    opts.Activity,
		ActionBase:  cfg.Delivery.ActionBaseURL,
	})
	if err != nil {
		return nil, err
	}
	unsubscribe := func() {}
	if cfg.Inbox.Enabled {
		unsubscribe = bus.Subscribe(broadcaster.TopicNotificationReceived, broadcaster.Func(inboxSvc.HandleReceived))
	}

	source := opts.Source
	var pushHub *pushmemory.Hub
	if source == nil {
		source, pushHub, err = newSource(cfg.Push, tracker, lgr)
		if err != nil {
			return nil, err
		}
	}

	eng, err := engine.New(engine.Dependencies{
		Classifier: cls,
		Dedup:      store,
		Delivery:   deliveryMgr,
		Identity:   tracker,
		Source:     source,
		Backoff:    backoff(cfg.Push),
		Activity:   opts.Activity,
		Observer:   m,
		Clock:      clock,
		Logger:     lgr,
	})
	if err != nil {
		return nil, err
	}

	cmdRegistry, err := commands.New(commands.Dependencies{
		Gestures: gestures,
		Identity: tracker,
		Engine:   eng,
		Toasts:   toasts,
		Inbox:    inboxSvc,
		Logger:   lgr,
	})
	if err != nil {
		return nil, err
	}
	hub.SetActions(cmdRegistry.Catalog)

	return &Container{
		Config:      cfg,
		Storage:     providers,
		Metrics:     m,
		Bus:         bus,
		Realtime:    hub,
		Gestures:    gestures,
		Device:      device,
		Cue:         cue,
		Adapters:    registry,
		Toasts:      toasts,
		Classifier:  cls,
		Dedup:       store,
		Identity:    tracker,
		Preferences: prefs,
		Delivery:    deliveryMgr,
		Inbox:       inboxSvc,
		Source:      source,
		PushHub:     pushHub,
		Engine:      eng,
		Commands:    cmdRegistry,
		unsubscribe: unsubscribe,
	}, nil
}

// Close detaches the inbox consumer, waits for pending deliveries and
// disconnects realtime clients.
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	c.Delivery.Wait()
	c.Realtime.Close()
	return c.Device.Close()
}

// cueTiers builds the ordered cue fallback chain: desktop popup, synthesized
// tone, silent desktop retrigger while the tone is locked, then the clip.
func cueTiers(cfg config.Config, caps platform.Capabilities, device *audio.Device, lgr logger.Logger) (*adapters.Registry, error) {
	desktopTier, err := desktop.New(caps.Desktop, lgr, desktop.WithDisplayDuration(caps.DisplayFor))
	if err != nil {
		return nil, err
	}
	toneTier, err := tone.New(device, toneShape(cfg.Delivery.Tone), lgr)
	if err != nil {
		return nil, err
	}
	silentTier, err := desktop.New(caps.Desktop, lgr,
		desktop.WithSilent(),
		desktop.WithDisplayDuration(caps.DisplayFor),
		desktop.WithGate(func() bool { return device.State() != audio.StateRunning }),
	)
	if err != nil {
		return nil, err
	}
	clipTier, err := clip.New(caps.Clips, cfg.Delivery.ClipPath, lgr)
	if err != nil {
		return nil, err
	}
	return adapters.NewRegistry(desktopTier, toneTier, silentTier, clipTier), nil
}

func toneShape(cfg config.ToneConfig) audio.Tone {
	return audio.Tone{
		StartHz:    cfg.StartHz,
		EndHz:      cfg.EndHz,
		Sweep:      cfg.Sweep,
		Duration:   cfg.Duration,
		Peak:       cfg.Peak,
		SampleRate: cfg.SampleRate,
	}
}

func backoff(cfg config.PushConfig) retry.Backoff {
	return retry.ExponentialBackoff{Base: cfg.ReconnectBase, Max: cfg.ReconnectMax}
}

func newSource(cfg config.PushConfig, tracker *identity.Tracker, lgr logger.Logger) (push.Source, *pushmemory.Hub, error) {
	switch strings.ToLower(cfg.Transport) {
	case "memory":
		hub := pushmemory.NewHub(cfg.Buffer, lgr)
		return hub, hub, nil
	case "websocket":
		source, err := pushws.New(pushws.Config{
			URL:     cfg.URL,
			Token:   tracker.Token,
			Backoff: backoff(cfg),
			Buffer:  cfg.Buffer,
			Logger:  lgr,
		})
		return source, nil, err
	case "mqtt":
		source, err := pushmqtt.New(pushmqtt.Config{
			Broker:  cfg.URL,
			Prefix:  cfg.Topic,
			Buffer:  cfg.Buffer,
			Backoff: backoff(cfg),
			Logger:  lgr,
		})
		return source, nil, err
	case "kafka":
		source, err := pushkafka.New(pushkafka.Config{
			Brokers: cfg.Brokers,
			Topic:   cfg.Topic,
			GroupID: cfg.GroupID,
			Buffer:  cfg.Buffer,
			Backoff: backoff(cfg),
			Logger:  lgr,
		})
		return source, nil, err
	default:
		return nil, nil, fmt.Errorf("di: %w: %q", errUnsupportedTransport, cfg.Transport)
	}
}

var errUnsupportedTransport = errors.New("unsupported push transport")
