package desktop

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-live-notifications/pkg/adapters"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/logger"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/platform"
)

const defaultDisplay = 5 * time.Second

var errNotifierRequired = errors.New("desktop: notifier is required")

// Adapter shows a system notification as a cue tier. The silent variant only
// retriggers a notification to elicit the system sound.
type Adapter struct {
	name     string
	notifier platform.DesktopNotifier
	base     adapters.BaseAdapter
	caps     adapters.Capability
	display  time.Duration
	silent   bool
	gate     func() bool
}

type Option func(*Adapter)

// WithName overrides the tier name (defaults to "desktop" or "desktop-silent").
func WithName(name string) Option {
	return func(a *Adapter) {
		if name != "" {
			a.name = name
		}
	}
}

// WithDisplayDuration sets how long the notice stays open before closing.
func WithDisplayDuration(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.display = d
		}
	}
}

// WithSilent turns the tier into a silent retrigger.
func WithSilent() Option {
	return func(a *Adapter) {
		a.silent = true
		if a.name == "desktop" {
			a.name = "desktop-silent"
		}
	}
}

// WithGate makes the tier available only while gate returns true.
func WithGate(gate func() bool) Option {
	return func(a *Adapter) {
		a.gate = gate
	}
}

// New constructs a desktop tier.
func New(notifier platform.DesktopNotifier, l logger.Logger, opts ...Option) (*Adapter, error) {
	if notifier == nil {
		return nil, errNotifierRequired
	}
	adapter := &Adapter{
		name:     "desktop",
		notifier: notifier,
		display:  defaultDisplay,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(adapter)
		}
	}
	adapter.base = adapters.NewBaseAdapter(l)
	adapter.caps = adapters.Capability{
		Name:     adapter.name,
		Channels: []string{adapters.ChannelCue},
	}
	return adapter, nil
}

func (a *Adapter) Name() string { return a.name }

func (a *Adapter) Capabilities() adapters.Capability { return a.caps }

// Send shows the notice when permission is granted and schedules its close.
func (a *Adapter) Send(ctx context.Context, msg adapters.Message) error {
	if a.notifier.Permission() != platform.PermissionGranted {
		return adapters.ErrUnavailable
	}
	if a.gate != nil && !a.gate() {
		return adapters.ErrUnavailable
	}
	notice := platform.DesktopNotice{
		Title:  msg.Title,
		Body:   msg.Body,
		Tag:    msg.Tag,
		Silent: a.silent,
	}
	if a.silent {
		notice.Body = ""
	}
	handle, err := a.notifier.Show(ctx, notice)
	if err != nil {
		a.base.LogFailure(a.name, msg, err)
		return err
	}
	if handle != nil {
		time.AfterFunc(a.display, func() {
			if err := handle.Close(); err != nil {
				a.base.Logger().Debug("desktop: close notice failed", logger.F("error", err))
			}
		})
	}
	a.base.LogSuccess(a.name, msg)
	return nil
}
