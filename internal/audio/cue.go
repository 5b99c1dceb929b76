package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/goliatone/go-live-notifications/pkg/adapters"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/logger"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/platform"
)

var errRegistryRequired = errors.New("audio: tier registry is required")

// TierObserver is told the outcome of every tier attempt.
type TierObserver interface {
	TierAttempt(tier string, err error)
	CueFailed()
}

// TierFilter reports whether a tier may be attempted.
type TierFilter func(ctx context.Context, tier string) bool

// CueDependencies configure the cue service.
type CueDependencies struct {
	Registry *adapters.Registry
	Device   *Device
	Desktop  platform.DesktopNotifier
	Filter   TierFilter
	Observer TierObserver
	Logger   logger.Logger
}

// Cue produces an audible or visible cue through ordered fallback tiers.
type Cue struct {
	registry *adapters.Registry
	device   *Device
	desktop  platform.DesktopNotifier
	filter   TierFilter
	observer TierObserver
	logger   logger.Logger
	prepare  sync.Once
}

// NewCue validates dependencies and returns the service.
func NewCue(deps CueDependencies) (*Cue, error) {
	if deps.Registry == nil {
		return nil, errRegistryRequired
	}
	return &Cue{
		registry: deps.Registry,
		device:   deps.Device,
		desktop:  deps.Desktop,
		filter:   deps.Filter,
		observer: deps.Observer,
		logger:   logger.OrNop(deps.Logger),
	}, nil
}

// Prepare constructs the tone resource and requests desktop permission once
// when it is still undetermined.
func (c *Cue) Prepare(ctx context.Context) {
	c.prepare.Do(func() {
		if c.device != nil {
			state := c.device.Init()
			c.logger.Debug("audio: device initialised", logger.F("state", string(state)))
		}
		if c.desktop == nil || c.desktop.Permission() != platform.PermissionDefault {
			return
		}
		perm, err := c.desktop.RequestPermission(ctx)
		if err != nil {
			c.logger.Debug("audio: desktop permission request failed", logger.F("error", err))
			return
		}
		c.logger.Info("audio: desktop permission resolved", logger.F("permission", string(perm)))
	})
}

// PlayCue tries each tier in order until one delivers. It reports whether a
// cue was produced and never fails.
func (c *Cue) PlayCue(ctx context.Context, title, body string) bool {
	c.Prepare(ctx)
	msg := adapters.Message{
		ID:      uuid.NewString(),
		Channel: adapters.ChannelCue,
		Title:   title,
		Body:    body,
	}
	tiers := c.registry.List(adapters.ChannelCue)
	for _, tier := range tiers {
		name := tier.Name()
		if c.filter != nil && !c.filter(ctx, name) {
			continue
		}
		msg.Provider = name
		msg.Attempts++
		err := c.attempt(ctx, tier, msg)
		if c.observer != nil {
			c.observer.TierAttempt(name, err)
		}
		if err == nil {
			return true
		}
	}
	if c.observer != nil {
		c.observer.CueFailed()
	}
	c.logger.Debug("audio: all cue tiers failed",
		logger.F("title", title),
		logger.F("tiers", len(tiers)),
	)
	return false
}

func (c *Cue) attempt(ctx context.Context, tier adapters.Messenger, msg adapters.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("audio: tier %s panicked: %v", tier.Name(), r)
		}
	}()
	return tier.Send(ctx, msg)
}
