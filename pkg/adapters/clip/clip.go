package clip

import (
	"context"
	"errors"
	"strings"

	"github.com/goliatone/go-live-notifications/pkg/adapters"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/logger"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/platform"
)

var errPlayerRequired = errors.New("clip: player is required")

// Adapter plays a short pre-recorded clip as the last cue tier.
type Adapter struct {
	player platform.ClipPlayer
	path   string
	base   adapters.BaseAdapter
}

// New constructs the clip tier. An empty path leaves the tier unavailable.
func New(player platform.ClipPlayer, path string, l logger.Logger) (*Adapter, error) {
	if player == nil {
		return nil, errPlayerRequired
	}
	return &Adapter{
		player: player,
		path:   strings.TrimSpace(path),
		base:   adapters.NewBaseAdapter(l),
	}, nil
}

func (a *Adapter) Name() string { return "clip" }

func (a *Adapter) Capabilities() adapters.Capability {
	return adapters.Capability{Name: "clip", Channels: []string{adapters.ChannelCue}}
}

func (a *Adapter) Send(ctx context.Context, msg adapters.Message) error {
	if a.path == "" {
		return adapters.ErrUnavailable
	}
	if err := a.player.Play(ctx, a.path); err != nil {
		if errors.Is(err, platform.ErrUnsupported) {
			return adapters.ErrUnavailable
		}
		a.base.LogFailure(a.Name(), msg, err)
		return err
	}
	a.base.LogSuccess(a.Name(), msg)
	return nil
}
