package tone

import (
	"context"
	"errors"

	"github.com/goliatone/go-live-notifications/internal/audio"
	"github.com/goliatone/go-live-notifications/pkg/adapters"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/logger"
)

var errDeviceRequired = errors.New("tone: device is required")

// Device is the subset of the audio device used by the tier.
type Device interface {
	State() audio.State
	PlayTone(ctx context.Context, samples []float64, sampleRate int) error
}

// Adapter plays the synthesized ding once the device runs.
type Adapter struct {
	device  Device
	base    adapters.BaseAdapter
	samples []float64
	rate    int
}

// New renders the tone once and returns the tier.
func New(device Device, shape audio.Tone, l logger.Logger) (*Adapter, error) {
	if device == nil {
		return nil, errDeviceRequired
	}
	if shape.SampleRate <= 0 {
		shape.SampleRate = audio.DefaultTone().SampleRate
	}
	return &Adapter{
		device:  device,
		base:    adapters.NewBaseAdapter(l),
		samples: shape.Render(),
		rate:    shape.SampleRate,
	}, nil
}

func (a *Adapter) Name() string { return "tone" }

func (a *Adapter) Capabilities() adapters.Capability {
	return adapters.Capability{Name: "tone", Channels: []string{adapters.ChannelCue}}
}

// Send plays the ding. A device that is not running makes the tier unavailable.
func (a *Adapter) Send(ctx context.Context, msg adapters.Message) error {
	if a.device.State() != audio.StateRunning {
		return adapters.ErrUnavailable
	}
	if err := a.device.PlayTone(ctx, a.samples, a.rate); err != nil {
		if errors.Is(err, audio.ErrNotRunning) {
			return adapters.ErrUnavailable
		}
		a.base.LogFailure(a.Name(), msg, err)
		return err
	}
	a.base.LogSuccess(a.Name(), msg)
	return nil
}
