package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goliatone/go-live-notifications/pkg/interfaces/logger"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/platform"
)

// State is the lifecycle state of the tone resource.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateSuspended     State = "suspended"
	StateRunning       State = "running"
	StateFailed        State = "failed"
)

var (
	// ErrNotRunning is returned when tone output is requested before unlock.
	ErrNotRunning = errors.New("audio: tone resource is not running")
	// ErrFailed is returned once the resource entered the failed state.
	ErrFailed = errors.New("audio: tone resource failed")
)

// DeviceDependencies configure the Device.
type DeviceDependencies struct {
	Factory  platform.ToneContextFactory
	Gestures *Gestures
	Logger   logger.Logger
}

// Device owns the single tone resource of the process.
type Device struct {
	mu       sync.Mutex
	playMu   sync.Mutex
	state    State
	tone     platform.ToneContext
	factory  platform.ToneContextFactory
	gestures *Gestures
	removers []func()
	logger   logger.Logger
}

// NewDevice returns an uninitialized device. Construction of the underlying
// resource is deferred to Init.
func NewDevice(deps DeviceDependencies) *Device {
	if deps.Factory == nil {
		deps.Factory = platform.NoTone
	}
	return &Device{
		state:    StateUninitialized,
		factory:  deps.Factory,
		gestures: deps.Gestures,
		logger:   logger.OrNop(deps.Logger),
	}
}

// State returns the current lifecycle state.
func (d *Device) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Init constructs the tone resource on first call. Construction errors move
// the device to Failed. Later calls return the current state.
func (d *Device) Init() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != StateUninitialized {
		return d.state
	}
	tone, err := d.factory()
	if err != nil || tone == nil {
		d.state = StateFailed
		d.logger.Debug("audio: tone resource unavailable", logger.F("error", err))
		return d.state
	}
	d.tone = tone
	d.state = StateSuspended
	if d.gestures != nil {
		for _, kind := range UnlockGestures {
			d.removers = append(d.removers, d.gestures.Listen(kind, d.onGesture))
		}
	}
	return d.state
}

func (d *Device) onGesture(ctx context.Context, kind GestureKind) {
	if err := d.Resume(ctx); err != nil {
		d.logger.Debug("audio: resume from gesture failed",
			logger.F("gesture", string(kind)),
			logger.F("error", err),
		)
	}
}

// Resume unlocks the tone resource. It must be driven by a user gesture. A
// resume after success is a no-op.
func (d *Device) Resume(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.state {
	case StateRunning:
		return nil
	case StateFailed:
		return ErrFailed
	case StateUninitialized:
		return ErrNotRunning
	}
	if err := d.tone.Resume(ctx); err != nil {
		d.state = StateFailed
		d.dropListeners()
		return fmt.Errorf("audio: resume: %w", err)
	}
	d.state = StateRunning
	d.dropListeners()
	d.logger.Info("audio: tone resource running")
	return nil
}

func (d *Device) dropListeners() {
	for _, remove := range d.removers {
		remove()
	}
	d.removers = nil
}

// PlayTone renders samples through the resource. Concurrent callers are
// serialized.
func (d *Device) PlayTone(ctx context.Context, samples []float64, sampleRate int) error {
	d.mu.Lock()
	state, tone := d.state, d.tone
	d.mu.Unlock()
	if state != StateRunning {
		return ErrNotRunning
	}
	d.playMu.Lock()
	defer d.playMu.Unlock()
	return tone.Play(ctx, samples, sampleRate)
}

// Close releases the resource.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dropListeners()
	if d.tone == nil {
		return nil
	}
	err := d.tone.Close()
	d.tone = nil
	if d.state != StateFailed {
		d.state = StateFailed
	}
	return err
}
