package audio_test

import (
	"context"
	"sync"
	"testing"

	"github.com/goliatone/go-live-notifications/internal/audio"
	"github.com/goliatone/go-live-notifications/pkg/adapters"
	"github.com/goliatone/go-live-notifications/pkg/adapters/clip"
	"github.com/goliatone/go-live-notifications/pkg/adapters/desktop"
	"github.com/goliatone/go-live-notifications/pkg/adapters/tone"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/platform"
)

type desktopStub struct {
	mu      sync.Mutex
	perm    platform.Permission
	notices []platform.DesktopNotice
}

func (d *desktopStub) Permission() platform.Permission { return d.perm }

func (d *desktopStub) RequestPermission(context.Context) (platform.Permission, error) {
	return d.perm, nil
}

func (d *desktopStub) Show(_ context.Context, notice platform.DesktopNotice) (platform.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notices = append(d.notices, notice)
	return platform.HandleFunc(func() error { return nil }), nil
}

type toneStub struct {
	mu    sync.Mutex
	plays int
}

func (s *toneStub) Resume(context.Context) error { return nil }

func (s *toneStub) Play(context.Context, []float64, int) error {
	s.mu.Lock()
	s.plays++
	s.mu.Unlock()
	return nil
}

func (s *toneStub) Close() error { return nil }

func buildCue(t *testing.T, perm platform.Permission, toneCtx *toneStub, clipPath string) (*audio.Cue, *audio.Device, *desktopStub) {
	t.Helper()
	notifier := &desktopStub{perm: perm}
	gestures := audio.NewGestures()
	factory := platform.NoTone
	if toneCtx != nil {
		factory = func() (platform.ToneContext, error) { return toneCtx, nil }
	}
	device := audio.NewDevice(audio.DeviceDependencies{Factory: factory, Gestures: gestures})

	desktopTier, err := desktop.New(notifier, nil)
	if err != nil {
		t.Fatalf("desktop tier: %v", err)
	}
	toneTier, err := tone.New(device, audio.DefaultTone(), nil)
	if err != nil {
		t.Fatalf("tone tier: %v", err)
	}
	silentTier, err := desktop.New(notifier, nil, desktop.WithSilent(), desktop.WithGate(func() bool {
		return device.State() != audio.StateRunning
	}))
	if err != nil {
		t.Fatalf("silent tier: %v", err)
	}
	clipTier, err := clip.New(platform.NopClips{}, clipPath, nil)
	if err != nil {
		t.Fatalf("clip tier: %v", err)
	}

	cue, err := audio.NewCue(audio.CueDependencies{
		Registry: adapters.NewRegistry(desktopTier, toneTier, silentTier, clipTier),
		Device:   device,
		Desktop:  notifier,
	})
	if err != nil {
		t.Fatalf("cue: %v", err)
	}
	return cue, device, notifier
}

func TestPlayCueAllCapabilitiesUnavailable(t *testing.T) {
	cue, _, _ := buildCue(t, platform.PermissionDenied, nil, "")
	if cue.PlayCue(context.Background(), "Event Approved! 🎉", "body") {
		t.Fatalf("expected false with every capability unavailable")
	}
}

func TestPlayCueDesktopOnlyUsesExactlyThatTier(t *testing.T) {
	toneCtx := &toneStub{}
	cue, device, notifier := buildCue(t, platform.PermissionGranted, toneCtx, "")
	cue.Prepare(context.Background())
	if err := device.Resume(context.Background()); err != nil {
		t.Fatalf("resume: %v", err)
	}

	if !cue.PlayCue(context.Background(), "title", "body") {
		t.Fatalf("expected desktop tier to deliver")
	}
	if toneCtx.plays != 0 {
		t.Fatalf("expected no tone attempt, got %d", toneCtx.plays)
	}
	if len(notifier.notices) != 1 || notifier.notices[0].Silent {
		t.Fatalf("expected one regular notice, got %+v", notifier.notices)
	}
}

func TestPlayCueToneWhenDesktopDenied(t *testing.T) {
	toneCtx := &toneStub{}
	cue, device, _ := buildCue(t, platform.PermissionDenied, toneCtx, "")
	cue.Prepare(context.Background())
	if cue.PlayCue(context.Background(), "title", "body") {
		t.Fatalf("expected false before the gesture unlock")
	}
	if err := device.Resume(context.Background()); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if !cue.PlayCue(context.Background(), "title", "body") {
		t.Fatalf("expected tone to deliver once running")
	}
	if toneCtx.plays != 1 {
		t.Fatalf("expected one tone play, got %d", toneCtx.plays)
	}
}
