package audio

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-live-notifications/pkg/adapters"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/platform"
)

type stubTier struct {
	name  string
	err   error
	panic bool
	calls int
}

func (s *stubTier) Name() string { return s.name }

func (s *stubTier) Capabilities() adapters.Capability {
	return adapters.Capability{Name: s.name, Channels: []string{adapters.ChannelCue}}
}

func (s *stubTier) Send(context.Context, adapters.Message) error {
	s.calls++
	if s.panic {
		panic("boom")
	}
	return s.err
}

type recordingObserver struct {
	attempts []string
	failed   int
}

func (r *recordingObserver) TierAttempt(tier string, err error) {
	r.attempts = append(r.attempts, tier)
}

func (r *recordingObserver) CueFailed() { r.failed++ }

func TestPlayCueStopsAtFirstSuccess(t *testing.T) {
	desktop := &stubTier{name: "desktop", err: adapters.ErrUnavailable}
	tone := &stubTier{name: "tone"}
	clip := &stubTier{name: "clip"}
	obs := &recordingObserver{}
	cue, err := NewCue(CueDependencies{
		Registry: adapters.NewRegistry(desktop, tone, clip),
		Observer: obs,
	})
	if err != nil {
		t.Fatalf("new cue: %v", err)
	}

	if !cue.PlayCue(context.Background(), "t", "b") {
		t.Fatalf("expected cue delivered")
	}
	if clip.calls != 0 {
		t.Fatalf("expected clip tier untouched")
	}
	if len(obs.attempts) != 2 || obs.attempts[1] != "tone" {
		t.Fatalf("unexpected attempts %v", obs.attempts)
	}
}

func TestPlayCueAllTiersFailReturnsFalse(t *testing.T) {
	tiers := []*stubTier{
		{name: "desktop", err: adapters.ErrUnavailable},
		{name: "tone", panic: true},
		{name: "desktop-silent", err: errors.New("show failed")},
		{name: "clip", err: adapters.ErrUnavailable},
	}
	reg := adapters.NewRegistry()
	for _, tier := range tiers {
		reg.Register(tier)
	}
	obs := &recordingObserver{}
	cue, _ := NewCue(CueDependencies{Registry: reg, Observer: obs})

	if cue.PlayCue(context.Background(), "t", "b") {
		t.Fatalf("expected false when every tier fails")
	}
	for _, tier := range tiers {
		if tier.calls != 1 {
			t.Fatalf("tier %s: expected one attempt, got %d", tier.name, tier.calls)
		}
	}
	if obs.failed != 1 {
		t.Fatalf("expected failure reported once, got %d", obs.failed)
	}
}

func TestPlayCueHonoursFilter(t *testing.T) {
	desktop := &stubTier{name: "desktop"}
	tone := &stubTier{name: "tone"}
	cue, _ := NewCue(CueDependencies{
		Registry: adapters.NewRegistry(desktop, tone),
		Filter:   func(_ context.Context, tier string) bool { return tier != "desktop" },
	})
	if !cue.PlayCue(context.Background(), "t", "b") {
		t.Fatalf("expected tone to deliver")
	}
	if desktop.calls != 0 || tone.calls != 1 {
		t.Fatalf("unexpected calls desktop=%d tone=%d", desktop.calls, tone.calls)
	}
}

type permissionDesktop struct {
	platform.NopDesktop
	perm     platform.Permission
	requests int
}

func (p *permissionDesktop) Permission() platform.Permission { return p.perm }

func (p *permissionDesktop) RequestPermission(context.Context) (platform.Permission, error) {
	p.requests++
	p.perm = platform.PermissionGranted
	return p.perm, nil
}

func TestPrepareRequestsPermissionOnce(t *testing.T) {
	desktop := &permissionDesktop{perm: platform.PermissionDefault}
	device := NewDevice(DeviceDependencies{})
	cue, _ := NewCue(CueDependencies{
		Registry: adapters.NewRegistry(),
		Device:   device,
		Desktop:  desktop,
	})
	cue.Prepare(context.Background())
	cue.Prepare(context.Background())
	cue.PlayCue(context.Background(), "t", "b")

	if desktop.requests != 1 {
		t.Fatalf("expected a single permission request, got %d", desktop.requests)
	}
	if device.State() != StateFailed {
		t.Fatalf("expected failed device without tone support, got %s", device.State())
	}
}

func TestNewCueRequiresRegistry(t *testing.T) {
	if _, err := NewCue(CueDependencies{}); err == nil {
		t.Fatalf("expected error")
	}
}
