package adapters

import (
	"context"
	"testing"
)

type stubMessenger struct {
	name     string
	channels []string
}

func (s stubMessenger) Name() string { return s.name }

func (s stubMessenger) Capabilities() Capability {
	return Capability{Name: s.name, Channels: s.channels}
}

func (stubMessenger) Send(context.Context, Message) error { return nil }

func TestRegistryListKeepsRegistrationOrder(t *testing.T) {
	reg := NewRegistry(
		stubMessenger{name: "desktop", channels: []string{ChannelCue}},
		stubMessenger{name: "tone", channels: []string{ChannelCue}},
		stubMessenger{name: "clip", channels: []string{"CUE"}},
	)
	list := reg.List(ChannelCue)
	if len(list) != 3 {
		t.Fatalf("expected 3 tiers, got %d", len(list))
	}
	for i, want := range []string{"desktop", "tone", "clip"} {
		if list[i].Name() != want {
			t.Fatalf("tier %d: expected %s, got %s", i, want, list[i].Name())
		}
	}
}

func TestRegistryNamesFollowTierOrder(t *testing.T) {
	reg := NewRegistry(
		stubMessenger{name: "Desktop", channels: []string{ChannelCue}},
		stubMessenger{name: "clip", channels: []string{ChannelCue}},
		stubMessenger{name: "log", channels: []string{"audit"}},
	)
	got := reg.Names(ChannelCue)
	if len(got) != 2 || got[0] != "desktop" || got[1] != "clip" {
		t.Fatalf("unexpected names %v", got)
	}
	if got := reg.Names("missing"); len(got) != 0 {
		t.Fatalf("expected no names, got %v", got)
	}
	var empty *Registry
	if got := empty.Names(ChannelCue); len(got) != 0 {
		t.Fatalf("nil registry should have no names, got %v", got)
	}
}

func TestParseChannel(t *testing.T) {
	ch, provider := ParseChannel(" Cue:Tone ")
	if ch != "cue" || provider != "tone" {
		t.Fatalf("unexpected parse %q %q", ch, provider)
	}
}
