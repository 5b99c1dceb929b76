package adapters

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ChannelCue is the logical channel served by audible/visible cue tiers.
const ChannelCue = "cue"

// Message is a cue request for a single tier.
type Message struct {
	ID       string
	Channel  string
	Provider string
	Title    string
	Body     string
	Tag      string
	Metadata map[string]any
	Attempts int
}

// Capability describes the channels supported by a messenger.
type Capability struct {
	Name     string
	Channels []string
	Metadata map[string]string
}

// Messenger is implemented by cue tiers (desktop, tone, clip).
type Messenger interface {
	Name() string
	Capabilities() Capability
	Send(ctx context.Context, msg Message) error
}

// ErrUnavailable is returned by a tier whose capability is not ready.
var ErrUnavailable = errors.New("adapters: capability unavailable")

// Registry stores available messengers in registration order per channel.
type Registry struct {
	mu        sync.RWMutex
	byChannel map[string][]Messenger
}

// NewRegistry builds a registry with the supplied messengers.
func NewRegistry(messengers ...Messenger) *Registry {
	reg := &Registry{
		byChannel: make(map[string][]Messenger),
	}
	for _, m := range messengers {
		reg.Register(m)
	}
	return reg
}

// Register appends a messenger to every channel it supports.
func (r *Registry) Register(m Messenger) {
	if r == nil || m == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, channel := range m.Capabilities().Channels {
		key := normalizeKey(channel)
		if key == "" {
			continue
		}
		r.byChannel[key] = append(r.byChannel[key], m)
	}
}

// List returns all messengers registered for a logical channel, in order.
func (r *Registry) List(channel string) []Messenger {
	if r == nil {
		return nil
	}
	base, _ := ParseChannel(channel)
	r.mu.RLock()
	defer r.mu.RUnlock()
	candidates := r.byChannel[normalizeKey(channel)]
	if len(candidates) == 0 && base != normalizeKey(channel) {
		candidates = r.byChannel[normalizeKey(base)]
	}
	out := make([]Messenger, len(candidates))
	copy(out, candidates)
	return out
}

// ParseChannel splits "<channel>[:provider]" into components.
func ParseChannel(value string) (channel string, provider string) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return strings.ToLower(parts[0]), ""
	default:
		return strings.ToLower(parts[0]), normalizeKey(parts[1])
	}
}

func normalizeKey(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// Names returns the tier names registered for channel, in order.
func (r *Registry) Names(channel string) []string {
	list := r.List(channel)
	out := make([]string, 0, len(list))
	for _, m := range list {
		out = append(out, normalizeKey(m.Name()))
	}
	return out
}
