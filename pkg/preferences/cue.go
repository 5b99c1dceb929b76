package preferences

import (
	"context"
	"strings"

	opts "github.com/goliatone/go-options"

	"github.com/goliatone/go-live-notifications/pkg/interfaces/logger"
)

const (
	PathMuted     = "cue.muted"
	tierPathStart = "cue.tiers."
)

// TierPath returns the preference path that enables a cue tier.
func TierPath(tier string) string {
	return tierPathStart + strings.ToLower(strings.TrimSpace(tier))
}

// Source returns the viewer's preference overrides.
type Source func(ctx context.Context) map[string]any

// Dependencies configure the cue preference service.
type Dependencies struct {
	Muted         bool
	DisabledTiers []string
	Viewer        Source
	Logger        logger.Logger
}

// Service answers cue preference questions for the current viewer by layering
// viewer overrides on top of system defaults.
type Service struct {
	system map[string]any
	viewer Source
	logger logger.Logger
}

// New builds the service from system defaults.
func New(deps Dependencies) *Service {
	tiers := map[string]any{}
	for _, tier := range deps.DisabledTiers {
		if tier = strings.ToLower(strings.TrimSpace(tier)); tier != "" {
			tiers[tier] = false
		}
	}
	return &Service{
		system: map[string]any{
			"cue": map[string]any{
				"muted": deps.Muted,
				"tiers": tiers,
			},
		},
		viewer: deps.Viewer,
		logger: logger.OrNop(deps.Logger),
	}
}

// Muted reports whether cues are muted.
func (s *Service) Muted(ctx context.Context) bool {
	return s.resolver(ctx).BoolOr(PathMuted, false)
}

// TierEnabled reports whether a tier may be attempted.
func (s *Service) TierEnabled(ctx context.Context, tier string) bool {
	return s.resolver(ctx).BoolOr(TierPath(tier), true)
}

func (s *Service) resolver(ctx context.Context) *Resolver {
	snapshots := []Snapshot{{
		Scope:      opts.NewScope("system", opts.ScopePrioritySystem),
		Data:       s.system,
		SnapshotID: "config",
	}}
	if s.viewer != nil {
		if overrides := Expand(s.viewer(ctx)); len(overrides) > 0 {
			snapshots = append(snapshots, Snapshot{
				Scope:      opts.NewScope("user", opts.ScopePriorityUser),
				Data:       overrides,
				SnapshotID: "session",
			})
		}
	}
	resolver, err := NewResolver(snapshots...)
	if err != nil {
		s.logger.Warn("preferences: resolve failed", logger.F("error", err))
		return nil
	}
	return resolver
}

// Expand turns dotted keys ("cue.muted") into nested maps.
func Expand(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]any, len(src))
	for key, value := range src {
		parts := strings.Split(key, ".")
		target := out
		for _, part := range parts[:len(parts)-1] {
			next, ok := target[part].(map[string]any)
			if !ok {
				next = make(map[string]any)
				target[part] = next
			}
			target = next
		}
		leaf := parts[len(parts)-1]
		if nested, ok := value.(map[string]any); ok {
			existing, _ := target[leaf].(map[string]any)
			if existing == nil {
				existing = make(map[string]any)
			}
			for k, v := range Expand(nested) {
				existing[k] = v
			}
			target[leaf] = existing
			continue
		}
		target[leaf] = value
	}
	return out
}
