package commands

import (
	"context"
	"fmt"

	"github.com/goliatone/go-live-notifications/internal/realtime"
)

// HandleAction routes realtime client actions to the matching command.
func (c *Catalog) HandleAction(ctx context.Context, action realtime.Action) error {
	switch action.Action {
	case realtime.ActionGesture:
		return c.UnlockAudio.Execute(ctx, UnlockAudio{Gesture: action.Gesture})
	case realtime.ActionActivate:
		return c.ActivateToast.Execute(ctx, ActivateToast{ID: action.ID})
	case realtime.ActionStorage:
		return c.RefreshIdentity.Execute(ctx, RefreshIdentity{})
	default:
		return fmt.Errorf("commands: unsupported action %q", action.Action)
	}
}
