package commands

import (
	command "github.com/goliatone/go-command"

	"github.com/goliatone/go-live-notifications/internal/audio"
	internalcommands "github.com/goliatone/go-live-notifications/internal/commands"
	"github.com/goliatone/go-live-notifications/internal/engine"
	"github.com/goliatone/go-live-notifications/internal/identity"
	"github.com/goliatone/go-live-notifications/internal/inbox"
	"github.com/goliatone/go-live-notifications/internal/toast"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/logger"
)

// Re-export request types so consumers need not import internal packages.
type (
	UnlockAudio     = internalcommands.UnlockAudio
	RefreshIdentity = internalcommands.RefreshIdentity
	IngestEvent     = internalcommands.IngestEvent
	ActivateToast   = internalcommands.ActivateToast
	InboxMarkRead   = internalcommands.InboxMarkRead
	InboxDismiss    = internalcommands.InboxDismiss
)

// Registry exposes go-command compatible handlers backed by the module services.
type Registry struct {
	Catalog         *internalcommands.Catalog
	UnlockAudio     command.Commander[UnlockAudio]
	RefreshIdentity command.Commander[RefreshIdentity]
	IngestEvent     command.Commander[IngestEvent]
	ActivateToast   command.Commander[ActivateToast]
	InboxMarkRead   command.Commander[InboxMarkRead]
	InboxDismiss    command.Commander[InboxDismiss]
}

// Dependencies mirror the internal command dependencies with concrete services.
type Dependencies struct {
	Gestures *audio.Gestures
	Identity *identity.Tracker
	Engine   *engine.Engine
	Toasts   *toast.Manager
	Inbox    *inbox.Service
	Logger   logger.Logger
}

// New builds the registry using the provided dependencies.
func New(deps Dependencies) (*Registry, error) {
	internalDeps := internalcommands.Dependencies{Logger: deps.Logger}
	if deps.Gestures != nil {
		internalDeps.Gestures = deps.Gestures
	}
	if deps.Identity != nil {
		internalDeps.Identity = deps.Identity
	}
	if deps.Engine != nil {
		internalDeps.Engine = deps.Engine
	}
	if deps.Toasts != nil {
		internalDeps.Toasts = deps.Toasts
	}
	if deps.Inbox != nil {
		internalDeps.Inbox = deps.Inbox
	}
	catalog, err := internalcommands.NewCatalog(internalDeps)
	if err != nil {
		return nil, err
	}
	return &Registry{
		Catalog:         catalog,
		UnlockAudio:     catalog.UnlockAudio,
		RefreshIdentity: catalog.RefreshIdentity,
		IngestEvent:     catalog.IngestEvent,
		ActivateToast:   catalog.ActivateToast,
		InboxMarkRead:   catalog.InboxMarkRead,
		InboxDismiss:    catalog.InboxDismiss,
	}, nil
}

// Commanders returns every handler so callers can register them with go-command registries.
func (r *Registry) Commanders() []any {
	if r == nil {
		return nil
	}
	return []any{
		r.UnlockAudio,
		r.RefreshIdentity,
		r.IngestEvent,
		r.ActivateToast,
		r.InboxMarkRead,
		r.InboxDismiss,
	}
}
