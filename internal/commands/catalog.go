package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	command "github.com/goliatone/go-command"
	"github.com/google/uuid"

	"github.com/goliatone/go-live-notifications/internal/audio"
	"github.com/goliatone/go-live-notifications/internal/engine"
	"github.com/goliatone/go-live-notifications/pkg/domain"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/logger"
)

var (
	ErrUnknownGesture = errors.New("commands: unknown gesture")
	ErrEmptyPayload   = errors.New("commands: event payload is required")
	ErrToastRequired  = errors.New("commands: toast id is required")
	ErrInvalidInboxID = errors.New("commands: invalid inbox id")
)

// Catalog exposes go-command compatible handlers for host transports.
type Catalog struct {
	UnlockAudio     command.Commander[UnlockAudio]
	RefreshIdentity command.Commander[RefreshIdentity]
	IngestEvent     command.Commander[IngestEvent]
	ActivateToast   command.Commander[ActivateToast]
	InboxMarkRead   command.Commander[InboxMarkRead]
	InboxDismiss    command.Commander[InboxDismiss]
}

type gestureDispatcher interface {
	Dispatch(ctx context.Context, kind audio.GestureKind)
}

type identityRefresher interface {
	Refresh(ctx context.Context) (domain.ViewerIdentity, bool)
}

type ingester interface {
	Ingest(ctx context.Context, raw domain.RawEvent) engine.Result
}

type toastActivator interface {
	Activate(ctx context.Context, id string) (string, error)
}

type inboxService interface {
	MarkRead(ctx context.Context, userID string, ids []uuid.UUID, read bool) error
	Dismiss(ctx context.Context, userID string, id uuid.UUID) error
}

// Dependencies wires services into the command catalog.
type Dependencies struct {
	Gestures gestureDispatcher
	Identity identityRefresher
	Engine   ingester
	Toasts   toastActivator
	Inbox    inboxService
	Logger   logger.Logger
}

// NewCatalog builds the command catalog using the supplied dependencies.
func NewCatalog(deps Dependencies) (*Catalog, error) {
	if deps.Gestures == nil {
		return nil, errors.New("commands: gesture bus is required")
	}
	if deps.Identity == nil {
		return nil, errors.New("commands: identity tracker is required")
	}
	if deps.Engine == nil {
		return nil, errors.New("commands: engine is required")
	}
	if deps.Toasts == nil {
		return nil, errors.New("commands: toast manager is required")
	}
	if deps.Inbox == nil {
		return nil, errors.New("commands: inbox service is required")
	}
	lgr := logger.OrNop(deps.Logger)

	return &Catalog{
		UnlockAudio:     unlockAudioCommand{gestures: deps.Gestures},
		RefreshIdentity: refreshIdentityCommand{identity: deps.Identity, logger: lgr},
		IngestEvent:     ingestEventCommand{engine: deps.Engine, logger: lgr},
		ActivateToast:   activateToastCommand{toasts: deps.Toasts},
		InboxMarkRead:   inboxMarkReadCommand{svc: deps.Inbox},
		InboxDismiss:    inboxDismissCommand{svc: deps.Inbox},
	}, nil
}

// UnlockAudio forwards a user gesture to the audio device.
type UnlockAudio struct {
	Gesture string `json:"gesture"`
}

type unlockAudioCommand struct {
	gestures gestureDispatcher
}

func (c unlockAudioCommand) Execute(ctx context.Context, msg UnlockAudio) error {
	kind, ok := audio.ParseGesture(msg.Gesture)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownGesture, msg.Gesture)
	}
	c.gestures.Dispatch(ctx, kind)
	return nil
}

// RefreshIdentity re-reads the session record now instead of waiting for the
// next poll.
type RefreshIdentity struct{}

type refreshIdentityCommand struct {
	identity identityRefresher
	logger   logger.Logger
}

func (c refreshIdentityCommand) Execute(ctx context.Context, _ RefreshIdentity) error {
	viewer, changed := c.identity.Refresh(ctx)
	c.logger.Debug("commands: identity refreshed",
		logger.F("viewer_id", viewer.ViewerID),
		logger.F("changed", changed),
	)
	return nil
}

// IngestEvent feeds a payload through classification, dedup and delivery as
// if it had arrived on the push channel.
type IngestEvent struct {
	Payload map[string]any `json:"payload"`
}

type ingestEventCommand struct {
	engine ingester
	logger logger.Logger
}

func (c ingestEventCommand) Execute(ctx context.Context, msg IngestEvent) error {
	if len(msg.Payload) == 0 {
		return ErrEmptyPayload
	}
	result := c.engine.Ingest(ctx, domain.RawEventFromMap(msg.Payload))
	c.logger.Debug("commands: event ingested",
		logger.F("key", string(result.Descriptor.Key())),
		logger.F("admitted", result.Admitted),
	)
	return nil
}

// ActivateToast follows a toast click.
type ActivateToast struct {
	ID string `json:"id"`
}

type activateToastCommand struct {
	toasts toastActivator
}

func (c activateToastCommand) Execute(ctx context.Context, msg ActivateToast) error {
	id := strings.TrimSpace(msg.ID)
	if id == "" {
		return ErrToastRequired
	}
	_, err := c.toasts.Activate(ctx, id)
	return err
}

// InboxMarkRead request payload.
type InboxMarkRead struct {
	UserID string   `json:"user_id"`
	IDs    []string `json:"ids"`
	Read   bool     `json:"read"`
}

type inboxMarkReadCommand struct {
	svc inboxService
}

func (c inboxMarkReadCommand) Execute(ctx context.Context, msg InboxMarkRead) error {
	ids := make([]uuid.UUID, 0, len(msg.IDs))
	for _, raw := range msg.IDs {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%w %q: %v", ErrInvalidInboxID, raw, err)
		}
		ids = append(ids, id)
	}
	return c.svc.MarkRead(ctx, msg.UserID, ids, msg.Read)
}

// InboxDismiss dismisses a notification.
type InboxDismiss struct {
	UserID string `json:"user_id"`
	ID     string `json:"id"`
}

type inboxDismissCommand struct {
	svc inboxService
}

func (c inboxDismissCommand) Execute(ctx context.Context, msg InboxDismiss) error {
	id, err := uuid.Parse(strings.TrimSpace(msg.ID))
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidInboxID, msg.ID, err)
	}
	return c.svc.Dismiss(ctx, msg.UserID, id)
}
