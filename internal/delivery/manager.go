package delivery

import (
	"context"
	"errors"

	"github.com/goliatone/go-live-notifications/pkg/activity"
	"github.com/goliatone/go-live-notifications/pkg/domain"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/broadcaster"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/logger"
)

var (
	errToastsRequired = errors.New("delivery: toast manager is required")
	errCueRequired    = errors.New("delivery: cue service is required")
)

// Toaster renders in-app toasts.
type Toaster interface {
	Show(ctx context.Context, desc domain.NotificationDescriptor) (domain.Toast, bool)
}

// Cuer produces an audible or visible cue.
type Cuer interface {
	PlayCue(ctx context.Context, title, body string) bool
}

// MuteFunc reports whether cues are muted for the current viewer.
type MuteFunc func(ctx context.Context) bool

// Received is the payload of the notification received signal.
type Received struct {
	Raw        domain.RawEvent               `json:"raw"`
	Descriptor domain.NotificationDescriptor `json:"descriptor"`
	Viewer     domain.ViewerIdentity         `json:"viewer"`
}

// Dependencies wire the manager.
type Dependencies struct {
	Toasts      Toaster
	Cue         Cuer
	Broadcaster broadcaster.Broadcaster
	Activity    activity.Hooks
	Muted       MuteFunc
	Tasks       *Supervisor
	Logger      logger.Logger
}

// Manager fans an admitted notification out to every delivery channel.
type Manager struct {
	toasts      Toaster
	cue         Cuer
	broadcaster broadcaster.Broadcaster
	activity    activity.Hooks
	muted       MuteFunc
	tasks       *Supervisor
	logger      logger.Logger
}

// New validates dependencies and returns a Manager.
func New(deps Dependencies) (*Manager, error) {
	if deps.Toasts == nil {
		return nil, errToastsRequired
	}
	if deps.Cue == nil {
		return nil, errCueRequired
	}
	if deps.Broadcaster == nil {
		deps.Broadcaster = &broadcaster.Nop{}
	}
	lgr := logger.OrNop(deps.Logger)
	if deps.Tasks == nil {
		deps.Tasks = NewSupervisor(context.Background(), lgr)
	}
	return &Manager{
		toasts:      deps.Toasts,
		cue:         deps.Cue,
		broadcaster: deps.Broadcaster,
		activity:    deps.Activity,
		muted:       deps.Muted,
		tasks:       deps.Tasks,
		logger:      lgr,
	}, nil
}

// Deliver starts the toast, cue and signal side effects as detached tasks and
// returns immediately. It never fails.
func (m *Manager) Deliver(ctx context.Context, desc domain.NotificationDescriptor, raw domain.RawEvent, viewer domain.ViewerIdentity) {
	key := string(desc.Key())

	m.tasks.Go("toast", func(taskCtx context.Context) error {
		m.toasts.Show(taskCtx, desc)
		return nil
	})

	m.tasks.Go("cue", func(taskCtx context.Context) error {
		if m.muted != nil && m.muted(taskCtx) {
			m.logger.Debug("delivery: cue muted", logger.F("key", key))
			return nil
		}
		if !m.cue.PlayCue(taskCtx, desc.Title, desc.Body) {
			m.logger.Debug("delivery: no cue tier delivered", logger.F("key", key))
			m.activity.Notify(taskCtx, activity.Event{
				Verb:       activity.VerbCueFailed,
				UserID:     viewer.ViewerID,
				ObjectType: "event",
				ObjectID:   desc.SubjectEventID,
				Channel:    "cue",
				Kind:       string(desc.Kind),
				DedupKey:   key,
			})
		}
		return nil
	})

	m.tasks.Go("signal", func(taskCtx context.Context) error {
		return m.broadcaster.Broadcast(taskCtx, broadcaster.Event{
			Topic:   broadcaster.TopicNotificationReceived,
			Payload: Received{Raw: raw, Descriptor: desc, Viewer: viewer},
		})
	})

	m.activity.Notify(ctx, activity.Event{
		Verb:       activity.VerbDelivered,
		UserID:     viewer.ViewerID,
		ObjectType: "event",
		ObjectID:   desc.SubjectEventID,
		Channel:    "toast",
		Kind:       string(desc.Kind),
		DedupKey:   key,
		Metadata: map[string]any{
			"title":        desc.Title,
			"relationship": string(desc.Relationship),
		},
	})
}

// Wait blocks until detached tasks finished. Used on shutdown and in tests.
func (m *Manager) Wait() {
	m.tasks.Wait()
}
