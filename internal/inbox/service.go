package inbox

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-live-notifications/internal/delivery"
	"github.com/goliatone/go-live-notifications/pkg/activity"
	"github.com/goliatone/go-live-notifications/pkg/domain"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/broadcaster"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/logger"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/store"
)

// CreateInput captures the fields required to insert a new inbox item.
type CreateInput struct {
	UserID     string
	DedupKey   string
	Kind       string
	EventID    string
	Title      string
	Body       string
	ActionURL  string
	OccurredAt time.Time
	Metadata   domain.JSONMap
}

// ListFilters allow callers to refine mailbox queries.
type ListFilters struct {
	UnreadOnly       bool
	IncludeDismissed bool
	Before           time.Time
}

// Dependencies wires repositories and realtime hooks into the service.
type Dependencies struct {
	Repository  store.InboxRepository
	Broadcaster broadcaster.Broadcaster
	Logger      logger.Logger
	Activity    activity.Hooks
	// ActionBase prefixes event routes for inbox links.
	ActionBase string
}

// Service mirrors delivered notifications into the viewer inbox.
type Service struct {
	repo        store.InboxRepository
	broadcaster broadcaster.Broadcaster
	logger      logger.Logger
	activity    activity.Hooks
	actionBase  string
}

var (
	errRepositoryRequired = errors.New("inbox: repository is required")
	errUserRequired       = errors.New("inbox: user_id is required")
	errTitleRequired      = errors.New("inbox: title is required")
)

// NewService constructs the inbox service.
func NewService(deps Dependencies) (*Service, error) {
	if deps.Repository == nil {
		return nil, errRepositoryRequired
	}
	if deps.Broadcaster == nil {
		deps.Broadcaster = &broadcaster.Nop{}
	}
	if deps.ActionBase == "" {
		deps.ActionBase = "/events"
	}
	return &Service{
		repo:        deps.Repository,
		broadcaster: deps.Broadcaster,
		logger:      logger.OrNop(deps.Logger),
		activity:    deps.Activity,
		actionBase:  strings.TrimRight(deps.ActionBase, "/"),
	}, nil
}

// Create inserts a new inbox entry. An entry already stored for the same
// dedup key is returned unchanged.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.InboxItem, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}
	userID := strings.TrimSpace(input.UserID)
	if input.DedupKey != "" {
		existing, err := s.repo.GetByDedupKey(ctx, userID, input.DedupKey)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}
	item := &domain.InboxItem{
		UserID:     userID,
		DedupKey:   input.DedupKey,
		Kind:       input.Kind,
		EventID:    input.EventID,
		Title:      input.Title,
		Body:       input.Body,
		ActionURL:  input.ActionURL,
		Metadata:   cloneJSON(input.Metadata),
		Unread:     true,
		OccurredAt: input.OccurredAt,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, err
	}
	s.emit(ctx, broadcaster.TopicInboxCreated, item)
	return item, nil
}

// HandleReceived consumes the notification received signal. Signals for an
// unknown viewer are skipped.
func (s *Service) HandleReceived(ctx context.Context, evt broadcaster.Event) error {
	received, ok := evt.Payload.(delivery.Received)
	if !ok {
		return nil
	}
	if !received.Viewer.IsKnown() {
		return nil
	}
	desc := received.Descriptor
	input := CreateInput{
		UserID:     received.Viewer.ViewerID,
		DedupKey:   string(desc.Key()),
		Kind:       string(desc.Kind),
		EventID:    desc.SubjectEventID,
		Title:      desc.Title,
		Body:       desc.Body,
		OccurredAt: desc.OccurredAt,
		Metadata: domain.JSONMap{
			"relationship": string(desc.Relationship),
			"event_title":  desc.SubjectEventTitle,
		},
	}
	if desc.SubjectEventID != "" {
		input.ActionURL = s.actionBase + "/" + url.PathEscape(desc.SubjectEventID)
	}
	item, err := s.Create(ctx, input)
	if err != nil {
		s.logger.Warn("inbox: mirror notification failed", logger.F("error", err))
		return err
	}
	s.logger.Debug("inbox: notification mirrored",
		logger.F("user_id", item.UserID),
		logger.F("dedup_key", item.DedupKey),
	)
	return nil
}

// List returns inbox items for the given user applying the supplied filters.
func (s *Service) List(ctx context.Context, userID string, opts store.ListOptions, filters ListFilters) (store.ListResult[domain.InboxItem], error) {
	opts.IncludeDismissed = filters.IncludeDismissed
	opts.UnreadOnly = filters.UnreadOnly
	if !filters.Before.IsZero() {
		opts.Until = filters.Before
	}
	return s.repo.ListByUser(ctx, strings.TrimSpace(userID), opts)
}

// MarkRead toggles the unread flag for the provided items. IDs that do not
// belong to the user are ignored to avoid leaking existence checks.
func (s *Service) MarkRead(ctx context.Context, userID string, ids []uuid.UUID, read bool) error {
	userID = strings.TrimSpace(userID)
	for _, id := range ids {
		item, err := s.repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return err
		}
		if item.UserID != userID {
			continue
		}
		if err := s.repo.MarkRead(ctx, id, read); err != nil {
			return err
		}
		item.Unread = !read
		s.emit(ctx, broadcaster.TopicInboxUpdated, item)
		verb := "notification.unread"
		if read {
			verb = "notification.read"
		}
		s.activity.Notify(ctx, activity.Event{
			Verb:       verb,
			ActorID:    userID,
			UserID:     item.UserID,
			ObjectType: "inbox_item",
			ObjectID:   item.ID.String(),
			DedupKey:   item.DedupKey,
		})
	}
	return nil
}

// Dismiss marks an inbox item as dismissed and clears the unread flag.
func (s *Service) Dismiss(ctx context.Context, userID string, id uuid.UUID) error {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if item.UserID != strings.TrimSpace(userID) {
		return nil
	}
	if err := s.repo.Dismiss(ctx, id); err != nil {
		return err
	}
	item.DismissedAt = time.Now().UTC()
	item.Unread = false
	s.emit(ctx, broadcaster.TopicInboxUpdated, item)
	s.activity.Notify(ctx, activity.Event{
		Verb:       "notification.dismissed",
		ActorID:    userID,
		UserID:     item.UserID,
		ObjectType: "inbox_item",
		ObjectID:   item.ID.String(),
		DedupKey:   item.DedupKey,
	})
	return nil
}

// BadgeCount returns the unread count for the given user.
func (s *Service) BadgeCount(ctx context.Context, userID string) (int, error) {
	return s.repo.CountUnread(ctx, strings.TrimSpace(userID))
}

func (s *Service) emit(ctx context.Context, topic string, item *domain.InboxItem) {
	if item == nil {
		return
	}
	payload := broadcaster.Event{
		Topic: topic,
		Payload: map[string]any{
			"id":         item.ID.String(),
			"user_id":    item.UserID,
			"title":      item.Title,
			"event_id":   item.EventID,
			"action_url": item.ActionURL,
			"unread":     item.Unread,
			"dismissed":  !item.DismissedAt.IsZero(),
		},
	}
	if err := s.broadcaster.Broadcast(ctx, payload); err != nil {
		s.logger.Warn("broadcast inbox event failed", logger.F("error", err))
	}
}

func validateCreateInput(input CreateInput) error {
	if strings.TrimSpace(input.UserID) == "" {
		return errUserRequired
	}
	if strings.TrimSpace(input.Title) == "" {
		return errTitleRequired
	}
	return nil
}

func cloneJSON(src domain.JSONMap) domain.JSONMap {
	if len(src) == 0 {
		return nil
	}
	out := make(domain.JSONMap, len(src))
	for key, value := range src {
		out[key] = value
	}
	return out
}
