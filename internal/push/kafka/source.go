package kafka

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/goliatone/go-live-notifications/internal/push"
	"github.com/goliatone/go-live-notifications/pkg/domain"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/logger"
	"github.com/goliatone/go-live-notifications/pkg/retry"
)

const (
	userKeyPrefix       = "user:"
	departmentKeyPrefix = "department:"
)

var (
	errBrokersRequired = errors.New("push/kafka: at least one broker is required")
	errTopicRequired   = errors.New("push/kafka: topic is required")
)

// Reader is the subset of kafka.Reader used by the source.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ReaderFactory builds a reader for one subscription.
type ReaderFactory func(cfg kafka.ReaderConfig) Reader

// Config configures the Kafka push source.
type Config struct {
	Brokers   []string
	Topic     string
	GroupID   string
	Buffer    int
	Backoff   retry.Backoff
	NewReader ReaderFactory
	Logger    logger.Logger
}

// Source consumes a shared notifications topic and keeps only the messages
// addressed to the subscribed viewer.
type Source struct {
	cfg    Config
	logger logger.Logger
}

var _ push.Source = (*Source)(nil)

// New validates cfg and returns a Source.
func New(cfg Config) (*Source, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errBrokersRequired
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errTopicRequired
	}
	if cfg.GroupID == "" {
		cfg.GroupID = "live-notifications"
	}
	if cfg.Backoff == nil {
		cfg.Backoff = retry.DefaultBackoff()
	}
	if cfg.NewReader == nil {
		cfg.NewReader = func(rc kafka.ReaderConfig) Reader { return kafka.NewReader(rc) }
	}
	return &Source{cfg: cfg, logger: logger.OrNop(cfg.Logger)}, nil
}

// ReaderConfig returns the reader settings used for viewer. Each viewer
// consumes under its own group so offsets survive re-subscription.
func (s *Source) ReaderConfig(viewer domain.ViewerIdentity) kafka.ReaderConfig {
	return kafka.ReaderConfig{
		Brokers:         s.cfg.Brokers,
		GroupID:         s.cfg.GroupID + "-" + viewer.ViewerID,
		Topic:           s.cfg.Topic,
		StartOffset:     kafka.LastOffset,
		CommitInterval:  time.Second,
		MinBytes:        1,
		MaxBytes:        10e6,
		ReadLagInterval: -1,
	}
}

// Subscribe starts a reader for viewer.
func (s *Source) Subscribe(ctx context.Context, viewer domain.ViewerIdentity) (push.Subscription, error) {
	if !viewer.IsKnown() {
		return nil, push.ErrUnknownViewer
	}
	stream, loopCtx := push.NewStream(ctx, s.cfg.Buffer)
	reader := s.cfg.NewReader(s.ReaderConfig(viewer))
	stream.OnClose(reader.Close)
	go s.consume(loopCtx, stream, reader, viewer)
	return stream, nil
}

func (s *Source) consume(ctx context.Context, stream *push.Stream, reader Reader, viewer domain.ViewerIdentity) {
	lgr := s.logger.With(logger.F("viewer_id", viewer.ViewerID), logger.F("topic", s.cfg.Topic))
	failures := 0
	for ctx.Err() == nil {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			lgr.Warn("push/kafka: fetch failed", logger.F("attempt", failures), logger.F("error", err))
			if retry.Wait(ctx, s.cfg.Backoff, failures) != nil {
				return
			}
			continue
		}
		failures = 0

		if Addressed(string(msg.Key), viewer) {
			evt, err := domain.DecodeRawEvent(msg.Value)
			if err != nil {
				lgr.Debug("push/kafka: dropping undecodable message",
					logger.F("offset", msg.Offset),
					logger.F("error", err),
				)
			} else if !stream.Emit(ctx, evt) {
				return
			}
		}
		if err := reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			lgr.Warn("push/kafka: commit failed", logger.F("offset", msg.Offset), logger.F("error", err))
		}
	}
}

// Addressed reports whether a message key targets viewer. Keys are either
// empty (broadcast), a viewer id, "user:<id>" or "department:<name>".
func Addressed(key string, viewer domain.ViewerIdentity) bool {
	key = strings.TrimSpace(key)
	switch {
	case key == "":
		return true
	case strings.HasPrefix(key, departmentKeyPrefix):
		dept := strings.TrimSpace(viewer.Department)
		return dept != "" && strings.EqualFold(strings.TrimPrefix(key, departmentKeyPrefix), dept)
	case strings.HasPrefix(key, userKeyPrefix):
		return strings.TrimPrefix(key, userKeyPrefix) == viewer.ViewerID
	default:
		return key == viewer.ViewerID
	}
}
