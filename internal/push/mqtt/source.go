package mqtt

import (
	"context"
	"errors"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/goliatone/go-live-notifications/internal/push"
	"github.com/goliatone/go-live-notifications/pkg/domain"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/logger"
	"github.com/goliatone/go-live-notifications/pkg/retry"
)

const (
	DefaultPrefix   = "notifications"
	disconnectQuiet = 250
	unsubscribeWait = time.Second
)

var errBrokerRequired = errors.New("push/mqtt: broker url is required")

// ClientFactory builds a paho client from options.
type ClientFactory func(opts *mqtt.ClientOptions) mqtt.Client

// Config configures the MQTT push source.
type Config struct {
	Broker    string
	ClientID  string
	Prefix    string
	QoS       byte
	Username  string
	Password  string
	Buffer    int
	Backoff   retry.Backoff
	NewClient ClientFactory
	Logger    logger.Logger
}

// Source subscribes to per-viewer and per-department topics on an MQTT broker.
type Source struct {
	cfg    Config
	logger logger.Logger
}

var _ push.Source = (*Source)(nil)

// New validates cfg and returns a Source.
func New(cfg Config) (*Source, error) {
	if strings.TrimSpace(cfg.Broker) == "" {
		return nil, errBrokerRequired
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "live-notifications"
	}
	if cfg.Backoff == nil {
		cfg.Backoff = retry.DefaultBackoff()
	}
	if cfg.NewClient == nil {
		cfg.NewClient = mqtt.NewClient
	}
	return &Source{cfg: cfg, logger: logger.OrNop(cfg.Logger)}, nil
}

// Topics lists the topics a viewer listens on.
func Topics(prefix string, viewer domain.ViewerIdentity) []string {
	prefix = strings.TrimSuffix(prefix, "/")
	topics := []string{prefix + "/users/" + topicSegment(viewer.ViewerID)}
	if dept := strings.TrimSpace(viewer.Department); dept != "" {
		topics = append(topics, prefix+"/departments/"+topicSegment(strings.ToLower(dept)))
	}
	return topics
}

// Subscribe connects a client for viewer and streams matching messages.
func (s *Source) Subscribe(ctx context.Context, viewer domain.ViewerIdentity) (push.Subscription, error) {
	if !viewer.IsKnown() {
		return nil, push.ErrUnknownViewer
	}
	stream, loopCtx := push.NewStream(ctx, s.cfg.Buffer)
	topics := Topics(s.cfg.Prefix, viewer)
	lgr := s.logger.With(logger.F("viewer_id", viewer.ViewerID))

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		evt, err := domain.DecodeRawEvent(msg.Payload())
		if err != nil {
			lgr.Debug("push/mqtt: dropping undecodable message",
				logger.F("topic", msg.Topic()),
				logger.F("error", err),
			)
			return
		}
		stream.Emit(loopCtx, evt)
	}

	opts := mqtt.NewClientOptions().
		AddBroker(s.cfg.Broker).
		SetClientID(s.cfg.ClientID + "-" + topicSegment(viewer.ViewerID)).
		SetOrderMatters(true).
		SetCleanSession(true).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(10 * time.Second).
		SetAutoReconnect(true)
	if s.cfg.Username != "" {
		opts.SetUsername(s.cfg.Username)
	}
	if s.cfg.Password != "" {
		opts.SetPassword(s.cfg.Password)
	}
	opts.OnConnect = func(c mqtt.Client) {
		filters := make(map[string]byte, len(topics))
		for _, topic := range topics {
			filters[topic] = s.cfg.QoS
		}
		if token := c.SubscribeMultiple(filters, handler); token.Wait() && token.Error() != nil {
			lgr.Warn("push/mqtt: subscribe failed", logger.F("error", token.Error()))
			return
		}
		lgr.Info("push/mqtt: subscribed", logger.F("topics", topics))
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		lgr.Warn("push/mqtt: connection lost", logger.F("error", err))
	}

	client := s.cfg.NewClient(opts)
	stream.OnClose(func() error {
		if client.IsConnected() {
			client.Unsubscribe(topics...).WaitTimeout(unsubscribeWait)
		}
		client.Disconnect(disconnectQuiet)
		return nil
	})
	go s.connect(loopCtx, client, lgr)
	return stream, nil
}

func (s *Source) connect(ctx context.Context, client mqtt.Client, lgr logger.Logger) {
	for attempt := 1; ctx.Err() == nil; attempt++ {
		token := client.Connect()
		select {
		case <-ctx.Done():
			return
		case <-token.Done():
		}
		if token.Error() == nil {
			return
		}
		lgr.Warn("push/mqtt: connect failed",
			logger.F("attempt", attempt),
			logger.F("error", token.Error()),
		)
		if retry.Wait(ctx, s.cfg.Backoff, attempt) != nil {
			return
		}
	}
}

func topicSegment(value string) string {
	return strings.NewReplacer("/", "_", "+", "_", "#", "_", " ", "_").Replace(strings.TrimSpace(value))
}
