package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/goliatone/go-live-notifications/internal/push"
	"github.com/goliatone/go-live-notifications/pkg/domain"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/logger"
	"github.com/goliatone/go-live-notifications/pkg/retry"
)

const (
	readLimit    = 512 * 1024
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	writeWait    = 10 * time.Second
)

var errURLRequired = errors.New("push/websocket: url is required")

// TokenFunc returns the bearer token used to authenticate a connection.
type TokenFunc func(ctx context.Context) string

// Config configures the websocket push source.
type Config struct {
	URL     string
	Token   TokenFunc
	Backoff retry.Backoff
	Buffer  int
	Dialer  *websocket.Dialer
	Logger  logger.Logger
}

// Source dials a websocket endpoint per viewer and reconnects with backoff
// until the subscription closes.
type Source struct {
	url     *url.URL
	token   TokenFunc
	backoff retry.Backoff
	buffer  int
	dialer  *websocket.Dialer
	logger  logger.Logger
}

var _ push.Source = (*Source)(nil)

// New validates cfg and returns a Source.
func New(cfg Config) (*Source, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errURLRequired
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("push/websocket: parse url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	if cfg.Backoff == nil {
		cfg.Backoff = retry.DefaultBackoff()
	}
	if cfg.Dialer == nil {
		dialer := *websocket.DefaultDialer
		dialer.HandshakeTimeout = 30 * time.Second
		cfg.Dialer = &dialer
	}
	return &Source{
		url:     u,
		token:   cfg.Token,
		backoff: cfg.Backoff,
		buffer:  cfg.Buffer,
		dialer:  cfg.Dialer,
		logger:  logger.OrNop(cfg.Logger),
	}, nil
}

// URLFor returns the endpoint for viewer with the identity query parameters.
func (s *Source) URLFor(viewer domain.ViewerIdentity) string {
	u := *s.url
	q := u.Query()
	q.Set("viewerId", viewer.ViewerID)
	if viewer.Department != "" {
		q.Set("department", viewer.Department)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Subscribe starts the connection loop for viewer.
func (s *Source) Subscribe(ctx context.Context, viewer domain.ViewerIdentity) (push.Subscription, error) {
	if !viewer.IsKnown() {
		return nil, push.ErrUnknownViewer
	}
	stream, loopCtx := push.NewStream(ctx, s.buffer)
	conn := &connection{
		source: s,
		stream: stream,
		target: s.URLFor(viewer),
		logger: s.logger.With(logger.F("viewer_id", viewer.ViewerID)),
	}
	stream.OnClose(conn.close)
	go conn.loop(loopCtx)
	return stream, nil
}

type connection struct {
	source *Source
	stream *push.Stream
	target string
	logger logger.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *connection) loop(ctx context.Context) {
	attempt := 0
	for ctx.Err() == nil {
		conn, err := c.dial(ctx)
		if err != nil {
			attempt++
			c.logger.Warn("push/websocket: dial failed",
				logger.F("attempt", attempt),
				logger.F("error", err),
			)
			if retry.Wait(ctx, c.source.backoff, attempt) != nil {
				return
			}
			continue
		}
		attempt = 0
		c.logger.Info("push/websocket: connected")
		err = c.read(ctx, conn)
		if ctx.Err() != nil {
			return
		}
		attempt++
		c.logger.Warn("push/websocket: connection lost", logger.F("error", err))
		if retry.Wait(ctx, c.source.backoff, attempt) != nil {
			return
		}
	}
}

func (c *connection) dial(ctx context.Context) (*websocket.Conn, error) {
	headers := make(http.Header)
	if c.source.token != nil {
		if token := c.source.token(ctx); token != "" {
			headers.Set("Authorization", "Bearer "+strings.TrimPrefix(token, "Bearer "))
		}
	}
	conn, resp, err := c.source.dialer.DialContext(ctx, c.target, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial (status: %d): %w", resp.StatusCode, err)
		}
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := ctx.Err(); err != nil {
		conn.Close()
		return nil, err
	}
	c.conn = conn
	return conn, nil
}

func (c *connection) read(ctx context.Context, conn *websocket.Conn) error {
	pingDone := make(chan struct{})
	defer func() {
		close(pingDone)
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
		conn.Close()
	}()

	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go c.ping(conn, pingDone)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		evt, err := domain.DecodeRawEvent(data)
		if err != nil {
			c.logger.Debug("push/websocket: dropping undecodable message", logger.F("error", err))
			continue
		}
		if !c.stream.Emit(ctx, evt) {
			return ctx.Err()
		}
	}
}

func (c *connection) ping(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.mu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (c *connection) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	err := c.conn.Close()
	c.conn = nil
	return err
}
