package mqtt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/goliatone/go-live-notifications/pkg/domain"
	"github.com/goliatone/go-live-notifications/pkg/retry"
)

type fakeToken struct {
	err  error
	done chan struct{}
}

func doneToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type fakeClient struct {
	mqtt.Client
	opts *mqtt.ClientOptions

	mu           sync.Mutex
	failConnects int
	connected    bool
	filters      map[string]byte
	handler      mqtt.MessageHandler
	unsubscribed []string
	disconnected bool
	subscribed   chan struct{}
}

func (c *fakeClient) Connect() mqtt.Token {
	c.mu.Lock()
	if c.failConnects > 0 {
		c.failConnects--
		c.mu.Unlock()
		return doneToken(errors.New("refused"))
	}
	c.connected = true
	c.mu.Unlock()
	c.opts.OnConnect(c)
	return doneToken(nil)
}

func (c *fakeClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeClient) SubscribeMultiple(filters map[string]byte, handler mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	c.filters = filters
	c.handler = handler
	c.mu.Unlock()
	close(c.subscribed)
	return doneToken(nil)
}

func (c *fakeClient) Unsubscribe(topics ...string) mqtt.Token {
	c.mu.Lock()
	c.unsubscribed = append(c.unsubscribed, topics...)
	c.mu.Unlock()
	return doneToken(nil)
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	c.disconnected = true
	c.connected = false
	c.mu.Unlock()
}

func TestTopics(t *testing.T) {
	topics := Topics("notifications/", domain.ViewerIdentity{ViewerID: "u/1", Department: "PGSO Office"})
	if len(topics) != 2 || topics[0] != "notifications/users/u_1" || topics[1] != "notifications/departments/pgso_office" {
		t.Fatalf("unexpected topics %v", topics)
	}
	if got := Topics("n", domain.ViewerIdentity{ViewerID: "u"}); len(got) != 1 {
		t.Fatalf("expected user topic only, got %v", got)
	}
}

func TestSourceSubscribesAndStreams(t *testing.T) {
	fake := &fakeClient{failConnects: 1, subscribed: make(chan struct{})}
	source, err := New(Config{
		Broker:  "tcp://localhost:1883",
		Backoff: retry.ExponentialBackoff{Base: time.Millisecond, Max: time.Millisecond},
		NewClient: func(opts *mqtt.ClientOptions) mqtt.Client {
			fake.opts = opts
			return fake
		},
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	sub, err := source.Subscribe(context.Background(), domain.ViewerIdentity{ViewerID: "u-1", Department: "PGSO"})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	select {
	case <-fake.subscribed:
	case <-time.After(2 * time.Second):
		t.Fatalf("client never subscribed")
	}
	if _, ok := fake.filters["notifications/departments/pgso"]; !ok {
		t.Fatalf("expected department topic, got %v", fake.filters)
	}

	fake.handler(fake, fakeMessage{topic: "notifications/users/u-1", payload: []byte(`garbage`)})
	go fake.handler(fake, fakeMessage{topic: "notifications/users/u-1", payload: []byte(`{"eventId":"E9"}`)})

	select {
	case evt := <-sub.Events():
		if evt.EventID != "E9" {
			t.Fatalf("unexpected event %+v", evt)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no event received")
	}

	_ = sub.Close()
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if !fake.disconnected || len(fake.unsubscribed) != 2 {
		t.Fatalf("expected unsubscribe and disconnect, got %+v", fake.unsubscribed)
	}
}

func TestNewRequiresBroker(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected broker error")
	}
}
