package broadcaster

import "context"

// Topics published by the engine.
const (
	TopicNotificationReceived = "notification.received"
	TopicToastShow            = "toast.show"
	TopicToastHide            = "toast.hide"
	TopicInboxCreated         = "inbox.created"
	TopicInboxUpdated         = "inbox.updated"
)

// Event carries a local signal or a payload destined for real-time transports.
type Event struct {
	Topic   string
	Payload any
}

// Broadcaster pushes events to in-process subscribers or WebSocket transports.
type Broadcaster interface {
	Broadcast(ctx context.Context, event Event) error
}

// Nop broadcaster discards events.
type Nop struct{}

var _ Broadcaster = (*Nop)(nil)

func (n *Nop) Broadcast(ctx context.Context, event Event) error { return nil }
