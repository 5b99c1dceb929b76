package memory

import (
	"context"
	"sync"

	"github.com/goliatone/go-live-notifications/internal/push"
	"github.com/goliatone/go-live-notifications/pkg/domain"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/logger"
)

// Hub is an in-process push source. Every published event reaches every
// open subscription.
type Hub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]*push.Stream
	buffer int
	logger logger.Logger
}

var _ push.Source = (*Hub)(nil)

// NewHub returns an empty hub.
func NewHub(buffer int, l logger.Logger) *Hub {
	return &Hub{
		subs:   make(map[uint64]*push.Stream),
		buffer: buffer,
		logger: logger.OrNop(l),
	}
}

// Subscribe opens a subscription for viewer.
func (h *Hub) Subscribe(ctx context.Context, viewer domain.ViewerIdentity) (push.Subscription, error) {
	if !viewer.IsKnown() {
		return nil, push.ErrUnknownViewer
	}
	stream, _ := push.NewStream(ctx, h.buffer)

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs[id] = stream
	h.mu.Unlock()

	stream.OnClose(func() error {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
		return nil
	})
	h.logger.Debug("push: memory subscription opened", logger.F("viewer_id", viewer.ViewerID))
	return stream, nil
}

// Publish delivers evt to every subscriber and returns how many accepted it.
func (h *Hub) Publish(ctx context.Context, evt domain.RawEvent) int {
	h.mu.RLock()
	targets := make([]*push.Stream, 0, len(h.subs))
	for _, stream := range h.subs {
		targets = append(targets, stream)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, stream := range targets {
		if stream.Emit(ctx, evt) {
			delivered++
		}
	}
	return delivered
}

// Subscribers returns the number of open subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
