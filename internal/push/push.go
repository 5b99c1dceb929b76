package push

import (
	"context"
	"errors"
	"sync"

	"github.com/goliatone/go-live-notifications/pkg/domain"
)

// DefaultBuffer is the per-subscription event buffer.
const DefaultBuffer = 100

// ErrUnknownViewer is returned when subscribing without a logged in viewer.
var ErrUnknownViewer = errors.New("push: viewer identity is unknown")

// Source opens per-viewer push subscriptions.
type Source interface {
	Subscribe(ctx context.Context, viewer domain.ViewerIdentity) (Subscription, error)
}

// Subscription yields events in transport order until closed.
type Subscription interface {
	Events() <-chan domain.RawEvent
	Close() error
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, viewer domain.ViewerIdentity) (Subscription, error)

func (f SourceFunc) Subscribe(ctx context.Context, viewer domain.ViewerIdentity) (Subscription, error) {
	return f(ctx, viewer)
}

// Stream is a Subscription backed by a buffered channel. Transports emit into
// it from their read loop; Close cancels the loop context, runs the transport
// cleanup and closes the channel. Cancelling the parent context closes the
// stream too.
type Stream struct {
	ctx     context.Context
	cancel  context.CancelFunc
	events  chan domain.RawEvent
	onClose func() error

	mu       sync.RWMutex
	closed   bool
	once     sync.Once
	closeErr error
}

var _ Subscription = (*Stream)(nil)

// NewStream derives a stream from parent. The returned context is cancelled
// when the stream closes and should drive the transport's read loop.
func NewStream(parent context.Context, buffer int) (*Stream, context.Context) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ctx, cancel := context.WithCancel(parent)
	s := &Stream{
		ctx:    ctx,
		cancel: cancel,
		events: make(chan domain.RawEvent, buffer),
	}
	context.AfterFunc(ctx, func() { _ = s.Close() })
	return s, ctx
}

// OnClose registers transport cleanup run once by Close.
func (s *Stream) OnClose(fn func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClose = fn
}

// Events returns the receive side of the stream.
func (s *Stream) Events() <-chan domain.RawEvent {
	return s.events
}

// Emit queues evt, blocking while the buffer is full. It returns false once
// the stream or ctx is done.
func (s *Stream) Emit(ctx context.Context, evt domain.RawEvent) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}
	select {
	case s.events <- evt:
		return true
	case <-s.ctx.Done():
		return false
	case <-ctx.Done():
		return false
	}
}

// Done is closed when the stream closes.
func (s *Stream) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Close stops the stream. It is safe to call more than once.
func (s *Stream) Close() error {
	s.once.Do(func() {
		s.cancel()
		s.mu.Lock()
		s.closed = true
		onClose := s.onClose
		close(s.events)
		s.mu.Unlock()
		if onClose != nil {
			s.closeErr = onClose()
		}
	})
	return s.closeErr
}
