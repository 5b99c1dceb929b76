package delivery

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/goliatone/go-live-notifications/pkg/interfaces/logger"
)

// Supervisor runs detached tasks. Failures and panics are logged and never
// reach the caller.
type Supervisor struct {
	wg     sync.WaitGroup
	logger logger.Logger
	base   context.Context
}

// NewSupervisor creates a supervisor whose tasks inherit values from base but
// not its cancellation.
func NewSupervisor(base context.Context, l logger.Logger) *Supervisor {
	if base == nil {
		base = context.Background()
	}
	return &Supervisor{
		logger: logger.OrNop(l),
		base:   context.WithoutCancel(base),
	}
}

// Go starts fn in its own goroutine and returns immediately.
func (s *Supervisor) Go(name string, fn func(ctx context.Context) error) {
	if fn == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.run(fn); err != nil {
			s.logger.Warn("delivery: detached task failed",
				logger.F("task", name),
				logger.F("error", err),
			)
		}
	}()
}

func (s *Supervisor) run(fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return fn(s.base)
}

// Wait blocks until every started task returned.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}
