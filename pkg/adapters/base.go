package adapters

import (
	"errors"

	"github.com/goliatone/go-live-notifications/pkg/interfaces/logger"
)

// BaseAdapter provides shared helpers for simple tiers.
type BaseAdapter struct {
	logger logger.Logger
}

func NewBaseAdapter(l logger.Logger) BaseAdapter {
	return BaseAdapter{logger: logger.OrNop(l)}
}

func (b BaseAdapter) LogSuccess(name string, msg Message) {
	b.Logger().Debug("cue tier delivered",
		logger.F("tier", name),
		logger.F("channel", msg.Channel),
		logger.F("id", msg.ID),
	)
}

// LogFailure records a tier failure. Unavailable capabilities are expected and
// logged at debug level.
func (b BaseAdapter) LogFailure(name string, msg Message, err error) {
	fields := []logger.Field{
		logger.F("tier", name),
		logger.F("channel", msg.Channel),
		logger.F("id", msg.ID),
		logger.F("error", err),
	}
	if errors.Is(err, ErrUnavailable) {
		b.Logger().Debug("cue tier unavailable", fields...)
		return
	}
	b.Logger().Warn("cue tier failed", fields...)
}

// Logger exposes the adapter logger for structured diagnostics.
func (b BaseAdapter) Logger() logger.Logger {
	return logger.OrNop(b.logger)
}
