package notify

import (
	"context"

	"github.com/copydesk/copydesk/internal/event"
	"github.com/copydesk/copydesk/internal/logging"
)

// LogChannel writes event summaries to the structured log. Useful as an
// always-on channel when no chat integration is configured.
type LogChannel struct {
	log *logging.Logger
}

// NewLogChannel creates a channel writing to the given logger.
func NewLogChannel(log *logging.Logger) *LogChannel {
	if log == nil {
		log = logging.NopLogger()
	}
	return &LogChannel{log: log}
}

// Name implements Channel.
func (l *LogChannel) Name() string { return "log" }

// Notify implements Channel.
func (l *LogChannel) Notify(_ context.Context, e event.Event) error {
	l.log.Info("notification", "event", e.EventType(), "summary", formatEvent(e))
	return nil
}
