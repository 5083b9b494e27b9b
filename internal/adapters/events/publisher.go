package events

import (
	"context"
	"log/slog"
)

// LoggingPublisher is the stand-in delivery target for user events until a
// broker is wired behind the same port. Payloads carry emails, so only the
// size is logged, never the body.
type LoggingPublisher struct {
	logger *slog.Logger
}

func NewLoggingPublisher(logger *slog.Logger) *LoggingPublisher {
	return &LoggingPublisher{logger: logger}
}

func (p *LoggingPublisher) Publish(ctx context.Context, eventType string, payload []byte) error {
	p.logger.InfoContext(ctx, "user event published",
		"module", "events.publisher",
		"layer", "adapter",
		"operation", "publish",
		"outcome", "success",
		"event_type", eventType,
		"payload_bytes", len(payload),
	)
	return nil
}
