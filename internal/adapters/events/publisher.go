package events

import (
	"context"
	"encoding/json"
	"log/slog"
)

// LoggingPublisher writes feed events to the log when no broker is configured.
type LoggingPublisher struct {
	logger *slog.Logger
}

func NewLoggingPublisher(logger *slog.Logger) *LoggingPublisher {
	return &LoggingPublisher{logger: logger}
}

func (p *LoggingPublisher) Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error {
	attrs := []any{
		"module", "events.logging_publisher",
		"layer", "adapter",
		"operation", "publish",
		"outcome", "success",
		"event_type", eventType,
		"feed_checksum", partitionKey,
	}
	if json.Valid(payload) {
		attrs = append(attrs, "payload", json.RawMessage(payload))
	} else {
		attrs = append(attrs, "payload_bytes", len(payload))
	}
	p.logger.InfoContext(ctx, "feed event logged without broker", attrs...)
	return nil
}
