package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/AlesonDEV/Api.FreeCity.Services/internal/ports"
)

// OutboxWorker relays feed events recorded alongside each import. Events are
// delivered in creation order; a failed publish ends the batch so a later
// snapshot never overtakes an earlier one.
type OutboxWorker struct {
	logger    *slog.Logger
	outbox    ports.OutboxRepository
	publisher ports.EventPublisher
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

func NewOutboxWorker(logger *slog.Logger, outbox ports.OutboxRepository, publisher ports.EventPublisher, interval time.Duration, batchSize int) *OutboxWorker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxWorker{
		logger:    logger,
		outbox:    outbox,
		publisher: publisher,
		interval:  interval,
		batchSize: batchSize,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		relayed, err := w.relayBatch(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "feed event relay failed",
				"module", "events.outbox_worker",
				"layer", "adapter",
				"operation", "relay_batch",
				"outcome", "failure",
				"relayed", relayed,
				"error", err,
			)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// relayBatch publishes up to batchSize pending events and returns how many
// were delivered.
func (w *OutboxWorker) relayBatch(ctx context.Context) (int, error) {
	records, err := w.outbox.FetchUnpublished(ctx, w.batchSize)
	if err != nil {
		return 0, err
	}
	relayed := 0
	for _, rec := range records {
		at := w.now()
		if pubErr := w.publisher.Publish(ctx, rec.EventType, rec.Payload, rec.PartitionKey); pubErr != nil {
			if markErr := w.outbox.MarkFailed(ctx, rec.OutboxID, pubErr.Error(), at); markErr != nil {
				return relayed, errors.Join(pubErr, markErr)
			}
			w.logger.WarnContext(ctx, "feed event publish failed, retrying next poll",
				"module", "events.outbox_worker",
				"layer", "adapter",
				"operation", "publish",
				"outcome", "failure",
				"event_type", rec.EventType,
				"outbox_id", rec.OutboxID.String(),
				"attempt", rec.RetryCount+1,
				"error", pubErr,
			)
			return relayed, nil
		}
		if err := w.outbox.MarkPublished(ctx, rec.OutboxID, at); err != nil {
			return relayed, err
		}
		relayed++
	}
	if relayed > 0 {
		w.logger.InfoContext(ctx, "feed events relayed",
			"module", "events.outbox_worker",
			"layer", "adapter",
			"operation", "relay_batch",
			"outcome", "success",
			"relayed", relayed,
		)
	}
	return relayed, nil
}
