package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/talentbase/auth-service/internal/ports"
)

// WorkerOptions tunes the outbox drain loop. Zero values fall back to the
// defaults below, which match the auth_outbox claim-window schema.
type WorkerOptions struct {
	PollInterval time.Duration
	BatchSize    int
	ClaimTTL     time.Duration
	MaxRetries   int
}

func (o WorkerOptions) withDefaults() WorkerOptions {
	if o.PollInterval <= 0 {
		o.PollInterval = 2 * time.Second
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.ClaimTTL <= 0 {
		o.ClaimTTL = 30 * time.Second
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 5
	}
	return o
}

// OutboxWorker drains auth_outbox rows written by the user/session use-cases
// and hands them to the publisher. Rows are claimed with a per-batch token so
// a second worker instance cannot double-publish a user event.
type OutboxWorker struct {
	logger    *slog.Logger
	outbox    ports.OutboxRepository
	publisher ports.EventPublisher
	opts      WorkerOptions
}

func NewOutboxWorker(logger *slog.Logger, outbox ports.OutboxRepository, publisher ports.EventPublisher, opts WorkerOptions) *OutboxWorker {
	return &OutboxWorker{
		logger:    logger.With("module", "events.outbox_worker", "layer", "adapter"),
		outbox:    outbox,
		publisher: publisher,
		opts:      opts.withDefaults(),
	}
}

type batchStats struct {
	published    int
	retried      int
	deadLettered int
}

// Run drains the outbox on every tick until context cancellation.
func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		if err := w.drainOnce(ctx); err != nil {
			w.logger.ErrorContext(ctx, "outbox drain failed",
				"operation", "drain_outbox",
				"outcome", "failure",
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

func (w *OutboxWorker) drainOnce(ctx context.Context) error {
	claimToken := uuid.NewString()
	records, err := w.outbox.ClaimUnpublished(ctx, w.opts.BatchSize, claimToken, time.Now().UTC().Add(w.opts.ClaimTTL))
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	var stats batchStats
	now := time.Now().UTC()
	for _, rec := range records {
		w.dispatch(ctx, claimToken, rec, now, &stats)
	}

	w.logger.InfoContext(ctx, "user events drained",
		"operation", "drain_outbox",
		"outcome", "success",
		"claimed_count", len(records),
		"published_count", stats.published,
		"retried_count", stats.retried,
		"dead_lettered_count", stats.deadLettered,
	)
	return nil
}

// dispatch publishes one claimed row and records the result. Mark errors are
// tolerated: an unmarked row is re-claimed after the claim window lapses and
// the publish is retried, which downstream consumers must absorb anyway.
func (w *OutboxWorker) dispatch(ctx context.Context, claimToken string, rec ports.OutboxRecord, now time.Time, stats *batchStats) {
	if rec.RetryCount >= w.opts.MaxRetries {
		stats.deadLettered++
		_ = w.outbox.MarkDeadLettered(ctx, rec.OutboxID, claimToken, "retry budget exhausted before publish", now)
		return
	}

	err := w.publisher.Publish(ctx, rec.EventType, rec.Payload)
	if err == nil {
		stats.published++
		_ = w.outbox.MarkPublished(ctx, rec.OutboxID, claimToken, now)
		return
	}

	attempts := rec.RetryCount + 1
	fields := []any{
		"operation", "publish_user_event",
		"outcome", "failure",
		"outbox_id", rec.OutboxID,
		"event_type", rec.EventType,
		"partition_key", rec.PartitionKey,
		"attempts", attempts,
		"error", err,
	}
	if attempts >= w.opts.MaxRetries {
		stats.deadLettered++
		w.logger.ErrorContext(ctx, "user event dead-lettered", fields...)
		_ = w.outbox.MarkDeadLettered(ctx, rec.OutboxID, claimToken, err.Error(), now)
		return
	}

	stats.retried++
	w.logger.WarnContext(ctx, "user event publish failed, will retry", fields...)
	_ = w.outbox.MarkFailed(ctx, rec.OutboxID, claimToken, err.Error(), now)
}
