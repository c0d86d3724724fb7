package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/AlesonDEV/Api.FreeCity.Services/internal/application"
	"github.com/AlesonDEV/Api.FreeCity.Services/internal/domain"
)

type Importer interface {
	RunImport(ctx context.Context, force bool) (application.ImportResult, error)
}

type NextUpdateRecorder interface {
	SetNextUpdate(at time.Time)
}

// RefreshWorker re-imports the feed once per interval, measured from the
// start of the previous run.
type RefreshWorker struct {
	logger       *slog.Logger
	importer     Importer
	recorder     NextUpdateRecorder
	interval     time.Duration
	initialDelay time.Duration
	minWait      time.Duration
	now          func() time.Time
}

func NewRefreshWorker(logger *slog.Logger, importer Importer, recorder NextUpdateRecorder, interval, initialDelay time.Duration) *RefreshWorker {
	if interval <= 0 {
		interval = 7 * 24 * time.Hour
	}
	if initialDelay < 0 {
		initialDelay = 0
	}
	return &RefreshWorker{
		logger:       logger,
		importer:     importer,
		recorder:     recorder,
		interval:     interval,
		initialDelay: initialDelay,
		minWait:      10 * time.Second,
		now:          time.Now,
	}
}

func (w *RefreshWorker) Run(ctx context.Context) error {
	w.recorder.SetNextUpdate(w.now().Add(w.initialDelay))
	if err := sleepContext(ctx, w.initialDelay); err != nil {
		return err
	}
	for {
		started := w.now()
		result, err := w.importer.RunImport(ctx, false)
		w.logOutcome(ctx, result, err)

		wait := w.nextWait(w.now().Sub(started))
		w.recorder.SetNextUpdate(w.now().Add(wait))
		if err := sleepContext(ctx, wait); err != nil {
			return err
		}
	}
}

func (w *RefreshWorker) nextWait(elapsed time.Duration) time.Duration {
	wait := w.interval - elapsed
	if wait < w.minWait {
		wait = w.minWait
	}
	return wait
}

func (w *RefreshWorker) logOutcome(ctx context.Context, result application.ImportResult, err error) {
	switch {
	case err == nil:
		w.logger.InfoContext(ctx, "scheduled feed refresh completed",
			"module", "scheduler.refresh_worker",
			"layer", "adapter",
			"operation", "refresh_feed",
			"outcome", "success",
			"unchanged", result.Unchanged,
			"duration_ms", result.DurationMS,
		)
	case errors.Is(err, domain.ErrImportInProgress):
		w.logger.InfoContext(ctx, "scheduled feed refresh skipped",
			"module", "scheduler.refresh_worker",
			"layer", "adapter",
			"operation", "refresh_feed",
			"outcome", "skipped",
			"reason", "import already running",
		)
	case errors.Is(err, context.Canceled):
	default:
		w.logger.ErrorContext(ctx, "scheduled feed refresh failed",
			"module", "scheduler.refresh_worker",
			"layer", "adapter",
			"operation", "refresh_feed",
			"outcome", "failure",
			"error", err,
		)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
