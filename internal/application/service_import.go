package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AlesonDEV/Api.FreeCity.Services/internal/domain"
	"github.com/AlesonDEV/Api.FreeCity.Services/internal/ports"
	"github.com/google/uuid"
)

// RunImport downloads the configured feed and replaces the stored copy.
// An archive whose checksum matches the stored feed is not rewritten unless
// force is set.
func (s *Service) RunImport(ctx context.Context, force bool) (ImportResult, error) {
	startedAt := s.nowFn()
	if !s.refresh.begin(startedAt) {
		return ImportResult{}, domain.ErrImportInProgress
	}

	result, err := s.runImport(ctx, force, startedAt)
	result.DurationMS = s.nowFn().Sub(startedAt).Milliseconds()
	switch {
	case err == nil:
		cleared := ""
		s.refresh.finish(&cleared)
		s.logger.InfoContext(ctx, "feed import finished",
			"module", "application.import",
			"layer", "application",
			"operation", "run_import",
			"outcome", "success",
			"unchanged", result.Unchanged,
			"checksum", result.Checksum,
			"duration_ms", result.DurationMS,
		)
	case errors.Is(err, domain.ErrImportInProgress):
		s.refresh.finish(nil)
	default:
		message := err.Error()
		s.refresh.finish(&message)
		s.recordFailure(ctx, message)
		s.logger.ErrorContext(ctx, "feed import failed",
			"module", "application.import",
			"layer", "application",
			"operation", "run_import",
			"outcome", "failure",
			"duration_ms", result.DurationMS,
			"error", err,
		)
	}
	return result, err
}

func (s *Service) runImport(ctx context.Context, force bool, startedAt time.Time) (ImportResult, error) {
	release, ok, err := s.lock.Acquire(ctx, s.cfg.ImportLockTTL)
	if err != nil {
		return ImportResult{}, fmt.Errorf("%w: acquire import lock: %v", domain.ErrDependencyUnavailable, err)
	}
	if !ok {
		return ImportResult{}, domain.ErrImportInProgress
	}
	defer release(context.WithoutCancel(ctx))

	archive, err := s.source.Fetch(ctx, s.cfg.FeedURL)
	if err != nil {
		return ImportResult{}, fmt.Errorf("download feed: %w", err)
	}
	result := ImportResult{Checksum: archive.Checksum}

	meta, err := s.reads.GetMetadata(ctx)
	if err != nil {
		return result, fmt.Errorf("%w: read feed metadata: %v", domain.ErrStorageUnavailable, err)
	}
	if !force && meta.Loaded() && meta.Checksum != "" && meta.Checksum == archive.Checksum {
		if err := s.feed.MarkUnchanged(ctx, s.nowFn()); err != nil {
			return result, fmt.Errorf("%w: mark feed unchanged: %v", domain.ErrStorageUnavailable, err)
		}
		result.Unchanged = true
		result.ArchiveKey = meta.ArchiveKey
		return result, nil
	}

	feed, err := s.parser.Parse(archive.Data)
	if err != nil {
		return result, fmt.Errorf("parse feed: %w", err)
	}
	if len(feed.Routes) == 0 || len(feed.Stops) == 0 {
		return result, fmt.Errorf("%w: feed contains no routes or stops", domain.ErrFeedInvalid)
	}
	result.Counts = countsMap(feed.Counts())
	result.SkippedRows = feed.SkippedRows

	archiveKey, err := s.archive.Store(ctx, archive)
	if err != nil {
		s.logger.WarnContext(ctx, "feed archive upload failed",
			"module", "application.import",
			"layer", "application",
			"operation", "archive_feed",
			"outcome", "failure",
			"checksum", archive.Checksum,
			"error", err,
		)
		archiveKey = ""
	}
	result.ArchiveKey = archiveKey

	importedAt := s.nowFn()
	event, err := s.feedUpdatedEvent(archive.Checksum, archiveKey, importedAt, result)
	if err != nil {
		return result, err
	}
	if err := s.feed.ReplaceFeed(ctx, ports.ReplaceFeedParams{
		Feed:       feed,
		Checksum:   archive.Checksum,
		SourceURL:  s.cfg.FeedURL,
		ArchiveKey: archiveKey,
		ImportedAt: importedAt,
		Event:      event,
	}); err != nil {
		return result, fmt.Errorf("%w: replace feed: %v", domain.ErrStorageUnavailable, err)
	}
	s.invalidateReadCache(ctx)
	return result, nil
}

func (s *Service) feedUpdatedEvent(checksum, archiveKey string, importedAt time.Time, result ImportResult) (ports.OutboxEvent, error) {
	data := feedUpdatedEventData{
		Checksum:    checksum,
		SourceURL:   s.cfg.FeedURL,
		ArchiveKey:  archiveKey,
		ImportedAt:  importedAt.UTC().Format(time.RFC3339),
		Counts:      result.Counts,
		SkippedRows: result.SkippedRows,
	}
	eventID := uuid.New()
	payload, err := json.Marshal(map[string]any{
		"event_id":       eventID.String(),
		"event_type":     EventFeedUpdated,
		"occurred_at":    importedAt.UTC().Format(time.RFC3339),
		"source_service": s.cfg.ServiceName,
		"schema_version": "1.0",
		"partition_key":  checksum,
		"data":           data,
	})
	if err != nil {
		return ports.OutboxEvent{}, fmt.Errorf("encode %s event: %w", EventFeedUpdated, err)
	}
	return ports.OutboxEvent{
		EventID:      eventID,
		EventType:    EventFeedUpdated,
		PartitionKey: checksum,
		Payload:      payload,
		OccurredAt:   importedAt.UTC(),
	}, nil
}

func (s *Service) recordFailure(ctx context.Context, message string) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.feed.RecordFailure(writeCtx, s.nowFn(), message); err != nil {
		s.logger.WarnContext(ctx, "could not record import failure",
			"module", "application.import",
			"layer", "application",
			"operation", "record_failure",
			"outcome", "failure",
			"error", err,
		)
	}
}

func countsMap(c domain.FeedCounts) map[string]int {
	return map[string]int{
		"routes":         c.Routes,
		"trips":          c.Trips,
		"stops":          c.Stops,
		"shapes":         c.Shapes,
		"stop_times":     c.StopTimes,
		"calendar":       c.Calendars,
		"calendar_dates": c.CalendarDates,
	}
}
