package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/AlesonDEV/Api.FreeCity.Services/internal/ports"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const insertBatchSize = 1000

// feedTables lists every table owned by a feed import, children first.
var feedTables = []string{"stop_times", "trips", "routes", "shapes", "stops", "calendar_dates", "calendars"}

type feedRepository struct {
	db *gorm.DB
}

// ReplaceFeed swaps the whole stored feed inside one transaction so readers
// only ever observe the previous or the new feed.
func (r *feedRepository) ReplaceFeed(ctx context.Context, params ports.ReplaceFeedParams) error {
	feed := params.Feed
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range feedTables {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}

		routes := make([]routeModel, 0, len(feed.Routes))
		for i, route := range feed.Routes {
			routes = append(routes, toRouteModel(i, route))
		}
		stops := make([]stopModel, 0, len(feed.Stops))
		for i, stop := range feed.Stops {
			stops = append(stops, toStopModel(i, stop))
		}
		if err := insertBatches(tx, "calendars", mapSlice(feed.Calendars, toCalendarModel)); err != nil {
			return err
		}
		if err := insertBatches(tx, "calendar_dates", mapSlice(feed.CalendarDates, toCalendarDateModel)); err != nil {
			return err
		}
		if err := insertBatches(tx, "stops", stops); err != nil {
			return err
		}
		if err := insertBatches(tx, "shapes", mapSlice(feed.Shapes, toShapeModel)); err != nil {
			return err
		}
		if err := insertBatches(tx, "routes", routes); err != nil {
			return err
		}
		if err := insertBatches(tx, "trips", mapSlice(feed.Trips, toTripModel)); err != nil {
			return err
		}
		if err := insertBatches(tx, "stop_times", mapSlice(feed.StopTimes, toStopTimeModel)); err != nil {
			return err
		}

		importedAt := params.ImportedAt.UTC()
		meta := feedMetadataModel{
			ID:                      feedMetadataID,
			LastSuccessfulUpdateUTC: &importedAt,
			Checksum:                nullableString(params.Checksum),
			SourceURL:               nullableString(params.SourceURL),
			ArchiveKey:              nullableString(params.ArchiveKey),
			UpdatedAt:               importedAt,
		}
		if err := upsertMetadata(tx, meta, "last_successful_update_utc", "checksum", "source_url", "archive_key"); err != nil {
			return err
		}
		if params.Event.EventType != "" {
			if err := enqueueOutbox(tx, params.Event); err != nil {
				return fmt.Errorf("enqueue %s: %w", params.Event.EventType, err)
			}
		}
		return nil
	})
}

// MarkUnchanged records a successful run whose archive matched the stored checksum.
func (r *feedRepository) MarkUnchanged(ctx context.Context, at time.Time) error {
	at = at.UTC()
	meta := feedMetadataModel{ID: feedMetadataID, LastSuccessfulUpdateUTC: &at, UpdatedAt: at}
	return upsertMetadata(r.db.WithContext(ctx), meta, "last_successful_update_utc")
}

func (r *feedRepository) RecordFailure(ctx context.Context, at time.Time, message string) error {
	at = at.UTC()
	meta := feedMetadataModel{
		ID:               feedMetadataID,
		LastErrorUTC:     &at,
		LastErrorMessage: &message,
		UpdatedAt:        at,
	}
	return upsertMetadata(r.db.WithContext(ctx), meta, "last_error_utc", "last_error_message")
}

func upsertMetadata(tx *gorm.DB, rec feedMetadataModel, columns ...string) error {
	updates := append(append([]string{}, columns...), "updated_at")
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(updates),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("upsert feed metadata: %w", err)
	}
	return nil
}

func insertBatches[M any](tx *gorm.DB, table string, rows []M) error {
	if len(rows) == 0 {
		return nil
	}
	if err := tx.CreateInBatches(&rows, insertBatchSize).Error; err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}
