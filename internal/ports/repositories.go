package ports

import (
	"context"
	"time"

	"github.com/AlesonDEV/Api.FreeCity.Services/internal/domain"
	"github.com/google/uuid"
)

type ReplaceFeedParams struct {
	Feed       domain.Feed
	Checksum   string
	SourceURL  string
	ArchiveKey string
	ImportedAt time.Time
	Event      OutboxEvent
}

type FeedWriter interface {
	ReplaceFeed(ctx context.Context, params ReplaceFeedParams) error
	MarkUnchanged(ctx context.Context, at time.Time) error
	RecordFailure(ctx context.Context, at time.Time, message string) error
}

// TableCounts holds nil for any table whose count could not be read.
type TableCounts struct {
	Routes    *int64
	Shapes    *int64
	Stops     *int64
	Trips     *int64
	StopTimes *int64
}

func (c TableCounts) Complete() bool {
	return c.Routes != nil && c.Shapes != nil && c.Stops != nil && c.Trips != nil && c.StopTimes != nil
}

type FeedReader interface {
	GetMetadata(ctx context.Context) (domain.FeedMetadata, error)
	ListRoutes(ctx context.Context, limit int) ([]domain.Route, error)
	GetRoute(ctx context.Context, routeID string) (domain.Route, error)
	ListStops(ctx context.Context, limit int) ([]domain.Stop, error)
	GetStop(ctx context.Context, stopID string) (domain.Stop, error)
	ListShapes(ctx context.Context, limit int) ([]domain.Shape, error)
	Counts(ctx context.Context) (TableCounts, error)
	Ping(ctx context.Context) error
}

type DepartureQuery struct {
	StopID      string
	RouteID     string
	ServiceIDs  []string
	FromSeconds int
	Limit       int
}

type ScheduleRepository interface {
	ServiceCalendar(ctx context.Context, date time.Time) ([]domain.Calendar, []domain.CalendarDate, error)
	Departures(ctx context.Context, query DepartureQuery) ([]domain.Departure, error)
}

type OutboxEvent struct {
	EventID      uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	OccurredAt   time.Time
}

type OutboxRecord struct {
	OutboxID     uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	RetryCount   int
	PublishedAt  *time.Time
	LastError    *string
	FirstSeenAt  time.Time
}

type OutboxRepository interface {
	FetchUnpublished(ctx context.Context, limit int) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, errMsg string, at time.Time) error
}
