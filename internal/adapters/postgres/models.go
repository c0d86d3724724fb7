package postgres

import (
	"time"

	"github.com/google/uuid"
)

const feedMetadataID = "gtfs_update_status"

type routeModel struct {
	RouteID        string   `gorm:"column:route_id;primaryKey"`
	Seq            int      `gorm:"column:seq"`
	AgencyID       *string  `gorm:"column:agency_id"`
	RouteShortName *string  `gorm:"column:route_short_name"`
	RouteLongName  *string  `gorm:"column:route_long_name"`
	RouteDesc      *string  `gorm:"column:route_desc"`
	RouteType      *string  `gorm:"column:route_type"`
	RouteURL       *string  `gorm:"column:route_url"`
	RouteColor     *string  `gorm:"column:route_color"`
	RouteTextColor *string  `gorm:"column:route_text_color"`
	ShapeIDs       []string `gorm:"column:shape_ids;type:jsonb;serializer:json"`
}

func (routeModel) TableName() string { return "routes" }

type tripModel struct {
	TripID               string  `gorm:"column:trip_id;primaryKey"`
	RouteID              string  `gorm:"column:route_id"`
	ServiceID            string  `gorm:"column:service_id"`
	TripHeadsign         *string `gorm:"column:trip_headsign"`
	DirectionID          *int    `gorm:"column:direction_id"`
	BlockID              *string `gorm:"column:block_id"`
	ShapeID              *string `gorm:"column:shape_id"`
	WheelchairAccessible *int    `gorm:"column:wheelchair_accessible"`
	BikesAllowed         *int    `gorm:"column:bikes_allowed"`
}

func (tripModel) TableName() string { return "trips" }

type stopModel struct {
	StopID             string  `gorm:"column:stop_id;primaryKey"`
	Seq                int     `gorm:"column:seq"`
	StopCode           *string `gorm:"column:stop_code"`
	StopName           string  `gorm:"column:stop_name"`
	StopDesc           *string `gorm:"column:stop_desc"`
	StopLat            float64 `gorm:"column:stop_lat"`
	StopLon            float64 `gorm:"column:stop_lon"`
	ZoneID             *string `gorm:"column:zone_id"`
	StopURL            *string `gorm:"column:stop_url"`
	LocationType       string  `gorm:"column:location_type"`
	ParentStation      *string `gorm:"column:parent_station"`
	WheelchairBoarding *string `gorm:"column:wheelchair_boarding"`
}

func (stopModel) TableName() string { return "stops" }

type shapeModel struct {
	ShapeID     string       `gorm:"column:shape_id;primaryKey"`
	Coordinates [][2]float64 `gorm:"column:coordinates;type:jsonb;serializer:json"`
}

func (shapeModel) TableName() string { return "shapes" }

type stopTimeModel struct {
	ID                int64    `gorm:"column:id;primaryKey;autoIncrement"`
	TripID            string   `gorm:"column:trip_id"`
	StopID            string   `gorm:"column:stop_id"`
	StopSequence      int      `gorm:"column:stop_sequence"`
	ArrivalTime       int      `gorm:"column:arrival_time"`
	DepartureTime     int      `gorm:"column:departure_time"`
	StopHeadsign      *string  `gorm:"column:stop_headsign"`
	PickupType        int      `gorm:"column:pickup_type"`
	DropOffType       int      `gorm:"column:drop_off_type"`
	ShapeDistTraveled *float64 `gorm:"column:shape_dist_traveled"`
	Timepoint         *int     `gorm:"column:timepoint"`
}

func (stopTimeModel) TableName() string { return "stop_times" }

type calendarModel struct {
	ServiceID string    `gorm:"column:service_id;primaryKey"`
	Monday    bool      `gorm:"column:monday"`
	Tuesday   bool      `gorm:"column:tuesday"`
	Wednesday bool      `gorm:"column:wednesday"`
	Thursday  bool      `gorm:"column:thursday"`
	Friday    bool      `gorm:"column:friday"`
	Saturday  bool      `gorm:"column:saturday"`
	Sunday    bool      `gorm:"column:sunday"`
	StartDate time.Time `gorm:"column:start_date;type:date"`
	EndDate   time.Time `gorm:"column:end_date;type:date"`
}

func (calendarModel) TableName() string { return "calendars" }

type calendarDateModel struct {
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ServiceID     string    `gorm:"column:service_id"`
	Date          time.Time `gorm:"column:date;type:date"`
	ExceptionType int       `gorm:"column:exception_type"`
}

func (calendarDateModel) TableName() string { return "calendar_dates" }

type feedMetadataModel struct {
	ID                      string     `gorm:"column:id;primaryKey"`
	LastSuccessfulUpdateUTC *time.Time `gorm:"column:last_successful_update_utc"`
	LastErrorUTC            *time.Time `gorm:"column:last_error_utc"`
	LastErrorMessage        *string    `gorm:"column:last_error_message"`
	Checksum                *string    `gorm:"column:checksum"`
	SourceURL               *string    `gorm:"column:source_url"`
	ArchiveKey              *string    `gorm:"column:archive_key"`
	UpdatedAt               time.Time  `gorm:"column:updated_at"`
}

func (feedMetadataModel) TableName() string { return "feed_metadata" }

type feedOutboxModel struct {
	OutboxID     uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      string     `gorm:"column:payload;type:jsonb"`
	RetryCount   int        `gorm:"column:retry_count"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
	LastError    *string    `gorm:"column:last_error"`
	LastErrorAt  *time.Time `gorm:"column:last_error_at"`
	FirstSeenAt  time.Time  `gorm:"column:first_seen_at"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
}

func (feedOutboxModel) TableName() string { return "feed_outbox" }
