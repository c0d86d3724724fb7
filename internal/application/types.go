package application

import (
	"time"
)

const (
	EventFeedUpdated = "gtfs.feed_updated"

	DefaultDepartureLimit = 10
	MaxDepartureLimit     = 50
)

type Config struct {
	ServiceName    string
	FeedURL        string
	UpdateInterval time.Duration
	Location       *time.Location
	CacheTTL       time.Duration
	ImportLockTTL  time.Duration
	RouteListLimit int
	StopListLimit  int
	ShapeListLimit int
}

type RouteResponse struct {
	ID             string   `json:"_id"`
	RouteID        string   `json:"route_id"`
	AgencyID       *string  `json:"agency_id"`
	RouteShortName *string  `json:"route_short_name"`
	RouteLongName  *string  `json:"route_long_name"`
	RouteDesc      *string  `json:"route_desc"`
	RouteType      *string  `json:"route_type"`
	RouteURL       *string  `json:"route_url"`
	RouteColor     *string  `json:"route_color"`
	RouteTextColor *string  `json:"route_text_color"`
	ShapeIDs       []string `json:"shape_ids"`
}

type StopResponse struct {
	ID                 string  `json:"_id"`
	StopID             string  `json:"stop_id"`
	StopCode           *string `json:"stop_code"`
	StopName           string  `json:"stop_name"`
	StopDesc           *string `json:"stop_desc"`
	StopLat            float64 `json:"stop_lat"`
	StopLon            float64 `json:"stop_lon"`
	ZoneID             *string `json:"zone_id"`
	StopURL            *string `json:"stop_url"`
	LocationType       string  `json:"location_type"`
	ParentStation      *string `json:"parent_station"`
	WheelchairBoarding *string `json:"wheelchair_boarding"`
}

// ShapesResponse maps shape_id to its [lat, lon] polyline.
type ShapesResponse map[string][][2]float64

type DepartureRequest struct {
	StopID    string
	RouteID   string
	Date      string
	StartTime string
	Limit     int
}

type DepartureResponse struct {
	TripID               string  `json:"trip_id"`
	RouteID              string  `json:"route_id"`
	DepartureTime        string  `json:"departure_time"`
	ServiceDate          string  `json:"service_date"`
	RouteShortName       *string `json:"route_short_name"`
	RouteLongName        *string `json:"route_long_name"`
	TripHeadsign         *string `json:"trip_headsign"`
	RouteColor           *string `json:"route_color"`
	WheelchairAccessible *int    `json:"wheelchair_accessible"`
}

type StatusResponse struct {
	Status                  string     `json:"status"`
	Message                 string     `json:"message"`
	LastSuccessfulUpdateUTC *time.Time `json:"last_successful_update_utc"`
	NextUpdateApproxUTC     *time.Time `json:"next_update_approx_utc"`
	UpdateInProgress        bool       `json:"update_in_progress"`
	FeedChecksum            string     `json:"feed_checksum,omitempty"`
	DBRoutesCount           *int64     `json:"db_routes_count"`
	DBShapesCount           *int64     `json:"db_shapes_count"`
	DBStopsCount            *int64     `json:"db_stops_count"`
	DBTripsCount            *int64     `json:"db_trips_count"`
	DBStopTimesCount        *int64     `json:"db_stop_times_count"`
}

type ImportResult struct {
	Unchanged   bool           `json:"unchanged"`
	Checksum    string         `json:"checksum"`
	ArchiveKey  string         `json:"archive_key,omitempty"`
	Counts      map[string]int `json:"counts,omitempty"`
	SkippedRows map[string]int `json:"skipped_rows,omitempty"`
	DurationMS  int64          `json:"duration_ms"`
}

type feedUpdatedEventData struct {
	Checksum    string         `json:"checksum"`
	SourceURL   string         `json:"source_url"`
	ArchiveKey  string         `json:"archive_key,omitempty"`
	ImportedAt  string         `json:"imported_at"`
	Counts      map[string]int `json:"counts"`
	SkippedRows map[string]int `json:"skipped_rows,omitempty"`
}
