package domain

import "time"

type Route struct {
	RouteID     string
	AgencyID    *string
	ShortName   *string
	LongName    *string
	Description *string
	RouteType   *string
	URL         *string
	Color       *string
	TextColor   *string
	ShapeIDs    []string
}

type Stop struct {
	StopID             string
	Code               *string
	Name               string
	Description        *string
	Lat                float64
	Lon                float64
	ZoneID             *string
	URL                *string
	LocationType       string
	ParentStation      *string
	WheelchairBoarding *string
}

// Shape holds an ordered polyline; each point is [lat, lon].
type Shape struct {
	ShapeID     string
	Coordinates [][2]float64
}

type Trip struct {
	TripID               string
	RouteID              string
	ServiceID            string
	Headsign             *string
	DirectionID          *int
	BlockID              *string
	ShapeID              *string
	WheelchairAccessible *int
	BikesAllowed         *int
}

// StopTime stores arrival and departure as seconds after the service day's midnight.
type StopTime struct {
	TripID            string
	StopID            string
	StopSequence      int
	ArrivalTime       int
	DepartureTime     int
	StopHeadsign      *string
	PickupType        int
	DropOffType       int
	ShapeDistTraveled *float64
	Timepoint         *int
}

type Calendar struct {
	ServiceID string
	Monday    bool
	Tuesday   bool
	Wednesday bool
	Thursday  bool
	Friday    bool
	Saturday  bool
	Sunday    bool
	StartDate time.Time
	EndDate   time.Time
}

type ExceptionType int

const (
	ExceptionServiceAdded   ExceptionType = 1
	ExceptionServiceRemoved ExceptionType = 2
)

type CalendarDate struct {
	ServiceID     string
	Date          time.Time
	ExceptionType ExceptionType
}

// Feed is one fully parsed GTFS static archive.
type Feed struct {
	Routes        []Route
	Trips         []Trip
	Stops         []Stop
	Shapes        []Shape
	StopTimes     []StopTime
	Calendars     []Calendar
	CalendarDates []CalendarDate
	SkippedRows   map[string]int
}

type FeedCounts struct {
	Routes        int
	Trips         int
	Stops         int
	Shapes        int
	StopTimes     int
	Calendars     int
	CalendarDates int
}

func (f Feed) Counts() FeedCounts {
	return FeedCounts{
		Routes:        len(f.Routes),
		Trips:         len(f.Trips),
		Stops:         len(f.Stops),
		Shapes:        len(f.Shapes),
		StopTimes:     len(f.StopTimes),
		Calendars:     len(f.Calendars),
		CalendarDates: len(f.CalendarDates),
	}
}

type FeedMetadata struct {
	LastSuccessfulUpdate *time.Time
	LastErrorAt          *time.Time
	LastErrorMessage     string
	Checksum             string
	SourceURL            string
	ArchiveKey           string
}

// Loaded reports whether any import has ever completed.
func (m FeedMetadata) Loaded() bool {
	return m.LastSuccessfulUpdate != nil
}

type Departure struct {
	TripID               string
	RouteID              string
	DepartureSeconds     int
	RouteShortName       *string
	RouteLongName        *string
	Headsign             *string
	RouteColor           *string
	WheelchairAccessible *int
}
