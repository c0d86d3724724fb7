package gtfs

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/AlesonDEV/Api.FreeCity.Services/internal/domain"
)

const (
	RoutesFile        = "routes.txt"
	TripsFile         = "trips.txt"
	ShapesFile        = "shapes.txt"
	StopsFile         = "stops.txt"
	StopTimesFile     = "stop_times.txt"
	CalendarFile      = "calendar.txt"
	CalendarDatesFile = "calendar_dates.txt"

	defaultStopName = "Без назви"
)

var RequiredFiles = []string{
	RoutesFile, TripsFile, ShapesFile, StopsFile, StopTimesFile, CalendarFile, CalendarDatesFile,
}

type Parser struct {
	logger *slog.Logger
}

func NewParser(logger *slog.Logger) *Parser {
	return &Parser{logger: logger}
}

func (p *Parser) Parse(data []byte) (domain.Feed, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return domain.Feed{}, fmt.Errorf("%w: not a zip archive: %v", domain.ErrFeedInvalid, err)
	}
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		name := path.Base(f.Name)
		if _, seen := files[name]; !seen {
			files[name] = f
		}
	}
	var missing []string
	for _, name := range RequiredFiles {
		if _, ok := files[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return domain.Feed{}, fmt.Errorf("%w: archive is missing %s", domain.ErrFeedInvalid, strings.Join(missing, ", "))
	}

	feed := domain.Feed{SkippedRows: make(map[string]int)}
	steps := []struct {
		file string
		fn   func(*zip.File, *domain.Feed) error
	}{
		{CalendarFile, p.parseCalendar},
		{CalendarDatesFile, p.parseCalendarDates},
		{StopsFile, p.parseStops},
		{ShapesFile, p.parseShapes},
		{RoutesFile, p.parseRoutes},
		{TripsFile, p.parseTrips},
		{StopTimesFile, p.parseStopTimes},
	}
	for _, step := range steps {
		if err := step.fn(files[step.file], &feed); err != nil {
			return domain.Feed{}, err
		}
		p.logger.Debug("gtfs file parsed",
			"module", "gtfs.parser",
			"layer", "adapter",
			"operation", "parse",
			"file", step.file,
			"skipped", feed.SkippedRows[step.file],
		)
	}
	linkShapes(&feed)
	return feed, nil
}

func (p *Parser) skip(feed *domain.Feed, r row, reason string) {
	feed.SkippedRows[r.t.name]++
	p.logger.Debug("gtfs row skipped",
		"module", "gtfs.parser",
		"layer", "adapter",
		"file", r.t.name,
		"line", r.line,
		"reason", reason,
	)
}

func (p *Parser) parseCalendar(f *zip.File, feed *domain.Feed) error {
	t, err := openTable(f)
	if err != nil {
		return err
	}
	defer t.Close()
	if err := t.require("service_id", "start_date", "end_date",
		"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"); err != nil {
		return err
	}
	seen := make(map[string]struct{})
	for {
		r, ok, err := t.next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if r.malformed {
			p.skip(feed, r, "malformed csv")
			continue
		}
		c, reason := calendarFromRow(r)
		if reason != "" {
			p.skip(feed, r, reason)
			continue
		}
		if _, dup := seen[c.ServiceID]; dup {
			p.skip(feed, r, "duplicate service_id")
			continue
		}
		seen[c.ServiceID] = struct{}{}
		feed.Calendars = append(feed.Calendars, c)
	}
}

func calendarFromRow(r row) (domain.Calendar, string) {
	c := domain.Calendar{ServiceID: r.get("service_id")}
	if c.ServiceID == "" {
		return c, "missing service_id"
	}
	var err error
	if c.StartDate, err = domain.ParseGTFSDate(r.get("start_date")); err != nil {
		return c, "invalid start_date"
	}
	if c.EndDate, err = domain.ParseGTFSDate(r.get("end_date")); err != nil {
		return c, "invalid end_date"
	}
	days := []struct {
		col string
		dst *bool
	}{
		{"monday", &c.Monday}, {"tuesday", &c.Tuesday}, {"wednesday", &c.Wednesday},
		{"thursday", &c.Thursday}, {"friday", &c.Friday}, {"saturday", &c.Saturday}, {"sunday", &c.Sunday},
	}
	for _, d := range days {
		v, ferr := r.flag(d.col)
		if ferr != nil {
			return c, ferr.Error()
		}
		*d.dst = v
	}
	return c, ""
}

func (p *Parser) parseCalendarDates(f *zip.File, feed *domain.Feed) error {
	t, err := openTable(f)
	if err != nil {
		return err
	}
	defer t.Close()
	if err := t.require("service_id", "date", "exception_type"); err != nil {
		return err
	}
	for {
		r, ok, err := t.next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if r.malformed {
			p.skip(feed, r, "malformed csv")
			continue
		}
		serviceID := r.get("service_id")
		date, derr := domain.ParseGTFSDate(r.get("date"))
		exType := r.get("exception_type")
		if serviceID == "" || derr != nil || (exType != "1" && exType != "2") {
			p.skip(feed, r, "invalid calendar exception")
			continue
		}
		n, _ := strconv.Atoi(exType)
		feed.CalendarDates = append(feed.CalendarDates, domain.CalendarDate{
			ServiceID:     serviceID,
			Date:          date,
			ExceptionType: domain.ExceptionType(n),
		})
	}
}

func (p *Parser) parseStops(f *zip.File, feed *domain.Feed) error {
	t, err := openTable(f)
	if err != nil {
		return err
	}
	defer t.Close()
	if err := t.require("stop_id", "stop_lat", "stop_lon"); err != nil {
		return err
	}
	seen := make(map[string]struct{})
	for {
		r, ok, err := t.next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if r.malformed {
			p.skip(feed, r, "malformed csv")
			continue
		}
		stopID := r.get("stop_id")
		latRaw, lonRaw := r.get("stop_lat"), r.get("stop_lon")
		if stopID == "" || latRaw == "" || lonRaw == "" {
			p.skip(feed, r, "missing id or coordinates")
			continue
		}
		lat, latErr := strconv.ParseFloat(latRaw, 64)
		lon, lonErr := strconv.ParseFloat(lonRaw, 64)
		if latErr != nil || lonErr != nil {
			p.skip(feed, r, "invalid coordinates")
			continue
		}
		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			p.skip(feed, r, "coordinates out of range")
			continue
		}
		if _, dup := seen[stopID]; dup {
			p.skip(feed, r, "duplicate stop_id")
			continue
		}
		seen[stopID] = struct{}{}
		name := r.get("stop_name")
		if name == "" {
			name = defaultStopName
		}
		locationType := r.get("location_type")
		if locationType == "" {
			locationType = "0"
		}
		feed.Stops = append(feed.Stops, domain.Stop{
			StopID:             stopID,
			Code:               r.opt("stop_code"),
			Name:               name,
			Description:        r.opt("stop_desc"),
			Lat:                lat,
			Lon:                lon,
			ZoneID:             r.opt("zone_id"),
			URL:                r.opt("stop_url"),
			LocationType:       locationType,
			ParentStation:      r.opt("parent_station"),
			WheelchairBoarding: r.opt("wheelchair_boarding"),
		})
	}
}

type shapePoint struct {
	seq int
	lat float64
	lon float64
}

func (p *Parser) parseShapes(f *zip.File, feed *domain.Feed) error {
	t, err := openTable(f)
	if err != nil {
		return err
	}
	defer t.Close()
	if err := t.require("shape_id", "shape_pt_lat", "shape_pt_lon", "shape_pt_sequence"); err != nil {
		return err
	}
	points := make(map[string][]shapePoint)
	var order []string
	for {
		r, ok, err := t.next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if r.malformed {
			p.skip(feed, r, "malformed csv")
			continue
		}
		shapeID := r.get("shape_id")
		lat, latErr := strconv.ParseFloat(r.get("shape_pt_lat"), 64)
		lon, lonErr := strconv.ParseFloat(r.get("shape_pt_lon"), 64)
		seq, seqErr := strconv.Atoi(r.get("shape_pt_sequence"))
		if shapeID == "" || latErr != nil || lonErr != nil || seqErr != nil {
			p.skip(feed, r, "invalid shape point")
			continue
		}
		if _, seen := points[shapeID]; !seen {
			order = append(order, shapeID)
		}
		points[shapeID] = append(points[shapeID], shapePoint{seq: seq, lat: lat, lon: lon})
	}
	for _, id := range order {
		pts := points[id]
		sort.SliceStable(pts, func(i, j int) bool { return pts[i].seq < pts[j].seq })
		coords := make([][2]float64, 0, len(pts))
		for _, pt := range pts {
			coords = append(coords, [2]float64{pt.lat, pt.lon})
		}
		feed.Shapes = append(feed.Shapes, domain.Shape{ShapeID: id, Coordinates: coords})
	}
	return nil
}

func (p *Parser) parseRoutes(f *zip.File, feed *domain.Feed) error {
	t, err := openTable(f)
	if err != nil {
		return err
	}
	defer t.Close()
	if err := t.require("route_id"); err != nil {
		return err
	}
	seen := make(map[string]struct{})
	for {
		r, ok, err := t.next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if r.malformed {
			p.skip(feed, r, "malformed csv")
			continue
		}
		routeID := r.get("route_id")
		if routeID == "" {
			p.skip(feed, r, "missing route_id")
			continue
		}
		if _, dup := seen[routeID]; dup {
			p.skip(feed, r, "duplicate route_id")
			continue
		}
		seen[routeID] = struct{}{}
		feed.Routes = append(feed.Routes, domain.Route{
			RouteID:     routeID,
			AgencyID:    r.opt("agency_id"),
			ShortName:   r.opt("route_short_name"),
			LongName:    r.opt("route_long_name"),
			Description: r.opt("route_desc"),
			RouteType:   r.opt("route_type"),
			URL:         r.opt("route_url"),
			Color:       r.opt("route_color"),
			TextColor:   r.opt("route_text_color"),
		})
	}
}

// parseTrips tolerates a trips.txt without the mandatory columns: routes are
// still served, only without trips and shape links.
func (p *Parser) parseTrips(f *zip.File, feed *domain.Feed) error {
	t, err := openTable(f)
	if err != nil {
		return err
	}
	defer t.Close()
	if err := t.require("trip_id", "route_id", "service_id"); err != nil {
		if errors.Is(err, errMissingColumn) {
			p.logger.Warn("trips file unusable, continuing without trips",
				"module", "gtfs.parser",
				"layer", "adapter",
				"operation", "parse_trips",
				"error", err,
			)
			return nil
		}
		return err
	}
	seen := make(map[string]struct{})
	for {
		r, ok, err := t.next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if r.malformed {
			p.skip(feed, r, "malformed csv")
			continue
		}
		tripID, routeID, serviceID := r.get("trip_id"), r.get("route_id"), r.get("service_id")
		if tripID == "" || routeID == "" || serviceID == "" {
			p.skip(feed, r, "missing trip_id, route_id or service_id")
			continue
		}
		if _, dup := seen[tripID]; dup {
			p.skip(feed, r, "duplicate trip_id")
			continue
		}
		seen[tripID] = struct{}{}
		var direction *int
		switch r.get("direction_id") {
		case "0":
			direction = new(int)
		case "1":
			one := 1
			direction = &one
		}
		feed.Trips = append(feed.Trips, domain.Trip{
			TripID:               tripID,
			RouteID:              routeID,
			ServiceID:            serviceID,
			Headsign:             r.opt("trip_headsign"),
			DirectionID:          direction,
			BlockID:              r.opt("block_id"),
			ShapeID:              r.opt("shape_id"),
			WheelchairAccessible: r.optDigit("wheelchair_accessible"),
			BikesAllowed:         r.optDigit("bikes_allowed"),
		})
	}
}

func (p *Parser) parseStopTimes(f *zip.File, feed *domain.Feed) error {
	t, err := openTable(f)
	if err != nil {
		return err
	}
	defer t.Close()
	if err := t.require("trip_id", "stop_id", "stop_sequence", "arrival_time", "departure_time"); err != nil {
		return err
	}
	for {
		r, ok, err := t.next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if r.malformed {
			p.skip(feed, r, "malformed csv")
			continue
		}
		st, reason := stopTimeFromRow(r)
		if reason != "" {
			p.skip(feed, r, reason)
			continue
		}
		feed.StopTimes = append(feed.StopTimes, st)
	}
}

func stopTimeFromRow(r row) (domain.StopTime, string) {
	tripID, stopID := r.get("trip_id"), r.get("stop_id")
	seqRaw, depRaw, arrRaw := r.get("stop_sequence"), r.get("departure_time"), r.get("arrival_time")
	if tripID == "" || stopID == "" || seqRaw == "" || depRaw == "" || arrRaw == "" {
		return domain.StopTime{}, "incomplete stop time"
	}
	seq, err := strconv.Atoi(seqRaw)
	if err != nil {
		return domain.StopTime{}, "invalid stop_sequence"
	}
	dep, depErr := domain.ParseGTFSTime(depRaw)
	arr, arrErr := domain.ParseGTFSTime(arrRaw)
	if depErr != nil || arrErr != nil {
		return domain.StopTime{}, "invalid time"
	}
	var dist *float64
	if raw := r.get("shape_dist_traveled"); raw != "" {
		v, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil {
			return domain.StopTime{}, "invalid shape_dist_traveled"
		}
		dist = &v
	}
	return domain.StopTime{
		TripID:            tripID,
		StopID:            stopID,
		StopSequence:      seq,
		ArrivalTime:       arr,
		DepartureTime:     dep,
		StopHeadsign:      r.opt("stop_headsign"),
		PickupType:        r.digitOr("pickup_type", 0),
		DropOffType:       r.digitOr("drop_off_type", 0),
		ShapeDistTraveled: dist,
		Timepoint:         r.optDigit("timepoint"),
	}, ""
}

// linkShapes attaches the distinct shape ids used by each route's trips.
func linkShapes(feed *domain.Feed) {
	byRoute := make(map[string]map[string]struct{})
	for _, trip := range feed.Trips {
		if trip.ShapeID == nil {
			continue
		}
		set, ok := byRoute[trip.RouteID]
		if !ok {
			set = make(map[string]struct{})
			byRoute[trip.RouteID] = set
		}
		set[*trip.ShapeID] = struct{}{}
	}
	for i := range feed.Routes {
		set := byRoute[feed.Routes[i].RouteID]
		ids := make([]string, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		feed.Routes[i].ShapeIDs = ids
	}
}
