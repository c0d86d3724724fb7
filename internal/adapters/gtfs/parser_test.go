package gtfs

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/AlesonDEV/Api.FreeCity.Services/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func buildArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func sampleFiles() map[string]string {
	return map[string]string{
		RoutesFile: "\ufeffroute_id,agency_id,route_short_name,route_long_name,route_type,route_color\n" +
			"992,1,А39,Грінченка - Кривчиці,3,556b2f\n" +
			"993,1,Т2,,0,\n" +
			",1,broken,,3,\n",
		TripsFile: "route_id,service_id,trip_id,trip_headsign,direction_id,shape_id,wheelchair_accessible\n" +
			"992,wd,t1,Кривчиці,0,s2,1\n" +
			"992,wd,t2,Грінченка,1,s1,\n" +
			"992,we,t3,Кривчиці,5,s2,x\n" +
			"993,wd,,nowhere,0,,\n",
		ShapesFile: "shape_id,shape_pt_lat,shape_pt_lon,shape_pt_sequence\n" +
			"s1,49.80,24.00,2\n" +
			"s1,49.81,24.01,1\n" +
			"s2,49.90,24.10,1\n" +
			"s2,bad,24.10,2\n",
		StopsFile: "stop_id,stop_code,stop_name,stop_lat,stop_lon,location_type\n" +
			"4714,A1,Автовокзал,49.8,24.0,\n" +
			"4715,,,49.81,24.01,1\n" +
			"4716,,Far,91.0,24.0,\n" +
			"4717,,NoCoords,,,\n",
		StopTimesFile: "trip_id,arrival_time,departure_time,stop_id,stop_sequence,stop_headsign,pickup_type,shape_dist_traveled\n" +
			"t1,08:00:00,08:01:00,4714,1,,,\n" +
			"t1,25:10:00,25:10:30,4715,2,Депо,1,1.5\n" +
			"t2,xx,08:05:00,4714,1,,,\n" +
			"t2,08:05:00,08:05:00,4714,,,,\n",
		CalendarFile: "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\n" +
			"wd,1,1,1,1,1,0,0,20240101,20241231\n" +
			"we,0,0,0,0,0,1,1,20240101,20241231\n" +
			"bad,1,1,1,1,1,0,0,2024,20241231\n",
		CalendarDatesFile: "service_id,date,exception_type\n" +
			"we,20240501,1\n" +
			"wd,20240501,2\n" +
			"wd,20240502,3\n",
	}
}

func TestParseFeed(t *testing.T) {
	t.Parallel()

	feed, err := NewParser(testLogger()).Parse(buildArchive(t, sampleFiles()))
	if err != nil {
		t.Fatalf("parse feed: %v", err)
	}

	if len(feed.Routes) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(feed.Routes))
	}
	if got := feed.Routes[0].ShapeIDs; !reflect.DeepEqual(got, []string{"s1", "s2"}) {
		t.Fatalf("expected sorted distinct shape ids, got %v", got)
	}
	if len(feed.Routes[1].ShapeIDs) != 0 {
		t.Fatalf("route without trips should have no shapes, got %v", feed.Routes[1].ShapeIDs)
	}
	if feed.Routes[1].LongName != nil || feed.Routes[1].Color != nil {
		t.Fatalf("empty optional route fields should be nil")
	}

	if len(feed.Trips) != 3 {
		t.Fatalf("expected 3 trips, got %d", len(feed.Trips))
	}
	if feed.Trips[2].DirectionID != nil || feed.Trips[2].WheelchairAccessible != nil {
		t.Fatalf("invalid direction and wheelchair values should be nil")
	}
	if feed.Trips[1].DirectionID == nil || *feed.Trips[1].DirectionID != 1 {
		t.Fatalf("expected direction 1 for t2")
	}

	if len(feed.Shapes) != 2 {
		t.Fatalf("expected 2 shapes, got %d", len(feed.Shapes))
	}
	if want := [][2]float64{{49.81, 24.01}, {49.80, 24.00}}; !reflect.DeepEqual(feed.Shapes[0].Coordinates, want) {
		t.Fatalf("expected points sorted by sequence, got %v", feed.Shapes[0].Coordinates)
	}

	if len(feed.Stops) != 2 {
		t.Fatalf("expected 2 valid stops, got %d", len(feed.Stops))
	}
	if feed.Stops[0].LocationType != "0" || feed.Stops[1].LocationType != "1" {
		t.Fatalf("unexpected location types %q %q", feed.Stops[0].LocationType, feed.Stops[1].LocationType)
	}
	if feed.Stops[1].Name != defaultStopName || feed.Stops[1].Code != nil {
		t.Fatalf("expected default stop name and nil code, got %+v", feed.Stops[1])
	}

	if len(feed.StopTimes) != 2 {
		t.Fatalf("expected 2 stop times, got %d", len(feed.StopTimes))
	}
	late := feed.StopTimes[1]
	if late.DepartureTime != 25*3600+10*60+30 || late.PickupType != 1 || late.ShapeDistTraveled == nil || *late.ShapeDistTraveled != 1.5 {
		t.Fatalf("unexpected stop time %+v", late)
	}

	if len(feed.Calendars) != 2 {
		t.Fatalf("expected 2 calendars, got %d", len(feed.Calendars))
	}
	if !feed.Calendars[0].Friday || feed.Calendars[0].Saturday {
		t.Fatalf("unexpected weekday flags %+v", feed.Calendars[0])
	}
	if !feed.Calendars[0].EndDate.Equal(time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected end date %v", feed.Calendars[0].EndDate)
	}
	if len(feed.CalendarDates) != 2 {
		t.Fatalf("expected 2 calendar exceptions, got %d", len(feed.CalendarDates))
	}

	wantSkipped := map[string]int{
		RoutesFile: 1, TripsFile: 1, ShapesFile: 1, StopsFile: 2,
		StopTimesFile: 2, CalendarFile: 1, CalendarDatesFile: 1,
	}
	if !reflect.DeepEqual(feed.SkippedRows, wantSkipped) {
		t.Fatalf("expected skipped %v, got %v", wantSkipped, feed.SkippedRows)
	}
}

func TestParseFeedMissingFiles(t *testing.T) {
	t.Parallel()

	files := sampleFiles()
	delete(files, StopTimesFile)
	delete(files, CalendarDatesFile)

	_, err := NewParser(testLogger()).Parse(buildArchive(t, files))
	if !errors.Is(err, domain.ErrFeedInvalid) {
		t.Fatalf("expected invalid feed error, got %v", err)
	}
	if !strings.Contains(err.Error(), StopTimesFile) || !strings.Contains(err.Error(), CalendarDatesFile) {
		t.Fatalf("error should list missing files, got %v", err)
	}
}

func TestParseFeedNotZip(t *testing.T) {
	t.Parallel()

	if _, err := NewParser(testLogger()).Parse([]byte("not a zip")); !errors.Is(err, domain.ErrFeedInvalid) {
		t.Fatalf("expected invalid feed error, got %v", err)
	}
}

func TestParseFeedMissingStopColumnIsFatal(t *testing.T) {
	t.Parallel()

	files := sampleFiles()
	files[StopsFile] = "stop_id,stop_name\n4714,Автовокзал\n"
	_, err := NewParser(testLogger()).Parse(buildArchive(t, files))
	if !errors.Is(err, domain.ErrFeedInvalid) || !strings.Contains(err.Error(), "stop_lat") {
		t.Fatalf("expected missing column error, got %v", err)
	}
}

func TestParseFeedTripsWithoutColumnsKeepsRoutes(t *testing.T) {
	t.Parallel()

	files := sampleFiles()
	files[TripsFile] = "route_id,trip_id\n992,t1\n"
	feed, err := NewParser(testLogger()).Parse(buildArchive(t, files))
	if err != nil {
		t.Fatalf("parse feed: %v", err)
	}
	if len(feed.Trips) != 0 {
		t.Fatalf("expected no trips, got %d", len(feed.Trips))
	}
	if len(feed.Routes) != 2 || len(feed.Routes[0].ShapeIDs) != 0 {
		t.Fatalf("routes should load without shape links, got %+v", feed.Routes)
	}
}

func TestParseFeedNestedDirectory(t *testing.T) {
	t.Parallel()

	files := make(map[string]string)
	for name, body := range sampleFiles() {
		files["lviv/"+name] = body
	}
	feed, err := NewParser(testLogger()).Parse(buildArchive(t, files))
	if err != nil {
		t.Fatalf("parse nested feed: %v", err)
	}
	if len(feed.Routes) != 2 {
		t.Fatalf("expected routes from nested files, got %d", len(feed.Routes))
	}
}

func TestParseFeedSkipsDuplicateKeys(t *testing.T) {
	t.Parallel()

	files := sampleFiles()
	files[StopsFile] += "4714,A2,Автовокзал (дубль),49.7,24.1,\n"
	files[CalendarFile] += "wd,0,0,0,0,0,0,1,20240101,20240630\n"
	files[StopTimesFile] += "t1,700000:00:00,700000:00:00,4714,3,,,\n"

	feed, err := NewParser(testLogger()).Parse(buildArchive(t, files))
	if err != nil {
		t.Fatalf("parse feed: %v", err)
	}

	stopIDs := make(map[string]int)
	for _, stop := range feed.Stops {
		stopIDs[stop.StopID]++
	}
	if stopIDs["4714"] != 1 || len(feed.Stops) != 2 {
		t.Fatalf("expected one 4714 stop among 2, got %v", stopIDs)
	}
	if feed.Stops[0].Lat != 49.8 || feed.Stops[0].Code == nil || *feed.Stops[0].Code != "A1" {
		t.Fatalf("first stop row must win, got %+v", feed.Stops[0])
	}

	serviceIDs := make(map[string]int)
	for _, cal := range feed.Calendars {
		serviceIDs[cal.ServiceID]++
	}
	if serviceIDs["wd"] != 1 || len(feed.Calendars) != 2 {
		t.Fatalf("expected one wd calendar among 2, got %v", serviceIDs)
	}
	if !feed.Calendars[0].Monday || feed.Calendars[0].Sunday {
		t.Fatalf("first calendar row must win, got %+v", feed.Calendars[0])
	}

	if len(feed.StopTimes) != 2 {
		t.Fatalf("out of range stop time must be skipped, got %d", len(feed.StopTimes))
	}
	if feed.SkippedRows[StopsFile] != 3 || feed.SkippedRows[CalendarFile] != 2 || feed.SkippedRows[StopTimesFile] != 3 {
		t.Fatalf("duplicates must be counted as skipped, got %v", feed.SkippedRows)
	}
}
