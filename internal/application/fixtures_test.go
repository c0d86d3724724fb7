package application_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/AlesonDEV/Api.FreeCity.Services/internal/adapters/cache"
	"github.com/AlesonDEV/Api.FreeCity.Services/internal/application"
	"github.com/AlesonDEV/Api.FreeCity.Services/internal/domain"
	"github.com/AlesonDEV/Api.FreeCity.Services/internal/ports"
)

func strPtr(v string) *string { return &v }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sampleFeed() domain.Feed {
	return domain.Feed{
		Routes: []domain.Route{
			{RouteID: "r1", ShortName: strPtr("A1"), LongName: strPtr("Center - Airport"), Color: strPtr("ff0000"), ShapeIDs: []string{"sh1"}},
			{RouteID: "r2", ShortName: strPtr("T2"), ShapeIDs: []string{}},
		},
		Trips: []domain.Trip{
			{TripID: "t1", RouteID: "r1", ServiceID: "wk", Headsign: strPtr("Airport")},
			{TripID: "t2", RouteID: "r2", ServiceID: "wk", Headsign: strPtr("Depot")},
			{TripID: "t3", RouteID: "r1", ServiceID: "wk", Headsign: strPtr("Night")},
			{TripID: "t4", RouteID: "r1", ServiceID: "sun", Headsign: strPtr("Airport")},
		},
		Stops: []domain.Stop{
			{StopID: "s1", Name: "Rynok", Lat: 49.84, Lon: 24.03, LocationType: "0"},
			{StopID: "s2", Name: "Vokzal", Lat: 49.83, Lon: 23.99, LocationType: "0"},
		},
		Shapes: []domain.Shape{
			{ShapeID: "sh1", Coordinates: [][2]float64{{49.84, 24.03}, {49.83, 23.99}}},
		},
		StopTimes: []domain.StopTime{
			{TripID: "t1", StopID: "s1", StopSequence: 1, ArrivalTime: 28800, DepartureTime: 28800},
			{TripID: "t2", StopID: "s1", StopSequence: 1, ArrivalTime: 29100, DepartureTime: 29100, StopHeadsign: strPtr("Depot via Rynok")},
			{TripID: "t3", StopID: "s1", StopSequence: 1, ArrivalTime: 88200, DepartureTime: 88200},
			{TripID: "t4", StopID: "s1", StopSequence: 1, ArrivalTime: 32400, DepartureTime: 32400},
		},
		Calendars: []domain.Calendar{
			{ServiceID: "wk", Monday: true, Tuesday: true, Wednesday: true, Thursday: true, Friday: true, StartDate: date(2024, 1, 1), EndDate: date(2024, 12, 31)},
			{ServiceID: "sun", Sunday: true, StartDate: date(2024, 1, 1), EndDate: date(2024, 12, 31)},
		},
		CalendarDates: []domain.CalendarDate{
			{ServiceID: "wk", Date: date(2024, 5, 1), ExceptionType: domain.ExceptionServiceRemoved},
		},
		SkippedRows: map[string]int{"stops.txt": 1},
	}
}

// memoryStore implements the feed writer, reader and schedule ports in memory.
type memoryStore struct {
	mu        sync.Mutex
	feed      domain.Feed
	meta      domain.FeedMetadata
	events    []ports.OutboxEvent
	replaced  int
	unchanged int
	failures  []string
	readErr   error
}

func (m *memoryStore) ReplaceFeed(_ context.Context, params ports.ReplaceFeedParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feed = params.Feed
	at := params.ImportedAt
	m.meta.LastSuccessfulUpdate = &at
	m.meta.Checksum = params.Checksum
	m.meta.SourceURL = params.SourceURL
	m.meta.ArchiveKey = params.ArchiveKey
	m.events = append(m.events, params.Event)
	m.replaced++
	return nil
}

func (m *memoryStore) MarkUnchanged(_ context.Context, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meta.LastSuccessfulUpdate = &at
	m.unchanged++
	return nil
}

func (m *memoryStore) RecordFailure(_ context.Context, at time.Time, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meta.LastErrorAt = &at
	m.meta.LastErrorMessage = message
	m.failures = append(m.failures, message)
	return nil
}

func (m *memoryStore) GetMetadata(context.Context) (domain.FeedMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return domain.FeedMetadata{}, m.readErr
	}
	return m.meta, nil
}

func (m *memoryStore) ListRoutes(_ context.Context, limit int) ([]domain.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return headOf(m.feed.Routes, limit), nil
}

func (m *memoryStore) GetRoute(_ context.Context, routeID string) (domain.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.feed.Routes {
		if r.RouteID == routeID {
			return r, nil
		}
	}
	return domain.Route{}, domain.ErrNotFound
}

func (m *memoryStore) ListStops(_ context.Context, limit int) ([]domain.Stop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return headOf(m.feed.Stops, limit), nil
}

func (m *memoryStore) GetStop(_ context.Context, stopID string) (domain.Stop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.feed.Stops {
		if s.StopID == stopID {
			return s, nil
		}
	}
	return domain.Stop{}, domain.ErrNotFound
}

func (m *memoryStore) ListShapes(_ context.Context, limit int) ([]domain.Shape, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return headOf(m.feed.Shapes, limit), nil
}

func (m *memoryStore) Counts(context.Context) (ports.TableCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := func(v int) *int64 { c := int64(v); return &c }
	return ports.TableCounts{
		Routes:    n(len(m.feed.Routes)),
		Shapes:    n(len(m.feed.Shapes)),
		Stops:     n(len(m.feed.Stops)),
		Trips:     n(len(m.feed.Trips)),
		StopTimes: n(len(m.feed.StopTimes)),
	}, nil
}

func (m *memoryStore) Ping(context.Context) error { return nil }

func (m *memoryStore) ServiceCalendar(_ context.Context, day time.Time) ([]domain.Calendar, []domain.CalendarDate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var exceptions []domain.CalendarDate
	for _, cd := range m.feed.CalendarDates {
		if cd.Date.Equal(day) {
			exceptions = append(exceptions, cd)
		}
	}
	return m.feed.Calendars, exceptions, nil
}

func (m *memoryStore) Departures(_ context.Context, q ports.DepartureQuery) ([]domain.Departure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	services := map[string]bool{}
	for _, id := range q.ServiceIDs {
		services[id] = true
	}
	trips := map[string]domain.Trip{}
	for _, t := range m.feed.Trips {
		trips[t.TripID] = t
	}
	routes := map[string]domain.Route{}
	for _, r := range m.feed.Routes {
		routes[r.RouteID] = r
	}
	var out []domain.Departure
	for _, st := range m.feed.StopTimes {
		trip, ok := trips[st.TripID]
		if !ok || st.StopID != q.StopID || st.DepartureTime < q.FromSeconds || !services[trip.ServiceID] {
			continue
		}
		if q.RouteID != "" && trip.RouteID != q.RouteID {
			continue
		}
		route := routes[trip.RouteID]
		headsign := st.StopHeadsign
		if headsign == nil {
			headsign = trip.Headsign
		}
		out = append(out, domain.Departure{
			TripID: st.TripID, RouteID: trip.RouteID, DepartureSeconds: st.DepartureTime,
			RouteShortName: route.ShortName, RouteLongName: route.LongName, Headsign: headsign,
			RouteColor: route.Color, WheelchairAccessible: trip.WheelchairAccessible,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DepartureSeconds < out[j].DepartureSeconds })
	return headOf(out, q.Limit), nil
}

func headOf[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return append([]T(nil), items[:limit]...)
	}
	return append([]T(nil), items...)
}

type fakeSource struct {
	checksum string
	err      error
	calls    int
}

func (f *fakeSource) Fetch(context.Context, string) (ports.FeedArchive, error) {
	f.calls++
	if f.err != nil {
		return ports.FeedArchive{}, f.err
	}
	return ports.FeedArchive{Data: []byte("zip"), Checksum: f.checksum, ContentType: "application/zip"}, nil
}

type fakeParser struct {
	feed domain.Feed
	err  error
}

func (p fakeParser) Parse([]byte) (domain.Feed, error) {
	return p.feed, p.err
}

type fakeArchive struct {
	key string
	err error
}

func (a fakeArchive) Store(context.Context, ports.FeedArchive) (string, error) {
	return a.key, a.err
}

type memoryCache struct {
	mu      sync.Mutex
	items   map[string][]byte
	deletes int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]byte{}}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.items[key]
	if !ok {
		return nil, ports.ErrCacheMiss
	}
	return raw, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	return nil
}

func (c *memoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.items, key)
	}
	c.deletes++
	return nil
}

type heldLock struct{}

func (heldLock) Acquire(context.Context, time.Duration) (func(context.Context), bool, error) {
	return nil, false, nil
}

type fixture struct {
	svc    *application.Service
	store  *memoryStore
	source *fakeSource
	cache  *memoryCache
}

type fixtureOption func(*application.Dependencies)

func newFixture(now time.Time, opts ...fixtureOption) fixture {
	store := &memoryStore{}
	source := &fakeSource{checksum: "sum-1"}
	memCache := newMemoryCache()
	deps := application.Dependencies{
		Config: application.Config{
			FeedURL:        "http://feeds.test/static.zip",
			UpdateInterval: 24 * time.Hour,
			Location:       time.UTC,
		},
		Logger:   slog.New(slog.NewJSONHandler(io.Discard, nil)),
		Source:   source,
		Parser:   fakeParser{feed: sampleFeed()},
		Archive:  fakeArchive{key: "feeds/20240304T000000Z-sum-1.zip"},
		Feed:     store,
		Reads:    store,
		Schedule: store,
		Cache:    memCache,
		Lock:     cache.NewLocalImportLock(),
		Clock:    func() time.Time { return now },
	}
	for _, opt := range opts {
		opt(&deps)
	}
	return fixture{svc: application.NewService(deps), store: store, source: source, cache: memCache}
}

func mustImport(t *testing.T, f fixture) {
	t.Helper()
	if _, err := f.svc.RunImport(context.Background(), false); err != nil {
		t.Fatalf("seed import: %v", err)
	}
}

var errBoom = errors.New("boom")
