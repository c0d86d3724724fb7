package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/AlesonDEV/Api.FreeCity.Services/internal/application"
	"github.com/AlesonDEV/Api.FreeCity.Services/internal/domain"
)

func TestNextDeparturesMergesPreviousServiceDay(t *testing.T) {
	t.Parallel()

	f := newFixture(monday)
	mustImport(t, f)

	got, err := f.svc.NextDepartures(context.Background(), application.DepartureRequest{
		StopID: "s1", Date: "2024-03-05", StartTime: "00:10:00", Limit: 3,
	})
	if err != nil {
		t.Fatalf("next departures: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 departures, got %d: %+v", len(got), got)
	}
	first := got[0]
	if first.TripID != "t3" || first.DepartureTime != "00:30:00" || first.ServiceDate != "2024-03-04" {
		t.Fatalf("expected overnight trip from previous day first, got %+v", first)
	}
	if got[1].TripID != "t1" || got[1].DepartureTime != "08:00:00" || got[1].ServiceDate != "2024-03-05" {
		t.Fatalf("unexpected second departure: %+v", got[1])
	}
	if got[2].TripHeadsign == nil || *got[2].TripHeadsign != "Depot via Rynok" {
		t.Fatalf("expected stop headsign to win, got %+v", got[2])
	}
}

func TestNextDeparturesFollowsServiceCalendar(t *testing.T) {
	t.Parallel()

	f := newFixture(monday)
	mustImport(t, f)
	ctx := context.Background()

	cases := []struct {
		name  string
		date  string
		start string
		want  []string
	}{
		{name: "sunday service only", date: "2024-03-10", start: "08:30:00", want: []string{"t4"}},
		{name: "monday after sunday", date: "2024-03-11", start: "00:10:00", want: []string{"t1", "t2", "t3"}},
		{name: "holiday removes weekday service", date: "2024-05-01", start: "07:00:00", want: []string{}},
		{name: "late start keeps overnight trip", date: "2024-03-05", start: "23:00:00", want: []string{"t3"}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := f.svc.NextDepartures(ctx, application.DepartureRequest{StopID: "s1", Date: tc.date, StartTime: tc.start})
			if err != nil {
				t.Fatalf("next departures: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("expected %v, got %+v", tc.want, got)
			}
			for i, id := range tc.want {
				if got[i].TripID != id {
					t.Fatalf("expected %v, got %+v", tc.want, got)
				}
			}
		})
	}
}

func TestNextDeparturesValidatesInput(t *testing.T) {
	t.Parallel()

	f := newFixture(monday)
	mustImport(t, f)

	cases := []struct {
		name string
		req  application.DepartureRequest
	}{
		{name: "limit too large", req: application.DepartureRequest{StopID: "s1", Limit: 51}},
		{name: "negative limit", req: application.DepartureRequest{StopID: "s1", Limit: -1}},
		{name: "bad date", req: application.DepartureRequest{StopID: "s1", Date: "05.03.2024"}},
		{name: "bad time", req: application.DepartureRequest{StopID: "s1", StartTime: "8:61:00"}},
		{name: "missing stop", req: application.DepartureRequest{}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := f.svc.NextDepartures(context.Background(), tc.req); !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}
}

func TestNextDeparturesDefaultsToNowInLocation(t *testing.T) {
	t.Parallel()

	f := newFixture(monday)
	mustImport(t, f)

	got, err := f.svc.NextDepartures(context.Background(), application.DepartureRequest{StopID: "s1"})
	if err != nil {
		t.Fatalf("next departures: %v", err)
	}
	if len(got) != 1 || got[0].TripID != "t3" || got[0].ServiceDate != "2024-03-04" {
		t.Fatalf("expected only the late trip after noon, got %+v", got)
	}
}

func TestNextDepartureForRoute(t *testing.T) {
	t.Parallel()

	f := newFixture(monday)
	mustImport(t, f)
	ctx := context.Background()

	got, err := f.svc.NextDeparture(ctx, application.DepartureRequest{StopID: "s1", RouteID: "r2", Date: "2024-03-05", StartTime: "07:00:00"})
	if err != nil {
		t.Fatalf("next departure: %v", err)
	}
	if got.TripID != "t2" || got.DepartureTime != "08:05:00" {
		t.Fatalf("unexpected departure: %+v", got)
	}

	if _, err := f.svc.NextDeparture(ctx, application.DepartureRequest{StopID: "s1", RouteID: "r2", Date: "2024-03-05", StartTime: "09:00:00"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found after last departure, got %v", err)
	}
	if _, err := f.svc.NextDeparture(ctx, application.DepartureRequest{StopID: "s1"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected route_id validation error, got %v", err)
	}
}
