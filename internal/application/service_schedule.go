package application

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/AlesonDEV/Api.FreeCity.Services/internal/domain"
	"github.com/AlesonDEV/Api.FreeCity.Services/internal/ports"
)

const secondsPerDay = 24 * 60 * 60

type scheduledDeparture struct {
	departure   domain.Departure
	serviceDate time.Time
	effective   int
}

// NextDepartures lists departures from a stop at or after the requested local
// time. Trips of the previous service day still running past midnight are
// merged in by their wall clock time.
func (s *Service) NextDepartures(ctx context.Context, req DepartureRequest) ([]DepartureResponse, error) {
	if req.StopID == "" {
		return nil, fmt.Errorf("%w: stop_id is required", domain.ErrInvalidInput)
	}
	limit, err := normalizeLimit(req.Limit)
	if err != nil {
		return nil, err
	}
	day, from, err := s.resolveStart(req.Date, req.StartTime)
	if err != nil {
		return nil, err
	}
	found, err := s.collectDepartures(ctx, req.StopID, "", day, from, limit)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		if err := s.ensureLoaded(ctx); err != nil {
			return nil, err
		}
	}
	out := make([]DepartureResponse, 0, len(found))
	for _, item := range found {
		out = append(out, toDepartureResponse(item))
	}
	return out, nil
}

// NextDeparture returns the first departure of one route from a stop.
func (s *Service) NextDeparture(ctx context.Context, req DepartureRequest) (DepartureResponse, error) {
	if req.StopID == "" {
		return DepartureResponse{}, fmt.Errorf("%w: stop_id is required", domain.ErrInvalidInput)
	}
	if req.RouteID == "" {
		return DepartureResponse{}, fmt.Errorf("%w: route_id is required", domain.ErrInvalidInput)
	}
	day, from, err := s.resolveStart(req.Date, req.StartTime)
	if err != nil {
		return DepartureResponse{}, err
	}
	found, err := s.collectDepartures(ctx, req.StopID, req.RouteID, day, from, 1)
	if err != nil {
		return DepartureResponse{}, err
	}
	if len(found) == 0 {
		if err := s.ensureLoaded(ctx); err != nil {
			return DepartureResponse{}, err
		}
		return DepartureResponse{}, fmt.Errorf("%w: no departure of route %s from stop %s after %s on %s",
			domain.ErrNotFound, req.RouteID, req.StopID, domain.FormatGTFSTime(from), day.Format("2006-01-02"))
	}
	return toDepartureResponse(found[0]), nil
}

func (s *Service) collectDepartures(ctx context.Context, stopID, routeID string, day time.Time, from, limit int) ([]scheduledDeparture, error) {
	var merged []scheduledDeparture

	today, err := s.activeServices(ctx, day)
	if err != nil {
		return nil, err
	}
	if len(today) > 0 {
		rows, err := s.schedule.Departures(ctx, ports.DepartureQuery{
			StopID: stopID, RouteID: routeID, ServiceIDs: today, FromSeconds: from, Limit: limit,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
		}
		for _, row := range rows {
			merged = append(merged, scheduledDeparture{departure: row, serviceDate: day, effective: row.DepartureSeconds})
		}
	}

	previousDay := day.AddDate(0, 0, -1)
	previous, err := s.activeServices(ctx, previousDay)
	if err != nil {
		return nil, err
	}
	if len(previous) > 0 {
		rows, err := s.schedule.Departures(ctx, ports.DepartureQuery{
			StopID: stopID, RouteID: routeID, ServiceIDs: previous, FromSeconds: from + secondsPerDay, Limit: limit,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
		}
		for _, row := range rows {
			merged = append(merged, scheduledDeparture{departure: row, serviceDate: previousDay, effective: row.DepartureSeconds - secondsPerDay})
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].effective != merged[j].effective {
			return merged[i].effective < merged[j].effective
		}
		return merged[i].departure.TripID < merged[j].departure.TripID
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

func (s *Service) activeServices(ctx context.Context, day time.Time) ([]string, error) {
	calendars, exceptions, err := s.schedule.ServiceCalendar(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return domain.ActiveServiceIDs(day, calendars, exceptions), nil
}

// resolveStart returns the service day and the start offset in seconds,
// defaulting both to the current local time.
func (s *Service) resolveStart(rawDate, rawTime string) (time.Time, int, error) {
	now := s.nowFn().In(s.cfg.Location)
	day := domain.ServiceDay(now)
	if rawDate != "" {
		parsed, err := domain.ParseServiceDate(rawDate)
		if err != nil {
			return time.Time{}, 0, err
		}
		day = parsed
	}
	from := domain.SecondsSinceMidnight(now)
	if rawTime != "" {
		parsed, err := domain.ParseClock(rawTime)
		if err != nil {
			return time.Time{}, 0, err
		}
		from = parsed
	}
	return day, from, nil
}

func normalizeLimit(limit int) (int, error) {
	if limit == 0 {
		return DefaultDepartureLimit, nil
	}
	if limit < 1 || limit > MaxDepartureLimit {
		return 0, fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrInvalidInput, MaxDepartureLimit)
	}
	return limit, nil
}

func toDepartureResponse(item scheduledDeparture) DepartureResponse {
	d := item.departure
	return DepartureResponse{
		TripID:               d.TripID,
		RouteID:              d.RouteID,
		DepartureTime:        domain.FormatGTFSTime(item.effective),
		ServiceDate:          item.serviceDate.Format("2006-01-02"),
		RouteShortName:       d.RouteShortName,
		RouteLongName:        d.RouteLongName,
		TripHeadsign:         d.Headsign,
		RouteColor:           d.RouteColor,
		WheelchairAccessible: d.WheelchairAccessible,
	}
}
