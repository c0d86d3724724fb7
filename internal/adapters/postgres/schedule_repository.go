package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/AlesonDEV/Api.FreeCity.Services/internal/domain"
	"github.com/AlesonDEV/Api.FreeCity.Services/internal/ports"
	"gorm.io/gorm"
)

type scheduleRepository struct {
	db *gorm.DB
}

type departureRow struct {
	TripID               string  `gorm:"column:trip_id"`
	RouteID              string  `gorm:"column:route_id"`
	DepartureTime        int     `gorm:"column:departure_time"`
	RouteShortName       *string `gorm:"column:route_short_name"`
	RouteLongName        *string `gorm:"column:route_long_name"`
	Headsign             *string `gorm:"column:headsign"`
	RouteColor           *string `gorm:"column:route_color"`
	WheelchairAccessible *int    `gorm:"column:wheelchair_accessible"`
}

// ServiceCalendar loads the weekly calendars whose range covers date and the
// exceptions recorded for that exact date.
func (r *scheduleRepository) ServiceCalendar(ctx context.Context, date time.Time) ([]domain.Calendar, []domain.CalendarDate, error) {
	day := domain.ServiceDay(date).Format("2006-01-02")
	var calendars []calendarModel
	if err := r.db.WithContext(ctx).
		Where("start_date <= ?::date AND end_date >= ?::date", day, day).
		Order("service_id asc").
		Find(&calendars).Error; err != nil {
		return nil, nil, fmt.Errorf("load calendars: %w", err)
	}
	var exceptions []calendarDateModel
	if err := r.db.WithContext(ctx).
		Where("date = ?::date", day).
		Order("service_id asc").
		Find(&exceptions).Error; err != nil {
		return nil, nil, fmt.Errorf("load calendar dates: %w", err)
	}
	return mapSlice(calendars, toDomainCalendar), mapSlice(exceptions, toDomainCalendarDate), nil
}

// Departures returns stop events at or after FromSeconds for trips running
// under one of ServiceIDs, earliest first.
func (r *scheduleRepository) Departures(ctx context.Context, query ports.DepartureQuery) ([]domain.Departure, error) {
	if len(query.ServiceIDs) == 0 || query.Limit <= 0 {
		return []domain.Departure{}, nil
	}
	tx := r.db.WithContext(ctx).
		Table("stop_times AS st").
		Select(`st.trip_id, t.route_id, st.departure_time,
			r.route_short_name, r.route_long_name,
			COALESCE(st.stop_headsign, t.trip_headsign) AS headsign,
			r.route_color, t.wheelchair_accessible`).
		Joins("JOIN trips AS t ON t.trip_id = st.trip_id").
		Joins("LEFT JOIN routes AS r ON r.route_id = t.route_id").
		Where("st.stop_id = ?", query.StopID).
		Where("st.departure_time >= ?", query.FromSeconds).
		Where("t.service_id IN ?", query.ServiceIDs)
	if query.RouteID != "" {
		tx = tx.Where("t.route_id = ?", query.RouteID)
	}
	var rows []departureRow
	if err := tx.Order("st.departure_time asc, st.trip_id asc").Limit(query.Limit).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("query departures: %w", err)
	}
	out := make([]domain.Departure, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Departure{
			TripID: row.TripID, RouteID: row.RouteID, DepartureSeconds: row.DepartureTime,
			RouteShortName: row.RouteShortName, RouteLongName: row.RouteLongName,
			Headsign: row.Headsign, RouteColor: row.RouteColor, WheelchairAccessible: row.WheelchairAccessible,
		})
	}
	return out, nil
}
