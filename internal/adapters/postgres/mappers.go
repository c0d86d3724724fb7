package postgres

import (
	"github.com/AlesonDEV/Api.FreeCity.Services/internal/domain"
)

func toRouteModel(seq int, r domain.Route) routeModel {
	shapeIDs := r.ShapeIDs
	if shapeIDs == nil {
		shapeIDs = []string{}
	}
	return routeModel{
		RouteID: r.RouteID, Seq: seq, AgencyID: r.AgencyID,
		RouteShortName: r.ShortName, RouteLongName: r.LongName, RouteDesc: r.Description,
		RouteType: r.RouteType, RouteURL: r.URL, RouteColor: r.Color, RouteTextColor: r.TextColor,
		ShapeIDs: shapeIDs,
	}
}

func toDomainRoute(m routeModel) domain.Route {
	shapeIDs := m.ShapeIDs
	if shapeIDs == nil {
		shapeIDs = []string{}
	}
	return domain.Route{
		RouteID: m.RouteID, AgencyID: m.AgencyID,
		ShortName: m.RouteShortName, LongName: m.RouteLongName, Description: m.RouteDesc,
		RouteType: m.RouteType, URL: m.RouteURL, Color: m.RouteColor, TextColor: m.RouteTextColor,
		ShapeIDs: shapeIDs,
	}
}

func toStopModel(seq int, s domain.Stop) stopModel {
	return stopModel{
		StopID: s.StopID, Seq: seq, StopCode: s.Code, StopName: s.Name, StopDesc: s.Description,
		StopLat: s.Lat, StopLon: s.Lon, ZoneID: s.ZoneID, StopURL: s.URL,
		LocationType: s.LocationType, ParentStation: s.ParentStation, WheelchairBoarding: s.WheelchairBoarding,
	}
}

func toDomainStop(m stopModel) domain.Stop {
	return domain.Stop{
		StopID: m.StopID, Code: m.StopCode, Name: m.StopName, Description: m.StopDesc,
		Lat: m.StopLat, Lon: m.StopLon, ZoneID: m.ZoneID, URL: m.StopURL,
		LocationType: m.LocationType, ParentStation: m.ParentStation, WheelchairBoarding: m.WheelchairBoarding,
	}
}

func toShapeModel(s domain.Shape) shapeModel {
	return shapeModel{ShapeID: s.ShapeID, Coordinates: s.Coordinates}
}

func toDomainShape(m shapeModel) domain.Shape {
	coords := m.Coordinates
	if coords == nil {
		coords = [][2]float64{}
	}
	return domain.Shape{ShapeID: m.ShapeID, Coordinates: coords}
}

func toTripModel(t domain.Trip) tripModel {
	return tripModel{
		TripID: t.TripID, RouteID: t.RouteID, ServiceID: t.ServiceID, TripHeadsign: t.Headsign,
		DirectionID: t.DirectionID, BlockID: t.BlockID, ShapeID: t.ShapeID,
		WheelchairAccessible: t.WheelchairAccessible, BikesAllowed: t.BikesAllowed,
	}
}

func toStopTimeModel(st domain.StopTime) stopTimeModel {
	return stopTimeModel{
		TripID: st.TripID, StopID: st.StopID, StopSequence: st.StopSequence,
		ArrivalTime: st.ArrivalTime, DepartureTime: st.DepartureTime, StopHeadsign: st.StopHeadsign,
		PickupType: st.PickupType, DropOffType: st.DropOffType,
		ShapeDistTraveled: st.ShapeDistTraveled, Timepoint: st.Timepoint,
	}
}

func toCalendarModel(c domain.Calendar) calendarModel {
	return calendarModel{
		ServiceID: c.ServiceID,
		Monday:    c.Monday, Tuesday: c.Tuesday, Wednesday: c.Wednesday, Thursday: c.Thursday,
		Friday: c.Friday, Saturday: c.Saturday, Sunday: c.Sunday,
		StartDate: c.StartDate, EndDate: c.EndDate,
	}
}

func toDomainCalendar(m calendarModel) domain.Calendar {
	return domain.Calendar{
		ServiceID: m.ServiceID,
		Monday:    m.Monday, Tuesday: m.Tuesday, Wednesday: m.Wednesday, Thursday: m.Thursday,
		Friday: m.Friday, Saturday: m.Saturday, Sunday: m.Sunday,
		StartDate: domain.ServiceDay(m.StartDate), EndDate: domain.ServiceDay(m.EndDate),
	}
}

func toCalendarDateModel(cd domain.CalendarDate) calendarDateModel {
	return calendarDateModel{ServiceID: cd.ServiceID, Date: cd.Date, ExceptionType: int(cd.ExceptionType)}
}

func toDomainCalendarDate(m calendarDateModel) domain.CalendarDate {
	return domain.CalendarDate{
		ServiceID:     m.ServiceID,
		Date:          domain.ServiceDay(m.Date),
		ExceptionType: domain.ExceptionType(m.ExceptionType),
	}
}

func toDomainMetadata(m feedMetadataModel) domain.FeedMetadata {
	out := domain.FeedMetadata{
		LastSuccessfulUpdate: m.LastSuccessfulUpdateUTC,
		LastErrorAt:          m.LastErrorUTC,
	}
	if m.LastErrorMessage != nil {
		out.LastErrorMessage = *m.LastErrorMessage
	}
	if m.Checksum != nil {
		out.Checksum = *m.Checksum
	}
	if m.SourceURL != nil {
		out.SourceURL = *m.SourceURL
	}
	if m.ArchiveKey != nil {
		out.ArchiveKey = *m.ArchiveKey
	}
	return out
}

func nullableString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func mapSlice[T, M any](items []T, fn func(T) M) []M {
	out := make([]M, 0, len(items))
	for _, item := range items {
		out = append(out, fn(item))
	}
	return out
}
