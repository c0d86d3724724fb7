package domain

import (
	"sort"
	"time"
)

func (c Calendar) RunsOn(weekday time.Weekday) bool {
	switch weekday {
	case time.Monday:
		return c.Monday
	case time.Tuesday:
		return c.Tuesday
	case time.Wednesday:
		return c.Wednesday
	case time.Thursday:
		return c.Thursday
	case time.Friday:
		return c.Friday
	case time.Saturday:
		return c.Saturday
	case time.Sunday:
		return c.Sunday
	}
	return false
}

// ActiveServiceIDs resolves the services running on date. Regular calendars
// apply first, then exceptions dated on the same day add or remove services.
func ActiveServiceIDs(date time.Time, calendars []Calendar, exceptions []CalendarDate) []string {
	day := ServiceDay(date)
	active := make(map[string]struct{})
	for _, c := range calendars {
		if !c.RunsOn(day.Weekday()) {
			continue
		}
		if day.Before(ServiceDay(c.StartDate)) || day.After(ServiceDay(c.EndDate)) {
			continue
		}
		active[c.ServiceID] = struct{}{}
	}
	for _, ex := range exceptions {
		if !ServiceDay(ex.Date).Equal(day) {
			continue
		}
		switch ex.ExceptionType {
		case ExceptionServiceAdded:
			active[ex.ServiceID] = struct{}{}
		case ExceptionServiceRemoved:
			delete(active, ex.ServiceID)
		}
	}
	out := make([]string, 0, len(active))
	for id := range active {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
