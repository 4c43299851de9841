package gtfs

import (
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
)

// service classes used by service_id in the trip table
const (
	WeekdayService  = "weekday"
	SaturdayService = "saturday"
	SundayService   = "sunday"
)

// ServiceCalendar resolves a point in time to the service class running that day.
// Observed holidays run sunday service.
// TODO:: holiday set should be configurable per transit agency rather than hardcoded.
type ServiceCalendar struct {
	calendar *cal.BusinessCalendar
}

// NewServiceCalendar builds a ServiceCalendar with the commonly observed US transit holidays
func NewServiceCalendar() *ServiceCalendar {
	calendar := cal.NewBusinessCalendar()
	calendar.AddHoliday(
		us.NewYear,
		us.MemorialDay,
		us.IndependenceDay,
		us.LaborDay,
		us.ThanksgivingDay,
		us.ChristmasDay,
	)
	return &ServiceCalendar{calendar: calendar}
}

// ServiceClass returns the service class in effect at "at"
func (c *ServiceCalendar) ServiceClass(at time.Time) string {
	if _, observed, _ := c.calendar.IsHoliday(at); observed {
		return SundayService
	}
	switch at.Weekday() {
	case time.Saturday:
		return SaturdayService
	case time.Sunday:
		return SundayService
	}
	return WeekdayService
}

// ServiceDayStart returns midnight at the start of the service day containing "at"
func (c *ServiceCalendar) ServiceDayStart(at time.Time) time.Time {
	return time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, at.Location())
}
