// Package headway computes observed headways and letter grades for route groups from
// live vehicle positions, static schedules and trip update feeds
package headway

import (
	"github.com/samuelwilk/mindthewait/business/data/gtfs"
)

// ScheduleSource provides ordered stop times and trip durations for a trip. Both the
// static schedule and the live trip update snapshot satisfy it, so callers can run the
// same interpolation math against either.
type ScheduleSource interface {
	StopTimesForTrip(tripId string) []gtfs.StopTimeEntry
	TripDuration(tripId string) *gtfs.TripDuration
}

// StopLocator provides stop coordinates for a trip keyed by stop id
type StopLocator interface {
	StopLocations(tripId string) map[string]gtfs.StopLocation
}

// CompositeScheduleSource consults Primary first and falls back to Secondary when the
// primary has nothing for the trip
type CompositeScheduleSource struct {
	Primary   ScheduleSource
	Secondary ScheduleSource
}

// StopTimesForTrip implements ScheduleSource
func (c *CompositeScheduleSource) StopTimesForTrip(tripId string) []gtfs.StopTimeEntry {
	if stops := c.Primary.StopTimesForTrip(tripId); len(stops) > 0 {
		return stops
	}
	return c.Secondary.StopTimesForTrip(tripId)
}

// TripDuration implements ScheduleSource
func (c *CompositeScheduleSource) TripDuration(tripId string) *gtfs.TripDuration {
	if duration := c.Primary.TripDuration(tripId); duration != nil {
		return duration
	}
	return c.Secondary.TripDuration(tripId)
}
