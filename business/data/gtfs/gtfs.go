// Package gtfs provides schedule, arrival log, and incident data access
package gtfs

// StopTimeEntry is the uniform view of one scheduled or predicted stop on a trip.
// Two sources populate it: the static schedule (service-day seconds converted to
// absolute epoch) and the live trip-update feed (already absolute, may carry a delay).
// Optional fields are pointers and are nil when the source did not provide them.
type StopTimeEntry struct {
	StopId        string `json:"stop_id"`
	StopSequence  int    `json:"seq"`
	ArrivalTime   *int64 `json:"arr"`
	DepartureTime *int64 `json:"dep"`
	Delay         *int   `json:"delay"`
}

// BestArrivalTime returns the arrival time, falling back to departure
func (s *StopTimeEntry) BestArrivalTime() *int64 {
	if s.ArrivalTime != nil {
		return s.ArrivalTime
	}
	return s.DepartureTime
}

// BestDepartureTime returns the departure time, falling back to arrival
func (s *StopTimeEntry) BestDepartureTime() *int64 {
	if s.DepartureTime != nil {
		return s.DepartureTime
	}
	return s.ArrivalTime
}

// TripDuration holds the first and last scheduled times on a trip as epoch seconds
type TripDuration struct {
	Start int64
	End   int64
}

// Seconds returns the total scheduled length of the trip
func (d *TripDuration) Seconds() int64 {
	return d.End - d.Start
}

// TripDurationFromEntries derives a TripDuration from an ordered stop time list.
// Returns nil for degenerate schedules (fewer than two entries, missing times,
// or non-positive duration) so callers never divide by zero.
func TripDurationFromEntries(entries []StopTimeEntry) *TripDuration {
	if len(entries) < 2 {
		return nil
	}
	first := entries[0]
	last := entries[len(entries)-1]
	start := first.BestDepartureTime()
	end := last.BestArrivalTime()
	if start == nil || end == nil || *end <= *start {
		return nil
	}
	return &TripDuration{Start: *start, End: *end}
}

// StopLocation holds the coordinates of a stop for nearest-stop interpolation
type StopLocation struct {
	StopId string
	Lat    float64
	Lon    float64
}
