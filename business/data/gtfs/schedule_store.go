package gtfs

import (
	logger "log"
	"time"

	"github.com/jmoiron/sqlx"
)

// ScheduleStore provides the static schedule view of trips: ordered stop times with
// service-day seconds converted to absolute epoch times for the current service day.
// Lookup methods degrade to nil on missing data or database errors (which are logged),
// so callers can chain fallbacks without error plumbing on the hot path.
type ScheduleStore struct {
	db       *sqlx.DB
	calendar *ServiceCalendar
	log      *logger.Logger

	//now is replaceable in tests
	now func() time.Time
}

// NewScheduleStore builds a ScheduleStore
func NewScheduleStore(log *logger.Logger, db *sqlx.DB, calendar *ServiceCalendar) *ScheduleStore {
	return &ScheduleStore{
		db:       db,
		calendar: calendar,
		log:      log,
		now:      time.Now,
	}
}

// StopTimesForTrip returns the ordered stop times for tripId on today's service class,
// with times converted to absolute epoch seconds. Returns nil when the trip is unknown.
func (s *ScheduleStore) StopTimesForTrip(tripId string) []StopTimeEntry {
	at := s.now()
	stopTimes, err := GetStopTimes(s.db, tripId, s.calendar.ServiceClass(at))
	if err != nil {
		s.log.Printf("error loading stop times for trip %s: %v\n", tripId, err)
		return nil
	}
	if len(stopTimes) == 0 {
		return nil
	}

	serviceDayStart := s.calendar.ServiceDayStart(at).Unix()
	results := make([]StopTimeEntry, 0, len(stopTimes))
	for _, st := range stopTimes {
		entry := StopTimeEntry{
			StopId:       st.StopId,
			StopSequence: st.StopSequence,
		}
		if st.ArrivalTime != nil {
			arrival := serviceDayStart + int64(*st.ArrivalTime)
			entry.ArrivalTime = &arrival
		}
		if st.DepartureTime != nil {
			departure := serviceDayStart + int64(*st.DepartureTime)
			entry.DepartureTime = &departure
		}
		results = append(results, entry)
	}
	return results
}

// TripDuration returns the first and last scheduled times for tripId, nil when the
// schedule is missing or degenerate
func (s *ScheduleStore) TripDuration(tripId string) *TripDuration {
	return TripDurationFromEntries(s.StopTimesForTrip(tripId))
}

// StopLocations returns the coordinates of every stop on tripId keyed by stop id
func (s *ScheduleStore) StopLocations(tripId string) map[string]StopLocation {
	locations, err := GetStopLocationsForTrip(s.db, tripId)
	if err != nil {
		s.log.Printf("error loading stop locations for trip %s: %v\n", tripId, err)
		return nil
	}
	if len(locations) == 0 {
		return nil
	}
	return locations
}

// Headsign returns the headsign for tripId, nil when the trip is unknown
func (s *ScheduleStore) Headsign(tripId string) *string {
	trip, err := GetTrip(s.db, tripId)
	if err != nil {
		s.log.Printf("error loading trip %s: %v\n", tripId, err)
		return nil
	}
	if trip == nil {
		return nil
	}
	return trip.TripHeadsign
}
