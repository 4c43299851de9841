// Package feed holds the live vehicle and trip-update snapshot read from a GTFS-RT feed
package feed

import (
	"github.com/samuelwilk/mindthewait/business/data/gtfs"
)

// VehiclePosition contains fields read from a GTFS-RT vehicle position feed.
// fields that are optional are pointers and will be nil if they were not present in the feed
type VehiclePosition struct {
	Id        string
	Label     string
	RouteId   string
	Direction *int
	TripId    *string
	Latitude  *float64
	Longitude *float64
	Timestamp *int64
}

// HasPosition returns true when the feed carried GPS coordinates for the vehicle
func (v *VehiclePosition) HasPosition() bool {
	return v != nil && v.Latitude != nil && v.Longitude != nil
}

// TripEntry is the trip-update view of one trip: its predicted stop times as of the snapshot
type TripEntry struct {
	TripId    string
	RouteId   *string
	Direction *int
	Stops     []gtfs.StopTimeEntry
}

// Snapshot is an immutable value produced once per feed poll. Scoring and prediction
// read it without mutation, so it is safe to share across concurrent requests.
type Snapshot struct {
	Timestamp int64
	Vehicles  []VehiclePosition
	Trips     []TripEntry
}

// StopTimesForTrip returns the live predicted stop times for tripId, nil when the
// trip-update feed did not carry the trip
func (s *Snapshot) StopTimesForTrip(tripId string) []gtfs.StopTimeEntry {
	if s == nil {
		return nil
	}
	for i := range s.Trips {
		if s.Trips[i].TripId == tripId {
			return s.Trips[i].Stops
		}
	}
	return nil
}

// TripDuration returns first and last predicted times for tripId, nil when unavailable
func (s *Snapshot) TripDuration(tripId string) *gtfs.TripDuration {
	return gtfs.TripDurationFromEntries(s.StopTimesForTrip(tripId))
}

// VehicleById finds a vehicle by its feed identifier, falling back to a trip id match
// for feeds that do not assign stable vehicle identifiers
func (s *Snapshot) VehicleById(vehicleId string) *VehiclePosition {
	if s == nil {
		return nil
	}
	for i := range s.Vehicles {
		if s.Vehicles[i].Id == vehicleId {
			return &s.Vehicles[i]
		}
	}
	for i := range s.Vehicles {
		if s.Vehicles[i].TripId != nil && *s.Vehicles[i].TripId == vehicleId {
			return &s.Vehicles[i]
		}
	}
	return nil
}
