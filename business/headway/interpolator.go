package headway

import (
	"math"

	"github.com/samuelwilk/mindthewait/business/data/feed"
	"github.com/samuelwilk/mindthewait/business/data/gtfs"
)

// earthRadiusKm is the mean Earth radius used for haversine distances
const earthRadiusKm = 6371.0

// PositionInterpolator estimates where a vehicle is along its trip from its GPS position
// and the trip's stop pattern. Static schedule stop times are preferred and the live
// trip update snapshot is the fallback, since feeds often carry updates for trips the
// schedule has not loaded yet.
type PositionInterpolator struct {
	static ScheduleSource
	live   ScheduleSource
	stops  StopLocator
}

// NewPositionInterpolator builds a PositionInterpolator over static and live sources
func NewPositionInterpolator(static ScheduleSource, live ScheduleSource, stops StopLocator) *PositionInterpolator {
	return &PositionInterpolator{
		static: static,
		live:   live,
		stops:  stops,
	}
}

// RouteProgress estimates how far along its trip a vehicle is as a fraction in [0.0, 1.0],
// by snapping the GPS position to the nearest stop in the trip's stop pattern.
// Returns nil when the vehicle has no position, no trip, or the trip has no usable stops.
func (p *PositionInterpolator) RouteProgress(vehicle *feed.VehiclePosition) *float64 {
	nearest, maxSequence := p.nearestStop(vehicle)
	if nearest == nil || maxSequence <= 0 {
		return nil
	}
	progress := float64(nearest.StopSequence) / float64(maxSequence)
	if progress > 1.0 {
		progress = 1.0
	}
	return &progress
}

// NearestStop returns the stop in the vehicle's trip pattern closest to its GPS position,
// nil when it cannot be determined
func (p *PositionInterpolator) NearestStop(vehicle *feed.VehiclePosition) *gtfs.StopTimeEntry {
	nearest, _ := p.nearestStop(vehicle)
	return nearest
}

// EstimateTimeAtProgress estimates the epoch second at which the vehicle reaches the
// target progress fraction, scaling the remaining fraction by the trip's scheduled
// duration. A vehicle at or past the target yields its own report timestamp.
func (p *PositionInterpolator) EstimateTimeAtProgress(vehicle *feed.VehiclePosition, targetProgress float64) *int64 {
	if vehicle == nil || vehicle.Timestamp == nil {
		return nil
	}
	progress := p.RouteProgress(vehicle)
	if progress == nil {
		return nil
	}
	if *progress >= targetProgress {
		timestamp := *vehicle.Timestamp
		return &timestamp
	}

	duration := p.tripDuration(vehicle)
	if duration == nil {
		return nil
	}
	durationSeconds := duration.Seconds()
	if durationSeconds <= 0 {
		return nil
	}

	estimate := *vehicle.Timestamp + int64(math.Round((targetProgress-*progress)*float64(durationSeconds)))
	return &estimate
}

// nearestStop finds the closest stop with a known location in the vehicle's trip pattern,
// also returning the pattern's maximum stop sequence
func (p *PositionInterpolator) nearestStop(vehicle *feed.VehiclePosition) (*gtfs.StopTimeEntry, int) {
	if vehicle == nil || !vehicle.HasPosition() || vehicle.TripId == nil {
		return nil, 0
	}
	stopTimes := p.stopTimesForTrip(*vehicle.TripId)
	if len(stopTimes) == 0 {
		return nil, 0
	}
	locations := p.stops.StopLocations(*vehicle.TripId)
	if len(locations) == 0 {
		return nil, 0
	}

	maxSequence := 0
	var nearest *gtfs.StopTimeEntry
	nearestDistance := math.MaxFloat64
	for i := range stopTimes {
		st := &stopTimes[i]
		if st.StopSequence > maxSequence {
			maxSequence = st.StopSequence
		}
		location, present := locations[st.StopId]
		if !present {
			continue
		}
		distance := haversineKm(*vehicle.Latitude, *vehicle.Longitude, location.Lat, location.Lon)
		if distance < nearestDistance {
			nearestDistance = distance
			nearest = st
		}
	}
	return nearest, maxSequence
}

// stopTimesForTrip prefers the static schedule and falls back to live trip updates
func (p *PositionInterpolator) stopTimesForTrip(tripId string) []gtfs.StopTimeEntry {
	if stops := p.static.StopTimesForTrip(tripId); len(stops) > 0 {
		return stops
	}
	return p.live.StopTimesForTrip(tripId)
}

// tripDuration prefers the static schedule duration and falls back to live trip updates
func (p *PositionInterpolator) tripDuration(vehicle *feed.VehiclePosition) *gtfs.TripDuration {
	if vehicle.TripId == nil {
		return nil
	}
	if duration := p.static.TripDuration(*vehicle.TripId); duration != nil {
		return duration
	}
	return p.live.TripDuration(*vehicle.TripId)
}

// haversineKm returns the great circle distance in kilometers between two coordinates
func haversineKm(lat1 float64, lon1 float64, lat2 float64, lon2 float64) float64 {
	latRad1 := lat1 * math.Pi / 180.0
	latRad2 := lat2 * math.Pi / 180.0
	deltaLat := (lat2 - lat1) * math.Pi / 180.0
	deltaLon := (lon2 - lon1) * math.Pi / 180.0

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(latRad1)*math.Cos(latRad2)*math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
