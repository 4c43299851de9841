package headway

import (
	"github.com/samuelwilk/mindthewait/business/data/feed"
	"github.com/samuelwilk/mindthewait/business/data/gtfs"
)

// fakeScheduleSource serves canned stop times keyed by trip id
type fakeScheduleSource struct {
	stopTimes map[string][]gtfs.StopTimeEntry
}

func (f *fakeScheduleSource) StopTimesForTrip(tripId string) []gtfs.StopTimeEntry {
	return f.stopTimes[tripId]
}

func (f *fakeScheduleSource) TripDuration(tripId string) *gtfs.TripDuration {
	return gtfs.TripDurationFromEntries(f.stopTimes[tripId])
}

// fakeStopLocator serves canned stop locations keyed by trip id
type fakeStopLocator struct {
	locations map[string]map[string]gtfs.StopLocation
}

func (f *fakeStopLocator) StopLocations(tripId string) map[string]gtfs.StopLocation {
	return f.locations[tripId]
}

func emptyScheduleSource() *fakeScheduleSource {
	return &fakeScheduleSource{stopTimes: map[string][]gtfs.StopTimeEntry{}}
}

func emptyStopLocator() *fakeStopLocator {
	return &fakeStopLocator{locations: map[string]map[string]gtfs.StopLocation{}}
}

func stopEntry(stopId string, seq int, arrival int64) gtfs.StopTimeEntry {
	return gtfs.StopTimeEntry{
		StopId:       stopId,
		StopSequence: seq,
		ArrivalTime:  &arrival,
	}
}

func testVehicle(id string, routeId string, tripId string, lat float64, lon float64, timestamp int64) feed.VehiclePosition {
	vehicle := feed.VehiclePosition{
		Id:        id,
		RouteId:   routeId,
		Latitude:  &lat,
		Longitude: &lon,
		Timestamp: &timestamp,
	}
	if tripId != "" {
		vehicle.TripId = &tripId
	}
	return vehicle
}

// threeStopTrip is a straight east-west line of three stops 30 minutes apart
func threeStopTrip() ([]gtfs.StopTimeEntry, map[string]gtfs.StopLocation) {
	stops := []gtfs.StopTimeEntry{
		stopEntry("A", 1, 1000),
		stopEntry("B", 2, 1300),
		stopEntry("C", 3, 1600),
	}
	locations := map[string]gtfs.StopLocation{
		"A": {StopId: "A", Lat: 45.0, Lon: -122.00},
		"B": {StopId: "B", Lat: 45.0, Lon: -122.01},
		"C": {StopId: "C", Lat: 45.0, Lon: -122.02},
	}
	return stops, locations
}
