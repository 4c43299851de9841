package prediction

import (
	"testing"

	"github.com/matryer/is"
	"github.com/samuelwilk/mindthewait/business/data/feed"
	"github.com/samuelwilk/mindthewait/business/data/gtfs"
	"github.com/samuelwilk/mindthewait/business/headway"
)

// fakeStaticSchedule serves canned stop times and headsigns, and satisfies both the
// predictor's static view and the headway schedule source
type fakeStaticSchedule struct {
	stopTimes map[string][]gtfs.StopTimeEntry
	headsigns map[string]string
}

func (f *fakeStaticSchedule) StopTimesForTrip(tripId string) []gtfs.StopTimeEntry {
	return f.stopTimes[tripId]
}

func (f *fakeStaticSchedule) TripDuration(tripId string) *gtfs.TripDuration {
	return gtfs.TripDurationFromEntries(f.stopTimes[tripId])
}

func (f *fakeStaticSchedule) Headsign(tripId string) *string {
	if headsign, present := f.headsigns[tripId]; present {
		return &headsign
	}
	return nil
}

// fakeStopLocator serves canned stop locations keyed by trip id
type fakeStopLocator struct {
	locations map[string]map[string]gtfs.StopLocation
}

func (f *fakeStopLocator) StopLocations(tripId string) map[string]gtfs.StopLocation {
	return f.locations[tripId]
}

// fakeFeedbackSource serves one canned summary for every vehicle
type fakeFeedbackSource struct {
	summary gtfs.FeedbackSummary
}

func (f *fakeFeedbackSource) Summary(vehicleId string) gtfs.FeedbackSummary {
	return f.summary
}

func stopEntry(stopId string, seq int, arrival int64) gtfs.StopTimeEntry {
	return gtfs.StopTimeEntry{
		StopId:       stopId,
		StopSequence: seq,
		ArrivalTime:  &arrival,
	}
}

// threeStopSchedule is a straight east-west trip of three stops five minutes apart
func threeStopSchedule() *fakeStaticSchedule {
	return &fakeStaticSchedule{
		stopTimes: map[string][]gtfs.StopTimeEntry{
			"trip1": {
				stopEntry("A", 1, 1000),
				stopEntry("B", 2, 1300),
				stopEntry("C", 3, 1600),
			},
		},
		headsigns: map[string]string{"trip1": "Downtown"},
	}
}

func threeStopLocator() *fakeStopLocator {
	return &fakeStopLocator{locations: map[string]map[string]gtfs.StopLocation{
		"trip1": {
			"A": {StopId: "A", Lat: 45.0, Lon: -122.00},
			"B": {StopId: "B", Lat: 45.0, Lon: -122.01},
			"C": {StopId: "C", Lat: 45.0, Lon: -122.02},
		},
	}}
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

func statusServiceUnderTest(static *fakeStaticSchedule, locator *fakeStopLocator, feedback FeedbackSource) *StatusService {
	live := &fakeStaticSchedule{stopTimes: map[string][]gtfs.StopTimeEntry{}}
	interpolator := headway.NewPositionInterpolator(static, live, locator)
	adherence := headway.NewAdherenceCalculator(static, interpolator)
	return NewStatusService(live, adherence, NewHeuristicReasonProvider(), feedback)
}

func Test_StatusService_StatusForVehicle(t *testing.T) {
	tests := []struct {
		name             string
		timestamp        int64
		expectedLabel    string
		expectedColor    string
		expectedSeverity string
		expectReason     bool
	}{
		{
			//at the middle stop the expected time is 1400
			name:             "on time",
			timestamp:        1430,
			expectedLabel:    LabelOnTime,
			expectedColor:    ColorYellow,
			expectedSeverity: SeverityMinor,
			expectReason:     false,
		},
		{
			name:             "slightly late without a reason",
			timestamp:        1500,
			expectedLabel:    LabelLate,
			expectedColor:    ColorRed,
			expectedSeverity: SeverityMajor,
			expectReason:     false,
		},
		{
			name:             "late with a reason",
			timestamp:        1650,
			expectedLabel:    LabelLate,
			expectedColor:    ColorRed,
			expectedSeverity: SeverityMajor,
			expectReason:     true,
		},
		{
			name:             "critically late",
			timestamp:        1750,
			expectedLabel:    LabelLate,
			expectedColor:    ColorRed,
			expectedSeverity: SeverityCritical,
			expectReason:     true,
		},
		{
			name:             "ahead of schedule",
			timestamp:        1250,
			expectedLabel:    LabelAhead,
			expectedColor:    ColorGreen,
			expectedSeverity: SeverityMajor,
			expectReason:     true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			feedback := &fakeFeedbackSource{summary: gtfs.FeedbackSummary{OnTime: 3, Total: 3}}
			service := statusServiceUnderTest(threeStopSchedule(), threeStopLocator(), feedback)

			vehicle := testVehicle("bus1", "10", "trip1", 45.0, -122.01, tt.timestamp)
			status := service.StatusForVehicle(&vehicle)
			is.True(status != nil)
			is.Equal(status.Label, tt.expectedLabel)
			is.Equal(status.Color, tt.expectedColor)
			is.Equal(status.Severity, tt.expectedSeverity)
			is.Equal(status.Reason != nil, tt.expectReason)
			is.True(status.Feedback != nil)
			is.Equal(status.Feedback.Total, 3)
		})
	}
}

func Test_StatusService_PrefersLiveNextStopDelay(t *testing.T) {
	is := is.New(t)
	static := threeStopSchedule()
	locator := threeStopLocator()

	//the live feed reports a 200 second delay at the vehicle's next stop; the stop at
	//800 is more than 90 seconds past and is skipped
	delay := 200
	passed := stopEntry("A", 1, 800)
	next := stopEntry("B", 2, 1300)
	next.Delay = &delay
	live := &fakeStaticSchedule{stopTimes: map[string][]gtfs.StopTimeEntry{
		"trip1": {passed, next},
	}}
	interpolator := headway.NewPositionInterpolator(static, live, locator)
	adherence := headway.NewAdherenceCalculator(static, interpolator)
	service := NewStatusService(live, adherence, NewHeuristicReasonProvider(), nil)
	service.Now = func() int64 { return 1000 }

	vehicle := testVehicle("bus1", "10", "trip1", 45.0, -122.01, 1000)
	status := service.StatusForVehicle(&vehicle)
	is.True(status != nil)
	is.Equal(status.DeviationSec, 200)
	is.Equal(status.Label, LabelLate)
	is.Equal(status.Severity, SeverityMajor)
	is.True(status.Reason != nil)
}

func Test_StatusService_ScansPastStopsWithoutDelay(t *testing.T) {
	is := is.New(t)

	//the next stop carries no delay field; the scan continues to the stop after it
	//rather than giving up on the live feed
	delay := 240
	delayless := stopEntry("B", 2, 1300)
	delayed := stopEntry("C", 3, 1600)
	delayed.Delay = &delay
	live := &fakeStaticSchedule{stopTimes: map[string][]gtfs.StopTimeEntry{
		"trip1": {delayless, delayed},
	}}
	interpolator := headway.NewPositionInterpolator(threeStopSchedule(), live, threeStopLocator())
	adherence := headway.NewAdherenceCalculator(threeStopSchedule(), interpolator)
	service := NewStatusService(live, adherence, NewHeuristicReasonProvider(), nil)
	service.Now = func() int64 { return 1000 }

	//no GPS position, so interpolated adherence cannot supply a fallback
	tripId := "trip1"
	timestamp := int64(1000)
	vehicle := feed.VehiclePosition{Id: "bus1", RouteId: "10", TripId: &tripId, Timestamp: &timestamp}

	status := service.StatusForVehicle(&vehicle)
	is.True(status != nil)
	is.Equal(status.DeviationSec, 240)
	is.Equal(status.Label, LabelLate)
	is.Equal(status.Severity, SeverityMajor)
}

func Test_StatusService_ReferencesVehicleReportTime(t *testing.T) {
	is := is.New(t)

	//the vehicle's report time is ahead of the wall clock, so the stop at 1300 is
	//already behind it and the delay comes from the stop at 2100
	stale := 100
	fresh := 300
	passed := stopEntry("A", 1, 1300)
	passed.Delay = &stale
	upcoming := stopEntry("B", 2, 2100)
	upcoming.Delay = &fresh
	live := &fakeStaticSchedule{stopTimes: map[string][]gtfs.StopTimeEntry{
		"trip1": {passed, upcoming},
	}}
	interpolator := headway.NewPositionInterpolator(threeStopSchedule(), live, threeStopLocator())
	adherence := headway.NewAdherenceCalculator(threeStopSchedule(), interpolator)
	service := NewStatusService(live, adherence, NewHeuristicReasonProvider(), nil)
	service.Now = func() int64 { return 1000 }

	tripId := "trip1"
	timestamp := int64(2000)
	vehicle := feed.VehiclePosition{Id: "bus1", RouteId: "10", TripId: &tripId, Timestamp: &timestamp}

	status := service.StatusForVehicle(&vehicle)
	is.True(status != nil)
	is.Equal(status.DeviationSec, 300)
}

func Test_StatusService_NoDeviationNoStatus(t *testing.T) {
	is := is.New(t)
	service := statusServiceUnderTest(threeStopSchedule(), threeStopLocator(), nil)

	//vehicle without a trip cannot be measured
	vehicle := testVehicle("bus1", "10", "", 45.0, -122.01, 1500)
	is.Equal(service.StatusForVehicle(&vehicle), nil)
}

func Test_HeuristicReasonProvider_Deterministic(t *testing.T) {
	is := is.New(t)
	provider := NewHeuristicReasonProvider()

	severe := provider.Reason(700)
	is.True(severe != nil)
	is.Equal(*severe, "Severe traffic congestion along the route")
	is.Equal(*provider.Reason(700), *severe)

	moderate := provider.Reason(150)
	is.Equal(*moderate, "Moderate congestion or heavy boarding")

	fastRun := provider.Reason(-400)
	is.Equal(*fastRun, "Light traffic and fast stops")

	lowDemand := provider.Reason(-150)
	is.Equal(*lowDemand, "Lower than normal demand along the route")
}
