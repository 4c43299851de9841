package prediction

import (
	logger "log"
	"os"
	"testing"

	"github.com/matryer/is"
	"github.com/samuelwilk/mindthewait/business/data/feed"
	"github.com/samuelwilk/mindthewait/business/data/gtfs"
	"github.com/samuelwilk/mindthewait/business/headway"
)

// fakeArrivalSink collects recorded arrival logs
type fakeArrivalSink struct {
	records []*gtfs.ArrivalLog
}

func (f *fakeArrivalSink) Record(arrivalLog *gtfs.ArrivalLog) error {
	f.records = append(f.records, arrivalLog)
	return nil
}

func predictorUnderTest(snapshot *feed.Snapshot, static *fakeStaticSchedule, sink ArrivalSink) *Predictor {
	log := logger.New(os.Stdout, "TEST : ", logger.LstdFlags)
	locator := threeStopLocator()
	interpolator := headway.NewPositionInterpolator(static, snapshot, locator)
	adherence := headway.NewAdherenceCalculator(static, interpolator)
	feedback := &fakeFeedbackSource{summary: gtfs.FeedbackSummary{Late: 1, Total: 1}}
	status := NewStatusService(snapshot, adherence, NewHeuristicReasonProvider(), feedback)
	status.Now = func() int64 { return 900 }
	predictor := NewPredictor(log, snapshot, static, interpolator, status, feedback, sink)
	predictor.Now = func() int64 { return 900 }
	return predictor
}

func Test_Predictor_TripUpdateWins(t *testing.T) {
	is := is.New(t)
	snapshot := &feed.Snapshot{
		Timestamp: 900,
		Vehicles: []feed.VehiclePosition{
			testVehicle("bus1", "10", "trip1", 45.0, -122.00, 900),
		},
		Trips: []feed.TripEntry{
			{TripId: "trip1", Stops: []gtfs.StopTimeEntry{stopEntry("C", 3, 1550)}},
		},
	}
	sink := &fakeArrivalSink{}
	predictor := predictorUnderTest(snapshot, threeStopSchedule(), sink)

	result := predictor.PredictArrival("C", "trip1", "bus1")
	is.True(result != nil)
	is.Equal(result.ArrivalAt, int64(1550))
	is.Equal(result.Confidence, headway.ConfidenceHigh)
	is.Equal(result.VehicleId, "bus1")
	is.Equal(result.RouteId, "10")

	//deviation against the schedule time of 1600
	is.True(result.DelaySec != nil)
	is.Equal(*result.DelaySec, -50)

	//enrichment
	is.True(result.Headsign != nil)
	is.Equal(*result.Headsign, "Downtown")
	is.True(result.Feedback != nil)
	is.True(result.CurrentLocation != nil)

	//the prediction was logged
	is.Equal(len(sink.records), 1)
	is.Equal(sink.records[0].Confidence, headway.ConfidenceHigh)
	is.Equal(sink.records[0].StopId, "C")
}

func Test_Predictor_FallsBackToInterpolation(t *testing.T) {
	is := is.New(t)

	//no trip updates; bus1 is at the first stop with a third of the trip behind it
	snapshot := &feed.Snapshot{
		Timestamp: 900,
		Vehicles: []feed.VehiclePosition{
			testVehicle("bus1", "10", "trip1", 45.0, -122.00, 2000),
		},
	}
	predictor := predictorUnderTest(snapshot, threeStopSchedule(), nil)

	//target progress for stop C is 1.0, trip duration 600s, so the remaining two
	//thirds take 400 seconds from the vehicle's report time
	result := predictor.PredictArrival("C", "trip1", "bus1")
	is.True(result != nil)
	is.Equal(result.ArrivalAt, int64(2400))
	is.Equal(result.Confidence, headway.ConfidenceMedium)

	//two stops between the vehicle and the target
	is.True(result.CurrentLocation != nil)
	is.True(result.CurrentLocation.StopsAway != nil)
	is.Equal(*result.CurrentLocation.StopsAway, 2)
}

func Test_Predictor_VehiclePastStopExtrapolatesBackwards(t *testing.T) {
	is := is.New(t)

	//bus1 is at the last stop, so the arrival at the first stop is already behind it
	snapshot := &feed.Snapshot{
		Timestamp: 900,
		Vehicles: []feed.VehiclePosition{
			testVehicle("bus1", "10", "trip1", 45.0, -122.02, 900),
		},
	}
	predictor := predictorUnderTest(snapshot, threeStopSchedule(), nil)

	//progress 1.0 against a target of one third, trip duration 600s: the estimate
	//lands 400 seconds before the vehicle's report time, not at the report time itself
	result := predictor.PredictArrival("A", "trip1", "bus1")
	is.True(result != nil)
	is.Equal(result.ArrivalAt, int64(500))
	is.Equal(result.Confidence, headway.ConfidenceMedium)

	//the stop listing drops arrivals that far in the past
	is.Equal(len(predictor.PredictArrivalsForStop("A", "", 0)), 0)
}

func Test_Predictor_FallsBackToStaticSchedule(t *testing.T) {
	is := is.New(t)

	//no vehicles and no trip updates at all
	snapshot := &feed.Snapshot{Timestamp: 900}
	predictor := predictorUnderTest(snapshot, threeStopSchedule(), nil)

	result := predictor.PredictArrival("C", "trip1", "")
	is.True(result != nil)
	is.Equal(result.ArrivalAt, int64(1600))
	is.Equal(result.Confidence, headway.ConfidenceLow)
	is.Equal(result.Status, nil)
	is.Equal(result.CurrentLocation, nil)
}

func Test_Predictor_NoSignalNoPrediction(t *testing.T) {
	is := is.New(t)
	snapshot := &feed.Snapshot{Timestamp: 900}
	predictor := predictorUnderTest(snapshot, threeStopSchedule(), nil)

	is.Equal(predictor.PredictArrival("C", "ghost", ""), nil)
}

func Test_Predictor_ResolvesVehicleByTripId(t *testing.T) {
	is := is.New(t)
	snapshot := &feed.Snapshot{
		Timestamp: 900,
		Vehicles: []feed.VehiclePosition{
			testVehicle("bus7", "10", "trip1", 45.0, -122.00, 900),
		},
		Trips: []feed.TripEntry{
			{TripId: "trip1", Stops: []gtfs.StopTimeEntry{stopEntry("C", 3, 1550)}},
		},
	}
	predictor := predictorUnderTest(snapshot, threeStopSchedule(), nil)

	//an unknown vehicle id still resolves through the trip
	result := predictor.PredictArrival("C", "trip1", "unknown")
	is.True(result != nil)
	is.Equal(result.VehicleId, "bus7")
}

func Test_Predictor_PredictArrivalsForStop(t *testing.T) {
	is := is.New(t)
	routeTwenty := "20"
	snapshot := &feed.Snapshot{
		Timestamp: 900,
		Vehicles: []feed.VehiclePosition{
			testVehicle("bus1", "10", "trip1", 45.0, -122.00, 900),
		},
		Trips: []feed.TripEntry{
			{TripId: "trip1", Stops: []gtfs.StopTimeEntry{stopEntry("S", 5, 1200)}},
			//no tracked vehicle for the remaining trips
			{TripId: "trip2", Stops: []gtfs.StopTimeEntry{stopEntry("S", 5, 1500)}},
			{TripId: "trip3", RouteId: &routeTwenty, Stops: []gtfs.StopTimeEntry{stopEntry("S", 5, 1300)}},
			//already arrived well before the grace window
			{TripId: "trip4", Stops: []gtfs.StopTimeEntry{stopEntry("S", 5, 700)}},
		},
	}
	predictor := predictorUnderTest(snapshot, threeStopSchedule(), nil)

	results := predictor.PredictArrivalsForStop("S", "", 0)
	is.Equal(len(results), 3)
	is.Equal(results[0].ArrivalAt, int64(1200))
	is.Equal(results[0].Confidence, headway.ConfidenceHigh)
	is.Equal(results[1].ArrivalAt, int64(1300))
	is.Equal(results[2].ArrivalAt, int64(1500))

	//trip update only predictions are capped at medium confidence
	is.Equal(results[1].Confidence, headway.ConfidenceMedium)
	is.Equal(results[2].Confidence, headway.ConfidenceMedium)

	//route filter
	filtered := predictor.PredictArrivalsForStop("S", "20", 0)
	is.Equal(len(filtered), 1)
	is.Equal(filtered[0].ArrivalAt, int64(1300))

	//limit
	limited := predictor.PredictArrivalsForStop("S", "", 1)
	is.Equal(len(limited), 1)
	is.Equal(limited[0].ArrivalAt, int64(1200))
}

func Test_ArrivalPrediction_ArrivalInSec(t *testing.T) {
	is := is.New(t)
	result := ArrivalPrediction{ArrivalAt: 1000}

	is.Equal(result.ArrivalInSec(700), int64(300))

	//past arrivals clamp to zero
	is.Equal(result.ArrivalInSec(1200), int64(0))

	m := result.ToMap(700)
	is.Equal(m["arrival_in_sec"], int64(300))
}
