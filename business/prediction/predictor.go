package prediction

import (
	logger "log"
	"math"
	"sort"
	"time"

	"github.com/samuelwilk/mindthewait/business/data/feed"
	"github.com/samuelwilk/mindthewait/business/data/gtfs"
	"github.com/samuelwilk/mindthewait/business/headway"
)

// pastArrivalGraceSeconds keeps predictions visible shortly after their arrival time
// has passed, absorbing feed latency
const pastArrivalGraceSeconds = 60

// StaticSchedule is the static GTFS view the predictor needs: ordered stop times and
// trip headsigns
type StaticSchedule interface {
	StopTimesForTrip(tripId string) []gtfs.StopTimeEntry
	Headsign(tripId string) *string
}

// ArrivalSink receives every produced prediction for historical logging
type ArrivalSink interface {
	Record(arrivalLog *gtfs.ArrivalLog) error
}

// Predictor produces arrival predictions against one feed snapshot. Build a new
// Predictor per snapshot; it holds no mutable state and is safe for concurrent use.
type Predictor struct {
	snapshot     *feed.Snapshot
	static       StaticSchedule
	interpolator *headway.PositionInterpolator
	status       *StatusService
	feedback     FeedbackSource
	sink         ArrivalSink
	log          *logger.Logger

	//Now is replaceable in tests
	Now func() int64
}

// NewPredictor builds a Predictor over a snapshot. feedback and sink may be nil when
// feedback enrichment or arrival logging are not wanted.
func NewPredictor(log *logger.Logger,
	snapshot *feed.Snapshot,
	static StaticSchedule,
	interpolator *headway.PositionInterpolator,
	status *StatusService,
	feedback FeedbackSource,
	sink ArrivalSink) *Predictor {
	return &Predictor{
		snapshot:     snapshot,
		static:       static,
		interpolator: interpolator,
		status:       status,
		feedback:     feedback,
		sink:         sink,
		log:          log,
		Now: func() int64 {
			return time.Now().Unix()
		},
	}
}

// PredictArrival predicts when the vehicle serving tripId reaches stopId. Signals are
// tried in order of decreasing confidence: the live trip update, GPS interpolation
// along the trip's stop pattern, then the static schedule. Returns nil when no signal
// can produce an arrival time.
func (p *Predictor) PredictArrival(stopId string, tripId string, vehicleId string) *ArrivalPrediction {
	vehicle := p.resolveVehicle(vehicleId, tripId)

	arrivalAt, confidence := p.arrivalFromTripUpdate(tripId, stopId)
	if arrivalAt == nil {
		arrivalAt, confidence = p.arrivalFromInterpolation(vehicle, tripId, stopId)
	}
	if arrivalAt == nil {
		arrivalAt, confidence = p.arrivalFromStaticSchedule(tripId, stopId)
	}
	if arrivalAt == nil {
		return nil
	}

	result := &ArrivalPrediction{
		VehicleId:  resolvedVehicleId(vehicle, vehicleId, tripId),
		RouteId:    p.routeForTrip(vehicle, tripId),
		TripId:     tripId,
		StopId:     stopId,
		ArrivalAt:  *arrivalAt,
		Confidence: confidence,
	}
	p.enrich(result, vehicle, tripId, stopId)
	p.logArrival(result)
	return result
}

// PredictArrivalsForStop predicts upcoming arrivals at stopId across the whole
// snapshot, soonest first. routeId filters to one route when non empty, limit caps the
// result when positive. Trips present only in the trip update feed, with no tracked
// vehicle, still produce predictions at medium confidence.
func (p *Predictor) PredictArrivalsForStop(stopId string, routeId string, limit int) []ArrivalPrediction {
	now := p.Now()
	cutoff := now - pastArrivalGraceSeconds

	var results []ArrivalPrediction
	coveredTrips := make(map[string]bool)
	for i := range p.snapshot.Vehicles {
		vehicle := &p.snapshot.Vehicles[i]
		if vehicle.TripId == nil {
			continue
		}
		if routeId != "" && vehicle.RouteId != routeId {
			continue
		}
		if !p.tripServesStop(*vehicle.TripId, stopId) {
			continue
		}
		coveredTrips[*vehicle.TripId] = true
		prediction := p.PredictArrival(stopId, *vehicle.TripId, vehicle.Id)
		if prediction != nil && prediction.ArrivalAt >= cutoff {
			results = append(results, *prediction)
		}
	}

	for i := range p.snapshot.Trips {
		trip := &p.snapshot.Trips[i]
		if coveredTrips[trip.TripId] {
			continue
		}
		if routeId != "" && (trip.RouteId == nil || *trip.RouteId != routeId) {
			continue
		}
		prediction := p.predictFromTripUpdateOnly(trip, stopId)
		if prediction != nil && prediction.ArrivalAt >= cutoff {
			results = append(results, *prediction)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].ArrivalAt < results[j].ArrivalAt
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// predictFromTripUpdateOnly predicts an arrival for a trip the vehicle feed is not
// tracking. Without a vehicle to corroborate the update, confidence is capped at medium.
func (p *Predictor) predictFromTripUpdateOnly(trip *feed.TripEntry, stopId string) *ArrivalPrediction {
	arrivalAt := bestArrivalAtStop(trip.Stops, stopId)
	if arrivalAt == nil {
		return nil
	}

	result := &ArrivalPrediction{
		VehicleId:  trip.TripId,
		TripId:     trip.TripId,
		StopId:     stopId,
		ArrivalAt:  *arrivalAt,
		Confidence: headway.ConfidenceMedium,
	}
	if trip.RouteId != nil {
		result.RouteId = *trip.RouteId
	}
	p.enrich(result, nil, trip.TripId, stopId)
	p.logArrival(result)
	return result
}

// arrivalFromTripUpdate reads the predicted arrival straight from the trip update feed
func (p *Predictor) arrivalFromTripUpdate(tripId string, stopId string) (*int64, string) {
	if arrival := bestArrivalAtStop(p.snapshot.StopTimesForTrip(tripId), stopId); arrival != nil {
		return arrival, headway.ConfidenceHigh
	}
	return nil, ""
}

// arrivalFromInterpolation estimates the arrival from the vehicle's GPS progress along
// the trip's stop pattern, scaling the remaining fraction by the trip's duration. A
// vehicle at or past the target stop extrapolates backwards to a past arrival, which
// the stop listing's grace cutoff then drops.
func (p *Predictor) arrivalFromInterpolation(vehicle *feed.VehiclePosition, tripId string, stopId string) (*int64, string) {
	if vehicle == nil || !vehicle.HasPosition() || vehicle.Timestamp == nil {
		return nil, ""
	}
	stopTimes := p.static.StopTimesForTrip(tripId)
	target, maxSequence := stopPosition(stopTimes, stopId)
	if target == nil || maxSequence <= 0 {
		return nil, ""
	}
	progress := p.interpolator.RouteProgress(vehicle)
	if progress == nil {
		return nil, ""
	}
	duration := gtfs.TripDurationFromEntries(stopTimes)
	if duration == nil {
		duration = p.snapshot.TripDuration(tripId)
	}
	if duration == nil || duration.Seconds() <= 0 {
		return nil, ""
	}

	targetProgress := float64(target.StopSequence) / float64(maxSequence)
	remaining := targetProgress - *progress
	estimate := *vehicle.Timestamp + int64(math.Round(remaining*float64(duration.Seconds())))
	return &estimate, headway.ConfidenceMedium
}

// arrivalFromStaticSchedule is the last resort: the published schedule time
func (p *Predictor) arrivalFromStaticSchedule(tripId string, stopId string) (*int64, string) {
	if arrival := bestArrivalAtStop(p.static.StopTimesForTrip(tripId), stopId); arrival != nil {
		return arrival, headway.ConfidenceLow
	}
	return nil, ""
}

// enrich attaches headsign, vehicle status, current location, stops away, feedback and
// schedule deviation to a prediction
func (p *Predictor) enrich(result *ArrivalPrediction, vehicle *feed.VehiclePosition, tripId string, stopId string) {
	result.Headsign = p.static.Headsign(tripId)

	if scheduled := bestArrivalAtStop(p.static.StopTimesForTrip(tripId), stopId); scheduled != nil {
		delay := int(result.ArrivalAt - *scheduled)
		result.DelaySec = &delay
	}

	if vehicle == nil {
		return
	}
	if result.RouteId == "" {
		result.RouteId = vehicle.RouteId
	}
	result.Status = p.status.StatusForVehicle(vehicle)
	if vehicle.HasPosition() {
		result.CurrentLocation = &CurrentLocation{
			Latitude:  *vehicle.Latitude,
			Longitude: *vehicle.Longitude,
			StopsAway: p.stopsAway(vehicle, tripId, stopId),
		}
	}
	if p.feedback != nil {
		summary := p.feedback.Summary(vehicle.Id)
		result.Feedback = &summary
	}
}

// stopsAway counts stops between the vehicle's nearest stop and the target stop,
// clamped at zero once the vehicle has passed the target
func (p *Predictor) stopsAway(vehicle *feed.VehiclePosition, tripId string, stopId string) *int {
	target, _ := stopPosition(p.static.StopTimesForTrip(tripId), stopId)
	if target == nil {
		return nil
	}
	nearest := p.interpolator.NearestStop(vehicle)
	if nearest == nil {
		return nil
	}
	away := target.StopSequence - nearest.StopSequence
	if away < 0 {
		away = 0
	}
	return &away
}

// logArrival records the prediction for historical analysis. Logging failures are
// reported but never block the prediction.
func (p *Predictor) logArrival(result *ArrivalPrediction) {
	if p.sink == nil {
		return
	}
	now := p.Now()
	arrivalLog := &gtfs.ArrivalLog{
		VehicleId:          result.VehicleId,
		RouteId:            result.RouteId,
		TripId:             result.TripId,
		StopId:             result.StopId,
		PredictedArrivalAt: time.Unix(result.ArrivalAt, 0),
		DelaySec:           result.DelaySec,
		Confidence:         result.Confidence,
		PredictedAt:        time.Unix(now, 0),
	}
	if result.DelaySec != nil {
		scheduled := time.Unix(result.ArrivalAt-int64(*result.DelaySec), 0)
		arrivalLog.ScheduledArrivalAt = &scheduled
	}
	if result.CurrentLocation != nil {
		arrivalLog.StopsAway = result.CurrentLocation.StopsAway
	}
	err := p.sink.Record(arrivalLog)
	if err != nil {
		p.log.Printf("error recording arrival log for vehicle %s at stop %s: %v\n",
			result.VehicleId, result.StopId, err)
	}
}

// resolveVehicle finds the vehicle serving a prediction, trying the vehicle id, the
// trip id, and finally any vehicle on the trip's route
func (p *Predictor) resolveVehicle(vehicleId string, tripId string) *feed.VehiclePosition {
	if vehicleId != "" {
		if vehicle := p.snapshot.VehicleById(vehicleId); vehicle != nil {
			return vehicle
		}
	}
	if tripId != "" {
		if vehicle := p.snapshot.VehicleById(tripId); vehicle != nil {
			return vehicle
		}
	}
	routeId := p.routeForTrip(nil, tripId)
	if routeId == "" {
		return nil
	}
	for i := range p.snapshot.Vehicles {
		if p.snapshot.Vehicles[i].RouteId == routeId {
			return &p.snapshot.Vehicles[i]
		}
	}
	return nil
}

// routeForTrip resolves a trip's route from the tracked vehicle or the trip update feed
func (p *Predictor) routeForTrip(vehicle *feed.VehiclePosition, tripId string) string {
	if vehicle != nil && vehicle.RouteId != "" {
		return vehicle.RouteId
	}
	for i := range p.snapshot.Trips {
		trip := &p.snapshot.Trips[i]
		if trip.TripId == tripId && trip.RouteId != nil {
			return *trip.RouteId
		}
	}
	return ""
}

// tripServesStop reports whether the trip's stop pattern, live or static, contains stopId
func (p *Predictor) tripServesStop(tripId string, stopId string) bool {
	if entry, _ := stopPosition(p.snapshot.StopTimesForTrip(tripId), stopId); entry != nil {
		return true
	}
	entry, _ := stopPosition(p.static.StopTimesForTrip(tripId), stopId)
	return entry != nil
}

// resolvedVehicleId picks the identifier reported for a prediction: the tracked
// vehicle's id, the requested id, or the trip id as a last resort
func resolvedVehicleId(vehicle *feed.VehiclePosition, vehicleId string, tripId string) string {
	if vehicle != nil {
		return vehicle.Id
	}
	if vehicleId != "" {
		return vehicleId
	}
	return tripId
}

// stopPosition finds stopId's entry in a stop pattern along with the pattern's maximum
// stop sequence
func stopPosition(stopTimes []gtfs.StopTimeEntry, stopId string) (*gtfs.StopTimeEntry, int) {
	maxSequence := 0
	var target *gtfs.StopTimeEntry
	for i := range stopTimes {
		if stopTimes[i].StopSequence > maxSequence {
			maxSequence = stopTimes[i].StopSequence
		}
		if stopTimes[i].StopId == stopId {
			target = &stopTimes[i]
		}
	}
	return target, maxSequence
}

// bestArrivalAtStop returns the best available time at stopId in a stop pattern
func bestArrivalAtStop(stopTimes []gtfs.StopTimeEntry, stopId string) *int64 {
	for i := range stopTimes {
		if stopTimes[i].StopId == stopId {
			return stopTimes[i].BestArrivalTime()
		}
	}
	return nil
}
