package headway

import (
	"math"

	"github.com/samuelwilk/mindthewait/business/data/feed"
)

// AdherenceCalculator compares where a vehicle is against where the schedule says it
// should be, producing a signed delay in seconds. Positive is late, negative is early.
type AdherenceCalculator struct {
	schedule     ScheduleSource
	interpolator *PositionInterpolator
}

// NewAdherenceCalculator builds an AdherenceCalculator. The schedule source should be
// a composite so trips missing from the static schedule still get live stop times.
func NewAdherenceCalculator(schedule ScheduleSource, interpolator *PositionInterpolator) *AdherenceCalculator {
	return &AdherenceCalculator{
		schedule:     schedule,
		interpolator: interpolator,
	}
}

// CalculateDelay returns the vehicle's schedule deviation in seconds, interpolating the
// expected time at the vehicle's current progress between the bracketing stops.
// Returns nil when the vehicle's position, trip or schedule cannot support the
// comparison, or when the bracketing stop times are not monotonically increasing.
func (a *AdherenceCalculator) CalculateDelay(vehicle *feed.VehiclePosition) *int {
	if vehicle == nil || vehicle.Timestamp == nil || vehicle.TripId == nil {
		return nil
	}
	progress := a.interpolator.RouteProgress(vehicle)
	if progress == nil {
		return nil
	}
	stopTimes := a.schedule.StopTimesForTrip(*vehicle.TripId)
	if len(stopTimes) < 2 {
		return nil
	}

	position := *progress * float64(len(stopTimes)-1)
	beforeIndex := int(math.Floor(position))
	afterIndex := int(math.Ceil(position))
	if afterIndex >= len(stopTimes) {
		afterIndex = len(stopTimes) - 1
	}

	beforeTime := stopTimes[beforeIndex].BestDepartureTime()
	afterTime := stopTimes[afterIndex].BestArrivalTime()
	if beforeTime == nil || afterTime == nil {
		return nil
	}

	var expected int64
	if beforeIndex == afterIndex {
		expected = *beforeTime
	} else {
		if *afterTime <= *beforeTime {
			return nil
		}
		fraction := position - float64(beforeIndex)
		expected = *beforeTime + int64(math.Round(fraction*float64(*afterTime-*beforeTime)))
	}

	delay := int(*vehicle.Timestamp - expected)
	return &delay
}

// ClassifyDelay maps a signed delay to a human readable band
func ClassifyDelay(delaySeconds *int) string {
	if delaySeconds == nil {
		return "unknown"
	}
	delay := *delaySeconds
	switch {
	case delay < -120:
		return "very_early"
	case delay < -60:
		return "early"
	case delay <= 60:
		return "on_time"
	case delay <= 180:
		return "slightly_late"
	case delay <= 300:
		return "late"
	default:
		return "very_late"
	}
}
