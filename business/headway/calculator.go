package headway

import (
	"sort"
	"time"

	"github.com/samuelwilk/mindthewait/business/data/feed"
)

// nextStopGraceSeconds keeps a stop eligible as a vehicle's "next stop" for a short
// while after its predicted arrival has passed, absorbing feed latency
const nextStopGraceSeconds = 60

// Calculator computes the observed headway for a group of vehicles on one route and
// direction. Three strategies are tried in order of decreasing signal quality:
// shared next-stop predicted arrivals, interpolated mid-route crossing times, and
// raw vehicle report timestamps.
type Calculator struct {
	interpolator *PositionInterpolator
	live         ScheduleSource

	//Now is replaceable in tests
	Now func() int64
}

// NewCalculator builds a Calculator
func NewCalculator(interpolator *PositionInterpolator, live ScheduleSource) *Calculator {
	return &Calculator{
		interpolator: interpolator,
		live:         live,
		Now: func() int64 {
			return time.Now().Unix()
		},
	}
}

// ObservedHeadwaySec returns the median gap in seconds between consecutive vehicles in
// the group, or nil when fewer than two vehicles produce comparable times under any
// strategy
func (c *Calculator) ObservedHeadwaySec(vehicles []feed.VehiclePosition) *int {
	if len(vehicles) < 2 {
		return nil
	}
	if headway := c.headwayFromNextStopArrivals(vehicles); headway != nil {
		return headway
	}
	if headway := c.headwayFromInterpolatedMidpoint(vehicles); headway != nil {
		return headway
	}
	return c.headwayFromReportTimestamps(vehicles)
}

// headwayFromNextStopArrivals groups vehicles by the next stop each is predicted to
// reach and measures gaps between their predicted arrivals at that shared stop. The
// stop whose earliest arrival is soonest is used when several stops qualify.
func (c *Calculator) headwayFromNextStopArrivals(vehicles []feed.VehiclePosition) *int {
	now := c.Now()
	arrivalsByStop := make(map[string][]int64)
	for _, vehicle := range vehicles {
		if vehicle.TripId == nil {
			continue
		}
		stopId, arrival := c.nextStopArrival(*vehicle.TripId, now)
		if stopId == "" {
			continue
		}
		arrivalsByStop[stopId] = append(arrivalsByStop[stopId], arrival)
	}

	var bestArrivals []int64
	var bestReference int64
	for _, arrivals := range arrivalsByStop {
		if len(arrivals) < 2 {
			continue
		}
		reference := arrivals[0]
		for _, arrival := range arrivals {
			if arrival < reference {
				reference = arrival
			}
		}
		if bestArrivals == nil || reference < bestReference {
			bestArrivals = arrivals
			bestReference = reference
		}
	}
	return medianOfGaps(bestArrivals)
}

// nextStopArrival finds the first stop on the trip whose predicted arrival has not
// passed (less a grace period), returning its stop id and predicted arrival time
func (c *Calculator) nextStopArrival(tripId string, now int64) (string, int64) {
	for _, stop := range c.live.StopTimesForTrip(tripId) {
		arrival := stop.BestArrivalTime()
		if arrival == nil {
			continue
		}
		if *arrival >= now-nextStopGraceSeconds {
			return stop.StopId, *arrival
		}
	}
	return "", 0
}

// headwayFromInterpolatedMidpoint estimates when each vehicle crosses the midpoint of
// its trip and measures the gaps between those crossing times
func (c *Calculator) headwayFromInterpolatedMidpoint(vehicles []feed.VehiclePosition) *int {
	var crossings []int64
	for i := range vehicles {
		estimate := c.interpolator.EstimateTimeAtProgress(&vehicles[i], 0.5)
		if estimate != nil {
			crossings = append(crossings, *estimate)
		}
	}
	return medianOfGaps(crossings)
}

// headwayFromReportTimestamps is the last resort: gaps between the vehicles' own
// report timestamps
func (c *Calculator) headwayFromReportTimestamps(vehicles []feed.VehiclePosition) *int {
	var timestamps []int64
	for _, vehicle := range vehicles {
		if vehicle.Timestamp != nil {
			timestamps = append(timestamps, *vehicle.Timestamp)
		}
	}
	return medianOfGaps(timestamps)
}

// medianOfGaps sorts the times, takes the positive gaps between consecutive times, and
// returns their median in seconds. Fewer than two times, or no positive gaps, yields nil.
func medianOfGaps(times []int64) *int {
	if len(times) < 2 {
		return nil
	}
	sorted := make([]int64, len(times))
	copy(sorted, times)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var gaps []int64
	for i := 1; i < len(sorted); i++ {
		gap := sorted[i] - sorted[i-1]
		if gap > 0 {
			gaps = append(gaps, gap)
		}
	}
	if len(gaps) == 0 {
		return nil
	}
	sort.Slice(gaps, func(i, j int) bool { return gaps[i] < gaps[j] })

	middle := len(gaps) / 2
	var median int64
	if len(gaps)%2 == 1 {
		median = gaps[middle]
	} else {
		median = (gaps[middle-1] + gaps[middle]) / 2
	}
	result := int(median)
	return &result
}
