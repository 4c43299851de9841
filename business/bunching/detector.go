// Package bunching finds clusters of vehicles arriving at the same stop within a short
// time window, from the day's logged arrival predictions
package bunching

import (
	"fmt"
	logger "log"
	"sort"
	"time"

	"github.com/samuelwilk/mindthewait/business/data/gtfs"
)

// maxTimeWindowSeconds caps the clustering window; beyond ten minutes consecutive
// arrivals are ordinary service, not bunching
const maxTimeWindowSeconds = 600

// LogSource provides the day's arrival logs in any order; the detector sorts each
// route+stop group itself
type LogSource interface {
	ArrivalsForDate(day time.Time) ([]gtfs.ArrivalLog, error)
}

// IncidentStore persists detected incidents. DeleteForDate clears a day's prior
// results so a re-run replaces rather than duplicates.
type IncidentStore interface {
	DeleteForDate(day time.Time) (int64, error)
	Record(incidents []*gtfs.BunchingIncident) error
}

// Result summarizes one detection run
type Result struct {
	Detected int
	Skipped  int
}

// Detector runs bunching detection over one day of arrival logs
type Detector struct {
	logs      LogSource
	incidents IncidentStore
	log       *logger.Logger
}

// NewDetector builds a Detector
func NewDetector(log *logger.Logger, logs LogSource, incidents IncidentStore) *Detector {
	return &Detector{
		logs:      logs,
		incidents: incidents,
		log:       log,
	}
}

// DetectForDate clusters the day's logged arrivals per route+stop and records an
// incident for every run of two or more vehicles arriving within windowSeconds of the
// previous one. Route+stop groups with fewer than two arrivals are counted as skipped.
func (d *Detector) DetectForDate(day time.Time, windowSeconds int) (Result, error) {
	if windowSeconds < 1 || windowSeconds > maxTimeWindowSeconds {
		return Result{}, fmt.Errorf("time window must be between 1 and %d seconds, got %d",
			maxTimeWindowSeconds, windowSeconds)
	}

	arrivals, err := d.logs.ArrivalsForDate(day)
	if err != nil {
		return Result{}, fmt.Errorf("unable to load arrival logs for %s: %w",
			day.Format("2006-01-02"), err)
	}

	result := Result{}
	var incidents []*gtfs.BunchingIncident
	for _, group := range groupByRouteAndStop(arrivals) {
		if len(group) < 2 {
			result.Skipped++
			continue
		}
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].PredictedArrivalAt.Before(group[j].PredictedArrivalAt)
		})
		for _, cluster := range clusterArrivals(group, windowSeconds) {
			incidents = append(incidents, newIncident(cluster, windowSeconds))
		}
	}

	deleted, err := d.incidents.DeleteForDate(day)
	if err != nil {
		return Result{}, fmt.Errorf("unable to clear prior incidents for %s: %w",
			day.Format("2006-01-02"), err)
	}
	if deleted > 0 {
		d.log.Printf("replaced %d prior incidents for %s\n", deleted, day.Format("2006-01-02"))
	}
	err = d.incidents.Record(incidents)
	if err != nil {
		return Result{}, fmt.Errorf("unable to record incidents for %s: %w",
			day.Format("2006-01-02"), err)
	}

	result.Detected = len(incidents)
	return result, nil
}

// groupByRouteAndStop partitions arrival logs by route+stop
func groupByRouteAndStop(arrivals []gtfs.ArrivalLog) map[string][]gtfs.ArrivalLog {
	groups := make(map[string][]gtfs.ArrivalLog)
	for _, arrival := range arrivals {
		key := fmt.Sprintf("%s|%s", arrival.RouteId, arrival.StopId)
		groups[key] = append(groups[key], arrival)
	}
	return groups
}

// clusterArrivals finds maximal runs of consecutive arrivals where each arrival falls
// within windowSeconds of the previous one. The log holds a row per prediction, so a
// vehicle tracked across several polls appears several times; a repeat of the previous
// vehicle updates its arrival in place rather than counting as a second bus. Only runs
// of two or more count.
func clusterArrivals(arrivals []gtfs.ArrivalLog, windowSeconds int) [][]gtfs.ArrivalLog {
	window := time.Duration(windowSeconds) * time.Second
	var clusters [][]gtfs.ArrivalLog
	current := []gtfs.ArrivalLog{arrivals[0]}
	for i := 1; i < len(arrivals); i++ {
		previous := current[len(current)-1]
		if arrivals[i].VehicleId == previous.VehicleId {
			current[len(current)-1] = arrivals[i]
			continue
		}
		if arrivals[i].PredictedArrivalAt.Sub(previous.PredictedArrivalAt) <= window {
			current = append(current, arrivals[i])
			continue
		}
		if len(current) >= 2 {
			clusters = append(clusters, current)
		}
		current = []gtfs.ArrivalLog{arrivals[i]}
	}
	if len(current) >= 2 {
		clusters = append(clusters, current)
	}
	return clusters
}

// newIncident builds an incident from a cluster, stamped at the cluster's first arrival.
// The vehicle list holds distinct vehicles in arrival order.
func newIncident(cluster []gtfs.ArrivalLog, windowSeconds int) *gtfs.BunchingIncident {
	seen := make(map[string]bool)
	vehicleIds := make([]string, 0, len(cluster))
	for _, arrival := range cluster {
		if seen[arrival.VehicleId] {
			continue
		}
		seen[arrival.VehicleId] = true
		vehicleIds = append(vehicleIds, arrival.VehicleId)
	}
	return &gtfs.BunchingIncident{
		RouteId:       cluster[0].RouteId,
		StopId:        cluster[0].StopId,
		DetectedAt:    cluster[0].PredictedArrivalAt,
		VehicleCount:  len(vehicleIds),
		TimeWindowSec: windowSeconds,
		VehicleIds:    vehicleIds,
	}
}
