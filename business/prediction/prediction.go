// Package prediction produces confidence tiered arrival predictions for stops, enriched
// with vehicle status, position and rider feedback
package prediction

import (
	"github.com/samuelwilk/mindthewait/business/data/gtfs"
)

// CurrentLocation is the last reported position of the vehicle serving a prediction
type CurrentLocation struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	StopsAway *int    `json:"stops_away"`
}

// ArrivalPrediction is one predicted arrival of a vehicle at a stop. Confidence tells
// the consumer which signal produced ArrivalAt: a live trip update, GPS interpolation,
// or the static schedule.
type ArrivalPrediction struct {
	VehicleId       string
	RouteId         string
	TripId          string
	StopId          string
	Headsign        *string
	ArrivalAt       int64
	Confidence      string
	Status          *VehicleStatus
	CurrentLocation *CurrentLocation
	Feedback        *gtfs.FeedbackSummary
	DelaySec        *int
}

// ArrivalInSec returns seconds until the predicted arrival, clamped at zero so a
// vehicle slightly past its prediction still reads as arriving now
func (p *ArrivalPrediction) ArrivalInSec(now int64) int64 {
	remaining := p.ArrivalAt - now
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ToMap flattens the prediction for json serialization
func (p *ArrivalPrediction) ToMap(now int64) map[string]interface{} {
	result := map[string]interface{}{
		"vehicle_id":       p.VehicleId,
		"route_id":         p.RouteId,
		"trip_id":          p.TripId,
		"stop_id":          p.StopId,
		"headsign":         p.Headsign,
		"arrival_at":       p.ArrivalAt,
		"arrival_in_sec":   p.ArrivalInSec(now),
		"confidence":       p.Confidence,
		"current_location": p.CurrentLocation,
		"feedback":         p.Feedback,
		"delay_sec":        p.DelaySec,
	}
	if p.Status != nil {
		result["status"] = p.Status.ToMap()
	} else {
		result["status"] = nil
	}
	return result
}
