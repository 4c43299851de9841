package prediction

import (
	"time"

	"github.com/samuelwilk/mindthewait/business/data/feed"
	"github.com/samuelwilk/mindthewait/business/data/gtfs"
	"github.com/samuelwilk/mindthewait/business/headway"
)

// Status colors shown to riders
const (
	ColorGreen  = "green"
	ColorYellow = "yellow"
	ColorRed    = "red"
)

// Punctuality labels
const (
	LabelAhead  = "ahead"
	LabelOnTime = "on_time"
	LabelLate   = "late"
)

// Deviation severities
const (
	SeverityMinor    = "minor"
	SeverityMajor    = "major"
	SeverityCritical = "critical"
)

// deviation thresholds in seconds
const (
	onTimeToleranceSeconds   = 60
	reasonThresholdSeconds   = 120
	criticalDeviationSeconds = 300
)

// pastStopGraceSeconds keeps a live stop eligible as a vehicle's next stop for a short
// while after its predicted arrival has passed
const pastStopGraceSeconds = 90

// LiveStopTimes is the live trip update view the status service scans for next-stop
// delay fields
type LiveStopTimes interface {
	StopTimesForTrip(tripId string) []gtfs.StopTimeEntry
}

// FeedbackSource supplies the crowd-sourced punctuality summary for a vehicle
type FeedbackSource interface {
	Summary(vehicleId string) gtfs.FeedbackSummary
}

// VehicleStatus is the rider facing punctuality readout for one vehicle
type VehicleStatus struct {
	Color        string
	Label        string
	Severity     string
	DeviationSec int
	Reason       *string
	Feedback     *gtfs.FeedbackSummary
}

// ToMap flattens the status for json serialization
func (s *VehicleStatus) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"color":         s.Color,
		"label":         s.Label,
		"severity":      s.Severity,
		"deviation_sec": s.DeviationSec,
		"reason":        s.Reason,
		"feedback":      s.Feedback,
	}
}

// StatusService builds vehicle statuses from schedule deviation. The deviation comes
// from the live feed's delay at the vehicle's next stop when present, falling back to
// interpolated schedule adherence. A vehicle whose deviation cannot be measured
// numerically gets no status at all rather than a guess.
type StatusService struct {
	live      LiveStopTimes
	adherence *headway.AdherenceCalculator
	reasons   ReasonProvider
	feedback  FeedbackSource

	//Now is replaceable in tests
	Now func() int64
}

// NewStatusService builds a StatusService
func NewStatusService(live LiveStopTimes,
	adherence *headway.AdherenceCalculator,
	reasons ReasonProvider,
	feedback FeedbackSource) *StatusService {
	return &StatusService{
		live:      live,
		adherence: adherence,
		reasons:   reasons,
		feedback:  feedback,
		Now: func() int64 {
			return time.Now().Unix()
		},
	}
}

// StatusForVehicle returns the status readout for a vehicle, nil when its schedule
// deviation cannot be computed
func (s *StatusService) StatusForVehicle(vehicle *feed.VehiclePosition) *VehicleStatus {
	delay := s.deviationForVehicle(vehicle)
	if delay == nil {
		return nil
	}

	status := &VehicleStatus{
		DeviationSec: *delay,
		Label:        punctualityLabel(*delay),
		Severity:     deviationSeverity(*delay),
	}
	status.Color = labelColor(status.Label)

	magnitude := *delay
	if magnitude < 0 {
		magnitude = -magnitude
	}
	if magnitude >= reasonThresholdSeconds {
		status.Reason = s.reasons.Reason(*delay)
	}
	if s.feedback != nil {
		summary := s.feedback.Summary(vehicle.Id)
		status.Feedback = &summary
	}
	return status
}

// deviationForVehicle reads the delay reported at the vehicle's next live stop, falling
// back to interpolated adherence when the feed carries no delay field
func (s *StatusService) deviationForVehicle(vehicle *feed.VehiclePosition) *int {
	if vehicle == nil {
		return nil
	}
	if vehicle.TripId != nil {
		if delay := s.nextStopDelay(vehicle); delay != nil {
			return delay
		}
	}
	return s.adherence.CalculateDelay(vehicle)
}

// nextStopDelay scans the vehicle's live stops for the first upcoming one that carries
// a numeric delay, skipping stops more than the grace period behind the vehicle. The
// reference time is the vehicle's own report time when it runs ahead of the clock.
func (s *StatusService) nextStopDelay(vehicle *feed.VehiclePosition) *int {
	reference := s.Now()
	if vehicle.Timestamp != nil && *vehicle.Timestamp > reference {
		reference = *vehicle.Timestamp
	}
	for _, stop := range s.live.StopTimesForTrip(*vehicle.TripId) {
		arrival := stop.BestArrivalTime()
		if arrival == nil {
			continue
		}
		if *arrival < reference-pastStopGraceSeconds {
			continue
		}
		if stop.Delay == nil {
			continue
		}
		return stop.Delay
	}
	return nil
}

// punctualityLabel maps a signed deviation to ahead, on_time or late
func punctualityLabel(delaySeconds int) string {
	switch {
	case delaySeconds < -onTimeToleranceSeconds:
		return LabelAhead
	case delaySeconds > onTimeToleranceSeconds:
		return LabelLate
	default:
		return LabelOnTime
	}
}

// labelColor maps a punctuality label to its display color. Ahead is green, on time
// yellow, late red.
func labelColor(label string) string {
	switch label {
	case LabelAhead:
		return ColorGreen
	case LabelLate:
		return ColorRed
	default:
		return ColorYellow
	}
}

// deviationSeverity buckets the deviation: on time is minor, anything else is major
// until the deviation passes five minutes, then critical
func deviationSeverity(delaySeconds int) string {
	magnitude := delaySeconds
	if magnitude < 0 {
		magnitude = -magnitude
	}
	switch {
	case magnitude <= onTimeToleranceSeconds:
		return SeverityMinor
	case magnitude <= criticalDeviationSeconds:
		return SeverityMajor
	default:
		return SeverityCritical
	}
}
