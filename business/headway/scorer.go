package headway

import (
	"sort"
	"strings"

	"github.com/samuelwilk/mindthewait/business/data/feed"
)

// Letter grade thresholds in seconds of observed headway
const (
	gradeAMaxSeconds = 600
	gradeBMaxSeconds = 900
	gradeCMaxSeconds = 1200
)

// Confidence levels attached to a score, in decreasing order of signal quality
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// HeadwayScore is the scored service quality for one route+direction group at one
// moment. ObservedHeadwaySec and ScheduledHeadwaySec are nil when unavailable.
type HeadwayScore struct {
	RouteId             string
	Direction           string
	ObservedHeadwaySec  *int
	ScheduledHeadwaySec *int
	Vehicles            int
	Grade               string
	Confidence          string
	AsOf                int64
}

// ToMap flattens the score for json serialization and message publication
func (s *HeadwayScore) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"route_id":              s.RouteId,
		"direction":             s.Direction,
		"observed_headway_sec":  s.ObservedHeadwaySec,
		"scheduled_headway_sec": s.ScheduledHeadwaySec,
		"vehicles":              s.Vehicles,
		"grade":                 s.Grade,
		"confidence":            s.Confidence,
		"as_of":                 s.AsOf,
	}
}

// Scorer turns a feed snapshot's vehicles into per route+direction headway scores
type Scorer struct {
	calculator *Calculator
	adherence  *AdherenceCalculator
}

// NewScorer builds a Scorer
func NewScorer(calculator *Calculator, adherence *AdherenceCalculator) *Scorer {
	return &Scorer{
		calculator: calculator,
		adherence:  adherence,
	}
}

// Compute scores every route+direction group in the vehicle set, ordered by route then
// direction so output is stable across polls
func (s *Scorer) Compute(vehicles []feed.VehiclePosition, asOf int64) []HeadwayScore {
	groups := GroupByRouteDirection(vehicles)

	scores := make([]HeadwayScore, 0, len(groups))
	for key, group := range groups {
		routeId, direction := splitGroupKey(key)
		scores = append(scores, s.scoreGroup(routeId, direction, group, asOf))
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].RouteId != scores[j].RouteId {
			return scores[i].RouteId < scores[j].RouteId
		}
		return scores[i].Direction < scores[j].Direction
	})
	return scores
}

// scoreGroup grades one route+direction group. Groups with a computed headway get a
// headway grade at high confidence. A lone vehicle falls back to a schedule adherence
// grade at medium confidence. Everything else is ungraded at low confidence.
func (s *Scorer) scoreGroup(routeId string, direction string, group []feed.VehiclePosition, asOf int64) HeadwayScore {
	score := HeadwayScore{
		RouteId:    routeId,
		Direction:  direction,
		Vehicles:   len(group),
		Grade:      "N/A",
		Confidence: ConfidenceLow,
		AsOf:       asOf,
	}

	score.ObservedHeadwaySec = s.calculator.ObservedHeadwaySec(group)
	if score.ObservedHeadwaySec != nil {
		score.Grade = headwayGrade(*score.ObservedHeadwaySec)
		score.Confidence = ConfidenceHigh
		return score
	}

	if len(group) == 1 {
		if delay := s.adherence.CalculateDelay(&group[0]); delay != nil {
			score.Grade = adherenceGrade(*delay)
			score.Confidence = ConfidenceMedium
		}
	}
	return score
}

// headwayGrade maps an observed headway in seconds to a letter grade
func headwayGrade(observedSeconds int) string {
	switch {
	case observedSeconds <= gradeAMaxSeconds:
		return "A"
	case observedSeconds <= gradeBMaxSeconds:
		return "B"
	case observedSeconds <= gradeCMaxSeconds:
		return "C"
	default:
		return "D"
	}
}

// adherenceGrade maps a single vehicle's schedule deviation to a letter grade. A lone
// vehicle can never earn an A since headway is unmeasurable.
func adherenceGrade(delaySeconds int) string {
	deviation := delaySeconds
	if deviation < 0 {
		deviation = -deviation
	}
	switch {
	case deviation <= 60:
		return "B"
	case deviation <= 180:
		return "C"
	case deviation <= 300:
		return "D"
	default:
		return "F"
	}
}

// splitGroupKey reverses GroupKey
func splitGroupKey(key string) (string, string) {
	separator := strings.LastIndex(key, "|")
	if separator < 0 {
		return key, "all"
	}
	return key[:separator], key[separator+1:]
}
