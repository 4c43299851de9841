package prediction

// delay thresholds for picking a deviation reason, in seconds
const (
	severeDelaySeconds = 600
	strongEarlySeconds = -300
)

// ReasonProvider supplies a plain language explanation for a schedule deviation
type ReasonProvider interface {
	Reason(delaySeconds int) *string
}

// HeuristicReasonProvider maps deviation magnitude to a fixed explanation. It is
// deterministic so the same deviation always reads the same way.
type HeuristicReasonProvider struct{}

// NewHeuristicReasonProvider builds a HeuristicReasonProvider
func NewHeuristicReasonProvider() *HeuristicReasonProvider {
	return &HeuristicReasonProvider{}
}

// Reason implements ReasonProvider
func (h *HeuristicReasonProvider) Reason(delaySeconds int) *string {
	var reason string
	switch {
	case delaySeconds >= severeDelaySeconds:
		reason = "Severe traffic congestion along the route"
	case delaySeconds > 0:
		reason = "Moderate congestion or heavy boarding"
	case delaySeconds <= strongEarlySeconds:
		reason = "Light traffic and fast stops"
	default:
		reason = "Lower than normal demand along the route"
	}
	return &reason
}
