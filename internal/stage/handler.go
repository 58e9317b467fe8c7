package stage

import "context"

// Stage names, in pipeline order. They double as log and error labels.
const (
	Speech    = "speech"
	Captions  = "captions"
	Animation = "animation"
	Assembly  = "assembly"
)

// Order lists the stages in the order the orchestrator runs them.
var Order = []string{Speech, Captions, Animation, Assembly}

// HealthChecker is implemented by every stage executor so the daemon can
// report whether its external dependencies look usable.
type HealthChecker interface {
	HealthCheck(context.Context) Health
}
