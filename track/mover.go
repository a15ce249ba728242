// Package track is the search-and-track decision engine. A Controller is
// ticked periodically; each tick it polls a TelemetrySource, keeps the
// best-ever reading and the loss counter, and runs the finite-state machine
// of the active Mode, which issues new targets to the per-axis Movers.
package track

import "github.com/w1xm/linktrack/signal"

// Mover positions one axis of the antenna. Implementations must not block.
type Mover interface {
	AngleNow() float64
	AngleTarget() float64
	SetAngleTarget(angle float64)
	// IsReady reports that the axis has stopped at its target.
	IsReady() bool
	Stop()
	// Limits returns the hard mechanical limits of the axis.
	Limits() (min, max float64)
}

// TelemetrySource delivers link-quality readings. Poll must not block; it
// returns signal.Lost when there is no sample for this tick.
type TelemetrySource interface {
	Poll() signal.Vector
}
