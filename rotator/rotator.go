// Package rotator adapts two-axis antenna positioners to the per-axis
// movers driven by the tracking engine.
package rotator

// Rotator is a two-axis positioner. Commands are fire-and-forget; progress
// is reported through a StatusCallback.
type Rotator interface {
	Stop()
	StopAzimuth()
	StopElevation()
	SetAzimuthPosition(angle float64)
	SetElevationPosition(angle float64)
	SetAzimuthVelocity(angle float64)
	SetElevationVelocity(angle float64)
}

type StatusCallback func(status Status)

type Status interface {
	AzimuthPosition() float64
	ElevationPosition() float64
	// AzimuthMoving and ElevationMoving report a commanded move in progress.
	AzimuthMoving() bool
	ElevationMoving() bool

	Clone() Status
}

type Offsetter interface {
	SetAzimuthOffset(offset float64)
	SetElevationOffset(offset float64)
}

// Fanout returns a callback that hands every status to each of cbs in
// order. Nil callbacks are skipped.
func Fanout(cbs ...StatusCallback) StatusCallback {
	return func(status Status) {
		for _, cb := range cbs {
			if cb != nil {
				cb(status)
			}
		}
	}
}
