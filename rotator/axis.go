package rotator

import (
	"math"
	"sync"
)

// DefaultTolerance is how close, in degrees, an axis must be to its target
// to count as arrived.
const DefaultTolerance = 0.2

// Wrap maps angle into [min, min+360). Limits spanning less than a full
// turn still wrap on the full circle so a reported 350 reads as -10 on an
// axis limited to [-180, 180].
func Wrap(angle, min float64) float64 {
	angle = math.Mod(angle-min, 360)
	if angle < 0 {
		angle += 360
	}
	return angle + min
}

// Axis drives one axis of a Rotator and tracks its reported position. It
// is safe for concurrent use: Update is called from the status callback
// while the tracking loop reads the position.
type Axis struct {
	Name      string
	Min, Max  float64
	Tolerance float64

	wrap     bool
	position func(Status) float64
	moving   func(Status) bool
	set      func(float64)
	stop     func()

	mu      sync.Mutex
	pos     float64
	target  float64
	busy    bool
	known   bool
	stopped bool
}

// Azimuth returns the azimuth axis of r limited to [min, max]. Reported
// positions wrap into the limit window.
func Azimuth(r Rotator, min, max float64) *Axis {
	return &Axis{
		Name:      "azimuth",
		Min:       min,
		Max:       max,
		Tolerance: DefaultTolerance,
		wrap:      true,
		position:  Status.AzimuthPosition,
		moving:    Status.AzimuthMoving,
		set:       r.SetAzimuthPosition,
		stop:      r.StopAzimuth,
	}
}

// Elevation returns the elevation axis of r limited to [min, max].
func Elevation(r Rotator, min, max float64) *Axis {
	return &Axis{
		Name:      "elevation",
		Min:       min,
		Max:       max,
		Tolerance: DefaultTolerance,
		position:  Status.ElevationPosition,
		moving:    Status.ElevationMoving,
		set:       r.SetElevationPosition,
		stop:      r.StopElevation,
	}
}

// Update records a status report. Until the first target is set, and after
// Stop, the target follows the reported position.
func (a *Axis) Update(status Status) {
	pos := a.position(status)
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.wrap {
		pos = a.unwrap(pos)
	}
	a.pos = pos
	a.busy = a.moving(status)
	if !a.known || a.stopped {
		a.target = pos
		a.known = true
	}
}

// unwrap maps a reported azimuth into the limits. Where the limits cover
// the same heading twice, as -180 and 180 do, the reading nearer the target
// wins. Called with mu held.
func (a *Axis) unwrap(pos float64) float64 {
	pos = Wrap(pos, a.Min)
	if alt := pos + 360; alt <= a.Max && math.Abs(alt-a.target) < math.Abs(pos-a.target) {
		return alt
	}
	return pos
}

// Known reports whether a status has been received.
func (a *Axis) Known() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.known
}

func (a *Axis) AngleNow() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pos
}

func (a *Axis) AngleTarget() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.target
}

// SetAngleTarget clamps angle to the limits and commands the rotator.
// Repeating the current target sends nothing.
func (a *Axis) SetAngleTarget(angle float64) {
	angle = math.Min(math.Max(angle, a.Min), a.Max)
	a.mu.Lock()
	same := a.target == angle && a.known && !a.stopped
	a.target = angle
	a.known = true
	a.stopped = false
	a.mu.Unlock()
	if !same {
		a.set(angle)
	}
}

// IsReady reports that the rotator is idle within Tolerance of the target.
func (a *Axis) IsReady() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	d := a.pos - a.target
	if a.wrap {
		d = math.Remainder(d, 360)
	}
	return a.known && !a.busy && math.Abs(d) <= a.Tolerance
}

// Stop halts the axis and makes the current position the target.
func (a *Axis) Stop() {
	a.mu.Lock()
	a.target = a.pos
	a.stopped = true
	a.mu.Unlock()
	a.stop()
}

func (a *Axis) Limits() (min, max float64) {
	return a.Min, a.Max
}
