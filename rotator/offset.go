package rotator

import "sync"

// Offset corrects a mount whose encoders are not aligned with true north
// and the horizon. The offsets are added to reported positions and
// subtracted from commanded ones.
type Offset struct {
	Rotator

	mu sync.Mutex
	// last commanded positions, without offset
	az, el       float64
	azSet, elSet bool
	offsetAz     float64
	offsetEl     float64
}

type offsetStatus struct {
	Status
	az, el float64
}

func (s offsetStatus) AzimuthPosition() float64   { return s.az }
func (s offsetStatus) ElevationPosition() float64 { return s.el }
func (s offsetStatus) Clone() Status              { return s }

func add(angle, offset float64) float64 {
	return Wrap(angle+offset, 0)
}

// NewOffset wraps r. Install the returned Offset's Callback in place of
// the rotator's status callback.
func NewOffset(r Rotator, offsetAz, offsetEl float64) *Offset {
	return &Offset{Rotator: r, offsetAz: offsetAz, offsetEl: offsetEl}
}

// Callback converts raw statuses before passing them to cb.
func (o *Offset) Callback(cb StatusCallback) StatusCallback {
	return func(status Status) {
		o.mu.Lock()
		s := offsetStatus{
			Status: status,
			az:     add(status.AzimuthPosition(), o.offsetAz),
			el:     status.ElevationPosition() + o.offsetEl,
		}
		o.mu.Unlock()
		cb(s)
	}
}

// SetRotator installs the wrapped rotator once it is connected.
func (o *Offset) SetRotator(r Rotator) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Rotator = r
}

func (o *Offset) SetAzimuthOffset(offset float64) {
	o.mu.Lock()
	o.offsetAz = offset
	do, az := o.azSet, o.az
	o.mu.Unlock()
	if do {
		o.SetAzimuthPosition(az)
	}
}

func (o *Offset) SetElevationOffset(offset float64) {
	o.mu.Lock()
	o.offsetEl = offset
	do, el := o.elSet, o.el
	o.mu.Unlock()
	if do {
		o.SetElevationPosition(el)
	}
}

func (o *Offset) SetAzimuthPosition(position float64) {
	o.mu.Lock()
	o.az, o.azSet = position, true
	raw := add(position, -o.offsetAz)
	r := o.Rotator
	o.mu.Unlock()
	r.SetAzimuthPosition(raw)
}

func (o *Offset) SetElevationPosition(position float64) {
	o.mu.Lock()
	o.el, o.elSet = position, true
	raw := position - o.offsetEl
	r := o.Rotator
	o.mu.Unlock()
	r.SetElevationPosition(raw)
}

func (o *Offset) Stop() {
	o.mu.Lock()
	o.azSet, o.elSet = false, false
	o.mu.Unlock()
	o.Rotator.Stop()
}

func (o *Offset) StopAzimuth() {
	o.mu.Lock()
	o.azSet = false
	o.mu.Unlock()
	o.Rotator.StopAzimuth()
}

func (o *Offset) StopElevation() {
	o.mu.Lock()
	o.elSet = false
	o.mu.Unlock()
	o.Rotator.StopElevation()
}
