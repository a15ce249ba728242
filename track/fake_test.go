package track

import (
	"math"

	"github.com/w1xm/linktrack/signal"
)

// fakeMover moves at most speed degrees per step toward its target. A
// non-zero overshoot makes Stop coast that far on in the direction of
// travel before the mover settles.
type fakeMover struct {
	angle, target float64
	speed         float64
	min, max      float64

	overshoot       float64
	coast, coastDir float64
}

func newFakeMover(angle, speed, min, max float64) *fakeMover {
	return &fakeMover{angle: angle, target: angle, speed: speed, min: min, max: max}
}

func (m *fakeMover) AngleNow() float64          { return m.angle }
func (m *fakeMover) AngleTarget() float64       { return m.target }
func (m *fakeMover) SetAngleTarget(a float64)   { m.target = a }
func (m *fakeMover) IsReady() bool              { return m.coast == 0 && m.angle == m.target }
func (m *fakeMover) Limits() (float64, float64) { return m.min, m.max }

func (m *fakeMover) Stop() {
	if m.overshoot == 0 || m.angle == m.target {
		m.target = m.angle
		return
	}
	m.coastDir = math.Copysign(1, m.target-m.angle)
	m.coast = m.overshoot
	m.target = m.angle + m.coastDir*m.overshoot
}

func (m *fakeMover) step() {
	if m.coast > 0 {
		d := math.Min(m.speed, m.coast)
		m.angle += m.coastDir * d
		m.coast -= d
		return
	}
	d := m.target - m.angle
	if math.Abs(d) <= m.speed {
		m.angle = m.target
		return
	}
	if d > 0 {
		m.angle += m.speed
	} else {
		m.angle -= m.speed
	}
}

// script replays readings and repeats the last one.
type script struct {
	values []signal.Vector
	i      int
}

func (s *script) Poll() signal.Vector {
	if len(s.values) == 0 {
		return signal.Lost
	}
	v := s.values[s.i]
	if s.i < len(s.values)-1 {
		s.i++
	}
	return v
}

// beam is a peer at az, el seen through a lobe losing 3 dB at half the
// beamwidth. Readings below -90 dBm are lost.
type beam struct {
	azimuth, elevation *fakeMover
	az, el             float64
	beamwidth          float64
}

func (b *beam) Poll() signal.Vector {
	daz := b.azimuth.angle - b.az
	del := b.elevation.angle - b.el
	half := b.beamwidth / 2
	level := -40 - 3*(daz*daz+del*del)/(half*half)
	if level < -90 {
		return signal.Lost
	}
	return signal.Of(level, level+90)
}

type rig struct {
	c                  *Controller
	azimuth, elevation *fakeMover
}

func (r *rig) step() error {
	if err := r.c.Tick(); err != nil {
		return err
	}
	r.azimuth.step()
	r.elevation.step()
	return nil
}

func init() {
	SetLogger(nil)
}
