package track

import (
	"math"

	"github.com/w1xm/linktrack/signal"
)

type circlePoint struct {
	az, el float64
	value  signal.Vector
}

// circleState is the conical scan around the aim point. Its FSM state is
// kept on the azimuth axis.
type circleState struct {
	az, el float64
	points []circlePoint
	// i is the point being visited and pos the point a revolution starts
	// and ends at.
	i, pos int
}

func (s *circleState) layout(az, el, radius float64, n int) {
	s.az, s.el = az, el
	if len(s.points) != n {
		s.points = make([]circlePoint, n)
	}
	for i := range s.points {
		rad := 2 * math.Pi * float64(i) / float64(n)
		s.points[i] = circlePoint{
			az: round1(az + radius*math.Cos(rad)),
			el: round1(el - radius*math.Sin(rad)),
		}
	}
}

// asymmetry returns the point whose reading beats its opposite by the
// largest margin, or -1 when no point is better than its opposite.
func (s *circleState) asymmetry() int {
	half := len(s.points) / 2
	best, bestJ := 0.0, -1
	for j := range s.points {
		d := signal.WorstDelta(s.points[j].value, s.points[(j+half)%len(s.points)].value)
		if d > best {
			best, bestJ = d, j
		}
	}
	return bestJ
}

// track runs the conical scan. Both movers visit the points in turn; after
// a full revolution the circle moves onto its strongest point if that point
// beats the one opposite.
//
//	0  lay out the circle around the current position
//	1  sample each point
func (c *Controller) track(v signal.Vector) error {
	ax, s := c.Azimuth, &c.circle
	switch ax.State {
	case 0:
		s.layout(c.Azimuth.angle(), c.Elevation.angle(), c.cfg.CircleRadius, c.cfg.CirclePoints)
		s.i, s.pos = 0, 0
		c.aimCircle()
		ax.State = 1

	case 1:
		if !c.Azimuth.Mover.IsReady() || !c.Elevation.Mover.IsReady() {
			return nil
		}
		s.points[s.i].value = v
		s.i = (s.i + 1) % len(s.points)
		if s.i == s.pos {
			if j := s.asymmetry(); j >= 0 {
				p := s.points[j]
				Logf("circle: center %.1f/%.1f -> %.1f/%.1f", s.az, s.el, p.az, p.el)
				s.layout(p.az, p.el, c.cfg.CircleRadius, len(s.points))
				c.Azimuth.Start, c.Elevation.Start = Some(p.az), Some(p.el)
				s.i, s.pos = j, j
			}
		}
		c.aimCircle()

	default:
		return c.violation(ax)
	}
	return nil
}

func (c *Controller) aimCircle() {
	p := c.circle.points[c.circle.i]
	c.Azimuth.target(p.az)
	c.Elevation.target(p.el)
}

// CircleCenter returns the current center of the conical scan.
func (c *Controller) CircleCenter() (az, el float64) {
	return c.circle.az, c.circle.el
}
