package track

import "github.com/w1xm/linktrack/signal"

// escort nudges ax one beamwidth at a time and settles on the better end,
// alternating axes every cycle.
//
//	0  reset baseline
//	1  dwell
//	2  target one beamwidth ahead
//	3  move until the reading drops below baseline
//	5  go to the best angle or back to start
//	8  wait, then switch axis
func (c *Controller) escort(ax *Axis, v signal.Vector) error {
	a := ax.angle()
	ax.seeStart(a, v)

	switch ax.State {
	case 0:
		if v.Empty() {
			ax.Best = OptAngle{}
		} else {
			ax.Best = Some(a)
		}
		c.best = v
		ax.Start = Some(a)
		ax.ValueStart = v
		if ax.Dir == 0 {
			ax.Dir = 1
		}
		c.rest = c.cfg.EscortRest
		if c.rest > 0 {
			ax.State = 1
		} else {
			ax.State = 2
		}

	case 1:
		if c.rest--; c.rest <= 0 {
			ax.State = 2
		}

	case 2:
		ax.target(ax.Start.Deg + float64(ax.Dir)*c.cfg.Beamwidth)
		ax.State = 3

	case 3:
		if signal.Compare(v, ax.ValueStart) < 0 || ax.Mover.IsReady() || ax.atEdge(a) {
			ax.Mover.Stop()
			ax.State = 5
		}

	case 5:
		switch {
		case !ax.Best.Valid:
			ax.target(ax.Start.Deg)
			ax.reverse()
		case ax.Best.Deg > ax.Start.Deg:
			ax.target(ax.Best.Deg)
			ax.Dir = 1
		case ax.Best.Deg < ax.Start.Deg:
			ax.target(ax.Best.Deg)
			ax.Dir = -1
		default:
			ax.target(ax.Best.Deg)
			ax.reverse()
		}
		ax.State = 8

	case 8:
		if ax.Best.Valid && ax.Best.Deg != ax.Mover.AngleTarget() {
			ax.target(ax.Best.Deg)
		}
		if !ax.Mover.IsReady() {
			return nil
		}
		ax.Mover.Stop()
		if c.mode == EscortAzimuth {
			c.setMode(EscortElevation)
		} else {
			c.setMode(EscortAzimuth)
		}

	default:
		return c.violation(ax)
	}
	return nil
}
