package track

import "github.com/w1xm/linktrack/signal"

// sector sweeps the whole soft range of ax looking for the global maximum.
//
//	0  reset, choose direction
//	2  target the edge ahead
//	3  wait for the edge, reverse for a second pass
//	5  go to the best angle
//	8  hand over, or offset the elevation and scan again
func (c *Controller) sector(ax *Axis, v signal.Vector) error {
	a := ax.angle()
	ax.seeStart(a, v)

	switch ax.State {
	case 0:
		c.sectorPasses = 0
		switch {
		case a >= ax.MaxSearch:
			ax.Dir = -1
			c.sectorPasses = 1
		case a <= ax.MinSearch:
			ax.Dir = 1
			c.sectorPasses = 1
		case ax.MaxSearch-a >= a-ax.MinSearch:
			ax.Dir = 1
		default:
			ax.Dir = -1
		}
		c.best = v
		if v.Empty() {
			ax.Best = OptAngle{}
			ax.Begin = OptAngle{}
			if c.mode == SectorAzimuth {
				c.Elevation.target(0)
			}
		} else {
			ax.Best = Some(a)
			ax.Begin = Some(a)
		}
		ax.Start = Some(a)
		ax.ValueStart = v
		ax.State = 2

	case 2:
		ax.targetEdge()
		ax.State = 3

	case 3:
		if !ax.Mover.IsReady() && !ax.atEdge(a) {
			return nil
		}
		ax.Mover.Stop()
		if !ax.Begin.Valid && !v.Empty() {
			// The peer appeared during the sweep: cover the full sector
			// again from here.
			ax.Begin = Some(a)
			c.sectorPasses = 0
		}
		c.sectorPasses++
		switch {
		case c.sectorPasses < 2:
			ax.reverse()
			ax.State = 2
		case ax.Best.Valid:
			ax.target(ax.Best.Deg)
			ax.State = 5
		default:
			ax.State = 8
		}

	case 5:
		if ax.Best.Valid && ax.Best.Deg != ax.Mover.AngleTarget() {
			ax.target(ax.Best.Deg)
		}
		if ax.Mover.IsReady() {
			ax.Mover.Stop()
			ax.State = 8
		}

	case 8:
		ax.Mover.Stop()
		Logf("%v: start %v best %v %v", c.mode, ax.Start, ax.Best, c.best)
		switch {
		case ax.Best.Valid && c.mode == SectorAzimuth:
			c.sectorRetry = 0
			c.setMode(SectorElevation)
		case ax.Best.Valid && !c.Azimuth.Best.Valid:
			// First seen while sweeping elevation.
			c.setMode(SectorAzimuth)
		case ax.Best.Valid:
			c.startTracking()
		case c.mode == SectorAzimuth:
			c.Elevation.target(c.nextSectorElevation())
			ax.reverse()
			c.sectorPasses = 1
			ax.State = 2
		default:
			c.Elevation.target(0)
			c.setMode(SectorAzimuth)
		}

	default:
		return c.violation(ax)
	}
	return nil
}

// nextSectorElevation steps through the elevations tried when an azimuth
// scan finds nothing: the last best elevation, the horizon, then one
// beamwidth above and below it.
func (c *Controller) nextSectorElevation() float64 {
	offsets := make([]float64, 0, 4)
	if c.Elevation.Best.Valid {
		offsets = append(offsets, c.Elevation.Best.Deg)
	}
	offsets = append(offsets, 0, c.cfg.Beamwidth, -c.cfg.Beamwidth)
	el := offsets[c.sectorRetry%len(offsets)]
	c.sectorRetry++
	Logf("no signal in azimuth sector, elevation %.1f", el)
	return el
}
