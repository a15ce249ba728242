package track

import "github.com/w1xm/linktrack/signal"

// search refines ax to the middle of the plateau around the current
// position. The first half sweep runs outward until the level drops by
// LevelDifference, the second comes back across the start and records the
// diagram. The bisectors and the best raw sample are then measured with the
// filter settled and the best one wins.
//
//	0      reset
//	11     fill the filter at the start
//	12     target the edge ahead
//	1      lock on the current reading
//	2      first half sweep
//	3      return to the start
//	4      second half sweep, analyze
//	51-53  measure the bisector by diff
//	54-56  measure the bisector by max
//	57-59  measure the best sample, choose
//	6      wait, then hand over
func (c *Controller) search(ax *Axis, v signal.Vector) error {
	a := ax.angle()

	if v.Empty() {
		switch {
		case ax.locked && (ax.State == 2 || ax.State == 4):
			// A dropout after locking means the sweep has left the lobe.
			return c.searchEdge(ax, a, v)
		case needsReading(ax.State):
			return nil
		}
	} else {
		c.filter.Append(v)
		if ax.State == 3 || ax.State == 4 {
			c.diagram.Append(a, v)
		}
		ax.seeStart(a, v)
		if signal.Compare(v, ax.ValueBest) > 0 {
			ax.Best = Some(a)
			ax.ValueBest = v
		}
	}

	switch ax.State {
	case 0:
		ax.Start = Some(a)
		ax.ValueStart = v
		c.diagram.Clear()
		c.filter.Clear()
		ax.Plus, ax.Minus = OptAngle{}, OptAngle{}
		ax.BisectorDiff, ax.BisectorMax = OptAngle{}, OptAngle{}
		ax.AvgStart, ax.AvgBest = signal.Lost, signal.Lost
		ax.AvgBisectorDiff, ax.AvgBisectorMax = signal.Lost, signal.Lost
		ax.locked = false
		if ax.NextDir == 0 {
			ax.NextDir = 1
		}
		ax.Dir = ax.NextDir
		ax.NextDir = -ax.NextDir
		ax.State = 11

	case 11:
		if c.filter.Full() {
			ax.Start = Some(a)
			ax.ValueStart = v
			ax.AvgStart = c.filter.Average()
			ax.State = 12
		}

	case 12:
		ax.targetEdge()
		ax.State = 1

	case 1:
		ax.locked = true
		ax.Best = Some(a)
		ax.ValueBest = v
		ax.State = 2

	case 2, 4:
		if c.halfSweepDone(ax, a, v) {
			return c.searchEdge(ax, a, v)
		}

	case 3:
		a = round1(ax.Mover.AngleNow())
		if ax.Dir < 0 && (a <= ax.Start.Deg || a <= ax.MinSearch) ||
			ax.Dir > 0 && (a >= ax.Start.Deg || a >= ax.MaxSearch) ||
			ax.Mover.IsReady() {
			ax.State = 4
		}

	case 51:
		ax.target(ax.BisectorDiff.Deg)
		ax.State = 52
	case 52:
		c.settle(ax)
	case 53:
		if c.filter.Full() {
			ax.AvgBisectorDiff = c.filter.Average()
			ax.State = 54
		}

	case 54:
		ax.target(ax.BisectorMax.Deg)
		ax.State = 55
	case 55:
		c.settle(ax)
	case 56:
		if c.filter.Full() {
			ax.AvgBisectorMax = c.filter.Average()
			ax.State = 57
		}

	case 57:
		ax.target(ax.Best.Deg)
		ax.State = 58
	case 58:
		c.settle(ax)
	case 59:
		if c.filter.Full() {
			ax.AvgBest = c.filter.Average()
			ax.target(c.chooseCenter(ax))
			ax.State = 6
		}

	case 6:
		if !ax.Mover.IsReady() {
			return nil
		}
		Logf("%v: start %v best %v diff %v max %v -> %.1f", c.mode, ax.Start, ax.Best, ax.BisectorDiff, ax.BisectorMax, ax.angle())
		ax.State = 0
		if c.mode == SearchAzimuth {
			c.setMode(SearchElevation)
		} else {
			c.setTracker()
		}

	default:
		return c.violation(ax)
	}
	return nil
}

// needsReading reports the search states that act on the reading itself.
// The others only move the axis and run through dropouts.
func needsReading(state int) bool {
	switch state {
	case 0, 1, 2, 3, 4, 11, 53, 56, 59:
		return true
	}
	return false
}

func (c *Controller) halfSweepDone(ax *Axis, a float64, v signal.Vector) bool {
	return ax.locked && signal.WorstDelta(ax.ValueBest, v) >= c.cfg.LevelDifference ||
		ax.Mover.IsReady() ||
		ax.atEdge(a)
}

// searchEdge ends a half sweep. After the first one the axis turns back;
// after the second the diagram is analyzed and the measurements begin.
func (c *Controller) searchEdge(ax *Axis, a float64, v signal.Vector) error {
	ax.Mover.Stop()
	ax.setEdge(a, v)
	switch ax.State {
	case 2:
		c.diagram.Clear()
		ax.reverse()
		ax.targetEdge()
		ax.State = 3
		return nil
	case 4:
	default:
		return c.violation(ax)
	}

	if ax.ValueBest.Empty() {
		ax.target(ax.Start.Deg)
		ax.State = 6
		return nil
	}
	c.diagram.Prune()
	b, ok := c.diagram.Analyze()
	switch {
	case !ok:
		ax.State = 57
	case b.HasDiff:
		ax.BisectorDiff = Some(b.Diff)
		ax.BisectorMax = Some(b.Max)
		ax.State = 51
	default:
		ax.BisectorMax = Some(b.Max)
		ax.State = 54
	}
	return nil
}

// settle waits for the mover and restarts the filter at the new position.
func (c *Controller) settle(ax *Axis) {
	if ax.Mover.IsReady() {
		c.filter.Clear()
		ax.State++
	}
}

// chooseCenter picks the measured position with the best averaged reading.
// Candidates earlier in the list win ties.
func (c *Controller) chooseCenter(ax *Axis) float64 {
	candidates := []struct {
		angle OptAngle
		avg   signal.Vector
	}{
		{ax.BisectorMax, ax.AvgBisectorMax},
		{ax.BisectorDiff, ax.AvgBisectorDiff},
		{ax.Start, ax.AvgStart},
		{ax.Best, ax.AvgBest},
	}
	var (
		angle = ax.Start.Deg
		avg   signal.Vector
	)
	for _, cand := range candidates {
		if !cand.angle.Valid || cand.avg.Empty() {
			continue
		}
		if avg.Empty() || signal.Compare(cand.avg, avg) > 0 {
			angle, avg = cand.angle.Deg, cand.avg
		}
	}
	return angle
}
