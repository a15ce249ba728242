package track

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/w1xm/linktrack/signal"
)

// OptAngle is an angle in degrees that may be unset. The zero value is
// unset.
type OptAngle struct {
	Deg   float64
	Valid bool
}

func Some(deg float64) OptAngle {
	return OptAngle{Deg: deg, Valid: true}
}

func (a OptAngle) String() string {
	if !a.Valid {
		return "-"
	}
	return fmt.Sprintf("%.1f", a.Deg)
}

func (a OptAngle) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(a.Deg)
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

// Axis is the search bookkeeping of one antenna axis.
type Axis struct {
	Name  string
	Mover Mover

	// MinSearch and MaxSearch are the soft bounds of sweeps, always inside
	// the mover's hard limits.
	MinSearch, MaxSearch float64

	Start, Best, Plus, Minus  OptAngle
	BisectorDiff, BisectorMax OptAngle
	// Begin is where a sector scan first saw the signal.
	Begin OptAngle

	// Dir is the current sweep direction and NextDir the direction of the
	// next search, both +1 or -1.
	Dir, NextDir int
	State        int
	// locked is set once a search sweep starts from a reading, arming the
	// level-difference stop.
	locked bool

	ValueStart, ValueBest, ValuePlus, ValueMinus signal.Vector
	AvgStart, AvgBest                            signal.Vector
	AvgBisectorDiff, AvgBisectorMax              signal.Vector
}

func newAxis(name string, m Mover, b Bounds) (*Axis, error) {
	lo, hi := m.Limits()
	if lo >= hi {
		return nil, fmt.Errorf("%s: invalid hard limits [%g, %g]", name, lo, hi)
	}
	ax := &Axis{Name: name, Mover: m, MinSearch: lo, MaxSearch: hi, Dir: 1, NextDir: 1}
	if b.Min != 0 || b.Max != 0 {
		ax.MinSearch = math.Max(b.Min, lo)
		ax.MaxSearch = math.Min(b.Max, hi)
	}
	if ax.MinSearch >= ax.MaxSearch {
		return nil, fmt.Errorf("%s: empty search bounds [%g, %g] within limits [%g, %g]", name, b.Min, b.Max, lo, hi)
	}
	return ax, nil
}

// angle is the current position rounded to 0.1 degree.
func (ax *Axis) angle() float64 {
	return round1(ax.Mover.AngleNow())
}

// target clamps angle to the soft bounds and hands it to the mover.
func (ax *Axis) target(angle float64) {
	ax.Mover.SetAngleTarget(math.Min(math.Max(angle, ax.MinSearch), ax.MaxSearch))
}

// point is target for manual pointing, which may use the whole hard range.
func (ax *Axis) point(angle float64) {
	lo, hi := ax.Mover.Limits()
	ax.Mover.SetAngleTarget(math.Min(math.Max(angle, lo), hi))
}

// targetEdge sends the axis to the soft bound in its sweep direction.
func (ax *Axis) targetEdge() {
	if ax.Dir > 0 {
		ax.target(ax.MaxSearch)
	} else {
		ax.target(ax.MinSearch)
	}
}

// atEdge reports whether a is at or past the soft bound ahead.
func (ax *Axis) atEdge(a float64) bool {
	return ax.Dir > 0 && a >= ax.MaxSearch || ax.Dir < 0 && a <= ax.MinSearch
}

// seeStart adopts the first reading of an episode as its start.
func (ax *Axis) seeStart(a float64, v signal.Vector) {
	if !v.Empty() && ax.ValueStart.Empty() {
		ax.ValueStart = v
		ax.Start = Some(a)
	}
}

// setEdge records where a half sweep ended.
func (ax *Axis) setEdge(a float64, v signal.Vector) {
	if ax.Dir > 0 {
		ax.Plus, ax.ValuePlus = Some(a), v
	} else {
		ax.Minus, ax.ValueMinus = Some(a), v
	}
}

func (ax *Axis) reverse() {
	ax.Dir = -ax.Dir
	if ax.Dir == 0 {
		ax.Dir = 1
	}
}

// AxisStatus is a snapshot of an Axis for display.
type AxisStatus struct {
	Angle        float64  `json:"angle"`
	Target       float64  `json:"target"`
	Ready        bool     `json:"ready"`
	State        int      `json:"state"`
	Dir          int      `json:"dir"`
	MinSearch    float64  `json:"min_search"`
	MaxSearch    float64  `json:"max_search"`
	Start        OptAngle `json:"start"`
	Best         OptAngle `json:"best"`
	BisectorDiff OptAngle `json:"bisector_diff"`
	BisectorMax  OptAngle `json:"bisector_max"`
}

func (ax *Axis) status() AxisStatus {
	return AxisStatus{
		Angle:        ax.Mover.AngleNow(),
		Target:       ax.Mover.AngleTarget(),
		Ready:        ax.Mover.IsReady(),
		State:        ax.State,
		Dir:          ax.Dir,
		MinSearch:    ax.MinSearch,
		MaxSearch:    ax.MaxSearch,
		Start:        ax.Start,
		Best:         ax.Best,
		BisectorDiff: ax.BisectorDiff,
		BisectorMax:  ax.BisectorMax,
	}
}
