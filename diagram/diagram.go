package diagram

import (
	"math"

	"github.com/w1xm/linktrack/signal"
)

// DefaultMinStep is the smallest angle change, in degrees, that records a
// new sample.
const DefaultMinStep = 0.5

// Diagram is the angle/signal record of one sweep on one axis.
type Diagram struct {
	MinStep float64

	angles []float64
	series [signal.NumMetrics]Series
}

func New(minStep float64) *Diagram {
	if minStep <= 0 {
		minStep = DefaultMinStep
	}
	return &Diagram{MinStep: minStep}
}

func (d *Diagram) Len() int {
	return len(d.angles)
}

// Angles returns the recorded angles. The slice is owned by d.
func (d *Diagram) Angles() []float64 {
	return d.angles
}

// Series returns the record for metric m.
func (d *Diagram) Series(m signal.MetricID) *Series {
	return &d.series[m]
}

func (d *Diagram) Clear() {
	d.angles = d.angles[:0]
	for i := range d.series {
		d.series[i].Clear()
	}
}

func (d *Diagram) at(i int) signal.Vector {
	vals := make([]float64, signal.NumMetrics)
	for _, m := range signal.Metrics {
		vals[m] = d.series[m].Value[i]
	}
	return signal.Of(vals...)
}

func (d *Diagram) push(angle float64, v signal.Vector) {
	d.angles = append(d.angles, angle)
	for _, m := range signal.Metrics {
		d.series[m].Append(v.Get(m))
	}
}

func (d *Diagram) remove(i int) {
	d.angles = append(d.angles[:i], d.angles[i+1:]...)
	for m := range d.series {
		d.series[m].remove(i)
	}
}

// Append records v at angle and reports whether the diagram changed.
// Empty readings and samples closer than MinStep to the previous one are
// dropped. When the last two samples already hold v, the last sample is
// moved to angle instead of growing the run.
func (d *Diagram) Append(angle float64, v signal.Vector) bool {
	if v.Empty() {
		return false
	}
	n := len(d.angles)
	if n < 2 {
		d.push(angle, v)
		return true
	}
	if math.Abs(d.angles[n-1]-angle) < d.MinStep {
		return false
	}
	last := d.at(n - 1)
	if v.Equal(last) && last.Equal(d.at(n-2)) {
		d.angles[n-1] = angle
		return true
	}
	d.push(angle, v)
	return true
}

// ComputeDiffs refreshes Diff and Gradient of every series.
func (d *Diagram) ComputeDiffs() {
	for i := range d.series {
		d.series[i].ComputeDiffs()
	}
}

// RemoveSameValues collapses each run of identical readings to its first
// and last sample.
func (d *Diagram) RemoveSameValues() {
	for i := 1; i < len(d.angles)-1; {
		cur := d.at(i)
		if cur.Equal(d.at(i-1)) && cur.Equal(d.at(i+1)) {
			d.remove(i)
			continue
		}
		i++
	}
}

// RemoveSameGradients drops the third sample of every window whose
// gradients read (0, g, g, 0) on all metrics at once.
func (d *Diagram) RemoveSameGradients() {
	for {
		d.ComputeDiffs()
		found := -1
		for i := 0; i < len(d.angles)-4; i++ {
			all := true
			for m := range d.series {
				if !d.series[m].flatRamp(i) {
					all = false
					break
				}
			}
			if all {
				found = i
				break
			}
		}
		if found < 0 {
			return
		}
		d.remove(found + 2)
	}
}

// Prune runs both reduction passes and leaves diffs up to date.
func (d *Diagram) Prune() {
	d.RemoveSameValues()
	d.RemoveSameGradients()
}

// Bisectors are the angles the sweep suggests as the peak center, averaged
// over all metrics and rounded to 0.1 degree.
type Bisectors struct {
	// Diff is the midpoint of the steepest rise and drop. It is only set
	// when every metric has a plateau.
	Diff    float64
	HasDiff bool
	// Max is the midpoint of the chosen run of maxima.
	Max float64
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

// Analyze computes the bisectors of the current record. It returns false
// if the diagram is empty.
func (d *Diagram) Analyze() (Bisectors, bool) {
	var b Bisectors
	if len(d.angles) == 0 {
		return b, false
	}
	d.ComputeDiffs()
	var sumDiff, sumMax float64
	b.HasDiff = true
	for m := range d.series {
		idx := d.series[m].ComputeIndices()
		if idx.Plateau && idx.MaxDiff >= 0 && idx.MinDiff >= 0 {
			sumDiff += d.angles[idx.MaxDiff] + d.angles[idx.MinDiff]
		} else {
			b.HasDiff = false
		}
		sumMax += d.angles[idx.LeftMax] + d.angles[idx.RightMax]
	}
	div := 2 * float64(signal.NumMetrics)
	if b.HasDiff {
		b.Diff = round1(sumDiff / div)
	}
	b.Max = round1(sumMax / div)
	return b, true
}
