// Package diagram records signal readings taken during one angular sweep
// and locates the plateau and peak the antenna should be centered on.
//
//	                      bisector by diff
//	                      |   bisector by max
//	                      v   v
//	           ___________/```\_______
//	          /           ^   ^       \  <- min diff
//	 ________/            |   |        \__________
//	         ^ max diff   left/right max
package diagram

import "gonum.org/v1/gonum/floats"

// Peak is an inclusive run of value indices holding the maximum value.
type Peak struct {
	Left, Right int
}

// Indices is the result of analyzing one Series.
type Indices struct {
	// MaxDiff is the value index where the largest rise ends (last one
	// wins). MinDiff is the value index just before the largest drop (first
	// one wins). Both are -1 when no plateau brackets a maximum.
	MaxDiff, MinDiff int
	// Plateau is true when a maximum lies inside [MaxDiff, MinDiff].
	Plateau bool
	// LeftMax and RightMax delimit the chosen run of maximum values.
	LeftMax, RightMax  int
	MinValue, MaxValue float64
	Peaks              []Peak
}

// Series is the record of one metric along a sweep.
type Series struct {
	Value []float64
	// Diff and Gradient have one synthetic entry on each side:
	// Diff[0] = +0.5 and Diff[len(Value)] = -0.5, so that a rising and a
	// falling edge always exist. Diff[i] = Value[i]-Value[i-1] otherwise.
	Diff     []float64
	Gradient []int
}

func (s *Series) Len() int {
	return len(s.Value)
}

func (s *Series) Append(v float64) {
	s.Value = append(s.Value, v)
}

func (s *Series) Clear() {
	s.Value = s.Value[:0]
	s.Diff = s.Diff[:0]
	s.Gradient = s.Gradient[:0]
}

func (s *Series) remove(i int) {
	s.Value = append(s.Value[:i], s.Value[i+1:]...)
	s.Diff = s.Diff[:0]
	s.Gradient = s.Gradient[:0]
}

func sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

// ComputeDiffs rebuilds Diff and Gradient from Value.
func (s *Series) ComputeDiffs() {
	s.Diff = append(s.Diff[:0], 0.5)
	s.Gradient = append(s.Gradient[:0], 1)
	for i := 1; i < len(s.Value); i++ {
		d := s.Value[i] - s.Value[i-1]
		s.Diff = append(s.Diff, d)
		s.Gradient = append(s.Gradient, sign(d))
	}
	s.Diff = append(s.Diff, -0.5)
	s.Gradient = append(s.Gradient, -1)
}

// flatRamp reports a (0, g, g, 0) gradient window starting at i.
func (s *Series) flatRamp(i int) bool {
	g := s.Gradient
	return g[i] == 0 && g[i+1] != 0 && g[i+1] == g[i+2] && g[i+3] == 0
}

func indexOf(values []float64, x float64, from, to int) int {
	for i := from; i < to && i < len(values); i++ {
		if values[i] == x {
			return i
		}
	}
	return -1
}

// ComputeIndices locates the plateau bracket and the maximum runs.
func (s *Series) ComputeIndices() Indices {
	idx := Indices{MaxDiff: -1, MinDiff: -1, LeftMax: -1, RightMax: -1}
	n := len(s.Value)
	if n == 0 {
		return idx
	}
	if len(s.Diff) != n+1 {
		s.ComputeDiffs()
	}

	maxDiff := floats.Max(s.Diff)
	for i, d := range s.Diff {
		if d == maxDiff {
			idx.MaxDiff = i
		}
	}
	minDiff := floats.Min(s.Diff)
	for i, d := range s.Diff {
		if d == minDiff {
			// Diff is shifted by the leading synthetic entry.
			idx.MinDiff = i - 1
			break
		}
	}

	idx.MinValue = floats.Min(s.Value)
	idx.MaxValue = floats.Max(s.Value)
	for i := 0; i < n; i++ {
		if s.Value[i] != idx.MaxValue {
			continue
		}
		p := Peak{Left: i, Right: i}
		for p.Right < n-1 && s.Value[p.Right+1] == idx.MaxValue {
			p.Right++
		}
		idx.Peaks = append(idx.Peaks, p)
		i = p.Right
	}

	left := -1
	switch {
	case idx.MaxDiff < idx.MinDiff:
		left = indexOf(s.Value, idx.MaxValue, idx.MaxDiff, idx.MinDiff)
	case idx.MaxDiff == idx.MinDiff:
		left = indexOf(s.Value, idx.MaxValue, idx.MaxDiff, idx.MinDiff+1)
	}
	if left >= 0 {
		idx.Plateau = true
		idx.LeftMax, idx.RightMax = left, left
		for idx.RightMax < n-1 && s.Value[idx.RightMax+1] == idx.MaxValue {
			idx.RightMax++
		}
		return idx
	}

	// No maximum inside the bracket: fall back to the middle peak.
	idx.MaxDiff, idx.MinDiff = -1, -1
	l := len(idx.Peaks)
	p := idx.Peaks[l/2+l%2-1]
	idx.LeftMax, idx.RightMax = p.Left, p.Right
	return idx
}
