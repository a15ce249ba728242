package signal

import "gonum.org/v1/gonum/floats"

// DefaultFilterLength is the number of readings averaged by a Filter.
const DefaultFilterLength = 20

// MovingAverage is a fixed-length ring of readings.
type MovingAverage struct {
	values []float64
	i      int
	full   bool
}

func NewMovingAverage(length int) *MovingAverage {
	if length <= 0 {
		length = DefaultFilterLength
	}
	return &MovingAverage{values: make([]float64, length)}
}

func (f *MovingAverage) Clear() {
	for i := range f.values {
		f.values[i] = 0
	}
	f.i = 0
	f.full = false
}

func (f *MovingAverage) Update(x float64) {
	f.values[f.i] = x
	f.i++
	if f.i >= len(f.values) {
		f.i = 0
		f.full = true
	}
}

// Full reports whether the ring has wrapped at least once.
func (f *MovingAverage) Full() bool {
	return f.full
}

// Average is the mean of the stored readings, or 0 when there are none.
func (f *MovingAverage) Average() float64 {
	n := f.i
	if f.full {
		n = len(f.values)
	}
	if n == 0 {
		return 0
	}
	return floats.Sum(f.values[:n]) / float64(n)
}

// Filter averages whole vectors, one MovingAverage per metric. Empty
// vectors are ignored.
type Filter struct {
	metrics [NumMetrics]*MovingAverage
	n       int
}

func NewFilter(length int) *Filter {
	f := &Filter{}
	for i := range f.metrics {
		f.metrics[i] = NewMovingAverage(length)
	}
	return f
}

func (f *Filter) Clear() {
	for _, m := range f.metrics {
		m.Clear()
	}
	f.n = 0
}

func (f *Filter) Append(v Vector) {
	if v.Empty() {
		return
	}
	for _, m := range Metrics {
		f.metrics[m].Update(v.values[m])
	}
	f.n++
}

func (f *Filter) Full() bool {
	return f.metrics[0].Full()
}

// Average returns the averaged vector, or Lost if nothing was appended
// since the last Clear.
func (f *Filter) Average() Vector {
	if f.n == 0 {
		return Lost
	}
	var v Vector
	for _, m := range Metrics {
		v.values[m] = f.metrics[m].Average()
	}
	v.valid = true
	return v
}
