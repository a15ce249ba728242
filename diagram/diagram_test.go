package diagram

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/w1xm/linktrack/signal"
)

func series(values ...float64) *Series {
	s := &Series{}
	for _, v := range values {
		s.Append(v)
	}
	s.ComputeDiffs()
	return s
}

func TestComputeIndices(t *testing.T) {
	for _, test := range []struct {
		name   string
		values []float64
		want   Indices
	}{
		{
			name:   "plateau",
			values: []float64{1, 1, 2, 5, 5, 5, 3, 1, 1},
			want: Indices{
				MaxDiff: 3, MinDiff: 5, Plateau: true,
				LeftMax: 3, RightMax: 5,
				MinValue: 1, MaxValue: 5,
				Peaks: []Peak{{3, 5}},
			},
		},
		{
			name:   "rising",
			values: []float64{1, 2, 3},
			want: Indices{
				MaxDiff: 2, MinDiff: 2, Plateau: true,
				LeftMax: 2, RightMax: 2,
				MinValue: 1, MaxValue: 3,
				Peaks: []Peak{{2, 2}},
			},
		},
		{
			name:   "valley",
			values: []float64{5, 1, 1, 5},
			want: Indices{
				MaxDiff: -1, MinDiff: -1,
				LeftMax: 0, RightMax: 0,
				MinValue: 1, MaxValue: 5,
				Peaks: []Peak{{0, 0}, {3, 3}},
			},
		},
		{
			name:   "single",
			values: []float64{-70},
			want: Indices{
				MaxDiff: 0, MinDiff: 0, Plateau: true,
				LeftMax: 0, RightMax: 0,
				MinValue: -70, MaxValue: -70,
				Peaks: []Peak{{0, 0}},
			},
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			s := series(test.values...)
			if len(s.Diff) != len(test.values)+1 {
				t.Errorf("len(Diff) = %d, want %d", len(s.Diff), len(test.values)+1)
			}
			got := s.ComputeIndices()
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("unexpected indices: got(-)/want(+):\n%s", diff)
			}
			if again := s.ComputeIndices(); !cmp.Equal(got, again) {
				t.Errorf("ComputeIndices not idempotent: %+v then %+v", got, again)
			}
		})
	}
}

func TestEmptySeries(t *testing.T) {
	var s Series
	idx := s.ComputeIndices()
	if idx.Plateau || idx.LeftMax != -1 || len(idx.Peaks) != 0 {
		t.Errorf("unexpected indices for empty series: %+v", idx)
	}
}

func record(d *Diagram, values ...float64) {
	for i, v := range values {
		d.Append(float64(i), signal.Of(v, v/2))
	}
}

func TestAppend(t *testing.T) {
	d := New(0)
	if d.Append(0, signal.Lost) {
		t.Errorf("empty reading appended")
	}
	d.Append(0, signal.Of(-60, 20))
	d.Append(0.2, signal.Of(-61, 20))
	d.Append(0.4, signal.Of(-62, 20))
	if d.Len() != 2 {
		t.Fatalf("len = %d, want 2", d.Len())
	}
	if d.Append(0.6, signal.Of(-59, 20)) {
		t.Errorf("sample within MinStep appended")
	}
	d.Append(1.5, signal.Of(-61, 20))
	d.Append(2.5, signal.Of(-61, 20))
	if d.Len() != 3 {
		t.Fatalf("len = %d, want 3", d.Len())
	}
	if diff := cmp.Diff([]float64{0, 0.2, 2.5}, d.Angles()); diff != "" {
		t.Errorf("unexpected angles: got(-)/want(+):\n%s", diff)
	}
}

func TestAnalyzePlateau(t *testing.T) {
	d := New(0.5)
	record(d, 1, 1, 2, 5, 5, 5, 3, 1, 1)
	// The third 5 slides onto angle 5 instead of growing the run.
	if diff := cmp.Diff([]float64{0, 1, 2, 3, 5, 6, 7, 8}, d.Angles()); diff != "" {
		t.Errorf("unexpected angles: got(-)/want(+):\n%s", diff)
	}
	b, ok := d.Analyze()
	if !ok {
		t.Fatal("Analyze failed")
	}
	if diff := cmp.Diff(Bisectors{Diff: 4, HasDiff: true, Max: 4}, b); diff != "" {
		t.Errorf("unexpected bisectors: got(-)/want(+):\n%s", diff)
	}
}

func TestAnalyzeFallback(t *testing.T) {
	d := New(0.5)
	record(d, 5, 1, 1, 5)
	b, ok := d.Analyze()
	if !ok {
		t.Fatal("Analyze failed")
	}
	if b.HasDiff {
		t.Errorf("bisector by diff set without a plateau: %+v", b)
	}
	if b.Max != 0 {
		t.Errorf("Max = %g, want 0", b.Max)
	}
	if _, ok := New(0).Analyze(); ok {
		t.Errorf("Analyze succeeded on empty diagram")
	}
}

func TestRemoveSameValues(t *testing.T) {
	d := &Diagram{MinStep: 0.1}
	for i, v := range []float64{1, 5, 5, 5, 5, 1} {
		d.push(float64(i), signal.Of(v, v))
	}
	d.RemoveSameValues()
	if diff := cmp.Diff([]float64{0, 1, 4, 5}, d.Angles()); diff != "" {
		t.Errorf("unexpected angles: got(-)/want(+):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{1, 5, 5, 1}, d.Series(signal.SignalStrength).Value); diff != "" {
		t.Errorf("unexpected values: got(-)/want(+):\n%s", diff)
	}
	b, _ := d.Analyze()
	if b.Max != 2.5 {
		t.Errorf("Max = %g, want 2.5", b.Max)
	}
}

func TestRemoveSameGradients(t *testing.T) {
	d := &Diagram{MinStep: 0.1}
	for i, v := range []float64{0, 0, 1, 2, 2, 0, 0, 0} {
		d.push(float64(i), signal.Of(v, v))
	}
	d.RemoveSameGradients()
	if diff := cmp.Diff([]float64{0, 1, 2, 4, 5, 6, 7}, d.Angles()); diff != "" {
		t.Errorf("unexpected angles: got(-)/want(+):\n%s", diff)
	}
	for _, m := range signal.Metrics {
		s := d.Series(m)
		if len(s.Diff) != s.Len()+1 {
			t.Errorf("%v: diffs stale after pruning", m)
		}
	}
}

func TestRemoveSameGradientsNeedsAllMetrics(t *testing.T) {
	d := &Diagram{MinStep: 0.1}
	snr := []float64{0, 0, 1, 1, 1, 0, 0, 0}
	for i, v := range []float64{0, 0, 1, 2, 2, 0, 0, 0} {
		d.push(float64(i), signal.Of(v, snr[i]))
	}
	d.RemoveSameGradients()
	if d.Len() != 8 {
		t.Errorf("len = %d, want 8", d.Len())
	}
}
