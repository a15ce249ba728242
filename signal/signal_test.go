package signal

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var vectors = []Vector{
	Lost,
	Of(-60, 30),
	Of(-60, 31),
	Of(-59, 29),
	Of(-80, 10),
	Of(-40, 10),
}

func TestCompareAntisymmetric(t *testing.T) {
	for _, a := range vectors {
		for _, b := range vectors {
			if got, want := Compare(a, b), -Compare(b, a); got != want {
				t.Errorf("Compare(%v, %v) = %d, want %d", a, b, got, want)
			}
		}
		if !a.Empty() && Compare(a, a) != 0 {
			t.Errorf("Compare(%v, %v) = %d, want 0", a, a, Compare(a, a))
		}
	}
}

func TestAnySignalBeatsNone(t *testing.T) {
	for _, a := range vectors {
		if a.Empty() {
			continue
		}
		if Compare(a, Lost) <= 0 {
			t.Errorf("Compare(%v, Lost) = %d, want > 0", a, Compare(a, Lost))
		}
		if Compare(Lost, a) >= 0 {
			t.Errorf("Compare(Lost, %v) = %d, want < 0", a, Compare(Lost, a))
		}
		if WorstDelta(a, Lost) <= 0 || WorstDelta(Lost, a) >= 0 {
			t.Errorf("WorstDelta(%v, Lost) = %g, WorstDelta(Lost, %v) = %g", a, WorstDelta(a, Lost), a, WorstDelta(Lost, a))
		}
	}
	if got := Compare(Lost, Lost); got != 0 {
		t.Errorf("Compare(Lost, Lost) = %d, want 0", got)
	}
	if got := WorstDelta(Lost, Lost); got != 0 {
		t.Errorf("WorstDelta(Lost, Lost) = %g, want 0", got)
	}
}

func TestCompare(t *testing.T) {
	for _, test := range []struct {
		a, b Vector
		want int
	}{
		{Of(-60, 30), Of(-70, 20), 2},
		{Of(-60, 20), Of(-70, 30), 0},
		{Of(-60, 30), Of(-60, 20), 1},
		{Of(-80, 10), Of(-60, 30), -2},
	} {
		t.Run(fmt.Sprintf("%v_%v", test.a, test.b), func(t *testing.T) {
			if got := Compare(test.a, test.b); got != test.want {
				t.Errorf("Compare = %d, want %d", got, test.want)
			}
		})
	}
}

func TestWorstDelta(t *testing.T) {
	for _, test := range []struct {
		a, b Vector
		want float64
	}{
		{Of(-60, 30), Of(-70, 28), 10},
		{Of(-60, 30), Of(-58, 18), 12},
		{Of(-60, 10), Of(-58, 30), -20},
		{Of(-60, 30), Of(-63, 33), 3},
		{Of(-60, 30), Of(-60, 30), 0},
	} {
		t.Run(fmt.Sprintf("%v_%v", test.a, test.b), func(t *testing.T) {
			if got := WorstDelta(test.a, test.b); got != test.want {
				t.Errorf("WorstDelta = %g, want %g", got, test.want)
			}
		})
	}
}

func TestVectorJSON(t *testing.T) {
	data, err := json.Marshal(Of(-61.5, 22))
	if err != nil {
		t.Fatal(err)
	}
	var got Vector
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if !got.Equal(Of(-61.5, 22)) {
		t.Errorf("round trip: got %v", got)
	}
	data, err = json.Marshal(Lost)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "{}" {
		t.Errorf("Lost marshals to %s, want {}", data)
	}
	if err := json.Unmarshal([]byte(`{"signal-strength": -50}`), &got); err == nil {
		t.Errorf("partial vector accepted: %v", got)
	}
}

func TestFilter(t *testing.T) {
	f := NewFilter(4)
	if got := f.Average(); !got.Empty() {
		t.Errorf("empty filter average = %v", got)
	}
	f.Append(Of(-60, 20))
	f.Append(Lost)
	f.Append(Of(-64, 24))
	if f.Full() {
		t.Errorf("filter full after 2 readings")
	}
	if diff := cmp.Diff(Of(-62, 22).Map(), f.Average().Map()); diff != "" {
		t.Errorf("partial average: got(-)/want(+):\n%s", diff)
	}
	f.Append(Of(-60, 20))
	f.Append(Of(-60, 20))
	f.Append(Of(-50, 30))
	if !f.Full() {
		t.Errorf("filter not full after 5 readings")
	}
	// ring holds -50,-64,-60,-60
	if diff := cmp.Diff(Of(-58.5, 23.5).Map(), f.Average().Map()); diff != "" {
		t.Errorf("full average: got(-)/want(+):\n%s", diff)
	}
	f.Clear()
	if f.Full() || !f.Average().Empty() {
		t.Errorf("filter not cleared")
	}
}
