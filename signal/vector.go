package signal

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MetricID identifies one link-quality reading reported by the peer radio.
type MetricID int

const (
	SignalStrength MetricID = iota
	SignalToNoise

	NumMetrics = 2
)

// Metrics lists every metric in comparison order.
var Metrics = [NumMetrics]MetricID{SignalStrength, SignalToNoise}

var metricNames = [NumMetrics]string{
	SignalStrength: "signal-strength",
	SignalToNoise:  "signal-to-noise",
}

func (m MetricID) String() string {
	if m < 0 || int(m) >= NumMetrics {
		return fmt.Sprintf("metric(%d)", int(m))
	}
	return metricNames[m]
}

// ParseMetric maps a metric name to its MetricID.
func ParseMetric(name string) (MetricID, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range metricNames {
		if n == name {
			return MetricID(i), nil
		}
	}
	return 0, fmt.Errorf("unknown metric %q", name)
}

// Vector is one telemetry reading. The zero value is the empty vector,
// meaning no signal this tick. Vectors are values and never change after
// construction.
type Vector struct {
	values [NumMetrics]float64
	valid  bool
}

// Lost is the empty vector.
var Lost Vector

// Of builds a vector from readings given in Metrics order.
func Of(values ...float64) Vector {
	if len(values) != NumMetrics {
		panic(fmt.Sprintf("signal.Of: got %d values, want %d", len(values), NumMetrics))
	}
	var v Vector
	copy(v.values[:], values)
	v.valid = true
	return v
}

// FromMap builds a vector from a complete metric map.
func FromMap(m map[MetricID]float64) (Vector, error) {
	if len(m) == 0 {
		return Lost, nil
	}
	var v Vector
	for _, id := range Metrics {
		x, ok := m[id]
		if !ok {
			return Lost, fmt.Errorf("missing metric %v", id)
		}
		v.values[id] = x
	}
	v.valid = true
	return v, nil
}

// Empty reports whether v carries no reading.
func (v Vector) Empty() bool {
	return !v.valid
}

// Len is NumMetrics for a reading and 0 for the empty vector.
func (v Vector) Len() int {
	if !v.valid {
		return 0
	}
	return NumMetrics
}

// Get returns the reading for metric m, or 0 for the empty vector.
func (v Vector) Get(m MetricID) float64 {
	if !v.valid {
		return 0
	}
	return v.values[m]
}

// Equal reports whether a and b hold identical readings.
func (v Vector) Equal(o Vector) bool {
	return v == o
}

// Map returns the readings keyed by metric name.
func (v Vector) Map() map[string]float64 {
	out := make(map[string]float64, v.Len())
	if !v.valid {
		return out
	}
	for _, m := range Metrics {
		out[m.String()] = v.values[m]
	}
	return out
}

func (v Vector) String() string {
	if !v.valid {
		return "{}"
	}
	parts := make([]string, 0, NumMetrics)
	for _, m := range Metrics {
		parts = append(parts, fmt.Sprintf("%v=%g", m, v.values[m]))
	}
	return "{" + strings.Join(parts, " ") + "}"
}

func (v Vector) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Map())
}

func (v *Vector) UnmarshalJSON(data []byte) error {
	var raw map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m := make(map[MetricID]float64, len(raw))
	for k, x := range raw {
		id, err := ParseMetric(k)
		if err != nil {
			return err
		}
		m[id] = x
	}
	out, err := FromMap(m)
	if err != nil {
		return err
	}
	*v = out
	return nil
}
