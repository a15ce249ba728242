package telemetry

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/w1xm/linktrack/signal"
)

var (
	chain0RE = regexp.MustCompile(`-ch0$`)
	numberRE = regexp.MustCompile(`^[-+]?[0-9]*\.?[0-9]+`)
)

// metricKey maps a raw report key onto a metric name. Radios report keys
// like "=signal-strength-ch0=" or "signal_to_noise". Only the first chain
// stands in for a metric, and only when the plain key is absent.
func metricKey(key string) (name string, chain bool) {
	key = strings.ToLower(strings.Trim(strings.TrimSpace(key), "="))
	key = strings.ReplaceAll(key, "_", "-")
	if chain0RE.MatchString(key) {
		return chain0RE.ReplaceAllString(key, ""), true
	}
	return key, false
}

// parseLevel reads a level such as "-65", "-65dBm" or "-65dBm@6Mbps".
func parseLevel(s string) (float64, error) {
	m := numberRE.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, fmt.Errorf("no level in %q", s)
	}
	return strconv.ParseFloat(m, 64)
}

// Decode builds a reading from a raw key/value report. Keys that name no
// metric are ignored. An empty report means no peer is registered and
// decodes to the empty vector.
func Decode(raw map[string]string) (signal.Vector, error) {
	if len(raw) == 0 {
		return signal.Lost, nil
	}
	m := make(map[signal.MetricID]float64, signal.NumMetrics)
	plain := make(map[signal.MetricID]bool, signal.NumMetrics)
	for k, s := range raw {
		name, chain := metricKey(k)
		id, err := signal.ParseMetric(name)
		if err != nil {
			continue
		}
		if _, ok := m[id]; ok && (chain || plain[id]) {
			continue
		}
		x, err := parseLevel(s)
		if err != nil {
			return signal.Lost, fmt.Errorf("%s: %w", k, err)
		}
		m[id] = x
		plain[id] = !chain
	}
	if len(m) == 0 {
		return signal.Lost, fmt.Errorf("no metrics in report")
	}
	return signal.FromMap(m)
}

// DecodeJSON decodes a JSON object whose values are numbers or level
// strings.
func DecodeJSON(payload []byte) (signal.Vector, error) {
	var obj map[string]interface{}
	if err := json.Unmarshal(payload, &obj); err != nil {
		return signal.Lost, err
	}
	raw := make(map[string]string, len(obj))
	for k, x := range obj {
		switch x := x.(type) {
		case float64:
			raw[k] = strconv.FormatFloat(x, 'g', -1, 64)
		case string:
			raw[k] = x
		}
	}
	if len(obj) > 0 && len(raw) == 0 {
		return signal.Lost, fmt.Errorf("no metrics in report")
	}
	return Decode(raw)
}
