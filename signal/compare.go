package signal

import "math"

// Compare ranks a against b. Any reading beats the empty vector. For two
// readings it returns the net number of metrics where a is higher; only the
// sign is meaningful to callers.
func Compare(a, b Vector) int {
	switch {
	case a.valid && !b.valid:
		return 1
	case !a.valid && b.valid:
		return -1
	case !a.valid && !b.valid:
		return 0
	}
	res := 0
	for _, m := range Metrics {
		switch {
		case a.values[m] > b.values[m]:
			res++
		case a.values[m] < b.values[m]:
			res--
		}
	}
	return res
}

// WorstDelta returns the signed per-metric difference a-b with the largest
// magnitude. When exactly one side is empty it returns +1 or -1 like Compare.
// Equal magnitudes resolve to the positive difference.
func WorstDelta(a, b Vector) float64 {
	switch {
	case a.valid && !b.valid:
		return 1
	case !a.valid && b.valid:
		return -1
	case !a.valid && !b.valid:
		return 0
	}
	res := 0.0
	for _, m := range Metrics {
		d := a.values[m] - b.values[m]
		if ad, ar := math.Abs(d), math.Abs(res); ad > ar || (ad == ar && d > res) {
			res = d
		}
	}
	return res
}
