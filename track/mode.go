package track

import (
	"fmt"
	"strings"
)

type Mode int

const (
	Off Mode = iota
	// Manual hands the movers to the user; the engine issues no targets.
	Manual
	SectorAzimuth
	SectorElevation
	SearchAzimuth
	SearchElevation
	EscortAzimuth
	EscortElevation
	Circle
)

var modeNames = []string{
	Off:             "off",
	Manual:          "manual",
	SectorAzimuth:   "sector_azim",
	SectorElevation: "sector_elev",
	SearchAzimuth:   "search_azim",
	SearchElevation: "search_elev",
	EscortAzimuth:   "escort_azim",
	EscortElevation: "escort_elev",
	Circle:          "circle",
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("mode(%d)", int(m))
	}
	return modeNames[m]
}

func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range modeNames {
		if n == s {
			return Mode(i), nil
		}
	}
	return Off, fmt.Errorf("unknown mode %q", s)
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Tracking reports whether m holds an already acquired peer. Sustained loss
// in a tracking mode restarts the sector scan.
func (m Mode) Tracking() bool {
	switch m {
	case SearchAzimuth, SearchElevation, EscortAzimuth, EscortElevation, Circle:
		return true
	}
	return false
}

// escort reports the two escort modes, which hand over to each other every
// cycle.
func (m Mode) escort() bool {
	return m == EscortAzimuth || m == EscortElevation
}

// Tracker selects the steady-state tracking mode.
type Tracker int

const (
	TrackEscort Tracker = iota
	TrackCircle
)

func ParseTracker(s string) (Tracker, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "escort":
		return TrackEscort, nil
	case "circle":
		return TrackCircle, nil
	}
	return TrackEscort, fmt.Errorf("unknown tracker %q", s)
}

func (t Tracker) String() string {
	if t == TrackCircle {
		return "circle"
	}
	return "escort"
}
