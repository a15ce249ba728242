package telemetry

import (
	"math"
	"math/rand/v2"
	"sync"

	"github.com/w1xm/linktrack/signal"
	"gonum.org/v1/gonum/stat/distuv"
)

// Beam simulates a peer radio seen through a directional antenna. The
// received level falls off as a Gaussian main lobe around the peer and
// the link drops below Sensitivity.
type Beam struct {
	// Position reports where the antenna points.
	Position func() (az, el float64)

	PeerAzimuth, PeerElevation float64
	// Beamwidth is the half-power width of the main lobe in degrees.
	Beamwidth float64
	// Peak is the level on boresight in dBm.
	Peak float64
	// NoiseFloor in dBm sets the signal-to-noise ratio.
	NoiseFloor float64
	// Sensitivity is the weakest level the radio keeps a link at.
	Sensitivity float64
	// Jitter is the standard deviation of the level in dB.
	Jitter float64

	mu    sync.Mutex
	noise distuv.Normal
}

// NewBeam returns a simulated peer at az, el with typical link levels.
func NewBeam(position func() (az, el float64), az, el, beamwidth float64, seed uint64) *Beam {
	b := &Beam{
		Position:      position,
		PeerAzimuth:   az,
		PeerElevation: el,
		Beamwidth:     beamwidth,
		Peak:          -40,
		NoiseFloor:    -95,
		Sensitivity:   -85,
		Jitter:        0.5,
	}
	b.noise = distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)}
	return b
}

// Level returns the noiseless received level at az, el.
func (b *Beam) Level(az, el float64) float64 {
	daz := math.Remainder(az-b.PeerAzimuth, 360) * math.Cos(b.PeerElevation*math.Pi/180)
	del := el - b.PeerElevation
	off := math.Hypot(daz, del) / b.Beamwidth
	// -3 dB at half the beamwidth
	return b.Peak - 12*off*off
}

// Poll samples the link at the current antenna position. Levels are
// reported in whole dB, as radios do.
func (b *Beam) Poll() signal.Vector {
	az, el := b.Position()
	level := b.Level(az, el)
	if b.Jitter > 0 {
		b.mu.Lock()
		level += b.Jitter * b.noise.Rand()
		b.mu.Unlock()
	}
	level = math.Round(level)
	if level < b.Sensitivity {
		return signal.Lost
	}
	return signal.Of(level, level-b.NoiseFloor)
}
