package track

import (
	"fmt"

	"github.com/w1xm/linktrack/diagram"
	"github.com/w1xm/linktrack/signal"
)

// Bounds are soft sweep limits in degrees. The zero value means the mover's
// hard limits.
type Bounds struct {
	Min, Max float64
}

type Config struct {
	// Beamwidth is the antenna beamwidth in degrees. It sizes escort
	// excursions and the sector elevation offsets.
	Beamwidth float64
	// LevelDifference is the drop in dB from the best reading that ends a
	// search half sweep.
	LevelDifference float64
	// LossTicks is the number of consecutive empty readings tolerated in a
	// tracking mode before falling back to the sector scan.
	LossTicks    int
	FilterLength int
	// MinStep is the smallest angle change recorded in a sweep diagram.
	MinStep float64

	Azimuth, Elevation Bounds

	// Refine runs a plateau search on both axes after the sector scan.
	Refine  bool
	Tracker Tracker
	// EscortRest is the number of ticks to dwell between escort excursions.
	EscortRest int

	CircleRadius float64
	CirclePoints int
}

func DefaultConfig() Config {
	return Config{
		Beamwidth:       5,
		LevelDifference: 10,
		LossTicks:       5,
		FilterLength:    signal.DefaultFilterLength,
		MinStep:         diagram.DefaultMinStep,
		CircleRadius:    2.5,
		CirclePoints:    36,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Beamwidth <= 0 {
		c.Beamwidth = d.Beamwidth
	}
	if c.LevelDifference <= 0 {
		c.LevelDifference = d.LevelDifference
	}
	if c.LossTicks <= 0 {
		c.LossTicks = d.LossTicks
	}
	if c.FilterLength <= 0 {
		c.FilterLength = d.FilterLength
	}
	if c.MinStep <= 0 {
		c.MinStep = d.MinStep
	}
	if c.CircleRadius <= 0 {
		c.CircleRadius = d.CircleRadius
	}
	if c.CirclePoints < 2 {
		c.CirclePoints = d.CirclePoints
	}
	if c.CirclePoints%2 != 0 {
		c.CirclePoints++
	}
	return c
}

// Controller arbitrates between the search and tracking modes. It is not
// safe for concurrent use; callers serialize Tick with the other methods.
type Controller struct {
	cfg       Config
	telemetry TelemetrySource

	Azimuth, Elevation *Axis

	mode, prevMode Mode
	value          signal.Vector
	best           signal.Vector
	lost           int
	ticks          uint64

	// sectorPasses counts completed sweeps of the current sector scan and
	// sectorRetry the elevation offsets tried without finding a signal.
	sectorPasses int
	sectorRetry  int
	rest         int

	diagram *diagram.Diagram
	filter  *signal.Filter
	circle  circleState
}

func New(cfg Config, azimuth, elevation Mover, telemetry TelemetrySource) (*Controller, error) {
	cfg = cfg.withDefaults()
	az, err := newAxis("azimuth", azimuth, cfg.Azimuth)
	if err != nil {
		return nil, err
	}
	el, err := newAxis("elevation", elevation, cfg.Elevation)
	if err != nil {
		return nil, err
	}
	return &Controller{
		cfg:       cfg,
		telemetry: telemetry,
		Azimuth:   az,
		Elevation: el,
		diagram:   diagram.New(cfg.MinStep),
		filter:    signal.NewFilter(cfg.FilterLength),
	}, nil
}

func (c *Controller) Config() Config {
	return c.cfg
}

func (c *Controller) Mode() Mode {
	return c.mode
}

// SetMode switches modes. The movers keep their targets except for Off,
// which stops them.
func (c *Controller) SetMode(m Mode) error {
	if m < Off || m > Circle {
		return fmt.Errorf("invalid mode %d", int(m))
	}
	c.sectorRetry = 0
	c.setMode(m)
	if m == Off {
		c.Azimuth.Mover.Stop()
		c.Elevation.Mover.Stop()
	}
	return nil
}

// Manual switches to Manual and points the antenna at az, el.
func (c *Controller) Manual(az, el float64) {
	c.setMode(Manual)
	c.Azimuth.point(az)
	c.Elevation.point(el)
}

func (c *Controller) setMode(m Mode) {
	if m == c.mode {
		return
	}
	if !c.mode.escort() || !m.escort() {
		Logf("mode %v -> %v", c.mode, m)
	}
	c.prevMode, c.mode = c.mode, m
	c.Azimuth.State = 0
	c.Elevation.State = 0
	c.diagram.Clear()
	c.filter.Clear()
}

// startTracking leaves the sector scan for the configured tracker.
func (c *Controller) startTracking() {
	if c.cfg.Refine {
		c.setMode(SearchAzimuth)
		return
	}
	c.setTracker()
}

func (c *Controller) setTracker() {
	if c.cfg.Tracker == TrackCircle {
		c.setMode(Circle)
	} else {
		c.setMode(EscortAzimuth)
	}
}

// Tick polls the telemetry once and advances the active mode by one step.
// A non-nil error wraps ErrInvariant; the controller is left in the state
// that produced it.
func (c *Controller) Tick() error {
	c.ticks++
	v := c.telemetry.Poll()
	c.value = v

	if v.Empty() {
		c.lost++
	} else {
		c.lost = 0
		if signal.Compare(v, c.best) > 0 {
			c.best = v
			c.Azimuth.Best = Some(c.Azimuth.angle())
			c.Elevation.Best = Some(c.Elevation.angle())
		}
	}

	if c.mode.Tracking() && c.lost > c.cfg.LossTicks && !c.searchInTransit() {
		Logf("signal lost for %d ticks in %v", c.lost, c.mode)
		c.sectorRetry = 0
		c.setMode(SectorAzimuth)
	}

	switch c.mode {
	case Off, Manual:
		return nil
	case SectorAzimuth:
		return c.sector(c.Azimuth, v)
	case SectorElevation:
		return c.sector(c.Elevation, v)
	case SearchAzimuth:
		return c.search(c.Azimuth, v)
	case SearchElevation:
		return c.search(c.Elevation, v)
	case EscortAzimuth:
		return c.escort(c.Azimuth, v)
	case EscortElevation:
		return c.escort(c.Elevation, v)
	case Circle:
		return c.track(v)
	}
	return &InvariantViolation{Mode: c.mode, Axis: "controller", State: int(c.mode)}
}

// searchInTransit reports a search axis still on its way to a target. Its
// sweeps leave the lobe and a stopped rotator coasts on, so dropouts only
// count once it has come to rest.
func (c *Controller) searchInTransit() bool {
	switch c.mode {
	case SearchAzimuth:
		return !c.Azimuth.Mover.IsReady()
	case SearchElevation:
		return !c.Elevation.Mover.IsReady()
	}
	return false
}

func (c *Controller) violation(ax *Axis) error {
	return &InvariantViolation{Mode: c.mode, Axis: ax.Name, State: ax.State}
}

// Status is a snapshot of the controller for display and logging.
type Status struct {
	Mode      Mode          `json:"mode"`
	PrevMode  Mode          `json:"prev_mode"`
	Value     signal.Vector `json:"value"`
	Best      signal.Vector `json:"best"`
	Lost      int           `json:"lost"`
	Ticks     uint64        `json:"ticks"`
	Azimuth   AxisStatus    `json:"azimuth"`
	Elevation AxisStatus    `json:"elevation"`
}

func (c *Controller) Status() Status {
	return Status{
		Mode:      c.mode,
		PrevMode:  c.prevMode,
		Value:     c.value,
		Best:      c.best,
		Lost:      c.lost,
		Ticks:     c.ticks,
		Azimuth:   c.Azimuth.status(),
		Elevation: c.Elevation.status(),
	}
}
