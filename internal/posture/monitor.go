package posture

import (
	"image"
	"sync"
	"time"
)

// Default thresholds.
const (
	DefaultWristTooHighAfter    = 5 * time.Second
	DefaultWristAboveElbowAfter = 2 * time.Second
	DefaultMarginPixels         = 20
)

// Measurement holds the joint positions extracted from one frame, in pixels.
// A nil field means the joint was not detected in this frame.
type Measurement struct {
	Elbow *image.Point
	Wrist *image.Point
}

// Config holds the thresholds used by a Monitor.
type Config struct {
	// WristTooHighAfter is how long the wrist must stay above the margin
	// before WristTooHigh is raised.
	WristTooHighAfter time.Duration
	// WristAboveElbowAfter is how long the wrist must stay above the elbow
	// before WristAboveElbow is raised.
	WristAboveElbowAfter time.Duration
	// MarginPixels is how far above the elbow the wrist must be for the
	// too-high condition to hold.
	MarginPixels int
}

// DefaultConfig returns the thresholds of the reference behaviour.
func DefaultConfig() Config {
	return Config{
		WristTooHighAfter:    DefaultWristTooHighAfter,
		WristAboveElbowAfter: DefaultWristAboveElbowAfter,
		MarginPixels:         DefaultMarginPixels,
	}
}

// Result is the outcome of one Update: the active alerts and what the
// renderer needs to draw.
type Result struct {
	Alerts AlertSet
	// ReferenceY is the calibrated keyboard line, nil until calibrated.
	ReferenceY *int
	Elbow      *image.Point
	Wrist      *image.Point
	// Armed maps each armed condition to the time it started holding.
	Armed map[Alert]time.Time
}

// Since returns when the condition behind alert a started holding, if its timer is armed.
func (r Result) Since(a Alert) (time.Time, bool) {
	t, ok := r.Armed[a]
	return t, ok
}

// Status is a snapshot of the monitor for reporting.
type Status struct {
	Alerts      AlertSet            `json:"alerts"`
	Calibrated  bool                `json:"calibrated"`
	ReferenceY  *int                `json:"reference_y"`
	Armed       map[Alert]time.Time `json:"armed,omitempty"`
	EvaluatedAt time.Time           `json:"evaluated_at"`
}

// Monitor owns the keyboard calibration and the two hysteresis timers.
// It is safe for concurrent use; Update is expected from a single frame loop
// while Calibrate may arrive from request handlers.
type Monitor struct {
	mu         sync.Mutex
	cfg        Config
	referenceY int
	calibrated bool
	aboveElbow *Timer
	tooHigh    *Timer
	last       Status
}

// NewMonitor creates an uncalibrated Monitor. Non-positive thresholds are
// replaced by the defaults.
func NewMonitor(cfg Config) *Monitor {
	if cfg.WristTooHighAfter <= 0 {
		cfg.WristTooHighAfter = DefaultWristTooHighAfter
	}
	if cfg.WristAboveElbowAfter <= 0 {
		cfg.WristAboveElbowAfter = DefaultWristAboveElbowAfter
	}
	return &Monitor{
		cfg:        cfg,
		aboveElbow: NewTimer(cfg.WristAboveElbowAfter),
		tooHigh:    NewTimer(cfg.WristTooHighAfter),
	}
}

// Config returns the monitor's configuration.
func (m *Monitor) Config() Config {
	return m.cfg
}

// Calibrate sets the keyboard reference line to pixel row y, replacing any
// previous value. Any integer is accepted.
func (m *Monitor) Calibrate(y int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.referenceY = y
	m.calibrated = true
}

// Calibration returns the reference line and whether it has been set.
func (m *Monitor) Calibration() (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.referenceY, m.calibrated
}

// Update evaluates both conditions against one frame's measurement.
// now must come from the wall clock; frames may arrive at any rate.
func (m *Monitor) Update(meas Measurement, now time.Time) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	var alerts AlertSet

	aboveElbow := meas.Wrist != nil && meas.Elbow != nil && meas.Wrist.Y < meas.Elbow.Y
	if m.aboveElbow.Observe(aboveElbow, now) {
		alerts = alerts.With(WristAboveElbow)
	}

	// Until calibrated the too-high timer is neither started nor reset.
	// Once calibrated the condition compares the wrist with the elbow, not
	// with the reference line; the line is only drawn.
	// TODO: compare against referenceY once the threshold change is signed off.
	if m.calibrated {
		tooHigh := meas.Wrist != nil && meas.Elbow != nil && meas.Wrist.Y < meas.Elbow.Y-m.cfg.MarginPixels
		if m.tooHigh.Observe(tooHigh, now) {
			alerts = alerts.With(WristTooHigh)
		}
	}

	res := Result{
		Alerts: alerts,
		Elbow:  clonePoint(meas.Elbow),
		Wrist:  clonePoint(meas.Wrist),
		Armed:  m.armed(),
	}
	if m.calibrated {
		y := m.referenceY
		res.ReferenceY = &y
	}

	m.last = Status{
		Alerts:      alerts,
		Armed:       res.Armed,
		EvaluatedAt: now,
	}

	return res
}

// Status returns the outcome of the latest Update together with the current
// calibration.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.last
	s.Calibrated = m.calibrated
	if m.calibrated {
		y := m.referenceY
		s.ReferenceY = &y
	}
	if s.Armed != nil {
		armed := make(map[Alert]time.Time, len(s.Armed))
		for a, t := range s.Armed {
			armed[a] = t
		}
		s.Armed = armed
	}
	return s
}

func (m *Monitor) armed() map[Alert]time.Time {
	var armed map[Alert]time.Time
	add := func(a Alert, t *Timer) {
		if since, ok := t.Since(); ok {
			if armed == nil {
				armed = make(map[Alert]time.Time, 2)
			}
			armed[a] = since
		}
	}
	add(WristAboveElbow, m.aboveElbow)
	add(WristTooHigh, m.tooHigh)
	return armed
}

func clonePoint(p *image.Point) *image.Point {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
