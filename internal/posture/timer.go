package posture

import "time"

// Timer is a hysteresis timer for a single condition.
//
// It arms the first time the condition is observed true and disarms on the
// first false observation. The alert it guards is active only while armed for
// strictly longer than the threshold. Active is derived from the arm time and
// the caller's clock; there is no latched "fired" state.
type Timer struct {
	threshold time.Duration
	start     time.Time
	armed     bool
}

// NewTimer creates an idle timer with the given threshold.
func NewTimer(threshold time.Duration) *Timer {
	return &Timer{threshold: threshold}
}

// Observe records the condition value at now and reports whether the alert
// is active afterwards.
func (t *Timer) Observe(condition bool, now time.Time) bool {
	if !condition {
		t.armed = false
		t.start = time.Time{}
		return false
	}
	if !t.armed {
		t.armed = true
		t.start = now
	}
	return t.Active(now)
}

// Active reports whether the timer has been armed for longer than its threshold at now.
func (t *Timer) Active(now time.Time) bool {
	return t.armed && now.Sub(t.start) > t.threshold
}

// Since returns the time the timer was armed, if it is armed.
func (t *Timer) Since() (time.Time, bool) {
	return t.start, t.armed
}

// Threshold returns the configured threshold.
func (t *Timer) Threshold() time.Duration {
	return t.threshold
}
