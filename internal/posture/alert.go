// Package posture turns per-frame wrist and elbow positions into debounced
// ergonomic alerts.
package posture

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Alert names a posture condition that has held long enough to be surfaced.
type Alert string

const (
	// WristAboveElbow fires when the wrist stays higher on screen than the elbow.
	WristAboveElbow Alert = "WRIST_ABOVE_ELBOW"
	// WristTooHigh fires when, after calibration, the wrist stays more than the
	// configured margin above the elbow.
	WristTooHigh Alert = "WRIST_TOO_HIGH"
)

// Alerts lists every alert in a stable order.
var Alerts = []Alert{WristAboveElbow, WristTooHigh}

// ParseAlert converts a name such as "WRIST_TOO_HIGH" to an Alert.
// Matching is case-insensitive.
func ParseAlert(s string) (Alert, error) {
	for _, a := range Alerts {
		if strings.EqualFold(s, string(a)) {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown alert %q", s)
}

func (a Alert) bit() AlertSet {
	switch a {
	case WristAboveElbow:
		return 1 << 0
	case WristTooHigh:
		return 1 << 1
	}
	return 0
}

// AlertSet is a set of active alerts. The zero value is empty.
type AlertSet uint8

// NewAlertSet returns a set holding the given alerts.
func NewAlertSet(alerts ...Alert) AlertSet {
	var s AlertSet
	for _, a := range alerts {
		s = s.With(a)
	}
	return s
}

// With returns a copy of s that includes a.
func (s AlertSet) With(a Alert) AlertSet { return s | a.bit() }

// Without returns a copy of s that excludes a.
func (s AlertSet) Without(a Alert) AlertSet { return s &^ a.bit() }

// Has reports whether a is in the set.
func (s AlertSet) Has(a Alert) bool {
	b := a.bit()
	return b != 0 && s&b == b
}

// Empty reports whether no alert is active.
func (s AlertSet) Empty() bool { return s == 0 }

// Len returns the number of alerts in the set.
func (s AlertSet) Len() int {
	n := 0
	for _, a := range Alerts {
		if s.Has(a) {
			n++
		}
	}
	return n
}

// List returns the alerts in the set in the order of Alerts.
func (s AlertSet) List() []Alert {
	list := make([]Alert, 0, len(Alerts))
	for _, a := range Alerts {
		if s.Has(a) {
			list = append(list, a)
		}
	}
	return list
}

// Diff returns the alerts present in s but not in prev (raised) and those
// present in prev but not in s (cleared).
func (s AlertSet) Diff(prev AlertSet) (raised, cleared AlertSet) {
	return s &^ prev, prev &^ s
}

func (s AlertSet) String() string {
	names := make([]string, 0, len(Alerts))
	for _, a := range s.List() {
		names = append(names, string(a))
	}
	return "[" + strings.Join(names, " ") + "]"
}

// MarshalJSON encodes the set as an array of alert names.
func (s AlertSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.List())
}

// UnmarshalJSON decodes an array of alert names.
func (s *AlertSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	var set AlertSet
	for _, n := range names {
		a, err := ParseAlert(n)
		if err != nil {
			return err
		}
		set = set.With(a)
	}
	*s = set
	return nil
}
