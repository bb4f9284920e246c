// Package tray shows the current posture state in the system tray.
package tray

import (
	"context"
	"strings"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/wristguard/internal/alerting"
	"github.com/ayusman/wristguard/internal/posture"
)

const okTitle = "Posture: OK"

// Tray is a system tray indicator. It implements alerting.Sink so alert
// events update its title.
type Tray struct {
	onOpen func()
	onQuit func()
	active posture.AlertSet
	mu     sync.RWMutex

	// set once the tray is ready
	ready      bool
	menuStatus *systray.MenuItem
}

// New creates a Tray showing no alerts.
func New() *Tray {
	return &Tray{}
}

// OnOpen sets the callback for the "Open viewer" item.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback for the "Quit" item.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the tray event loop and blocks until Quit.
// On macOS it must be called from the main goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit stops the tray event loop.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTooltip("wristguard posture monitor")

	t.mu.Lock()
	t.menuStatus = systray.AddMenuItem(okTitle, "Current posture")
	t.menuStatus.Disable()
	t.ready = true
	t.mu.Unlock()
	t.refresh()

	systray.AddSeparator()
	menuOpen := systray.AddMenuItem("Open viewer", "Open the camera view in a browser")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit wristguard")

	go func() {
		for {
			select {
			case <-menuOpen.ClickedCh:
				t.call(func(t *Tray) func() { return t.onOpen })
			case <-menuQuit.ClickedCh:
				t.call(func(t *Tray) func() { return t.onQuit })
				systray.Quit()
				return
			}
		}
	}()
}

// call runs a callback outside the lock.
func (t *Tray) call(get func(*Tray) func()) {
	t.mu.RLock()
	fn := get(t)
	t.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// Name implements alerting.Sink.
func (t *Tray) Name() string { return "tray" }

// Handle implements alerting.Sink.
func (t *Tray) Handle(_ context.Context, ev alerting.Event) error {
	t.mu.Lock()
	switch ev.Kind {
	case alerting.Raised:
		t.active = t.active.With(ev.Alert)
	case alerting.Cleared:
		t.active = t.active.Without(ev.Alert)
	}
	t.mu.Unlock()

	t.refresh()
	return nil
}

// Title returns the text currently shown by the tray.
func (t *Tray) Title() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Title(t.active)
}

func (t *Tray) refresh() {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.ready {
		return
	}
	title := Title(t.active)
	systray.SetTitle(title)
	t.menuStatus.SetTitle(title)
}

// Title renders an alert set for display.
func Title(active posture.AlertSet) string {
	if active.Empty() {
		return okTitle
	}
	names := make([]string, 0, active.Len())
	for _, a := range active.List() {
		names = append(names, label(a))
	}
	return "Posture: " + strings.Join(names, ", ")
}

func label(a posture.Alert) string {
	switch a {
	case posture.WristAboveElbow:
		return "wrist above elbow"
	case posture.WristTooHigh:
		return "wrist too high"
	}
	return string(a)
}
