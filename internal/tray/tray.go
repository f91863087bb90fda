// Package tray shows gesturectl in the system tray: an enable toggle, the
// last gesture, the current levels and what the pinch controls.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/Kazeku-06/gesture-media-control/internal/app"
	"github.com/Kazeku-06/gesture-media-control/internal/debounce"
	"github.com/Kazeku-06/gesture-media-control/internal/gesture"
	"github.com/Kazeku-06/gesture-media-control/internal/pipeline"
)

// Callbacks are invoked from the tray's click goroutine. Any may be nil.
type Callbacks struct {
	OnToggle func(enabled bool)
	OnTarget func(t pipeline.Target)
	OnReset  func()
	OnQuit   func()
}

// Tray is the system tray menu. Broadcast keeps it in step with the app.
type Tray struct {
	cb Callbacks

	mu    sync.Mutex
	state menuState
	items *menuItems
}

type menuItems struct {
	toggle     *systray.MenuItem
	last       *systray.MenuItem
	volume     *systray.MenuItem
	brightness *systray.MenuItem
	target     *systray.MenuItem
	reset      *systray.MenuItem
	quit       *systray.MenuItem
}

// menuState is everything the menu displays.
type menuState struct {
	enabled    bool
	last       debounce.Command
	label      gesture.Label
	volume     int
	brightness int
	target     pipeline.Target
}

func (s menuState) toggleTitle() string {
	if s.enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

func (s menuState) lastTitle() string {
	if s.last == "" {
		return "Last: none"
	}
	if l, ok := debounce.LabelFor(s.last); ok {
		return fmt.Sprintf("Last: %s (%s)", s.last, l)
	}
	return "Last: " + string(s.last)
}

func (s menuState) volumeTitle() string {
	return fmt.Sprintf("Volume: %d%%", s.volume)
}

func (s menuState) brightnessTitle() string {
	return fmt.Sprintf("Brightness: %d%%", s.brightness)
}

func (s menuState) targetTitle() string {
	return "Pinch controls: " + string(s.target)
}

func (s menuState) tooltip() string {
	if !s.enabled {
		return "gesturectl: paused"
	}
	return "gesturectl: " + string(s.label)
}

func stateOf(snap app.Snapshot) menuState {
	return menuState{
		enabled:    snap.Enabled,
		last:       snap.LastCommand,
		label:      snap.Label,
		volume:     int(snap.Volume + 0.5),
		brightness: int(snap.Brightness + 0.5),
		target:     snap.Target,
	}
}

// New creates a tray showing snap until the first Broadcast.
func New(snap app.Snapshot, cb Callbacks) *Tray {
	return &Tray{cb: cb, state: stateOf(snap)}
}

// Run shows the tray and blocks until Quit. It must run on the main
// goroutine on macOS.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit removes the tray and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("gesturectl")

	t.mu.Lock()
	s := t.state
	items := &menuItems{}
	items.toggle = systray.AddMenuItem(s.toggleTitle(), "Toggle gesture control")
	systray.AddSeparator()
	items.last = systray.AddMenuItem(s.lastTitle(), "Last fired command")
	items.last.Disable()
	items.volume = systray.AddMenuItem(s.volumeTitle(), "Smoothed volume level")
	items.volume.Disable()
	items.brightness = systray.AddMenuItem(s.brightnessTitle(), "Smoothed brightness level")
	items.brightness.Disable()
	items.target = systray.AddMenuItem(s.targetTitle(), "Switch between volume and brightness")
	systray.AddSeparator()
	items.reset = systray.AddMenuItem("Reset gestures", "Clear holds and cooldowns")
	items.quit = systray.AddMenuItem("Quit", "Quit gesturectl")
	systray.SetTooltip(s.tooltip())
	t.items = items
	t.mu.Unlock()

	go t.clicks(items)
}

func (t *Tray) clicks(items *menuItems) {
	for {
		select {
		case <-items.toggle.ClickedCh:
			t.mu.Lock()
			enabled := !t.state.enabled
			t.mu.Unlock()
			if t.cb.OnToggle != nil {
				t.cb.OnToggle(enabled)
			}
		case <-items.target.ClickedCh:
			t.mu.Lock()
			next := pipeline.TargetBrightness
			if t.state.target == pipeline.TargetBrightness {
				next = pipeline.TargetVolume
			}
			t.mu.Unlock()
			if t.cb.OnTarget != nil {
				t.cb.OnTarget(next)
			}
		case <-items.reset.ClickedCh:
			if t.cb.OnReset != nil {
				t.cb.OnReset()
			}
		case <-items.quit.ClickedCh:
			if t.cb.OnQuit != nil {
				t.cb.OnQuit()
			}
			systray.Quit()
			return
		}
	}
}

// Broadcast updates the menu from an app.Snapshot. Other values are
// ignored. Only changed items are touched.
func (t *Tray) Broadcast(v any) {
	snap, ok := v.(app.Snapshot)
	if !ok {
		return
	}
	next := stateOf(snap)

	t.mu.Lock()
	defer t.mu.Unlock()
	prev := t.state
	t.state = next
	if t.items == nil || prev == next {
		return
	}
	if prev.enabled != next.enabled {
		t.items.toggle.SetTitle(next.toggleTitle())
	}
	if prev.last != next.last {
		t.items.last.SetTitle(next.lastTitle())
	}
	if prev.volume != next.volume {
		t.items.volume.SetTitle(next.volumeTitle())
	}
	if prev.brightness != next.brightness {
		t.items.brightness.SetTitle(next.brightnessTitle())
	}
	if prev.target != next.target {
		t.items.target.SetTitle(next.targetTitle())
	}
	if prev.enabled != next.enabled || prev.label != next.label {
		systray.SetTooltip(next.tooltip())
	}
}
