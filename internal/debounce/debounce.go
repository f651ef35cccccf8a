// Package debounce turns noisy digital pin reads into one clean command per
// physical press. Each button is an independent state machine polled at a
// fixed tick: a raw level change starts a pending timer, and only a level
// that holds for the full debounce window becomes the new stable level. A
// press fires exactly on the stable transition from idle (pulled high, open
// circuit) to active (pulled low, circuit closed) and never on release.
package debounce

import (
	"context"
	"time"

	"github.com/DevinMcDonald/GallupStopMotion/internal/token"
)

// DefaultWindow is the debounce window applied when none is configured.
const DefaultWindow = 25 * time.Millisecond

// LevelReader reports the instantaneous raw level of one input pin.
// High (true) is the idle pulled-up level; low means the button is held.
type LevelReader interface {
	Level() bool
}

// Button tracks the debounce state for a single physical button.
type Button struct {
	name    string
	command token.Command
	pin     LevelReader
	window  time.Duration

	rawLevel     bool // last raw level observed
	stableLevel  bool // last level that survived the window
	pendingSince time.Time
}

// NewButton creates a button state machine initialized to the pin's current
// raw level, so a button held at startup does not register as a press.
func NewButton(name string, cmd token.Command, pin LevelReader, window time.Duration) *Button {
	if window <= 0 {
		window = DefaultWindow
	}
	level := pin.Level()
	return &Button{
		name:        name,
		command:     cmd,
		pin:         pin,
		window:      window,
		rawLevel:    level,
		stableLevel: level,
	}
}

// Name returns the pin identity the button was configured with.
func (b *Button) Name() string { return b.name }

// Tick samples the raw level once and advances the state machine. It returns
// the button's command, and true, exactly when a debounced press completes.
// A contact oscillating faster than the window keeps resetting the pending
// timer and produces nothing until it settles; a press shorter than the
// window never reaches the stable transition and is invisible.
func (b *Button) Tick(now time.Time) (token.Command, bool) {
	raw := b.pin.Level()

	if raw != b.rawLevel {
		b.rawLevel = raw
		b.pendingSince = now
	}

	if raw == b.stableLevel {
		return "", false
	}
	if now.Sub(b.pendingSince) < b.window {
		return "", false
	}

	wasIdle := b.stableLevel
	b.stableLevel = raw
	if wasIdle && !raw {
		// High to low: the press. The reverse transition is tracked but
		// deliberately produces no output.
		return b.command, true
	}
	return "", false
}

// Poller drives a set of buttons at a fixed tick rate. The tick must be
// fast relative to the debounce window; 1 kHz is typical.
type Poller struct {
	buttons  []*Button
	interval time.Duration
}

// NewPoller creates a poller over the given buttons.
func NewPoller(buttons []*Button, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = time.Millisecond
	}
	return &Poller{buttons: buttons, interval: interval}
}

// Run polls every button until the context is cancelled, invoking emit once
// per qualifying press. One button's bounce never affects another.
func (p *Poller) Run(ctx context.Context, emit func(token.Command)) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, b := range p.buttons {
				if cmd, pressed := b.Tick(now); pressed {
					emit(cmd)
				}
			}
		}
	}
}
