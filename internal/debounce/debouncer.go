package debounce

import (
	"errors"
	"fmt"
	"time"

	"github.com/Kazeku-06/gesture-media-control/internal/gesture"
)

// SlotState is where one gesture sits in the Idle → Candidate → Cooldown
// cycle. Confirmation is instantaneous and has no state of its own.
type SlotState int

const (
	Idle SlotState = iota
	Candidate
	Cooldown
)

func (s SlotState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Candidate:
		return "candidate"
	case Cooldown:
		return "cooldown"
	}
	return fmt.Sprintf("SlotState(%d)", int(s))
}

// Config holds the debouncer timings.
type Config struct {
	// Dwell is how long a label must be seen without interruption before it
	// fires.
	Dwell time.Duration

	// Grace is how long the hand may be absent before all state, cooldowns
	// included, is dropped.
	Grace time.Duration

	// Cooldowns overrides DefaultCooldown per gesture.
	Cooldowns map[gesture.Label]time.Duration

	// DefaultCooldown applies to gestures without an override.
	DefaultCooldown time.Duration
}

// DefaultConfig returns the stock timings.
func DefaultConfig() Config {
	return Config{
		Dwell:           400 * time.Millisecond,
		Grace:           500 * time.Millisecond,
		DefaultCooldown: time.Second,
	}
}

// Validate rejects timings the state machine cannot honour.
func (c Config) Validate() error {
	if c.Dwell < 0 {
		return fmt.Errorf("dwell must be >= 0, got %s", c.Dwell)
	}
	if c.Grace < 0 {
		return fmt.Errorf("grace must be >= 0, got %s", c.Grace)
	}
	if c.DefaultCooldown <= 0 {
		return fmt.Errorf("default cooldown must be > 0, got %s", c.DefaultCooldown)
	}
	for l, d := range c.Cooldowns {
		if !l.Discrete() {
			return fmt.Errorf("cooldown for %q: not a discrete gesture", l)
		}
		if d <= 0 {
			return fmt.Errorf("cooldown for %q must be > 0, got %s", l, d)
		}
	}
	return nil
}

// CooldownFor returns the cooldown that applies to l.
func (c Config) CooldownFor(l gesture.Label) time.Duration {
	if d, ok := c.Cooldowns[l]; ok {
		return d
	}
	return c.DefaultCooldown
}

var errZeroTime = errors.New("debounce: zero timestamp")

// Debouncer is the gesture state machine. It is driven by one goroutine;
// it is not safe for concurrent use.
//
// Only one candidate exists at a time: any frame whose label differs from
// the candidate discards it, so a hold never accumulates partial credit
// across interruptions. Cooldowns are tracked per label and always measured
// in wall-clock time from the supplied timestamps, never in frames.
//
// Firing is edge-triggered: a label that fired stays latched until a frame
// with any other label arrives, so a gesture held without a break fires
// once however long it is held.
type Debouncer struct {
	cfg Config

	candidate gesture.Label
	since     time.Time
	latched   gesture.Label

	lastFired   map[gesture.Label]time.Time
	noHandSince time.Time
}

// New creates a Debouncer. Invalid timings are rejected.
func New(cfg Config) (*Debouncer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cooldowns := make(map[gesture.Label]time.Duration, len(cfg.Cooldowns))
	for l, d := range cfg.Cooldowns {
		cooldowns[l] = d
	}
	cfg.Cooldowns = cooldowns

	return &Debouncer{
		cfg:       cfg,
		lastFired: make(map[gesture.Label]time.Time),
	}, nil
}

// Config returns the timings the debouncer runs with.
func (d *Debouncer) Config() Config {
	return d.cfg
}

// Update feeds one frame's label observed at now. It returns the command to
// fire, if this frame confirmed a gesture. Passing a zero time is a
// programming error and panics.
func (d *Debouncer) Update(label gesture.Label, now time.Time) (Command, bool) {
	if now.IsZero() {
		panic(errZeroTime)
	}

	if label != d.latched {
		d.latched = ""
	}

	if label == gesture.NoHand {
		d.clearCandidate()
		if d.noHandSince.IsZero() {
			d.noHandSince = now
		} else if now.Sub(d.noHandSince) > d.cfg.Grace {
			clear(d.lastFired)
		}
		return "", false
	}
	// The hand may come back without a second no-hand frame after a gap.
	if !d.noHandSince.IsZero() && now.Sub(d.noHandSince) > d.cfg.Grace {
		clear(d.lastFired)
	}
	d.noHandSince = time.Time{}

	cmd, ok := CommandFor(label)
	if !ok {
		// Unknown and the continuous pinch never fire and break any hold.
		d.clearCandidate()
		return "", false
	}
	if label == d.latched {
		return "", false
	}

	if d.coolingDown(label, now) {
		d.clearCandidate()
		return "", false
	}

	if d.candidate != label {
		d.candidate = label
		d.since = now
	}

	if now.Sub(d.since) < d.cfg.Dwell {
		return "", false
	}

	d.lastFired[label] = now
	d.latched = label
	d.clearCandidate()
	return cmd, true
}

// State reports where label sits at time now.
func (d *Debouncer) State(label gesture.Label, now time.Time) SlotState {
	if d.candidate == label && label != "" {
		return Candidate
	}
	if d.coolingDown(label, now) {
		return Cooldown
	}
	return Idle
}

// Candidate returns the label currently being held and when the hold
// started. ok is false when nothing is held.
func (d *Debouncer) Candidate() (label gesture.Label, since time.Time, ok bool) {
	if d.candidate == "" {
		return "", time.Time{}, false
	}
	return d.candidate, d.since, true
}

// Latched returns the label that fired and has been held since, if any.
func (d *Debouncer) Latched() (gesture.Label, bool) {
	return d.latched, d.latched != ""
}

// Reset drops the candidate, the latch, every cooldown and the no-hand
// timer.
func (d *Debouncer) Reset() {
	d.clearCandidate()
	d.latched = ""
	clear(d.lastFired)
	d.noHandSince = time.Time{}
}

func (d *Debouncer) coolingDown(label gesture.Label, now time.Time) bool {
	fired, ok := d.lastFired[label]
	if !ok {
		return false
	}
	return now.Sub(fired) < d.cfg.CooldownFor(label)
}

func (d *Debouncer) clearCandidate() {
	d.candidate = ""
	d.since = time.Time{}
}
