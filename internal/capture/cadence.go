package capture

import (
	"fmt"
	"time"
)

// CadenceConfig sets the two read rates and how long the scene must be
// still before dropping back to the idle one.
type CadenceConfig struct {
	IdleFPS     int
	ActiveFPS   int
	IdleTimeout time.Duration
}

// DefaultCadenceConfig reads at 5 fps while idle and 15 fps while active.
func DefaultCadenceConfig() CadenceConfig {
	return CadenceConfig{
		IdleFPS:     5,
		ActiveFPS:   15,
		IdleTimeout: 2 * time.Second,
	}
}

func (c CadenceConfig) Validate() error {
	if c.IdleFPS <= 0 || c.ActiveFPS <= 0 {
		return fmt.Errorf("fps must be > 0, got idle %d active %d", c.IdleFPS, c.ActiveFPS)
	}
	if c.IdleFPS > c.ActiveFPS {
		return fmt.Errorf("idle fps %d exceeds active fps %d", c.IdleFPS, c.ActiveFPS)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("idle timeout must be >= 0, got %s", c.IdleTimeout)
	}
	return nil
}

// Cadence switches between idle and active reading from motion reports.
// It is driven by one goroutine.
type Cadence struct {
	cfg        CadenceConfig
	active     bool
	lastMotion time.Time
}

// NewCadence starts idle.
func NewCadence(cfg CadenceConfig) (*Cadence, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Cadence{cfg: cfg}, nil
}

// Observe records whether the latest frame moved. It reports the rate to
// read at and whether that rate just changed.
func (c *Cadence) Observe(motion bool, now time.Time) (fps int, changed bool) {
	switch {
	case motion:
		c.lastMotion = now
		if !c.active {
			c.active = true
			changed = true
		}
	case c.active && now.Sub(c.lastMotion) > c.cfg.IdleTimeout:
		c.active = false
		changed = true
	}
	return c.FPS(), changed
}

// Active reports whether the scene has moved within the idle timeout.
func (c *Cadence) Active() bool {
	return c.active
}

// FPS returns the current read rate.
func (c *Cadence) FPS() int {
	if c.active {
		return c.cfg.ActiveFPS
	}
	return c.cfg.IdleFPS
}

// Interval returns the time between reads at the current rate.
func (c *Cadence) Interval() time.Duration {
	return time.Second / time.Duration(c.FPS())
}

// Reset drops back to idle.
func (c *Cadence) Reset() {
	c.active = false
	c.lastMotion = time.Time{}
}
