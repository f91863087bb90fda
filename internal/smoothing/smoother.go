// Package smoothing filters the continuous pinch control into a stable
// 0..100 level.
package smoothing

import (
	"fmt"
	"time"
)

const (
	MinLevel = 0.0
	MaxLevel = 100.0
)

// Smoother applies exponential smoothing, output = α·raw + (1-α)·previous.
// The weight is per sample, not per second, so the response follows the
// rate at which samples arrive. Not safe for concurrent use.
type Smoother struct {
	alpha       float64
	holdTimeout time.Duration

	value      float64
	seeded     bool
	lastSample time.Time
}

// New creates a Smoother. alpha must be in (0, 1]; holdTimeout must not be
// negative.
func New(alpha float64, holdTimeout time.Duration) (*Smoother, error) {
	if !(alpha > 0 && alpha <= 1) {
		return nil, fmt.Errorf("smoothing alpha must be in (0, 1], got %v", alpha)
	}
	if holdTimeout < 0 {
		return nil, fmt.Errorf("hold timeout must be >= 0, got %s", holdTimeout)
	}
	return &Smoother{alpha: alpha, holdTimeout: holdTimeout}, nil
}

// Update blends a raw sample into the output and returns the new output.
// raw is clamped to [0, 100] first. The first sample ever seeds the output
// directly. After a pause longer than the hold timeout the output has been
// parked at its last value, and blending simply resumes from there.
func (s *Smoother) Update(raw float64, now time.Time) float64 {
	raw = Clamp(raw)
	if !s.seeded {
		s.value = raw
		s.seeded = true
	} else {
		s.value = s.alpha*raw + (1-s.alpha)*s.value
	}
	s.lastSample = now
	return s.value
}

// Value returns the current output without changing it.
func (s *Smoother) Value() float64 {
	return s.value
}

// Seeded reports whether any sample has been seen since construction or
// the last Reset.
func (s *Smoother) Seeded() bool {
	return s.seeded
}

// Parked reports whether no sample has arrived for longer than the hold
// timeout. A parked smoother keeps returning its last value.
func (s *Smoother) Parked(now time.Time) bool {
	if !s.seeded {
		return true
	}
	return now.Sub(s.lastSample) > s.holdTimeout
}

// Set forces the output, e.g. to the level last persisted. The next sample
// blends from it.
func (s *Smoother) Set(v float64) {
	s.value = Clamp(v)
	s.seeded = true
}

// Reset forgets all history; the next sample seeds the output again.
func (s *Smoother) Reset() {
	s.value = 0
	s.seeded = false
	s.lastSample = time.Time{}
}

// Clamp limits v to [0, 100].
func Clamp(v float64) float64 {
	if v < MinLevel {
		return MinLevel
	}
	if v > MaxLevel {
		return MaxLevel
	}
	return v
}

// PinchToLevel maps a pinch distance linearly from [near, far] onto
// [0, 100], clamped at both ends. A degenerate range maps everything at or
// beyond far to 100 and the rest to 0.
func PinchToLevel(d, near, far float64) float64 {
	if far <= near {
		if d >= far {
			return MaxLevel
		}
		return MinLevel
	}
	return Clamp((d - near) / (far - near) * MaxLevel)
}
