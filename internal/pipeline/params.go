package pipeline

import (
	"fmt"
	"time"

	"github.com/Kazeku-06/gesture-media-control/internal/debounce"
	"github.com/Kazeku-06/gesture-media-control/internal/gesture"
	"github.com/Kazeku-06/gesture-media-control/internal/sampler"
	"github.com/Kazeku-06/gesture-media-control/internal/smoothing"
)

// Target is what the pinch continuum controls.
type Target string

const (
	TargetVolume     Target = "volume"
	TargetBrightness Target = "brightness"
)

// Valid reports whether t is a known target.
func (t Target) Valid() bool {
	return t == TargetVolume || t == TargetBrightness
}

// ParseTarget parses a target name.
func ParseTarget(s string) (Target, error) {
	t := Target(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown continuous target %q (want volume or brightness)", s)
	}
	return t, nil
}

// Params is the flat parameter set the pipeline is built from. Distances are
// in normalized image units, margins and spread are fractions of the palm
// size.
type Params struct {
	PinchThreshold  float64
	VolumeNear      float64
	VolumeFar       float64
	ExtensionMargin float64
	ThumbDownMargin float64
	PalmSpread      float64

	Dwell           time.Duration
	Grace           time.Duration
	DefaultCooldown time.Duration
	Cooldowns       map[gesture.Label]time.Duration

	Alpha       float64
	HoldTimeout time.Duration

	Target         Target
	UpdateInterval time.Duration
	MinDelta       float64

	FrameBudget time.Duration
	MaxSkip     int
	CostWeight  float64
}

// DefaultParams returns the documented defaults.
func DefaultParams() Params {
	th := gesture.DefaultThresholds()
	dc := debounce.DefaultConfig()
	sc := sampler.DefaultConfig()
	return Params{
		PinchThreshold:  th.Pinch,
		VolumeNear:      0.05,
		VolumeFar:       0.30,
		ExtensionMargin: th.ExtensionMargin,
		ThumbDownMargin: th.ThumbDownMargin,
		PalmSpread:      th.PalmSpread,

		Dwell:           dc.Dwell,
		Grace:           dc.Grace,
		DefaultCooldown: dc.DefaultCooldown,
		Cooldowns: map[gesture.Label]time.Duration{
			gesture.OkSign:     time.Second,
			gesture.Peace:      time.Second,
			gesture.ThumbDown:  time.Second,
			gesture.ClosedFist: time.Second,
			gesture.OpenPalm:   time.Second,
		},

		Alpha:       0.3,
		HoldTimeout: time.Second,

		Target:         TargetVolume,
		UpdateInterval: 50 * time.Millisecond,
		MinDelta:       1.0,

		FrameBudget: sc.Budget,
		MaxSkip:     sc.MaxSkip,
		CostWeight:  sc.Weight,
	}
}

// Thresholds returns the classifier thresholds.
func (p Params) Thresholds() gesture.Thresholds {
	return gesture.Thresholds{
		ExtensionMargin: p.ExtensionMargin,
		ThumbDownMargin: p.ThumbDownMargin,
		PalmSpread:      p.PalmSpread,
		Pinch:           p.PinchThreshold,
	}
}

// Debounce returns the debouncer timings.
func (p Params) Debounce() debounce.Config {
	return debounce.Config{
		Dwell:           p.Dwell,
		Grace:           p.Grace,
		Cooldowns:       p.Cooldowns,
		DefaultCooldown: p.DefaultCooldown,
	}
}

// Sampler returns the adaptive sampler settings.
func (p Params) Sampler() sampler.Config {
	return sampler.Config{
		Budget:  p.FrameBudget,
		MaxSkip: p.MaxSkip,
		Weight:  p.CostWeight,
	}
}

// Validate rejects parameter sets the pipeline cannot run with. The error
// names the offending parameter.
func (p Params) Validate() error {
	positive := []struct {
		name string
		v    float64
	}{
		{"pinch_threshold", p.PinchThreshold},
		{"volume_far", p.VolumeFar},
		{"extension_margin", p.ExtensionMargin},
		{"thumb_down_margin", p.ThumbDownMargin},
		{"palm_spread", p.PalmSpread},
	}
	for _, f := range positive {
		if !(f.v > 0) {
			return fmt.Errorf("%s must be > 0, got %v", f.name, f.v)
		}
	}
	if p.VolumeNear < 0 {
		return fmt.Errorf("volume_near must be >= 0, got %v", p.VolumeNear)
	}
	if p.VolumeNear >= p.VolumeFar {
		return fmt.Errorf("volume_near (%v) must be below volume_far (%v)", p.VolumeNear, p.VolumeFar)
	}

	if err := p.Debounce().Validate(); err != nil {
		return err
	}
	if _, err := smoothing.New(p.Alpha, p.HoldTimeout); err != nil {
		return err
	}

	if !p.Target.Valid() {
		return fmt.Errorf("unknown continuous target %q", p.Target)
	}
	if p.UpdateInterval < 0 {
		return fmt.Errorf("update_interval must be >= 0, got %s", p.UpdateInterval)
	}
	if p.MinDelta < 0 {
		return fmt.Errorf("min_delta must be >= 0, got %v", p.MinDelta)
	}

	return p.Sampler().Validate()
}
