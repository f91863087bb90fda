// Package sampler decides which camera frames get full classification when
// processing falls behind the frame budget.
package sampler

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Config tunes the sampler.
type Config struct {
	// Budget is the target processing time per frame.
	Budget time.Duration

	// MaxSkip caps consecutive skipped frames, so at worst one frame in
	// MaxSkip+1 is classified.
	MaxSkip int

	// Weight is the EWMA weight given to each new cost measurement.
	Weight float64
}

// DefaultConfig targets 30 fps.
func DefaultConfig() Config {
	return Config{
		Budget:  33 * time.Millisecond,
		MaxSkip: 3,
		Weight:  0.2,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Budget <= 0 {
		return fmt.Errorf("sampler budget must be > 0, got %s", c.Budget)
	}
	if c.MaxSkip < 0 {
		return fmt.Errorf("sampler max skip must be >= 0, got %d", c.MaxSkip)
	}
	if !(c.Weight > 0 && c.Weight <= 1) {
		return fmt.Errorf("sampler weight must be in (0, 1], got %v", c.Weight)
	}
	return nil
}

// Stats is a snapshot of the sampler.
type Stats struct {
	AvgCost   time.Duration `json:"avg_cost"`
	Stride    int           `json:"stride"`
	Processed uint64        `json:"processed"`
	Skipped   uint64        `json:"skipped"`
}

// Sampler gates frames by a rolling average of processing cost. It only
// decides which frames to classify; timing decisions downstream always use
// wall-clock timestamps, so skipping never shortens a dwell.
type Sampler struct {
	cfg Config

	mu        sync.Mutex
	avg       float64 // nanoseconds
	observed  bool
	stride    int
	sinceLast int
	processed uint64
	skipped   uint64
}

// New creates a Sampler.
func New(cfg Config) (*Sampler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Sampler{cfg: cfg, stride: 1}, nil
}

// ShouldProcess is called once per incoming frame and reports whether the
// frame should be classified. The first frame is always processed.
func (s *Sampler) ShouldProcess() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sinceLast++
	if s.processed == 0 || s.sinceLast >= s.stride {
		s.sinceLast = 0
		s.processed++
		return true
	}
	s.skipped++
	return false
}

// Observe records how long a processed frame took and recomputes the
// stride.
func (s *Sampler) Observe(cost time.Duration) {
	if cost < 0 {
		cost = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.observed {
		s.avg = float64(cost)
		s.observed = true
	} else {
		s.avg = s.cfg.Weight*float64(cost) + (1-s.cfg.Weight)*s.avg
	}

	stride := int(math.Ceil(s.avg / float64(s.cfg.Budget)))
	s.stride = max(1, min(stride, s.cfg.MaxSkip+1))
}

// Stats returns the current counters.
func (s *Sampler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		AvgCost:   time.Duration(s.avg),
		Stride:    s.stride,
		Processed: s.processed,
		Skipped:   s.skipped,
	}
}

// Reset clears the measurements and counters.
func (s *Sampler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.avg = 0
	s.observed = false
	s.stride = 1
	s.sinceLast = 0
	s.processed = 0
	s.skipped = 0
}
