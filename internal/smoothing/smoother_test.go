package smoothing

import (
	"math"
	"testing"
	"time"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newSmoother(t *testing.T, alpha float64) *Smoother {
	t.Helper()
	s, err := New(alpha, time.Second)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestNew_Validation(t *testing.T) {
	for _, alpha := range []float64{0, -0.1, 1.01, math.NaN()} {
		if _, err := New(alpha, time.Second); err == nil {
			t.Errorf("alpha %v: expected error", alpha)
		}
	}
	if _, err := New(0.5, -time.Second); err == nil {
		t.Error("negative hold timeout: expected error")
	}
	if _, err := New(1, 0); err != nil {
		t.Errorf("alpha 1: unexpected error %v", err)
	}
}

func TestSmoother_ConvergesWithoutOvershoot(t *testing.T) {
	for _, alpha := range []float64{0.05, 0.3, 0.5, 0.9, 1} {
		for _, target := range []float64{0, 37.5, 100} {
			s := newSmoother(t, alpha)
			s.Update(100-target, t0) // seed far from the target

			prevGap := math.Abs(s.Value() - target)
			for i := 1; i <= 500; i++ {
				v := s.Update(target, t0.Add(time.Duration(i)*33*time.Millisecond))
				if (target >= 50 && v > target+1e-9) || (target < 50 && v < target-1e-9) {
					t.Fatalf("alpha %v target %v: overshoot to %v", alpha, target, v)
				}
				gap := math.Abs(v - target)
				if gap > prevGap+1e-9 {
					t.Fatalf("alpha %v target %v: moved away from target", alpha, target)
				}
				prevGap = gap
			}
			if prevGap > 1e-6 {
				t.Errorf("alpha %v target %v: did not converge, gap %v", alpha, target, prevGap)
			}
		}
	}
}

func TestSmoother_FirstSampleSeeds(t *testing.T) {
	s := newSmoother(t, 0.3)
	if got := s.Update(62, t0); got != 62 {
		t.Errorf("expected first sample to seed 62, got %v", got)
	}
	if got := s.Update(72, t0.Add(time.Millisecond)); math.Abs(got-65) > 1e-9 {
		t.Errorf("expected 0.3*72 + 0.7*62 = 65, got %v", got)
	}
}

func TestSmoother_ClampsRaw(t *testing.T) {
	s := newSmoother(t, 1)
	if got := s.Update(140, t0); got != 100 {
		t.Errorf("expected 100, got %v", got)
	}
	if got := s.Update(-3, t0); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
}

func TestSmoother_PinchRampIsMonotonic(t *testing.T) {
	const near, far = 0.05, 0.30
	s := newSmoother(t, 0.3)

	// Ramp from a little before near to a little past far.
	steps := 60
	prev := -1.0
	var first, last float64
	for i := 0; i <= steps; i++ {
		d := 0.03 + (0.33-0.03)*float64(i)/float64(steps)
		v := s.Update(PinchToLevel(d, near, far), t0.Add(time.Duration(i)*33*time.Millisecond))
		if v < prev-1e-9 {
			t.Fatalf("step %d: output decreased from %v to %v", i, prev, v)
		}
		if i == 0 {
			first = v
		}
		prev = v
		last = v
	}
	if first != 0 {
		t.Errorf("expected the ramp to start at 0, got %v", first)
	}

	// Hold at the far end until settled.
	for i := 0; i < 100; i++ {
		last = s.Update(PinchToLevel(far, near, far), t0.Add(time.Duration(steps+i)*33*time.Millisecond))
	}
	if math.Abs(last-100) > 1e-6 {
		t.Errorf("expected the ramp to land at 100, got %v", last)
	}
}

func TestSmoother_ParkedHoldsValue(t *testing.T) {
	s := newSmoother(t, 0.5)
	if !s.Parked(t0) {
		t.Error("an unseeded smoother is parked")
	}

	s.Update(80, t0)
	if s.Parked(t0.Add(900 * time.Millisecond)) {
		t.Error("expected active within hold timeout")
	}
	later := t0.Add(5 * time.Second)
	if !s.Parked(later) {
		t.Error("expected parked after hold timeout")
	}
	if s.Value() != 80 {
		t.Errorf("parked value should stay 80, got %v", s.Value())
	}

	// Blending resumes from the parked value, not from zero.
	if got := s.Update(40, later); got != 60 {
		t.Errorf("expected 0.5*40 + 0.5*80 = 60, got %v", got)
	}
}

func TestSmoother_SetAndReset(t *testing.T) {
	s := newSmoother(t, 0.5)
	s.Set(120)
	if s.Value() != 100 || !s.Seeded() {
		t.Errorf("expected clamped seeded 100, got %v", s.Value())
	}
	if got := s.Update(0, t0); got != 50 {
		t.Errorf("expected blend from set value, got %v", got)
	}

	s.Reset()
	if s.Seeded() {
		t.Error("expected unseeded after reset")
	}
	if got := s.Update(30, t0); got != 30 {
		t.Errorf("expected reseed to 30, got %v", got)
	}
}

func TestPinchToLevel(t *testing.T) {
	tests := []struct {
		name         string
		d, near, far float64
		want         float64
	}{
		{"at near", 0.05, 0.05, 0.30, 0},
		{"below near", 0.01, 0.05, 0.30, 0},
		{"at far", 0.30, 0.05, 0.30, 100},
		{"beyond far", 0.9, 0.05, 0.30, 100},
		{"middle", 0.175, 0.05, 0.30, 50},
		{"degenerate below", 0.1, 0.2, 0.2, 0},
		{"degenerate at", 0.2, 0.2, 0.2, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PinchToLevel(tt.d, tt.near, tt.far); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("PinchToLevel = %v, want %v", got, tt.want)
			}
		})
	}
}
