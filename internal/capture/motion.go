package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// MotionConfig tunes frame differencing. Threshold is the percentage of
// pixels that must change between frames to count as motion.
type MotionConfig struct {
	Threshold     float64
	BlurSize      int
	DiffThreshold float32
}

// DefaultMotionConfig flags motion when more than 1% of pixels change.
func DefaultMotionConfig() MotionConfig {
	return MotionConfig{
		Threshold:     1.0,
		BlurSize:      21,
		DiffThreshold: 25,
	}
}

// MotionDetector compares each frame with the previous one after
// converting to gray and blurring away sensor noise.
type MotionDetector struct {
	mu      sync.Mutex
	cfg     MotionConfig
	prev    gocv.Mat
	hasPrev bool
}

// NewMotionDetector fills zero fields of cfg from the defaults. BlurSize is
// forced odd.
func NewMotionDetector(cfg MotionConfig) *MotionDetector {
	def := DefaultMotionConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.BlurSize <= 0 {
		cfg.BlurSize = def.BlurSize
	}
	if cfg.BlurSize%2 == 0 {
		cfg.BlurSize++
	}
	if cfg.DiffThreshold <= 0 {
		cfg.DiffThreshold = def.DiffThreshold
	}
	return &MotionDetector{cfg: cfg, prev: gocv.NewMat()}
}

// Detect reports whether frame differs from the previous one and by what
// percentage of pixels. The first frame only sets the baseline.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	k := m.cfg.BlurSize
	gocv.GaussianBlur(gray, &blurred, image.Point{X: k, Y: k}, 0, 0, gocv.BorderDefault)

	if !m.hasPrev || m.prev.Rows() != blurred.Rows() || m.prev.Cols() != blurred.Cols() {
		blurred.CopyTo(&m.prev)
		m.hasPrev = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.prev, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, m.cfg.DiffThreshold, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(mask)) / float64(mask.Rows()*mask.Cols()) * 100
	blurred.CopyTo(&m.prev)

	return changed > m.cfg.Threshold, changed
}

// Threshold returns the motion threshold in percent.
func (m *MotionDetector) Threshold() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.Threshold
}

// SetThreshold changes the motion threshold. Values <= 0 are ignored.
func (m *MotionDetector) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.Threshold = threshold
}

// Reset forgets the baseline; the next frame becomes the new one.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hasPrev = false
}

// Close releases the baseline. A later Detect starts over.
func (m *MotionDetector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hasPrev || !m.prev.Empty() {
		m.prev.Close()
		m.prev = gocv.NewMat()
	}
	m.hasPrev = false
}
