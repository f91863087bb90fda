package gesture

import (
	"math"
	"strings"

	"github.com/Kazeku-06/gesture-media-control/internal/detector"
)

// Finger indices into a FingerState.
const (
	Thumb = iota
	Index
	Middle
	Ring
	Pinky
)

// FingerState holds extended (true) or curled (false) for thumb..pinky.
type FingerState [5]bool

// Count returns how many fingers are extended.
func (s FingerState) Count() int {
	n := 0
	for _, ext := range s {
		if ext {
			n++
		}
	}
	return n
}

// String renders the state as five digits, thumb first, e.g. "01100".
func (s FingerState) String() string {
	var b strings.Builder
	for _, ext := range s {
		if ext {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// Distance is the Euclidean distance between two landmarks in the image
// plane. Depth is ignored; MediaPipe's z is too noisy to help here.
func Distance(p, q detector.Point3D) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// PalmSize is the wrist to middle-knuckle distance. All margins are
// expressed as a fraction of it so the rules hold at any camera distance.
func PalmSize(h *detector.Hand) float64 {
	return Distance(h.Points[detector.Wrist], h.Points[detector.MiddleMCP])
}

// FingerStates classifies every finger as extended or curled.
//
// Index..pinky are extended when the tip is farther from the wrist than the
// PIP joint by more than margin×palm. The thumb folds across the palm rather
// than toward the wrist, so it is measured against the index knuckle: the
// thumb tip must be farther from it than the thumb IP joint.
func FingerStates(h *detector.Hand, margin float64) FingerState {
	var s FingerState
	m := margin * PalmSize(h)

	anchor := h.Points[detector.IndexMCP]
	s[Thumb] = Distance(h.Points[detector.ThumbTip], anchor)-Distance(h.Points[detector.ThumbIP], anchor) > m

	wrist := h.Points[detector.Wrist]
	for f := Index; f <= Pinky; f++ {
		tip := detector.Tip(f)
		pip := tip - 2
		s[f] = Distance(h.Points[tip], wrist)-Distance(h.Points[pip], wrist) > m
	}
	return s
}

// PalmOpen reports whether the hand is an upright, spread palm: every
// fingertip above the wrist and the index and pinky tips at least
// spread×palm apart.
func PalmOpen(h *detector.Hand, spread float64) bool {
	wrist := h.Points[detector.Wrist]
	for f := Index; f <= Pinky; f++ {
		if h.Points[detector.Tip(f)].Y >= wrist.Y {
			return false
		}
	}
	return Distance(h.Points[detector.IndexTip], h.Points[detector.PinkyTip]) >= spread*PalmSize(h)
}

// ThumbPointsDown reports whether the thumb tip sits below the wrist by more
// than margin×palm. Image y grows downward.
func ThumbPointsDown(h *detector.Hand, margin float64) bool {
	return h.Points[detector.ThumbTip].Y-h.Points[detector.Wrist].Y > margin*PalmSize(h)
}

// PinchDistance is the thumb tip to index tip distance.
func PinchDistance(h *detector.Hand) float64 {
	return Distance(h.Points[detector.ThumbTip], h.Points[detector.IndexTip])
}
