package gesture

import "github.com/Kazeku-06/gesture-media-control/internal/detector"

// Thresholds are the geometric tuning values. Margins and spread are
// fractions of the palm size; Pinch is in normalized image units.
type Thresholds struct {
	ExtensionMargin float64
	ThumbDownMargin float64
	PalmSpread      float64
	Pinch           float64
}

// DefaultThresholds returns the thresholds used when none are configured.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ExtensionMargin: 0.10,
		ThumbDownMargin: 0.25,
		PalmSpread:      0.9,
		Pinch:           0.05,
	}
}

// Features is everything the rules look at for one frame.
type Features struct {
	Present   bool        `json:"present"`
	PalmSize  float64     `json:"palm_size"`
	Fingers   FingerState `json:"fingers"`
	PalmOpen  bool        `json:"palm_open"`
	ThumbDown bool        `json:"thumb_down"`
	Pinch     float64     `json:"pinch"`
}

// usable is false for a missing hand or one collapsed to a point.
func (f Features) usable() bool {
	return f.Present && f.PalmSize > 0
}

// Rule maps a feature predicate to a label. Rules are evaluated in order
// and the first match wins.
type Rule struct {
	Name  string
	Label Label
	Match func(Features) bool
}

var (
	allCurled   = FingerState{}
	allExtended = FingerState{true, true, true, true, true}
	thumbIndex  = FingerState{Thumb: true, Index: true}
	indexMiddle = FingerState{Index: true, Middle: true}
	thumbOnly   = FingerState{Thumb: true}
)

// DefaultRules builds the ordered rule table for the given thresholds.
// Several finger patterns overlap in raw geometry, so order is the
// tie-break: a pinch closed below the threshold is OkSign, open is
// PinchVolume.
func DefaultRules(th Thresholds) []Rule {
	return []Rule{
		{
			Name:  "closed_fist",
			Label: ClosedFist,
			Match: func(f Features) bool { return f.usable() && f.Fingers == allCurled },
		},
		{
			Name:  "open_palm",
			Label: OpenPalm,
			Match: func(f Features) bool { return f.usable() && f.Fingers == allExtended && f.PalmOpen },
		},
		{
			Name:  "ok_sign",
			Label: OkSign,
			Match: func(f Features) bool { return f.usable() && f.Fingers == thumbIndex && f.Pinch < th.Pinch },
		},
		{
			Name:  "pinch_volume",
			Label: PinchVolume,
			Match: func(f Features) bool { return f.usable() && f.Fingers == thumbIndex && f.Pinch >= th.Pinch },
		},
		{
			Name:  "peace",
			Label: Peace,
			Match: func(f Features) bool { return f.usable() && f.Fingers == indexMiddle },
		},
		{
			Name:  "thumb_down",
			Label: ThumbDown,
			Match: func(f Features) bool { return f.usable() && f.Fingers == thumbOnly && f.ThumbDown },
		},
		{
			Name:  "no_hand",
			Label: NoHand,
			Match: func(f Features) bool { return !f.Present },
		},
		{
			Name:  "unknown",
			Label: Unknown,
			Match: func(Features) bool { return true },
		},
	}
}

// Classifier turns one hand into one label. It holds no per-frame state
// and is safe for concurrent use.
type Classifier struct {
	th    Thresholds
	rules []Rule
}

// NewClassifier creates a classifier with the default rule table.
func NewClassifier(th Thresholds) *Classifier {
	return &Classifier{th: th, rules: DefaultRules(th)}
}

// Thresholds returns the thresholds the classifier was built with.
func (c *Classifier) Thresholds() Thresholds {
	return c.th
}

// Rules returns a copy of the rule table in evaluation order.
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Features extracts the rule inputs from a hand. A nil hand yields
// Features with Present unset.
func (c *Classifier) Features(h *detector.Hand) Features {
	if h == nil {
		return Features{}
	}
	f := Features{Present: true, PalmSize: PalmSize(h)}
	if f.PalmSize <= 0 {
		return f
	}
	f.Fingers = FingerStates(h, c.th.ExtensionMargin)
	f.PalmOpen = PalmOpen(h, c.th.PalmSpread)
	f.ThumbDown = ThumbPointsDown(h, c.th.ThumbDownMargin)
	f.Pinch = PinchDistance(h)
	return f
}

// Classify returns the label for a hand; nil means no hand this frame.
// It never fails: anything unmatched is Unknown.
func (c *Classifier) Classify(h *detector.Hand) Label {
	l, _ := c.Explain(h)
	return l
}

// Explain is Classify plus the features that produced the label.
func (c *Classifier) Explain(h *detector.Hand) (Label, Features) {
	f := c.Features(h)
	return c.Match(f), f
}

// Match runs the rule table over precomputed features.
func (c *Classifier) Match(f Features) Label {
	for _, r := range c.rules {
		if r.Match(f) {
			return r.Label
		}
	}
	return Unknown
}
