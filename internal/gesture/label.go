// Package gesture classifies a single frame's hand landmarks into one of a
// fixed set of control gestures.
package gesture

// Label is the gesture recognised in one frame.
type Label string

const (
	NoHand      Label = "no_hand"
	OpenPalm    Label = "open_palm"
	ClosedFist  Label = "closed_fist"
	Peace       Label = "peace"
	OkSign      Label = "ok_sign"
	ThumbDown   Label = "thumb_down"
	PinchVolume Label = "pinch_volume"
	Unknown     Label = "unknown"
)

// Labels lists every label in classifier priority order.
var Labels = []Label{ClosedFist, OpenPalm, OkSign, PinchVolume, Peace, ThumbDown, NoHand, Unknown}

// Discrete reports whether the label can trigger a one-shot command.
func (l Label) Discrete() bool {
	switch l {
	case OpenPalm, ClosedFist, Peace, OkSign, ThumbDown:
		return true
	}
	return false
}

// Valid reports whether l is one of the known labels.
func (l Label) Valid() bool {
	for _, known := range Labels {
		if l == known {
			return true
		}
	}
	return false
}

// ParseLabel converts a stored name back into a Label.
func ParseLabel(s string) (Label, bool) {
	l := Label(s)
	return l, l.Valid()
}
