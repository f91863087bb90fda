package gesture

import (
	"testing"

	"github.com/Kazeku-06/gesture-media-control/internal/detector"
)

func hand(h detector.Hand) *detector.Hand { return &h }

func TestClassifier_Classify(t *testing.T) {
	c := NewClassifier(DefaultThresholds())

	tests := []struct {
		name string
		hand *detector.Hand
		want Label
	}{
		{"no hand", nil, NoHand},
		{"fist", hand(detector.FistHand()), ClosedFist},
		{"open palm", hand(detector.OpenPalmHand()), OpenPalm},
		{"recorded open palm", hand(detector.OpenPalmLandmarks()), OpenPalm},
		{"peace", hand(detector.PeaceHand()), Peace},
		{"ok sign", hand(detector.OkSignHand()), OkSign},
		{"pinch just above threshold", hand(detector.PinchHand(0.06)), PinchVolume},
		{"wide pinch", hand(detector.PinchHand(0.25)), PinchVolume},
		{"thumb down", hand(detector.ThumbDownHand()), ThumbDown},
		{"thumb sideways", hand(detector.FingersHand(true, false, false, false, false)), Unknown},
		{"thumbs up", hand(detector.ThumbsUpLandmarks()), Unknown},
		{"three fingers", hand(detector.FingersHand(false, true, true, true, false)), Unknown},
		{"collapsed hand", &detector.Hand{}, Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.hand); got != tt.want {
				_, f := c.Explain(tt.hand)
				t.Errorf("Classify = %s, want %s (fingers %s, pinch %.3f)", got, tt.want, f.Fingers, f.Pinch)
			}
		})
	}
}

func TestClassifier_PinchThresholdConfigurable(t *testing.T) {
	th := DefaultThresholds()
	th.Pinch = 0.25
	c := NewClassifier(th)

	if got := c.Classify(hand(detector.PinchHand(0.2))); got != OkSign {
		t.Errorf("expected ok_sign below raised threshold, got %s", got)
	}
	if got := c.Classify(hand(detector.PinchHand(0.27))); got != PinchVolume {
		t.Errorf("expected pinch_volume above raised threshold, got %s", got)
	}
}

func TestClassifier_OpenPalmNeedsSpread(t *testing.T) {
	th := DefaultThresholds()
	th.PalmSpread = 2.0
	c := NewClassifier(th)

	if got := c.Classify(hand(detector.OpenPalmHand())); got != Unknown {
		t.Errorf("expected unknown for a narrow palm, got %s", got)
	}
}

func TestClassifier_Rules(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	rules := c.Rules()

	if len(rules) != len(Labels) {
		t.Fatalf("expected %d rules, got %d", len(Labels), len(rules))
	}
	for i, r := range rules {
		if r.Label != Labels[i] {
			t.Errorf("rule %d: label %s, want %s", i, r.Label, Labels[i])
		}
	}

	rules[0].Label = Unknown
	if c.Rules()[0].Label != ClosedFist {
		t.Error("Rules should return a copy")
	}

	t.Run("last rule matches everything", func(t *testing.T) {
		last := rules[len(rules)-1]
		if !last.Match(Features{}) || !last.Match(Features{Present: true, PalmSize: 1}) {
			t.Error("fallback rule should always match")
		}
	})

	t.Run("no rule before no_hand matches a missing hand", func(t *testing.T) {
		for _, r := range rules {
			if r.Label == NoHand {
				break
			}
			if r.Match(Features{}) {
				t.Errorf("rule %s matched a missing hand", r.Name)
			}
		}
	})

	t.Run("first matching rule per fixture", func(t *testing.T) {
		fixtures := map[string]detector.Hand{
			"closed_fist":  detector.FistHand(),
			"open_palm":    detector.OpenPalmHand(),
			"ok_sign":      detector.OkSignHand(),
			"pinch_volume": detector.PinchHand(0.15),
			"peace":        detector.PeaceHand(),
			"thumb_down":   detector.ThumbDownHand(),
		}
		for name, h := range fixtures {
			f := c.Features(&h)
			for _, r := range rules {
				if r.Match(f) {
					if r.Name != name {
						t.Errorf("fixture %s: first match %s", name, r.Name)
					}
					break
				}
			}
		}
	})
}

func TestLabel(t *testing.T) {
	discrete := map[Label]bool{
		OpenPalm: true, ClosedFist: true, Peace: true, OkSign: true, ThumbDown: true,
		PinchVolume: false, NoHand: false, Unknown: false,
	}
	for l, want := range discrete {
		if l.Discrete() != want {
			t.Errorf("%s.Discrete() = %v", l, !want)
		}
	}

	if _, ok := ParseLabel("peace"); !ok {
		t.Error("expected peace to parse")
	}
	if _, ok := ParseLabel("thumbs_up"); ok {
		t.Error("expected thumbs_up to be rejected")
	}
}
