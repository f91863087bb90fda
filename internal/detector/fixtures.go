package detector

// Synthetic hands for tests and demos. All fixtures share one upright right
// hand: wrist at (0.50, 0.85), middle knuckle at (0.50, 0.65), so the palm
// size (wrist to middle MCP) is 0.20.

var fixtureMCP = [5]Point3D{
	{X: 0.63, Y: 0.76}, // thumb MCP
	{X: 0.56, Y: 0.66},
	{X: 0.50, Y: 0.65},
	{X: 0.44, Y: 0.66},
	{X: 0.38, Y: 0.68},
}

// extended PIP, DIP, tip for index..pinky, fanning slightly outward.
var fixtureExtended = [4][3]Point3D{
	{{X: 0.57, Y: 0.58}, {X: 0.585, Y: 0.52}, {X: 0.60, Y: 0.46}},
	{{X: 0.50, Y: 0.57}, {X: 0.50, Y: 0.51}, {X: 0.50, Y: 0.45}},
	{{X: 0.43, Y: 0.58}, {X: 0.415, Y: 0.52}, {X: 0.40, Y: 0.46}},
	{{X: 0.36, Y: 0.61}, {X: 0.34, Y: 0.555}, {X: 0.32, Y: 0.50}},
}

// FingersHand builds a hand with each finger either extended or curled.
// An extended thumb points sideways, away from the palm.
func FingersHand(thumb, index, middle, ring, pinky bool) Hand {
	h := Hand{Handedness: "Right", Score: 0.95}
	h.Points[Wrist] = Point3D{X: 0.50, Y: 0.85}
	h.Points[ThumbCMC] = Point3D{X: 0.58, Y: 0.80}

	if thumb {
		h.Points[ThumbMCP] = Point3D{X: 0.64, Y: 0.74}
		h.Points[ThumbIP] = Point3D{X: 0.70, Y: 0.68}
		h.Points[ThumbTip] = Point3D{X: 0.76, Y: 0.62}
	} else {
		// tucked across the index knuckle
		h.Points[ThumbMCP] = fixtureMCP[0]
		h.Points[ThumbIP] = Point3D{X: 0.62, Y: 0.72}
		h.Points[ThumbTip] = Point3D{X: 0.54, Y: 0.70}
	}

	for i, ext := range []bool{index, middle, ring, pinky} {
		finger := i + 1
		mcp := fixtureMCP[finger]
		base := IndexMCP + 4*i
		h.Points[base] = mcp
		if ext {
			h.Points[base+1] = fixtureExtended[i][0]
			h.Points[base+2] = fixtureExtended[i][1]
			h.Points[base+3] = fixtureExtended[i][2]
			continue
		}
		h.Points[base+1] = Point3D{X: mcp.X, Y: mcp.Y - 0.06}
		h.Points[base+2] = Point3D{X: mcp.X, Y: mcp.Y - 0.02}
		h.Points[base+3] = Point3D{X: mcp.X, Y: mcp.Y + 0.05}
	}
	return h
}

// PinchHand builds the thumb+index pose with the thumb tip placed exactly
// d away from the index tip, down and toward the thumb side. Distances
// from 0 to 0.30 keep the thumb classified as extended.
func PinchHand(d float64) Hand {
	h := FingersHand(true, true, false, false, false)
	tip := h.Points[IndexTip]
	h.Points[ThumbIP] = Point3D{X: 0.68, Y: 0.66}
	h.Points[ThumbTip] = Point3D{X: tip.X + 0.6*d, Y: tip.Y + 0.8*d}
	return h
}

// FistHand is every finger curled.
func FistHand() Hand { return FingersHand(false, false, false, false, false) }

// OpenPalmHand is every finger extended and spread.
func OpenPalmHand() Hand { return FingersHand(true, true, true, true, true) }

// PeaceHand is index and middle extended.
func PeaceHand() Hand { return FingersHand(false, true, true, false, false) }

// OkSignHand is the thumb+index pose with the tips nearly touching.
func OkSignHand() Hand { return PinchHand(0.02) }

// ThumbDownHand is a fist with the thumb extended below the wrist.
func ThumbDownHand() Hand {
	h := FistHand()
	h.Points[ThumbMCP] = Point3D{X: 0.60, Y: 0.86}
	h.Points[ThumbIP] = Point3D{X: 0.61, Y: 0.92}
	h.Points[ThumbTip] = Point3D{X: 0.62, Y: 0.98}
	return h
}

// ThumbsUpLandmarks is a recorded-looking thumbs up: thumb extended upward,
// other fingers curled. It is not one of the control gestures.
func ThumbsUpLandmarks() Hand {
	h := Hand{Handedness: "Right", Score: 0.95}

	h.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	h.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.0}
	h.Points[ThumbMCP] = Point3D{X: 0.58, Y: 0.65, Z: 0.0}
	h.Points[ThumbIP] = Point3D{X: 0.58, Y: 0.50, Z: 0.0}
	h.Points[ThumbTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	h.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.70, Z: -0.02}
	h.Points[IndexPIP] = Point3D{X: 0.55, Y: 0.68, Z: -0.05}
	h.Points[IndexDIP] = Point3D{X: 0.52, Y: 0.70, Z: -0.04}
	h.Points[IndexTip] = Point3D{X: 0.50, Y: 0.72, Z: -0.02}

	h.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.68, Z: -0.02}
	h.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.66, Z: -0.05}
	h.Points[MiddleDIP] = Point3D{X: 0.47, Y: 0.68, Z: -0.04}
	h.Points[MiddleTip] = Point3D{X: 0.45, Y: 0.70, Z: -0.02}

	h.Points[RingMCP] = Point3D{X: 0.45, Y: 0.70, Z: -0.02}
	h.Points[RingPIP] = Point3D{X: 0.45, Y: 0.68, Z: -0.05}
	h.Points[RingDIP] = Point3D{X: 0.42, Y: 0.70, Z: -0.04}
	h.Points[RingTip] = Point3D{X: 0.40, Y: 0.72, Z: -0.02}

	h.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.72, Z: -0.02}
	h.Points[PinkyPIP] = Point3D{X: 0.40, Y: 0.70, Z: -0.05}
	h.Points[PinkyDIP] = Point3D{X: 0.37, Y: 0.72, Z: -0.04}
	h.Points[PinkyTip] = Point3D{X: 0.35, Y: 0.74, Z: -0.02}

	return h
}

// OpenPalmLandmarks is a recorded-looking open palm with a different scale
// and position from the synthetic fixtures.
func OpenPalmLandmarks() Hand {
	h := Hand{Handedness: "Right", Score: 0.95}

	h.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	h.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	h.Points[ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	h.Points[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	h.Points[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	h.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	h.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.55, Z: 0.0}
	h.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.45, Z: 0.0}
	h.Points[IndexTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	h.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.0}
	h.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.52, Z: 0.0}
	h.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.40, Z: 0.0}
	h.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.28, Z: 0.0}

	h.Points[RingMCP] = Point3D{X: 0.45, Y: 0.68, Z: 0.0}
	h.Points[RingPIP] = Point3D{X: 0.43, Y: 0.55, Z: 0.0}
	h.Points[RingDIP] = Point3D{X: 0.42, Y: 0.45, Z: 0.0}
	h.Points[RingTip] = Point3D{X: 0.42, Y: 0.35, Z: 0.0}

	h.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.70, Z: 0.0}
	h.Points[PinkyPIP] = Point3D{X: 0.37, Y: 0.60, Z: 0.0}
	h.Points[PinkyDIP] = Point3D{X: 0.35, Y: 0.50, Z: 0.0}
	h.Points[PinkyTip] = Point3D{X: 0.34, Y: 0.42, Z: 0.0}

	return h
}
