// Package detector provides hand landmark tracking for the fingertip that
// plays the pads.
package detector

import (
	"math"

	"github.com/ayusman/paperdrum/internal/geometry"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point3D is a landmark. X and Y are normalized to the frame size, so
// (0,0) is the top-left and (1,1) the bottom-right of the unmirrored
// camera image. Z is relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// Tip returns landmark i as a normalized 2D point. ok is false when the
// coordinates are not finite.
func (h HandLandmarks) Tip(i int) (geometry.Point, bool) {
	if i < 0 || i >= NumLandmarks {
		return geometry.Point{}, false
	}
	p := h.Points[i]
	if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
		return geometry.Point{}, false
	}
	return geometry.Pt(p.X, p.Y), true
}

// IndexFingertip returns the normalized index fingertip of the first hand.
// ok is false when there is no hand or the landmark is unusable.
func IndexFingertip(hands []HandLandmarks) (geometry.Point, bool) {
	if len(hands) == 0 {
		return geometry.Point{}, false
	}
	return hands[0].Tip(IndexTip)
}
