package calibration

import (
	"errors"
	"fmt"
	"math"

	"gocv.io/x/gocv"

	"github.com/ayusman/paperdrum/internal/geometry"
)

// Config holds the sheet dimensions and acceptance threshold for calibration.
type Config struct {
	// SheetW and SheetH are the sheet dimensions in sheet units.
	SheetW float64
	SheetH float64
	// MaxRMS is the largest accepted round-trip error in overlay pixels.
	MaxRMS   float64
	Detector DetectorConfig
}

// DefaultConfig returns the default calibration configuration.
func DefaultConfig() Config {
	return Config{
		SheetW:   620,
		SheetH:   400,
		MaxRMS:   12,
		Detector: DefaultDetectorConfig(),
	}
}

// Calibration is one accepted overlay/sheet transform pair with the overlay
// corners it was computed from. It is immutable once built.
type Calibration struct {
	Forward Homography        `json:"forward"`
	Inverse Homography        `json:"inverse"`
	Corners [4]geometry.Point `json:"corners"`
	RMS     float64           `json:"rms"`
}

// ToSheet maps an overlay pixel to sheet coordinates.
func (c *Calibration) ToSheet(p geometry.Point) (geometry.Point, bool) {
	return c.Forward.Apply(p)
}

// ToOverlay maps a sheet coordinate to overlay pixels.
func (c *Calibration) ToOverlay(p geometry.Point) (geometry.Point, bool) {
	return c.Inverse.Apply(p)
}

// Estimate solves the forward transform (overlay corners to the sheet
// rectangle) and, independently, the inverse, then gates the pair on
// round-trip error. Every failure wraps ErrReprojectionRejected.
func (c Config) Estimate(corners [4]geometry.Point) (*Calibration, error) {
	sheet := SheetRect(c.SheetW, c.SheetH)

	fwd, err := SolveHomography(corners, sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: forward: %w", ErrReprojectionRejected, err)
	}
	inv, err := SolveHomography(sheet, corners)
	if err != nil {
		return nil, fmt.Errorf("%w: inverse: %w", ErrReprojectionRejected, err)
	}

	return gate(fwd, inv, corners, c.MaxRMS)
}

func gate(fwd, inv Homography, corners [4]geometry.Point, maxRMS float64) (*Calibration, error) {
	rms := ReprojectionRMS(fwd, inv, corners)
	if math.IsNaN(rms) || math.IsInf(rms, 0) || rms > maxRMS {
		return nil, fmt.Errorf("%w: rms %.2fpx exceeds %.2fpx", ErrReprojectionRejected, rms, maxRMS)
	}
	return &Calibration{Forward: fwd, Inverse: inv, Corners: corners, RMS: rms}, nil
}

// State is the current calibration. The forward transform, the inverse and
// the corners are replaced or cleared together. State is not safe for
// concurrent use; it belongs to the frame loop.
type State struct {
	current *Calibration
}

// Current returns the active calibration, or nil when uncalibrated.
func (s *State) Current() *Calibration {
	return s.current
}

// Calibrated reports whether a calibration is active.
func (s *State) Calibrated() bool {
	return s.current != nil
}

func (s *State) set(c *Calibration) {
	s.current = c
}

// Clear drops the active calibration.
func (s *State) Clear() {
	s.current = nil
}

// Calibrate detects fiducials in frame and updates s from them.
func (s *State) Calibrate(frame gocv.Mat, vp geometry.Viewport, cfg Config) (*Calibration, error) {
	return s.CalibrateCandidates(cfg.Detector.Detect(frame), vp, cfg)
}

// CalibrateCandidates selects corners from detected candidates, converts them
// to overlay pixels and estimates the transform.
//
// When too few fiducials are visible or no subset can be chosen the previous
// calibration is kept. When the estimated geometry is rejected the previous
// calibration is cleared.
func (s *State) CalibrateCandidates(cands []Candidate, vp geometry.Viewport, cfg Config) (*Calibration, error) {
	cam, err := SelectCorners(cands)
	if err != nil {
		return nil, err
	}

	var overlay [4]geometry.Point
	for i, p := range cam {
		overlay[i] = vp.SourcePixelToOverlay(p.X, p.Y)
	}

	cal, err := cfg.Estimate(overlay)
	if err != nil {
		if errors.Is(err, ErrReprojectionRejected) {
			s.Clear()
		}
		return nil, err
	}

	s.set(cal)
	return cal, nil
}
