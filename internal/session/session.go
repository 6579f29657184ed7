// Package session holds the per-run tracking state: the calibration, the
// hit-test engine and the viewport. One Step call processes one frame.
//
// A Session performs no I/O and carries no locks. It must be owned by a
// single goroutine.
package session

import (
	"gocv.io/x/gocv"

	"github.com/ayusman/paperdrum/internal/calibration"
	"github.com/ayusman/paperdrum/internal/geometry"
	"github.com/ayusman/paperdrum/internal/hittest"
	"github.com/ayusman/paperdrum/internal/log"
	"github.com/ayusman/paperdrum/internal/pads"
	"github.com/ayusman/paperdrum/internal/render"
)

// Config groups the tunables of the components a session owns.
type Config struct {
	Calibration calibration.Config
	HitTest     hittest.Config
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		Calibration: calibration.DefaultConfig(),
		HitTest:     hittest.DefaultConfig(),
	}
}

// Frame is the outcome of one Step.
type Frame struct {
	// Tracking is false when no fingertip was available this frame.
	Tracking   bool
	TipOverlay *geometry.Point
	TipSheet   *geometry.Point
	Strikes    []hittest.Strike
	Scene      render.Scene
}

// Session is one tracking session.
type Session struct {
	cfg      Config
	viewport geometry.Viewport
	layout   []pads.Pad
	state    calibration.State
	engine   *hittest.Engine
}

// New creates a session for the given viewport.
func New(cfg Config, vp geometry.Viewport) *Session {
	layout := pads.Layout(cfg.Calibration.SheetW, cfg.Calibration.SheetH)
	return &Session{
		cfg:      cfg,
		viewport: vp,
		layout:   layout,
		engine:   hittest.New(layout, cfg.HitTest),
	}
}

// Step processes one frame. tip is the normalized index fingertip, or nil
// when the hand was not found. tMs is the frame timestamp in milliseconds.
func (s *Session) Step(tip *geometry.Point, tMs float64) Frame {
	f := Frame{}

	if tip != nil && s.viewport.Valid() {
		overlay := s.viewport.NormalizedToOverlay(tip.X, tip.Y)
		if sheet, ok := s.toSheet(overlay); ok {
			f.Tracking = true
			f.TipOverlay = &overlay
			f.TipSheet = &sheet
			f.Strikes = s.engine.Update(sheet, tMs)
		}
	}

	f.Scene = s.scene(f, tMs)
	return f
}

func (s *Session) toSheet(overlay geometry.Point) (geometry.Point, bool) {
	if cal := s.state.Current(); cal != nil {
		return cal.ToSheet(overlay)
	}
	v := s.viewport
	return geometry.OverlayToSheetFallback(overlay.X, overlay.Y, v.OverlayW, v.OverlayH,
		s.cfg.Calibration.SheetW, s.cfg.Calibration.SheetH), true
}

func (s *Session) scene(f Frame, tMs float64) render.Scene {
	cal := s.state.Current()
	sc := render.Scene{
		OverlayW:    s.viewport.OverlayW,
		OverlayH:    s.viewport.OverlayH,
		Calibrated:  cal != nil,
		Tip:         f.TipOverlay,
		Tracking:    f.Tracking,
		Strikes:     f.Strikes,
		TimestampMs: tMs,
	}
	if !s.viewport.Valid() {
		return sc
	}

	sc.Pads = render.Outlines(s.layout, cal, s.viewport.OverlayW, s.viewport.OverlayH,
		s.cfg.Calibration.SheetW, s.cfg.Calibration.SheetH)
	for i := range sc.Pads {
		sc.Pads[i].Hover = s.engine.Hover(sc.Pads[i].Name)
	}
	if cal != nil {
		sc.Corners = cal.Corners[:]
	}
	return sc
}

// Calibrate runs fiducial detection on a camera frame and updates the
// calibration. Too few fiducials keeps the previous calibration; rejected
// geometry clears it.
func (s *Session) Calibrate(frame gocv.Mat) (*calibration.Calibration, error) {
	return s.CalibrateCandidates(s.cfg.Calibration.Detector.Detect(frame))
}

// CalibrateCandidates calibrates from already detected fiducials.
func (s *Session) CalibrateCandidates(cands []calibration.Candidate) (*calibration.Calibration, error) {
	cal, err := s.state.CalibrateCandidates(cands, s.viewport, s.cfg.Calibration)
	if err != nil {
		log.Warn("calibration failed", "candidates", len(cands), "error", err, "calibrated", s.state.Calibrated())
		return nil, err
	}
	log.Info("calibrated", "rms", cal.RMS, "corners", cal.Corners)
	return cal, nil
}

// SetViewport changes the overlay or source dimensions. A calibration is
// tied to overlay pixels, so a size change drops it.
func (s *Session) SetViewport(vp geometry.Viewport) {
	old := s.viewport
	s.viewport = vp
	if old.OverlayW != vp.OverlayW || old.OverlayH != vp.OverlayH ||
		old.SourceW != vp.SourceW || old.SourceH != vp.SourceH || old.Mirrored != vp.Mirrored {
		s.dropCalibration("viewport changed")
	}
}

// SetMirrored toggles horizontal mirroring. The calibration is dropped.
func (s *Session) SetMirrored(mirrored bool) {
	vp := s.viewport
	vp.Mirrored = mirrored
	s.SetViewport(vp)
}

func (s *Session) dropCalibration(reason string) {
	if s.state.Calibrated() {
		log.Info("calibration cleared", "reason", reason)
	}
	s.state.Clear()
	s.engine.Reset()
}

// ResetTracking forgets hover state, the last point and cooldowns.
func (s *Session) ResetTracking() {
	s.engine.Reset()
}

// Viewport returns the current viewport.
func (s *Session) Viewport() geometry.Viewport {
	return s.viewport
}

// Calibrated reports whether a calibration is active.
func (s *Session) Calibrated() bool {
	return s.state.Calibrated()
}

// Calibration returns the active calibration or nil.
func (s *Session) Calibration() *calibration.Calibration {
	return s.state.Current()
}

// Corners returns the overlay corners of the active calibration.
func (s *Session) Corners() ([4]geometry.Point, bool) {
	if cal := s.state.Current(); cal != nil {
		return cal.Corners, true
	}
	return [4]geometry.Point{}, false
}

// Pads returns the pad layout in sheet coordinates.
func (s *Session) Pads() []pads.Pad {
	out := make([]pads.Pad, len(s.layout))
	copy(out, s.layout)
	return out
}

// Hover reports whether the fingertip is over the named pad.
func (s *Session) Hover(name string) bool {
	return s.engine.Hover(name)
}
