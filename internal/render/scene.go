// Package render builds the overlay scene shown on top of the camera
// preview and distributes it to viewers. Nothing here feeds back into
// hit testing.
package render

import (
	"math"

	"github.com/ayusman/paperdrum/internal/calibration"
	"github.com/ayusman/paperdrum/internal/geometry"
	"github.com/ayusman/paperdrum/internal/hittest"
	"github.com/ayusman/paperdrum/internal/pads"
)

// OutlineSegments is the number of segments each pad circle is sampled into.
const OutlineSegments = 40

// PadOutline is one pad as drawn on the overlay, in overlay pixels.
type PadOutline struct {
	Name    string           `json:"name"`
	Outline []geometry.Point `json:"outline"`
	Label   geometry.Point   `json:"label"`
	Hover   bool             `json:"hover"`
}

// Scene is everything the overlay draws for one frame.
type Scene struct {
	OverlayW    float64          `json:"overlay_w"`
	OverlayH    float64          `json:"overlay_h"`
	Calibrated  bool             `json:"calibrated"`
	Pads        []PadOutline     `json:"pads"`
	Corners     []geometry.Point `json:"corners,omitempty"`
	Tip         *geometry.Point  `json:"tip,omitempty"`
	Tracking    bool             `json:"tracking"`
	Strikes     []hittest.Strike `json:"strikes,omitempty"`
	TimestampMs float64          `json:"timestamp_ms"`
}

// Outlines draws layout onto an overlayW x overlayH surface. With a
// calibration each circle is sampled in sheet space and projected through
// the inverse transform; without one the sheet is stretched over the
// overlay and circles stay circles.
func Outlines(layout []pads.Pad, cal *calibration.Calibration, overlayW, overlayH, sheetW, sheetH float64) []PadOutline {
	out := make([]PadOutline, 0, len(layout))
	for _, p := range layout {
		if cal != nil {
			out = append(out, projected(p, cal))
		} else {
			out = append(out, fallback(p, overlayW/sheetW, overlayH/sheetH))
		}
	}
	return out
}

func projected(p pads.Pad, cal *calibration.Calibration) PadOutline {
	o := PadOutline{Name: p.Name, Outline: make([]geometry.Point, 0, OutlineSegments+1)}
	for _, s := range circle(p.Center, p.Radius) {
		if q, ok := cal.ToOverlay(s); ok {
			o.Outline = append(o.Outline, q)
		}
	}
	if c, ok := cal.ToOverlay(p.Center); ok {
		o.Label = c
	}
	return o
}

func fallback(p pads.Pad, sx, sy float64) PadOutline {
	center := geometry.Pt(p.Center.X*sx, p.Center.Y*sy)
	return PadOutline{
		Name:    p.Name,
		Outline: circle(center, p.Radius*(sx+sy)/2),
		Label:   center,
	}
}

// circle samples a closed circle; the first and last points coincide.
func circle(c geometry.Point, r float64) []geometry.Point {
	pts := make([]geometry.Point, 0, OutlineSegments+1)
	for i := 0; i <= OutlineSegments; i++ {
		t := float64(i) / OutlineSegments * 2 * math.Pi
		pts = append(pts, geometry.Pt(c.X+r*math.Cos(t), c.Y+r*math.Sin(t)))
	}
	return pts
}
