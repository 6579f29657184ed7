package geometry

import "math"

// CoverMapping describes how a source image is placed on an overlay surface
// using "cover" fitting: scaled uniformly until both dimensions are covered,
// then centered so any overflow is cropped evenly on both sides.
type CoverMapping struct {
	Scale    float64 `json:"scale"`
	DisplayW float64 `json:"display_w"`
	DisplayH float64 `json:"display_h"`
	OffsetX  float64 `json:"offset_x"`
	OffsetY  float64 `json:"offset_y"`
}

// Cover computes the cover mapping of a sourceW x sourceH image onto an
// overlayW x overlayH surface. Zero sizes are not guarded.
func Cover(overlayW, overlayH, sourceW, sourceH float64) CoverMapping {
	scale := math.Max(overlayW/sourceW, overlayH/sourceH)
	displayW := sourceW * scale
	displayH := sourceH * scale
	return CoverMapping{
		Scale:    scale,
		DisplayW: displayW,
		DisplayH: displayH,
		OffsetX:  (overlayW - displayW) / 2,
		OffsetY:  (overlayH - displayH) / 2,
	}
}

// Viewport holds the overlay and camera dimensions plus the mirroring flag.
// All conversions between tracking, camera and overlay spaces go through it.
type Viewport struct {
	OverlayW float64 `json:"overlay_w"`
	OverlayH float64 `json:"overlay_h"`
	SourceW  float64 `json:"source_w"`
	SourceH  float64 `json:"source_h"`
	Mirrored bool    `json:"mirrored"`
}

// Valid reports whether every dimension is positive.
func (v Viewport) Valid() bool {
	return v.OverlayW > 0 && v.OverlayH > 0 && v.SourceW > 0 && v.SourceH > 0
}

// Cover returns the cover mapping for this viewport.
func (v Viewport) Cover() CoverMapping {
	return Cover(v.OverlayW, v.OverlayH, v.SourceW, v.SourceH)
}

// NormalizedToOverlay maps a normalized tracking point in [0,1]² to overlay pixels.
func (v Viewport) NormalizedToOverlay(nx, ny float64) Point {
	m := v.Cover()
	if v.Mirrored {
		nx = 1 - nx
	}
	return Point{
		X: m.OffsetX + nx*m.DisplayW,
		Y: m.OffsetY + ny*m.DisplayH,
	}
}

// SourcePixelToOverlay maps a camera pixel to overlay pixels.
// Mirroring is applied once, the same way NormalizedToOverlay applies it.
func (v Viewport) SourcePixelToOverlay(x, y float64) Point {
	return v.NormalizedToOverlay(x/v.SourceW, y/v.SourceH)
}

// OverlayToDisplay maps an overlay pixel to a pixel of the displayed camera
// image (after any mirroring), undoing the cover placement. The preview
// renderer uses it to draw overlay-space annotations onto camera frames.
func (v Viewport) OverlayToDisplay(p Point) Point {
	m := v.Cover()
	return Point{
		X: (p.X - m.OffsetX) / m.Scale,
		Y: (p.Y - m.OffsetY) / m.Scale,
	}
}

// OverlayToSheetFallback maps overlay pixels to sheet coordinates with an
// independent linear scale per axis. It is used only while uncalibrated.
func OverlayToSheetFallback(px, py, overlayW, overlayH, sheetW, sheetH float64) Point {
	return Point{
		X: px / overlayW * sheetW,
		Y: py / overlayH * sheetH,
	}
}
