// Package testdata renders synthetic camera frames of a printed drum sheet
// for detection and pipeline tests.
package testdata

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

var (
	paper = color.RGBA{R: 245, G: 245, B: 240, A: 0}
	ink   = color.RGBA{R: 10, G: 10, B: 10, A: 0}
	faint = color.RGBA{R: 205, G: 205, B: 205, A: 0}
)

// Sheet describes where a printed sheet sits inside a camera frame.
type Sheet struct {
	FrameW, FrameH int
	// Rect is the sheet rectangle in camera pixels. The fiducials sit inside
	// its four corners with their outer vertex on the rectangle corner.
	Rect image.Rectangle
	// Marker is the fiducial side length in pixels.
	Marker int
	// Clutter adds non-fiducial squares and pad outlines inside the sheet.
	Clutter bool
}

// DefaultSheet returns a 640x480 frame with the sheet inset from every edge.
func DefaultSheet() Sheet {
	return Sheet{
		FrameW: 640,
		FrameH: 480,
		Rect:   image.Rect(80, 60, 560, 420),
		Marker: 36,
	}
}

// Corners returns the outer fiducial vertices in TL, TR, BR, BL order.
func (s Sheet) Corners() [4]image.Point {
	r := s.Rect
	return [4]image.Point{
		{X: r.Min.X, Y: r.Min.Y},
		{X: r.Max.X - 1, Y: r.Min.Y},
		{X: r.Max.X - 1, Y: r.Max.Y - 1},
		{X: r.Min.X, Y: r.Max.Y - 1},
	}
}

// Markers returns the four fiducial rectangles.
func (s Sheet) Markers() [4]image.Rectangle {
	r, m := s.Rect, s.Marker
	return [4]image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+m, r.Min.Y+m),
		image.Rect(r.Max.X-m, r.Min.Y, r.Max.X, r.Min.Y+m),
		image.Rect(r.Max.X-m, r.Max.Y-m, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Max.Y-m, r.Min.X+m, r.Max.Y),
	}
}

// Render draws the sheet into a new BGR frame. The caller closes it.
func (s Sheet) Render() gocv.Mat {
	frame := gocv.NewMatWithSize(s.FrameH, s.FrameW, gocv.MatTypeCV8UC3)
	frame.SetTo(gocv.NewScalar(float64(paper.B), float64(paper.G), float64(paper.R), 0))

	for _, m := range s.Markers() {
		gocv.Rectangle(&frame, m, ink, -1)
	}

	if s.Clutter {
		c := image.Point{X: (s.Rect.Min.X + s.Rect.Max.X) / 2, Y: (s.Rect.Min.Y + s.Rect.Max.Y) / 2}
		// Two smaller squares near the middle of the sheet.
		gocv.Rectangle(&frame, image.Rect(c.X-40, c.Y-12, c.X-16, c.Y+12), ink, -1)
		gocv.Rectangle(&frame, image.Rect(c.X+16, c.Y-10, c.X+36, c.Y+10), ink, -1)
		for _, dx := range []int{-120, 0, 120} {
			gocv.Circle(&frame, image.Point{X: c.X + dx, Y: c.Y + 90}, 30, faint, 2)
		}
	}

	return frame
}

// Blank returns a plain paper-coloured frame with nothing printed on it.
func Blank(w, h int) gocv.Mat {
	frame := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
	frame.SetTo(gocv.NewScalar(float64(paper.B), float64(paper.G), float64(paper.R), 0))
	return frame
}
