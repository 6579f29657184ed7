package render

import (
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"github.com/ayusman/paperdrum/internal/geometry"
)

// Preview colours, BGR-ordered by gocv.
var (
	calibratedColor = color.RGBA{R: 0, G: 170, B: 255, A: 0}
	fallbackColor   = color.RGBA{R: 255, G: 255, B: 255, A: 0}
	hoverColor      = color.RGBA{R: 255, G: 200, B: 0, A: 0}
	cornerColor     = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	tipColor        = color.RGBA{R: 0, G: 200, B: 255, A: 0}
)

// Display returns the frame as the user sees it: a horizontal flip of the
// camera image when mirrored, otherwise a copy. The caller closes the result.
func Display(frame gocv.Mat, mirrored bool) gocv.Mat {
	dst := gocv.NewMat()
	if mirrored {
		gocv.Flip(frame, &dst, 1)
	} else {
		frame.CopyTo(&dst)
	}
	return dst
}

// Annotate draws scene onto a display frame. Overlay coordinates are mapped
// back into the frame by undoing the cover placement of vp.
func Annotate(display *gocv.Mat, scene Scene, vp geometry.Viewport) {
	if display == nil || display.Empty() || !vp.Valid() {
		return
	}

	toPixel := func(p geometry.Point) image.Point {
		d := vp.OverlayToDisplay(p)
		return image.Pt(int(math.Round(d.X)), int(math.Round(d.Y)))
	}

	outline := fallbackColor
	if scene.Calibrated {
		outline = calibratedColor
	}

	for _, pad := range scene.Pads {
		if len(pad.Outline) < 2 {
			continue
		}
		pts := make([]image.Point, len(pad.Outline))
		for i, p := range pad.Outline {
			pts[i] = toPixel(p)
		}
		c := outline
		if pad.Hover {
			c = hoverColor
		}
		pv := gocv.NewPointsVectorFromPoints([][]image.Point{pts})
		gocv.Polylines(display, pv, true, c, 2)
		pv.Close()

		label := toPixel(pad.Label)
		size := gocv.GetTextSize(pad.Name, gocv.FontHersheySimplex, 0.45, 1)
		org := image.Pt(label.X-size.X/2, label.Y+size.Y/2)
		gocv.PutText(display, pad.Name, org, gocv.FontHersheySimplex, 0.45, c, 1)
	}

	for _, p := range scene.Corners {
		gocv.Circle(display, toPixel(p), 5, cornerColor, -1)
	}

	if scene.Tip != nil {
		gocv.Circle(display, toPixel(*scene.Tip), 7, tipColor, -1)
	}
}

// EncodeJPEG encodes a frame for the preview stream.
func EncodeJPEG(frame gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame)
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	// GetBytes aliases native memory that Close frees.
	b := buf.GetBytes()
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}
