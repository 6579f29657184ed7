package calibration

import (
	"image"
	"math"

	"gocv.io/x/gocv"

	"github.com/ayusman/paperdrum/internal/geometry"
)

// Candidate is a square-like dark region that may be one of the four
// printed corner fiducials. Coordinates are camera pixels.
type Candidate struct {
	Area     float64           `json:"area"`
	Centroid geometry.Point    `json:"centroid"`
	Vertices [4]geometry.Point `json:"vertices"`
}

// DetectorConfig holds the fiducial filter thresholds.
type DetectorConfig struct {
	// BlurSize is the Gaussian kernel size applied before thresholding.
	BlurSize int
	// ApproxEpsilon is the polygon approximation tolerance as a fraction of the perimeter.
	ApproxEpsilon float64
	// MinAreaFraction and MaxAreaFraction bound contour area relative to the frame (exclusive).
	MinAreaFraction float64
	MaxAreaFraction float64
	// MinAspect and MaxAspect bound the bounding-box width/height ratio (inclusive).
	MinAspect float64
	MaxAspect float64
}

// DefaultDetectorConfig returns the thresholds tuned for a printed letter-size sheet.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		BlurSize:        5,
		ApproxEpsilon:   0.04,
		MinAreaFraction: 0.0005,
		MaxAreaFraction: 0.3,
		MinAspect:       0.45,
		MaxAspect:       1.7,
	}
}

// DetectFiducials finds fiducial candidates using the default thresholds.
func DetectFiducials(frame gocv.Mat) []Candidate {
	return DefaultDetectorConfig().Detect(frame)
}

// Detect extracts square-like dark regions from a BGR, BGRA or grayscale
// frame. Finding nothing is not an error; the result is simply empty.
func (c DetectorConfig) Detect(frame gocv.Mat) []Candidate {
	if frame.Empty() {
		return nil
	}

	gray := gocv.NewMat()
	defer gray.Close()

	switch frame.Channels() {
	case 4:
		gocv.CvtColor(frame, &gray, gocv.ColorBGRAToGray)
	case 3:
		gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
	default:
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: c.BlurSize, Y: c.BlurSize}, 0, 0, gocv.BorderDefault)

	// Otsu picks the level; inverse so dark ink becomes foreground.
	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(blurred, &binary, 0, 255, gocv.ThresholdBinaryInv|gocv.ThresholdOtsu)

	contours := gocv.FindContours(binary, gocv.RetrievalList, gocv.ChainApproxSimple)
	defer contours.Close()

	frameArea := float64(frame.Cols() * frame.Rows())
	var out []Candidate

	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		if cand, ok := c.candidate(contour, frameArea); ok {
			out = append(out, cand)
		}
	}

	return out
}

func (c DetectorConfig) candidate(contour gocv.PointVector, frameArea float64) (Candidate, bool) {
	perimeter := gocv.ArcLength(contour, true)
	approx := gocv.ApproxPolyDP(contour, c.ApproxEpsilon*perimeter, true)
	defer approx.Close()

	if approx.Size() != 4 || !isConvex(approx.ToPoints()) {
		return Candidate{}, false
	}

	area := math.Abs(gocv.ContourArea(approx))
	frac := area / frameArea
	if frac <= c.MinAreaFraction || frac >= c.MaxAreaFraction {
		return Candidate{}, false
	}

	bb := gocv.BoundingRect(approx)
	aspect := float64(bb.Dx()) / math.Max(1, float64(bb.Dy()))
	if aspect < c.MinAspect || aspect > c.MaxAspect {
		return Candidate{}, false
	}

	rect := gocv.MinAreaRect(contour)
	if len(rect.Points) != 4 {
		return Candidate{}, false
	}

	var verts [4]geometry.Point
	for i, p := range rect.Points {
		verts[i] = geometry.Pt(float64(p.X), float64(p.Y))
	}

	return Candidate{
		Area:     area,
		Centroid: geometry.Mean(verts[:]...),
		Vertices: verts,
	}, true
}

// isConvex reports whether the closed polygon turns consistently in one
// direction. Collinear runs are tolerated.
func isConvex(pts []image.Point) bool {
	n := len(pts)
	if n < 3 {
		return false
	}
	sign := 0
	for i := 0; i < n; i++ {
		a, b, c := pts[i], pts[(i+1)%n], pts[(i+2)%n]
		cross := (b.X-a.X)*(c.Y-b.Y) - (b.Y-a.Y)*(c.X-b.X)
		switch {
		case cross > 0:
			if sign < 0 {
				return false
			}
			sign = 1
		case cross < 0:
			if sign > 0 {
				return false
			}
			sign = -1
		}
	}
	return sign != 0
}
