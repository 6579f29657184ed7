package calibration

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ayusman/paperdrum/internal/geometry"
)

// Homography is a 3x3 planar projective transform stored row-major.
// It has value semantics; copying it copies the matrix.
type Homography [9]float64

// Identity returns the identity homography.
func Identity() Homography {
	return Homography{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// Apply projects p through the homography. ok is false when the point maps
// to infinity or the result is not finite.
func (h Homography) Apply(p geometry.Point) (geometry.Point, bool) {
	w := h[6]*p.X + h[7]*p.Y + h[8]
	if w == 0 {
		return geometry.Point{}, false
	}
	out := geometry.Point{
		X: (h[0]*p.X + h[1]*p.Y + h[2]) / w,
		Y: (h[3]*p.X + h[4]*p.Y + h[5]) / w,
	}
	return out, out.IsFinite()
}

// IsFinite reports whether every coefficient is finite.
func (h Homography) IsFinite() bool {
	for _, v := range h {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// SolveHomography computes the exact homography mapping src[i] to dst[i]
// for four correspondences. The system is the usual 8x8 one with h22 fixed to 1.
func SolveHomography(src, dst [4]geometry.Point) (Homography, error) {
	A := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)

	for i := 0; i < 4; i++ {
		X, Y := src[i].X, src[i].Y
		x, y := dst[i].X, dst[i].Y
		r := 2 * i

		// x = (h00 X + h01 Y + h02) / (h20 X + h21 Y + 1)
		A.Set(r, 0, X)
		A.Set(r, 1, Y)
		A.Set(r, 2, 1)
		A.Set(r, 6, -X*x)
		A.Set(r, 7, -Y*x)
		b.SetVec(r, x)

		// y = (h10 X + h11 Y + h12) / (h20 X + h21 Y + 1)
		A.Set(r+1, 3, X)
		A.Set(r+1, 4, Y)
		A.Set(r+1, 5, 1)
		A.Set(r+1, 6, -X*y)
		A.Set(r+1, 7, -Y*y)
		b.SetVec(r+1, y)
	}

	var h mat.VecDense
	if err := h.SolveVec(A, b); err != nil {
		return Homography{}, fmt.Errorf("%w: %v", ErrDegenerateQuad, err)
	}

	H := Homography{
		h.AtVec(0), h.AtVec(1), h.AtVec(2),
		h.AtVec(3), h.AtVec(4), h.AtVec(5),
		h.AtVec(6), h.AtVec(7), 1,
	}
	if !H.IsFinite() {
		return Homography{}, ErrDegenerateQuad
	}
	return H, nil
}

// ReprojectionRMS maps every point forward then back and returns the RMS
// pixel displacement from the original. Points that cannot be projected
// yield +Inf.
func ReprojectionRMS(forward, inverse Homography, pts [4]geometry.Point) float64 {
	var sum float64
	for _, p := range pts {
		mid, ok := forward.Apply(p)
		if !ok {
			return math.Inf(1)
		}
		back, ok := inverse.Apply(mid)
		if !ok {
			return math.Inf(1)
		}
		dx := p.X - back.X
		dy := p.Y - back.Y
		sum += dx*dx + dy*dy
	}
	return math.Sqrt(sum / float64(len(pts)))
}

// SheetRect returns the corners of a W x H sheet in TL, TR, BR, BL order.
func SheetRect(w, h float64) [4]geometry.Point {
	return [4]geometry.Point{
		{X: 0, Y: 0},
		{X: w, Y: 0},
		{X: w, Y: h},
		{X: 0, Y: h},
	}
}
