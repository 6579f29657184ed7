package calibration

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/ayusman/paperdrum/internal/geometry"
	"github.com/ayusman/paperdrum/testdata"
)

func TestDefaultDetectorConfig(t *testing.T) {
	c := DefaultDetectorConfig()

	assert.Equal(t, 5, c.BlurSize)
	assert.Equal(t, 0.04, c.ApproxEpsilon)
	assert.Equal(t, 0.0005, c.MinAreaFraction)
	assert.Equal(t, 0.3, c.MaxAreaFraction)
	assert.Equal(t, 0.45, c.MinAspect)
	assert.Equal(t, 1.7, c.MaxAspect)
}

func TestIsConvex(t *testing.T) {
	tests := []struct {
		name string
		pts  []image.Point
		want bool
	}{
		{"square", []image.Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}}, true},
		{"reversed square", []image.Point{{0, 10}, {10, 10}, {10, 0}, {0, 0}}, true},
		{"dart", []image.Point{{0, 0}, {10, 5}, {0, 10}, {4, 5}}, false},
		{"degenerate", []image.Point{{0, 0}, {5, 0}, {10, 0}}, false},
		{"too few", []image.Point{{0, 0}, {1, 1}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isConvex(tt.pts))
		})
	}
}

func TestDetectFiducials_BlankFrame(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	frame := testdata.Blank(640, 480)
	defer frame.Close()

	assert.Empty(t, DetectFiducials(frame))
}

func TestDetectFiducials_EmptyMat(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	frame := gocv.NewMat()
	defer frame.Close()

	assert.Nil(t, DetectFiducials(frame))
}

func TestDetectFiducials_PrintedSheet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	sheet := testdata.DefaultSheet()
	frame := sheet.Render()
	defer frame.Close()

	cands := DetectFiducials(frame)
	require.Len(t, cands, 4)

	for _, m := range sheet.Markers() {
		want := geometry.Pt(float64(m.Min.X+m.Max.X)/2, float64(m.Min.Y+m.Max.Y)/2)
		assert.True(t, hasCentroidNear(cands, want, 2), "no candidate near %v", want)
	}
}

func TestCalibrate_PrintedSheetWithClutter(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	sheet := testdata.DefaultSheet()
	sheet.Clutter = true
	frame := sheet.Render()
	defer frame.Close()

	var s State
	view := geometry.Viewport{OverlayW: 640, OverlayH: 480, SourceW: 640, SourceH: 480}
	cal, err := s.Calibrate(frame, view, DefaultConfig())
	require.NoError(t, err)

	for i, c := range sheet.Corners() {
		assert.InDelta(t, float64(c.X), cal.Corners[i].X, 2, "corner %d x", i)
		assert.InDelta(t, float64(c.Y), cal.Corners[i].Y, 2, "corner %d y", i)
	}
}

func TestCalibrate_BlankFrameKeepsState(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	var s State
	view := geometry.Viewport{OverlayW: 640, OverlayH: 480, SourceW: 640, SourceH: 480}
	prev, err := s.CalibrateCandidates(sheetFiducials(), view, DefaultConfig())
	require.NoError(t, err)

	frame := testdata.Blank(640, 480)
	defer frame.Close()

	_, err = s.Calibrate(frame, view, DefaultConfig())
	assert.ErrorIs(t, err, ErrInsufficientFiducials)
	assert.Same(t, prev, s.Current())
}

func hasCentroidNear(cands []Candidate, p geometry.Point, tol float64) bool {
	for _, c := range cands {
		if c.Centroid.Distance(p) <= tol {
			return true
		}
	}
	return false
}
