package calibration

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/paperdrum/internal/geometry"
)

var identityView = geometry.Viewport{OverlayW: 640, OverlayH: 480, SourceW: 640, SourceH: 480}

func TestEstimate_Accepts(t *testing.T) {
	cfg := DefaultConfig()

	cal, err := cfg.Estimate(skewed)
	require.NoError(t, err)
	assert.Equal(t, skewed, cal.Corners)
	assert.Less(t, cal.RMS, 1e-3)

	tl, ok := cal.ToSheet(skewed[0])
	require.True(t, ok)
	assert.InDelta(t, 0, tl.X, 1e-6)
	assert.InDelta(t, 0, tl.Y, 1e-6)

	br, ok := cal.ToOverlay(geometry.Pt(620, 400))
	require.True(t, ok)
	assert.InDelta(t, skewed[2].X, br.X, 1e-6)
	assert.InDelta(t, skewed[2].Y, br.Y, 1e-6)
}

func TestEstimate_DegenerateIsRejected(t *testing.T) {
	collinear := [4]geometry.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 200, Y: 0}, {X: 300, Y: 0}}

	_, err := DefaultConfig().Estimate(collinear)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrReprojectionRejected))
	assert.True(t, errors.Is(err, ErrDegenerateQuad))
}

func TestGate(t *testing.T) {
	sheet := SheetRect(620, 400)
	fwd, err := SolveHomography(skewed, sheet)
	require.NoError(t, err)

	offset := func(dx float64) Homography {
		moved := skewed
		for i := range moved {
			moved[i].X += dx
		}
		inv, err := SolveHomography(sheet, moved)
		require.NoError(t, err)
		return inv
	}

	tests := []struct {
		name   string
		dx     float64
		accept bool
	}{
		{"exact", 0, true},
		{"within threshold", 11.5, true},
		{"beyond threshold", 12.5, false},
		{"far off", 80, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cal, err := gate(fwd, offset(tt.dx), skewed, 12)
			if tt.accept {
				require.NoError(t, err)
				assert.InDelta(t, tt.dx, cal.RMS, 1e-6)
				return
			}
			assert.Nil(t, cal)
			assert.True(t, errors.Is(err, ErrReprojectionRejected))
		})
	}
}

func TestState_CalibrateCandidates(t *testing.T) {
	var s State
	assert.False(t, s.Calibrated())
	assert.Nil(t, s.Current())

	cal, err := s.CalibrateCandidates(sheetFiducials(), identityView, DefaultConfig())
	require.NoError(t, err)
	require.True(t, s.Calibrated())
	assert.Same(t, cal, s.Current())
	assert.Equal(t, geometry.Pt(80, 60), cal.Corners[0])
	assert.Equal(t, geometry.Pt(560, 420), cal.Corners[2])
}

func TestState_CornersFollowMirroring(t *testing.T) {
	var s State
	view := identityView
	view.Mirrored = true

	cal, err := s.CalibrateCandidates(sheetFiducials(), view, DefaultConfig())
	require.NoError(t, err)

	// The camera's top-left fiducial appears on the right of a mirrored overlay.
	assert.InDelta(t, 560, cal.Corners[0].X, 1e-9)
	assert.InDelta(t, 60, cal.Corners[0].Y, 1e-9)
}

func TestState_InsufficientKeepsCalibration(t *testing.T) {
	var s State
	prev, err := s.CalibrateCandidates(sheetFiducials(), identityView, DefaultConfig())
	require.NoError(t, err)

	_, err = s.CalibrateCandidates(sheetFiducials()[:3], identityView, DefaultConfig())
	require.True(t, errors.Is(err, ErrInsufficientFiducials))

	assert.Same(t, prev, s.Current())
}

func TestState_RejectedClearsCalibration(t *testing.T) {
	var s State
	_, err := s.CalibrateCandidates(sheetFiducials(), identityView, DefaultConfig())
	require.NoError(t, err)

	// Four identical squares collapse to a single corner point.
	stacked := []Candidate{square(80, 60, 36), square(80, 60, 36), square(80, 60, 36), square(80, 60, 36)}
	_, err = s.CalibrateCandidates(stacked, identityView, DefaultConfig())
	require.True(t, errors.Is(err, ErrReprojectionRejected))

	assert.False(t, s.Calibrated())
	assert.Nil(t, s.Current())
}

func TestState_ReplacesPriorCalibration(t *testing.T) {
	var s State
	first, err := s.CalibrateCandidates(sheetFiducials(), identityView, DefaultConfig())
	require.NoError(t, err)

	moved := []Candidate{
		square(100, 70, 36),
		square(500, 60, 36),
		square(510, 380, 36),
		square(90, 390, 36),
	}
	second, err := s.CalibrateCandidates(moved, identityView, DefaultConfig())
	require.NoError(t, err)

	assert.NotEqual(t, first.Corners, second.Corners)
	assert.Same(t, second, s.Current())
}
