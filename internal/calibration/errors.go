package calibration

import "errors"

var (
	// ErrInsufficientFiducials means fewer than four fiducial candidates were found.
	ErrInsufficientFiducials = errors.New("insufficient fiducials")
	// ErrNoSpreadSubset means no four-candidate subset could be scored.
	ErrNoSpreadSubset = errors.New("no spread subset of fiducials")
	// ErrReprojectionRejected means the estimated transform failed the round-trip check.
	ErrReprojectionRejected = errors.New("reprojection rejected")
	// ErrDegenerateQuad means the corner quadrilateral produced a singular system.
	ErrDegenerateQuad = errors.New("degenerate corner quadrilateral")
)
