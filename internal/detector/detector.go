package detector

import (
	"errors"
	"time"

	"gocv.io/x/gocv"
)

var (
	// ErrNotReady is returned while the hand tracking model is still loading
	// or could not be loaded. The frame counts as having no hand.
	ErrNotReady = errors.New("hand tracker not ready")
	// ErrNilFrame is returned for a nil or empty frame.
	ErrNilFrame = errors.New("nil or empty frame")
)

// Detector defines the interface for hand detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns detected hand landmarks.
	// timestampMs must increase between calls; tracking models use it to
	// smooth across frames. Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat, timestampMs int64) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect. Only the first is
	// used for striking, so the default is 1.
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// StartTimeout bounds how long the model may take to report ready.
	StartTimeout time.Duration

	// IdleShutdown stops the model process after this long without frames.
	// Zero keeps it running.
	IdleShutdown time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        1,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		StartTimeout:    30 * time.Second,
		IdleShutdown:    30 * time.Second,
	}
}
