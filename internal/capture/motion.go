package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Motion detection constants
const (
	// GaussianBlurSize is the kernel size for Gaussian blur (21x21)
	GaussianBlurSize = 21
	// DiffThreshold is the binary threshold for difference detection
	DiffThreshold = 25
	// analysisWidth is the width frames are downscaled to before differencing.
	analysisWidth = 320
)

// MotionDetector reports whether consecutive frames differ by more than a
// percentage of pixels. It compares blurred grayscale images, downscaled to
// analysisWidth, so a moving hand registers and sensor noise does not.
type MotionDetector struct {
	threshold float64
	prev      gocv.Mat
	hasPrev   bool
	mu        sync.Mutex
}

// NewMotionDetector creates a detector. threshold is the percentage of
// pixels that must change; 1.0 means 1%.
func NewMotionDetector(threshold float64) *MotionDetector {
	return &MotionDetector{
		threshold: threshold,
		prev:      gocv.NewMat(),
	}
}

// Detect compares frame with the previous one and returns whether motion
// was seen and the changed percentage. The first frame only sets the
// baseline. A size change also resets the baseline.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	small := m.prepare(*frame)
	defer small.Close()

	if !m.hasPrev || m.prev.Rows() != small.Rows() || m.prev.Cols() != small.Cols() {
		small.CopyTo(&m.prev)
		m.hasPrev = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(small, m.prev, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, DiffThreshold, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(mask)) / float64(mask.Rows()*mask.Cols()) * 100.0

	small.CopyTo(&m.prev)

	return changed > m.threshold, changed
}

// prepare converts to gray, downscales and blurs. The caller closes the result.
func (m *MotionDetector) prepare(frame gocv.Mat) gocv.Mat {
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

	scaled := gocv.NewMat()
	defer scaled.Close()
	if gray.Cols() > analysisWidth {
		h := gray.Rows() * analysisWidth / gray.Cols()
		gocv.Resize(gray, &scaled, image.Pt(analysisWidth, max(h, 1)), 0, 0, gocv.InterpolationArea)
	} else {
		gray.CopyTo(&scaled)
	}

	out := gocv.NewMat()
	gocv.GaussianBlur(scaled, &out, image.Pt(GaussianBlurSize, GaussianBlurSize), 0, 0, gocv.BorderDefault)
	return out
}

// Reset drops the baseline frame.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
}

// Close releases the baseline Mat.
func (m *MotionDetector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
}

func (m *MotionDetector) release() {
	if !m.prev.Empty() {
		m.prev.Close()
		m.prev = gocv.NewMat()
	}
	m.hasPrev = false
}

// SetThreshold changes the motion threshold. Values <= 0 are ignored.
func (m *MotionDetector) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.threshold = threshold
}

// Threshold returns the current threshold percentage.
func (m *MotionDetector) Threshold() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threshold
}
