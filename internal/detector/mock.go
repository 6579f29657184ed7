package detector

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/paperdrum/internal/geometry"
)

// MockDetector is a test implementation of the Detector interface.
// Queued results are returned one per Detect call; once the queue is empty
// the fixed hands (or error) are returned.
type MockDetector struct {
	mu         sync.Mutex
	hands      []HandLandmarks
	err        error
	queue      [][]HandLandmarks
	timestamps []int64
	closed     bool
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Queue appends per-frame results. A nil entry is a frame without a hand.
func (m *MockDetector) Queue(frames ...[]HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, frames...)
}

// QueueTips queues one pointing hand per fingertip. A nil tip is a frame
// without a hand.
func (m *MockDetector) QueueTips(tips ...*geometry.Point) {
	frames := make([][]HandLandmarks, len(tips))
	for i, tip := range tips {
		if tip != nil {
			frames[i] = []HandLandmarks{PointingLandmarks(*tip)}
		}
	}
	m.Queue(frames...)
}

// Pending returns how many queued results are left.
func (m *MockDetector) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Timestamps returns the timestamps Detect was called with.
func (m *MockDetector) Timestamps() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int64, len(m.timestamps))
	copy(out, m.timestamps)
	return out
}

// Detect returns the next queued result, or the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat, timestampMs int64) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.timestamps = append(m.timestamps, timestampMs)

	if len(m.queue) > 0 {
		next := m.queue[0]
		m.queue = m.queue[1:]
		return next, nil
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Close marks the detector closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// PointingLandmarks returns a right hand pointing with the index finger,
// its tip at the given normalized position. The other fingers are curled
// below the tip.
func PointingLandmarks(tip geometry.Point) HandLandmarks {
	lm := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	at := func(dx, dy float64) Point3D {
		return Point3D{X: tip.X + dx, Y: tip.Y + dy}
	}

	lm.Points[Wrist] = at(0.02, 0.30)

	lm.Points[ThumbCMC] = at(0.06, 0.26)
	lm.Points[ThumbMCP] = at(0.09, 0.22)
	lm.Points[ThumbIP] = at(0.10, 0.18)
	lm.Points[ThumbTip] = at(0.09, 0.15)

	// Index finger extended up to the tip
	lm.Points[IndexMCP] = at(0.03, 0.18)
	lm.Points[IndexPIP] = at(0.02, 0.11)
	lm.Points[IndexDIP] = at(0.01, 0.05)
	lm.Points[IndexTip] = at(0, 0)

	// Remaining fingers curled into the palm
	for i, base := range []int{MiddleMCP, RingMCP, PinkyMCP} {
		dx := -0.01 - 0.03*float64(i)
		lm.Points[base] = at(dx, 0.19)
		lm.Points[base+1] = at(dx, 0.15)
		lm.Points[base+2] = at(dx+0.01, 0.17)
		lm.Points[base+3] = at(dx+0.01, 0.20)
	}

	return lm
}
