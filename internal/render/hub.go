package render

import (
	"sync"
)

// Hub keeps the most recent scene and preview images and fans scenes out
// to subscribers. Slow subscribers miss scenes rather than block the publisher.
type Hub struct {
	mu      sync.RWMutex
	scene   Scene
	preview []byte
	raw     []byte
	seq     uint64
	subs    map[chan Scene]struct{}
	changed chan struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs:    make(map[chan Scene]struct{}),
		changed: make(chan struct{}),
	}
}

// Publish stores a scene together with the annotated preview JPEG and the
// raw camera JPEG, and notifies subscribers. Either image may be nil.
func (h *Hub) Publish(scene Scene, preview, raw []byte) {
	h.mu.Lock()
	h.scene = scene
	if preview != nil {
		h.preview = preview
	}
	if raw != nil {
		h.raw = raw
	}
	h.seq++
	close(h.changed)
	h.changed = make(chan struct{})

	for ch := range h.subs {
		select {
		case ch <- scene:
		default:
		}
	}
	h.mu.Unlock()
}

// Scene returns the latest scene.
func (h *Hub) Scene() Scene {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.scene
}

// Preview returns the latest annotated JPEG, or nil before the first frame.
func (h *Hub) Preview() []byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.preview
}

// Raw returns the latest camera JPEG without annotations.
func (h *Hub) Raw() []byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.raw
}

// Next returns a channel closed on the next Publish along with the current
// sequence number.
func (h *Hub) Next() (<-chan struct{}, uint64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.changed, h.seq
}

// Subscribe returns a channel receiving every published scene the reader
// keeps up with. Call the returned function to unsubscribe.
func (h *Hub) Subscribe(buffer int) (<-chan Scene, func()) {
	ch := make(chan Scene, buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of active subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
