// Package audio plays drum sounds for strikes.
package audio

import (
	"math"
	"sync"
)

// Player triggers a sound by ID at a gain in [0,1].
type Player interface {
	Play(soundID string, gain float64)
}

// Gain bounds applied on playback. The floor keeps soft strikes audible.
const (
	MinGain = 0.1
	MaxGain = 1.0
)

// ClampGain limits gain to [MinGain, MaxGain]. NaN maps to MinGain.
func ClampGain(g float64) float64 {
	if math.IsNaN(g) {
		return MinGain
	}
	return math.Min(MaxGain, math.Max(MinGain, g))
}

// Nop discards every call.
type Nop struct{}

// Play does nothing.
func (Nop) Play(string, float64) {}

// Call is one recorded Play invocation.
type Call struct {
	SoundID string
	Gain    float64
}

// Recorder is a Player that remembers every call. It is safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	calls []Call
}

// Play records the call.
func (r *Recorder) Play(soundID string, gain float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{SoundID: soundID, Gain: gain})
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Reset forgets recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}
