// Package hittest decides when a tracked fingertip strikes a pad.
//
// A strike fires on the frame where the fingertip enters a pad circle while
// moving faster than a velocity threshold. Hover state is recomputed on
// every tracked frame, fast or slow, so a slow withdrawal still re-arms the
// pad for the next fast entry.
package hittest

import (
	"math"

	"github.com/ayusman/paperdrum/internal/geometry"
	"github.com/ayusman/paperdrum/internal/pads"
)

// Config holds the hit-test tunables.
type Config struct {
	// VelocityThreshold is the minimum speed, in sheet units per second,
	// for an entry to count as a strike.
	VelocityThreshold float64
	// GainDivisor maps speed to intensity before clamping.
	GainDivisor  float64
	MinIntensity float64
	MaxIntensity float64
	// CooldownMs is the minimum time between two strikes on the same pad.
	CooldownMs float64
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		VelocityThreshold: 2.0,
		GainDivisor:       220,
		MinIntensity:      0.15,
		MaxIntensity:      1.0,
		CooldownMs:        120,
	}
}

// Intensity maps a speed to a playback gain.
func (c Config) Intensity(v float64) float64 {
	return math.Min(c.MaxIntensity, math.Max(c.MinIntensity, v/c.GainDivisor))
}

// TrackedPoint is a fingertip position in sheet coordinates with the
// timestamp of the frame it was observed in.
type TrackedPoint struct {
	Position    geometry.Point `json:"position"`
	TimestampMs float64        `json:"timestamp_ms"`
}

// Strike is one pad hit.
type Strike struct {
	Pad         string  `json:"pad"`
	SoundID     string  `json:"sound_id"`
	Intensity   float64 `json:"intensity"`
	Velocity    float64 `json:"velocity"`
	TimestampMs float64 `json:"timestamp_ms"`
}

// Engine holds the per-pad hover state, the last tracked point and the
// per-pad cooldown clock. It is not safe for concurrent use.
type Engine struct {
	cfg       Config
	pads      []pads.Pad
	hover     map[string]bool
	lastFired map[string]float64
	last      *TrackedPoint
}

// New creates an engine for the given pads.
func New(layout []pads.Pad, cfg Config) *Engine {
	p := make([]pads.Pad, len(layout))
	copy(p, layout)
	return &Engine{
		cfg:       cfg,
		pads:      p,
		hover:     make(map[string]bool, len(p)),
		lastFired: make(map[string]float64, len(p)),
	}
}

// Update feeds one tracked point and returns the strikes it triggered.
func (e *Engine) Update(p geometry.Point, tMs float64) []Strike {
	if e.last == nil {
		e.refreshHover(p)
		e.last = &TrackedPoint{Position: p, TimestampMs: tMs}
		return nil
	}

	v := speed(*e.last, p, tMs)

	var strikes []Strike
	if v > e.cfg.VelocityThreshold {
		for _, pad := range e.pads {
			inside := pad.Contains(p)
			if inside && !e.hover[pad.Name] && e.cooledDown(pad.Name, tMs) {
				e.lastFired[pad.Name] = tMs
				strikes = append(strikes, Strike{
					Pad:         pad.Name,
					SoundID:     pad.SoundID,
					Intensity:   e.cfg.Intensity(v),
					Velocity:    v,
					TimestampMs: tMs,
				})
			}
			e.hover[pad.Name] = inside
		}
	} else {
		e.refreshHover(p)
	}

	e.last = &TrackedPoint{Position: p, TimestampMs: tMs}
	return strikes
}

func (e *Engine) refreshHover(p geometry.Point) {
	for _, pad := range e.pads {
		e.hover[pad.Name] = pad.Contains(p)
	}
}

func (e *Engine) cooledDown(name string, tMs float64) bool {
	fired, ok := e.lastFired[name]
	return !ok || tMs-fired >= e.cfg.CooldownMs
}

func speed(last TrackedPoint, p geometry.Point, tMs float64) float64 {
	dt := (tMs - last.TimestampMs) / 1000
	if dt <= 0 {
		return 0
	}
	return p.Distance(last.Position) / dt
}

// Reset forgets hover state, the last point and cooldowns.
func (e *Engine) Reset() {
	clear(e.hover)
	clear(e.lastFired)
	e.last = nil
}

// Hover reports whether the last tracked point was inside the named pad.
func (e *Engine) Hover(name string) bool {
	return e.hover[name]
}

// Last returns the most recent tracked point.
func (e *Engine) Last() (TrackedPoint, bool) {
	if e.last == nil {
		return TrackedPoint{}, false
	}
	return *e.last, true
}

// Pads returns a copy of the pads the engine tests against.
func (e *Engine) Pads() []pads.Pad {
	out := make([]pads.Pad, len(e.pads))
	copy(out, e.pads)
	return out
}
