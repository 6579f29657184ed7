package capture

import "time"

// DefaultIdleTimeout is how long the gate stays active after the last motion.
const DefaultIdleTimeout = 2 * time.Second

// Mode is the frame loop's capture mode.
type Mode int

const (
	// ModeIdle polls slowly and skips hand inference.
	ModeIdle Mode = iota
	// ModeActive runs at full rate with inference.
	ModeActive
)

func (m Mode) String() string {
	if m == ModeActive {
		return "active"
	}
	return "idle"
}

// Gate switches between idle and active frame rates. Motion switches to
// active immediately; IdleTimeout without motion switches back.
//
// A Gate is owned by the frame loop and is not safe for concurrent use.
type Gate struct {
	IdleFPS     int
	ActiveFPS   int
	IdleTimeout time.Duration

	mode       Mode
	lastMotion time.Time
}

// NewGate creates a gate starting in idle mode.
func NewGate(idleFPS, activeFPS int, idleTimeout time.Duration) *Gate {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Gate{IdleFPS: idleFPS, ActiveFPS: activeFPS, IdleTimeout: idleTimeout}
}

// Observe records whether the current frame had motion and reports whether
// the mode changed as a result.
func (g *Gate) Observe(motion bool, now time.Time) (Mode, bool) {
	if motion {
		g.lastMotion = now
		if g.mode != ModeActive {
			g.mode = ModeActive
			return g.mode, true
		}
		return g.mode, false
	}

	if g.mode == ModeActive && now.Sub(g.lastMotion) > g.IdleTimeout {
		g.mode = ModeIdle
		return g.mode, true
	}
	return g.mode, false
}

// Hold keeps the gate active as if motion were seen at now. The loop calls
// it while a hand is tracked so a still fingertip hovering over a pad does
// not drop the rate.
func (g *Gate) Hold(now time.Time) {
	if g.mode == ModeActive {
		g.lastMotion = now
	}
}

// Mode returns the current mode.
func (g *Gate) Mode() Mode {
	return g.mode
}

// FPS returns the frame rate for the current mode.
func (g *Gate) FPS() int {
	if g.mode == ModeActive {
		return g.ActiveFPS
	}
	return g.IdleFPS
}

// Interval returns the ticker interval for the current mode.
func (g *Gate) Interval() time.Duration {
	fps := g.FPS()
	if fps <= 0 {
		fps = DefaultFPS
	}
	return time.Second / time.Duration(fps)
}

// Force sets the mode directly, as when motion gating is disabled.
func (g *Gate) Force(m Mode, now time.Time) {
	g.mode = m
	g.lastMotion = now
}
