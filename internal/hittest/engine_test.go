package hittest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/paperdrum/internal/geometry"
	"github.com/ayusman/paperdrum/internal/pads"
)

var snare = pads.Pad{Name: "Snare", Center: geometry.Pt(100, 100), Radius: 20, SoundID: pads.SoundSnare}

type frame struct {
	x, y float64
	t    float64
}

func run(e *Engine, frames []frame) []Strike {
	var all []Strike
	for _, f := range frames {
		all = append(all, e.Update(geometry.Pt(f.x, f.y), f.t)...)
	}
	return all
}

func TestEngine_FirstPointNeverFires(t *testing.T) {
	e := New([]pads.Pad{snare}, DefaultConfig())

	strikes := e.Update(geometry.Pt(100, 100), 0)

	assert.Empty(t, strikes)
	assert.True(t, e.Hover("Snare"))
	last, ok := e.Last()
	require.True(t, ok)
	assert.Equal(t, geometry.Pt(100, 100), last.Position)
}

func TestEngine_RisingEdge(t *testing.T) {
	e := New([]pads.Pad{snare}, DefaultConfig())

	strikes := run(e, []frame{
		{50, 100, 0},
		{100, 100, 33},
	})
	require.Len(t, strikes, 1)
	assert.Equal(t, "Snare", strikes[0].Pad)
	assert.Equal(t, pads.SoundSnare, strikes[0].SoundID)
	assert.Equal(t, 1.0, strikes[0].Intensity)
	assert.InDelta(t, 50/0.033, strikes[0].Velocity, 1e-6)
	assert.Equal(t, 33.0, strikes[0].TimestampMs)

	// Staying inside fires nothing more.
	assert.Empty(t, run(e, []frame{{101, 100, 66}, {100, 101, 99}, {99, 100, 132}}))

	// Leaving and coming back fires exactly once.
	strikes = run(e, []frame{{50, 100, 300}, {100, 100, 333}, {100, 102, 366}})
	assert.Len(t, strikes, 1)
}

func TestEngine_VelocityGate(t *testing.T) {
	e := New([]pads.Pad{snare}, DefaultConfig())

	// 1.5 sheet units per second, below the 2.0 threshold.
	var frames []frame
	for i := 0; i <= 16; i++ {
		frames = append(frames, frame{x: 76 + 1.5*float64(i), y: 100, t: float64(i) * 1000})
	}

	assert.Empty(t, run(e, frames))
	assert.True(t, e.Hover("Snare"), "slow entry still updates hover")
}

func TestEngine_Cooldown(t *testing.T) {
	tests := []struct {
		name   string
		gapMs  float64
		strike int
	}{
		{"50ms apart", 50, 1},
		{"119ms apart", 119, 1},
		{"120ms apart", 120, 2},
		{"150ms apart", 150, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New([]pads.Pad{snare}, DefaultConfig())

			strikes := run(e, []frame{
				{50, 100, 0},
				{100, 100, 10},
				{50, 100, 10 + tt.gapMs/2},
				{100, 100, 10 + tt.gapMs},
			})
			assert.Len(t, strikes, tt.strike)
		})
	}
}

func TestEngine_CooldownStillUpdatesHover(t *testing.T) {
	e := New([]pads.Pad{snare}, DefaultConfig())

	run(e, []frame{{50, 100, 0}, {100, 100, 10}, {50, 100, 30}, {100, 100, 60}})
	assert.True(t, e.Hover("Snare"))

	// Still inside after the cooldown: no new rising edge.
	assert.Empty(t, run(e, []frame{{98, 100, 400}}))
}

func TestEngine_SlowWithdrawalRearmsPad(t *testing.T) {
	e := New([]pads.Pad{snare}, DefaultConfig())

	require.Len(t, run(e, []frame{{50, 100, 0}, {100, 100, 33}}), 1)
	require.True(t, e.Hover("Snare"))

	// Creep out at one unit per second.
	tMs := 33.0
	for x := 101.0; x <= 125; x++ {
		tMs += 1000
		assert.Empty(t, e.Update(geometry.Pt(x, 100), tMs))
	}
	assert.False(t, e.Hover("Snare"), "hover cleared during the slow phase")

	strikes := e.Update(geometry.Pt(100, 100), tMs+33)
	assert.Len(t, strikes, 1)
}

func TestEngine_NonPositiveDtIsStationary(t *testing.T) {
	e := New([]pads.Pad{snare}, DefaultConfig())

	e.Update(geometry.Pt(50, 100), 100)
	assert.Empty(t, e.Update(geometry.Pt(100, 100), 100))
	assert.True(t, e.Hover("Snare"))

	e.Reset()
	e.Update(geometry.Pt(50, 100), 100)
	assert.Empty(t, e.Update(geometry.Pt(100, 100), 90))
}

func TestEngine_MultiplePads(t *testing.T) {
	layout := pads.Layout(620, 400)
	e := New(layout, DefaultConfig())

	kick, clap := layout[0], layout[4]

	strikes := run(e, []frame{
		{kick.Center.X, kick.Center.Y - 200, 0},
		{kick.Center.X, kick.Center.Y, 33},
		{clap.Center.X, clap.Center.Y, 66},
	})
	require.Len(t, strikes, 2)
	assert.Equal(t, "Kick", strikes[0].Pad)
	assert.Equal(t, "Clap", strikes[1].Pad)
	assert.False(t, e.Hover("Kick"))
}

func TestEngine_Reset(t *testing.T) {
	e := New([]pads.Pad{snare}, DefaultConfig())
	run(e, []frame{{50, 100, 0}, {100, 100, 10}})

	e.Reset()

	_, ok := e.Last()
	assert.False(t, ok)
	assert.False(t, e.Hover("Snare"))

	// Cooldown is forgotten too.
	strikes := run(e, []frame{{50, 100, 20}, {100, 100, 30}})
	assert.Len(t, strikes, 1)
}

func TestConfig_Intensity(t *testing.T) {
	c := DefaultConfig()

	tests := []struct {
		v    float64
		want float64
	}{
		{0, 0.15},
		{22, 0.15},
		{110, 0.5},
		{220, 1.0},
		{1000, 1.0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, c.Intensity(tt.v), 1e-12, "v=%v", tt.v)
	}
}
