// Package pads defines the six drum pads printed on the sheet.
package pads

import (
	"math"

	"github.com/ayusman/paperdrum/internal/geometry"
)

// Pad is a circular hit region in sheet coordinates (top-left origin).
type Pad struct {
	Name    string         `json:"name"`
	Center  geometry.Point `json:"center"`
	Radius  float64        `json:"radius"`
	SoundID string         `json:"sound_id"`
}

// Contains reports whether p lies inside or on the pad circle.
func (p Pad) Contains(pt geometry.Point) bool {
	return p.Center.Distance(pt) <= p.Radius
}

// Sound identifiers understood by the audio kit.
const (
	SoundKick        = "kick"
	SoundSnare       = "snare"
	SoundHiHatClosed = "hihat_closed"
	SoundTom         = "tom"
	SoundClap        = "clap"
	SoundHiHatOpen   = "hihat_open"
)

// Print layout. Centres are given on a 384x288 grid with a bottom-left
// origin, the layout the sheet PDF was drawn on.
const (
	baseW      = 384.0
	baseH      = 288.0
	baseRadius = 32.0
	padScale   = 1.53

	// Row nudges as a fraction of sheet height; positive moves down.
	topRowNudge    = 6.0 / 400
	bottomRowNudge = -10.0 / 400
)

type basePad struct {
	name  string
	x, y  float64
	sound string
}

var basePads = []basePad{
	{"Kick", 64, 72, SoundKick},
	{"Snare", 192, 72, SoundSnare},
	{"HiHat C", 320, 72, SoundHiHatClosed},
	{"Tom", 64, 172, SoundTom},
	{"Clap", 192, 172, SoundClap},
	{"HiHat O", 320, 172, SoundHiHatOpen},
}

// Layout returns the six pads for a sheetW x sheetH sheet in top-left
// origin sheet coordinates. The returned slice is freshly allocated.
func Layout(sheetW, sheetH float64) []Pad {
	sx := sheetW / baseW
	sy := sheetH / baseH

	out := make([]Pad, 0, len(basePads))
	for _, b := range basePads {
		yBL := b.y * sy
		y := sheetH - yBL
		if yBL > sheetH/2 {
			y += topRowNudge * sheetH
		} else {
			y += bottomRowNudge * sheetH
		}

		out = append(out, Pad{
			Name:    b.name,
			Center:  geometry.Pt(b.x*sx, y),
			Radius:  math.Round(baseRadius * sx * padScale),
			SoundID: b.sound,
		})
	}
	return out
}

// Names returns the pad names in layout order.
func Names() []string {
	names := make([]string, len(basePads))
	for i, b := range basePads {
		names[i] = b.name
	}
	return names
}

// Valid reports whether name is one of the six pads.
func Valid(name string) bool {
	for _, b := range basePads {
		if b.name == name {
			return true
		}
	}
	return false
}
