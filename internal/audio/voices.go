package audio

import (
	"math"
	"math/rand"
	"time"

	"github.com/ayusman/paperdrum/internal/pads"
)

// Voice generates PCM samples in the range [-1,1].
type Voice interface {
	// Sample returns the next sample and whether the voice has finished.
	Sample() (float64, bool)
}

// Instrument builds a fresh voice for each hit.
type Instrument interface {
	NewVoice(sampleRate int) Voice
}

// Instruments returns the built-in kit keyed by sound ID.
func Instruments() map[string]Instrument {
	return map[string]Instrument{
		pads.SoundKick:        kick{},
		pads.SoundSnare:       snare{},
		pads.SoundHiHatClosed: hihat{decay: 9, dur: 60 * time.Millisecond},
		pads.SoundHiHatOpen:   hihat{decay: 3, dur: 400 * time.Millisecond},
		pads.SoundTom:         tom{},
		pads.SoundClap:        clap{},
	}
}

func sampleCount(sampleRate int, d time.Duration) int {
	return int(float64(sampleRate) * d.Seconds())
}

// funcVoice steps a per-sample generator over a fixed number of samples.
type funcVoice struct {
	i, n int
	gen  func(i int, t float64) float64
}

func (v *funcVoice) Sample() (float64, bool) {
	if v.i >= v.n {
		return 0, true
	}
	t := float64(v.i) / float64(v.n)
	s := v.gen(v.i, t)
	v.i++
	return s, false
}

// kick is a decaying sine with a downward pitch bend.
type kick struct{}

func (kick) NewVoice(sampleRate int) Voice {
	n := sampleCount(sampleRate, 250*time.Millisecond)
	sr := float64(sampleRate)
	var phase float64
	return &funcVoice{n: n, gen: func(_ int, t float64) float64 {
		freq := 150 - 100*t
		phase += 2 * math.Pi * freq / sr
		return math.Sin(phase) * math.Exp(-5*t)
	}}
}

// snare mixes white noise with a short body tone.
type snare struct{}

func (snare) NewVoice(sampleRate int) Voice {
	n := sampleCount(sampleRate, 200*time.Millisecond)
	sr := float64(sampleRate)
	rng := rand.New(rand.NewSource(rand.Int63()))
	return &funcVoice{n: n, gen: func(i int, t float64) float64 {
		noise := rng.Float64()*2 - 1
		body := math.Sin(2 * math.Pi * 180 * float64(i) / sr)
		return (0.75*noise + 0.25*body) * math.Exp(-4*t)
	}}
}

// hihat is high-passed noise; decay and length tell open from closed.
type hihat struct {
	decay float64
	dur   time.Duration
}

func (h hihat) NewVoice(sampleRate int) Voice {
	n := sampleCount(sampleRate, h.dur)
	rng := rand.New(rand.NewSource(rand.Int63()))
	var prev float64
	return &funcVoice{n: n, gen: func(_ int, t float64) float64 {
		noise := rng.Float64()*2 - 1
		// First difference removes most of the low end.
		hp := noise - prev
		prev = noise
		return 0.5 * hp * math.Exp(-h.decay*t)
	}}
}

// tom is a pitched drum with a slight noise attack.
type tom struct{}

func (tom) NewVoice(sampleRate int) Voice {
	n := sampleCount(sampleRate, 300*time.Millisecond)
	sr := float64(sampleRate)
	rng := rand.New(rand.NewSource(rand.Int63()))
	var phase float64
	return &funcVoice{n: n, gen: func(_ int, t float64) float64 {
		freq := 110 - 30*t
		phase += 2 * math.Pi * freq / sr
		attack := 0.0
		if t < 0.05 {
			attack = (rng.Float64()*2 - 1) * (1 - t/0.05)
		}
		return (0.8*math.Sin(phase) + 0.2*attack) * math.Exp(-4*t)
	}}
}

// clap is three short noise bursts followed by a decaying tail.
type clap struct{}

func (clap) NewVoice(sampleRate int) Voice {
	n := sampleCount(sampleRate, 250*time.Millisecond)
	burst := sampleCount(sampleRate, 10*time.Millisecond)
	rng := rand.New(rand.NewSource(rand.Int63()))
	return &funcVoice{n: n, gen: func(i int, t float64) float64 {
		noise := rng.Float64()*2 - 1
		if k := i / burst; k < 6 {
			if k%2 == 1 {
				return 0
			}
			local := float64(i%burst) / float64(burst)
			return noise * math.Exp(-6*local)
		}
		return 0.7 * noise * math.Exp(-8*t)
	}}
}

// scaledVoice applies a fixed gain to another voice.
type scaledVoice struct {
	v    Voice
	gain float64
}

func (s *scaledVoice) Sample() (float64, bool) {
	f, done := s.v.Sample()
	return f * s.gain, done
}
