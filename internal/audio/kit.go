package audio

import (
	"context"
	"fmt"

	"github.com/ebitengine/oto/v3"

	"github.com/ayusman/paperdrum/internal/log"
	"github.com/ayusman/paperdrum/internal/readiness"
)

const (
	// SampleRate is the output rate of the kit.
	SampleRate = 44100
	// 10ms of 16-bit mono audio keeps strike latency low.
	bufferSizeBytes = SampleRate / 100 * 2
)

// Kit plays the synthesized drum voices through the default audio device.
// Until the device is ready, Play calls are dropped.
type Kit struct {
	instruments map[string]Instrument
	mix         *mixer
	device      *readiness.Loader[*oto.Player]
}

// NewKit creates a kit and starts opening the audio device in the background.
func NewKit(ctx context.Context) *Kit {
	k := &Kit{
		instruments: Instruments(),
		mix:         &mixer{},
	}
	k.device = readiness.New("audio",
		readiness.Source[*oto.Player]{Name: "oto", Open: k.open},
	)
	k.device.Start(ctx)
	return k
}

func (k *Kit) open(ctx context.Context) (*oto.Player, error) {
	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("open audio context: %w", err)
	}

	select {
	case <-ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	p := otoCtx.NewPlayer(k.mix)
	p.SetBufferSize(bufferSizeBytes)
	p.Play()
	return p, nil
}

// Play starts soundID at the given gain. Unknown IDs are ignored.
func (k *Kit) Play(soundID string, gain float64) {
	inst, ok := k.instruments[soundID]
	if !ok {
		log.Debug("unknown sound", "sound", soundID)
		return
	}
	if _, ready := k.device.Get(); !ready {
		return
	}
	k.mix.Add(&scaledVoice{v: inst.NewVoice(SampleRate), gain: ClampGain(gain)})
}

// Readiness exposes the device loader so callers can report audio status.
func (k *Kit) Readiness() *readiness.Loader[*oto.Player] {
	return k.device
}

// State reports whether the audio device has opened.
func (k *Kit) State() readiness.State {
	return k.device.State()
}

// Close stops playback.
func (k *Kit) Close() error {
	if p, ok := k.device.Get(); ok {
		return p.Close()
	}
	return nil
}
