package app

import (
	"context"
	"errors"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/paperdrum/internal/calibration"
	"github.com/ayusman/paperdrum/internal/capture"
	"github.com/ayusman/paperdrum/internal/detector"
	"github.com/ayusman/paperdrum/internal/geometry"
	"github.com/ayusman/paperdrum/internal/hittest"
	"github.com/ayusman/paperdrum/internal/log"
	"github.com/ayusman/paperdrum/internal/plugin"
	"github.com/ayusman/paperdrum/internal/render"
	"github.com/ayusman/paperdrum/internal/session"
)

// pipeline is the state owned by the frame loop goroutine. Nothing here is
// touched from another goroutine; commands run on the loop between frames.
type pipeline struct {
	app        *App
	sessionID  string
	session    *session.Session
	gate       *capture.Gate
	motion     *capture.MotionDetector
	ticker     *time.Ticker
	start      time.Time
	lastTs     int64
	last       gocv.Mat
	records    chan<- hittest.Strike
	dispatcher *plugin.Dispatcher
}

// newPipeline must be called with a.mu held.
func (a *App) newPipeline(sessionID string) *pipeline {
	sc := session.DefaultConfig()
	if a.config.SheetW > 0 && a.config.SheetH > 0 {
		sc.Calibration.SheetW = a.config.SheetW
		sc.Calibration.SheetH = a.config.SheetH
	}

	return &pipeline{
		app:       a,
		sessionID: sessionID,
		session:   session.New(sc, geometry.Viewport{Mirrored: a.mirrored}),
		gate:      capture.NewGate(a.config.IdleFPS, a.config.ActiveFPS, capture.DefaultIdleTimeout),
		motion:    capture.NewMotionDetector(a.config.MotionThresh),
		last:      gocv.NewMat(),
	}
}

// run is the frame loop. One frame is fully processed before the next is
// read; a slow frame lowers the frame rate instead of queueing work.
//
//  1. Read a frame; the loop ends when the source does.
//  2. Motion gate: idle frames skip hand tracking.
//  3. Hand tracking gives the index fingertip, if any.
//  4. The session maps it to the sheet and hit-tests the pads.
//  5. Strikes go to audio, the strike log and bound plugin actions.
//  6. The scene and annotated preview are published to the hub.
func (p *pipeline) run(ctx context.Context, cmds <-chan command) {
	p.start = time.Now()
	if p.app.config.DisableMotionGate {
		p.gate.Force(capture.ModeActive, p.start)
	}
	p.app.camera.SetFPS(p.gate.FPS())
	p.setMode(p.gate.Mode())

	p.ticker = time.NewTicker(p.gate.Interval())
	defer p.ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-cmds:
			c.fn(p)
			close(c.finished)
		case <-p.ticker.C:
			if !p.app.IsEnabled() {
				continue
			}
			if !p.tick() {
				return
			}
		}
	}
}

// tick processes one frame. It returns false when the source has ended.
func (p *pipeline) tick() bool {
	frame, err := p.app.camera.ReadFrame()
	if errors.Is(err, capture.ErrEndOfStream) {
		log.Info("frame source ended")
		return false
	}
	if err != nil {
		log.Warn("error reading frame", "error", err)
		return true
	}
	defer frame.Close()

	now := time.Now()
	p.keep(*frame)
	p.fitViewport(frame.Cols(), frame.Rows())

	if !p.app.config.DisableMotionGate {
		motion, _ := p.motion.Detect(frame)
		if mode, changed := p.gate.Observe(motion, now); changed {
			p.app.camera.SetFPS(p.gate.FPS())
			p.ticker.Reset(p.gate.Interval())
			p.setMode(mode)
			if mode == capture.ModeIdle {
				p.session.ResetTracking()
			}
			log.Debug("frame rate changed", "mode", mode, "fps", p.gate.FPS())
		}
	}

	var tip *geometry.Point
	if p.gate.Mode() == capture.ModeActive {
		tip = p.track(frame, now)
		if tip != nil {
			p.gate.Hold(now)
		}
	}

	tMs := float64(now.Sub(p.start).Microseconds()) / 1000
	f := p.session.Step(tip, tMs)
	for _, s := range f.Strikes {
		p.strike(s)
	}

	p.publish(*frame, f.Scene)
	return true
}

// track runs hand tracking and returns the normalized index fingertip.
func (p *pipeline) track(frame *gocv.Mat, now time.Time) *geometry.Point {
	ts := now.Sub(p.start).Milliseconds()
	if ts <= p.lastTs {
		ts = p.lastTs + 1
	}
	p.lastTs = ts

	hands, err := p.app.detector.Detect(frame, ts)
	if err != nil {
		if !errors.Is(err, detector.ErrNotReady) {
			log.Warn("hand tracking failed", "error", err)
		}
		return nil
	}
	tip, ok := detector.IndexFingertip(hands)
	if !ok {
		return nil
	}
	return &tip
}

// keep retains a copy of the frame for calibration requests.
func (p *pipeline) keep(frame gocv.Mat) {
	frame.CopyTo(&p.last)
}

// fitViewport follows the frame size. A change drops the calibration.
func (p *pipeline) fitViewport(cols, rows int) {
	vp := p.session.Viewport()
	want := geometry.Viewport{
		OverlayW: float64(p.app.config.OverlayW),
		OverlayH: float64(p.app.config.OverlayH),
		SourceW:  float64(cols),
		SourceH:  float64(rows),
		Mirrored: vp.Mirrored,
	}
	if want.OverlayW <= 0 || want.OverlayH <= 0 {
		want.OverlayW, want.OverlayH = want.SourceW, want.SourceH
	}
	if want == vp {
		return
	}
	p.session.SetViewport(want)
	p.syncCalibration()
	log.Info("viewport changed", "overlay_w", want.OverlayW, "overlay_h", want.OverlayH,
		"source_w", want.SourceW, "source_h", want.SourceH)
}

func (p *pipeline) strike(s hittest.Strike) {
	p.app.player.Play(s.SoundID, s.Intensity)
	log.Debug("strike", "pad", s.Pad, "intensity", s.Intensity, "velocity", s.Velocity)

	if p.records != nil {
		select {
		case p.records <- s:
		default:
			log.Warn("strike log full, dropping strike", "pad", s.Pad)
		}
	}
	if p.dispatcher != nil {
		p.dispatcher.Submit(s)
	}

	p.app.mu.Lock()
	p.app.status.Strikes++
	last := s
	p.app.status.LastStrike = &last
	p.app.mu.Unlock()
}

func (p *pipeline) publish(frame gocv.Mat, scene render.Scene) {
	raw, err := render.EncodeJPEG(frame)
	if err != nil {
		log.Warn("failed to encode frame", "error", err)
	}

	display := render.Display(frame, p.session.Viewport().Mirrored)
	render.Annotate(&display, scene, p.session.Viewport())
	preview, err := render.EncodeJPEG(display)
	display.Close()
	if err != nil {
		log.Warn("failed to encode preview", "error", err)
	}

	p.app.hub.Publish(scene, preview, raw)
}

// calibrate runs on the loop goroutine.
func (p *pipeline) calibrate() (*calibration.Calibration, error) {
	if p.last.Empty() {
		return nil, ErrNoFrame
	}
	cal, err := p.session.Calibrate(p.last)
	p.syncCalibration()
	if err != nil {
		return nil, err
	}

	if st := p.app.config.Store; st != nil {
		if err := st.Sessions().IncrementCalibrations(p.sessionID); err != nil {
			log.Warn("failed to count calibration", "error", err)
		}
	}
	return cal, nil
}

func (p *pipeline) setMirrored(mirrored bool) {
	p.session.SetMirrored(mirrored)
	p.syncCalibration()
}

// syncCalibration copies the session's calibration state into the status.
func (p *pipeline) syncCalibration() {
	corners, ok := p.session.Corners()

	p.app.mu.Lock()
	defer p.app.mu.Unlock()
	p.app.status.Calibrated = ok
	p.app.status.Corners = nil
	if ok {
		p.app.status.Corners = corners[:]
	}
	p.app.status.Viewport = p.session.Viewport()
}

func (p *pipeline) setMode(m capture.Mode) {
	p.app.mu.Lock()
	p.app.status.Mode = m.String()
	p.app.mu.Unlock()
}

func (p *pipeline) close() {
	p.last.Close()
	p.motion.Close()
}
