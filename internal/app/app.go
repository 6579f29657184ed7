// Package app wires the camera, hand tracker, tracking session, audio kit
// and strike sinks into the running Paper Drum pipeline.
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/paperdrum/internal/audio"
	"github.com/ayusman/paperdrum/internal/calibration"
	"github.com/ayusman/paperdrum/internal/capture"
	"github.com/ayusman/paperdrum/internal/detector"
	"github.com/ayusman/paperdrum/internal/geometry"
	"github.com/ayusman/paperdrum/internal/hittest"
	"github.com/ayusman/paperdrum/internal/log"
	"github.com/ayusman/paperdrum/internal/plugin"
	"github.com/ayusman/paperdrum/internal/readiness"
	"github.com/ayusman/paperdrum/internal/render"
	"github.com/ayusman/paperdrum/internal/store"
)

// Buffer sizes for the strike sinks off the frame loop.
const (
	RecordBuffer   = 64
	DispatchBuffer = 16
)

var (
	// ErrNotRunning is returned by commands sent while the pipeline is stopped.
	ErrNotRunning = errors.New("pipeline not running")
	// ErrNoFrame is returned by Calibrate before the first camera frame.
	ErrNoFrame = errors.New("no camera frame yet")
)

// Config holds configuration options for the application.
type Config struct {
	Store        *store.Store
	PluginDir    string
	CameraID     int
	MotionThresh float64
	// DisableMotionGate runs hand tracking on every frame.
	DisableMotionGate bool
	IdleFPS           int
	ActiveFPS         int
	// OverlayW and OverlayH size the overlay surface. Zero uses the frame size.
	OverlayW int
	OverlayH int
	Mirrored bool
	SheetW   float64
	SheetH   float64

	// Optional components. Nil values get the production implementations.
	Camera   capture.Camera
	Detector detector.Detector
	Audio    audio.Player
	Hub      *render.Hub
}

// Status is a point-in-time view of the pipeline.
type Status struct {
	Running       bool              `json:"running"`
	Enabled       bool              `json:"enabled"`
	Calibrated    bool              `json:"calibrated"`
	Mirrored      bool              `json:"mirrored"`
	Corners       []geometry.Point  `json:"corners,omitempty"`
	Mode          string            `json:"mode"`
	TrackingReady bool              `json:"tracking_ready"`
	AudioReady    bool              `json:"audio_ready"`
	SessionID     string            `json:"session_id,omitempty"`
	Viewport      geometry.Viewport `json:"viewport"`
	Strikes       int               `json:"strikes"`
	LastStrike    *hittest.Strike   `json:"last_strike,omitempty"`
}

// stateful is implemented by components that start in the background.
type stateful interface {
	State() readiness.State
}

// App is the main application that turns fingertip strikes into sound.
type App struct {
	config     Config
	camera     capture.Camera
	detector   detector.Detector
	player     audio.Player
	hub        *render.Hub
	pluginMgr  *plugin.Manager
	pluginExec *plugin.Executor

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	enabled  bool
	mirrored bool
	running  bool
	cmds     chan command
	done     chan struct{}
	stop     context.CancelFunc
	status   Status
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	if config.MotionThresh <= 0 {
		config.MotionThresh = 1.0
	}
	if config.IdleFPS <= 0 {
		config.IdleFPS = capture.DefaultFPS
	}
	if config.ActiveFPS <= 0 {
		config.ActiveFPS = 30
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		config:     config,
		camera:     config.Camera,
		detector:   config.Detector,
		player:     config.Audio,
		hub:        config.Hub,
		pluginMgr:  plugin.NewManager(config.PluginDir),
		pluginExec: plugin.NewExecutor(plugin.DefaultTimeout),
		ctx:        ctx,
		cancel:     cancel,
		enabled:    true,
		mirrored:   config.Mirrored,
	}

	if a.camera == nil {
		a.camera = capture.NewCamera(config.CameraID)
	}
	if a.player == nil {
		a.player = audio.Nop{}
	}
	if a.hub == nil {
		a.hub = render.NewHub()
	}
	if a.detector == nil {
		if mp, err := detector.NewMediaPipeDetector(ctx, detector.DefaultConfig()); err == nil {
			a.detector = mp
			log.Info("using MediaPipe hand tracking")
		} else {
			log.Warn("MediaPipe not available, tracking disabled", "error", err)
			a.detector = detector.NewMockDetector()
		}
	}

	if config.Store != nil {
		m, err := config.Store.Settings().GetBool(store.SettingMirrored, config.Mirrored)
		if err != nil {
			log.Warn("failed to load mirror setting", "error", err)
		}
		a.mirrored = m
	}

	a.status = Status{Enabled: a.enabled, Mirrored: a.mirrored, Mode: capture.ModeIdle.String()}
	return a
}

// SetEnabled enables or disables frame processing.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
	a.status.Enabled = enabled
}

// IsEnabled returns whether frame processing is enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// IsRunning reports whether the pipeline goroutine is active.
func (a *App) IsRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running
}

// DiscoverPlugins scans the plugin directory and loads available plugins.
func (a *App) DiscoverPlugins() error {
	return a.pluginMgr.Discover()
}

// Start opens the camera and begins the frame loop with a new play session.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.done != nil {
		select {
		case <-a.done:
		default:
			return nil
		}
	}

	if err := a.camera.Open(); err != nil {
		return err
	}
	a.camera.SetFPS(a.config.IdleFPS)

	sessionID := uuid.New().String()
	if a.config.Store != nil {
		if err := a.config.Store.Sessions().Create(&store.Session{ID: sessionID}); err != nil {
			log.Error("failed to record session", "error", err)
		}
	}

	ctx, stop := context.WithCancel(a.ctx)
	p := a.newPipeline(sessionID)

	var (
		workers sync.WaitGroup
		records chan hittest.Strike
	)
	if a.config.Store != nil {
		records = make(chan hittest.Strike, RecordBuffer)
		p.records = records
		workers.Add(1)
		go func() {
			defer workers.Done()
			a.recordStrikes(sessionID, records)
		}()

		d := plugin.NewDispatcher(a.pluginMgr, a.pluginExec, storeBindings{a.config.Store.Actions()}, DispatchBuffer)
		p.dispatcher = d
		workers.Add(1)
		go func() {
			defer workers.Done()
			d.Run(ctx)
		}()
	}

	cmds := make(chan command)
	done := make(chan struct{})
	a.cmds = cmds
	a.done = done
	a.stop = stop
	a.running = true
	a.status.Running = true
	a.status.SessionID = sessionID
	a.status.Strikes = 0
	a.status.LastStrike = nil

	go func() {
		defer close(done)
		p.run(ctx, cmds)
		stop()
		if records != nil {
			close(records)
		}
		workers.Wait()
		p.close()
		a.finish(sessionID)
	}()

	log.Info("pipeline started", "session", sessionID, "mirrored", a.mirrored)
	return nil
}

// finish releases the camera and tracker once the loop has returned,
// whether it was stopped or the frame source ended.
func (a *App) finish(sessionID string) {
	if err := a.camera.Close(); err != nil {
		log.Error("error closing camera", "error", err)
	}
	if err := a.detector.Close(); err != nil {
		log.Error("error closing detector", "error", err)
	}
	if a.config.Store != nil {
		if err := a.config.Store.Sessions().End(sessionID, time.Now()); err != nil {
			log.Error("failed to end session", "session", sessionID, "error", err)
		}
	}

	a.mu.Lock()
	a.running = false
	a.status.Running = false
	a.status.Calibrated = false
	a.status.Corners = nil
	a.status.Mode = capture.ModeIdle.String()
	a.mu.Unlock()
	log.Info("pipeline stopped", "session", sessionID)
}

// Stop halts the frame loop and waits until pending strikes are flushed
// and the session is closed.
func (a *App) Stop() {
	a.mu.RLock()
	done, stop := a.done, a.stop
	a.mu.RUnlock()

	if done == nil {
		return
	}
	stop()
	<-done
}

// Wait blocks until the frame loop exits or ctx is done.
func (a *App) Wait(ctx context.Context) error {
	a.mu.RLock()
	done := a.done
	a.mu.RUnlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the pipeline and cancels background startup work.
func (a *App) Close() {
	a.Stop()
	a.cancel()
}

// Calibrate runs fiducial detection on the most recent camera frame inside
// the frame loop.
func (a *App) Calibrate(ctx context.Context) (*calibration.Calibration, error) {
	var (
		cal *calibration.Calibration
		err error
	)
	if doErr := a.do(ctx, func(p *pipeline) { cal, err = p.calibrate() }); doErr != nil {
		return nil, doErr
	}
	return cal, err
}

// SetMirrored changes horizontal mirroring and persists the preference.
// A running session drops its calibration.
func (a *App) SetMirrored(ctx context.Context, mirrored bool) error {
	err := a.do(ctx, func(p *pipeline) { p.setMirrored(mirrored) })
	if err != nil && !errors.Is(err, ErrNotRunning) {
		return err
	}

	a.mu.Lock()
	a.mirrored = mirrored
	a.status.Mirrored = mirrored
	a.mu.Unlock()

	if a.config.Store != nil {
		if err := a.config.Store.Settings().SetBool(store.SettingMirrored, mirrored); err != nil {
			log.Warn("failed to persist mirror setting", "error", err)
		}
	}
	return nil
}

// Mirrored reports the current mirroring preference.
func (a *App) Mirrored() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.mirrored
}

// Status returns a snapshot of the pipeline state.
func (a *App) Status() Status {
	a.mu.RLock()
	s := a.status
	a.mu.RUnlock()

	s.Corners = append([]geometry.Point(nil), s.Corners...)
	s.TrackingReady = ready(a.detector)
	s.AudioReady = ready(a.player)
	return s
}

func ready(c any) bool {
	if s, ok := c.(stateful); ok {
		return s.State() == readiness.Ready
	}
	return true
}

// Hub returns the scene hub fed by the frame loop.
func (a *App) Hub() *render.Hub {
	return a.hub
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// Detector returns the hand detector.
func (a *App) Detector() detector.Detector {
	return a.detector
}

// Store returns the backing store, which may be nil.
func (a *App) Store() *store.Store {
	return a.config.Store
}

// command runs fn on the loop goroutine between frames.
type command struct {
	fn       func(*pipeline)
	finished chan struct{}
}

func (a *App) do(ctx context.Context, fn func(*pipeline)) error {
	a.mu.RLock()
	cmds, done := a.cmds, a.done
	a.mu.RUnlock()
	if cmds == nil {
		return ErrNotRunning
	}

	c := command{fn: fn, finished: make(chan struct{})}
	select {
	case cmds <- c:
	case <-done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-c.finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// recordStrikes writes strikes to the store until records is closed.
func (a *App) recordStrikes(sessionID string, records <-chan hittest.Strike) {
	repo := a.config.Store.Strikes()
	for s := range records {
		err := repo.Create(&store.Strike{
			SessionID:   sessionID,
			Pad:         s.Pad,
			Intensity:   s.Intensity,
			Velocity:    s.Velocity,
			TimestampMs: s.TimestampMs,
		})
		if err != nil {
			log.Error("failed to record strike", "pad", s.Pad, "error", err)
		}
	}
}

// storeBindings resolves pad bindings from the actions table.
type storeBindings struct {
	actions *store.ActionRepository
}

func (b storeBindings) BindingForPad(pad string) (plugin.Binding, bool, error) {
	a, err := b.actions.GetByPad(pad)
	if err != nil || a == nil || !a.Enabled {
		return plugin.Binding{}, false, err
	}
	return plugin.Binding{Plugin: a.PluginName, Action: a.ActionName, Config: a.Config}, true, nil
}
