package detector

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/paperdrum/internal/log"
	"github.com/ayusman/paperdrum/internal/readiness"
)

// ErrScriptNotFound is returned when no MediaPipe service script exists.
var ErrScriptNotFound = errors.New("mediapipe_service.py not found")

const scriptName = "mediapipe_service.py"

// MediaPipeDetector runs hand tracking in a Python MediaPipe subprocess.
//
// Wire protocol, one request per frame:
//
//	stdin:  uint32 big-endian JPEG length | int64 big-endian timestamp ms | JPEG bytes
//	stdout: one JSON line {"hands":[{"points":[{x,y,z}...],"handedness":"Right","score":0.9}]}
//
// On start the service prints {"ready":true} or {"error":"..."}.
type MediaPipeDetector struct {
	config  Config
	ctx     context.Context
	sources []readiness.Source[*process]

	mu        sync.Mutex
	loader    *readiness.Loader[*process]
	idleTimer *time.Timer
}

// NewMediaPipeDetector finds the service script and starts the subprocess
// in the background. Detect returns ErrNotReady until it has started.
func NewMediaPipeDetector(ctx context.Context, config Config) (*MediaPipeDetector, error) {
	script := findMediaPipeScript()
	if script == "" {
		return nil, ErrScriptNotFound
	}

	d := &MediaPipeDetector{
		config:  config,
		ctx:     ctx,
		sources: processSources(findPythons(), script, config),
	}
	d.mu.Lock()
	d.restart()
	d.mu.Unlock()
	return d, nil
}

// restart must be called with d.mu held.
func (d *MediaPipeDetector) restart() {
	d.loader = readiness.New("hand tracker", d.sources...)
	d.loader.Start(d.ctx)
}

// State reports the subprocess readiness.
func (d *MediaPipeDetector) State() readiness.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.loader == nil {
		return readiness.Unloaded
	}
	return d.loader.State()
}

// Ready blocks until the subprocess is ready or failed, or ctx is done.
func (d *MediaPipeDetector) Ready(ctx context.Context) error {
	d.mu.Lock()
	if d.loader == nil {
		d.restart()
	}
	l := d.loader
	d.mu.Unlock()

	_, err := l.Wait(ctx)
	return err
}

// Detect analyzes a frame and returns detected hand landmarks.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat, timestampMs int64) ([]HandLandmarks, error) {
	if frame == nil || frame.Empty() {
		return nil, ErrNilFrame
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.loader == nil {
		d.restart()
	}
	p, ok := d.loader.Get()
	if !ok {
		if d.loader.State() == readiness.Failed {
			return nil, fmt.Errorf("%w: %w", ErrNotReady, d.loader.Err())
		}
		return nil, ErrNotReady
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	hands, err := p.roundTrip(buf.GetBytes(), timestampMs)
	if err != nil {
		// The process is unusable; start a new one on the next frame.
		log.Warn("hand tracker failed, restarting", "error", err)
		p.kill()
		d.loader = nil
		return nil, err
	}

	d.resetIdleTimer()
	return hands, nil
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *MediaPipeDetector) shutdown() error {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}
	if d.loader == nil {
		return nil
	}
	l := d.loader
	d.loader = nil

	if l.State() == readiness.Loading {
		// Reap a process that finishes starting after shutdown.
		go func() {
			<-l.Done()
			if p, ok := l.Get(); ok {
				p.close()
			}
		}()
		return nil
	}
	if p, ok := l.Get(); ok {
		return p.close()
	}
	return nil
}

func (d *MediaPipeDetector) resetIdleTimer() {
	if d.config.IdleShutdown <= 0 {
		return
	}
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(d.config.IdleShutdown, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		log.Debug("hand tracker idle, stopping")
		d.shutdown()
	})
}

// process is a running MediaPipe service.
type process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
}

func processSources(pythons []string, script string, cfg Config) []readiness.Source[*process] {
	sources := make([]readiness.Source[*process], 0, len(pythons))
	for _, py := range pythons {
		sources = append(sources, readiness.Source[*process]{
			Name: py,
			Open: func(ctx context.Context) (*process, error) {
				return startProcess(ctx, py, script, cfg)
			},
		})
	}
	return sources
}

func startProcess(ctx context.Context, python, script string, cfg Config) (*process, error) {
	cmd := exec.Command(python, script,
		"--max-hands", strconv.Itoa(cfg.MaxHands),
		"--min-detection", strconv.FormatFloat(cfg.MinConfidence, 'f', -1, 64),
		"--min-tracking", strconv.FormatFloat(cfg.MinTrackingConf, 'f', -1, 64),
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start mediapipe service: %w", err)
	}

	p := &process{cmd: cmd, stdin: stdin, stdout: bufio.NewReader(stdout)}

	timeout := cfg.StartTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().StartTimeout
	}
	if err := p.handshake(ctx, timeout); err != nil {
		p.kill()
		return nil, err
	}
	return p, nil
}

func (p *process) handshake(ctx context.Context, timeout time.Duration) error {
	type result struct {
		line []byte
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := p.stdout.ReadBytes('\n')
		ch <- result{line, err}
	}()

	var r result
	select {
	case r = <-ch:
	case <-time.After(timeout):
		return fmt.Errorf("mediapipe service did not start within %s", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
	if r.err != nil {
		return fmt.Errorf("read handshake: %w", r.err)
	}

	var hello struct {
		Ready bool   `json:"ready"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(r.line, &hello); err != nil {
		return fmt.Errorf("parse handshake: %w", err)
	}
	if !hello.Ready {
		if hello.Error == "" {
			hello.Error = "not ready"
		}
		return fmt.Errorf("mediapipe service: %s", hello.Error)
	}
	return nil
}

func (p *process) roundTrip(jpeg []byte, timestampMs int64) ([]HandLandmarks, error) {
	header := make([]byte, 12)
	binary.BigEndian.PutUint32(header[:4], uint32(len(jpeg)))
	binary.BigEndian.PutUint64(header[4:], uint64(timestampMs))

	if _, err := p.stdin.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if _, err := p.stdin.Write(jpeg); err != nil {
		return nil, fmt.Errorf("write data: %w", err)
	}

	line, err := p.stdout.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return decodeResponse(line)
}

func (p *process) close() error {
	if p.stdin != nil {
		p.stdin.Close()
	}
	return p.cmd.Wait()
}

func (p *process) kill() {
	if p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
	p.cmd.Wait()
}

func decodeResponse(line []byte) ([]HandLandmarks, error) {
	var response struct {
		Hands []jsonHand `json:"hands"`
		Error string     `json:"error"`
	}
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if response.Error != "" {
		return nil, fmt.Errorf("mediapipe service: %s", response.Error)
	}

	result := make([]HandLandmarks, len(response.Hands))
	for i, h := range response.Hands {
		result[i] = h.toHandLandmarks()
	}
	return result, nil
}

func searchDirs() []string {
	dirs := []string{".", ".."}
	if execPath, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(execPath))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".paperdrum"))
	}
	return dirs
}

func findMediaPipeScript() string {
	for _, dir := range searchDirs() {
		if path := existing(filepath.Join(dir, "scripts", scriptName)); path != "" {
			return path
		}
	}
	return ""
}

// findPythons lists interpreters to try: virtual environments first, then
// the system python3.
func findPythons() []string {
	var out []string
	for _, dir := range searchDirs() {
		if path := existing(filepath.Join(dir, "venv", "bin", "python")); path != "" {
			out = append(out, path)
		}
	}
	if path, err := exec.LookPath("python3"); err == nil {
		out = append(out, path)
	}
	return out
}

func existing(path string) string {
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// jsonHand represents the JSON structure from the Python service.
type jsonHand struct {
	Points     []jsonPoint `json:"points"`
	Handedness string      `json:"handedness"`
	Score      float64     `json:"score"`
}

type jsonPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (h jsonHand) toHandLandmarks() HandLandmarks {
	lm := HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}

	for i := 0; i < NumLandmarks && i < len(h.Points); i++ {
		lm.Points[i] = Point3D{
			X: h.Points[i].X,
			Y: h.Points[i].Y,
			Z: h.Points[i].Z,
		}
	}

	return lm
}
