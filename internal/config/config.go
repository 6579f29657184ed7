// Package config holds the paperdrum runtime configuration.
// Values come from Default, then PAPERDRUM_* environment variables, then flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Environment variable names.
const (
	EnvCamera       = "PAPERDRUM_CAMERA"
	EnvVideo        = "PAPERDRUM_VIDEO"
	EnvIdleFPS      = "PAPERDRUM_IDLE_FPS"
	EnvActiveFPS    = "PAPERDRUM_ACTIVE_FPS"
	EnvOverlayW     = "PAPERDRUM_OVERLAY_WIDTH"
	EnvOverlayH     = "PAPERDRUM_OVERLAY_HEIGHT"
	EnvMirrored     = "PAPERDRUM_MIRRORED"
	EnvSheetW       = "PAPERDRUM_SHEET_WIDTH"
	EnvSheetH       = "PAPERDRUM_SHEET_HEIGHT"
	EnvDataDir      = "PAPERDRUM_DATA_DIR"
	EnvAddr         = "PAPERDRUM_ADDR"
	EnvPluginDir    = "PAPERDRUM_PLUGIN_DIR"
	EnvWebDir       = "PAPERDRUM_WEB_DIR"
	EnvMotionThresh = "PAPERDRUM_MOTION_THRESHOLD"
	EnvTray         = "PAPERDRUM_TRAY"
	EnvLogLevel     = "PAPERDRUM_LOG_LEVEL"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete runtime configuration.
type Config struct {
	CameraID int
	// VideoFile replays a recording instead of opening a camera.
	VideoFile string
	IdleFPS   int
	ActiveFPS int
	// OverlayW and OverlayH size the overlay surface. Zero uses the camera size.
	OverlayW int
	OverlayH int
	Mirrored bool
	SheetW   float64
	SheetH   float64

	DataDir      string
	Addr         string
	PluginDir    string
	WebDir       string
	MotionThresh float64
	Tray         bool
	LogLevel     string
}

// Default returns the built-in configuration.
func Default() Config {
	dataDir := ".paperdrum"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".paperdrum")
	}
	return Config{
		CameraID:     0,
		IdleFPS:      5,
		ActiveFPS:    30,
		Mirrored:     true,
		SheetW:       620,
		SheetH:       400,
		DataDir:      dataDir,
		Addr:         ":8080",
		PluginDir:    filepath.Join(dataDir, "plugins"),
		MotionThresh: 1.0,
		Tray:         true,
		LogLevel:     "info",
	}
}

// DBPath returns the SQLite database location.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "paperdrum.db")
}

// FromEnv returns base with PAPERDRUM_* overrides applied.
func FromEnv(base Config) (Config, error) {
	c := base
	var errs []error

	envInt(EnvCamera, &c.CameraID, &errs)
	envInt(EnvIdleFPS, &c.IdleFPS, &errs)
	envInt(EnvActiveFPS, &c.ActiveFPS, &errs)
	envInt(EnvOverlayW, &c.OverlayW, &errs)
	envInt(EnvOverlayH, &c.OverlayH, &errs)
	envBool(EnvMirrored, &c.Mirrored, &errs)
	envFloat(EnvSheetW, &c.SheetW, &errs)
	envFloat(EnvSheetH, &c.SheetH, &errs)
	envFloat(EnvMotionThresh, &c.MotionThresh, &errs)
	envBool(EnvTray, &c.Tray, &errs)

	if v := os.Getenv(EnvDataDir); v != "" {
		c.DataDir = v
		// Plugins follow the data dir unless set explicitly.
		if base.PluginDir == filepath.Join(base.DataDir, "plugins") {
			c.PluginDir = filepath.Join(v, "plugins")
		}
	}
	envString(EnvVideo, &c.VideoFile)
	envString(EnvAddr, &c.Addr)
	envString(EnvPluginDir, &c.PluginDir)
	envString(EnvWebDir, &c.WebDir)
	envString(EnvLogLevel, &c.LogLevel)

	if len(errs) > 0 {
		return base, errors.Join(errs...)
	}
	return c, nil
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int, errs *[]error) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%w: %s=%q: %v", ErrInvalid, key, v, err))
		return
	}
	*dst = n
}

func envFloat(key string, dst *float64, errs *[]error) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%w: %s=%q: %v", ErrInvalid, key, v, err))
		return
	}
	*dst = f
}

func envBool(key string, dst *bool, errs *[]error) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%w: %s=%q: %v", ErrInvalid, key, v, err))
		return
	}
	*dst = b
}

// RegisterFlags binds command-line flags to c. Current values become the defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.CameraID, "camera", c.CameraID, "camera device index")
	fs.StringVar(&c.VideoFile, "video", c.VideoFile, "play a video file instead of the camera")
	fs.IntVar(&c.IdleFPS, "idle-fps", c.IdleFPS, "frame rate while no motion is seen")
	fs.IntVar(&c.ActiveFPS, "active-fps", c.ActiveFPS, "frame rate while tracking")
	fs.IntVar(&c.OverlayW, "overlay-width", c.OverlayW, "overlay width in pixels (0 = camera width)")
	fs.IntVar(&c.OverlayH, "overlay-height", c.OverlayH, "overlay height in pixels (0 = camera height)")
	fs.BoolVar(&c.Mirrored, "mirror", c.Mirrored, "mirror the camera horizontally")
	fs.Float64Var(&c.SheetW, "sheet-width", c.SheetW, "sheet width in sheet units")
	fs.Float64Var(&c.SheetH, "sheet-height", c.SheetH, "sheet height in sheet units")
	fs.StringVar(&c.DataDir, "data", c.DataDir, "data directory")
	fs.StringVar(&c.Addr, "addr", c.Addr, "HTTP listen address")
	fs.StringVar(&c.PluginDir, "plugins", c.PluginDir, "plugin directory")
	fs.StringVar(&c.WebDir, "web", c.WebDir, "static web directory")
	fs.Float64Var(&c.MotionThresh, "motion-threshold", c.MotionThresh, "percent of changed pixels that counts as motion")
	fs.BoolVar(&c.Tray, "tray", c.Tray, "show the system tray icon")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	if c.IdleFPS <= 0 || c.ActiveFPS <= 0 {
		errs = append(errs, fmt.Errorf("%w: frame rates must be positive", ErrInvalid))
	}
	if c.OverlayW < 0 || c.OverlayH < 0 {
		errs = append(errs, fmt.Errorf("%w: overlay size must not be negative", ErrInvalid))
	}
	if (c.OverlayW == 0) != (c.OverlayH == 0) {
		errs = append(errs, fmt.Errorf("%w: set both overlay dimensions or neither", ErrInvalid))
	}
	if c.SheetW <= 0 || c.SheetH <= 0 {
		errs = append(errs, fmt.Errorf("%w: sheet size must be positive", ErrInvalid))
	}
	if c.DataDir == "" {
		errs = append(errs, fmt.Errorf("%w: data directory is required", ErrInvalid))
	}
	return errors.Join(errs...)
}
