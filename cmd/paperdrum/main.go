package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/ayusman/paperdrum/internal/app"
	"github.com/ayusman/paperdrum/internal/audio"
	"github.com/ayusman/paperdrum/internal/capture"
	"github.com/ayusman/paperdrum/internal/config"
	"github.com/ayusman/paperdrum/internal/log"
	"github.com/ayusman/paperdrum/internal/server"
	"github.com/ayusman/paperdrum/internal/store"
	"github.com/ayusman/paperdrum/internal/tray"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "paperdrum:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv(config.Default())
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("paperdrum", flag.ExitOnError)
	cfg.RegisterFlags(fs)
	fs.Parse(os.Args[1:])
	if err := cfg.Validate(); err != nil {
		return err
	}

	log.Init(cfg.LogLevel)
	log.Info("Paper Drum starting", "camera", cfg.CameraID, "addr", cfg.Addr, "data", cfg.DataDir)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kit := audio.NewKit(ctx)
	defer kit.Close()

	var camera capture.Camera
	if cfg.VideoFile != "" {
		camera = capture.NewFileCamera(cfg.VideoFile)
	}

	application := app.New(app.Config{
		Store:        st,
		PluginDir:    cfg.PluginDir,
		CameraID:     cfg.CameraID,
		MotionThresh: cfg.MotionThresh,
		IdleFPS:      cfg.IdleFPS,
		ActiveFPS:    cfg.ActiveFPS,
		OverlayW:     cfg.OverlayW,
		OverlayH:     cfg.OverlayH,
		Mirrored:     cfg.Mirrored,
		SheetW:       cfg.SheetW,
		SheetH:       cfg.SheetH,
		Camera:       camera,
		Audio:        kit,
	})
	defer application.Close()

	if err := application.DiscoverPlugins(); err != nil {
		log.Warn("plugin discovery failed", "dir", cfg.PluginDir, "error", err)
	}
	if err := application.Start(); err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}

	webDir := cfg.WebDir
	if webDir == "" {
		webDir = findWebDir(cfg.DataDir)
	}
	if webDir != "" {
		log.Info("serving static files", "dir", webDir)
	}

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: server.New(server.Config{
			StaticDir:  webDir,
			Store:      st,
			Controller: application,
			Hub:        application.Hub(),
			Plugins:    application.PluginManager(),
			SheetW:     cfg.SheetW,
			SheetH:     cfg.SheetH,
		}),
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	if cfg.Tray {
		runTray(ctx, stop, application, settingsURL(cfg.Addr))
	} else {
		select {
		case <-ctx.Done():
		case err := <-serveErr:
			if err != nil {
				log.Error("HTTP server failed", "error", err)
			}
		}
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown", "error", err)
	}
	return nil
}

// runTray blocks on the tray menu until Quit or a signal.
func runTray(ctx context.Context, stop context.CancelFunc, application *app.App, url string) {
	t := tray.New()
	t.SetEnabled(application.IsEnabled())
	t.OnToggle(application.SetEnabled)
	t.OnCalibrate(func() error {
		calCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		_, err := application.Calibrate(calCtx)
		return err
	})
	t.OnSettings(func() { openBrowser(url) })
	t.OnQuit(stop)

	scenes, unsubscribe := application.Hub().Subscribe(8)
	defer unsubscribe()
	go func() {
		for scene := range scenes {
			if n := len(scene.Strikes); n > 0 {
				t.SetLastStrike(scene.Strikes[n-1].Pad)
			}
		}
	}()
	go func() {
		<-ctx.Done()
		t.Quit()
	}()

	t.Run()
}

func settingsURL(addr string) string {
	host := addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	return "http://" + host + "/"
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Warn("failed to open browser", "url", url, "error", err)
	}
}

// findWebDir searches for the web directory in common locations.
// It checks "web", "../web", "../../web" and <dataDir>/web, returning the
// first existing directory or an empty string.
func findWebDir(dataDir string) string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	dataWebDir := filepath.Join(dataDir, "web")
	if info, err := os.Stat(dataWebDir); err == nil && info.IsDir() {
		return dataWebDir
	}

	return ""
}
