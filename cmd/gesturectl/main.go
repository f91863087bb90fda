// Command gesturectl controls media playback, volume and brightness with
// hand gestures seen by a webcam.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/Kazeku-06/gesture-media-control/internal/actuator"
	"github.com/Kazeku-06/gesture-media-control/internal/app"
	"github.com/Kazeku-06/gesture-media-control/internal/capture"
	"github.com/Kazeku-06/gesture-media-control/internal/config"
	"github.com/Kazeku-06/gesture-media-control/internal/detector"
	"github.com/Kazeku-06/gesture-media-control/internal/logging"
	"github.com/Kazeku-06/gesture-media-control/internal/metrics"
	"github.com/Kazeku-06/gesture-media-control/internal/pipeline"
	"github.com/Kazeku-06/gesture-media-control/internal/server"
	"github.com/Kazeku-06/gesture-media-control/internal/store"
	"github.com/Kazeku-06/gesture-media-control/internal/tray"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	envFile := flag.String("env", ".env", "path to a .env file (missing is fine)")
	flag.Parse()

	if err := run(*configPath, *envFile); err != nil {
		fmt.Fprintf(os.Stderr, "gesturectl: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, envFile string) error {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging.Level, nil)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.New(config.ExpandPath(cfg.Store.Path))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	m := metrics.New()

	opts := cfg.BuildOptions()
	opts.Logger = logger
	backends, err := actuator.Build(cfg.Actuator.Backends, opts)
	if err != nil {
		return err
	}
	defer closeAll(backends, logger)
	chain := actuator.NewChain(ctx, backends, actuator.ChainConfig{
		Logger:       logger,
		ProbeTimeout: cfg.DispatchTimeout(),
		OnFailover: func(op actuator.Op, from, _ string, _ error) {
			m.ObserveFailover(op, from)
		},
	})

	det := newDetector(cfg, logger)
	defer det.Close()

	motion := capture.NewMotionDetector(cfg.Motion())
	defer motion.Close()

	params, err := cfg.ToParams()
	if err != nil {
		return err
	}

	hub := server.NewHub(logger)
	broadcasters := []app.Broadcaster{hub}

	// a is assigned before any tray callback can run.
	var a *app.App
	var tr *tray.Tray
	if cfg.Tray.Enabled {
		tr = tray.New(app.Snapshot{}, tray.Callbacks{
			OnToggle: func(enabled bool) { a.SetEnabled(enabled) },
			OnTarget: func(t pipeline.Target) {
				if err := a.SetContinuousTarget(t); err != nil {
					logger.Warn("switching pinch target", "error", err)
				}
			},
			OnReset: func() { a.Reset() },
			OnQuit:  stop,
		})
		broadcasters = append(broadcasters, tr)
	}

	a, err = app.New(app.Config{
		Params:          params,
		Cadence:         cfg.Cadence(),
		Camera:          capture.NewCamera(cfg.CaptureConfig()),
		Motion:          motion,
		Detector:        det,
		Executor:        chain,
		DispatchTimeout: cfg.DispatchTimeout(),
		Store:           st,
		Metrics:         m,
		Broadcasters:    broadcasters,
		Logger:          logger,
	})
	if err != nil {
		return err
	}
	if err := a.LoadSettings(); err != nil {
		logger.Warn("restoring settings", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Run(gctx)
	})
	if cfg.Server.Enabled {
		srv := server.New(server.Config{
			StaticDir:  findWebDir(),
			Store:      st,
			Controller: a,
			Hub:        hub,
			Metrics:    m.Handler(),
			Logger:     logger,
		})
		g.Go(func() error {
			return srv.ListenAndServe(gctx, cfg.Server.Addr)
		})
	}

	if tr != nil {
		tr.Broadcast(a.Snapshot())
		go func() {
			<-gctx.Done()
			tr.Quit()
		}()
		tr.Run()
		stop()
	}

	err = g.Wait()
	if saveErr := a.SaveSettings(); saveErr != nil {
		logger.Warn("saving settings", "error", saveErr)
	}
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	logger.Info("stopped")
	return err
}

// newDetector builds the configured detector. A MediaPipe detector that
// cannot be set up falls back to the mock, which never sees a hand.
func newDetector(cfg config.Config, logger *slog.Logger) detector.Detector {
	if cfg.Detector.Kind == "mediapipe" {
		d, err := detector.NewMediaPipeDetector(cfg.DetectorConfig(), logger)
		if err == nil {
			return d
		}
		logger.Warn("mediapipe detector unavailable, no gestures will be seen", "error", err)
	}
	return detector.NewMockDetector()
}

func closeAll(backends []actuator.Backend, logger *slog.Logger) {
	for _, b := range backends {
		if c, ok := b.(io.Closer); ok {
			if err := c.Close(); err != nil {
				logger.Warn("closing backend", "backend", b.Name(), "error", err)
			}
		}
	}
}

// findWebDir searches for the overlay web directory in "web", "../web" and
// ~/.gesturectl/web. It returns "" when none exists.
func findWebDir() string {
	for _, p := range []string{"web", "../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	home := config.ExpandPath("~/.gesturectl/web")
	if info, err := os.Stat(home); err == nil && info.IsDir() {
		return home
	}
	return ""
}
