// Package app runs the frame loop: it reads the camera, classifies the hand,
// hands commands to the actuator and keeps a snapshot of the state for the
// HTTP API and the tray.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Kazeku-06/gesture-media-control/internal/actuator"
	"github.com/Kazeku-06/gesture-media-control/internal/capture"
	"github.com/Kazeku-06/gesture-media-control/internal/debounce"
	"github.com/Kazeku-06/gesture-media-control/internal/detector"
	"github.com/Kazeku-06/gesture-media-control/internal/gesture"
	"github.com/Kazeku-06/gesture-media-control/internal/metrics"
	"github.com/Kazeku-06/gesture-media-control/internal/pipeline"
	"github.com/Kazeku-06/gesture-media-control/internal/sampler"
	"github.com/Kazeku-06/gesture-media-control/internal/store"
)

// ErrRunning is returned by Run when the loop is already running.
var ErrRunning = errors.New("app is already running")

// Broadcaster receives a snapshot after every frame. Broadcast must not
// block.
type Broadcaster interface {
	Broadcast(v any)
}

// Config holds the collaborators and parameters of an App.
type Config struct {
	Params  pipeline.Params
	Cadence capture.CadenceConfig

	Camera   capture.Camera
	Motion   *capture.MotionDetector // nil treats every frame as motion
	Detector detector.Detector

	// Executor carries out commands, normally an *actuator.Chain.
	Executor        actuator.Executor
	DispatchTimeout time.Duration

	Store        *store.Store
	Metrics      *metrics.Metrics
	Broadcasters []Broadcaster
	Logger       *slog.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// Snapshot is the externally visible state.
type Snapshot struct {
	Enabled       bool             `json:"enabled"`
	Active        bool             `json:"active"`
	FPS           int              `json:"fps"`
	Label         gesture.Label    `json:"label"`
	Volume        float64          `json:"volume"`
	Brightness    float64          `json:"brightness"`
	Target        pipeline.Target  `json:"target"`
	Parked        bool             `json:"parked"`
	PinchDistance float64          `json:"pinch_distance"`
	Features      gesture.Features `json:"features"`
	Fired         debounce.Command `json:"fired,omitempty"`
	LastCommand   debounce.Command `json:"last_command,omitempty"`
	LastCommandAt time.Time        `json:"last_command_at"`
	Sampler       sampler.Stats    `json:"sampler"`

	Backends  map[actuator.Op]string `json:"backends,omitempty"`
	Exhausted []actuator.Op          `json:"exhausted,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// chainStatus is the part of *actuator.Chain the app reports on.
type chainStatus interface {
	Status() <-chan actuator.StatusEvent
	Selected() map[actuator.Op]string
	Exhausted() []actuator.Op
}

// levelReader is implemented by executors that can read back the current
// volume and brightness, normally *actuator.Chain.
type levelReader interface {
	Level(ctx context.Context, op actuator.Op) (float64, error)
}

// App owns the frame loop and everything it drives.
type App struct {
	cfg        Config
	logger     *slog.Logger
	now        func() time.Time
	dispatcher *actuator.Dispatcher
	status     chainStatus
	levels     levelReader

	enabled    atomic.Bool
	running    atomic.Bool
	readFailed bool

	mu      sync.Mutex // guards everything below
	pipe    *pipeline.Pipeline
	sampler *sampler.Sampler
	cadence *capture.Cadence
	snap    Snapshot
}

// New validates cfg and builds the pipeline, sampler and dispatcher. The
// app starts enabled.
func New(cfg Config) (*App, error) {
	if cfg.Camera == nil {
		return nil, errors.New("app: camera is required")
	}
	if cfg.Detector == nil {
		return nil, errors.New("app: detector is required")
	}
	if cfg.Executor == nil {
		return nil, errors.New("app: executor is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	pipe, err := pipeline.New(cfg.Params, pipeline.Options{Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	smp, err := sampler.New(cfg.Params.Sampler())
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	cad, err := capture.NewCadence(cfg.Cadence)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	a := &App{
		cfg:     cfg,
		logger:  logger.With("component", "app"),
		now:     now,
		pipe:    pipe,
		sampler: smp,
		cadence: cad,
	}
	a.status, _ = cfg.Executor.(chainStatus)
	a.levels, _ = cfg.Executor.(levelReader)
	a.dispatcher = actuator.NewDispatcher(cfg.Executor, actuator.DispatcherConfig{
		Timeout:  cfg.DispatchTimeout,
		OnResult: a.handleResult,
		Logger:   logger,
	})
	a.enabled.Store(true)
	a.snap = Snapshot{
		Enabled: true,
		FPS:     cad.FPS(),
		Label:   gesture.NoHand,
		Target:  pipe.Target(),
	}
	return a, nil
}

// Enabled reports whether frames are being processed.
func (a *App) Enabled() bool {
	return a.enabled.Load()
}

// SetEnabled pauses or resumes processing. Any gesture in progress is
// dropped so that resuming never fires a stale hold.
func (a *App) SetEnabled(enabled bool) {
	if a.enabled.Swap(enabled) == enabled {
		return
	}
	a.mu.Lock()
	a.pipe.Reset()
	a.snap.Enabled = enabled
	a.snap.Label = gesture.NoHand
	a.mu.Unlock()
	a.logger.Info("detection toggled", "enabled", enabled)
}

// SetContinuousTarget switches what the pinch controls.
func (a *App) SetContinuousTarget(t pipeline.Target) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.pipe.SetContinuousTarget(t); err != nil {
		return err
	}
	a.snap.Target = t
	return nil
}

// Reset clears the gesture state, the cooldowns and the sampler history.
// Smoothed levels survive.
func (a *App) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pipe.Reset()
	a.sampler.Reset()
	a.snap.Label = gesture.NoHand
	a.snap.Fired = ""
	a.snap.Sampler = a.sampler.Stats()
}

// Snapshot returns a copy of the current state.
func (a *App) Snapshot() Snapshot {
	a.mu.Lock()
	s := a.snap
	a.mu.Unlock()

	s.Enabled = a.Enabled()
	if a.status != nil {
		s.Backends = a.status.Selected()
		s.Exhausted = a.status.Exhausted()
	}
	return s
}

// Dispatcher returns the dispatcher feeding the executor.
func (a *App) Dispatcher() *actuator.Dispatcher {
	return a.dispatcher
}

// LoadSettings restores the persisted toggle, target and levels. Missing
// keys keep the current values.
func (a *App) LoadSettings() error {
	if a.cfg.Store == nil {
		return nil
	}
	all, err := a.cfg.Store.Settings().All()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if v, ok := all[store.KeyEnabled]; ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("load settings: %s: %w", store.KeyEnabled, err)
		}
		a.SetEnabled(b)
	}
	if v, ok := all[store.KeyContinuousTarget]; ok {
		t, err := pipeline.ParseTarget(v)
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}
		if err := a.SetContinuousTarget(t); err != nil {
			return err
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for key, t := range map[string]pipeline.Target{store.KeyVolume: pipeline.TargetVolume, store.KeyBrightness: pipeline.TargetBrightness} {
		v, ok := all[key]
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("load settings: %s: %w", key, err)
		}
		a.pipe.SetLevel(t, f)
	}
	a.snap.Volume, _ = a.pipe.Level(pipeline.TargetVolume)
	a.snap.Brightness, _ = a.pipe.Level(pipeline.TargetBrightness)

	a.logger.Info("settings restored", "enabled", a.Enabled(), "target", a.pipe.Target(), "volume", a.snap.Volume)
	return nil
}

// SyncLevels seeds the smoothers with the levels the system reports, so
// the first pinch continues from the real volume and brightness. Levels
// that cannot be read keep their restored or unset value.
func (a *App) SyncLevels(ctx context.Context) {
	if a.levels == nil {
		return
	}
	for _, t := range []pipeline.Target{pipeline.TargetVolume, pipeline.TargetBrightness} {
		op := actuator.OpSetVolume
		if t == pipeline.TargetBrightness {
			op = actuator.OpSetBrightness
		}
		v, err := a.readLevel(ctx, op)
		if err != nil {
			a.logger.Debug("level not readable", "target", t, "error", err)
			continue
		}

		a.mu.Lock()
		a.pipe.SetLevel(t, v)
		a.snap.Volume, _ = a.pipe.Level(pipeline.TargetVolume)
		a.snap.Brightness, _ = a.pipe.Level(pipeline.TargetBrightness)
		a.mu.Unlock()
		a.logger.Info("level read from system", "target", t, "value", v)
	}
}

func (a *App) readLevel(ctx context.Context, op actuator.Op) (float64, error) {
	if a.cfg.DispatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.DispatchTimeout)
		defer cancel()
	}
	return a.levels.Level(ctx, op)
}

// SaveSettings persists the toggle, target and any level that has been set.
func (a *App) SaveSettings() error {
	if a.cfg.Store == nil {
		return nil
	}

	a.mu.Lock()
	values := map[string]string{
		store.KeyEnabled:          strconv.FormatBool(a.Enabled()),
		store.KeyContinuousTarget: string(a.pipe.Target()),
	}
	if v, ok := a.pipe.Level(pipeline.TargetVolume); ok {
		values[store.KeyVolume] = strconv.FormatFloat(v, 'f', 2, 64)
	}
	if v, ok := a.pipe.Level(pipeline.TargetBrightness); ok {
		values[store.KeyBrightness] = strconv.FormatFloat(v, 'f', 2, 64)
	}
	a.mu.Unlock()

	if err := a.cfg.Store.Settings().SetMany(values); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
