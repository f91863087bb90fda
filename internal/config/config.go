// Package config loads the gesturectl configuration: defaults, then an
// optional YAML file, then a .env file and GESTURE_* environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Kazeku-06/gesture-media-control/internal/actuator"
	"github.com/Kazeku-06/gesture-media-control/internal/capture"
	"github.com/Kazeku-06/gesture-media-control/internal/detector"
	"github.com/Kazeku-06/gesture-media-control/internal/gesture"
	"github.com/Kazeku-06/gesture-media-control/internal/logging"
	"github.com/Kazeku-06/gesture-media-control/internal/pipeline"
)

// Config is the top-level YAML document. Durations are integer
// milliseconds.
type Config struct {
	Camera   CameraConfig   `yaml:"camera"`
	Detector DetectorConfig `yaml:"detector"`
	Gestures GesturesConfig `yaml:"gestures"`
	Sampler  SamplerConfig  `yaml:"sampler"`
	Actuator ActuatorConfig `yaml:"actuator"`
	Store    StoreConfig    `yaml:"store"`
	Server   ServerConfig   `yaml:"server"`
	Tray     TrayConfig     `yaml:"tray"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type CameraConfig struct {
	ID              int     `yaml:"id"`
	IdleFPS         int     `yaml:"idle_fps"`
	ActiveFPS       int     `yaml:"active_fps"`
	IdleTimeoutMS   int     `yaml:"idle_timeout_ms"`
	MotionThreshold float64 `yaml:"motion_threshold"`
}

type DetectorConfig struct {
	// Kind is "mediapipe" or "mock".
	Kind                  string  `yaml:"kind"`
	MinConfidence         float64 `yaml:"min_confidence"`
	MinTrackingConfidence float64 `yaml:"min_tracking_confidence"`
	ScriptPath            string  `yaml:"script_path,omitempty"`
	PythonPath            string  `yaml:"python_path,omitempty"`
}

type GesturesConfig struct {
	PinchThreshold  float64 `yaml:"pinch_threshold"`
	VolumeNear      float64 `yaml:"volume_near"`
	VolumeFar       float64 `yaml:"volume_far"`
	ExtensionMargin float64 `yaml:"extension_margin"`
	ThumbDownMargin float64 `yaml:"thumb_down_margin"`
	PalmSpread      float64 `yaml:"palm_spread"`

	DwellMS           int            `yaml:"dwell_ms"`
	GraceMS           int            `yaml:"grace_ms"`
	DefaultCooldownMS int            `yaml:"default_cooldown_ms"`
	CooldownsMS       map[string]int `yaml:"cooldowns_ms,omitempty"`

	SmoothingAlpha float64 `yaml:"smoothing_alpha"`
	HoldTimeoutMS  int     `yaml:"hold_timeout_ms"`

	ContinuousTarget string  `yaml:"continuous_target"`
	UpdateIntervalMS int     `yaml:"update_interval_ms"`
	MinDelta         float64 `yaml:"min_delta"`
}

type SamplerConfig struct {
	BudgetMS int     `yaml:"budget_ms"`
	MaxSkip  int     `yaml:"max_skip"`
	Weight   float64 `yaml:"weight"`
}

type ActuatorConfig struct {
	Backends        []string      `yaml:"backends"`
	TimeoutMS       int           `yaml:"timeout_ms"`
	AmixerControl   string        `yaml:"amixer_control"`
	PluginDir       string        `yaml:"plugin_dir"`
	PluginTimeoutMS int           `yaml:"plugin_timeout_ms"`
	CamillaDSP      CamillaConfig `yaml:"camilladsp"`
}

type CamillaConfig struct {
	WsURL     string  `yaml:"ws_url"`
	TimeoutMS int     `yaml:"timeout_ms"`
	MinDB     float64 `yaml:"min_db"`
	MaxDB     float64 `yaml:"max_db"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type TrayConfig struct {
	Enabled bool `yaml:"enabled"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

func ms(d time.Duration) int {
	return int(d / time.Millisecond)
}

func dur(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// DefaultConfig returns a fully-populated Config. Gesture defaults come from
// pipeline.DefaultParams so there is one source for them.
func DefaultConfig() Config {
	p := pipeline.DefaultParams()
	cooldowns := make(map[string]int, len(p.Cooldowns))
	for l, d := range p.Cooldowns {
		cooldowns[string(l)] = ms(d)
	}
	dc := detector.DefaultConfig()
	cc := actuator.DefaultCamillaConfig()
	cad := capture.DefaultCadenceConfig()

	return Config{
		Camera: CameraConfig{
			ID:              capture.DefaultConfig().DeviceID,
			IdleFPS:         cad.IdleFPS,
			ActiveFPS:       cad.ActiveFPS,
			IdleTimeoutMS:   ms(cad.IdleTimeout),
			MotionThreshold: capture.DefaultMotionConfig().Threshold,
		},
		Detector: DetectorConfig{
			Kind:                  "mediapipe",
			MinConfidence:         dc.MinConfidence,
			MinTrackingConfidence: dc.MinTrackingConf,
		},
		Gestures: GesturesConfig{
			PinchThreshold:    p.PinchThreshold,
			VolumeNear:        p.VolumeNear,
			VolumeFar:         p.VolumeFar,
			ExtensionMargin:   p.ExtensionMargin,
			ThumbDownMargin:   p.ThumbDownMargin,
			PalmSpread:        p.PalmSpread,
			DwellMS:           ms(p.Dwell),
			GraceMS:           ms(p.Grace),
			DefaultCooldownMS: ms(p.DefaultCooldown),
			CooldownsMS:       cooldowns,
			SmoothingAlpha:    p.Alpha,
			HoldTimeoutMS:     ms(p.HoldTimeout),
			ContinuousTarget:  string(p.Target),
			UpdateIntervalMS:  ms(p.UpdateInterval),
			MinDelta:          p.MinDelta,
		},
		Sampler: SamplerConfig{
			BudgetMS: ms(p.FrameBudget),
			MaxSkip:  p.MaxSkip,
			Weight:   p.CostWeight,
		},
		Actuator: ActuatorConfig{
			Backends:        append([]string(nil), actuator.DefaultOrder...),
			TimeoutMS:       2000,
			AmixerControl:   "Master",
			PluginDir:       "~/.gesturectl/plugins",
			PluginTimeoutMS: 5000,
			CamillaDSP: CamillaConfig{
				WsURL:     cc.URL,
				TimeoutMS: ms(cc.ReadTimeout),
				MinDB:     cc.MinDB,
				MaxDB:     cc.MaxDB,
			},
		},
		Store: StoreConfig{
			Path: "~/.gesturectl/gesturectl.db",
		},
		Server: ServerConfig{
			Enabled: true,
			Addr:    "127.0.0.1:8080",
		},
		Tray: TrayConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFile reads a YAML config file on top of the defaults. Unknown fields
// and trailing documents are rejected.
func LoadFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return Parse(b)
}

// Parse decodes a YAML document on top of the defaults.
func Parse(b []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, errors.New("decode config yaml: unexpected trailing document")
	}
	return cfg, nil
}

// Load builds the effective configuration: defaults, the YAML file at path
// (skipped when path is empty), variables from envFile (a missing file is
// fine), then GESTURE_* overrides. The result is validated.
func Load(path, envFile string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return Config{}, err
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv applies GESTURE_* overrides read through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("GESTURE_LOG_LEVEL"); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := lookup("GESTURE_SERVER_ADDR"); ok && v != "" {
		c.Server.Addr = v
	}
	if v, ok := lookup("GESTURE_CAMERA_ID"); ok && v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GESTURE_CAMERA_ID: %w", err)
		}
		c.Camera.ID = id
	}
	if v, ok := lookup("GESTURE_DB_PATH"); ok && v != "" {
		c.Store.Path = v
	}
	if v, ok := lookup("GESTURE_BACKENDS"); ok && v != "" {
		var names []string
		for _, n := range strings.Split(v, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
		c.Actuator.Backends = names
	}
	return nil
}

// Validate checks everything that can be checked without touching the
// machine and returns an error naming the offending key.
func (c *Config) Validate() error {
	if c.Camera.ID < 0 {
		return errors.New("camera.id must be >= 0")
	}
	if c.Camera.IdleFPS <= 0 || c.Camera.ActiveFPS <= 0 {
		return errors.New("camera.idle_fps and camera.active_fps must be > 0")
	}
	if c.Camera.IdleFPS > c.Camera.ActiveFPS {
		return errors.New("camera.idle_fps must be <= camera.active_fps")
	}
	if c.Camera.IdleTimeoutMS < 0 {
		return errors.New("camera.idle_timeout_ms must be >= 0")
	}
	if c.Camera.MotionThreshold <= 0 || c.Camera.MotionThreshold > 100 {
		return errors.New("camera.motion_threshold must be in (0, 100]")
	}

	switch c.Detector.Kind {
	case "mediapipe", "mock":
	default:
		return fmt.Errorf("detector.kind must be \"mediapipe\" or \"mock\", got %q", c.Detector.Kind)
	}
	if c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1 {
		return errors.New("detector.min_confidence must be in [0, 1]")
	}
	if c.Detector.MinTrackingConfidence < 0 || c.Detector.MinTrackingConfidence > 1 {
		return errors.New("detector.min_tracking_confidence must be in [0, 1]")
	}

	if _, err := c.ToParams(); err != nil {
		return err
	}

	if len(c.Actuator.Backends) == 0 {
		return errors.New("actuator.backends must not be empty")
	}
	for i, name := range c.Actuator.Backends {
		if !actuator.KnownBackend(name) {
			return fmt.Errorf("actuator.backends[%d]: unknown backend %q", i, name)
		}
	}
	if c.Actuator.TimeoutMS <= 0 {
		return errors.New("actuator.timeout_ms must be > 0")
	}
	if c.Actuator.PluginTimeoutMS <= 0 {
		return errors.New("actuator.plugin_timeout_ms must be > 0")
	}
	if c.Actuator.CamillaDSP.TimeoutMS <= 0 {
		return errors.New("actuator.camilladsp.timeout_ms must be > 0")
	}
	if c.Actuator.CamillaDSP.MinDB >= c.Actuator.CamillaDSP.MaxDB {
		return errors.New("actuator.camilladsp.min_db must be < actuator.camilladsp.max_db")
	}

	if c.Store.Path == "" {
		return errors.New("store.path must not be empty")
	}
	if c.Server.Enabled && c.Server.Addr == "" {
		return errors.New("server.enabled is true but server.addr is empty")
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

// ToParams converts the gestures and sampler sections into the pipeline
// parameter set. The parameters are validated.
func (c *Config) ToParams() (pipeline.Params, error) {
	g := c.Gestures

	cooldowns := make(map[gesture.Label]time.Duration, len(g.CooldownsMS))
	for name, v := range g.CooldownsMS {
		l, ok := gesture.ParseLabel(name)
		if !ok {
			return pipeline.Params{}, fmt.Errorf("gestures.cooldowns_ms: unknown gesture %q", name)
		}
		cooldowns[l] = dur(v)
	}

	target, err := pipeline.ParseTarget(g.ContinuousTarget)
	if err != nil {
		return pipeline.Params{}, fmt.Errorf("gestures.continuous_target: %w", err)
	}

	p := pipeline.Params{
		PinchThreshold:  g.PinchThreshold,
		VolumeNear:      g.VolumeNear,
		VolumeFar:       g.VolumeFar,
		ExtensionMargin: g.ExtensionMargin,
		ThumbDownMargin: g.ThumbDownMargin,
		PalmSpread:      g.PalmSpread,
		Dwell:           dur(g.DwellMS),
		Grace:           dur(g.GraceMS),
		DefaultCooldown: dur(g.DefaultCooldownMS),
		Cooldowns:       cooldowns,
		Alpha:           g.SmoothingAlpha,
		HoldTimeout:     dur(g.HoldTimeoutMS),
		Target:          target,
		UpdateInterval:  dur(g.UpdateIntervalMS),
		MinDelta:        g.MinDelta,
		FrameBudget:     dur(c.Sampler.BudgetMS),
		MaxSkip:         c.Sampler.MaxSkip,
		CostWeight:      c.Sampler.Weight,
	}
	if err := p.Validate(); err != nil {
		return pipeline.Params{}, fmt.Errorf("gestures: %w", err)
	}
	return p, nil
}

// CaptureConfig returns the camera device settings.
func (c *Config) CaptureConfig() capture.Config {
	cc := capture.DefaultConfig()
	cc.DeviceID = c.Camera.ID
	cc.FPS = c.Camera.IdleFPS
	return cc
}

// Cadence returns the idle/active read rates.
func (c *Config) Cadence() capture.CadenceConfig {
	return capture.CadenceConfig{
		IdleFPS:     c.Camera.IdleFPS,
		ActiveFPS:   c.Camera.ActiveFPS,
		IdleTimeout: dur(c.Camera.IdleTimeoutMS),
	}
}

// Motion returns the motion detector settings.
func (c *Config) Motion() capture.MotionConfig {
	mc := capture.DefaultMotionConfig()
	mc.Threshold = c.Camera.MotionThreshold
	return mc
}

// DispatchTimeout bounds a single backend call.
func (c *Config) DispatchTimeout() time.Duration {
	return dur(c.Actuator.TimeoutMS)
}

// DetectorConfig returns the landmark detector settings.
func (c *Config) DetectorConfig() detector.Config {
	dc := detector.DefaultConfig()
	dc.MinConfidence = c.Detector.MinConfidence
	dc.MinTrackingConf = c.Detector.MinTrackingConfidence
	dc.ScriptPath = ExpandPath(c.Detector.ScriptPath)
	dc.PythonPath = c.Detector.PythonPath
	return dc
}

// BuildOptions returns the actuator backend settings.
func (c *Config) BuildOptions() actuator.BuildOptions {
	a := c.Actuator
	return actuator.BuildOptions{
		Camilla: actuator.CamillaConfig{
			URL:         a.CamillaDSP.WsURL,
			ReadTimeout: dur(a.CamillaDSP.TimeoutMS),
			MinDB:       a.CamillaDSP.MinDB,
			MaxDB:       a.CamillaDSP.MaxDB,
		},
		AmixerControl: a.AmixerControl,
		PluginDir:     ExpandPath(a.PluginDir),
		PluginTimeout: dur(a.PluginTimeoutMS),
	}
}

// ExpandPath expands a leading "~" using $HOME.
func ExpandPath(p string) string {
	if p == "" || p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
