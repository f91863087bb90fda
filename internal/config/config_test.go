package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Kazeku-06/gesture-media-control/internal/gesture"
	"github.com/Kazeku-06/gesture-media-control/internal/pipeline"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	p, err := cfg.ToParams()
	if err != nil {
		t.Fatal(err)
	}
	want := pipeline.DefaultParams()
	if p.Dwell != want.Dwell || p.Alpha != want.Alpha || p.Target != want.Target || p.FrameBudget != want.FrameBudget {
		t.Errorf("defaults drifted from pipeline.DefaultParams: %+v", p)
	}
	if p.Cooldowns[gesture.OkSign] != time.Second {
		t.Errorf("expected 1s ok_sign cooldown, got %s", p.Cooldowns[gesture.OkSign])
	}
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
camera:
  id: 2
gestures:
  dwell_ms: 300
  smoothing_alpha: 0.5
  continuous_target: brightness
  cooldowns_ms:
    peace: 1500
actuator:
  backends: [amixer, log]
logging:
  level: debug
`))
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}

	if cfg.Camera.ID != 2 || cfg.Camera.ActiveFPS != 15 {
		t.Errorf("unexpected camera section %+v", cfg.Camera)
	}
	p, err := cfg.ToParams()
	if err != nil {
		t.Fatal(err)
	}
	if p.Dwell != 300*time.Millisecond || p.Alpha != 0.5 || p.Target != pipeline.TargetBrightness {
		t.Errorf("unexpected params %+v", p)
	}
	if p.Cooldowns[gesture.Peace] != 1500*time.Millisecond {
		t.Errorf("peace cooldown = %s", p.Cooldowns[gesture.Peace])
	}
	if strings.Join(cfg.Actuator.Backends, ",") != "amixer,log" {
		t.Errorf("unexpected backends %v", cfg.Actuator.Backends)
	}
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown field", "gestures:\n  dwel_ms: 300\n"},
		{"trailing document", "logging:\n  level: info\n---\nlogging:\n  level: debug\n"},
		{"bad yaml", "camera: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.doc)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"negative camera", func(c *Config) { c.Camera.ID = -1 }, "camera.id"},
		{"idle faster than active", func(c *Config) { c.Camera.IdleFPS = 30 }, "camera.idle_fps"},
		{"unknown detector", func(c *Config) { c.Detector.Kind = "yolo" }, "detector.kind"},
		{"alpha out of range", func(c *Config) { c.Gestures.SmoothingAlpha = 0 }, "alpha"},
		{"unknown cooldown gesture", func(c *Config) { c.Gestures.CooldownsMS["wave"] = 100 }, "wave"},
		{"zero cooldown", func(c *Config) { c.Gestures.CooldownsMS["peace"] = 0 }, "cooldown"},
		{"bad target", func(c *Config) { c.Gestures.ContinuousTarget = "bass" }, "continuous_target"},
		{"no backends", func(c *Config) { c.Actuator.Backends = nil }, "actuator.backends"},
		{"unknown backend", func(c *Config) { c.Actuator.Backends = []string{"pulse"} }, "pulse"},
		{"camilla range", func(c *Config) { c.Actuator.CamillaDSP.MinDB = 5 }, "min_db"},
		{"server without addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"zero budget", func(c *Config) { c.Sampler.BudgetMS = 0 }, "budget"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"GESTURE_LOG_LEVEL":   "warn",
		"GESTURE_SERVER_ADDR": "127.0.0.1:9999",
		"GESTURE_CAMERA_ID":   "3",
		"GESTURE_DB_PATH":     "/tmp/g.db",
		"GESTURE_BACKENDS":    " playerctl, ,log ",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(lookup); err != nil {
		t.Fatal(err)
	}
	if cfg.Logging.Level != "warn" || cfg.Server.Addr != "127.0.0.1:9999" || cfg.Camera.ID != 3 || cfg.Store.Path != "/tmp/g.db" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if strings.Join(cfg.Actuator.Backends, ",") != "playerctl,log" {
		t.Errorf("unexpected backends %v", cfg.Actuator.Backends)
	}

	env["GESTURE_CAMERA_ID"] = "front"
	if err := cfg.ApplyEnv(lookup); err == nil {
		t.Error("expected an error for a non-numeric camera id")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gesturectl.yaml")
	if err := os.WriteFile(path, []byte("gestures:\n  dwell_ms: 250\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("GESTURE_DB_PATH="+filepath.Join(dir, "x.db")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	os.Unsetenv("GESTURE_DB_PATH")
	t.Cleanup(func() { os.Unsetenv("GESTURE_DB_PATH") })

	cfg, err := Load(path, envFile)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Gestures.DwellMS != 250 {
		t.Errorf("file not applied: dwell %d", cfg.Gestures.DwellMS)
	}
	if cfg.Store.Path != filepath.Join(dir, "x.db") {
		t.Errorf(".env not applied: %s", cfg.Store.Path)
	}

	t.Run("missing env file is fine", func(t *testing.T) {
		if _, err := Load("", filepath.Join(dir, "nope.env")); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("missing config file is not", func(t *testing.T) {
		if _, err := Load(filepath.Join(dir, "nope.yaml"), ""); err == nil {
			t.Error("expected an error")
		}
	})

	t.Run("invalid file fails validation", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.yaml")
		os.WriteFile(bad, []byte("gestures:\n  volume_near: 0.5\n"), 0o644)
		if _, err := Load(bad, ""); err == nil || !strings.Contains(err.Error(), "volume_near") {
			t.Errorf("expected a volume_near error, got %v", err)
		}
	})
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	tests := map[string]string{
		"":           "",
		"/abs/path":  "/abs/path",
		"~":          home,
		"~/x/y.db":   filepath.Join(home, "x/y.db"),
		"~other/dir": "~other/dir",
	}
	for in, want := range tests {
		if got := ExpandPath(in); got != want {
			t.Errorf("ExpandPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestConfig_ComponentSettings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Camera.ID = 1
	cfg.Camera.IdleTimeoutMS = 1500
	cfg.Camera.MotionThreshold = 2.5
	cfg.Actuator.TimeoutMS = 750

	if cc := cfg.CaptureConfig(); cc.DeviceID != 1 || cc.FPS != 5 || cc.Width != 640 {
		t.Errorf("unexpected capture config %+v", cc)
	}
	if cad := cfg.Cadence(); cad.IdleTimeout != 1500*time.Millisecond || cad.ActiveFPS != 15 {
		t.Errorf("unexpected cadence %+v", cad)
	}
	if m := cfg.Motion(); m.Threshold != 2.5 || m.BlurSize != 21 {
		t.Errorf("unexpected motion config %+v", m)
	}
	if cfg.DispatchTimeout() != 750*time.Millisecond {
		t.Errorf("dispatch timeout = %s", cfg.DispatchTimeout())
	}
	if err := cfg.Cadence().Validate(); err != nil {
		t.Error(err)
	}
}
