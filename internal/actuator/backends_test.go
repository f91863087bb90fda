package actuator

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Kazeku-06/gesture-media-control/internal/plugin"
)

// recorder is a fake Runner.
type recorder struct {
	mu   sync.Mutex
	cmds []string
	err  error
}

func (r *recorder) run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = append(r.cmds, strings.TrimSpace(name+" "+strings.Join(args, " ")))
	return nil, r.err
}

func (r *recorder) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.cmds) == 0 {
		return ""
	}
	return r.cmds[len(r.cmds)-1]
}

func found(string) (string, error)   { return "/usr/bin/tool", nil }
func missing(string) (string, error) { return "", errors.New("not found") }

func TestExecBackends_Commands(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	opts := ExecOptions{Run: rec.run, LookPath: found, GOOS: "linux"}

	amixer := NewAmixerBackend("", opts)
	playerctl := NewPlayerctlBackend(opts)
	brightness := NewBrightnessctlBackend(opts)
	osa := NewOsascriptBackend(ExecOptions{Run: rec.run, LookPath: found, GOOS: "darwin"})

	tests := []struct {
		name string
		do   func() error
		want string
	}{
		{"amixer volume", func() error { return amixer.SetVolume(ctx, 62.4) }, "amixer -q set Master 62%"},
		{"amixer mute", func() error { return amixer.Mute(ctx) }, "amixer -q set Master mute"},
		{"amixer unmute", func() error { return amixer.Unmute(ctx) }, "amixer -q set Master unmute"},
		{"playerctl play", func() error { return playerctl.PlayPause(ctx) }, "playerctl play-pause"},
		{"playerctl next", func() error { return playerctl.NextTrack(ctx) }, "playerctl next"},
		{"playerctl previous", func() error { return playerctl.PreviousTrack(ctx) }, "playerctl previous"},
		{"brightnessctl", func() error { return brightness.SetBrightness(ctx, 80) }, "brightnessctl -q set 80%"},
		{"osascript volume", func() error { return osa.SetVolume(ctx, 35) }, `osascript -e set volume output volume 35`},
		{"osascript mute", func() error { return osa.Mute(ctx) }, `osascript -e set volume output muted true`},
		{"osascript next", func() error { return osa.NextTrack(ctx) }, `osascript -e tell application "System Events" to key code 101`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.do(); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := rec.last(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

// canned is a Runner that answers every command with out.
func canned(out string) Runner {
	return func(context.Context, string, ...string) ([]byte, error) {
		return []byte(out), nil
	}
}

func TestExecBackends_Level(t *testing.T) {
	ctx := context.Background()
	amixerOut := "Simple mixer control 'Master',0\n" +
		"  Front Left: Playback 41942 [64%] [-10.50dB] [on]\n" +
		"  Front Right: Playback 41942 [64%] [-10.50dB] [on]\n"

	tests := []struct {
		name    string
		backend LevelReader
		op      Op
		want    float64
		wantErr bool
	}{
		{"amixer", NewAmixerBackend("", ExecOptions{Run: canned(amixerOut)}), OpSetVolume, 64, false},
		{"amixer garbage", NewAmixerBackend("", ExecOptions{Run: canned("no mixer")}), OpSetVolume, 0, true},
		{"amixer brightness", NewAmixerBackend("", ExecOptions{Run: canned(amixerOut)}), OpSetBrightness, 0, true},
		{"brightnessctl", NewBrightnessctlBackend(ExecOptions{Run: canned("intel_backlight,backlight,400,42%,960\n")}), OpSetBrightness, 42, false},
		{"brightnessctl short", NewBrightnessctlBackend(ExecOptions{Run: canned("intel_backlight")}), OpSetBrightness, 0, true},
		{"osascript", NewOsascriptBackend(ExecOptions{Run: canned("37\n")}), OpSetVolume, 37, false},
		{"osascript missing value", NewOsascriptBackend(ExecOptions{Run: canned("missing value")}), OpSetVolume, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.backend.Level(ctx, tt.op)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected an error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Level = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExecBackends_Unsupported(t *testing.T) {
	ctx := context.Background()
	b := NewPlayerctlBackend(ExecOptions{Run: (&recorder{}).run, LookPath: found, GOOS: "linux"})

	if b.Supports(OpSetVolume) {
		t.Error("playerctl does not set volume")
	}
	if err := b.SetVolume(ctx, 10); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}

func TestExecBackends_Probe(t *testing.T) {
	ctx := context.Background()

	t.Run("wrong platform", func(t *testing.T) {
		b := NewAmixerBackend("PCM", ExecOptions{Run: (&recorder{}).run, LookPath: found, GOOS: "darwin"})
		if err := b.Probe(ctx); !errors.Is(err, ErrUnavailable) {
			t.Errorf("expected ErrUnavailable, got %v", err)
		}
	})

	t.Run("binary missing", func(t *testing.T) {
		b := NewBrightnessctlBackend(ExecOptions{Run: (&recorder{}).run, LookPath: missing, GOOS: "linux"})
		if err := b.Probe(ctx); !errors.Is(err, ErrUnavailable) {
			t.Errorf("expected ErrUnavailable, got %v", err)
		}
	})

	t.Run("probe command fails", func(t *testing.T) {
		rec := &recorder{err: errors.New("no such control")}
		b := NewAmixerBackend("PCM", ExecOptions{Run: rec.run, LookPath: found, GOOS: "linux"})
		if err := b.Probe(ctx); !errors.Is(err, ErrUnavailable) {
			t.Errorf("expected ErrUnavailable, got %v", err)
		}
		if rec.last() != "amixer get PCM" {
			t.Errorf("unexpected probe command %q", rec.last())
		}
	})

	t.Run("usable", func(t *testing.T) {
		rec := &recorder{}
		b := NewPlayerctlBackend(ExecOptions{Run: rec.run, LookPath: found, GOOS: "freebsd"})
		if err := b.Probe(ctx); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestExecBackend_FailureSurfaces(t *testing.T) {
	rec := &recorder{err: errors.New("exit status 1")}
	b := NewAmixerBackend("", ExecOptions{Run: rec.run, LookPath: found, GOOS: "linux"})
	if err := b.SetVolume(context.Background(), 50); err == nil {
		t.Error("expected the runner error")
	}
}

// camillaServer answers CamillaDSP-style commands and records what it got.
type camillaServer struct {
	mu       sync.Mutex
	received []map[string]any
	result   string
}

func (s *camillaServer) handler(t *testing.T) http.HandlerFunc {
	upgrader := websocket.Upgrader{}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}

			var name string
			var cmd map[string]any
			if err := json.Unmarshal(msg, &cmd); err == nil {
				for k := range cmd {
					name = k
				}
			} else if err := json.Unmarshal(msg, &name); err != nil {
				return
			}

			s.mu.Lock()
			s.received = append(s.received, cmd)
			result := s.result
			s.mu.Unlock()

			reply := map[string]any{name: map[string]any{"result": result}}
			if name == "GetState" {
				reply[name] = map[string]any{"result": "Ok", "value": "Running"}
			}
			if err := conn.WriteJSON(reply); err != nil {
				return
			}
		}
	}
}

func (s *camillaServer) last() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.received[len(s.received)-1]
}

func newCamilla(t *testing.T, result string) (*CamillaBackend, *camillaServer) {
	t.Helper()
	srv := &camillaServer{result: result}
	ts := httptest.NewServer(srv.handler(t))
	t.Cleanup(ts.Close)

	cfg := DefaultCamillaConfig()
	cfg.URL = "ws" + strings.TrimPrefix(ts.URL, "http")
	cfg.Logger = discard
	b := NewCamillaBackend(cfg)
	t.Cleanup(func() { b.Close() })
	return b, srv
}

func TestCamillaBackend(t *testing.T) {
	ctx := context.Background()
	b, srv := newCamilla(t, "Ok")

	if err := b.Probe(ctx); err != nil {
		t.Fatalf("probe: %v", err)
	}

	if err := b.SetVolume(ctx, 50); err != nil {
		t.Fatalf("SetVolume: %v", err)
	}
	if got := srv.last()["SetVolume"]; got != -30.0 {
		t.Errorf("expected -30 dB, got %v", got)
	}

	if err := b.Mute(ctx); err != nil {
		t.Fatalf("Mute: %v", err)
	}
	if got := srv.last()["SetMute"]; got != true {
		t.Errorf("expected SetMute true, got %v", got)
	}

	if err := b.Unmute(ctx); err != nil {
		t.Fatalf("Unmute: %v", err)
	}
	if got := srv.last()["SetMute"]; got != false {
		t.Errorf("expected SetMute false, got %v", got)
	}
}

func TestCamillaBackend_ErrorResult(t *testing.T) {
	b, _ := newCamilla(t, "Error")
	if err := b.SetVolume(context.Background(), 10); err == nil {
		t.Error("expected an error for a non-Ok result")
	}
}

func TestCamillaBackend_Unreachable(t *testing.T) {
	cfg := DefaultCamillaConfig()
	cfg.URL = "ws://127.0.0.1:1"
	cfg.Logger = discard
	b := NewCamillaBackend(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.Probe(ctx); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestCamillaBackend_LevelToDB(t *testing.T) {
	b := NewCamillaBackend(CamillaConfig{MinDB: -50, MaxDB: -10})
	tests := []struct {
		level, want float64
	}{
		{0, -50},
		{100, -10},
		{25, -40},
	}
	for _, tt := range tests {
		if got := b.LevelToDB(tt.level); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("LevelToDB(%v) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestKeyboardBackend(t *testing.T) {
	var keys []string
	b := NewKeyboardBackend(func(key string, _ ...interface{}) error {
		keys = append(keys, key)
		return nil
	})
	b.screenSize = func() (int, int) { return 1920, 1080 }

	if err := b.Probe(context.Background()); err != nil {
		t.Fatalf("probe: %v", err)
	}
	b.PlayPause(context.Background())
	b.NextTrack(context.Background())
	b.PreviousTrack(context.Background())

	want := []string{"audio_play", "audio_next", "audio_prev"}
	if strings.Join(keys, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, keys)
	}
	if b.Supports(OpMute) {
		t.Error("mute is a toggle key and must not be claimed")
	}

	b.screenSize = func() (int, int) { return 0, 0 }
	if err := b.Probe(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable without a display, got %v", err)
	}
}

func TestKeyboardBackend_TapError(t *testing.T) {
	b := NewKeyboardBackend(func(string, ...interface{}) error { return errors.New("no x server") })
	if err := b.NextTrack(context.Background()); err == nil {
		t.Error("expected error")
	}
}

func writePlugin(t *testing.T, dir, name, script string, actions ...string) {
	t.Helper()
	pdir := filepath.Join(dir, name)
	if err := os.MkdirAll(pdir, 0o755); err != nil {
		t.Fatal(err)
	}
	manifest, _ := json.Marshal(map[string]any{
		"name":       name,
		"version":    "1.0.0",
		"executable": "run.sh",
		"actions":    actions,
	})
	if err := os.WriteFile(filepath.Join(pdir, "plugin.json"), manifest, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(pdir, "run.sh"), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
}

func pluginManager(dir string) *plugin.Manager { return plugin.NewManager(dir, discard) }
func pluginExecutor() *plugin.Executor { return plugin.NewExecutor(2 * time.Second) }

func TestPluginBackend(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell plugins")
	}
	dir := t.TempDir()
	out := filepath.Join(dir, "requests.log")
	writePlugin(t, dir, "mixer", `#!/bin/sh
cat >> `+out+`
echo >> `+out+`
echo '{"success": true}'
`, "set-volume", "mute")

	b := NewPluginBackend(pluginManager(dir), pluginExecutor())
	ctx := context.Background()
	if err := b.Probe(ctx); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if !b.Supports(OpSetVolume) || !b.Supports(OpMute) || b.Supports(OpPlayPause) {
		t.Error("support should follow the manifest actions")
	}
	if p, ok := b.PluginFor(OpMute); !ok || p.Manifest.Name != "mixer" {
		t.Errorf("unexpected plugin for mute: %v", p)
	}

	if err := b.SetVolume(ctx, 66.6); err != nil {
		t.Fatalf("SetVolume: %v", err)
	}
	if err := b.PlayPause(ctx); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"action":"set-volume"`) || !strings.Contains(string(data), `"value":67`) {
		t.Errorf("unexpected plugin request %s", data)
	}
}

func TestPluginBackend_FailureResponse(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell plugins")
	}
	dir := t.TempDir()
	writePlugin(t, dir, "broken", `#!/bin/sh
cat > /dev/null
echo '{"success": false, "error": "device busy"}'
`, "next-track")

	b := NewPluginBackend(pluginManager(dir), pluginExecutor())
	if err := b.Probe(context.Background()); err != nil {
		t.Fatalf("probe: %v", err)
	}
	err := b.NextTrack(context.Background())
	if err == nil || !strings.Contains(err.Error(), "device busy") {
		t.Errorf("expected plugin error, got %v", err)
	}
}

func TestPluginBackend_NoPlugins(t *testing.T) {
	b := NewPluginBackend(pluginManager(t.TempDir()), pluginExecutor())
	if err := b.Probe(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestLogBackend(t *testing.T) {
	b := NewLogBackend(discard)
	if err := b.Probe(context.Background()); err != nil {
		t.Fatal(err)
	}
	for _, op := range Ops {
		if !b.Supports(op) {
			t.Errorf("log backend should accept %s", op)
		}
		if err := call(context.Background(), b, Request{Op: op, Value: 10}); err != nil {
			t.Errorf("%s: %v", op, err)
		}
	}
}

func TestBuild(t *testing.T) {
	backends, err := Build([]string{"amixer", " Log ", "amixer", "", "playerctl"}, BuildOptions{Logger: discard})
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, b := range backends {
		names = append(names, b.Name())
	}
	if got := strings.Join(names, ","); got != "amixer,log,playerctl" {
		t.Errorf("unexpected backends %s", got)
	}

	if _, err := Build([]string{"pulseaudio"}, BuildOptions{}); err == nil {
		t.Error("expected unknown backend error")
	}

	all, err := Build(DefaultOrder, BuildOptions{Logger: discard})
	if err != nil || len(all) != len(DefaultOrder) {
		t.Errorf("default order should build: %v", err)
	}
	for _, name := range DefaultOrder {
		if !KnownBackend(strings.ToUpper(name)) {
			t.Errorf("%s should be known", name)
		}
	}
	if KnownBackend("winmm") {
		t.Error("winmm is not a backend")
	}
}
