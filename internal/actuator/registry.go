package actuator

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Kazeku-06/gesture-media-control/internal/plugin"
)

// DefaultOrder is the probe order used when none is configured. The log
// backend is last so that it only serves ops nothing else can.
var DefaultOrder = []string{"camilladsp", "amixer", "playerctl", "brightnessctl", "osascript", "plugin", "keyboard", "log"}

// BuildOptions carries the per-backend settings.
type BuildOptions struct {
	Camilla       CamillaConfig
	AmixerControl string
	PluginDir     string
	PluginTimeout time.Duration
	Exec          ExecOptions
	Logger        *slog.Logger
}

// Build instantiates the named backends in order. Unknown names are an
// error; duplicates are ignored.
func Build(names []string, opts BuildOptions) ([]Backend, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	seen := make(map[string]bool, len(names))
	backends := make([]Backend, 0, len(names))
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		var b Backend
		switch name {
		case "camilladsp":
			cfg := opts.Camilla
			cfg.Logger = logger
			b = NewCamillaBackend(cfg)
		case "amixer":
			b = NewAmixerBackend(opts.AmixerControl, opts.Exec)
		case "playerctl":
			b = NewPlayerctlBackend(opts.Exec)
		case "brightnessctl":
			b = NewBrightnessctlBackend(opts.Exec)
		case "osascript":
			b = NewOsascriptBackend(opts.Exec)
		case "plugin":
			b = NewPluginBackend(plugin.NewManager(opts.PluginDir, logger), plugin.NewExecutor(opts.PluginTimeout))
		case "keyboard":
			b = NewKeyboardBackend(nil)
		case "log":
			b = NewLogBackend(logger)
		default:
			return nil, fmt.Errorf("unknown actuator backend %q", raw)
		}
		backends = append(backends, b)
	}
	return backends, nil
}

// KnownBackend reports whether Build accepts name.
func KnownBackend(name string) bool {
	for _, n := range DefaultOrder {
		if n == strings.ToLower(strings.TrimSpace(name)) {
			return true
		}
	}
	return false
}
