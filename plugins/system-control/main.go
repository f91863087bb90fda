// Command system-control is a gesturectl plugin for macOS. It sets the
// output volume, mute state and display brightness and sends the media
// keys, all through osascript (brightness through the "brightness" tool).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/Kazeku-06/gesture-media-control/internal/plugin"
)

// runner executes a command and returns its combined output.
type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

func main() {
	var req plugin.Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		write(plugin.Response{Error: fmt.Sprintf("failed to decode request: %v", err)})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
	defer cancel()
	write(handle(ctx, req, execRunner))
}

func write(resp plugin.Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}

// Media key codes understood by System Events.
const (
	keyPlayPause = 100
	keyNext      = 101
	keyPrevious  = 98
)

func handle(ctx context.Context, req plugin.Request, run runner) plugin.Response {
	osascript := func(script string) error {
		if out, err := run(ctx, "osascript", "-e", script); err != nil {
			return fmt.Errorf("%w: %s", err, out)
		}
		return nil
	}
	key := func(code int) error {
		return osascript(fmt.Sprintf(`tell application "System Events" to key code %d`, code))
	}

	var err error
	switch req.Action {
	case plugin.ActionSetVolume:
		var p plugin.LevelParams
		if p, err = level(req.Params); err == nil {
			err = osascript(fmt.Sprintf("set volume output volume %d", p.Value))
		}
	case plugin.ActionMute:
		err = osascript("set volume output muted true")
	case plugin.ActionUnmute:
		err = osascript("set volume output muted false")
	case plugin.ActionPlayPause:
		err = key(keyPlayPause)
	case plugin.ActionNextTrack:
		err = key(keyNext)
	case plugin.ActionPreviousTrack:
		err = key(keyPrevious)
	case plugin.ActionSetBrightness:
		var p plugin.LevelParams
		if p, err = level(req.Params); err == nil {
			frac := strconv.FormatFloat(float64(p.Value)/100, 'f', 2, 64)
			if out, runErr := run(ctx, "brightness", frac); runErr != nil {
				err = fmt.Errorf("%w: %s", runErr, out)
			}
		}
	default:
		return plugin.Response{Error: fmt.Sprintf("unknown action: %s", req.Action)}
	}

	if err != nil {
		return plugin.Response{Error: fmt.Sprintf("action %s failed: %v", req.Action, err)}
	}
	return plugin.Response{Success: true}
}

func level(raw json.RawMessage) (plugin.LevelParams, error) {
	var p plugin.LevelParams
	if len(raw) == 0 {
		return p, fmt.Errorf("missing value")
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("failed to parse params: %w", err)
	}
	if p.Value < 0 || p.Value > 100 {
		return p, fmt.Errorf("value %d out of range [0, 100]", p.Value)
	}
	return p, nil
}
