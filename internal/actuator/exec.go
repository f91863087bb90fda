package actuator

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Runner runs an external command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// LookPath resolves a tool name to a path.
type LookPath func(file string) (string, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = 500 * time.Millisecond
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return out, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, msg)
		}
		return out, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return out, nil
}

// ExecOptions lets tests replace process execution.
type ExecOptions struct {
	Run      Runner
	LookPath LookPath
	GOOS     string
}

func (o ExecOptions) withDefaults() ExecOptions {
	if o.Run == nil {
		o.Run = runCommand
	}
	if o.LookPath == nil {
		o.LookPath = exec.LookPath
	}
	if o.GOOS == "" {
		o.GOOS = runtime.GOOS
	}
	return o
}

// tool is the shared plumbing of the command-line backends.
type tool struct {
	binary string
	opts   ExecOptions
}

func (t tool) available(goos ...string) error {
	if len(goos) > 0 {
		match := false
		for _, g := range goos {
			if t.opts.GOOS == g {
				match = true
				break
			}
		}
		if !match {
			return fmt.Errorf("%s: not on %s: %w", t.binary, strings.Join(goos, "/"), ErrUnavailable)
		}
	}
	if _, err := t.opts.LookPath(t.binary); err != nil {
		return fmt.Errorf("%s: %w: %v", t.binary, ErrUnavailable, err)
	}
	return nil
}

func (t tool) run(ctx context.Context, args ...string) error {
	_, err := t.opts.Run(ctx, t.binary, args...)
	return err
}

func (t tool) output(ctx context.Context, args ...string) (string, error) {
	out, err := t.opts.Run(ctx, t.binary, args...)
	return string(out), err
}

func parsePercent(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "%"), 64)
	if err != nil {
		return 0, fmt.Errorf("parse level %q: %w", s, err)
	}
	return clampLevel(v), nil
}

func percent(level float64) string {
	return fmt.Sprintf("%d%%", int(level+0.5))
}

// AmixerBackend drives the ALSA mixer (Linux).
type AmixerBackend struct {
	unsupported
	tool
	control string
}

// NewAmixerBackend controls the named mixer control, "Master" if empty.
func NewAmixerBackend(control string, opts ExecOptions) *AmixerBackend {
	if control == "" {
		control = "Master"
	}
	return &AmixerBackend{tool: tool{binary: "amixer", opts: opts.withDefaults()}, control: control}
}

func (b *AmixerBackend) Name() string { return "amixer" }

func (b *AmixerBackend) Probe(ctx context.Context) error {
	if err := b.available("linux"); err != nil {
		return err
	}
	if err := b.run(ctx, "get", b.control); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (b *AmixerBackend) Supports(op Op) bool {
	return op == OpSetVolume || op == OpMute || op == OpUnmute
}

var amixerLevel = regexp.MustCompile(`\[(\d+)%\]`)

// Level reads the first channel's volume from "amixer get".
func (b *AmixerBackend) Level(ctx context.Context, op Op) (float64, error) {
	if op != OpSetVolume {
		return 0, ErrUnsupported
	}
	out, err := b.output(ctx, "get", b.control)
	if err != nil {
		return 0, err
	}
	m := amixerLevel.FindStringSubmatch(out)
	if m == nil {
		return 0, fmt.Errorf("amixer: no level in output")
	}
	return parsePercent(m[1])
}

func (b *AmixerBackend) SetVolume(ctx context.Context, level float64) error {
	return b.run(ctx, "-q", "set", b.control, percent(level))
}

func (b *AmixerBackend) Mute(ctx context.Context) error {
	return b.run(ctx, "-q", "set", b.control, "mute")
}

func (b *AmixerBackend) Unmute(ctx context.Context) error {
	return b.run(ctx, "-q", "set", b.control, "unmute")
}

// PlayerctlBackend sends MPRIS transport commands (Linux).
type PlayerctlBackend struct {
	unsupported
	tool
}

func NewPlayerctlBackend(opts ExecOptions) *PlayerctlBackend {
	return &PlayerctlBackend{tool: tool{binary: "playerctl", opts: opts.withDefaults()}}
}

func (b *PlayerctlBackend) Name() string { return "playerctl" }

func (b *PlayerctlBackend) Probe(ctx context.Context) error {
	if err := b.available("linux", "freebsd"); err != nil {
		return err
	}
	if err := b.run(ctx, "--version"); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (b *PlayerctlBackend) Supports(op Op) bool {
	return op == OpPlayPause || op == OpNextTrack || op == OpPreviousTrack
}

func (b *PlayerctlBackend) PlayPause(ctx context.Context) error { return b.run(ctx, "play-pause") }
func (b *PlayerctlBackend) NextTrack(ctx context.Context) error { return b.run(ctx, "next") }
func (b *PlayerctlBackend) PreviousTrack(ctx context.Context) error {
	return b.run(ctx, "previous")
}

// BrightnessctlBackend sets backlight brightness (Linux).
type BrightnessctlBackend struct {
	unsupported
	tool
}

func NewBrightnessctlBackend(opts ExecOptions) *BrightnessctlBackend {
	return &BrightnessctlBackend{tool: tool{binary: "brightnessctl", opts: opts.withDefaults()}}
}

func (b *BrightnessctlBackend) Name() string { return "brightnessctl" }

func (b *BrightnessctlBackend) Probe(ctx context.Context) error {
	if err := b.available("linux"); err != nil {
		return err
	}
	if err := b.run(ctx, "-m", "info"); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (b *BrightnessctlBackend) Supports(op Op) bool { return op == OpSetBrightness }

// Level reads the percent column of "brightnessctl -m info", e.g.
// "intel_backlight,backlight,400,42%,960".
func (b *BrightnessctlBackend) Level(ctx context.Context, op Op) (float64, error) {
	if op != OpSetBrightness {
		return 0, ErrUnsupported
	}
	out, err := b.output(ctx, "-m", "info")
	if err != nil {
		return 0, err
	}
	fields := strings.Split(strings.TrimSpace(out), ",")
	if len(fields) < 4 {
		return 0, fmt.Errorf("brightnessctl: unexpected output %q", out)
	}
	return parsePercent(fields[3])
}

func (b *BrightnessctlBackend) SetBrightness(ctx context.Context, level float64) error {
	return b.run(ctx, "-q", "set", percent(level))
}

// OsascriptBackend uses AppleScript (macOS): absolute volume and mute, plus
// the media keys through System Events.
type OsascriptBackend struct {
	unsupported
	tool
}

func NewOsascriptBackend(opts ExecOptions) *OsascriptBackend {
	return &OsascriptBackend{tool: tool{binary: "osascript", opts: opts.withDefaults()}}
}

func (b *OsascriptBackend) Name() string { return "osascript" }

func (b *OsascriptBackend) Probe(ctx context.Context) error {
	return b.available("darwin")
}

var osascriptOps = ops(OpSetVolume, OpMute, OpUnmute, OpPlayPause, OpNextTrack, OpPreviousTrack)

func (b *OsascriptBackend) Supports(op Op) bool { return osascriptOps[op] }

func (b *OsascriptBackend) script(ctx context.Context, s string) error {
	return b.run(ctx, "-e", s)
}

func (b *OsascriptBackend) keyCode(ctx context.Context, code int) error {
	return b.script(ctx, fmt.Sprintf("tell application \"System Events\" to key code %d", code))
}

func (b *OsascriptBackend) Level(ctx context.Context, op Op) (float64, error) {
	if op != OpSetVolume {
		return 0, ErrUnsupported
	}
	out, err := b.output(ctx, "-e", "output volume of (get volume settings)")
	if err != nil {
		return 0, err
	}
	return parsePercent(out)
}

func (b *OsascriptBackend) SetVolume(ctx context.Context, level float64) error {
	return b.script(ctx, fmt.Sprintf("set volume output volume %d", int(level+0.5)))
}

func (b *OsascriptBackend) Mute(ctx context.Context) error {
	return b.script(ctx, "set volume output muted true")
}

func (b *OsascriptBackend) Unmute(ctx context.Context) error {
	return b.script(ctx, "set volume output muted false")
}

func (b *OsascriptBackend) PlayPause(ctx context.Context) error     { return b.keyCode(ctx, 100) }
func (b *OsascriptBackend) NextTrack(ctx context.Context) error     { return b.keyCode(ctx, 101) }
func (b *OsascriptBackend) PreviousTrack(ctx context.Context) error { return b.keyCode(ctx, 98) }
