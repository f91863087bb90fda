// Package actuator applies media commands to whatever control surface the
// machine offers, falling back through an ordered chain of backends.
package actuator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Kazeku-06/gesture-media-control/internal/debounce"
)

// Op is one capability a backend may provide.
type Op string

const (
	OpSetVolume     Op = "set_volume"
	OpPlayPause     Op = "play_pause"
	OpNextTrack     Op = "next_track"
	OpPreviousTrack Op = "previous_track"
	OpMute          Op = "mute"
	OpUnmute        Op = "unmute"
	OpSetBrightness Op = "set_brightness"
)

// Ops lists every capability.
var Ops = []Op{OpSetVolume, OpPlayPause, OpNextTrack, OpPreviousTrack, OpMute, OpUnmute, OpSetBrightness}

// Continuous reports whether the op carries a level.
func (o Op) Continuous() bool {
	return o == OpSetVolume || o == OpSetBrightness
}

var commandOps = map[debounce.Command]Op{
	debounce.PlayPause:     OpPlayPause,
	debounce.NextTrack:     OpNextTrack,
	debounce.PreviousTrack: OpPreviousTrack,
	debounce.Mute:          OpMute,
	debounce.Unmute:        OpUnmute,
}

// OpFor returns the op that carries out a discrete command.
func OpFor(c debounce.Command) (Op, bool) {
	op, ok := commandOps[c]
	return op, ok
}

var (
	// ErrUnsupported is returned by a backend asked for an op it lacks.
	ErrUnsupported = errors.New("operation not supported by backend")

	// ErrUnavailable is returned by Probe when a backend cannot run here.
	ErrUnavailable = errors.New("backend unavailable")

	// ErrExhausted marks a request for an op with no working backend left.
	ErrExhausted = errors.New("no working backend for operation")
)

// Backend is one way of reaching the OS. Levels are in [0, 100] and are
// clamped before they get here.
type Backend interface {
	Name() string

	// Probe reports whether the backend can run on this machine. It is
	// called once, at chain construction.
	Probe(ctx context.Context) error

	Supports(op Op) bool

	SetVolume(ctx context.Context, level float64) error
	PlayPause(ctx context.Context) error
	NextTrack(ctx context.Context) error
	PreviousTrack(ctx context.Context) error
	Mute(ctx context.Context) error
	Unmute(ctx context.Context) error
	SetBrightness(ctx context.Context, level float64) error
}

// LevelReader is implemented by backends that can report the current
// level of a continuous op, on the same 0-100 scale they are set with.
type LevelReader interface {
	Level(ctx context.Context, op Op) (float64, error)
}

// Request asks for one op. Value is only read for continuous ops.
type Request struct {
	Op      Op
	Value   float64
	Gesture string
	At      time.Time
}

// Result is the outcome of one request. Failures are soft: OK is false and
// Err says why, nothing is retried.
type Result struct {
	Request   Request
	Backend   string
	OK        bool
	Err       error
	Exhausted bool
	Duration  time.Duration
}

// StatusEvent is sent once per op when its last backend fails.
type StatusEvent struct {
	Op          Op
	LastBackend string
	Err         error
	At          time.Time
}

func (e StatusEvent) String() string {
	if e.LastBackend == "" {
		return fmt.Sprintf("%s unavailable: no backend supports it", e.Op)
	}
	return fmt.Sprintf("%s unavailable: last backend %s failed: %v", e.Op, e.LastBackend, e.Err)
}

// call routes a request to the matching backend method.
func call(ctx context.Context, b Backend, req Request) error {
	switch req.Op {
	case OpSetVolume:
		return b.SetVolume(ctx, clampLevel(req.Value))
	case OpPlayPause:
		return b.PlayPause(ctx)
	case OpNextTrack:
		return b.NextTrack(ctx)
	case OpPreviousTrack:
		return b.PreviousTrack(ctx)
	case OpMute:
		return b.Mute(ctx)
	case OpUnmute:
		return b.Unmute(ctx)
	case OpSetBrightness:
		return b.SetBrightness(ctx, clampLevel(req.Value))
	}
	return fmt.Errorf("unknown op %q", req.Op)
}

func clampLevel(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// unsupported is embedded by backends that only implement some ops.
type unsupported struct{}

func (unsupported) SetVolume(context.Context, float64) error     { return ErrUnsupported }
func (unsupported) PlayPause(context.Context) error              { return ErrUnsupported }
func (unsupported) NextTrack(context.Context) error              { return ErrUnsupported }
func (unsupported) PreviousTrack(context.Context) error          { return ErrUnsupported }
func (unsupported) Mute(context.Context) error                   { return ErrUnsupported }
func (unsupported) Unmute(context.Context) error                 { return ErrUnsupported }
func (unsupported) SetBrightness(context.Context, float64) error { return ErrUnsupported }

// opSet is a small capability set.
type opSet map[Op]bool

func ops(list ...Op) opSet {
	s := make(opSet, len(list))
	for _, op := range list {
		s[op] = true
	}
	return s
}
