package actuator

import (
	"context"
	"fmt"

	"github.com/go-vgo/robotgo"
)

// KeyTapper presses one key. robotgo.KeyTap satisfies it.
type KeyTapper func(key string, args ...interface{}) error

// KeyboardBackend presses the hardware media keys through robotgo. Mute is
// a toggle key there, so absolute mute and unmute are left to other
// backends.
type KeyboardBackend struct {
	unsupported
	tap        KeyTapper
	screenSize func() (int, int)
}

// NewKeyboardBackend uses robotgo when tap is nil.
func NewKeyboardBackend(tap KeyTapper) *KeyboardBackend {
	b := &KeyboardBackend{tap: tap, screenSize: robotgo.GetScreenSize}
	if b.tap == nil {
		b.tap = robotgo.KeyTap
	}
	return b
}

func (b *KeyboardBackend) Name() string { return "keyboard" }

// Probe needs a display to inject key events into.
func (b *KeyboardBackend) Probe(ctx context.Context) error {
	w, h := b.screenSize()
	if w <= 0 || h <= 0 {
		return fmt.Errorf("keyboard: no display: %w", ErrUnavailable)
	}
	return nil
}

func (b *KeyboardBackend) Supports(op Op) bool {
	return op == OpPlayPause || op == OpNextTrack || op == OpPreviousTrack
}

func (b *KeyboardBackend) press(key string) error {
	if err := b.tap(key); err != nil {
		return fmt.Errorf("key %s: %w", key, err)
	}
	return nil
}

func (b *KeyboardBackend) PlayPause(context.Context) error     { return b.press("audio_play") }
func (b *KeyboardBackend) NextTrack(context.Context) error     { return b.press("audio_next") }
func (b *KeyboardBackend) PreviousTrack(context.Context) error { return b.press("audio_prev") }
