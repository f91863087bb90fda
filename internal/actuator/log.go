package actuator

import (
	"context"
	"log/slog"
)

// LogBackend applies nothing and logs every command. It is always usable,
// which makes it the simulation mode when placed in the chain.
type LogBackend struct {
	logger *slog.Logger
}

func NewLogBackend(logger *slog.Logger) *LogBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogBackend{logger: logger.With("component", "actuator-log")}
}

func (b *LogBackend) Name() string                { return "log" }
func (b *LogBackend) Probe(context.Context) error { return nil }
func (b *LogBackend) Supports(Op) bool            { return true }

func (b *LogBackend) SetVolume(_ context.Context, level float64) error {
	b.logger.Info("set volume", "level", level)
	return nil
}

func (b *LogBackend) PlayPause(context.Context) error {
	b.logger.Info("play/pause")
	return nil
}

func (b *LogBackend) NextTrack(context.Context) error {
	b.logger.Info("next track")
	return nil
}

func (b *LogBackend) PreviousTrack(context.Context) error {
	b.logger.Info("previous track")
	return nil
}

func (b *LogBackend) Mute(context.Context) error {
	b.logger.Info("mute")
	return nil
}

func (b *LogBackend) Unmute(context.Context) error {
	b.logger.Info("unmute")
	return nil
}

func (b *LogBackend) SetBrightness(_ context.Context, level float64) error {
	b.logger.Info("set brightness", "level", level)
	return nil
}
