package actuator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Kazeku-06/gesture-media-control/internal/plugin"
)

var pluginActions = map[Op]string{
	OpSetVolume:     plugin.ActionSetVolume,
	OpPlayPause:     plugin.ActionPlayPause,
	OpNextTrack:     plugin.ActionNextTrack,
	OpPreviousTrack: plugin.ActionPreviousTrack,
	OpMute:          plugin.ActionMute,
	OpUnmute:        plugin.ActionUnmute,
	OpSetBrightness: plugin.ActionSetBrightness,
}

// PluginBackend forwards ops to external plugins. Each op goes to the
// first discovered plugin whose manifest lists the matching action.
type PluginBackend struct {
	manager  *plugin.Manager
	executor *plugin.Executor
	resolved map[Op]*plugin.Plugin
}

func NewPluginBackend(manager *plugin.Manager, executor *plugin.Executor) *PluginBackend {
	return &PluginBackend{manager: manager, executor: executor}
}

func (b *PluginBackend) Name() string { return "plugin" }

// Probe discovers plugins and resolves each op to a plugin once.
func (b *PluginBackend) Probe(ctx context.Context) error {
	if err := b.manager.Discover(); err != nil {
		return fmt.Errorf("discover plugins in %s: %w", b.manager.PluginDir(), err)
	}

	b.resolved = make(map[Op]*plugin.Plugin)
	for op, action := range pluginActions {
		p, err := b.manager.FindAction(action)
		if errors.Is(err, plugin.ErrPluginNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		b.resolved[op] = p
	}
	if len(b.resolved) == 0 {
		return fmt.Errorf("no control plugins in %s: %w", b.manager.PluginDir(), ErrUnavailable)
	}
	return nil
}

func (b *PluginBackend) Supports(op Op) bool {
	_, ok := b.resolved[op]
	return ok
}

// PluginFor returns the plugin serving op, if any.
func (b *PluginBackend) PluginFor(op Op) (*plugin.Plugin, bool) {
	p, ok := b.resolved[op]
	return p, ok
}

func (b *PluginBackend) do(ctx context.Context, op Op, params any) error {
	p, ok := b.resolved[op]
	if !ok {
		return ErrUnsupported
	}

	req := &plugin.Request{Action: pluginActions[op]}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("marshal params: %w", err)
		}
		req.Params = raw
	}

	resp, err := b.executor.Execute(ctx, p, req)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("plugin %s: %s", p.Manifest.Name, resp.Error)
	}
	return nil
}

func level(v float64) plugin.LevelParams {
	return plugin.LevelParams{Value: int(v + 0.5)}
}

func (b *PluginBackend) SetVolume(ctx context.Context, v float64) error {
	return b.do(ctx, OpSetVolume, level(v))
}

func (b *PluginBackend) PlayPause(ctx context.Context) error {
	return b.do(ctx, OpPlayPause, nil)
}

func (b *PluginBackend) NextTrack(ctx context.Context) error {
	return b.do(ctx, OpNextTrack, nil)
}

func (b *PluginBackend) PreviousTrack(ctx context.Context) error {
	return b.do(ctx, OpPreviousTrack, nil)
}

func (b *PluginBackend) Mute(ctx context.Context) error {
	return b.do(ctx, OpMute, nil)
}

func (b *PluginBackend) Unmute(ctx context.Context) error {
	return b.do(ctx, OpUnmute, nil)
}

func (b *PluginBackend) SetBrightness(ctx context.Context, v float64) error {
	return b.do(ctx, OpSetBrightness, level(v))
}
