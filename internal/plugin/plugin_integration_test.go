package plugin

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPlugin_SystemControl_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	pluginDir := findPluginDir("system-control")
	if pluginDir == "" {
		t.Skip("system-control plugin not built")
	}

	mgr := NewManager(filepath.Dir(pluginDir), nil)
	if err := mgr.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	plug, err := mgr.Get("system-control")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	for _, action := range []string{ActionSetVolume, ActionPlayPause, ActionMute, ActionUnmute} {
		if !plug.Supports(action) {
			t.Errorf("manifest should list %s", action)
		}
	}

	// An unknown action has no side effects and must come back as a
	// structured failure.
	executor := NewExecutor(5 * time.Second)
	resp, err := executor.Execute(context.Background(), plug, &Request{Action: "invalid-action"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if resp.Success {
		t.Error("expected failure for invalid action")
	}
}

func findPluginDir(name string) string {
	candidates := []string{
		filepath.Join("../../plugins", name),
		filepath.Join("../../../plugins", name),
	}

	for _, dir := range candidates {
		manifest := filepath.Join(dir, "plugin.json")
		if _, err := os.Stat(manifest); err != nil {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return dir
		}
	}
	return ""
}
