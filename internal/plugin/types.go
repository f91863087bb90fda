// Package plugin discovers and runs external control plugins. A plugin is
// a directory holding a plugin.json manifest and an executable that reads
// one JSON request on stdin and writes one JSON response on stdout.
package plugin

import (
	"encoding/json"
	"slices"
)

// Manifest describes a plugin's metadata and the actions it implements.
type Manifest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Executable  string   `json:"executable"`
	Actions     []string `json:"actions"`
}

// Request is sent to a plugin on stdin.
type Request struct {
	Action  string          `json:"action"`
	Gesture string          `json:"gesture,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// LevelParams is the payload of the set-volume and set-brightness actions.
type LevelParams struct {
	Value int `json:"value"`
}

// Response is read back from the plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Supports reports whether the manifest lists action.
func (p *Plugin) Supports(action string) bool {
	return slices.Contains(p.Manifest.Actions, action)
}

// Action names understood by control plugins.
const (
	ActionSetVolume     = "set-volume"
	ActionPlayPause     = "play-pause"
	ActionNextTrack     = "next-track"
	ActionPreviousTrack = "previous-track"
	ActionMute          = "mute"
	ActionUnmute        = "unmute"
	ActionSetBrightness = "set-brightness"
)
