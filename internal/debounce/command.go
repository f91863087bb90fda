// Package debounce turns a per-frame stream of gesture labels into one-shot
// media commands, enforcing a confirmation dwell and per-gesture cooldowns.
package debounce

import "github.com/Kazeku-06/gesture-media-control/internal/gesture"

// Command is a discrete media action.
type Command string

const (
	PlayPause     Command = "play_pause"
	NextTrack     Command = "next_track"
	PreviousTrack Command = "previous_track"
	Mute          Command = "mute"
	Unmute        Command = "unmute"
)

// Commands lists every discrete command.
var Commands = []Command{PlayPause, NextTrack, PreviousTrack, Mute, Unmute}

var labelCommands = map[gesture.Label]Command{
	gesture.OkSign:     PlayPause,
	gesture.Peace:      NextTrack,
	gesture.ThumbDown:  PreviousTrack,
	gesture.ClosedFist: Mute,
	gesture.OpenPalm:   Unmute,
}

// CommandFor returns the command a confirmed label fires. PinchVolume,
// NoHand and Unknown have none.
func CommandFor(l gesture.Label) (Command, bool) {
	c, ok := labelCommands[l]
	return c, ok
}

// LabelFor is the inverse of CommandFor.
func LabelFor(c Command) (gesture.Label, bool) {
	for l, cmd := range labelCommands {
		if cmd == c {
			return l, true
		}
	}
	return "", false
}
