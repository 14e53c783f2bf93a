package input

import (
	"fmt"
	"maps"
	"sort"
	"strings"

	"github.com/gdamore/tcell/v2"
)

// Action is a semantic command bound to a key
type Action uint8

const (
	ActionNone Action = iota
	ActionQuit
	ActionPause
	ActionReset
	ActionCalibrate
	ActionNextLevel
	ActionToggleTouch
	ActionToggleMute
	ActionTiltUp
	ActionTiltDown
	ActionTiltLeft
	ActionTiltRight
)

// actionNames maps config action names to actions
// "none" unbinds a key
var actionNames = map[string]Action{
	"none":         ActionNone,
	"quit":         ActionQuit,
	"pause":        ActionPause,
	"reset":        ActionReset,
	"calibrate":    ActionCalibrate,
	"next_level":   ActionNextLevel,
	"toggle_touch": ActionToggleTouch,
	"toggle_mute":  ActionToggleMute,
	"tilt_up":      ActionTiltUp,
	"tilt_down":    ActionTiltDown,
	"tilt_left":    ActionTiltLeft,
	"tilt_right":   ActionTiltRight,
}

// Rune aliases for keys that are awkward as bare config keys
var runeAliases = map[string]rune{
	"space": ' ',
}

// Direction returns the steering direction of a tilt action
func (a Action) Direction() (Direction, bool) {
	switch a {
	case ActionTiltUp:
		return DirUp, true
	case ActionTiltDown:
		return DirDown, true
	case ActionTiltLeft:
		return DirLeft, true
	case ActionTiltRight:
		return DirRight, true
	}
	return 0, false
}

// Keymap maps terminal keys to actions
type Keymap struct {
	Keys  map[tcell.Key]Action
	Runes map[rune]Action
}

// DefaultKeymap returns the default bindings
func DefaultKeymap() *Keymap {
	return &Keymap{
		Keys: map[tcell.Key]Action{
			tcell.KeyCtrlC:  ActionQuit,
			tcell.KeyCtrlQ:  ActionQuit,
			tcell.KeyEscape: ActionPause,
			tcell.KeyUp:     ActionTiltUp,
			tcell.KeyDown:   ActionTiltDown,
			tcell.KeyLeft:   ActionTiltLeft,
			tcell.KeyRight:  ActionTiltRight,
			tcell.KeyEnter:  ActionNextLevel,
		},
		Runes: map[rune]Action{
			'q': ActionQuit,
			'p': ActionPause,
			' ': ActionPause,
			'r': ActionReset,
			'c': ActionCalibrate,
			'n': ActionNextLevel,
			't': ActionToggleTouch,
			'm': ActionToggleMute,
			'k': ActionTiltUp,
			'j': ActionTiltDown,
			'h': ActionTiltLeft,
			'l': ActionTiltRight,
			'w': ActionTiltUp,
			's': ActionTiltDown,
			'a': ActionTiltLeft,
			'd': ActionTiltRight,
		},
	}
}

// Clone returns a deep copy
func (m *Keymap) Clone() *Keymap {
	return &Keymap{Keys: maps.Clone(m.Keys), Runes: maps.Clone(m.Runes)}
}

// Resolve returns the action bound to ev
func (m *Keymap) Resolve(ev *tcell.EventKey) Action {
	if ev.Key() == tcell.KeyRune {
		return m.Runes[ev.Rune()]
	}
	return m.Keys[ev.Key()]
}

// Override applies bindings of key name to action name
// Key names are single characters, rune aliases, or tcell key names
// ("Up", "Ctrl-C", "Esc"), case-insensitive. Binding "none" removes the key.
func (m *Keymap) Override(bindings map[string]string) error {
	names := make([]string, 0, len(bindings))
	for k := range bindings {
		names = append(names, k)
	}
	sort.Strings(names)

	for _, keyStr := range names {
		action, ok := actionNames[strings.ToLower(strings.TrimSpace(bindings[keyStr]))]
		if !ok {
			return fmt.Errorf("key %q: unknown action %q", keyStr, bindings[keyStr])
		}

		if r, ok := resolveRune(keyStr); ok {
			if action == ActionNone {
				delete(m.Runes, r)
			} else {
				m.Runes[r] = action
			}
			continue
		}

		k, ok := keyByName(keyStr)
		if !ok {
			return fmt.Errorf("unknown key name: %q", keyStr)
		}
		if action == ActionNone {
			delete(m.Keys, k)
		} else {
			m.Keys[k] = action
		}
	}
	return nil
}

// ActionNames returns the configurable action names, sorted
func ActionNames() []string {
	names := make([]string, 0, len(actionNames))
	for name := range actionNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resolveRune(s string) (rune, bool) {
	if r, ok := runeAliases[strings.ToLower(s)]; ok {
		return r, true
	}
	runes := []rune(s)
	if len(runes) == 1 {
		return runes[0], true
	}
	return 0, false
}

func keyByName(name string) (tcell.Key, bool) {
	for k, n := range tcell.KeyNames {
		if strings.EqualFold(n, name) {
			return k, true
		}
	}
	return 0, false
}
