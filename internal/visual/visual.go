// Package visual defines the surface the dispatcher highlights, and a board
// implementation rendered either to a terminal or an ebiten window.
package visual

import (
	"strconv"
	"strings"

	"github.com/seagomezar/genmusic/internal/faults"
)

// Mode selects how a fired note is shown.
type Mode string

const (
	// Circles pulses the note's circle: brighter, larger, on top.
	Circles Mode = "circles"
	// Keyboard presses the note's key, black or white.
	Keyboard Mode = "keyboard"
)

// ParseMode accepts the mode names case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case Circles, Keyboard:
		return m, nil
	}
	return "", faults.Configurationf("unknown visualization " + strconv.Quote(s))
}

// Element is one addressable visual, keyed by sound.
type Element interface {
	Highlight(mode Mode)
	Revert()
}

// Surface resolves sounds to elements.
type Surface interface {
	Lookup(sound string) (Element, bool)
}

// Map is a fixed sound -> element table.
type Map map[string]Element

func (m Map) Lookup(sound string) (Element, bool) {
	e, ok := m[sound]
	return e, ok
}
