package visual

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	circleStyle = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("245"))
	pulseStyle  = circleStyle.Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("212"))
	whiteKey   = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("255"))
	blackKey   = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("255")).Background(lipgloss.Color("236"))
	whiteDown  = whiteKey.Background(lipgloss.Color("117")).Bold(true)
	blackDown  = blackKey.Background(lipgloss.Color("25")).Bold(true)
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// RenderLine draws the board on one terminal line in the given mode.
func RenderLine(pads []PadState, mode Mode) string {
	parts := make([]string, 0, len(pads)+1)
	parts = append(parts, titleStyle.Render(string(mode)))
	for _, p := range pads {
		parts = append(parts, renderPad(p, mode))
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, parts...)
}

func renderPad(p PadState, mode Mode) string {
	lit := p.Lit
	if mode == Keyboard {
		switch {
		case p.Black && lit:
			return blackDown.Render(p.Sound)
		case p.Black:
			return blackKey.Render(p.Sound)
		case lit:
			return whiteDown.Render(p.Sound)
		default:
			return whiteKey.Render(p.Sound)
		}
	}
	label := "(" + p.Sound + ")"
	if lit {
		return pulseStyle.Render(strings.ToUpper(label))
	}
	return circleStyle.Render(label)
}

// Terminal redraws a board in place on a terminal whenever it changes.
type Terminal struct {
	w    io.Writer
	b    *Board
	mode func() Mode
	seen uint64
	last string
}

// NewTerminal draws b to w. mode reports the current visualization mode.
func NewTerminal(w io.Writer, b *Board, mode func() Mode) *Terminal {
	return &Terminal{w: w, b: b, mode: mode}
}

// Refresh redraws if the board or the mode changed and reports whether it did.
func (t *Terminal) Refresh() bool {
	v := t.b.Version()
	line := RenderLine(t.b.Snapshot(), t.mode())
	if v == t.seen && line == t.last {
		return false
	}
	t.seen, t.last = v, line
	fmt.Fprint(t.w, "\r\x1b[2K"+line)
	return true
}
