package visual

import (
	"slices"
	"sync"

	"github.com/seagomezar/genmusic/internal/scale"
)

// Grow is how much a pulsed circle's radius increases.
const Grow = 5

// PadState is a render-ready copy of one pad.
type PadState struct {
	Sound string
	Black bool // accidental, drawn as a black key
	Lit   bool
	Mode  Mode // mode of the highlight that lit it
	Grow  float64
	Z     int // draw order, higher on top
}

// Board is a row of pads, one per pitch. It is safe for concurrent use: the
// loop mutates it while a renderer reads snapshots.
type Board struct {
	mu      sync.Mutex
	pads    []*Pad
	bySound map[string]*Pad
	z       int
	version uint64
}

// Pad is a Board element.
type Pad struct {
	b     *Board
	state PadState
	holds int
}

func NewBoard(pitches []string) *Board {
	b := &Board{bySound: make(map[string]*Pad, len(pitches))}
	b.Reset(pitches)
	return b
}

// Reset replaces the pads, as when the scale changes. Existing elements
// stop affecting the board.
func (b *Board) Reset(pitches []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pads = b.pads[:0]
	clear(b.bySound)
	for i, p := range pitches {
		if _, dup := b.bySound[p]; dup {
			continue
		}
		pad := &Pad{b: b, state: PadState{Sound: p, Black: scale.IsAccidental(p), Z: i}}
		b.pads = append(b.pads, pad)
		b.bySound[p] = pad
	}
	b.z = len(pitches)
	b.version++
}

func (b *Board) Lookup(sound string) (Element, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.bySound[sound]
	if !ok {
		return nil, false
	}
	return p, true
}

// Snapshot returns the pads in layout order.
func (b *Board) Snapshot() []PadState {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]PadState, len(b.pads))
	for i, p := range b.pads {
		out[i] = p.state
	}
	return out
}

// byZ returns a copy of pads sorted bottom to top.
func byZ(pads []PadState) []PadState {
	out := slices.Clone(pads)
	slices.SortStableFunc(out, func(x, y PadState) int { return x.Z - y.Z })
	return out
}

// Version changes whenever any pad does.
func (b *Board) Version() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.version
}

// Highlight lights the pad. Overlapping highlights of the same pad stay lit
// until each has been reverted.
func (p *Pad) Highlight(mode Mode) {
	b := p.b
	b.mu.Lock()
	defer b.mu.Unlock()
	p.holds++
	p.state.Lit = true
	p.state.Mode = mode
	p.state.Grow = 0
	if mode == Circles {
		p.state.Grow = Grow
		b.z++
		p.state.Z = b.z
	}
	b.version++
}

func (p *Pad) Revert() {
	b := p.b
	b.mu.Lock()
	defer b.mu.Unlock()
	if p.holds == 0 {
		return
	}
	p.holds--
	if p.holds == 0 {
		p.state.Lit = false
		p.state.Grow = 0
		b.version++
	}
}
