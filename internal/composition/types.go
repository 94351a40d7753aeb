package composition

import (
	"context"

	"github.com/google/uuid"
)

// Note is one sounding event. Sound is an abstract scale key resolved by the
// current scale at translation time; Duration is in beats.
type Note struct {
	Sound    string  `json:"sound"`
	Duration float64 `json:"duration"`
}

// Measure is an ordered run of notes. Beat offsets restart at 0 in every measure.
type Measure struct {
	Notes []Note `json:"notes"`
}

// Beats returns the sum of note durations in the measure.
func (m Measure) Beats() float64 {
	var total float64
	for _, n := range m.Notes {
		total += n.Duration
	}
	return total
}

// Composition is an ordered run of measures. It is never mutated after the
// generator returns it; regeneration replaces it wholesale.
type Composition struct {
	ID       string    `json:"id"`
	Measures []Measure `json:"measures"`
}

// New builds a composition with a fresh ID.
func New(measures []Measure) Composition {
	return Composition{ID: uuid.NewString(), Measures: measures}
}

// Empty reports whether the composition holds no notes at all.
func (c Composition) Empty() bool {
	for _, m := range c.Measures {
		if len(m.Notes) > 0 {
			return false
		}
	}
	return true
}

// NoteCount returns the number of notes across all measures.
func (c Composition) NoteCount() int {
	n := 0
	for _, m := range c.Measures {
		n += len(m.Notes)
	}
	return n
}

// Generator produces a composition roughly durationSeconds long. It must not
// fail for non-negative durations; degenerate durations may yield an empty
// composition.
type Generator interface {
	Generate(ctx context.Context, durationSeconds int) (Composition, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, durationSeconds int) (Composition, error)

func (f GeneratorFunc) Generate(ctx context.Context, durationSeconds int) (Composition, error) {
	return f(ctx, durationSeconds)
}
