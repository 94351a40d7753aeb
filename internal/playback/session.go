// Package playback owns the transport: it is the only code that loads,
// starts, stops or clears the clock.
package playback

import (
	"time"

	"github.com/seagomezar/genmusic/internal/composition"
	"github.com/seagomezar/genmusic/internal/scale"
	"github.com/seagomezar/genmusic/internal/timeline"
	"github.com/seagomezar/genmusic/internal/visual"
)

// Session is the process-wide playback state. It belongs to the loop and is
// only changed through the state machine's transitions.
type Session struct {
	Tempo          float64 // bpm
	TargetDuration int     // seconds
	Scale          scale.Scale
	Visualization  visual.Mode

	Composition    composition.Composition
	HasComposition bool
	CreatedAt      time.Time

	// Schedule is the translation of Composition that is loaded in the
	// clock, or nil.
	Schedule timeline.Schedule
	Playing  bool
}

// ClearComposition drops the composition and anything derived from it.
func (s *Session) ClearComposition() {
	s.Composition = composition.Composition{}
	s.HasComposition = false
	s.CreatedAt = time.Time{}
	s.Schedule = nil
}

// SetComposition installs a freshly generated composition.
func (s *Session) SetComposition(c composition.Composition, at time.Time) {
	s.Composition = c
	s.HasComposition = true
	s.CreatedAt = at
	s.Schedule = nil
}
