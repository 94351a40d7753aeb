// Package timeline flattens a composition into the ordered event list the
// transport plays.
package timeline

import (
	"fmt"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"

	"github.com/seagomezar/genmusic/internal/composition"
	"github.com/seagomezar/genmusic/internal/scale"
)

// Event is one scheduled note.
type Event struct {
	Timecode Timecode
	Sound    string // playable pitch, also the visual element key
	Notation scale.Notation
}

// Schedule is the event list for one composition, in non-decreasing
// timecode order.
type Schedule []Event

// Translate walks c measure by measure, accumulating beat offsets left to
// right, and resolves sounds and durations through s. Any unmapped sound or
// duration aborts the whole translation.
func Translate(c composition.Composition, s scale.Scale) (Schedule, error) {
	out := make(Schedule, 0, c.NoteCount())
	for i, m := range c.Measures {
		offset := 0.0
		for j, n := range m.Notes {
			sound, err := s.Sound(n.Sound)
			if err != nil {
				return nil, fault.Wrap(err, fmsg.With(position(i, j)))
			}
			notation, err := scale.NotationFor(n.Duration)
			if err != nil {
				return nil, fault.Wrap(err, fmsg.With(position(i, j)))
			}
			out = append(out, Event{
				Timecode: Timecode{Measure: i, Beat: offset},
				Sound:    sound,
				Notation: notation,
			})
			offset += n.Duration
		}
	}
	return out, nil
}

func position(measure, note int) string {
	return fmt.Sprintf("translate measure %d note %d", measure, note)
}
