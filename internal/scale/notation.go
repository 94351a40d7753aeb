package scale

import (
	"strconv"
	"time"

	"github.com/seagomezar/genmusic/internal/faults"
)

// Notation is a playback duration written the way transports name them:
// "4n" is a quarter note, "8n." a dotted eighth, "1n" a whole note.
type Notation string

var notations = []struct {
	beats float64
	n     Notation
}{
	{0.25, "16n"},
	{0.5, "8n"},
	{0.75, "8n."},
	{1, "4n"},
	{1.5, "4n."},
	{2, "2n"},
	{3, "2n."},
	{4, "1n"},
}

// NotationFor converts a beat count to notation. Durations without a
// notation are a configuration error.
func NotationFor(beats float64) (Notation, error) {
	for _, e := range notations {
		if e.beats == beats {
			return e.n, nil
		}
	}
	return "", faults.Configurationf("no notation for " + strconv.FormatFloat(beats, 'f', -1, 64) + " beats")
}

// Beats returns the length of n in quarter-note beats, or 0 if n is unknown.
func (n Notation) Beats() float64 {
	for _, e := range notations {
		if e.n == n {
			return e.beats
		}
	}
	return 0
}

// Duration returns the wall-clock length of n at bpm.
func (n Notation) Duration(bpm float64) time.Duration {
	if bpm <= 0 {
		return 0
	}
	return time.Duration(n.Beats() * 60 / bpm * float64(time.Second))
}
