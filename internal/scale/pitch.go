package scale

import (
	"math"
	"strconv"
	"strings"

	"github.com/seagomezar/genmusic/internal/faults"
)

var letterSemitone = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// MIDINote parses scientific pitch notation ("A4", "C#5", "Bb3") into a MIDI
// key number, A4 = 69.
func MIDINote(name string) (uint8, error) {
	name = strings.TrimSpace(name)
	bad := faults.Configurationf("invalid pitch " + strconv.Quote(name))
	if len(name) < 2 {
		return 0, bad
	}
	semi, ok := letterSemitone[name[0]&^0x20]
	if !ok {
		return 0, bad
	}
	rest := name[1:]
	switch rest[0] {
	case '#':
		semi++
		rest = rest[1:]
	case 'b':
		semi--
		rest = rest[1:]
	}
	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, bad
	}
	n := (octave+1)*12 + semi
	if n < 0 || n > 127 {
		return 0, bad
	}
	return uint8(n), nil
}

// Frequency returns the equal-tempered frequency of a pitch name in Hz.
func Frequency(name string) (float64, error) {
	n, err := MIDINote(name)
	if err != nil {
		return 0, err
	}
	return 440 * math.Pow(2, (float64(n)-69)/12), nil
}

// IsAccidental reports whether the pitch sits on a black key.
func IsAccidental(name string) bool {
	return len(name) > 1 && (name[1] == '#' || name[1] == 'b')
}
