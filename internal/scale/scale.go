// Package scale holds the sound mapping consulted by the timeline translator:
// which pitch each abstract scale key plays, and how beat lengths are
// written as playback notation.
package scale

import (
	"sort"
	"strconv"

	"github.com/seagomezar/genmusic/internal/faults"
)

// Scale maps abstract sound keys to playable pitch names. The zero value maps
// nothing.
type Scale struct {
	Name   string
	sounds map[string]string
	order  []string
}

// FromPitches builds a scale whose keys are the degree indexes "0", "1", ...
func FromPitches(name string, pitches ...string) Scale {
	s := Scale{Name: name, sounds: make(map[string]string, len(pitches))}
	for i, p := range pitches {
		s.sounds[strconv.Itoa(i)] = p
		s.order = append(s.order, p)
	}
	return s
}

// FromMap builds a scale from an explicit key -> pitch table. Pitches are
// ordered by key for layout purposes.
func FromMap(name string, sounds map[string]string) Scale {
	s := Scale{Name: name, sounds: make(map[string]string, len(sounds))}
	keys := make([]string, 0, len(sounds))
	for k, v := range sounds {
		s.sounds[k] = v
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s.order = append(s.order, sounds[k])
	}
	return s
}

// Sound resolves key to a pitch name. A missing key is a configuration error.
func (s Scale) Sound(key string) (string, error) {
	if p, ok := s.sounds[key]; ok {
		return p, nil
	}
	return "", faults.Configurationf("sound " + strconv.Quote(key) + " is not mapped by scale " + strconv.Quote(s.Name))
}

// Pitches returns the scale's pitches in degree order.
func (s Scale) Pitches() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of mapped keys.
func (s Scale) Len() int { return len(s.sounds) }

var builtin = map[string][]string{
	"major":          {"A4", "B4", "C#5", "D5", "E5", "F#5", "G#5", "A5"},
	"minor":          {"A4", "B4", "C5", "D5", "E5", "F5", "G5", "A5"},
	"harmonic-minor": {"A4", "B4", "C5", "D5", "E5", "F5", "G#5", "A5"},
	"dorian":         {"D4", "E4", "F4", "G4", "A4", "B4", "C5", "D5"},
	"pentatonic":     {"A4", "B4", "C#5", "E5", "F#5", "A5", "B5", "C#6"},
	"blues":          {"A4", "C5", "D5", "D#5", "E5", "G5", "A5", "C6"},
}

// Degrees is the number of keys every builtin scale maps, so a composition
// generated under one builtin scale translates under any other.
const Degrees = 8

// Lookup returns a builtin scale by name.
func Lookup(name string) (Scale, error) {
	pitches, ok := builtin[name]
	if !ok {
		return Scale{}, faults.Configurationf("unknown scale " + strconv.Quote(name))
	}
	return FromPitches(name, pitches...), nil
}

// Names lists the builtin scales, sorted.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for n := range builtin {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
