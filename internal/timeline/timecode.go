package timeline

import (
	"fmt"
	"strconv"
	"strings"
)

// Timecode is a logical position: a measure index plus a beat offset inside
// that measure. The transport converts it to wall-clock time under the
// current tempo.
type Timecode struct {
	Measure int
	Beat    float64
}

// String renders "measure:beat", e.g. "3:1.5".
func (tc Timecode) String() string {
	return strconv.Itoa(tc.Measure) + ":" + strconv.FormatFloat(tc.Beat, 'f', -1, 64)
}

// Beats returns the absolute beat position for a meter of beatsPerMeasure.
func (tc Timecode) Beats(beatsPerMeasure int) float64 {
	return float64(tc.Measure*beatsPerMeasure) + tc.Beat
}

// Before orders timecodes by measure, then by beat.
func (tc Timecode) Before(other Timecode) bool {
	if tc.Measure != other.Measure {
		return tc.Measure < other.Measure
	}
	return tc.Beat < other.Beat
}

// ParseTimecode parses the String form.
func ParseTimecode(s string) (Timecode, error) {
	m, b, ok := strings.Cut(s, ":")
	if !ok {
		return Timecode{}, fmt.Errorf("timecode %q: missing ':'", s)
	}
	measure, err := strconv.Atoi(m)
	if err != nil || measure < 0 {
		return Timecode{}, fmt.Errorf("timecode %q: bad measure", s)
	}
	beat, err := strconv.ParseFloat(b, 64)
	if err != nil || beat < 0 {
		return Timecode{}, fmt.Errorf("timecode %q: bad beat", s)
	}
	return Timecode{Measure: measure, Beat: beat}, nil
}
