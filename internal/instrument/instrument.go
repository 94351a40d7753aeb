// Package instrument turns scheduled notes into sound. Synth renders them
// through the FM engine; MIDI forwards them to an external device.
package instrument

import "time"

// Instrument plays sound (a pitch name such as "C#5") for d starting at the
// wall-clock instant at. Implementations must not block: calls arrive on the
// transport's loop a few milliseconds ahead of at.
type Instrument interface {
	AttackRelease(sound string, d time.Duration, at time.Time) error
}

// Func adapts a function to Instrument.
type Func func(sound string, d time.Duration, at time.Time) error

func (f Func) AttackRelease(sound string, d time.Duration, at time.Time) error {
	return f(sound, d, at)
}

// Canceller is implemented by instruments that accept notes ahead of their
// start. Cancel drops every note that starts after the given instant; notes
// already sounding keep their release.
type Canceller interface {
	Cancel(after time.Time)
}
