// Package faults classifies engine errors so callers can decide whether a
// failure aborts a transition, surfaces to the user, or is only logged.
package faults

import (
	"errors"
	"fmt"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
)

const (
	// Configuration marks an unmapped sound, scale or duration.
	Configuration ftag.Kind = "configuration_error"
	// EngineUnavailable marks an audio subsystem that is not ready.
	EngineUnavailable ftag.Kind = "engine_unavailable"
	// VisualLookupMiss marks a sound with no visual element.
	VisualLookupMiss ftag.Kind = "visual_lookup_miss"
	// InvalidTransition marks a request the session's current state refuses.
	InvalidTransition ftag.Kind = "invalid_transition"
)

var (
	ErrConfiguration     = errors.New("configuration error")
	ErrEngineUnavailable = errors.New("audio engine unavailable")
	ErrVisualLookupMiss  = errors.New("visual element not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrPanicked          = errors.New("recovered panic")
)

// Configurationf wraps ErrConfiguration with a message and the Configuration tag.
func Configurationf(msg string) error {
	return fault.Wrap(ErrConfiguration, fmsg.With(msg), ftag.With(Configuration))
}

// EngineDown wraps cause (or ErrEngineUnavailable when cause is nil) so that
// errors.Is(err, ErrEngineUnavailable) holds either way.
func EngineDown(cause error, msg string) error {
	if cause == nil {
		return fault.Wrap(ErrEngineUnavailable, fmsg.With(msg), ftag.With(EngineUnavailable))
	}
	return fault.Wrap(errors.Join(ErrEngineUnavailable, cause), fmsg.With(msg), ftag.With(EngineUnavailable))
}

// LookupMiss reports a missing visual element for sound.
func LookupMiss(sound string) error {
	return fault.Wrap(ErrVisualLookupMiss, fmsg.With("no visual element for "+sound), ftag.With(VisualLookupMiss))
}

// Transition reports a request refused in the current state.
func Transition(msg string) error {
	return fault.Wrap(ErrInvalidTransition, fmsg.With(msg), ftag.With(InvalidTransition))
}

// Recovered turns a value recovered from a panic in what into an error.
func Recovered(what string, r any) error {
	return fault.Wrap(ErrPanicked, fmsg.With(fmt.Sprintf("%s panicked: %v", what, r)))
}

// Kind returns the tag attached to err.
func Kind(err error) ftag.Kind {
	if err == nil {
		return ""
	}
	return ftag.Get(err)
}

// Is reports whether err carries kind.
func Is(err error, kind ftag.Kind) bool {
	return err != nil && Kind(err) == kind
}
