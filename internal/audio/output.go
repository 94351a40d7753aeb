package audio

import (
	"fmt"
	"strings"

	"github.com/seagomezar/genmusic/internal/faults"
)

// Output is a running audio backend.
type Output interface {
	// Ready returns nil once the device accepts audio. It may start the
	// device lazily on first success.
	Ready() error
	Close() error
}

const (
	BackendEbiten = "ebiten"
	BackendOto    = "oto"
	BackendNone   = "none"
)

// Open starts the named backend pulling from source.
func Open(backend string, sampleRate int, source SampleSource) (Output, error) {
	switch strings.ToLower(backend) {
	case BackendEbiten, "":
		return NewEbiten(sampleRate, source)
	case BackendOto:
		return NewOto(sampleRate, source)
	case BackendNone:
		return Silent{}, nil
	default:
		return nil, faults.Configurationf(fmt.Sprintf("unknown audio backend %q", backend))
	}
}

// Silent is always ready and plays nothing. Headless runs and tests use it.
type Silent struct{}

func (Silent) Ready() error { return nil }
func (Silent) Close() error { return nil }
