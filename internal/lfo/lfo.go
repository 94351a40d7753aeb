// Package lfo provides the low-frequency oscillator the synth uses for
// vibrato.
package lfo

// Shape selects the LFO waveform.
type Shape int

const (
	Triangle Shape = iota
	Saw
	Square
)

// LFO produces one modulation value per sample. The zero value is silent.
type LFO struct {
	depth  float64
	rateHz float64
	shape  Shape
	phase  float64 // [0, 1)
}

// Set configures depth (in the caller's units), rate and shape.
func (l *LFO) Set(depth, rateHz float64, shape Shape) {
	if shape < Triangle || shape > Square {
		shape = Triangle
	}
	l.depth = depth
	l.rateHz = rateHz
	l.shape = shape
}

// Active reports whether Sample can return anything but zero.
func (l *LFO) Active() bool {
	return l.depth != 0 && l.rateHz != 0
}

// Sample advances one sample and returns a value in [-depth, +depth].
func (l *LFO) Sample(sampleRate float64) float64 {
	if !l.Active() || sampleRate <= 0 {
		return 0
	}
	var v float64
	switch l.shape {
	case Saw:
		v = 1 - 2*l.phase
	case Square:
		v = 1
		if l.phase >= 0.5 {
			v = -1
		}
	default:
		if l.phase < 0.5 {
			v = 4*l.phase - 1
		} else {
			v = 3 - 4*l.phase
		}
	}
	l.phase += l.rateHz / sampleRate
	for l.phase >= 1 {
		l.phase--
	}
	return v * l.depth
}

// Reset rewinds the phase.
func (l *LFO) Reset() { l.phase = 0 }
