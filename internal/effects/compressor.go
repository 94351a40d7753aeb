package effects

import "math"

// Limiter is a stereo-linked peak compressor that keeps dense chords from
// clipping the output.
type Limiter struct {
	threshold float32
	ratio     float32
	attack    float32
	release   float32
	env       float32
}

// NewLimiter takes the threshold in dB, the ratio (4 means 4:1) and the
// envelope times in milliseconds.
func NewLimiter(sampleRate int, thresholdDB, ratio, attackMs, releaseMs float32) *Limiter {
	sr := float64(sampleRate)
	return &Limiter{
		threshold: float32(math.Pow(10, float64(thresholdDB)/20)),
		ratio:     max(ratio, 1),
		attack:    coeff(attackMs, sr),
		release:   coeff(releaseMs, sr),
	}
}

func coeff(ms float32, sr float64) float32 {
	if ms <= 0 {
		return 1
	}
	return float32(1 - math.Exp(-1/(float64(ms)*sr/1000)))
}

func (c *Limiter) Process(l, r float32) (float32, float32) {
	peak := max(abs(l), abs(r))
	if peak > c.env {
		c.env += c.attack * (peak - c.env)
	} else {
		c.env += c.release * (peak - c.env)
	}
	g := c.gain()
	return l * g, r * g
}

func (c *Limiter) gain() float32 {
	if c.env <= c.threshold || c.threshold <= 0 {
		return 1
	}
	over := c.env / c.threshold
	return float32(math.Pow(float64(over), float64(1/c.ratio-1)))
}

func (c *Limiter) Reset() { c.env = 0 }

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
