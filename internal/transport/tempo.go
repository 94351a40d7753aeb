package transport

import (
	"math"
	"time"
)

// tempoCurve maps between wall-clock time and beat position for a tempo
// that ramps linearly from `from` to `to` bpm over `ramp`, starting at
// (t0, b0), and holds `to` afterwards.
type tempoCurve struct {
	t0   time.Time
	b0   float64
	from float64
	to   float64
	ramp time.Duration
}

func steady(t0 time.Time, b0, bpm float64) tempoCurve {
	return tempoCurve{t0: t0, b0: b0, from: bpm, to: bpm}
}

func (c tempoCurve) rampBeats() float64 {
	return (c.from + c.to) / 2 * c.ramp.Seconds() / 60
}

func (c tempoCurve) bpmAt(t time.Time) float64 {
	dt := t.Sub(c.t0).Seconds()
	r := c.ramp.Seconds()
	switch {
	case dt <= 0:
		return c.from
	case r <= 0 || dt >= r:
		return c.to
	default:
		return c.from + (c.to-c.from)*dt/r
	}
}

func (c tempoCurve) beatAt(t time.Time) float64 {
	dt := t.Sub(c.t0).Seconds()
	r := c.ramp.Seconds()
	switch {
	case dt <= 0:
		return c.b0 + c.from*dt/60
	case r <= 0 || dt >= r:
		return c.b0 + c.rampBeats() + c.to*(dt-math.Max(r, 0))/60
	default:
		return c.b0 + (c.from*dt+(c.to-c.from)*dt*dt/(2*r))/60
	}
}

func (c tempoCurve) timeAt(beat float64) time.Time {
	db := beat - c.b0
	r := c.ramp.Seconds()
	var dt float64
	switch {
	case db <= 0:
		dt = db * 60 / c.from
	case r > 0 && db < c.rampBeats():
		a := (c.to - c.from) / (2 * r)
		if math.Abs(a) < 1e-12 {
			dt = db * 60 / c.from
		} else {
			dt = (-c.from + math.Sqrt(c.from*c.from+4*a*60*db)) / (2 * a)
		}
	default:
		dt = math.Max(r, 0) + (db-c.rampBeats())*60/c.to
	}
	return c.t0.Add(seconds(dt))
}

func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
