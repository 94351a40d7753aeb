// Package fm is a small two-operator FM voice engine: one sine modulator
// driving one sine carrier per voice, with an ADSR envelope and a shared
// vibrato LFO.
package fm

import (
	"math"

	"github.com/seagomezar/genmusic/internal/lfo"
)

const twoPi = math.Pi * 2

type Params struct {
	Polyphony   int
	ModRatio    float64 // modulator frequency / carrier frequency
	ModIndex    float64
	AttackSec   float64
	DecaySec    float64
	SustainLvl  float64
	ReleaseSec  float64
	MasterGain  float64
	VelocityAmp float64
	LPFCutoff   float64 // Hz, 0 disables
	VibratoCent float64
	VibratoHz   float64
}

// DefaultParams is a soft electric-piano patch with a one second release.
func DefaultParams() Params {
	return Params{
		Polyphony:   32,
		ModRatio:    2.0,
		ModIndex:    1.6,
		AttackSec:   0.005,
		DecaySec:    0.25,
		SustainLvl:  0.6,
		ReleaseSec:  1.0,
		MasterGain:  0.35,
		VelocityAmp: 0.8,
		LPFCutoff:   9000,
		VibratoCent: 6,
		VibratoHz:   5,
	}
}

type envState int

const (
	envAttack envState = iota
	envDecay
	envSustain
	envRelease
	envOff
)

type voice struct {
	active   bool
	id       int
	freq     float64
	velocity float64
	carrier  float64
	mod      float64
	env      float64
	state    envState
	relStep  float64
}

type Engine struct {
	sampleRate float64
	params     Params
	voices     []voice
	nextID     int
	vibrato    lfo.LFO
	lpfAlpha   float64
	lpf        float64
}

func New(sampleRate int, params Params) *Engine {
	if params.Polyphony <= 0 {
		params.Polyphony = 32
	}
	e := &Engine{
		sampleRate: float64(sampleRate),
		params:     params,
		voices:     make([]voice, params.Polyphony),
	}
	if params.LPFCutoff > 0 && params.LPFCutoff < float64(sampleRate)/2 {
		rc := 1.0 / (twoPi * params.LPFCutoff)
		dt := 1.0 / float64(sampleRate)
		e.lpfAlpha = dt / (rc + dt)
	}
	e.vibrato.Set(params.VibratoCent/100, params.VibratoHz, lfo.Triangle)
	return e
}

// NoteOn starts a voice at freq Hz and returns its id. velocity is 0..1.
// When every voice is busy the quietest one is stolen.
func (e *Engine) NoteOn(freq, velocity float64) int {
	slot := e.stealVoice()
	id := e.nextID
	e.nextID++
	e.voices[slot] = voice{
		active:   true,
		id:       id,
		freq:     freq,
		velocity: clamp(velocity, 0, 1),
		state:    envAttack,
	}
	return id
}

// NoteOff moves the voice into its release stage. Unknown ids are ignored.
func (e *Engine) NoteOff(id int) {
	for i := range e.voices {
		v := &e.voices[i]
		if v.active && v.id == id && v.state < envRelease {
			v.state = envRelease
			v.relStep = v.env / (e.params.ReleaseSec * e.sampleRate)
		}
	}
}

// RenderFrame produces one stereo frame.
func (e *Engine) RenderFrame() (float32, float32) {
	bend := 1.0
	if e.vibrato.Active() {
		bend = math.Pow(2, e.vibrato.Sample(e.sampleRate)/12)
	}
	var out float64
	for i := range e.voices {
		v := &e.voices[i]
		if !v.active {
			continue
		}
		e.advanceEnv(v)
		if v.state == envOff {
			v.active = false
			continue
		}
		m := math.Sin(v.mod) * e.params.ModIndex
		sig := math.Sin(v.carrier+m) * v.env
		out += sig * e.params.MasterGain * (0.2 + v.velocity*e.params.VelocityAmp)

		f := v.freq * bend
		v.carrier = math.Mod(v.carrier+twoPi*f/e.sampleRate, twoPi)
		v.mod = math.Mod(v.mod+twoPi*f*e.params.ModRatio/e.sampleRate, twoPi)
	}
	if e.lpfAlpha > 0 {
		e.lpf += e.lpfAlpha * (out - e.lpf)
		out = e.lpf
	}
	s := float32(clamp(out, -1, 1))
	return s, s
}

// ActiveVoiceCount returns the number of sounding voices, releases included.
func (e *Engine) ActiveVoiceCount() int {
	n := 0
	for i := range e.voices {
		if e.voices[i].active {
			n++
		}
	}
	return n
}

func (e *Engine) advanceEnv(v *voice) {
	p := e.params
	switch v.state {
	case envAttack:
		v.env += step(1, p.AttackSec, e.sampleRate)
		if v.env >= 1 {
			v.env = 1
			v.state = envDecay
		}
	case envDecay:
		v.env -= step(1-p.SustainLvl, p.DecaySec, e.sampleRate)
		if v.env <= p.SustainLvl {
			v.env = p.SustainLvl
			v.state = envSustain
		}
	case envRelease:
		if v.relStep <= 0 {
			v.relStep = 1
		}
		v.env -= v.relStep
		if v.env <= 0.0001 {
			v.env = 0
			v.state = envOff
		}
	}
}

func (e *Engine) stealVoice() int {
	quiet := 0
	for i := range e.voices {
		if !e.voices[i].active {
			return i
		}
		if e.voices[i].env < e.voices[quiet].env {
			quiet = i
		}
	}
	return quiet
}

// step is the per-sample increment covering span over sec seconds.
func step(span, sec, sampleRate float64) float64 {
	if sec <= 0 || sampleRate <= 0 {
		return 1
	}
	return span / (sec * sampleRate)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
