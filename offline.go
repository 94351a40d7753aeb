package genmusic

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/seagomezar/genmusic/internal/composition"
	"github.com/seagomezar/genmusic/internal/instrument"
	"github.com/seagomezar/genmusic/internal/scale"
	"github.com/seagomezar/genmusic/internal/sched"
	"github.com/seagomezar/genmusic/internal/timeline"
	"github.com/seagomezar/genmusic/internal/transport"
)

// ReleaseTail is rendered after the last note so its release can finish.
const ReleaseTail = time.Second

type alwaysReady struct{}

func (alwaysReady) Ready() error { return nil }

// RenderSamples plays s through the transport on virtual time and renders
// the synth's output, interleaved stereo, through the end of the last note's
// release. The first note the synth refuses aborts the render.
func RenderSamples(s timeline.Schedule, bpm float64, sampleRate, beatsPerMeasure int) ([]float32, error) {
	origin := time.Unix(0, 0).UTC()
	q := sched.NewQueue(origin)
	synth := instrument.NewSynth(sampleRate)
	synth.Anchor(origin)

	clock := transport.New(q, alwaysReady{}, transport.Options{
		BeatsPerMeasure: beatsPerMeasure,
		InitialBPM:      bpm,
	})
	end := origin
	var failed error
	clock.Load(s, func(f transport.Fire) {
		if failed != nil {
			return
		}
		d := f.Event.Notation.Duration(f.BPM)
		if err := synth.AttackRelease(f.Event.Sound, d, f.At); err != nil {
			failed = err
			return
		}
		if e := f.At.Add(d); e.After(end) {
			end = e
		}
	})
	if err := clock.Start(); err != nil {
		return nil, err
	}
	for failed == nil && clock.Remaining() > 0 {
		next, ok := q.Next()
		if !ok {
			break
		}
		q.Advance(next)
	}
	clock.Stop()
	if failed != nil {
		return nil, failed
	}

	frames := int(end.Add(ReleaseTail).Sub(origin).Seconds() * float64(sampleRate))
	out := make([]float32, frames*2)
	synth.Process(out)
	return out, nil
}

// RenderComposition translates c under sc and renders it.
func RenderComposition(c composition.Composition, sc scale.Scale, bpm float64, sampleRate int) ([]float32, error) {
	s, err := timeline.Translate(c, sc)
	if err != nil {
		return nil, err
	}
	return RenderSamples(s, bpm, sampleRate, 4)
}

// EncodeWAVFloat32LE wraps interleaved float32 samples in a WAVE_FORMAT_IEEE_FLOAT file.
func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	const header = 44
	dataSize := len(samples) * 4
	out := make([]byte, header+dataSize)
	le := binary.LittleEndian

	copy(out[0:], "RIFF")
	le.PutUint32(out[4:], uint32(36+dataSize))
	copy(out[8:], "WAVEfmt ")
	le.PutUint32(out[16:], 16)
	le.PutUint16(out[20:], 3) // IEEE float
	le.PutUint16(out[22:], uint16(channels))
	le.PutUint32(out[24:], uint32(sampleRate))
	le.PutUint32(out[28:], uint32(sampleRate*channels*4))
	le.PutUint16(out[32:], uint16(channels*4))
	le.PutUint16(out[34:], 32)
	copy(out[36:], "data")
	le.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		le.PutUint32(out[header+i*4:], math.Float32bits(s))
	}
	return out
}
