// Package genmusic plays generated compositions with synchronized audio and
// visual feedback. Engine wires the single-threaded loop, the transport
// clock, the audio-visual dispatcher and the session state machine.
package genmusic

import (
	"time"

	"github.com/seagomezar/genmusic/internal/composition"
	"github.com/seagomezar/genmusic/internal/config"
	"github.com/seagomezar/genmusic/internal/dispatch"
	"github.com/seagomezar/genmusic/internal/instrument"
	"github.com/seagomezar/genmusic/internal/logging"
	"github.com/seagomezar/genmusic/internal/playback"
	"github.com/seagomezar/genmusic/internal/scale"
	"github.com/seagomezar/genmusic/internal/sched"
	"github.com/seagomezar/genmusic/internal/transport"
	"github.com/seagomezar/genmusic/internal/visual"
)

// Deps are the collaborators the engine plays through. NewInstrument builds
// an instrument that schedules on the engine's own queue; it is used when
// Instrument is nil.
type Deps struct {
	Audio         transport.Engine
	Instrument    instrument.Instrument
	NewInstrument func(q *sched.Queue) instrument.Instrument
	Surface       visual.Surface
	Generator     composition.Generator
}

type Engine struct {
	Loop       *sched.Loop
	Clock      *transport.Clock
	Dispatcher *dispatch.Dispatcher
	Machine    *Machine
}

// NewEngine builds an engine whose queue starts at start. Extra machine
// options are applied after the ones derived from cfg.
func NewEngine(cfg config.Config, deps Deps, start time.Time, opts ...MachineOption) (*Engine, error) {
	sc, err := scale.Lookup(cfg.Scale)
	if err != nil {
		return nil, err
	}
	mode, err := visual.ParseMode(cfg.Visualization)
	if err != nil {
		return nil, err
	}
	if deps.Generator == nil {
		gen := composition.NewRandomGenerator(cfg.Seed, scale.Degrees)
		logging.For("session").WithField("seed", gen.Seed()).Debug("random composer seeded")
		deps.Generator = gen
	}

	q := sched.NewQueue(start)
	if deps.Instrument == nil && deps.NewInstrument != nil {
		deps.Instrument = deps.NewInstrument(q)
	}
	clock := transport.New(q, deps.Audio, transport.Options{
		BeatsPerMeasure: cfg.BeatsPerMeasure,
		Lookahead:       cfg.Lookahead,
		Ramp:            cfg.TempoRamp,
		InitialBPM:      cfg.Tempo,
		Log:             logging.For("transport"),
	})

	var m *Machine
	d := dispatch.New(deps.Instrument, deps.Surface, clock,
		func() visual.Mode { return m.Visualization() },
		dispatch.WithRevertAfter(cfg.RevertAfter),
		dispatch.WithLogger(logging.For("dispatch")),
	)
	clock.OnHalt(d.Cancel)
	player := playback.NewPlayer(clock, d.Fire, logging.For("playback"))

	base := []MachineOption{
		WithTempo(cfg.Tempo),
		WithDuration(cfg.Duration),
		WithScale(sc),
		WithVisualization(mode),
		WithWarmUp(cfg.WarmUp),
		WithSettle(cfg.Settle),
		WithLogger(logging.For("session")),
	}
	m = NewMachine(q, deps.Generator, player, append(base, opts...)...)

	return &Engine{
		Loop:       sched.NewLoop(q),
		Clock:      clock,
		Dispatcher: d,
		Machine:    m,
	}, nil
}
