package genmusic

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/seagomezar/genmusic/internal/composition"
	"github.com/seagomezar/genmusic/internal/faults"
	"github.com/seagomezar/genmusic/internal/logging"
	"github.com/seagomezar/genmusic/internal/playback"
	"github.com/seagomezar/genmusic/internal/scale"
	"github.com/seagomezar/genmusic/internal/sched"
	"github.com/seagomezar/genmusic/internal/visual"
)

// State is the session lifecycle stage.
type State int

const (
	Idle State = iota
	Generating
	Ready
	Playing
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Generating:
		return "generating"
	case Ready:
		return "ready"
	case Playing:
		return "playing"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// CreatedAtLayout renders composition timestamps as DD-MMM-YY HH:mm:ss.
const CreatedAtLayout = "02-Jan-06 15:04:05"

const (
	DefaultWarmUp = 3 * time.Second
	DefaultSettle = 5 * time.Second
)

// EventKind tells Watch() subscribers what an Event reports.
type EventKind int

const (
	EventStateChanged EventKind = iota
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventStateChanged:
		return "state_changed"
	case EventFailed:
		return "failed"
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Event carries state changes and asynchronous failures from Watch().
type Event struct {
	Kind  EventKind
	State State
	Err   error
}

// Params is a run request from the control panel.
type Params struct {
	Tempo    float64 `json:"speed"`
	Duration int     `json:"duration"`
	Scale    string  `json:"scale"`
}

type MachineOption func(*machineConfig)

type machineConfig struct {
	tempo    float64
	duration int
	scale    scale.Scale
	mode     visual.Mode
	warmUp   time.Duration
	settle   time.Duration
	log      *logrus.Entry
	onScale  func(scale.Scale)
}

func defaultMachineConfig() machineConfig {
	sc, _ := scale.Lookup("major")
	return machineConfig{
		tempo:    100,
		duration: 10,
		scale:    sc,
		mode:     visual.Circles,
		warmUp:   DefaultWarmUp,
		settle:   DefaultSettle,
		log:      logging.Discard(),
	}
}

func WithTempo(bpm float64) MachineOption {
	return func(cfg *machineConfig) { cfg.tempo = bpm }
}

func WithDuration(seconds int) MachineOption {
	return func(cfg *machineConfig) { cfg.duration = seconds }
}

func WithScale(s scale.Scale) MachineOption {
	return func(cfg *machineConfig) { cfg.scale = s }
}

func WithVisualization(mode visual.Mode) MachineOption {
	return func(cfg *machineConfig) { cfg.mode = mode }
}

// WithWarmUp sets the delay between the first composition and auto-play.
func WithWarmUp(d time.Duration) MachineOption {
	return func(cfg *machineConfig) { cfg.warmUp = d }
}

// WithSettle sets the delay between a run request's regeneration and play.
func WithSettle(d time.Duration) MachineOption {
	return func(cfg *machineConfig) { cfg.settle = d }
}

func WithLogger(l *logrus.Entry) MachineOption {
	return func(cfg *machineConfig) { cfg.log = l }
}

// WithScaleListener is called on the loop whenever a run request changes
// the scale, before the next translation.
func WithScaleListener(fn func(scale.Scale)) MachineOption {
	return func(cfg *machineConfig) { cfg.onScale = fn }
}

// Machine is the session state machine. It is not safe for concurrent use:
// every method must run on the loop that owns q (see sched.Loop.Do).
type Machine struct {
	q       *sched.Queue
	gen     composition.Generator
	player  *playback.Player
	session playback.Session
	state   State

	warmUp  time.Duration
	settle  time.Duration
	delayed sched.Token // pending auto-play or settle play
	started bool
	log     *logrus.Entry
	onScale func(scale.Scale)

	eventCh chan Event
}

func NewMachine(q *sched.Queue, gen composition.Generator, player *playback.Player, opts ...MachineOption) *Machine {
	cfg := defaultMachineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.log == nil {
		cfg.log = logging.Discard()
	}
	return &Machine{
		q:      q,
		gen:    gen,
		player: player,
		session: playback.Session{
			Tempo:          cfg.tempo,
			TargetDuration: cfg.duration,
			Scale:          cfg.scale,
			Visualization:  cfg.mode,
		},
		warmUp:  cfg.warmUp,
		settle:  cfg.settle,
		log:     cfg.log,
		onScale: cfg.onScale,
	}
}

// Watch returns a channel receiving state changes and failures of delayed
// transitions. It is buffered; events are dropped rather than block the loop.
// Only the most recent Watch channel receives events; call it before Start.
func (m *Machine) Watch() <-chan Event {
	ch := make(chan Event, 16)
	m.eventCh = ch
	return ch
}

func (m *Machine) sendEvent(ev Event) {
	if m.eventCh == nil {
		return
	}
	select {
	case m.eventCh <- ev:
	default:
	}
}

func (m *Machine) setState(s State) {
	if m.state == s {
		return
	}
	m.log.WithFields(logrus.Fields{"from": m.state.String(), "to": s.String()}).Debug("state")
	m.state = s
	m.sendEvent(Event{Kind: EventStateChanged, State: s})
}

func (m *Machine) State() State { return m.state }

// Visualization is read by the dispatcher at every fire.
func (m *Machine) Visualization() visual.Mode { return m.session.Visualization }

// Scale returns the scale used by the next translation.
func (m *Machine) Scale() scale.Scale { return m.session.Scale }

// Start is the process-start transition: generate, then play once WarmUp has
// passed. Later calls only regenerate.
func (m *Machine) Start(ctx context.Context) error {
	if err := m.Generate(ctx); err != nil {
		return err
	}
	if m.started {
		return nil
	}
	m.started = true
	m.playAfter(m.warmUp, "warm-up")
	return nil
}

// Generate replaces the composition. It is refused while playing or while a
// generation is in progress; on failure the previous state is restored.
func (m *Machine) Generate(ctx context.Context) error {
	switch m.state {
	case Playing, Generating:
		return faults.Transition("generate while " + m.state.String())
	}
	prior := m.state
	m.setState(Generating)
	c, err := m.gen.Generate(ctx, m.session.TargetDuration)
	if err != nil {
		m.setState(prior)
		return err
	}
	m.session.SetComposition(c, m.q.Now())
	m.log.WithFields(logrus.Fields{
		"composition": c.ID,
		"measures":    len(c.Measures),
		"notes":       c.NoteCount(),
	}).Info("composition generated")
	m.setState(Ready)
	return nil
}

// Play starts the current composition. Playing while already playing is a
// no-op. EngineUnavailable and configuration errors leave the state as it was.
func (m *Machine) Play() error {
	switch m.state {
	case Playing:
		return nil
	case Ready, Stopped:
	default:
		return faults.Transition("play while " + m.state.String())
	}
	if !m.session.HasComposition {
		return faults.Transition("play without a composition")
	}
	m.cancelDelayed()
	if err := m.player.Play(&m.session); err != nil {
		m.log.WithError(err).WithField("kind", faults.Kind(err)).Error("play failed")
		return err
	}
	m.setState(Playing)
	return nil
}

// Stop halts playback and cancels any pending delayed play. It is safe in
// any state.
func (m *Machine) Stop() {
	m.cancelDelayed()
	if m.state != Playing {
		return
	}
	m.player.Stop(&m.session)
	m.setState(Stopped)
}

// Run applies new parameters: stop, switch scale, tempo and duration, drop
// the composition, regenerate, and play after the settle delay. Invalid
// parameters are rejected before anything changes. A newer Run or a Stop
// cancels the pending play.
func (m *Machine) Run(ctx context.Context, p Params) error {
	sc, err := scale.Lookup(p.Scale)
	if err != nil {
		return err
	}
	if p.Tempo <= 0 {
		return faults.Configurationf(fmt.Sprintf("tempo must be positive, got %v", p.Tempo))
	}
	if p.Duration < 0 {
		return faults.Configurationf(fmt.Sprintf("duration must not be negative, got %d", p.Duration))
	}
	if m.state == Generating {
		return faults.Transition("run while generating")
	}

	m.cancelDelayed()
	if m.state == Playing {
		m.player.Stop(&m.session)
		m.setState(Stopped)
	}
	m.session.Scale = sc
	if m.onScale != nil {
		m.onScale(sc)
	}
	m.session.Tempo = p.Tempo
	m.session.TargetDuration = p.Duration
	m.session.ClearComposition()
	m.log.WithFields(logrus.Fields{
		"bpm":      p.Tempo,
		"duration": p.Duration,
		"scale":    sc.Name,
	}).Info("run requested")

	if m.state == Idle || m.state == Ready {
		m.setState(Stopped)
	}
	if err := m.Generate(ctx); err != nil {
		return err
	}
	m.playAfter(m.settle, "settle")
	return nil
}

// ChangeVisualization switches the highlight mode for notes fired from now on.
func (m *Machine) ChangeVisualization(mode string) error {
	v, err := visual.ParseMode(mode)
	if err != nil {
		return err
	}
	m.session.Visualization = v
	return nil
}

// Pending reports whether a delayed play is scheduled.
func (m *Machine) Pending() bool {
	return m.delayed != 0 && m.q.Pending(m.delayed)
}

func (m *Machine) playAfter(d time.Duration, reason string) {
	m.cancelDelayed()
	var tok sched.Token
	tok = m.q.After(d, func(time.Time) {
		if m.delayed == tok {
			m.delayed = 0
		}
		if err := m.Play(); err != nil {
			m.log.WithError(err).WithField("after", reason).Warn("delayed play failed")
			m.sendEvent(Event{Kind: EventFailed, State: m.state, Err: err})
		}
	})
	m.delayed = tok
}

func (m *Machine) cancelDelayed() {
	if m.delayed != 0 {
		m.q.Cancel(m.delayed)
		m.delayed = 0
	}
}

// Snapshot is the rendered session state for presentation layers.
type Snapshot struct {
	State          string                   `json:"state"`
	HasComposition bool                     `json:"hasComposition"`
	Playing        bool                     `json:"playing"`
	CreatedAt      string                   `json:"createdAt,omitempty"`
	Tempo          float64                  `json:"speed"`
	Duration       int                      `json:"duration"`
	Scale          string                   `json:"scale"`
	Visualization  string                   `json:"visualization"`
	Events         int                      `json:"events"`
	PendingPlay    bool                     `json:"pendingPlay"`
	Composition    *composition.Composition `json:"composition,omitempty"`
}

func (m *Machine) Snapshot() Snapshot {
	s := Snapshot{
		State:          m.state.String(),
		HasComposition: m.session.HasComposition,
		Playing:        m.session.Playing,
		Tempo:          m.session.Tempo,
		Duration:       m.session.TargetDuration,
		Scale:          m.session.Scale.Name,
		Visualization:  string(m.session.Visualization),
		Events:         len(m.session.Schedule),
		PendingPlay:    m.Pending(),
	}
	if m.session.HasComposition {
		c := m.session.Composition
		s.Composition = &c
		s.CreatedAt = m.session.CreatedAt.Format(CreatedAtLayout)
	}
	return s
}
