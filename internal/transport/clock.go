// Package transport is the engine's scheduling primitive: it converts
// logical timecodes into wall-clock fire times under a (possibly ramping)
// tempo and invokes a callback once per event on the owning loop.
package transport

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/seagomezar/genmusic/internal/faults"
	"github.com/seagomezar/genmusic/internal/logging"
	"github.com/seagomezar/genmusic/internal/sched"
	"github.com/seagomezar/genmusic/internal/timeline"
)

// Engine is the platform audio subsystem the clock plays through.
type Engine interface {
	// Ready returns nil once audio output can start.
	Ready() error
}

// Fire is handed to the callback for each event. At is the exact instant the
// note belongs to; the callback runs Lookahead earlier so audio can be
// placed precisely.
type Fire struct {
	Event timeline.Event
	At    time.Time
	BPM   float64
}

// FireFunc must be short and non-blocking: it runs on the loop.
type FireFunc func(Fire)

type Options struct {
	BeatsPerMeasure int
	Lookahead       time.Duration
	Ramp            time.Duration
	InitialBPM      float64
	Log             *logrus.Entry
}

func (o Options) withDefaults() Options {
	if o.BeatsPerMeasure <= 0 {
		o.BeatsPerMeasure = 4
	}
	if o.Lookahead < 0 {
		o.Lookahead = 0
	}
	if o.Ramp < 0 {
		o.Ramp = 0
	}
	if o.InitialBPM <= 0 {
		o.InitialBPM = 120
	}
	if o.Log == nil {
		o.Log = logging.Discard()
	}
	return o
}

type Clock struct {
	q      *sched.Queue
	engine Engine
	opts   Options
	log    *logrus.Entry

	schedule timeline.Schedule
	onFire   FireFunc
	loaded   bool

	running bool
	next    int
	pending sched.Token
	curve   tempoCurve
	bpm     float64

	draws map[sched.Token]struct{}
	halts []func(now time.Time)

	loads  int
	clears int
}

// New creates a stopped clock on q.
func New(q *sched.Queue, engine Engine, opts Options) *Clock {
	opts = opts.withDefaults()
	return &Clock{
		q:      q,
		engine: engine,
		opts:   opts,
		log:    opts.Log,
		bpm:    opts.InitialBPM,
		curve:  steady(q.Now(), 0, opts.InitialBPM),
		draws:  make(map[sched.Token]struct{}),
	}
}

// Load installs s and its callback, replacing whatever was loaded. Callers
// are expected to Clear first; a load over a loaded schedule is logged and the
// old schedule is dropped so none of its events can fire.
func (c *Clock) Load(s timeline.Schedule, onFire FireFunc) {
	if c.loaded {
		c.log.WithField("events", len(c.schedule)).Warn("load without clear, dropping previous schedule")
		c.cancelPending()
		c.cancelDraws()
		c.halt()
	}
	c.schedule = s
	c.onFire = onFire
	c.loaded = true
	c.loads++
	if c.running {
		pos := c.curve.beatAt(c.q.Now())
		c.next = 0
		for c.next < len(s) && s[c.next].Timecode.Beats(c.opts.BeatsPerMeasure) < pos {
			c.next++
		}
		c.scheduleNext()
	}
}

// Clear drops the loaded schedule and cancels anything it still had pending.
func (c *Clock) Clear() {
	c.cancelPending()
	c.cancelDraws()
	c.halt()
	c.schedule = nil
	c.onFire = nil
	c.loaded = false
	c.next = 0
	c.clears++
}

// SetTempo moves to bpm. While running the change ramps over Options.Ramp;
// while stopped it applies at once.
func (c *Clock) SetTempo(bpm float64) {
	if bpm <= 0 {
		c.log.WithField("bpm", bpm).Warn("ignoring non-positive tempo")
		return
	}
	c.bpm = bpm
	if !c.running {
		c.curve = steady(c.q.Now(), 0, bpm)
		return
	}
	now := c.q.Now()
	c.curve = tempoCurve{
		t0:   now,
		b0:   c.curve.beatAt(now),
		from: c.curve.bpmAt(now),
		to:   bpm,
		ramp: c.opts.Ramp,
	}
	c.cancelPending()
	c.scheduleNext()
}

// Start begins playback from beat 0. It fails with an EngineUnavailable error
// when the audio engine is missing or not ready, leaving the clock stopped.
func (c *Clock) Start() error {
	if c.engine == nil {
		return faults.EngineDown(nil, "start transport: no audio engine")
	}
	if err := c.engine.Ready(); err != nil {
		return faults.EngineDown(err, "start transport")
	}
	if c.running {
		return nil
	}
	c.running = true
	c.next = 0
	c.curve = steady(c.q.Now(), 0, c.bpm)
	c.log.WithFields(logrus.Fields{"bpm": c.bpm, "events": len(c.schedule)}).Debug("transport started")
	c.scheduleNext()
	return nil
}

// Stop halts the clock and cancels the pending event, every pending draw and,
// through the OnHalt hooks, notes already handed to an instrument. Nothing
// scheduled before Stop returns fires afterwards.
func (c *Clock) Stop() {
	c.cancelPending()
	c.cancelDraws()
	c.halt()
	if c.running {
		c.log.WithField("position", c.Position()).Debug("transport stopped")
	}
	c.running = false
	c.next = 0
}

// Draw runs fn on the loop at `at`, unless the clock is stopped or cleared
// first. It is how visual updates line up with audio.
func (c *Clock) Draw(at time.Time, fn sched.Task) sched.Token {
	var tok sched.Token
	tok = c.q.At(at, func(now time.Time) {
		delete(c.draws, tok)
		fn(now)
	})
	c.draws[tok] = struct{}{}
	return tok
}

// OnHalt registers fn to run with the current instant whenever Stop or Clear
// cancels pending work.
func (c *Clock) OnHalt(fn func(now time.Time)) {
	c.halts = append(c.halts, fn)
}

// Queue exposes the loop's queue for work that must outlive a stop, such as
// visual auto-revert.
func (c *Clock) Queue() *sched.Queue { return c.q }

func (c *Clock) Running() bool { return c.running }
func (c *Clock) Loaded() bool  { return c.loaded }
func (c *Clock) Loads() int    { return c.loads }
func (c *Clock) Clears() int   { return c.clears }

// Remaining returns how many loaded events have not fired yet.
func (c *Clock) Remaining() int {
	if !c.running {
		return len(c.schedule)
	}
	return len(c.schedule) - c.next
}

// BPM returns the tempo in effect now.
func (c *Clock) BPM() float64 {
	if !c.running {
		return c.bpm
	}
	return c.curve.bpmAt(c.q.Now())
}

// Position returns the current beat, or 0 when stopped.
func (c *Clock) Position() float64 {
	if !c.running {
		return 0
	}
	return c.curve.beatAt(c.q.Now())
}

func (c *Clock) scheduleNext() {
	if !c.running || c.next >= len(c.schedule) {
		return
	}
	at := c.curve.timeAt(c.schedule[c.next].Timecode.Beats(c.opts.BeatsPerMeasure))
	due := at.Add(-c.opts.Lookahead)
	if due.Before(c.q.Now()) {
		due = c.q.Now()
	}
	c.pending = c.q.At(due, c.fire)
}

func (c *Clock) fire(time.Time) {
	c.pending = 0
	if !c.running || c.next >= len(c.schedule) {
		return
	}
	ev := c.schedule[c.next]
	c.next++
	at := c.curve.timeAt(ev.Timecode.Beats(c.opts.BeatsPerMeasure))
	if c.onFire != nil {
		c.invoke(Fire{Event: ev, At: at, BPM: c.curve.bpmAt(at)})
	}
	if c.pending == 0 {
		c.scheduleNext()
	}
}

func (c *Clock) invoke(f Fire) {
	defer func() {
		if r := recover(); r != nil {
			c.log.WithError(faults.Recovered("fire callback", r)).WithFields(logrus.Fields{
				"timecode": f.Event.Timecode.String(),
				"sound":    f.Event.Sound,
			}).Error("fire callback failed")
		}
	}()
	c.onFire(f)
}

func (c *Clock) halt() {
	now := c.q.Now()
	for _, fn := range c.halts {
		fn(now)
	}
}

func (c *Clock) cancelPending() {
	if c.pending != 0 {
		c.q.Cancel(c.pending)
		c.pending = 0
	}
}

func (c *Clock) cancelDraws() {
	for tok := range c.draws {
		c.q.Cancel(tok)
		delete(c.draws, tok)
	}
}
