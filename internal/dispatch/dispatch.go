// Package dispatch turns each transport fire into an instrument trigger and
// a visual highlight aligned to the same instant.
package dispatch

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/seagomezar/genmusic/internal/faults"
	"github.com/seagomezar/genmusic/internal/instrument"
	"github.com/seagomezar/genmusic/internal/logging"
	"github.com/seagomezar/genmusic/internal/sched"
	"github.com/seagomezar/genmusic/internal/transport"
	"github.com/seagomezar/genmusic/internal/visual"
)

// Drawer schedules visual work at an instant; the transport clock is one.
// Draws are cancelled when the transport stops; the queue is not.
type Drawer interface {
	Draw(at time.Time, fn sched.Task) sched.Token
	Queue() *sched.Queue
}

// DefaultRevert is how long a highlight lasts.
const DefaultRevert = 500 * time.Millisecond

type Dispatcher struct {
	inst    instrument.Instrument
	surface visual.Surface
	drawer  Drawer
	mode    func() visual.Mode
	revert  time.Duration
	log     *logrus.Entry

	fired  int
	misses int
	errs   int
}

type Option func(*Dispatcher)

func WithRevertAfter(d time.Duration) Option {
	return func(x *Dispatcher) {
		if d > 0 {
			x.revert = d
		}
	}
}

func WithLogger(l *logrus.Entry) Option {
	return func(x *Dispatcher) {
		if l != nil {
			x.log = l
		}
	}
}

// New wires a dispatcher. mode is read once per fire, so a mode change only
// affects notes fired after it.
func New(inst instrument.Instrument, surface visual.Surface, drawer Drawer, mode func() visual.Mode, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		inst:    inst,
		surface: surface,
		drawer:  drawer,
		mode:    mode,
		revert:  DefaultRevert,
		log:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Fire is a transport.FireFunc. It never blocks and never panics on a
// failing instrument or a missing element.
func (d *Dispatcher) Fire(f transport.Fire) {
	d.fired++
	ev := f.Event
	dur := ev.Notation.Duration(f.BPM)
	if err := d.trigger(ev.Sound, dur, f.At); err != nil {
		d.errs++
		d.log.WithError(err).WithFields(logrus.Fields{
			"sound":    ev.Sound,
			"timecode": ev.Timecode.String(),
		}).Error("instrument trigger failed")
	}

	mode := d.mode()
	d.drawer.Draw(f.At, func(time.Time) {
		d.guard("highlight", ev.Sound, func() { d.highlight(ev.Sound, mode, f.At) })
	})
}

// Cancel drops notes the instrument holds for after now. The clock calls it
// on stop and clear.
func (d *Dispatcher) Cancel(now time.Time) {
	c, ok := d.inst.(instrument.Canceller)
	if !ok {
		return
	}
	d.guard("cancel", "", func() { c.Cancel(now) })
}

func (d *Dispatcher) highlight(sound string, mode visual.Mode, at time.Time) {
	el, ok := d.surface.Lookup(sound)
	if !ok {
		d.misses++
		err := faults.LookupMiss(sound)
		d.log.WithFields(logrus.Fields{
			"sound": sound,
			"kind":  faults.Kind(err),
		}).Warn(err.Error())
		return
	}
	el.Highlight(mode)
	d.drawer.Queue().At(at.Add(d.revert), func(time.Time) {
		d.guard("revert", sound, el.Revert)
	})
}

func (d *Dispatcher) trigger(sound string, dur time.Duration, at time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = faults.Recovered("instrument", r)
		}
	}()
	return d.inst.AttackRelease(sound, dur, at)
}

// guard runs fn and turns a panic into a logged error, so one broken element
// or instrument cannot take down the loop.
func (d *Dispatcher) guard(what, sound string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.errs++
			d.log.WithError(faults.Recovered(what, r)).WithField("sound", sound).Error(what + " failed")
		}
	}()
	fn()
}

// Fired, Misses and Errors count dispatched events, visual lookup misses and
// failures (instrument triggers and panicking visual elements).
func (d *Dispatcher) Fired() int  { return d.fired }
func (d *Dispatcher) Misses() int { return d.misses }
func (d *Dispatcher) Errors() int { return d.errs }
