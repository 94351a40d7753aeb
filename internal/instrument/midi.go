package instrument

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/seagomezar/genmusic/internal/faults"
	"github.com/seagomezar/genmusic/internal/logging"
	"github.com/seagomezar/genmusic/internal/scale"
	"github.com/seagomezar/genmusic/internal/sched"
)

// SendFunc delivers one MIDI message.
type SendFunc func(msg midi.Message) error

// MIDI plays notes on an external device. Note-on and note-off are placed
// on the loop's queue at their exact instants, so it must only be used from
// the loop.
type MIDI struct {
	send     SendFunc
	q        *sched.Queue
	channel  uint8
	velocity uint8
	log      *logrus.Entry
	held     map[uint8]int
	pending  map[sched.Token]queuedNote
	errs     int
}

// queuedNote is a note whose note-on has not been sent yet.
type queuedNote struct {
	at  time.Time
	off sched.Token
}

type MIDIOption func(*MIDI)

// WithMIDILogger reports failed sends to l.
func WithMIDILogger(l *logrus.Entry) MIDIOption {
	return func(m *MIDI) {
		if l != nil {
			m.log = l
		}
	}
}

func NewMIDI(send SendFunc, q *sched.Queue, channel uint8, opts ...MIDIOption) *MIDI {
	m := &MIDI{
		send:     send,
		q:        q,
		channel:  channel & 0x0f,
		velocity: 100,
		log:      logging.Discard(),
		held:     make(map[uint8]int),
		pending:  make(map[sched.Token]queuedNote),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MIDI) AttackRelease(sound string, d time.Duration, at time.Time) error {
	key, err := scale.MIDINote(sound)
	if err != nil {
		return err
	}
	var on sched.Token
	on = m.q.At(at, func(time.Time) {
		delete(m.pending, on)
		m.held[key]++
		m.deliver(midi.NoteOn(m.channel, key, m.velocity), sound)
	})
	off := m.q.At(at.Add(d), func(time.Time) {
		if m.held[key] > 0 {
			m.held[key]--
		}
		m.deliver(midi.NoteOff(m.channel, key), sound)
	})
	m.pending[on] = queuedNote{at: at, off: off}
	return nil
}

// Cancel drops the queued notes that start after `after`, note-off included.
func (m *MIDI) Cancel(after time.Time) {
	for on, n := range m.pending {
		if !n.at.After(after) {
			continue
		}
		m.q.Cancel(on)
		m.q.Cancel(n.off)
		delete(m.pending, on)
	}
}

// Silence sends note-off for every key still held.
func (m *MIDI) Silence() error {
	var first error
	for key := range m.held {
		if err := m.send(midi.NoteOff(m.channel, key)); err != nil && first == nil {
			first = err
		}
		delete(m.held, key)
	}
	return first
}

// Errors returns how many messages the device refused.
func (m *MIDI) Errors() int { return m.errs }

func (m *MIDI) deliver(msg midi.Message, sound string) {
	if err := m.send(msg); err != nil {
		m.errs++
		m.log.WithError(err).WithFields(logrus.Fields{
			"sound":   sound,
			"message": msg.String(),
		}).Warn("midi send failed")
	}
}

// Port is an open MIDI output.
type Port struct {
	Name string
	Send SendFunc
	out  drivers.Out
	drv  *rtmididrv.Driver
}

// OpenPort opens the first output whose name contains name, or the first
// output at all when name is empty.
func OpenPort(name string) (*Port, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, faults.EngineDown(err, "midi driver")
	}
	outs, err := drv.Outs()
	if err != nil {
		drv.Close()
		return nil, faults.EngineDown(err, "list midi outputs")
	}
	var found drivers.Out
	for _, out := range outs {
		if name == "" || strings.Contains(strings.ToLower(out.String()), strings.ToLower(name)) {
			found = out
			break
		}
	}
	if found == nil {
		drv.Close()
		return nil, faults.Configurationf(fmt.Sprintf("midi output %q not found", name))
	}
	send, err := midi.SendTo(found)
	if err != nil {
		drv.Close()
		return nil, faults.EngineDown(err, "open midi output "+found.String())
	}
	return &Port{Name: found.String(), Send: send, out: found, drv: drv}, nil
}

// Ready reports whether the port is still open.
func (p *Port) Ready() error {
	if !p.out.IsOpen() {
		return faults.EngineDown(nil, "midi output "+p.Name+" closed")
	}
	return nil
}

func (p *Port) Close() error {
	err := p.out.Close()
	p.drv.Close()
	return err
}
