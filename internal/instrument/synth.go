package instrument

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/seagomezar/genmusic/internal/effects"
	"github.com/seagomezar/genmusic/internal/fm"
	"github.com/seagomezar/genmusic/internal/scale"
)

type noteEvent struct {
	frame int64
	on    bool
	freq  float64
	key   int64 // pairs an off with its on
}

// Synth is a polyphonic FM instrument and an audio.SampleSource. Notes are
// placed on the sample timeline by converting their wall-clock start against
// an anchor: the instant frame 0 was (or will be) heard.
type Synth struct {
	mu         sync.Mutex
	sampleRate int
	engine     *fm.Engine
	bus        *effects.Chain
	now        func() time.Time

	anchor   time.Time
	frame    int64
	events   []noteEvent // sorted by frame
	voices   map[int64]int
	nextKey  int64
	velocity float64
}

type SynthOption func(*Synth)

// WithParams replaces the FM patch.
func WithParams(p fm.Params) SynthOption {
	return func(s *Synth) { s.engine = fm.New(s.sampleRate, p) }
}

// WithClock replaces time.Now for anchoring.
func WithClock(now func() time.Time) SynthOption {
	return func(s *Synth) { s.now = now }
}

// WithDryBus removes the room and limiter from the output.
func WithDryBus() SynthOption {
	return func(s *Synth) { s.bus = effects.NewChain() }
}

func NewSynth(sampleRate int, opts ...SynthOption) *Synth {
	s := &Synth{
		sampleRate: sampleRate,
		engine:     fm.New(sampleRate, fm.DefaultParams()),
		bus: effects.NewChain(
			effects.NewRoom(sampleRate, 0.6, 0.72, 0.18),
			effects.NewLimiter(sampleRate, -6, 6, 2, 120),
		),
		now:      time.Now,
		voices:   make(map[int64]int),
		velocity: 0.8,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Anchor fixes the wall-clock instant of frame 0. Without it the synth
// anchors itself the first time it is used.
func (s *Synth) Anchor(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.anchor = t
}

func (s *Synth) AttackRelease(sound string, d time.Duration, at time.Time) error {
	freq, err := scale.Frequency(sound)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.anchorLocked()
	start := max(s.frameAt(at), s.frame)
	end := max(start+int64(d.Seconds()*float64(s.sampleRate)), start+1)
	s.nextKey++
	s.insert(noteEvent{frame: start, on: true, freq: freq, key: s.nextKey})
	s.insert(noteEvent{frame: end, key: s.nextKey})
	return nil
}

// Cancel drops the notes that start after `after` along with their ends.
// Voices already started are released normally.
func (s *Synth) Cancel(after time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.anchorLocked()
	limit := s.frameAt(after)
	dropped := make(map[int64]struct{})
	kept := s.events[:0]
	for _, ev := range s.events {
		if ev.on && ev.frame > limit {
			dropped[ev.key] = struct{}{}
			continue
		}
		if _, ok := dropped[ev.key]; ok && !ev.on {
			continue
		}
		kept = append(kept, ev)
	}
	clear(s.events[len(kept):])
	s.events = kept
}

// Process renders interleaved stereo into dst.
func (s *Synth) Process(dst []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.anchorLocked()
	for i := 0; i+1 < len(dst); i += 2 {
		s.dispatch()
		dst[i], dst[i+1] = s.engine.RenderFrame()
		s.frame++
	}
	s.bus.ProcessBuffer(dst)
}

// Pending returns the number of note starts and ends not yet reached.
func (s *Synth) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// Sounding returns the number of voices still audible, release tails included.
func (s *Synth) Sounding() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.ActiveVoiceCount()
}

func (s *Synth) anchorLocked() {
	if s.anchor.IsZero() {
		s.anchor = s.now()
	}
}

func (s *Synth) frameAt(t time.Time) int64 {
	return int64(math.Round(t.Sub(s.anchor).Seconds() * float64(s.sampleRate)))
}

func (s *Synth) insert(ev noteEvent) {
	i := sort.Search(len(s.events), func(i int) bool { return s.events[i].frame > ev.frame })
	s.events = append(s.events, noteEvent{})
	copy(s.events[i+1:], s.events[i:])
	s.events[i] = ev
}

func (s *Synth) dispatch() {
	n := 0
	for n < len(s.events) && s.events[n].frame <= s.frame {
		ev := s.events[n]
		if ev.on {
			s.voices[ev.key] = s.engine.NoteOn(ev.freq, s.velocity)
		} else if id, ok := s.voices[ev.key]; ok {
			s.engine.NoteOff(id)
			delete(s.voices, ev.key)
		}
		n++
	}
	if n > 0 {
		s.events = s.events[n:]
	}
}
