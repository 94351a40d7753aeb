package dispatch

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seagomezar/genmusic/internal/instrument"
	"github.com/seagomezar/genmusic/internal/scale"
	"github.com/seagomezar/genmusic/internal/sched"
	"github.com/seagomezar/genmusic/internal/timeline"
	"github.com/seagomezar/genmusic/internal/transport"
	"github.com/seagomezar/genmusic/internal/visual"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type ready struct{}

func (ready) Ready() error { return nil }

type trigger struct {
	sound string
	dur   time.Duration
	at    time.Time
}

type recorder struct {
	got       []trigger
	fail      map[string]error
	cancelled []time.Time
}

func (r *recorder) AttackRelease(sound string, d time.Duration, at time.Time) error {
	r.got = append(r.got, trigger{sound, d, at})
	return r.fail[sound]
}

// Cancel forgets the triggers that start after `after`.
func (r *recorder) Cancel(after time.Time) {
	r.cancelled = append(r.cancelled, after)
	kept := r.got[:0]
	for _, tr := range r.got {
		if !tr.at.After(after) {
			kept = append(kept, tr)
		}
	}
	r.got = kept
}

type element struct {
	q      *sched.Queue
	events []string
	modes  []visual.Mode
}

func (e *element) Highlight(m visual.Mode) {
	e.events = append(e.events, "on@"+e.q.Now().Sub(epoch).String())
	e.modes = append(e.modes, m)
}

func (e *element) Revert() { e.events = append(e.events, "off@"+e.q.Now().Sub(epoch).String()) }

type rig struct {
	q     *sched.Queue
	clock *transport.Clock
	inst  *recorder
	els   map[string]*element
	mode  visual.Mode
	d     *Dispatcher
}

func newRig(t *testing.T, sounds ...string) *rig {
	t.Helper()
	q := sched.NewQueue(epoch)
	r := &rig{
		q:     q,
		clock: transport.New(q, ready{}, transport.Options{InitialBPM: 60, Lookahead: 25 * time.Millisecond}),
		inst:  &recorder{fail: map[string]error{}},
		els:   map[string]*element{},
		mode:  visual.Circles,
	}
	surface := visual.Map{}
	for _, s := range sounds {
		el := &element{q: q}
		r.els[s] = el
		surface[s] = el
	}
	r.d = New(r.inst, surface, r.clock, func() visual.Mode { return r.mode })
	r.clock.OnHalt(r.d.Cancel)
	return r
}

func (r *rig) play(t *testing.T, evs ...timeline.Event) {
	t.Helper()
	r.clock.Load(evs, r.d.Fire)
	require.NoError(t, r.clock.Start())
}

func ev(measure int, beat float64, sound, notation string) timeline.Event {
	return timeline.Event{Timecode: timeline.Timecode{Measure: measure, Beat: beat}, Sound: sound, Notation: scale.Notation(notation)}
}

func TestFireTriggersInstrumentAndAlignedHighlight(t *testing.T) {
	r := newRig(t, "A4", "C#5")
	r.play(t, ev(0, 0, "A4", "4n"), ev(0, 1, "C#5", "4n"))
	r.q.AdvanceBy(5 * time.Second)

	require.Len(t, r.inst.got, 2)
	assert.Equal(t, trigger{"A4", time.Second, epoch}, r.inst.got[0])
	assert.Equal(t, trigger{"C#5", time.Second, epoch.Add(time.Second)}, r.inst.got[1])

	assert.Equal(t, []string{"on@0s", "off@500ms"}, r.els["A4"].events)
	assert.Equal(t, []string{"on@1s", "off@1.5s"}, r.els["C#5"].events, "highlight waits for the note's instant, not the early fire")
	assert.Equal(t, 2, r.d.Fired())
}

func TestLookupMissIsLoggedAndPlaybackContinues(t *testing.T) {
	r := newRig(t, "B4")
	r.play(t, ev(0, 0, "A4", "4n"), ev(0, 1, "B4", "4n"))
	r.q.AdvanceBy(5 * time.Second)

	assert.Equal(t, 1, r.d.Misses())
	assert.Len(t, r.inst.got, 2, "audio still plays for the unmapped element")
	assert.Equal(t, []string{"on@1s", "off@1.5s"}, r.els["B4"].events)
}

func TestInstrumentFailureIsIsolated(t *testing.T) {
	r := newRig(t, "A4", "B4")
	r.inst.fail["A4"] = errors.New("sampler not loaded")
	r.play(t, ev(0, 0, "A4", "4n"), ev(0, 1, "B4", "4n"))
	r.q.AdvanceBy(5 * time.Second)

	assert.Equal(t, 1, r.d.Errors())
	assert.Equal(t, []string{"on@0s", "off@500ms"}, r.els["A4"].events)
	assert.Len(t, r.els["B4"].events, 2)
}

func TestInstrumentPanicIsIsolated(t *testing.T) {
	q := sched.NewQueue(epoch)
	clock := transport.New(q, ready{}, transport.Options{InitialBPM: 60})
	el := &element{q: q}
	d := New(instrument.Func(func(string, time.Duration, time.Time) error { panic("boom") }),
		visual.Map{"A4": el}, clock, func() visual.Mode { return visual.Keyboard })
	clock.Load(timeline.Schedule{ev(0, 0, "A4", "4n")}, d.Fire)
	require.NoError(t, clock.Start())
	q.AdvanceBy(time.Second)

	assert.Equal(t, 1, d.Errors())
	assert.Equal(t, []visual.Mode{visual.Keyboard}, el.modes)
}

func TestModeIsCapturedAtFireTime(t *testing.T) {
	r := newRig(t, "A4", "B4")
	r.play(t, ev(0, 0, "A4", "4n"), ev(0, 1, "B4", "4n"))

	// The second event fires at 975ms; switch mode after the first fired
	// but before the second.
	r.q.AdvanceBy(100 * time.Millisecond)
	r.mode = visual.Keyboard
	r.q.AdvanceBy(5 * time.Second)

	assert.Equal(t, []visual.Mode{visual.Circles}, r.els["A4"].modes)
	assert.Equal(t, []visual.Mode{visual.Keyboard}, r.els["B4"].modes)
}

func TestStopCancelsPendingDrawsAndQueuedAudioButNotReverts(t *testing.T) {
	r := newRig(t, "A4", "B4")
	r.play(t, ev(0, 0, "A4", "4n"), ev(0, 1, "B4", "4n"))

	// B4 has fired (975ms) but neither its note nor its highlight at 1s has
	// started.
	r.q.AdvanceBy(980 * time.Millisecond)
	require.Len(t, r.inst.got, 2)
	r.clock.Stop()
	r.q.AdvanceBy(5 * time.Second)

	assert.Equal(t, []time.Time{epoch.Add(980 * time.Millisecond)}, r.inst.cancelled)
	require.Len(t, r.inst.got, 1, "B4 was withdrawn from the instrument")
	assert.Equal(t, "A4", r.inst.got[0].sound)
	assert.Equal(t, []string{"on@0s", "off@500ms"}, r.els["A4"].events)
	assert.Empty(t, r.els["B4"].events)
}

type brokenElement struct {
	onHighlight, onRevert bool
}

func (b brokenElement) Highlight(visual.Mode) {
	if b.onHighlight {
		panic("element detached")
	}
}

func (b brokenElement) Revert() {
	if b.onRevert {
		panic("element detached")
	}
}

func TestPanickingElementIsIsolated(t *testing.T) {
	q := sched.NewQueue(epoch)
	clock := transport.New(q, ready{}, transport.Options{InitialBPM: 60})
	inst := &recorder{}
	good := &element{q: q}
	surface := visual.Map{
		"A4": brokenElement{onHighlight: true},
		"B4": brokenElement{onRevert: true},
		"C5": good,
	}
	d := New(inst, surface, clock, func() visual.Mode { return visual.Circles })
	clock.Load(timeline.Schedule{ev(0, 0, "A4", "4n"), ev(0, 1, "B4", "4n"), ev(0, 2, "C5", "4n")}, d.Fire)
	require.NoError(t, clock.Start())

	require.NotPanics(t, func() { q.AdvanceBy(5 * time.Second) })
	assert.Equal(t, 2, d.Errors(), "one failed highlight and one failed revert")
	assert.Len(t, inst.got, 3)
	assert.Equal(t, []string{"on@2s", "off@2.5s"}, good.events)
}

func TestRevertSurvivesStop(t *testing.T) {
	r := newRig(t, "A4")
	r.play(t, ev(0, 0, "A4", "4n"))
	r.q.AdvanceBy(100 * time.Millisecond)
	r.clock.Stop()
	r.clock.Clear()
	r.q.AdvanceBy(time.Second)
	assert.Equal(t, []string{"on@0s", "off@500ms"}, r.els["A4"].events)
}

func TestRevertAfterOption(t *testing.T) {
	q := sched.NewQueue(epoch)
	clock := transport.New(q, ready{}, transport.Options{InitialBPM: 60})
	el := &element{q: q}
	d := New(&recorder{}, visual.Map{"A4": el}, clock, func() visual.Mode { return visual.Circles },
		WithRevertAfter(200*time.Millisecond), WithRevertAfter(-1))
	clock.Load(timeline.Schedule{ev(0, 0, "A4", "4n")}, d.Fire)
	require.NoError(t, clock.Start())
	q.AdvanceBy(time.Second)
	assert.Equal(t, []string{"on@0s", "off@200ms"}, el.events)
}
