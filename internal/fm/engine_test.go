package fm

import (
	"math"
	"testing"
)

func TestEngineGeneratesSignal(t *testing.T) {
	e := New(48000, DefaultParams())
	id := e.NoteOn(440, 0.8)

	var nonZero bool
	for i := 0; i < 5000; i++ {
		l, r := e.RenderFrame()
		if l != r {
			t.Fatalf("frame %d: expected centred output, l=%v r=%v", i, l, r)
		}
		if l != 0 {
			nonZero = true
		}
	}
	if !nonZero {
		t.Fatalf("expected non-zero output")
	}
	e.NoteOff(id)
}

func TestReleaseSilencesVoice(t *testing.T) {
	p := DefaultParams()
	p.ReleaseSec = 0.05
	e := New(48000, p)
	id := e.NoteOn(220, 1)
	for i := 0; i < 4800; i++ {
		e.RenderFrame()
	}
	e.NoteOff(id)
	// Release takes 50ms; give it 100ms.
	for i := 0; i < 4800; i++ {
		e.RenderFrame()
	}
	if n := e.ActiveVoiceCount(); n != 0 {
		t.Fatalf("active voices after release = %d, want 0", n)
	}
	l, _ := e.RenderFrame()
	if math.Abs(float64(l)) > 1e-3 {
		t.Fatalf("expected silence after release, got %v", l)
	}
}

func TestSustainHoldsUntilNoteOff(t *testing.T) {
	e := New(48000, DefaultParams())
	e.NoteOn(330, 1)
	for i := 0; i < 48000*2; i++ {
		e.RenderFrame()
	}
	if n := e.ActiveVoiceCount(); n != 1 {
		t.Fatalf("held note should keep sounding, active=%d", n)
	}
}

func TestVoiceStealingWhenPolyphonyExhausted(t *testing.T) {
	p := DefaultParams()
	p.Polyphony = 2
	e := New(48000, p)
	e.NoteOn(220, 1)
	e.NoteOn(330, 1)
	third := e.NoteOn(440, 1)
	if third != 2 {
		t.Fatalf("third id = %d, want 2", third)
	}
	if n := e.ActiveVoiceCount(); n != 2 {
		t.Fatalf("active voices = %d, want 2", n)
	}
}

func TestNoteOffUnknownIDIsIgnored(t *testing.T) {
	e := New(48000, DefaultParams())
	e.NoteOn(440, 1)
	e.NoteOff(99)
	e.RenderFrame()
	if n := e.ActiveVoiceCount(); n != 1 {
		t.Fatalf("active voices = %d, want 1", n)
	}
}

func TestOutputIsBounded(t *testing.T) {
	p := DefaultParams()
	p.MasterGain = 4
	e := New(48000, p)
	for i := 0; i < 16; i++ {
		e.NoteOn(110*float64(i+1), 1)
	}
	for i := 0; i < 10000; i++ {
		l, r := e.RenderFrame()
		if l > 1 || l < -1 || r > 1 || r < -1 {
			t.Fatalf("frame %d out of range: %v %v", i, l, r)
		}
	}
}
