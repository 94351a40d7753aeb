package genmusic

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/seagomezar/genmusic/internal/composition"
	"github.com/seagomezar/genmusic/internal/scale"
	"github.com/seagomezar/genmusic/internal/timeline"
)

func TestRenderSamplesCoversScheduleAndTail(t *testing.T) {
	s := timeline.Schedule{
		{Timecode: timeline.Timecode{Measure: 0, Beat: 0}, Sound: "A4", Notation: "4n"},
		{Timecode: timeline.Timecode{Measure: 0, Beat: 1}, Sound: "C#5", Notation: "4n"},
	}
	out, err := RenderSamples(s, 120, 8000, 4)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	// Two half-second notes plus a one second tail.
	if want := 2 * 8000 * 2; len(out) != want {
		t.Fatalf("len = %d, want %d", len(out), want)
	}
	var peak float64
	for _, v := range out[:8000] {
		peak = math.Max(peak, math.Abs(float64(v)))
	}
	if peak < 0.01 {
		t.Fatalf("expected audible output, peak=%v", peak)
	}
	for i, v := range out {
		if v > 1 || v < -1 {
			t.Fatalf("sample %d out of range: %v", i, v)
		}
	}
}

func TestRenderEmptyScheduleIsSilentTail(t *testing.T) {
	out, err := RenderSamples(nil, 120, 8000, 4)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(out) != 8000*2 {
		t.Fatalf("len = %d, want one second", len(out))
	}
	for i, v := range out {
		if v != 0 {
			t.Fatalf("sample %d = %v, want silence", i, v)
		}
	}
}

func TestRenderSamplesReportsUnplayablePitch(t *testing.T) {
	s := timeline.Schedule{
		{Timecode: timeline.Timecode{Measure: 0, Beat: 0}, Sound: "A4", Notation: "4n"},
		{Timecode: timeline.Timecode{Measure: 0, Beat: 1}, Sound: "H9", Notation: "4n"},
	}
	out, err := RenderSamples(s, 120, 8000, 4)
	if err == nil {
		t.Fatalf("expected an error for an unknown pitch, got %d samples", len(out))
	}
	if out != nil {
		t.Fatalf("failed render returned samples")
	}
}

func TestRenderCompositionRejectsUnmappedSound(t *testing.T) {
	sc, err := scale.Lookup("major")
	if err != nil {
		t.Fatal(err)
	}
	bad := composition.New([]composition.Measure{{Notes: []composition.Note{{Sound: "12", Duration: 1}}}})
	if _, err := RenderComposition(bad, sc, 100, 8000); err == nil {
		t.Fatalf("expected configuration error")
	}
	out, err := RenderComposition(twoNotes(), sc, 100, 8000)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(out) == 0 {
		t.Fatalf("empty render")
	}
}

func TestEncodeWAVFloat32LEHeader(t *testing.T) {
	wav := EncodeWAVFloat32LE([]float32{0.5, -0.5, 1, 0}, 48000, 2)
	if len(wav) != 44+16 {
		t.Fatalf("len = %d", len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:16]) != "WAVEfmt " || string(wav[36:40]) != "data" {
		t.Fatalf("bad chunk ids: %q", wav[:40])
	}
	le := binary.LittleEndian
	if got := le.Uint16(wav[20:]); got != 3 {
		t.Fatalf("format = %d, want IEEE float", got)
	}
	if got := le.Uint32(wav[24:]); got != 48000 {
		t.Fatalf("sample rate = %d", got)
	}
	if got := le.Uint32(wav[28:]); got != 48000*2*4 {
		t.Fatalf("byte rate = %d", got)
	}
	if got := math.Float32frombits(le.Uint32(wav[48:])); got != -0.5 {
		t.Fatalf("second sample = %v", got)
	}
}
