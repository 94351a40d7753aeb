package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seagomezar/genmusic/internal/composition"
	"github.com/seagomezar/genmusic/internal/faults"
	"github.com/seagomezar/genmusic/internal/scale"
)

var identity = scale.FromMap("identity", map[string]string{
	"A4": "A4", "B4": "B4", "C#5": "C#5", "E5": "E5",
})

func TestTranslateTwoQuarterNotes(t *testing.T) {
	c := composition.New([]composition.Measure{{Notes: []composition.Note{
		{Sound: "A4", Duration: 1},
		{Sound: "C#5", Duration: 1},
	}}})

	got, err := Translate(c, identity)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "0:0", got[0].Timecode.String())
	assert.Equal(t, "A4", got[0].Sound)
	assert.Equal(t, scale.Notation("4n"), got[0].Notation)
	assert.Equal(t, "0:1", got[1].Timecode.String())
	assert.Equal(t, "C#5", got[1].Sound)
	assert.Equal(t, scale.Notation("4n"), got[1].Notation)
}

func TestTranslateEmpty(t *testing.T) {
	got, err := Translate(composition.New(nil), identity)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = Translate(composition.New([]composition.Measure{{}, {}}), identity)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTranslateOrderAndOffsetRoundTrip(t *testing.T) {
	gen := composition.NewRandomGenerator(11, scale.Degrees)
	major, err := scale.Lookup("major")
	require.NoError(t, err)

	for seed := 0; seed < 20; seed++ {
		c, err := gen.Generate(t.Context(), 30)
		require.NoError(t, err)
		sched, err := Translate(c, major)
		require.NoError(t, err)
		require.Len(t, sched, c.NoteCount())

		for i := 1; i < len(sched); i++ {
			assert.False(t, sched[i].Timecode.Before(sched[i-1].Timecode),
				"event %d (%s) precedes event %d (%s)", i, sched[i].Timecode, i-1, sched[i-1].Timecode)
			assert.GreaterOrEqual(t, sched[i].Timecode.Beats(4), sched[i-1].Timecode.Beats(4))
		}

		// Offsets reconstruct durations: each note lasts until the next
		// offset in its measure, the last one until the measure total.
		k := 0
		for mi, m := range c.Measures {
			for ni, n := range m.Notes {
				ev := sched[k]
				require.Equal(t, mi, ev.Timecode.Measure)
				end := m.Beats()
				if ni+1 < len(m.Notes) {
					end = sched[k+1].Timecode.Beat
				}
				assert.InDelta(t, n.Duration, end-ev.Timecode.Beat, 1e-9)
				assert.Equal(t, n.Duration, ev.Notation.Beats())
				k++
			}
		}
	}
}

func TestTranslateUnmappedSoundAborts(t *testing.T) {
	c := composition.New([]composition.Measure{{Notes: []composition.Note{
		{Sound: "A4", Duration: 1},
		{Sound: "G9", Duration: 1},
	}}})
	got, err := Translate(c, identity)
	assert.Nil(t, got)
	assert.True(t, faults.Is(err, faults.Configuration))
	assert.Contains(t, err.Error(), "measure 0 note 1")
}

func TestTranslateUnmappedDurationAborts(t *testing.T) {
	c := composition.New([]composition.Measure{{Notes: []composition.Note{{Sound: "A4", Duration: 1.1}}}})
	_, err := Translate(c, identity)
	assert.ErrorIs(t, err, faults.ErrConfiguration)
}

func TestParseTimecode(t *testing.T) {
	for _, s := range []string{"0:0", "3:1.5", "12:3.75"} {
		tc, err := ParseTimecode(s)
		require.NoError(t, err)
		assert.Equal(t, s, tc.String())
	}
	for _, bad := range []string{"", "1", "a:1", "1:x", "-1:0"} {
		_, err := ParseTimecode(bad)
		assert.Error(t, err, bad)
	}
	tc, _ := ParseTimecode("2:1.5")
	assert.Equal(t, 9.5, tc.Beats(4))
}
