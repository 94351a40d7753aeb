package audio

import (
	"fmt"
	"sync"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"

	"github.com/seagomezar/genmusic/internal/faults"
)

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

// ebiten allows one audio context per process.
func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

// Ebiten streams through ebiten's audio context. The player starts the first
// time Ready succeeds.
type Ebiten struct {
	ctx    *ebitaudio.Context
	player *ebitaudio.Player
	reader *StreamReader
	start  sync.Once
}

func NewEbiten(sampleRate int, source SampleSource) (*Ebiten, error) {
	ctx, err := sharedAudioContext(sampleRate)
	if err != nil {
		return nil, faults.EngineDown(err, "ebiten audio")
	}
	reader := NewStreamReader(source)
	pl, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, faults.EngineDown(err, "ebiten audio player")
	}
	return &Ebiten{ctx: ctx, player: pl, reader: reader}, nil
}

func (e *Ebiten) Ready() error {
	if !e.ctx.IsReady() {
		return faults.EngineDown(nil, "ebiten audio context not ready")
	}
	e.start.Do(e.player.Play)
	return nil
}

func (e *Ebiten) Close() error {
	e.player.Pause()
	if err := e.player.Close(); err != nil {
		return err
	}
	return e.reader.Close()
}
