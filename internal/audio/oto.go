package audio

import (
	"sync"

	"github.com/hajimehoshi/oto/v2"

	"github.com/seagomezar/genmusic/internal/faults"
)

// Oto streams through a raw oto context, for runs without an ebiten window.
type Oto struct {
	ctx    *oto.Context
	ready  chan struct{}
	player oto.Player
	start  sync.Once
}

func NewOto(sampleRate int, source SampleSource) (*Oto, error) {
	ctx, ready, err := oto.NewContext(sampleRate, 2, oto.FormatFloat32LE)
	if err != nil {
		return nil, faults.EngineDown(err, "oto audio")
	}
	return &Oto{
		ctx:    ctx,
		ready:  ready,
		player: ctx.NewPlayer(NewStreamReader(source)),
	}, nil
}

func (o *Oto) Ready() error {
	select {
	case <-o.ready:
	default:
		return faults.EngineDown(nil, "oto audio context not ready")
	}
	o.start.Do(o.player.Play)
	return nil
}

func (o *Oto) Close() error {
	o.player.Pause()
	return o.player.Close()
}
