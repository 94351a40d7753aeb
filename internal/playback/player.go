package playback

import (
	"github.com/sirupsen/logrus"

	"github.com/seagomezar/genmusic/internal/logging"
	"github.com/seagomezar/genmusic/internal/timeline"
	"github.com/seagomezar/genmusic/internal/transport"
)

// Clock is the part of transport.Clock the player drives.
type Clock interface {
	Load(s timeline.Schedule, onFire transport.FireFunc)
	Clear()
	SetTempo(bpm float64)
	Start() error
	Stop()
}

type Player struct {
	clock Clock
	fire  transport.FireFunc
	log   *logrus.Entry
}

// NewPlayer drives clock, handing every fired event to fire.
func NewPlayer(clock Clock, fire transport.FireFunc, log *logrus.Entry) *Player {
	if log == nil {
		log = logging.Discard()
	}
	return &Player{clock: clock, fire: fire, log: log}
}

// Play translates the session's composition and starts it from the top.
// It is all-or-nothing: a translation error touches nothing, and a clock
// that fails to start is cleared again, so no schedule is ever left loaded
// by a failed Play.
func (p *Player) Play(s *Session) error {
	sched, err := timeline.Translate(s.Composition, s.Scale)
	if err != nil {
		return err
	}
	p.clock.Stop()
	p.clock.Clear()
	p.clock.Load(sched, p.fire)
	p.clock.SetTempo(s.Tempo)
	if err := p.clock.Start(); err != nil {
		p.clock.Clear()
		s.Schedule = nil
		s.Playing = false
		return err
	}
	s.Schedule = sched
	s.Playing = true
	p.log.WithFields(logrus.Fields{
		"composition": s.Composition.ID,
		"events":      len(sched),
		"bpm":         s.Tempo,
		"scale":       s.Scale.Name,
	}).Info("playback started")
	return nil
}

// Stop halts and clears the clock. Stopping a stopped session is a no-op.
func (p *Player) Stop(s *Session) {
	p.clock.Stop()
	p.clock.Clear()
	s.Schedule = nil
	if s.Playing {
		s.Playing = false
		p.log.WithField("composition", s.Composition.ID).Info("playback stopped")
	}
}
