package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/seagomezar/genmusic"
	"github.com/seagomezar/genmusic/internal/audio"
	"github.com/seagomezar/genmusic/internal/composition"
	"github.com/seagomezar/genmusic/internal/config"
	"github.com/seagomezar/genmusic/internal/instrument"
	"github.com/seagomezar/genmusic/internal/logging"
	"github.com/seagomezar/genmusic/internal/panel"
	"github.com/seagomezar/genmusic/internal/scale"
	"github.com/seagomezar/genmusic/internal/sched"
	"github.com/seagomezar/genmusic/internal/visual"
)

const backendMIDI = "midi"

func main() {
	_ = config.LoadDotEnv(".env")
	cfg := config.Load()

	var (
		tempo    = flag.Float64("tempo", cfg.Tempo, "tempo in bpm")
		duration = flag.Int("duration", cfg.Duration, "composition length in seconds")
		scaleArg = flag.String("scale", cfg.Scale, "scale: "+strings.Join(scale.Names(), "|"))
		viz      = flag.String("viz", cfg.Visualization, "visualization: circles|keyboard")
		backend  = flag.String("audio", cfg.AudioBackend, "output: ebiten|oto|midi|none")
		midiPort = flag.String("midi-port", cfg.MIDIPort, "MIDI output name (substring), empty picks the first")
		panelAt  = flag.String("panel", cfg.PanelAddr, "control panel listen address, empty disables it")
		seed     = flag.Int64("seed", cfg.Seed, "generator seed, 0 picks one from the clock")
		wavPath  = flag.String("wav", "", "render one composition to this WAV file and exit")
		logLevel = flag.String("log-level", cfg.LogLevel, "log level")
	)
	flag.Parse()

	cfg.Tempo, cfg.Duration, cfg.Scale, cfg.Visualization = *tempo, *duration, *scaleArg, *viz
	cfg.AudioBackend, cfg.MIDIPort, cfg.PanelAddr, cfg.Seed = *backend, *midiPort, *panelAt, *seed
	cfg.LogLevel = *logLevel
	logging.Setup(os.Stderr, cfg.LogLevel, cfg.LogJSON)
	log := logging.For("main")

	if *wavPath != "" {
		if err := renderWAV(cfg, *wavPath); err != nil {
			log.WithError(err).Fatal("render failed")
		}
		log.WithField("path", *wavPath).Info("composition rendered")
		return
	}

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("playback failed")
	}
}

func run(cfg config.Config, log *logrus.Entry) error {
	sc, err := scale.Lookup(cfg.Scale)
	if err != nil {
		return err
	}
	board := visual.NewBoard(sc.Pitches())

	deps := genmusic.Deps{Surface: board}
	var device *instrument.MIDI
	if strings.EqualFold(cfg.AudioBackend, backendMIDI) {
		port, err := instrument.OpenPort(cfg.MIDIPort)
		if err != nil {
			return err
		}
		defer port.Close()
		deps.Audio = port
		// MIDI notes are queued on the engine's loop.
		deps.NewInstrument = func(q *sched.Queue) instrument.Instrument {
			device = instrument.NewMIDI(port.Send, q, 0, instrument.WithMIDILogger(logging.For("midi")))
			return device
		}
		log.WithField("port", port.Name).Info("midi output open")
	} else {
		synth := instrument.NewSynth(cfg.SampleRate)
		out, err := audio.Open(cfg.AudioBackend, cfg.SampleRate, synth)
		if err != nil {
			return err
		}
		defer out.Close()
		deps.Audio, deps.Instrument = out, synth
	}

	eng, err := genmusic.NewEngine(cfg, deps, time.Now(),
		genmusic.WithScaleListener(func(s scale.Scale) { board.Reset(s.Pitches()) }))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events := eng.Machine.Watch()
	go watch(ctx, events, log)

	term := visual.NewTerminal(os.Stdout, board, eng.Machine.Visualization)
	go refresh(ctx, eng, term)

	if cfg.PanelAddr != "" {
		srv := servePanel(cfg.PanelAddr, eng, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	eng.Loop.Post(func() {
		if err := eng.Machine.Start(ctx); err != nil {
			log.WithError(err).Error("initial generation failed")
		}
	})

	err = eng.Loop.Run(ctx)

	// The loop has returned; this goroutine owns the session again.
	eng.Machine.Stop()
	if device != nil {
		_ = device.Silence()
	}
	fmt.Println()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func watch(ctx context.Context, events <-chan genmusic.Event, log *logrus.Entry) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			switch ev.Kind {
			case genmusic.EventStateChanged:
				log.WithField("state", ev.State.String()).Debug("session state")
			case genmusic.EventFailed:
				log.WithError(ev.Err).WithField("state", ev.State.String()).Warn("playback did not start")
			}
		}
	}
}

// refresh redraws the terminal on the loop, where the visualization mode
// may be read.
func refresh(ctx context.Context, eng *genmusic.Engine, term *visual.Terminal) {
	ticker := time.NewTicker(40 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = eng.Loop.Do(ctx, func() { term.Refresh() })
		}
	}
}

func servePanel(addr string, eng *genmusic.Engine, log *logrus.Entry) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	router := panel.SetupRouter(panel.NewHandler(eng.Machine, eng.Loop, logging.For("panel")))
	srv := &http.Server{Addr: addr, Handler: router}
	go func() {
		log.WithField("addr", addr).Info("control panel listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("control panel stopped")
		}
	}()
	return srv
}

func renderWAV(cfg config.Config, path string) error {
	sc, err := scale.Lookup(cfg.Scale)
	if err != nil {
		return err
	}
	gen := composition.NewRandomGenerator(cfg.Seed, scale.Degrees)
	c, err := gen.Generate(context.Background(), cfg.Duration)
	if err != nil {
		return err
	}
	samples, err := genmusic.RenderComposition(c, sc, cfg.Tempo, cfg.SampleRate)
	if err != nil {
		return err
	}
	return os.WriteFile(path, genmusic.EncodeWAVFloat32LE(samples, cfg.SampleRate, 2), 0o644)
}
