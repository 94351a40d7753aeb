package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	"net/http"
	"os"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/sirupsen/logrus"

	"github.com/seagomezar/genmusic"
	"github.com/seagomezar/genmusic/internal/audio"
	"github.com/seagomezar/genmusic/internal/config"
	"github.com/seagomezar/genmusic/internal/instrument"
	"github.com/seagomezar/genmusic/internal/logging"
	"github.com/seagomezar/genmusic/internal/panel"
	"github.com/seagomezar/genmusic/internal/scale"
	"github.com/seagomezar/genmusic/internal/visual"
)

const (
	windowW    = 1100
	windowH    = 520
	minWindowW = 640
	minWindowH = 360

	statusH = 72
	margin  = 24
)

var (
	bgColor     = color.RGBA{24, 24, 32, 255}
	statusColor = color.RGBA{40, 40, 56, 255}
)

// frameExec runs posted work at the start of the next frame, on the
// goroutine that owns the session.
type frameExec struct {
	posts chan func()
}

func (e *frameExec) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case e.posts <- func() { fn(); close(done) }:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type game struct {
	eng    *genmusic.Engine
	board  *visual.Board
	out    audio.Output
	exec   *frameExec
	events <-chan genmusic.Event
	log    *logrus.Entry
	ctx    context.Context

	status    string
	statusErr bool
	started   bool
	viewW     int
	viewH     int
}

func newGame(ctx context.Context, cfg config.Config, log *logrus.Entry) (*game, error) {
	sc, err := scale.Lookup(cfg.Scale)
	if err != nil {
		return nil, err
	}
	board := visual.NewBoard(sc.Pitches())
	synth := instrument.NewSynth(cfg.SampleRate)
	out, err := audio.Open(cfg.AudioBackend, cfg.SampleRate, synth)
	if err != nil {
		return nil, err
	}
	eng, err := genmusic.NewEngine(cfg, genmusic.Deps{
		Audio:      out,
		Instrument: synth,
		Surface:    board,
	}, time.Now(), genmusic.WithScaleListener(func(s scale.Scale) { board.Reset(s.Pitches()) }))
	if err != nil {
		_ = out.Close()
		return nil, err
	}
	return &game{
		eng:    eng,
		board:  board,
		out:    out,
		exec:   &frameExec{posts: make(chan func(), 16)},
		events: eng.Machine.Watch(),
		log:    log,
		ctx:    ctx,
		status: "Generating",
		viewW:  windowW,
		viewH:  windowH,
	}, nil
}

func (g *game) Update() error {
	if err := g.ctx.Err(); err != nil {
		return ebiten.Termination
	}
	g.eng.Loop.Queue().Advance(time.Now())
	if !g.started {
		g.started = true
		if err := g.eng.Machine.Start(g.ctx); err != nil {
			g.setError(err)
		}
	}
	g.drainPosts()
	g.pollEvents()
	g.handleKeys()
	return nil
}

func (g *game) drainPosts() {
	for {
		select {
		case fn := <-g.exec.posts:
			fn()
		default:
			return
		}
	}
}

func (g *game) pollEvents() {
	for {
		select {
		case ev := <-g.events:
			switch ev.Kind {
			case genmusic.EventFailed:
				g.setError(ev.Err)
			case genmusic.EventStateChanged:
				g.setStatus(ev.State.String())
			}
		default:
			return
		}
	}
}

func (g *game) handleKeys() {
	m := g.eng.Machine
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeySpace):
		if m.State() == genmusic.Playing {
			m.Stop()
			return
		}
		if err := m.Play(); err != nil {
			g.setError(err)
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyV):
		next := visual.Keyboard
		if m.Visualization() == visual.Keyboard {
			next = visual.Circles
		}
		if err := m.ChangeVisualization(string(next)); err != nil {
			g.setError(err)
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyG):
		if err := m.Generate(g.ctx); err != nil {
			g.setError(err)
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyS):
		g.run(func(p *genmusic.Params) { p.Scale = nextScale(p.Scale) })
	case inpututil.IsKeyJustPressed(ebiten.KeyUp):
		g.run(func(p *genmusic.Params) { p.Tempo += 10 })
	case inpututil.IsKeyJustPressed(ebiten.KeyDown):
		g.run(func(p *genmusic.Params) { p.Tempo = max(10, p.Tempo-10) })
	}
}

// run re-runs the session with the current parameters adjusted by edit.
func (g *game) run(edit func(*genmusic.Params)) {
	snap := g.eng.Machine.Snapshot()
	p := genmusic.Params{Tempo: snap.Tempo, Duration: snap.Duration, Scale: snap.Scale}
	edit(&p)
	if err := g.eng.Machine.Run(g.ctx, p); err != nil {
		g.setError(err)
		return
	}
	g.setStatus(fmt.Sprintf("%s at %.0f bpm, playing shortly", p.Scale, p.Tempo))
}

func nextScale(cur string) string {
	names := scale.Names()
	i := slices.Index(names, cur)
	return names[(i+1)%len(names)]
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(bgColor)
	boardRect := image.Rect(margin, margin, g.viewW-margin, g.viewH-statusH-margin)
	visual.DrawBoard(screen, boardRect, g.board, g.eng.Machine.Visualization())

	statusRect := image.Rect(0, g.viewH-statusH, g.viewW, g.viewH)
	ebitenutil.DrawRect(screen, float64(statusRect.Min.X), float64(statusRect.Min.Y),
		float64(statusRect.Dx()), float64(statusRect.Dy()), statusColor)

	snap := g.eng.Machine.Snapshot()
	line := fmt.Sprintf("%s  %s  %.0f bpm  %ds  %s", snap.State, snap.Scale, snap.Tempo, snap.Duration, snap.Visualization)
	if snap.CreatedAt != "" {
		line += "  created " + snap.CreatedAt
	}
	ebitenutil.DebugPrintAt(screen, line, margin, statusRect.Min.Y+10)
	msg := g.status
	if g.statusErr {
		msg = "error: " + msg
	}
	ebitenutil.DebugPrintAt(screen, msg, margin, statusRect.Min.Y+28)
	ebitenutil.DebugPrintAt(screen, "space play/stop  v visualization  g generate  s next scale  up/down tempo",
		margin, statusRect.Min.Y+46)
}

func (g *game) Layout(outsideW, outsideH int) (int, int) {
	g.viewW = max(outsideW, minWindowW)
	g.viewH = max(outsideH, minWindowH)
	return g.viewW, g.viewH
}

func (g *game) Close() {
	g.eng.Machine.Stop()
	_ = g.out.Close()
}

func (g *game) setError(err error) {
	g.log.WithError(err).Warn("request refused")
	g.status = err.Error()
	g.statusErr = true
}

func (g *game) setStatus(msg string) {
	g.status = msg
	g.statusErr = false
}

func main() {
	_ = config.LoadDotEnv(".env")
	cfg := config.Load()

	var (
		tempo    = flag.Float64("tempo", cfg.Tempo, "tempo in bpm")
		duration = flag.Int("duration", cfg.Duration, "composition length in seconds")
		scaleArg = flag.String("scale", cfg.Scale, "scale name")
		viz      = flag.String("viz", cfg.Visualization, "visualization: circles|keyboard")
		backend  = flag.String("audio", cfg.AudioBackend, "output: ebiten|oto|none")
		panelAt  = flag.String("panel", cfg.PanelAddr, "control panel listen address, empty disables it")
	)
	flag.Parse()
	cfg.Tempo, cfg.Duration, cfg.Scale, cfg.Visualization = *tempo, *duration, *scaleArg, *viz
	cfg.AudioBackend, cfg.PanelAddr = *backend, *panelAt

	logging.Setup(os.Stderr, cfg.LogLevel, cfg.LogJSON)
	log := logging.For("ui")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, err := newGame(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("start failed")
	}
	defer g.Close()

	if cfg.PanelAddr != "" {
		gin.SetMode(gin.ReleaseMode)
		srv := &http.Server{
			Addr:    cfg.PanelAddr,
			Handler: panel.SetupRouter(panel.NewHandler(g.eng.Machine, g.exec, logging.For("panel"))),
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("control panel stopped")
			}
		}()
		defer srv.Close()
	}

	ebiten.SetWindowSize(windowW, windowH)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSizeLimits(minWindowW, minWindowH, -1, -1)
	ebiten.SetWindowTitle("genmusic")
	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ebiten.Termination) {
		log.WithError(err).Error("window closed with error")
	}
}
