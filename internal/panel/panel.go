// Package panel exposes the session controls over HTTP. Every request is
// executed on the engine loop, so handlers never touch session state from
// the server goroutines.
package panel

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/seagomezar/genmusic"
	"github.com/seagomezar/genmusic/internal/faults"
	"github.com/seagomezar/genmusic/internal/scale"
)

// Controller is the session surface the panel drives.
type Controller interface {
	Run(ctx context.Context, p genmusic.Params) error
	Play() error
	Stop()
	Generate(ctx context.Context) error
	ChangeVisualization(mode string) error
	Snapshot() genmusic.Snapshot
}

// Executor runs fn on the goroutine that owns the controller.
type Executor interface {
	Do(ctx context.Context, fn func()) error
}

// RunRequest carries the control panel form. Missing fields keep the
// session's current value.
type RunRequest struct {
	Speed    *float64 `json:"speed"`
	Duration *int     `json:"duration"`
	Scale    *string  `json:"scale"`
}

type VisualizationRequest struct {
	Mode string `json:"visualizationMode" binding:"required"`
}

type Handler struct {
	ctl     Controller
	exec    Executor
	log     *logrus.Entry
	timeout time.Duration
}

func NewHandler(ctl Controller, exec Executor, log *logrus.Entry) *Handler {
	return &Handler{ctl: ctl, exec: exec, log: log, timeout: 5 * time.Second}
}

// SetupRouter builds the panel routes on a fresh gin engine.
func SetupRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(h.requestLog())

	router.GET("/healthz", h.Health)

	api := router.Group("/api")
	{
		api.GET("/status", h.Status)
		api.GET("/scales", h.Scales)
		api.POST("/run", h.Run)
		api.POST("/play", h.Play)
		api.POST("/stop", h.Stop)
		api.POST("/generate", h.Generate)
		api.POST("/visualization", h.Visualization)
	}
	return router
}

func (h *Handler) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("panel request")
	}
}

// Health reports that the panel is serving.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Scales lists the scale names accepted by /api/run.
func (h *Handler) Scales(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"scales": scale.Names()})
}

func (h *Handler) Status(c *gin.Context) {
	var snap genmusic.Snapshot
	if !h.do(c, func() { snap = h.ctl.Snapshot() }) {
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) Run(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	var (
		snap genmusic.Snapshot
		err  error
	)
	ctx := c.Request.Context()
	if !h.do(c, func() {
		cur := h.ctl.Snapshot()
		p := genmusic.Params{Tempo: cur.Tempo, Duration: cur.Duration, Scale: cur.Scale}
		if req.Speed != nil {
			p.Tempo = *req.Speed
		}
		if req.Duration != nil {
			p.Duration = *req.Duration
		}
		if req.Scale != nil {
			p.Scale = *req.Scale
		}
		err = h.ctl.Run(ctx, p)
		snap = h.ctl.Snapshot()
	}) {
		return
	}
	h.respond(c, "run", err, snap)
}

func (h *Handler) Play(c *gin.Context) {
	var (
		snap genmusic.Snapshot
		err  error
	)
	if !h.do(c, func() {
		err = h.ctl.Play()
		snap = h.ctl.Snapshot()
	}) {
		return
	}
	h.respond(c, "play", err, snap)
}

func (h *Handler) Stop(c *gin.Context) {
	var snap genmusic.Snapshot
	if !h.do(c, func() {
		h.ctl.Stop()
		snap = h.ctl.Snapshot()
	}) {
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) Generate(c *gin.Context) {
	var (
		snap genmusic.Snapshot
		err  error
	)
	ctx := c.Request.Context()
	if !h.do(c, func() {
		err = h.ctl.Generate(ctx)
		snap = h.ctl.Snapshot()
	}) {
		return
	}
	h.respond(c, "generate", err, snap)
}

func (h *Handler) Visualization(c *gin.Context) {
	var req VisualizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	var (
		snap genmusic.Snapshot
		err  error
	)
	if !h.do(c, func() {
		err = h.ctl.ChangeVisualization(req.Mode)
		snap = h.ctl.Snapshot()
	}) {
		return
	}
	h.respond(c, "visualization", err, snap)
}

// do runs fn on the executor. On timeout it writes the error response and
// returns false.
func (h *Handler) do(c *gin.Context, fn func()) bool {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()
	if err := h.exec.Do(ctx, fn); err != nil {
		h.log.WithError(err).Warn("engine loop did not answer")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "engine busy"})
		return false
	}
	return true
}

func (h *Handler) respond(c *gin.Context, action string, err error, snap genmusic.Snapshot) {
	if err == nil {
		c.JSON(http.StatusOK, snap)
		return
	}
	status := StatusFor(err)
	h.log.WithError(err).WithFields(logrus.Fields{
		"action": action,
		"kind":   string(faults.Kind(err)),
	}).Warn("panel request refused")
	c.JSON(status, gin.H{
		"error":  err.Error(),
		"kind":   string(faults.Kind(err)),
		"status": snap,
	})
}

// StatusFor maps an engine error to the HTTP status the panel answers with.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, faults.ErrConfiguration):
		return http.StatusUnprocessableEntity
	case errors.Is(err, faults.ErrEngineUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, faults.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
