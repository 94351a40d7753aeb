package panel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seagomezar/genmusic"
	"github.com/seagomezar/genmusic/internal/faults"
	"github.com/seagomezar/genmusic/internal/logging"
)

type fakeController struct {
	snap    genmusic.Snapshot
	runs    []genmusic.Params
	runErr  error
	playErr error
	genErr  error
	stops   int
}

func (f *fakeController) Run(_ context.Context, p genmusic.Params) error {
	f.runs = append(f.runs, p)
	if f.runErr != nil {
		return f.runErr
	}
	f.snap.Tempo, f.snap.Duration, f.snap.Scale = p.Tempo, p.Duration, p.Scale
	return nil
}

func (f *fakeController) Play() error {
	if f.playErr != nil {
		return f.playErr
	}
	f.snap.State, f.snap.Playing = "playing", true
	return nil
}

func (f *fakeController) Stop() {
	f.stops++
	f.snap.State, f.snap.Playing = "stopped", false
}

func (f *fakeController) Generate(context.Context) error {
	if f.genErr != nil {
		return f.genErr
	}
	f.snap.HasComposition = true
	return nil
}

func (f *fakeController) ChangeVisualization(mode string) error {
	if mode != "circles" && mode != "keyboard" {
		return faults.Configurationf("unknown visualization " + mode)
	}
	f.snap.Visualization = mode
	return nil
}

func (f *fakeController) Snapshot() genmusic.Snapshot { return f.snap }

type inline struct{ calls int }

func (e *inline) Do(_ context.Context, fn func()) error {
	e.calls++
	fn()
	return nil
}

type stuck struct{}

func (stuck) Do(context.Context, func()) error { return context.DeadlineExceeded }

func setupTestRouter(ctl Controller, exec Executor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return SetupRouter(NewHandler(ctl, exec, logging.Discard()))
}

func newController() *fakeController {
	return &fakeController{snap: genmusic.Snapshot{
		State:         "ready",
		Tempo:         100,
		Duration:      10,
		Scale:         "major",
		Visualization: "circles",
	}}
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthAndScales(t *testing.T) {
	router := setupTestRouter(newController(), &inline{})

	w := doJSON(t, router, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])

	w = doJSON(t, router, http.MethodGet, "/api/scales", nil)
	require.Equal(t, http.StatusOK, w.Code)
	scales, ok := decode(t, w)["scales"].([]any)
	require.True(t, ok)
	assert.Contains(t, scales, "major")
	assert.Contains(t, scales, "minor")
}

func TestStatusRunsOnExecutor(t *testing.T) {
	exec := &inline{}
	router := setupTestRouter(newController(), exec)

	w := doJSON(t, router, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ready", body["state"])
	assert.Equal(t, 100.0, body["speed"])
	assert.Equal(t, 1, exec.calls)
}

func TestRunFillsMissingFieldsFromSession(t *testing.T) {
	ctl := newController()
	router := setupTestRouter(ctl, &inline{})

	w := doJSON(t, router, http.MethodPost, "/api/run", map[string]any{"speed": 140})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, ctl.runs, 1)
	assert.Equal(t, genmusic.Params{Tempo: 140, Duration: 10, Scale: "major"}, ctl.runs[0])

	w = doJSON(t, router, http.MethodPost, "/api/run", map[string]any{"duration": 20, "scale": "minor"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, genmusic.Params{Tempo: 140, Duration: 20, Scale: "minor"}, ctl.runs[1])
	assert.Equal(t, "minor", decode(t, w)["scale"])
}

func TestRunRejectsMalformedBody(t *testing.T) {
	ctl := newController()
	router := setupTestRouter(ctl, &inline{})

	req, err := http.NewRequest(http.MethodPost, "/api/run", bytes.NewBufferString("{speed:"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, ctl.runs)
}

func TestErrorKindsMapToStatus(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(*fakeController)
		path   string
		body   any
		status int
		kind   string
	}{
		{
			name:   "unknown scale",
			setup:  func(f *fakeController) { f.runErr = faults.Configurationf("unknown scale \"lydian\"") },
			path:   "/api/run",
			body:   map[string]any{"scale": "lydian"},
			status: http.StatusUnprocessableEntity,
			kind:   string(faults.Configuration),
		},
		{
			name:   "audio not ready",
			setup:  func(f *fakeController) { f.playErr = faults.EngineDown(nil, "start transport") },
			path:   "/api/play",
			status: http.StatusServiceUnavailable,
			kind:   string(faults.EngineUnavailable),
		},
		{
			name:   "generate while playing",
			setup:  func(f *fakeController) { f.genErr = faults.Transition("generate while playing") },
			path:   "/api/generate",
			status: http.StatusConflict,
			kind:   string(faults.InvalidTransition),
		},
		{
			name:   "generator failure",
			setup:  func(f *fakeController) { f.genErr = errors.New("generator crashed") },
			path:   "/api/generate",
			status: http.StatusInternalServerError,
			kind:   "",
		},
		{
			name:   "unknown visualization",
			path:   "/api/visualization",
			body:   map[string]any{"visualizationMode": "bars"},
			status: http.StatusUnprocessableEntity,
			kind:   string(faults.Configuration),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctl := newController()
			if tt.setup != nil {
				tt.setup(ctl)
			}
			router := setupTestRouter(ctl, &inline{})

			body := tt.body
			if body == nil {
				body = map[string]any{}
			}
			w := doJSON(t, router, http.MethodPost, tt.path, body)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			out := decode(t, w)
			assert.Equal(t, tt.kind, out["kind"])
			assert.NotEmpty(t, out["error"])
			assert.NotNil(t, out["status"])
		})
	}
}

func TestPlayStopAndVisualization(t *testing.T) {
	ctl := newController()
	router := setupTestRouter(ctl, &inline{})

	w := doJSON(t, router, http.MethodPost, "/api/play", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["playing"])

	w = doJSON(t, router, http.MethodPost, "/api/stop", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["playing"])
	assert.Equal(t, 1, ctl.stops)

	w = doJSON(t, router, http.MethodPost, "/api/visualization", map[string]any{"visualizationMode": "keyboard"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "keyboard", decode(t, w)["visualization"])

	w = doJSON(t, router, http.MethodPost, "/api/visualization", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBusyLoopAnswersUnavailable(t *testing.T) {
	ctl := newController()
	router := setupTestRouter(ctl, stuck{})

	w := doJSON(t, router, http.MethodPost, "/api/stop", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Zero(t, ctl.stops)
}
