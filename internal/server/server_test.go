package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapview/internal/config"
	"mapview/internal/engine"
	"mapview/internal/faces"
	"mapview/internal/light"
	"mapview/internal/maps"
	"mapview/internal/render"
)

func newTestServer(t *testing.T) (*SSHServer, *prometheus.Registry) {
	t.Helper()
	promReg := prometheus.NewRegistry()
	s := NewSSHServer(config.Default(), faces.Builtin(8), maps.DefaultScene(), engine.NewMetrics(promReg), promReg)
	return s, promReg
}

func newTestSession(t *testing.T, s *SSHServer, out *bytes.Buffer) *session {
	t.Helper()
	id := uuid.New()
	s.register(id, "tester")
	t.Cleanup(func() { s.unregister(id) })
	ss, err := s.newSession(id, "tester", out, 40, 21)
	require.NoError(t, err)
	return ss
}

func TestParseInput(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []action
	}{
		{"wasd", "wasd", []action{actionUp, actionLeft, actionDown, actionRight}},
		{"arrows", "\x1b[A\x1b[B\x1b[C\x1b[D", []action{actionUp, actionDown, actionRight, actionLeft}},
		{"toggles", "ltr", []action{actionLighting, actionSmoothing, actionRedraw}},
		{"quit", "q", []action{actionQuit}},
		{"ctrl-c", "\x03", []action{actionQuit}},
		{"ignored", "xyz", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseInput([]byte(tt.in)))
		})
	}
}

func TestSession_JoinAndTick(t *testing.T) {
	s, _ := newTestServer(t)
	var out bytes.Buffer
	ss := newTestSession(t, s, &out)

	info, ok := s.Session(ss.id)
	require.True(t, ok)
	assert.Equal(t, 10, info.ViewWidth)
	assert.Equal(t, 10, info.ViewHeight)
	assert.Equal(t, s.scene.Spawn.X, info.X)

	require.NoError(t, ss.tick())
	assert.Contains(t, out.String(), string(render.HalfBlock))
}

func TestSession_Actions(t *testing.T) {
	s, _ := newTestServer(t)
	var out bytes.Buffer
	ss := newTestSession(t, s, &out)
	require.NoError(t, ss.tick())

	x := ss.feed.X
	assert.True(t, ss.handle(actionRight))
	assert.Equal(t, x+1, ss.feed.X)
	info, _ := s.Session(ss.id)
	assert.Equal(t, x+1, info.X)

	assert.True(t, ss.handle(actionLighting))
	require.NoError(t, ss.tick())
	assert.Equal(t, light.PerPixel.Next(), ss.eng.LightingMode())

	assert.True(t, ss.handle(actionSmoothing))
	assert.False(t, ss.eng.Smoothing())

	assert.False(t, ss.handle(actionQuit))
}

func TestSession_DroppedMoveRejoins(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.QueueSize = 1
	promReg := prometheus.NewRegistry()
	s := NewSSHServer(cfg, faces.Builtin(8), maps.DefaultScene(), engine.NewMetrics(promReg), promReg)
	var out bytes.Buffer
	ss := newTestSession(t, s, &out)

	// the join batch still fills the queue
	x := ss.feed.X
	require.True(t, ss.handle(actionRight))
	assert.Equal(t, x+1, ss.feed.X)
	assert.False(t, ss.feed.Joined())

	require.NoError(t, ss.tick())
	assert.False(t, ss.feed.Joined(), "queue was full at the start of the tick")
	require.NoError(t, ss.tick())
	require.True(t, ss.feed.Joined())

	for _, p := range [][2]int{{ss.feed.X, ss.feed.Y}, {ss.feed.X + 1, ss.feed.Y + 1}} {
		sx, sy := ss.feed.ToScreen(p[0], p[1])
		bx, by := ss.eng.Buffer().ToBufferCoords(sx, sy)
		c, err := ss.eng.Buffer().Cell(bx, by)
		require.NoError(t, err)
		assert.True(t, c.HasDarkness)
		assert.Equal(t, s.scene.DarknessAt(p[0], p[1]), c.Darkness, "tile %v", p)
	}
}

func TestSession_Resize(t *testing.T) {
	s, _ := newTestServer(t)
	var out bytes.Buffer
	ss := newTestSession(t, s, &out)
	ss.handle(actionDown)
	y := ss.feed.Y
	ss.handle(actionLighting)
	require.NoError(t, ss.tick())

	require.NoError(t, ss.resize(60, 21))
	assert.Equal(t, y, ss.feed.Y, "position survives a resize")
	w, h := ss.term.ViewSize()
	assert.Equal(t, 15, w)
	assert.Equal(t, 10, h)
	assert.Equal(t, light.PerPixel.Next(), ss.eng.LightingMode(), "lighting survives a resize")
	require.NoError(t, ss.tick())
}

func TestRoutes(t *testing.T) {
	s, promReg := newTestServer(t)
	var out bytes.Buffer
	ss := newTestSession(t, s, &out)
	h := SetupRoutes(s, promReg)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get("/api/sessions")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []SessionInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, ss.id, list[0].ID)

	assert.Equal(t, http.StatusOK, get("/api/sessions/"+ss.id.String()).Code)
	assert.Equal(t, http.StatusBadRequest, get("/api/sessions/nope").Code)
	assert.Equal(t, http.StatusNotFound, get("/api/sessions/"+uuid.NewString()).Code)
	assert.Equal(t, http.StatusOK, get("/api/health").Code)
	assert.Contains(t, get("/api/scene").Body.String(), `"name":"default"`)

	rec = get("/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mapview_sessions_active 1")
}
