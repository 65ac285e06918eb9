package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/lingualverse/internal/audio"
	"github.com/satriahrh/lingualverse/internal/saga"
	"github.com/satriahrh/lingualverse/internal/status"
	"github.com/satriahrh/lingualverse/internal/websocket"
)

type fixedStatus status.Status

func (f fixedStatus) Current() status.Status { return status.Status(f) }

func setupRoutes(t *testing.T) (*echo.Echo, *audio.Library) {
	t.Helper()
	logger := zaptest.NewLogger(t)

	clips := audio.NewLibrary(4, logger)
	hub := websocket.NewHub(websocket.Dependencies{Sagas: saga.NewManager(logger)}, logger)

	e := echo.New()
	InitRoutes(e, hub, fixedStatus{Online: true, CheckedAt: time.Now()}, clips, logger)
	return e, clips
}

func get(e *echo.Echo, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	e, _ := setupRoutes(t)

	rec := get(e, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 0, body.Clients)
}

func TestStatus(t *testing.T) {
	e, _ := setupRoutes(t)

	rec := get(e, "/api/v1/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Gateway.Online)
	assert.Equal(t, "online", body.Label)
}

func TestLanguages(t *testing.T) {
	e, _ := setupRoutes(t)

	rec := get(e, "/api/v1/languages")
	require.Equal(t, http.StatusOK, rec.Code)

	var body LanguagesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "en", body.Default)
	require.Len(t, body.Languages, 13)
	assert.Equal(t, "Tamil", body.Languages[1].Name)
}

func TestAudio(t *testing.T) {
	e, clips := setupRoutes(t)

	id, err := clips.Put("audio/mpeg", []byte("mp3-bytes"))
	require.NoError(t, err)

	rec := get(e, "/audio/"+id)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "mp3-bytes", rec.Body.String())

	rec = get(e, "/audio/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "clip_not_found", body.Error)
}
