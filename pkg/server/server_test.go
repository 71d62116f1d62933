package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chessgames/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func probe(t *testing.T, h http.Handler, path string) (int, Status) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var st Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	return rec.Code, st
}

func TestHealthIsAlwaysOK(t *testing.T) {
	code, st := probe(t, New(":0", logger.NewNop()).Handler(), "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", st.Status)
}

func TestReadinessFollowsModelLoading(t *testing.T) {
	s := New(":0", logger.NewNop())
	h := s.Handler()

	code, st := probe(t, h, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "loading", st.Status)

	s.MarkReady("9f2c61a0d4e3b7a5", "./data/model.json")
	code, st = probe(t, h, "/ready")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, Status{Status: "ready", SchemaVersion: "9f2c61a0d4e3b7a5", Model: "./data/model.json"}, st)

	s.MarkNotReady()
	code, _ = probe(t, h, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := httptest.NewRecorder()
	New(":0", logger.NewNop()).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "go_goroutines"))
}
