package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lucy/internal/evaluation"
	"lucy/internal/responder"
)

func newRouter() http.Handler {
	r := chi.NewRouter()
	New(evaluation.Scorer{}, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return r
}

func TestHandleEvaluate(t *testing.T) {
	router := newRouter()

	t.Run("scores the request", func(t *testing.T) {
		body := `{"query":"revenue","response":"revenue is up","agent":"business","sources":[],"confidence":0.9}`
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/evaluate", strings.NewReader(body)))

		require.Equal(t, http.StatusOK, rec.Code)
		var v responder.Verdict
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
		assert.InDelta(t, 0.75, v.QualityScore, 1e-9)
		assert.False(t, v.Passed)
		assert.NotEmpty(t, v.Issues)
	})

	t.Run("missing confidence defaults to one half", func(t *testing.T) {
		body := `{"query":"revenue","response":"revenue is up"}`
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/evaluate", strings.NewReader(body)))

		require.Equal(t, http.StatusOK, rec.Code)
		var v responder.Verdict
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
		assert.InDelta(t, 0.35, v.QualityScore, 1e-9)
	})

	t.Run("rejects invalid bodies", func(t *testing.T) {
		for _, body := range []string{`{`, `{"query":" "}`, `{"query":"q","confidence":2}`} {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/evaluate", strings.NewReader(body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		}
	})
}

func TestHandleHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"healthy"`)
}
