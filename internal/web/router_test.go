package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kirbo/swishsensei/internal/models"
	"github.com/kirbo/swishsensei/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func seededStore(t *testing.T, n int) *store.MemoryStore {
	t.Helper()
	st := store.NewMemoryStore()
	for i := 0; i < n; i++ {
		_, err := st.InsertShot(context.Background(), &models.Shot{Classification: models.Classification(i % 3), Scored: i%2 == 0})
		require.NoError(t, err)
	}
	return st
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	r := NewRouter(zaptest.NewLogger(t))
	rec := get(t, r, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestShots(t *testing.T) {
	r := NewRouter(zaptest.NewLogger(t), WithShots(seededStore(t, 25), 0, 0))

	var body struct {
		Shots []models.Shot `json:"shots"`
	}

	rec := get(t, r, "/shots")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Shots, store.DefaultLimit)
	assert.Equal(t, int64(25), body.Shots[0].ID)

	rec = get(t, r, "/shots?limit=3")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Shots, 3)

	assert.Equal(t, http.StatusBadRequest, get(t, r, "/shots?limit=x").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, r, "/shots?limit=-1").Code)
}

func TestShotsEmptyListIsArray(t *testing.T) {
	r := NewRouter(zaptest.NewLogger(t), WithShots(store.NewMemoryStore(), 0, 0))
	rec := get(t, r, "/shots")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"shots":[]}`, rec.Body.String())
}

func TestShotsRateLimited(t *testing.T) {
	r := NewRouter(zaptest.NewLogger(t), WithShots(store.NewMemoryStore(), 0.001, 1))
	assert.Equal(t, http.StatusOK, get(t, r, "/shots").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(t, r, "/shots").Code)
	assert.Equal(t, http.StatusOK, get(t, r, "/healthz").Code, "only /shots is limited")
}

func TestDevicesAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "probe_total", Help: "probe"})
	reg.MustRegister(counter)
	counter.Inc()

	r := NewRouter(zaptest.NewLogger(t),
		WithMetrics(reg),
		WithDevices(func() []models.Device {
			return []models.Device{{Kind: models.Foot, LastSeen: 10, Ping: 5, Samples: 2}}
		}),
	)

	rec := get(t, r, "/devices")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"devices":[{"kind":"foot","lastSeen":10,"ping":5,"samples":2}]}`, rec.Body.String())

	rec = get(t, r, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "probe_total 1")

	assert.Equal(t, http.StatusNotFound, get(t, r, "/shots").Code)
}

func TestCORSPreflight(t *testing.T) {
	r := NewRouter(zaptest.NewLogger(t))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/healthz", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
