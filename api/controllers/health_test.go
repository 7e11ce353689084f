package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shipdesk/shipdesk-backend/pkg/config"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

func TestHealthLive(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	rec := httptest.NewRecorder()
	HealthLive(cfg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dev", rec.Header().Get("X-Shipdesk-Env"))
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}

	t.Run("all dependencies up", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h := HealthReady(cfg, map[string]Pinger{"db": stubPinger{}, "redis": stubPinger{}}, nil)
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Data struct {
				Status string            `json:"status"`
				Checks map[string]string `json:"checks"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "ready", body.Data.Status)
		assert.Equal(t, map[string]string{"db": "ok", "redis": "ok"}, body.Data.Checks)
	})

	t.Run("dependency down", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h := HealthReady(cfg, map[string]Pinger{"redis": stubPinger{err: errors.New("refused")}}, nil)
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
