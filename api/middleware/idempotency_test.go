package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/shipdesk/shipdesk-backend/pkg/errors"
	pkgredis "github.com/shipdesk/shipdesk-backend/pkg/redis"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", pkgredis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

const bulkDispatchPath = "/api/v1/orders/bulk/dispatch"

func requestWithPattern(method, url, pattern string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, url, body)
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{pattern}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestRouteTTLSelection(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		pattern string
		want    time.Duration
		ok      bool
	}{
		{"single dispatch", http.MethodPost, "/api/v1/orders/{orderId}/dispatch", dispatchIdempotencyTTL, true},
		{"bulk dispatch", http.MethodPost, bulkDispatchPath, dispatchIdempotencyTTL, true},
		{"bulk delete", http.MethodPost, "/api/v1/orders/bulk/delete", defaultIdempotencyTTL, true},
		{"create order", http.MethodPost, "/api/v1/orders", defaultIdempotencyTTL, true},
		{"list orders", http.MethodGet, "/api/v1/orders", 0, false},
		{"status update", http.MethodPost, "/api/v1/orders/{orderId}/status", 0, false},
	}

	for _, tt := range tests {
		ttl, ok := routeTTL(tt.method, tt.pattern)
		assert.Equal(t, tt.ok, ok, tt.name)
		if ok {
			assert.Equal(t, tt.want, ttl, tt.name)
		}
	}
}

func TestIdempotencyPassesThroughWithoutHeader(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	calls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})

	for i := 0; i < 2; i++ {
		req := requestWithPattern(http.MethodPost, bulkDispatchPath, bulkDispatchPath, strings.NewReader(`{"order_ids":[]}`))
		resp := httptest.NewRecorder()
		mw(handler).ServeHTTP(resp, req)
		require.Equal(t, http.StatusOK, resp.Code)
	}
	assert.Equal(t, 2, calls)
	assert.Empty(t, store.data)
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	calls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	owner := uuid.New()
	send := func() *httptest.ResponseRecorder {
		req := requestWithPattern(http.MethodPost, bulkDispatchPath, bulkDispatchPath, strings.NewReader(`{"order_ids":["a"]}`))
		req = req.WithContext(WithOwnerID(req.Context(), owner))
		req.Header.Set("Idempotency-Key", "abc")
		resp := httptest.NewRecorder()
		mw(handler).ServeHTTP(resp, req)
		return resp
	}

	first := send()
	require.Equal(t, http.StatusAccepted, first.Code)

	replay := send()
	require.Equal(t, http.StatusAccepted, replay.Code)
	assert.Equal(t, "application/json", replay.Header().Get("Content-Type"))
	assert.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, `{"ok":true}`, replay.Body.String())
	assert.Equal(t, 1, calls)

	for key := range store.data {
		assert.Contains(t, key, owner.String())
	}
}

func TestIdempotencyScopesKeysPerOwner(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	calls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})

	for _, owner := range []uuid.UUID{uuid.New(), uuid.New()} {
		req := requestWithPattern(http.MethodPost, bulkDispatchPath, bulkDispatchPath, strings.NewReader(`{}`))
		req = req.WithContext(WithOwnerID(req.Context(), owner))
		req.Header.Set("Idempotency-Key", "same")
		mw(handler).ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, 2, calls)
	assert.Len(t, store.data, 2)
}

func TestIdempotencySkipsServerErrors(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	calls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	for i := 0; i < 2; i++ {
		req := requestWithPattern(http.MethodPost, bulkDispatchPath, bulkDispatchPath, strings.NewReader(`{}`))
		req.Header.Set("Idempotency-Key", "retry-me")
		mw(handler).ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, 2, calls)
	assert.Empty(t, store.data)
}

func TestIdempotencyDetectsBodyChange(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := requestWithPattern(http.MethodPost, bulkDispatchPath, bulkDispatchPath, strings.NewReader(`{"order_ids":["a"]}`))
	req.Header.Set("Idempotency-Key", "xyz")
	mw(handler).ServeHTTP(httptest.NewRecorder(), req)

	replay := requestWithPattern(http.MethodPost, bulkDispatchPath, bulkDispatchPath, strings.NewReader(`{"order_ids":["b"]}`))
	replay.Header.Set("Idempotency-Key", "xyz")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, replay)

	require.Equal(t, http.StatusConflict, resp.Code)
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	assert.Equal(t, string(pkgerrors.CodeIdempotency), payload.Error.Code)
}
