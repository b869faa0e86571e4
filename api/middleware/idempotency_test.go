package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/buildmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/buildmart-backend/pkg/errors"
	"github.com/angelmondragon/buildmart-backend/pkg/types"
)

type memoryStore struct {
	data map[string]string
	ttl  map[string]time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.data[key] = value.(string)
	m.ttl[key] = ttl
	return nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	return true, m.Set(context.Background(), key, value, ttl)
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "test:" + scope + ":" + id
}

var keyOwner = types.Actor{ID: uuid.MustParse("7d1f0a52-4c55-4f8e-9b1c-2a3e4d5f6a7b"), Type: enums.ActorBuyer}

func keyedRequest(method, path, key, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	return req.WithContext(WithActor(req.Context(), keyOwner))
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	return payload.Error.Code
}

func TestReplayWindowFor(t *testing.T) {
	cases := []struct {
		method string
		path   string
		want   time.Duration
		ok     bool
	}{
		{http.MethodPost, "/api/v1/orders", moneyReplayWindow, true},
		{http.MethodPost, "/api/v1/orders/", moneyReplayWindow, true},
		{http.MethodPost, "/api/v1/orders/0b7a/payments", moneyReplayWindow, true},
		{http.MethodPost, "/api/v1/admin/settlements/9f/corrections", moneyReplayWindow, true},
		{http.MethodPost, "/api/v1/admin/orders/0b7a/deductions", moneyReplayWindow, true},
		{http.MethodPost, "/api/v1/orders/0b7a/issues", replayWindow, true},
		{http.MethodPost, "/api/v1/disputes", replayWindow, true},
		{http.MethodPost, "/api/v1/orders/0b7a/accept", 0, false},
		{http.MethodPost, "/api/v1/orders//payments", 0, false},
		{http.MethodGet, "/api/v1/orders/0b7a", 0, false},
	}
	for _, tc := range cases {
		got, ok := replayWindowFor(tc.method, tc.path)
		assert.Equal(t, tc.ok, ok, "%s %s", tc.method, tc.path)
		assert.Equal(t, tc.want, got, "%s %s", tc.method, tc.path)
	}
}

func TestIdempotencyRequiresKeyOnGuardedRoutes(t *testing.T) {
	called := false
	handler := Idempotency(newMemoryStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, keyedRequest(http.MethodPost, "/api/v1/orders", "", `{}`))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.False(t, called)

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, keyedRequest(http.MethodPost, "/api/v1/orders/0b7a/accept", "", `{}`))
	assert.True(t, called, "unguarded routes pass straight through")
}

func TestIdempotencyReplaysRecordedResponse(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"payment_status":"paid"}}`))
	}))
	path := "/api/v1/orders/0b7a/payments"

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, keyedRequest(http.MethodPost, path, "pay-1", `{"amount":"100.00"}`))
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Empty(t, first.Header().Get(replayedHeader))

	replay := httptest.NewRecorder()
	handler.ServeHTTP(replay, keyedRequest(http.MethodPost, path, "pay-1", `{"amount":"100.00"}`))
	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "application/json", replay.Header().Get("Content-Type"))
	assert.Equal(t, "true", replay.Header().Get(replayedHeader))
	assert.JSONEq(t, first.Body.String(), replay.Body.String())
	assert.Equal(t, 1, calls)

	for key, ttl := range store.ttl {
		assert.Equal(t, moneyReplayWindow, ttl, key)
	}
}

func TestIdempotencyRejectsConcurrentDuplicate(t *testing.T) {
	store := newMemoryStore()
	var inner *httptest.ResponseRecorder
	var handler http.Handler
	handler = Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if inner == nil {
			inner = httptest.NewRecorder()
			handler.ServeHTTP(inner, keyedRequest(http.MethodPost, "/api/v1/disputes", "d-1", `{"reason":"damaged_items"}`))
		}
		w.WriteHeader(http.StatusCreated)
	}))

	outer := httptest.NewRecorder()
	handler.ServeHTTP(outer, keyedRequest(http.MethodPost, "/api/v1/disputes", "d-1", `{"reason":"damaged_items"}`))

	assert.Equal(t, http.StatusCreated, outer.Code)
	require.NotNil(t, inner)
	assert.Equal(t, http.StatusConflict, inner.Code)
	assert.Equal(t, string(pkgerrors.CodeConflict), errorCode(t, inner))
}

func TestIdempotencyReleasesKeyAfterServerError(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	for i := 0; i < 2; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), keyedRequest(http.MethodPost, "/api/v1/orders", "retry-me", `{}`))
	}
	assert.Equal(t, 2, calls)
	assert.Empty(t, store.data)
}

func TestIdempotencyRejectsKeyReuseWithDifferentRequest(t *testing.T) {
	handler := Idempotency(newMemoryStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), keyedRequest(http.MethodPost, "/api/v1/disputes", "k", `{"reason":"damaged_items"}`))

	for _, req := range []*http.Request{
		keyedRequest(http.MethodPost, "/api/v1/disputes", "k", `{"reason":"other"}`),
		keyedRequest(http.MethodPost, "/api/v1/orders", "k", `{"reason":"damaged_items"}`),
	} {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		assert.Equal(t, http.StatusConflict, resp.Code, req.URL.Path)
		assert.Equal(t, string(pkgerrors.CodeConflict), errorCode(t, resp))
	}
}
