package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/buildmart-backend/pkg/auth"
	"github.com/angelmondragon/buildmart-backend/pkg/config"
	"github.com/angelmondragon/buildmart-backend/pkg/db/models"
	"github.com/angelmondragon/buildmart-backend/pkg/enums"
	"github.com/angelmondragon/buildmart-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type fakeRedis struct {
	allow bool
	data  map[string]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{allow: true, data: map[string]string{}}
}

func (f *fakeRedis) Ping(context.Context) error { return nil }

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	value, ok := f.data[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = value.(string)
	return true, nil
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.data[key] = value.(string)
	return nil
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeRedis) IdempotencyKey(scope, id string) string {
	return "bm:idempotency:" + scope + ":" + id
}

func (f *fakeRedis) FixedWindowAllow(context.Context, string, int64, time.Duration) (bool, int64, error) {
	if f.allow {
		return true, 1, nil
	}
	return false, 999, nil
}

var _ RedisStore = (*fakeRedis)(nil)

type stubCatalog struct{}

func (stubCatalog) ListMaterials(context.Context, uuid.UUID) ([]models.Material, error) {
	return nil, nil
}

func (stubCatalog) ListLaborRates(context.Context, uuid.UUID) ([]models.LaborRate, error) {
	return nil, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{
			Secret:            "router-secret",
			Issuer:            "buildmart",
			ExpirationMinutes: 30,
		},
		RateLimit: config.RateLimitConfig{Window: time.Minute, Limit: 100},
	}
}

func newTestRouter(cfg *config.Config, store *fakeRedis) http.Handler {
	return NewRouter(cfg, logger.Nop(), Dependencies{
		DB:      stubPinger{},
		Redis:   store,
		Catalog: stubCatalog{},
	})
}

func bearer(t *testing.T, cfg *config.Config, actorType enums.ActorType) string {
	t.Helper()
	token, err := auth.MintAccessToken(cfg.JWT, time.Now(), auth.AccessTokenPayload{ActorID: uuid.New(), ActorType: actorType})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func TestHealthRoutes(t *testing.T) {
	router := newTestRouter(testConfig(), newFakeRedis())
	for _, path := range []string{"/health/live", "/health/ready"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
	}
}

func TestAPIRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig(), newFakeRedis())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+uuid.NewString(), nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestRoleGroups(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, newFakeRedis())

	cases := []struct {
		name   string
		method string
		path   string
		actor  enums.ActorType
	}{
		{"vendor on admin settlements", http.MethodGet, "/api/v1/admin/settlements", enums.ActorVendor},
		{"buyer on vendor orders", http.MethodGet, "/api/v1/vendor/orders", enums.ActorBuyer},
		{"buyer accepting an offer", http.MethodPost, "/api/v1/orders/" + uuid.NewString() + "/accept", enums.ActorBuyer},
		{"vendor resolving a dispute", http.MethodPost, "/api/v1/admin/disputes/" + uuid.NewString() + "/resolve", enums.ActorVendor},
		{"vendor rating an order", http.MethodPost, "/api/v1/orders/" + uuid.NewString() + "/rating", enums.ActorVendor},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			req.Header.Set("Authorization", bearer(t, cfg, tc.actor))
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)
			if resp.Code != http.StatusForbidden {
				t.Fatalf("expected 403 got %d", resp.Code)
			}
		})
	}
}

func TestOrderCreateRequiresIdempotencyKey(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, newFakeRedis())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{}`))
	req.Header.Set("Authorization", bearer(t, cfg, enums.ActorBuyer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "Idempotency-Key") {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestRateLimitAppliesToAuthenticatedRoutes(t *testing.T) {
	cfg := testConfig()
	store := newFakeRedis()
	store.allow = false
	router := newTestRouter(cfg, store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", bearer(t, cfg, enums.ActorBuyer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", resp.Code)
	}
}

func TestPublicCatalogNeedsNoJWT(t *testing.T) {
	router := newTestRouter(testConfig(), newFakeRedis())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/vendors/"+uuid.NewString()+"/catalog", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}
