package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/xboard-mobile/internal/cache"
	"github.com/creamcroissant/xboard-mobile/internal/catalog"
	"github.com/creamcroissant/xboard-mobile/internal/config"
	"github.com/creamcroissant/xboard-mobile/internal/repository"
	"github.com/creamcroissant/xboard-mobile/internal/security"
	"github.com/creamcroissant/xboard-mobile/internal/service"
	"github.com/creamcroissant/xboard-mobile/internal/support/i18n"
)

type stubAuth struct{}

func (stubAuth) Verify(_ context.Context, raw string) (*repository.User, error) {
	if raw != "good" {
		return nil, service.ErrUnauthorized
	}
	return &repository.User{ID: 9, Username: "trinity", Language: "en"}, nil
}

type stubResolver struct{}

func (stubResolver) Resolve(_ context.Context, user *repository.User) (*service.Snapshot, error) {
	return &service.Snapshot{Username: user.DisplayName(), Status: service.StatusNoSubscription}, nil
}

func (stubResolver) ResolveRaw(context.Context, *repository.User) (*service.RawSubscription, error) {
	return nil, service.ErrNotFound
}

func (stubResolver) SubscriptionURL(context.Context, *repository.User) (string, error) {
	return "", service.ErrNotFound
}

func (stubResolver) RemoteLookup(context.Context, *repository.User) service.LookupResult {
	return service.LookupResult{Outcome: service.LookupNotConfigured}
}

type stubVPNConfig struct{}

func (stubVPNConfig) Get(context.Context, *repository.User) (*service.VPNConfig, error) {
	return nil, service.ErrNotFound
}

type stubCatalog struct {
	lastUser *repository.User
}

func (s *stubCatalog) List(_ context.Context, user *repository.User, _ string) (*catalog.Catalog, error) {
	s.lastUser = user
	return catalog.Empty(), nil
}

type stubTariffs struct{}

func (stubTariffs) List(context.Context, *repository.User) (*service.TariffList, error) {
	return &service.TariffList{Tariffs: []service.Tariff{}}, nil
}

func newTestRouter(t *testing.T, cat *stubCatalog, opts ...RouterOption) http.Handler {
	t.Helper()
	if cat == nil {
		cat = &stubCatalog{}
	}
	return NewRouter(nil, Services{
		Auth:      stubAuth{},
		Resolver:  stubResolver{},
		VPNConfig: stubVPNConfig{},
		Catalog:   cat,
		Tariffs:   stubTariffs{},
		I18n:      i18n.MustManager(),
	}, config.MetricsConfig{}, opts...)
}

func do(t *testing.T, h http.Handler, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	msg, _ := body["error"].(string)
	return msg
}

func TestRouter_OpsEndpoints(t *testing.T) {
	r := newTestRouter(t, nil, WithReadiness(func(context.Context) error { return errors.New("db locked") }))

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, r, http.MethodGet, "/_internal/ready", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/metrics", "").Code)

	ok := newTestRouter(t, nil, WithReadiness(func(context.Context) error { return nil }))
	assert.Equal(t, http.StatusOK, do(t, ok, http.MethodGet, "/_internal/ready", "").Code)
}

func TestRouter_AuthenticatedRoutes(t *testing.T) {
	r := newTestRouter(t, nil)

	rec := do(t, r, http.MethodGet, "/mobile/v1/profile", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Not authenticated", errorMessage(t, rec))
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	assert.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodGet, "/mobile/v1/vpn-config", "bad").Code)

	rec = do(t, r, http.MethodGet, "/mobile/v1/profile", "good")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"trinity"`)

	rec = do(t, r, http.MethodGet, "/mobile/v1/profile/subscription", "good")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, r, http.MethodGet, "/mobile/v1/vpn-config", "good")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_OptionalAuthRoutes(t *testing.T) {
	cat := &stubCatalog{}
	r := newTestRouter(t, cat)

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/mobile/v1/servers", "").Code)
	assert.Nil(t, cat.lastUser)

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/mobile/v1/servers", "bad").Code)
	assert.Nil(t, cat.lastUser)

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/mobile/v1/servers", "good").Code)
	require.NotNil(t, cat.lastUser)
	assert.EqualValues(t, 9, cat.lastUser.ID)

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/mobile/v1/tariffs", "").Code)
}

func TestRouter_DevAuthHiddenWhenDisabled(t *testing.T) {
	r := newTestRouter(t, nil)
	rec := do(t, r, http.MethodPost, "/mobile/v1/dev/auth", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", errorMessage(t, rec))

	rec = do(t, r, http.MethodGet, "/mobile/v1/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", errorMessage(t, rec))
}

func TestRouter_RateLimit(t *testing.T) {
	limiter, err := security.NewRateLimiter(cache.NewStore(cache.Options{}))
	require.NoError(t, err)
	r := newTestRouter(t, nil, WithRateLimit(config.RateLimitConfig{Enabled: true, Limit: 1, Window: time.Minute}, limiter))

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/mobile/v1/servers", "").Code)
	rec := do(t, r, http.MethodGet, "/mobile/v1/servers", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too many requests, please retry later", errorMessage(t, rec))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// ops paths are never limited
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/healthz", "").Code)
}

func TestNewRouter_PanicsWithoutServices(t *testing.T) {
	assert.Panics(t, func() {
		NewRouter(nil, Services{}, config.MetricsConfig{})
	})
}
