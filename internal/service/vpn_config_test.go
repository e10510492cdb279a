package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/xboard-mobile/internal/repository"
	"github.com/creamcroissant/xboard-mobile/internal/subscription"
)

func newVPNConfigFixture(t *testing.T, content http.HandlerFunc) (VPNConfigService, string, *repository.User) {
	t.Helper()
	store, db := newTestStore(t)
	user := seedUser(t, store, db, int64Ptr(42), nil)

	srv := httptest.NewServer(content)
	t.Cleanup(srv.Close)
	sourceURL := srv.URL + "/sub/abc"
	client := newPanel(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"response":[{"status":"ACTIVE","subscriptionUrl":%q}]}`, sourceURL)
	})
	fetcher := subscription.NewFetcher(subscription.FetchOptions{ConnectTimeout: time.Second, Timeout: 2 * time.Second})
	resolver := NewSubscriptionResolver(store.Subscriptions(), client, nil, ResolverOptions{})
	svc := NewVPNConfigService(resolver, fetcher, client, "", nil)
	return svc, sourceURL, user
}

func TestVPNConfig_DecodesWrappedBase64(t *testing.T) {
	svc, sourceURL, user := newVPNConfigFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "v2rayN/6.0", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("dmxlc3M6Ly9leGFtcGxl\nIG5vdC1hLWxpbms="))
	})

	cfg, err := svc.Get(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Total)
	require.Len(t, cfg.ProxyLinks, 1)
	assert.Contains(t, cfg.ProxyLinks[0], "vless://example")
	assert.Equal(t, sourceURL, cfg.SubscriptionURL)
}

func TestVPNConfig_NoLinks(t *testing.T) {
	svc, _, user := newVPNConfigFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("hello world"))
	})
	_, err := svc.Get(context.Background(), user)
	require.ErrorIs(t, err, ErrDecodeFailure)
	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.Equal(t, 11, decodeErr.BodyLength)
}

func TestVPNConfig_EmptyBody(t *testing.T) {
	svc, _, user := newVPNConfigFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("  \n"))
	})
	_, err := svc.Get(context.Background(), user)
	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.Zero(t, decodeErr.BodyLength)
}

func TestVPNConfig_OversizedBodyIsNotDecoded(t *testing.T) {
	svc, _, user := newVPNConfigFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("dmxlc3M6Ly9h\n", (4<<20)/13+1)))
	})
	cfg, err := svc.Get(context.Background(), user)
	assert.Nil(t, cfg)
	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, UpstreamUnavailable, upstream.Kind)
}

func TestVPNConfig_UpstreamStatus(t *testing.T) {
	svc, _, user := newVPNConfigFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	_, err := svc.Get(context.Background(), user)
	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, UpstreamBadStatus, upstream.Kind)
	assert.Equal(t, http.StatusForbidden, upstream.StatusCode)
}

func TestVPNConfig_NoSubscriptionURL(t *testing.T) {
	store, db := newTestStore(t)
	user := seedUser(t, store, db, int64Ptr(42), nil)
	client := newPanel(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"response":[]}`))
	})
	resolver := NewSubscriptionResolver(store.Subscriptions(), client, nil, ResolverOptions{})
	svc := NewVPNConfigService(resolver, subscription.NewFetcher(subscription.FetchOptions{}), client, "", nil)

	_, err := svc.Get(context.Background(), user)
	assert.ErrorIs(t, err, ErrNotFound)
}
