package panel

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const usersPayload = `{"response":[{
	"uuid":"6f0a",
	"shortUuid":"abc",
	"username":"tg_42",
	"status":"ACTIVE",
	"trafficLimitBytes":107374182400,
	"userTraffic":{"usedTrafficBytes":5368709120},
	"expireAt":"2026-12-01T10:00:00.000Z",
	"subscriptionUrl":"https://sub.example/abc",
	"telegramId":42
}]}`

func newTestClient(t *testing.T, handler http.HandlerFunc, retry RetryConfig) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Options{
		BaseURL:   srv.URL + "/",
		APIKey:    "key",
		SecretKey: "guard:s3cret",
		Timeout:   time.Second,
		Retry:     retry,
	})
}

func TestFindUsersByTelegramID_ParsesRecord(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/by-telegram-id/42", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		cookie, err := r.Cookie("guard")
		require.NoError(t, err)
		assert.Equal(t, "s3cret", cookie.Value)
		_, _ = w.Write([]byte(usersPayload))
	}, RetryConfig{})

	users, err := c.FindUsersByTelegramID(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, users, 1)
	u := users[0]
	assert.True(t, u.IsActive())
	assert.EqualValues(t, 5368709120, u.UsedTrafficBytes)
	assert.EqualValues(t, 107374182400, u.TrafficLimitBytes)
	assert.Equal(t, "https://sub.example/abc", u.SubscriptionURL)
	require.NotNil(t, u.ExpireAt)
	assert.Equal(t, 2026, u.ExpireAt.Year())
	require.NotNil(t, u.TelegramID)
	assert.EqualValues(t, 42, *u.TelegramID)
}

func TestFindUsersByTelegramID_LegacyShapeAndNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/users/by-telegram-id/1" {
			_, _ = w.Write([]byte(`{"response":{"username":"old","status":"expired","usedTrafficBytes":10}}`))
			return
		}
		http.NotFound(w, r)
	}, RetryConfig{})

	users, err := c.FindUsersByTelegramID(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.EqualValues(t, 10, users[0].UsedTrafficBytes)
	assert.Equal(t, "EXPIRED", users[0].Status)
	assert.Nil(t, users[0].ExpireAt)

	users, err = c.FindUsersByTelegramID(context.Background(), 2)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestFindUsersByTelegramID_SharedLookupIgnoresOtherCallersDeadline(t *testing.T) {
	var hits atomic.Int32
	arrived := make(chan struct{}, 1)
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		arrived <- struct{}{}
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(usersPayload))
	}, RetryConfig{})

	short, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	shortErr := make(chan error, 1)
	go func() {
		_, err := c.FindUsersByTelegramID(short, 42)
		shortErr <- err
	}()
	<-arrived

	users, err := c.FindUsersByTelegramID(context.Background(), 42)
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.ErrorIs(t, <-shortErr, context.DeadlineExceeded)
	assert.EqualValues(t, 1, hits.Load())
}

func TestClient_RetriesServerErrorsUnlessDisabled(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"response":{"accessibleNodes":[]}}`))
	}, RetryConfig{Enabled: true, MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond})

	_, err := c.WithoutRetry().AccessibleNodes(context.Background(), "sq-1")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.EqualValues(t, 1, hits.Load())

	nodes, err := c.AccessibleNodes(context.Background(), "sq-1")
	require.NoError(t, err)
	assert.Empty(t, nodes)
	assert.EqualValues(t, 3, hits.Load())
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}, RetryConfig{Enabled: true, InitialInterval: time.Millisecond})

	err := c.Health(context.Background())
	require.Error(t, err)
	assert.EqualValues(t, 1, hits.Load())
}

func TestAccessibleNodes_FallsBackToProfileName(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/internal-squads/sq-1/accessible-nodes", r.URL.Path)
		_, _ = w.Write([]byte(`{"response":{"squadUuid":"sq-1","accessibleNodes":[
			{"uuid":"n1","nodeName":"Frankfurt 1","countryCode":"DE"},
			{"uuid":"n2","nodeName":"","configProfileName":"Reality","countryCode":"nl"}
		]}}`))
	}, RetryConfig{})

	nodes, err := c.AccessibleNodes(context.Background(), "sq-1")
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "Frankfurt 1", nodes[0].Name)
	assert.Equal(t, "Reality", nodes[1].Name)
	assert.Equal(t, "nl", nodes[1].CountryCode)
}

func TestClient_MalformedAndUnconfigured(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}, RetryConfig{})
	_, err := c.AccessibleNodes(context.Background(), "sq")
	assert.ErrorIs(t, err, ErrMalformedResponse)

	empty := New(Options{BaseURL: "https://panel.example"})
	assert.False(t, empty.Configured())
	_, err = empty.FindUsersByTelegramID(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestApplySecret_BareValue(t *testing.T) {
	c := New(Options{BaseURL: "http://x", APIKey: "k", SecretKey: "token"})
	h := http.Header{}
	c.ApplySecret(h)
	assert.Equal(t, "token=token", h.Get("Cookie"))
}
