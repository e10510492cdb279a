package subscription

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch_ReturnsBodyAndForwardsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "v2rayN/6.0", r.Header.Get("User-Agent"))
		assert.Equal(t, "hwid-1", r.Header.Get("X-HWID"))
		_, _ = w.Write([]byte("dmxlc3M6Ly9h"))
	}))
	defer srv.Close()

	f := NewFetcher(FetchOptions{ConnectTimeout: time.Second, Timeout: 2 * time.Second})
	headers := http.Header{}
	headers.Set("User-Agent", "v2rayN/6.0")
	headers.Set("X-HWID", "hwid-1")

	body, err := f.Fetch(context.Background(), srv.URL, headers)
	require.NoError(t, err)
	assert.Equal(t, "dmxlc3M6Ly9h", string(body))
}

func TestFetch_StatusErrorCarriesCodeAndDoesNotRetry(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewFetcher(FetchOptions{Timeout: time.Second}).Fetch(context.Background(), srv.URL, nil)
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, FailureHTTPStatus, fe.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, fe.StatusCode)
	assert.EqualValues(t, 1, hits.Load())
}

func TestFetch_BlankBodyIsEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(" \n\t "))
	}))
	defer srv.Close()

	_, err := NewFetcher(FetchOptions{Timeout: time.Second}).Fetch(context.Background(), srv.URL, nil)
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, FailureEmptyBody, fe.Kind)
	assert.Equal(t, " \n\t ", string(fe.Body))
}

func TestFetch_OversizedBodyIsRejectedNotTruncated(t *testing.T) {
	payload := strings.Repeat("A", 100)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("chunked") == "1" {
			// no Content-Length, the cap is enforced while reading
			w.(http.Flusher).Flush()
		}
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	f := NewFetcher(FetchOptions{Timeout: time.Second, MaxBodyBytes: 40})
	for _, target := range []string{srv.URL, srv.URL + "?chunked=1"} {
		body, err := f.Fetch(context.Background(), target, nil)
		assert.Nil(t, body)
		var fe *FetchError
		require.True(t, errors.As(err, &fe), target)
		assert.Equal(t, FailureBodyTooLarge, fe.Kind)
		assert.EqualValues(t, 40, fe.Limit)
	}

	exact := NewFetcher(FetchOptions{Timeout: time.Second, MaxBodyBytes: 100})
	body, err := exact.Fetch(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, payload, string(body))
}

func TestFetch_SlowUpstreamIsReadTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := NewFetcher(FetchOptions{ConnectTimeout: 50 * time.Millisecond, Timeout: 150 * time.Millisecond}).
		Fetch(context.Background(), srv.URL, nil)
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, FailureReadTimeout, fe.Kind)
	assert.True(t, fe.IsTimeout())
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestFetch_InvalidURLIsTransport(t *testing.T) {
	_, err := NewFetcher(FetchOptions{}).Fetch(context.Background(), "://bad", nil)
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, FailureTransport, fe.Kind)
}

func TestNewFetcher_NormalizesBudget(t *testing.T) {
	f := NewFetcher(FetchOptions{ConnectTimeout: 10 * time.Second, Timeout: 4 * time.Second})
	opts := f.Options()
	assert.Equal(t, 4*time.Second, opts.Timeout)
	assert.Equal(t, 2*time.Second, opts.ConnectTimeout)
	assert.EqualValues(t, defaultMaxBodyBytes, opts.MaxBodyBytes)
}
