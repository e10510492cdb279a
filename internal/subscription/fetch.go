// 文件路径: internal/subscription/fetch.go
// 模块说明: 带连接超时与总超时的一次性 HTTP GET，不做任何重试。
package subscription

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// FailureKind classifies why a fetch failed.
type FailureKind string

const (
	FailureConnectTimeout FailureKind = "connect_timeout"
	FailureReadTimeout    FailureKind = "read_timeout"
	FailureHTTPStatus     FailureKind = "http_status"
	FailureEmptyBody      FailureKind = "empty_body"
	FailureBodyTooLarge   FailureKind = "body_too_large"
	FailureTransport      FailureKind = "transport"
)

// FetchError is returned by Fetcher.Fetch for every failure.
type FetchError struct {
	Kind       FailureKind
	StatusCode int
	// Body holds the whitespace-only payload for FailureEmptyBody.
	Body []byte
	// Limit is the cap that was exceeded for FailureBodyTooLarge.
	Limit int64
	Err   error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case FailureHTTPStatus:
		return fmt.Sprintf("subscription fetch: upstream returned HTTP %d", e.StatusCode)
	case FailureEmptyBody:
		return "subscription fetch: empty body"
	case FailureBodyTooLarge:
		return fmt.Sprintf("subscription fetch: body exceeds %d bytes", e.Limit)
	}
	if e.Err != nil {
		return fmt.Sprintf("subscription fetch: %s: %v", e.Kind, e.Err)
	}
	return "subscription fetch: " + string(e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsTimeout reports whether the failure was a connect or read timeout.
func (e *FetchError) IsTimeout() bool {
	return e.Kind == FailureConnectTimeout || e.Kind == FailureReadTimeout
}

// FetchOptions 定义一次抓取的时间预算。
type FetchOptions struct {
	ConnectTimeout time.Duration
	Timeout        time.Duration
	MaxBodyBytes   int64
}

const defaultMaxBodyBytes = 4 << 20

// Fetcher performs bounded GET requests against panel-issued URLs.
type Fetcher struct {
	opts FetchOptions
}

// NewFetcher 创建抓取器；未设置的超时使用保守默认值。
func NewFetcher(opts FetchOptions) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 6 * time.Second
	}
	if opts.ConnectTimeout <= 0 || opts.ConnectTimeout > opts.Timeout {
		opts.ConnectTimeout = opts.Timeout / 2
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &Fetcher{opts: opts}
}

// Options returns the effective budget.
func (f *Fetcher) Options() FetchOptions {
	return f.opts
}

// Fetch 执行 GET 并返回原始正文。
// 每次调用都新建 transport 并关闭 keep-alive，连接随调用释放。
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, headers http.Header) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	dialer := &net.Dialer{Timeout: f.opts.ConnectTimeout}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: f.opts.ConnectTimeout,
		DisableKeepAlives:   true,
	}
	defer transport.CloseIdleConnections()
	client := &http.Client{Transport: transport}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{Kind: FailureTransport, Err: err}
	}
	for key, values := range headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &FetchError{Kind: FailureHTTPStatus, StatusCode: resp.StatusCode}
	}

	if resp.ContentLength > f.opts.MaxBodyBytes {
		return nil, &FetchError{Kind: FailureBodyTooLarge, StatusCode: resp.StatusCode, Limit: f.opts.MaxBodyBytes}
	}
	// 多读一个字节用于判断是否超限，超限的正文不截断返回。
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodyBytes+1))
	if err != nil {
		if isTimeout(err) {
			return nil, &FetchError{Kind: FailureReadTimeout, Err: err}
		}
		return nil, &FetchError{Kind: FailureTransport, Err: err}
	}
	if int64(len(body)) > f.opts.MaxBodyBytes {
		return nil, &FetchError{Kind: FailureBodyTooLarge, StatusCode: resp.StatusCode, Limit: f.opts.MaxBodyBytes}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &FetchError{Kind: FailureEmptyBody, StatusCode: resp.StatusCode, Body: body}
	}
	return body, nil
}

func classifyTransportError(err error) error {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" && isTimeout(err) {
		return &FetchError{Kind: FailureConnectTimeout, Err: err}
	}
	if isTimeout(err) {
		return &FetchError{Kind: FailureReadTimeout, Err: err}
	}
	return &FetchError{Kind: FailureTransport, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
