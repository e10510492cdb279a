// 文件路径: internal/service/upstream.go
package service

import (
	"context"
	"errors"
	"net"

	"github.com/creamcroissant/xboard-mobile/internal/panel"
	"github.com/creamcroissant/xboard-mobile/internal/subscription"
)

// upstreamFromFetch converts a fetcher failure into an UpstreamError.
func upstreamFromFetch(err error) *UpstreamError {
	var fetchErr *subscription.FetchError
	if errors.As(err, &fetchErr) {
		switch {
		case fetchErr.IsTimeout():
			return &UpstreamError{Kind: UpstreamTimeout, Err: err}
		case fetchErr.Kind == subscription.FailureHTTPStatus:
			return &UpstreamError{Kind: UpstreamBadStatus, StatusCode: fetchErr.StatusCode, Err: err}
		}
		return &UpstreamError{Kind: UpstreamUnavailable, Err: err}
	}
	return upstreamFromPanel(err)
}

// upstreamFromPanel converts a panel client failure into an UpstreamError.
func upstreamFromPanel(err error) *UpstreamError {
	var statusErr *panel.StatusError
	if errors.As(err, &statusErr) {
		return &UpstreamError{Kind: UpstreamBadStatus, StatusCode: statusErr.StatusCode, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &UpstreamError{Kind: UpstreamTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &UpstreamError{Kind: UpstreamTimeout, Err: err}
	}
	return &UpstreamError{Kind: UpstreamUnavailable, Err: err}
}
