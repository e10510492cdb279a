// 文件路径: internal/service/errors.go
// 模块说明: 服务层错误。handler 通过 errors.Is / errors.As 映射 HTTP 状态码。
package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates requested resource does not exist.
	ErrNotFound = errors.New("service: not found / 未找到资源")
	// ErrUnauthorized indicates missing or invalid auth tokens.
	ErrUnauthorized = errors.New("service: unauthorized / 未授权")
	// ErrMisconfigured indicates a collaborator is missing its connection settings.
	ErrMisconfigured = errors.New("service: misconfigured / 配置缺失")
	// ErrUpstreamTimeout indicates the remote side did not answer in time.
	ErrUpstreamTimeout = errors.New("service: upstream timeout / 上游超时")
	// ErrUpstreamUnavailable indicates the remote side could not be reached.
	ErrUpstreamUnavailable = errors.New("service: upstream unavailable / 上游不可用")
	// ErrUpstreamBadStatus indicates the remote side answered with a non-2xx status.
	ErrUpstreamBadStatus = errors.New("service: upstream bad status / 上游返回错误状态")
	// ErrDecodeFailure indicates no proxy links could be extracted from a body.
	ErrDecodeFailure = errors.New("service: decode failure / 无法解析订阅内容")
	// ErrDevModeDisabled indicates the development token endpoint is switched off.
	ErrDevModeDisabled = errors.New("service: dev mode disabled / 开发模式未开启")
	// ErrDevUserUnset indicates dev mode is on but no telegram id is configured.
	ErrDevUserUnset = errors.New("service: dev telegram id not set / 未配置开发用户")
)

// UpstreamKind classifies gateway failures.
type UpstreamKind string

const (
	UpstreamTimeout     UpstreamKind = "timeout"
	UpstreamUnavailable UpstreamKind = "unavailable"
	UpstreamBadStatus   UpstreamKind = "bad_status"
)

// UpstreamError reports a failed call to the panel or to a panel-issued URL.
type UpstreamError struct {
	Kind       UpstreamKind
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("service: upstream %s (HTTP %d)", e.Kind, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("service: upstream %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("service: upstream %s", e.Kind)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error kind.
func (e *UpstreamError) Is(target error) bool {
	switch target {
	case ErrUpstreamTimeout:
		return e.Kind == UpstreamTimeout
	case ErrUpstreamUnavailable:
		return e.Kind == UpstreamUnavailable
	case ErrUpstreamBadStatus:
		return e.Kind == UpstreamBadStatus
	}
	return false
}

// DecodeError carries the size of the body that produced no links.
type DecodeError struct {
	BodyLength int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("service: no proxy links in subscription body (length %d)", e.BodyLength)
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrDecodeFailure
}
