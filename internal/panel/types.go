// 文件路径: internal/panel/types.go
// 模块说明: 面板（Remnawave 风格 API）返回的数据结构与错误定义。
package panel

import (
	"errors"
	"fmt"
	"time"
)

// StatusActive is the panel's marker for a live subscription.
const StatusActive = "ACTIVE"

// User mirrors the subset of a panel user record the facade needs.
type User struct {
	UUID              string
	ShortUUID         string
	Username          string
	Status            string
	UsedTrafficBytes  int64
	TrafficLimitBytes int64
	ExpireAt          *time.Time
	SubscriptionURL   string
	TelegramID        *int64
}

// IsActive reports whether the panel considers the user active.
func (u User) IsActive() bool {
	return u.Status == StatusActive
}

// Node is one node reachable through an internal squad.
type Node struct {
	UUID        string
	Name        string
	CountryCode string
}

var (
	// ErrNotConfigured 表示缺少面板地址或 API Key。
	ErrNotConfigured = errors.New("panel: not configured / 面板未配置")
	// ErrNotFound 表示面板上不存在对应资源。
	ErrNotFound = errors.New("panel: not found / 面板未找到资源")
	// ErrMalformedResponse 表示响应无法解析。
	ErrMalformedResponse = errors.New("panel: malformed response / 面板响应格式错误")
)

// StatusError is returned when the panel answers with a non-2xx status.
type StatusError struct {
	Op         string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("panel: %s returned HTTP %d", e.Op, e.StatusCode)
}

// Temporary reports whether retrying could help.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
