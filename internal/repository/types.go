// 文件路径: internal/repository/types.go
// 模块说明: 本地库（用户、订阅、服务器 squad、优惠组、套餐）的数据模型。
package repository

import "time"

// Subscription status values stored in subscriptions.status.
const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusTrial    = "trial"
	SubscriptionStatusExpired  = "expired"
	SubscriptionStatusDisabled = "disabled"
)

// DefaultServerCategory is applied when a squad has no category.
const DefaultServerCategory = "general"

// User 表示机器人/面板侧的终端用户。
type User struct {
	ID int64
	// TelegramID is the external identity used for panel lookups; nil when the
	// account was never linked.
	TelegramID   *int64
	Username     string
	FirstName    string
	Language     string
	PromoGroupID *int64
	CreatedAt    int64
	UpdatedAt    int64
}

// DisplayName returns the username, or the first name when the username is empty.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return u.Username
	}
	return u.FirstName
}

// Subscription is the locally stored VPN entitlement of a user.
type Subscription struct {
	ID              int64
	UserID          int64
	Status          string
	TrafficUsedGB   float64
	TrafficLimitGB  int64
	DeviceLimit     int64
	EndDate         *time.Time
	SubscriptionURL string
	TariffID        *int64
	CreatedAt       int64
	UpdatedAt       int64
}

// ActualStatus 返回考虑到期时间后的状态：已过期的 active/trial 记为 expired。
func (s *Subscription) ActualStatus(now time.Time) string {
	if s == nil {
		return ""
	}
	if s.EndDate != nil && !s.EndDate.After(now) {
		switch s.Status {
		case SubscriptionStatusActive, SubscriptionStatusTrial, SubscriptionStatusExpired:
			return SubscriptionStatusExpired
		}
	}
	return s.Status
}

// IsActive reports whether the subscription grants access at now.
func (s *Subscription) IsActive(now time.Time) bool {
	if s == nil {
		return false
	}
	switch s.ActualStatus(now) {
	case SubscriptionStatusActive, SubscriptionStatusTrial:
		return true
	}
	return false
}

// ServerSquad 是本地定义的一组服务器容量，对应面板上的 internal squad。
type ServerSquad struct {
	ID           int64
	SquadUUID    string
	DisplayName  string
	OriginalName string
	CountryCode  string
	Category     string
	IsAvailable  bool
	MaxUsers     *int64
	CurrentUsers int64
	PriceKopeks  int64
	SortOrder    int64
	CreatedAt    int64
	UpdatedAt    int64
}

// IsFull reports whether the squad reached its configured capacity.
func (s *ServerSquad) IsFull() bool {
	if s == nil || s.MaxUsers == nil || *s.MaxUsers <= 0 {
		return false
	}
	return s.CurrentUsers >= *s.MaxUsers
}

// PromoGroup 表示优惠组，按订阅天数给出折扣百分比。
type PromoGroup struct {
	ID              int64
	Name            string
	IsDefault       bool
	PeriodDiscounts map[int]int
	CreatedAt       int64
	UpdatedAt       int64
}

// PeriodDiscountPercent returns the discount for exactly that period, clamped to [0,100].
func (g *PromoGroup) PeriodDiscountPercent(days int) int {
	if g == nil {
		return 0
	}
	pct := g.PeriodDiscounts[days]
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// Tariff 是可购买的套餐；PeriodPrices 的 key 为天数字符串，value 为戈比价格，负数表示禁用。
type Tariff struct {
	ID             int64
	Name           string
	Description    string
	TrafficLimitGB int64
	DeviceLimit    int64
	PeriodPrices   map[string]int64
	IsActive       bool
	SortOrder      int64
	CreatedAt      int64
	UpdatedAt      int64
}
