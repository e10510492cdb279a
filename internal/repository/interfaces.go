// 文件路径: internal/repository/interfaces.go
// 模块说明: 只读仓储接口，移动端门面不会写入本地库。
package repository

import "context"

// Store 暴露每个聚合根对应的仓储接口。
type Store interface {
	Users() UserRepository
	Subscriptions() SubscriptionRepository
	ServerSquads() ServerSquadRepository
	PromoGroups() PromoGroupRepository
	Tariffs() TariffRepository
	Ping(ctx context.Context) error
}

// UserRepository 定义用户查询。
type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*User, error)
	FindByTelegramID(ctx context.Context, telegramID int64) (*User, error)
}

// SubscriptionRepository 按用户查询订阅。
type SubscriptionRepository interface {
	FindByUserID(ctx context.Context, userID int64) (*Subscription, error)
}

// ServerSquadRepository lists squads visible to a promo group.
type ServerSquadRepository interface {
	// ListAvailable returns available squads. A nil promoGroupID disables the
	// promo-group filter; squads without promo-group links are visible to all.
	ListAvailable(ctx context.Context, promoGroupID *int64) ([]*ServerSquad, error)
}

// PromoGroupRepository 查询优惠组。
type PromoGroupRepository interface {
	FindByID(ctx context.Context, id int64) (*PromoGroup, error)
	FindDefault(ctx context.Context) (*PromoGroup, error)
}

// TariffRepository 查询套餐。
type TariffRepository interface {
	// ListForPromoGroup returns active tariffs ordered by sort order. Same
	// promo-group visibility rule as ServerSquadRepository.ListAvailable.
	ListForPromoGroup(ctx context.Context, promoGroupID *int64) ([]*Tariff, error)
}
