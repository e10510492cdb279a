// 文件路径: internal/repository/sqlite/store.go
// 模块说明: SQLite 仓储集合，serve 启动时构建一次，供各服务共享。
package sqlite

import (
	"context"
	"database/sql"

	"github.com/creamcroissant/xboard-mobile/internal/repository"
)

// Store wires SQLite-backed repository implementations.
type Store struct {
	db            *sql.DB
	users         repository.UserRepository
	subscriptions repository.SubscriptionRepository
	squads        repository.ServerSquadRepository
	promoGroups   repository.PromoGroupRepository
	tariffs       repository.TariffRepository
}

var _ repository.Store = (*Store)(nil)

// NewStore constructs a SQLite-backed repository store.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:            db,
		users:         &userRepo{db: db},
		subscriptions: &subscriptionRepo{db: db},
		squads:        &serverSquadRepo{db: db},
		promoGroups:   &promoGroupRepo{db: db},
		tariffs:       &tariffRepo{db: db},
	}
}

func (s *Store) Users() repository.UserRepository {
	return s.users
}

func (s *Store) Subscriptions() repository.SubscriptionRepository {
	return s.subscriptions
}

func (s *Store) ServerSquads() repository.ServerSquadRepository {
	return s.squads
}

func (s *Store) PromoGroups() repository.PromoGroupRepository {
	return s.promoGroups
}

func (s *Store) Tariffs() repository.TariffRepository {
	return s.tariffs
}

// Ping 用于 readiness 探针。
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
