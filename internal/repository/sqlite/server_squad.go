// 文件路径: internal/repository/sqlite/server_squad.go
// 模块说明: server_squads 查询；可见性规则：未关联任何优惠组的 squad 对所有人可见。
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/creamcroissant/xboard-mobile/internal/repository"
)

type serverSquadRepo struct {
	db *sql.DB
}

const serverSquadSelect = `SELECT s.id, s.squad_uuid, s.display_name, s.original_name, s.country_code, s.category,
	s.is_available, s.max_users, s.current_users, s.price_kopeks, s.sort_order, s.created_at, s.updated_at
	FROM server_squads s
	WHERE s.is_available = 1`

const serverSquadPromoFilter = ` AND (
		NOT EXISTS (SELECT 1 FROM server_squad_promo_groups l WHERE l.server_squad_id = s.id)
		OR EXISTS (SELECT 1 FROM server_squad_promo_groups l WHERE l.server_squad_id = s.id AND l.promo_group_id = ?)
	)`

func (r *serverSquadRepo) ListAvailable(ctx context.Context, promoGroupID *int64) ([]*repository.ServerSquad, error) {
	query := serverSquadSelect
	var args []any
	if promoGroupID != nil {
		query += serverSquadPromoFilter
		args = append(args, *promoGroupID)
	}
	query += ` ORDER BY s.sort_order ASC, s.id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list server squads: %w", err)
	}
	defer rows.Close()

	var squads []*repository.ServerSquad
	for rows.Next() {
		squad, err := scanServerSquad(rows)
		if err != nil {
			return nil, err
		}
		squads = append(squads, squad)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate server squads: %w", err)
	}
	return squads, nil
}

func scanServerSquad(row rowScanner) (*repository.ServerSquad, error) {
	var (
		squad     repository.ServerSquad
		available int
		maxUsers  sql.NullInt64
	)
	if err := row.Scan(
		&squad.ID,
		&squad.SquadUUID,
		&squad.DisplayName,
		&squad.OriginalName,
		&squad.CountryCode,
		&squad.Category,
		&available,
		&maxUsers,
		&squad.CurrentUsers,
		&squad.PriceKopeks,
		&squad.SortOrder,
		&squad.CreatedAt,
		&squad.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("scan server squad: %w", err)
	}
	squad.IsAvailable = available == 1
	squad.MaxUsers = nullableIntPtr(maxUsers)
	squad.Category = strings.TrimSpace(squad.Category)
	if squad.Category == "" {
		squad.Category = repository.DefaultServerCategory
	}
	return &squad, nil
}
