// 文件路径: internal/repository/sqlite/promo_group.go
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/creamcroissant/xboard-mobile/internal/repository"
)

type promoGroupRepo struct {
	db *sql.DB
}

const promoGroupSelect = `SELECT id, name, is_default, period_discounts, created_at, updated_at FROM promo_groups`

func (r *promoGroupRepo) FindByID(ctx context.Context, id int64) (*repository.PromoGroup, error) {
	row := r.db.QueryRowContext(ctx, promoGroupSelect+` WHERE id = ? LIMIT 1`, id)
	return scanPromoGroup(row)
}

// FindDefault 返回 is_default=1 的第一条优惠组。
func (r *promoGroupRepo) FindDefault(ctx context.Context) (*repository.PromoGroup, error) {
	row := r.db.QueryRowContext(ctx, promoGroupSelect+` WHERE is_default = 1 ORDER BY id ASC LIMIT 1`)
	return scanPromoGroup(row)
}

func scanPromoGroup(row rowScanner) (*repository.PromoGroup, error) {
	var (
		group     repository.PromoGroup
		isDefault int
		discounts sql.NullString
	)
	if err := row.Scan(&group.ID, &group.Name, &isDefault, &discounts, &group.CreatedAt, &group.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan promo group: %w", err)
	}
	group.IsDefault = isDefault == 1
	decoded, err := decodePeriodDiscounts(discounts)
	if err != nil {
		return nil, fmt.Errorf("decode promo group %d discounts: %w", group.ID, err)
	}
	group.PeriodDiscounts = decoded
	return &group, nil
}
