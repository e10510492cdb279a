// 文件路径: internal/repository/sqlite/tariff.go
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/creamcroissant/xboard-mobile/internal/repository"
)

type tariffRepo struct {
	db *sql.DB
}

const tariffSelect = `SELECT t.id, t.name, t.description, t.traffic_limit_gb, t.device_limit, t.period_prices,
	t.is_active, t.sort_order, t.created_at, t.updated_at
	FROM tariffs t
	WHERE t.is_active = 1`

const tariffPromoFilter = ` AND (
		NOT EXISTS (SELECT 1 FROM tariff_promo_groups l WHERE l.tariff_id = t.id)
		OR EXISTS (SELECT 1 FROM tariff_promo_groups l WHERE l.tariff_id = t.id AND l.promo_group_id = ?)
	)`

func (r *tariffRepo) ListForPromoGroup(ctx context.Context, promoGroupID *int64) ([]*repository.Tariff, error) {
	query := tariffSelect
	var args []any
	if promoGroupID != nil {
		query += tariffPromoFilter
		args = append(args, *promoGroupID)
	}
	query += ` ORDER BY t.sort_order ASC, t.id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tariffs: %w", err)
	}
	defer rows.Close()

	var tariffs []*repository.Tariff
	for rows.Next() {
		tariff, err := scanTariff(rows)
		if err != nil {
			return nil, err
		}
		tariffs = append(tariffs, tariff)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tariffs: %w", err)
	}
	return tariffs, nil
}

func scanTariff(row rowScanner) (*repository.Tariff, error) {
	var (
		tariff repository.Tariff
		prices sql.NullString
		active int
	)
	if err := row.Scan(
		&tariff.ID,
		&tariff.Name,
		&tariff.Description,
		&tariff.TrafficLimitGB,
		&tariff.DeviceLimit,
		&prices,
		&active,
		&tariff.SortOrder,
		&tariff.CreatedAt,
		&tariff.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("scan tariff: %w", err)
	}
	tariff.IsActive = active == 1
	decoded, err := decodePeriodPrices(prices)
	if err != nil {
		return nil, fmt.Errorf("decode tariff %d prices: %w", tariff.ID, err)
	}
	tariff.PeriodPrices = decoded
	return &tariff, nil
}
