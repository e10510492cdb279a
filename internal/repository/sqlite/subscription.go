// 文件路径: internal/repository/sqlite/subscription.go
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/creamcroissant/xboard-mobile/internal/repository"
)

type subscriptionRepo struct {
	db *sql.DB
}

const subscriptionSelect = `SELECT id, user_id, status, traffic_used_gb, traffic_limit_gb, device_limit,
	end_date, subscription_url, tariff_id, created_at, updated_at
	FROM subscriptions`

// FindByUserID 每个用户最多一条订阅。
func (r *subscriptionRepo) FindByUserID(ctx context.Context, userID int64) (*repository.Subscription, error) {
	row := r.db.QueryRowContext(ctx, subscriptionSelect+` WHERE user_id = ? ORDER BY id DESC LIMIT 1`, userID)
	return scanSubscription(row)
}

func scanSubscription(row rowScanner) (*repository.Subscription, error) {
	var (
		sub      repository.Subscription
		endDate  sql.NullInt64
		tariffID sql.NullInt64
	)
	if err := row.Scan(
		&sub.ID,
		&sub.UserID,
		&sub.Status,
		&sub.TrafficUsedGB,
		&sub.TrafficLimitGB,
		&sub.DeviceLimit,
		&endDate,
		&sub.SubscriptionURL,
		&tariffID,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan subscription: %w", err)
	}
	sub.EndDate = nullableTime(endDate)
	sub.TariffID = nullableIntPtr(tariffID)
	return &sub, nil
}
