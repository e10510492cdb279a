// 文件路径: internal/repository/sqlite/user.go
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/creamcroissant/xboard-mobile/internal/repository"
)

// userRepo 负责 users 表的 SQLite 实现。
type userRepo struct {
	db *sql.DB
}

const userColumns = `id, telegram_id, username, first_name, language, promo_group_id, created_at, updated_at`

func (r *userRepo) FindByID(ctx context.Context, id int64) (*repository.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ? LIMIT 1`, id)
	return scanUser(row)
}

func (r *userRepo) FindByTelegramID(ctx context.Context, telegramID int64) (*repository.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE telegram_id = ? LIMIT 1`, telegramID)
	return scanUser(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*repository.User, error) {
	var (
		user       repository.User
		telegramID sql.NullInt64
		promoGroup sql.NullInt64
	)
	if err := row.Scan(
		&user.ID,
		&telegramID,
		&user.Username,
		&user.FirstName,
		&user.Language,
		&promoGroup,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	user.TelegramID = nullableIntPtr(telegramID)
	user.PromoGroupID = nullableIntPtr(promoGroup)
	return &user, nil
}
