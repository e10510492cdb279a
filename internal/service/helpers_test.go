package service

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/creamcroissant/xboard-mobile/internal/migrations"
	"github.com/creamcroissant/xboard-mobile/internal/panel"
	"github.com/creamcroissant/xboard-mobile/internal/repository"
	"github.com/creamcroissant/xboard-mobile/internal/repository/sqlite"
)

func newTestStore(t *testing.T) (*sqlite.Store, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Up(db))
	return sqlite.NewStore(db), db
}

func mustExec(t *testing.T, db *sql.DB, query string, args ...any) int64 {
	t.Helper()
	res, err := db.Exec(query, args...)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

// seedUser inserts a user and returns it as loaded by the repository.
func seedUser(t *testing.T, store *sqlite.Store, db *sql.DB, telegramID *int64, promoGroupID *int64) *repository.User {
	t.Helper()
	var tg, pg any
	if telegramID != nil {
		tg = *telegramID
	}
	if promoGroupID != nil {
		pg = *promoGroupID
	}
	id := mustExec(t, db, `INSERT INTO users(telegram_id, username, first_name, language, promo_group_id) VALUES(?, 'neo', 'Thomas', 'ru', ?)`, tg, pg)
	user, err := store.Users().FindByID(t.Context(), id)
	require.NoError(t, err)
	return user
}

func int64Ptr(v int64) *int64 { return &v }

// newPanel starts a fake panel API; a nil handler yields an unconfigured client.
func newPanel(t *testing.T, handler http.HandlerFunc) *panel.Client {
	t.Helper()
	if handler == nil {
		return panel.New(panel.Options{})
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return panel.New(panel.Options{
		BaseURL:   srv.URL,
		APIKey:    "api-key",
		SecretKey: "guard:s3cret",
		Timeout:   time.Second,
	}).WithoutRetry()
}
