package service

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSquad(t *testing.T, db *sql.DB, uuid, name, country, category string, maxUsers, current int64) int64 {
	t.Helper()
	var max any
	if maxUsers > 0 {
		max = maxUsers
	}
	return mustExec(t, db, `INSERT INTO server_squads(squad_uuid, display_name, country_code, category, max_users, current_users)
		VALUES(?, ?, ?, ?, ?, ?)`, uuid, name, country, category, max, current)
}

func TestCatalog_DirectMode(t *testing.T) {
	store, db := newTestStore(t)
	de := seedSquad(t, db, "sq-de", "Germany", "de", "general", 100, 45)
	seedSquad(t, db, "sq-nl", "Netherlands", "NL", "whitelist", 10, 10)
	seedSquad(t, db, "sq-x", "Anywhere", "", "", 0, 500)

	svc := NewCatalogService(store.ServerSquads(), store.PromoGroups(), newPanel(t, nil), CatalogOptions{})
	got, err := svc.List(context.Background(), nil, "ru")
	require.NoError(t, err)
	assert.Equal(t, 3, got.TotalCount)
	require.Len(t, got.Categories, 2)

	whitelist := got.Categories[0]
	assert.Equal(t, "whitelist", whitelist.ID)
	assert.Equal(t, "Белые списки", whitelist.Name)
	nl := whitelist.Servers[0]
	assert.False(t, nl.IsAvailable)
	assert.Equal(t, 100, nl.LoadPercent)
	assert.Equal(t, 1, nl.QualityLevel)
	assert.Equal(t, "🇳🇱", nl.Flag)
	assert.Empty(t, nl.MatchKey)

	general := got.Categories[1]
	require.Len(t, general.Servers, 2)
	anywhere, germany := general.Servers[0], general.Servers[1]
	assert.Equal(t, "Anywhere", anywhere.Name)
	assert.Equal(t, 0, anywhere.LoadPercent)
	assert.Equal(t, 5, anywhere.QualityLevel)
	assert.Nil(t, anywhere.CountryCode)
	assert.Equal(t, "🌐", anywhere.Flag)
	assert.Equal(t, de, germany.ID)
	assert.Equal(t, 45, germany.LoadPercent)
	assert.Equal(t, 4, germany.QualityLevel)
	assert.True(t, germany.IsAvailable)
}

func TestCatalog_ExpandedMode(t *testing.T) {
	store, db := newTestStore(t)
	seedSquad(t, db, "sq-a", "Squad A", "de", "premium", 100, 10)
	seedSquad(t, db, "sq-b", "Squad B", "fi", "youtube", 0, 0)
	seedSquad(t, db, "sq-c", "Squad C", "us", "general", 0, 0)

	client := newPanel(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "/sq-a/"):
			_, _ = w.Write([]byte(`{"response":{"accessibleNodes":[
				{"uuid":"n1","nodeName":"Frankfurt","countryCode":"DE"},
				{"uuid":"n2","nodeName":"","configProfileName":"","countryCode":"nl"}]}}`))
		case strings.Contains(r.URL.Path, "/sq-b/"):
			_, _ = w.Write([]byte(`{"response":{"accessibleNodes":[]}}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})

	svc := NewCatalogService(store.ServerSquads(), store.PromoGroups(), client, CatalogOptions{FanoutLimit: 2})
	got, err := svc.List(context.Background(), nil, "en")
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalCount)
	require.Len(t, got.Categories, 1)
	premium := got.Categories[0]
	assert.Equal(t, "premium", premium.ID)
	assert.Equal(t, "High-speed servers", premium.Subtitle)
	require.Len(t, premium.Servers, 2)

	plain, named := premium.Servers[0], premium.Servers[1]
	assert.Equal(t, "Squad A", plain.Name)
	assert.EqualValues(t, 2, plain.ID)
	assert.Equal(t, "🇳🇱", plain.Flag)
	assert.Empty(t, plain.MatchKey)

	assert.Equal(t, "Squad A — Frankfurt", named.Name)
	assert.EqualValues(t, 1, named.ID)
	assert.Equal(t, "Frankfurt", named.MatchKey)
	require.NotNil(t, named.CountryCode)
	assert.Equal(t, "DE", *named.CountryCode)
	assert.Equal(t, 10, named.LoadPercent)
	assert.Equal(t, 5, named.QualityLevel)
}

func TestCatalog_ExpandedIDsUniqueAcrossLargeSquads(t *testing.T) {
	store, db := newTestStore(t)
	seedSquad(t, db, "sq-a", "Squad A", "de", "general", 0, 0)
	seedSquad(t, db, "sq-b", "Squad B", "fi", "premium", 0, 0)

	nodes := func(prefix string, n int) string {
		items := make([]string, n)
		for i := range items {
			items[i] = fmt.Sprintf(`{"uuid":"%s-%d","nodeName":"%s %d"}`, prefix, i, prefix, i)
		}
		return `{"response":{"accessibleNodes":[` + strings.Join(items, ",") + `]}}`
	}
	client := newPanel(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/sq-a/") {
			_, _ = w.Write([]byte(nodes("a", 1001)))
			return
		}
		_, _ = w.Write([]byte(nodes("b", 2)))
	})

	svc := NewCatalogService(store.ServerSquads(), store.PromoGroups(), client, CatalogOptions{})
	got, err := svc.List(context.Background(), nil, "en")
	require.NoError(t, err)
	assert.Equal(t, 1003, got.TotalCount)

	ids := make(map[int64]string)
	for _, cat := range got.Categories {
		for _, srv := range cat.Servers {
			prev, dup := ids[srv.ID]
			require.False(t, dup, "id %d shared by %q and %q", srv.ID, prev, srv.Name)
			ids[srv.ID] = srv.Name
		}
	}
	assert.Len(t, ids, 1003)
}

func TestCatalog_ExpandedFallback(t *testing.T) {
	store, db := newTestStore(t)
	seedSquad(t, db, "sq-a", "Squad A", "de", "general", 0, 0)
	seedSquad(t, db, "sq-b", "Squad B", "fi", "general", 0, 0)

	var hits atomic.Int32
	client := newPanel(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"response":{"accessibleNodes":[]}}`))
	})

	empty := NewCatalogService(store.ServerSquads(), store.PromoGroups(), client, CatalogOptions{})
	got, err := empty.List(context.Background(), nil, "ru")
	require.NoError(t, err)
	assert.Empty(t, got.Categories)
	assert.Zero(t, got.TotalCount)
	assert.EqualValues(t, 2, hits.Load())

	direct := NewCatalogService(store.ServerSquads(), store.PromoGroups(), client, CatalogOptions{ExpandedFallback: FallbackDirect})
	got, err = direct.List(context.Background(), nil, "ru")
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalCount)
}

func TestCatalog_PromoGroupVisibility(t *testing.T) {
	store, db := newTestStore(t)
	def := mustExec(t, db, `INSERT INTO promo_groups(name, is_default) VALUES('default', 1)`)
	vip := mustExec(t, db, `INSERT INTO promo_groups(name) VALUES('vip')`)
	seedSquad(t, db, "sq-all", "Everyone", "de", "general", 0, 0)
	vipSquad := seedSquad(t, db, "sq-vip", "VIP only", "de", "premium", 0, 0)
	mustExec(t, db, `INSERT INTO server_squad_promo_groups(server_squad_id, promo_group_id) VALUES(?, ?)`, vipSquad, vip)
	defSquad := seedSquad(t, db, "sq-def", "Default only", "de", "general", 0, 0)
	mustExec(t, db, `INSERT INTO server_squad_promo_groups(server_squad_id, promo_group_id) VALUES(?, ?)`, defSquad, def)

	svc := NewCatalogService(store.ServerSquads(), store.PromoGroups(), nil, CatalogOptions{})

	anon, err := svc.List(context.Background(), nil, "ru")
	require.NoError(t, err)
	assert.Equal(t, 2, anon.TotalCount)

	vipUser := seedUser(t, store, db, nil, &vip)
	got, err := svc.List(context.Background(), vipUser, "ru")
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalCount)
	assert.Equal(t, "premium", got.Categories[0].ID)
}
