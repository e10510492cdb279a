package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlag(t *testing.T) {
	assert.Equal(t, "🇩🇪", Flag("DE"))
	assert.Equal(t, "🇩🇪", Flag("de"))
	assert.Equal(t, "🇳🇱", Flag("nL"))
	for _, bad := range []string{"", "D", "DEU", "1A", "д", "--"} {
		assert.Equal(t, GlobeFlag, Flag(bad), bad)
	}
}

func TestLoadAndQuality(t *testing.T) {
	zero := int64(0)
	assert.Equal(t, 0, LoadPercent(50, nil))
	assert.Equal(t, 0, LoadPercent(50, &zero))
	assert.Equal(t, 5, QualityLevel(50, nil))
	assert.Equal(t, 5, QualityLevel(50, &zero))

	max := int64(100)
	cases := []struct {
		current int64
		load    int
		quality int
	}{
		{0, 0, 5},
		{29, 29, 5},
		{30, 30, 4},
		{49, 49, 4},
		{50, 50, 3},
		{69, 69, 3},
		{70, 70, 2},
		{89, 89, 2},
		{90, 90, 1},
		{250, 100, 1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.load, LoadPercent(tc.current, &max), "load %d", tc.current)
		assert.Equal(t, tc.quality, QualityLevel(tc.current, &max), "quality %d", tc.current)
	}

	three := int64(3)
	assert.Equal(t, 66, LoadPercent(2, &three))
}

func TestOrderSlugs(t *testing.T) {
	assert.Equal(t,
		[]string{"whitelist", "premium", "general", "custom1"},
		OrderSlugs([]string{"general", "premium", "whitelist", "custom1"}))
	assert.Equal(t,
		[]string{"youtube", "zeta", "alpha"},
		OrderSlugs([]string{"zeta", "youtube", "alpha"}))
}

func TestGroup(t *testing.T) {
	labels := MustBuiltinLabels("ru")
	servers := []Server{
		{ID: 1, Name: "Берлин", Category: "general"},
		{ID: 2, Name: "Амстердам", Category: ""},
		{ID: 3, Name: "Fast", Category: "PREMIUM"},
		{ID: 4, Name: "Odd", Category: "custom1"},
	}

	got := Group(servers, labels, "ru")
	require.Len(t, got.Categories, 3)
	assert.Equal(t, 4, got.TotalCount)

	premium := got.Categories[0]
	assert.Equal(t, "premium", premium.ID)
	assert.Equal(t, "Высокоскоростные серверы", premium.Subtitle)
	assert.Equal(t, "premium", premium.Servers[0].Category)

	general := got.Categories[1]
	assert.Equal(t, "Общие серверы", general.Name)
	assert.Equal(t, 2, general.ServerCount)
	assert.Equal(t, "Амстердам", general.Servers[0].Name)
	assert.Equal(t, "general", general.Servers[0].Category)

	custom := got.Categories[2]
	assert.Equal(t, "Custom1", custom.Name)
	assert.Empty(t, custom.Subtitle)

	en := Group(servers[:1], labels, "en-US")
	assert.Equal(t, "General servers", en.Categories[0].Name)

	empty := Group(nil, labels, "ru")
	assert.NotNil(t, empty.Categories)
	assert.Zero(t, empty.TotalCount)
}

func TestLoadLabels_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "categories.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ru:\n  gaming:\n    name: Игры\n    subtitle: Низкий пинг\n"), 0o600))

	labels, err := LoadLabels("ru", path)
	require.NoError(t, err)
	assert.Equal(t, Label{Name: "Игры", Subtitle: "Низкий пинг"}, labels.Lookup("ru", "gaming"))
	assert.Equal(t, "Общие серверы", labels.Lookup("ru", "general").Name)
	// unknown language falls back to the default one
	assert.Equal(t, "Игры", labels.Lookup("de", "gaming").Name)

	_, err = LoadLabels("ru", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
