// 文件路径: internal/catalog/catalog.go
// 模块说明: 服务器目录的分组与排序。输入是已经计算好的服务器条目，输出按分类归档的目录。
package catalog

import (
	"sort"
	"strings"
)

// CanonicalOrder lists known category slugs in display order.
var CanonicalOrder = []string{"whitelist", "youtube", "premium", "general"}

// DefaultCategory is used for entries without a category.
const DefaultCategory = "general"

// Server is one connectable entry of the catalog.
type Server struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	CountryCode  *string `json:"country_code"`
	Flag         string  `json:"flag"`
	Category     string  `json:"category"`
	IsAvailable  bool    `json:"is_available"`
	LoadPercent  int     `json:"load_percent"`
	QualityLevel int     `json:"quality_level"`
	MatchKey     string  `json:"match_key,omitempty"`
}

// Category is a named, ordered group of servers.
type Category struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Subtitle    string   `json:"subtitle"`
	ServerCount int      `json:"server_count"`
	Servers     []Server `json:"servers"`
}

// Catalog is the response body of the servers endpoint.
type Catalog struct {
	Categories []Category `json:"categories"`
	TotalCount int        `json:"total_count"`
}

// Empty returns a catalog without categories.
func Empty() *Catalog {
	return &Catalog{Categories: []Category{}}
}

// Group buckets servers by category, labels each bucket for lang and orders the
// buckets canonically. Servers inside a bucket are sorted by name.
func Group(servers []Server, labels *Labels, lang string) *Catalog {
	buckets := map[string][]Server{}
	var seen []string
	for _, srv := range servers {
		slug := strings.ToLower(strings.TrimSpace(srv.Category))
		if slug == "" {
			slug = DefaultCategory
		}
		srv.Category = slug
		if _, ok := buckets[slug]; !ok {
			seen = append(seen, slug)
		}
		buckets[slug] = append(buckets[slug], srv)
	}

	result := Empty()
	for _, slug := range OrderSlugs(seen) {
		entries := buckets[slug]
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
		label := labels.Lookup(lang, slug)
		result.Categories = append(result.Categories, Category{
			ID:          slug,
			Name:        label.Name,
			Subtitle:    label.Subtitle,
			ServerCount: len(entries),
			Servers:     entries,
		})
		result.TotalCount += len(entries)
	}
	return result
}

// OrderSlugs 按 CanonicalOrder 排序，未知 slug 保持首次出现的相对顺序排在最后。
func OrderSlugs(slugs []string) []string {
	rank := make(map[string]int, len(CanonicalOrder))
	for i, slug := range CanonicalOrder {
		rank[slug] = i
	}
	ordered := append([]string(nil), slugs...)
	sort.SliceStable(ordered, func(i, j int) bool {
		ri, okI := rank[ordered[i]]
		rj, okJ := rank[ordered[j]]
		switch {
		case okI && okJ:
			return ri < rj
		case okI:
			return true
		default:
			return false
		}
	})
	return ordered
}
