// 文件路径: internal/catalog/labels.go
// 模块说明: 分类显示名称。内置 YAML 提供 ru/en，可用外部文件按语言、按 slug 覆盖。
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed categories.yaml
var builtinLabels []byte

// Label is the localized name/subtitle pair of a category.
type Label struct {
	Name     string `yaml:"name"`
	Subtitle string `yaml:"subtitle"`
}

// Labels holds category labels per base language.
type Labels struct {
	defaultLang string
	byLang      map[string]map[string]Label
}

// LoadLabels parses the embedded catalog and merges overridePath on top when it is set.
func LoadLabels(defaultLang, overridePath string) (*Labels, error) {
	byLang := map[string]map[string]Label{}
	if err := mergeLabels(byLang, builtinLabels); err != nil {
		return nil, fmt.Errorf("catalog: builtin labels: %w", err)
	}
	if path := strings.TrimSpace(overridePath); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("catalog: read %s: %w", path, err)
		}
		if err := mergeLabels(byLang, data); err != nil {
			return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
		}
	}
	return &Labels{defaultLang: baseLanguage(defaultLang, "ru"), byLang: byLang}, nil
}

// MustBuiltinLabels 仅用于测试及无需覆盖的场景。
func MustBuiltinLabels(defaultLang string) *Labels {
	labels, err := LoadLabels(defaultLang, "")
	if err != nil {
		panic(err)
	}
	return labels
}

func mergeLabels(dst map[string]map[string]Label, data []byte) error {
	var parsed map[string]map[string]Label
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return err
	}
	for lang, entries := range parsed {
		key := baseLanguage(lang, lang)
		if dst[key] == nil {
			dst[key] = map[string]Label{}
		}
		for slug, label := range entries {
			dst[key][strings.ToLower(strings.TrimSpace(slug))] = label
		}
	}
	return nil
}

// Lookup returns the label for slug in lang, falling back to the default language
// and then to the capitalized slug with an empty subtitle.
func (l *Labels) Lookup(lang, slug string) Label {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if l != nil {
		for _, candidate := range []string{baseLanguage(lang, l.defaultLang), l.defaultLang} {
			if label, ok := l.byLang[candidate][slug]; ok {
				return label
			}
		}
	}
	return Label{Name: capitalize(slug)}
}

func baseLanguage(tag, fallback string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return fallback
	}
	parsed, err := language.Parse(tag)
	if err != nil {
		return fallback
	}
	base, _ := parsed.Base()
	return base.String()
}

// capitalize 首字母大写，其余小写。
func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
