// 文件路径: internal/support/i18n/i18n.go
// 模块说明: 翻译管理。语言包内嵌在 locales/*.json，可用外部目录覆盖。
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

//go:embed locales/*.json
var embeddedLocales embed.FS

// DefaultLanguage is used when no language is configured.
const DefaultLanguage = "ru"

// Manager 管理翻译内容。
type Manager struct {
	defaultLang  string
	translations map[string]map[string]string
	logger       *slog.Logger
	mu           sync.RWMutex
}

// Option 用于配置 Manager。
type Option func(*Manager)

// WithLogger 设置 Manager 使用的日志实例。
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithDefaultLang 设置默认语言。
func WithDefaultLang(lang string) Option {
	return func(m *Manager) {
		if normalized := normalize(lang); normalized != "" {
			m.defaultLang = normalized
		}
	}
}

// NewManager 创建 i18n Manager。
func NewManager(opts ...Option) (*Manager, error) {
	m := &Manager{
		defaultLang:  DefaultLanguage,
		translations: make(map[string]map[string]string),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.loadEmbeddedTranslations(); err != nil {
		return nil, err
	}
	return m, nil
}

// MustManager panics when the embedded locales cannot be parsed.
func MustManager(opts ...Option) *Manager {
	m, err := NewManager(opts...)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Manager) loadEmbeddedTranslations() error {
	entries, err := embeddedLocales.ReadDir("locales")
	if err != nil {
		return fmt.Errorf("failed to read locales directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := embeddedLocales.ReadFile("locales/" + entry.Name())
		if err != nil {
			return fmt.Errorf("failed to read locale file %s: %w", entry.Name(), err)
		}
		var content map[string]string
		if err := json.Unmarshal(data, &content); err != nil {
			return fmt.Errorf("failed to unmarshal locale file %s: %w", entry.Name(), err)
		}
		m.merge(strings.TrimSuffix(entry.Name(), ".json"), content)
	}
	return nil
}

// LoadFromDir 从外部目录加载翻译文件；目录不存在时忽略。
func (m *Manager) LoadFromDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return nil
	}
	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read external locales directory: %w", err)
	}
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			m.logger.Warn("failed to read external locale file", "file", file.Name(), "error", err)
			continue
		}
		var content map[string]string
		if err := json.Unmarshal(data, &content); err != nil {
			m.logger.Warn("failed to unmarshal external locale file", "file", file.Name(), "error", err)
			continue
		}
		m.merge(strings.TrimSuffix(file.Name(), ".json"), content)
	}
	return nil
}

func (m *Manager) merge(lang string, content map[string]string) {
	key := normalize(lang)
	if key == "" {
		key = lang
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.translations[key]; !exists {
		m.translations[key] = make(map[string]string, len(content))
	}
	for k, v := range content {
		m.translations[key][k] = v
	}
}

// Translate 按语言与键名返回翻译内容。查找顺序：完整标签、基础语言、默认语言、原始 key。
func (m *Manager) Translate(lang, key string, args ...any) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, candidate := range m.candidates(lang) {
		if trans, ok := m.translations[candidate]; ok {
			if val, ok := trans[key]; ok {
				if len(args) > 0 {
					return fmt.Sprintf(val, args...)
				}
				return val
			}
		}
	}
	return key
}

// Resolve returns the supported language closest to lang, or the default one.
func (m *Manager) Resolve(lang string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, candidate := range m.candidates(lang) {
		if _, ok := m.translations[candidate]; ok {
			return candidate
		}
	}
	return m.defaultLang
}

// DefaultLang 返回默认语言。
func (m *Manager) DefaultLang() string {
	return m.defaultLang
}

func (m *Manager) candidates(lang string) []string {
	out := make([]string, 0, 3)
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err == nil {
		out = append(out, tag.String())
		if base, _ := tag.Base(); base.String() != tag.String() {
			out = append(out, base.String())
		}
	}
	return append(out, m.defaultLang)
}

// GetSupportedLanguages 返回支持的语言列表。
func (m *Manager) GetSupportedLanguages() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	langs := make([]string, 0, len(m.translations))
	for k := range m.translations {
		langs = append(langs, k)
	}
	return langs
}

func normalize(lang string) string {
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil {
		return ""
	}
	return tag.String()
}
