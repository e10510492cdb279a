// 文件路径: internal/subscription/decode.go
// 模块说明: 把面板返回的订阅正文（MIME base64 / URL-safe base64 / 明文）解码成代理链接列表。
package subscription

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"
)

// KnownSchemes lists the proxy URI prefixes the mobile client can import.
var KnownSchemes = []string{
	"vless://",
	"vmess://",
	"trojan://",
	"ss://",
	"hysteria2://",
	"tuic://",
	"hysteria://",
}

// Decode 把订阅正文解析为代理链接。
// 顺序：URL-safe base64 → 标准 base64 → 原文按行扫描；都没有结果时返回空切片（不是错误）。
func Decode(raw string) []string {
	compact := strings.NewReplacer("\n", "", "\r", "", " ", "").Replace(raw)
	padded := padBase64(compact)

	for _, enc := range []*base64.Encoding{base64.URLEncoding, base64.StdEncoding} {
		decoded, err := enc.DecodeString(padded)
		if err != nil || !utf8.Valid(decoded) {
			continue
		}
		if links := extractLinks(string(decoded)); len(links) > 0 {
			return links
		}
	}

	// 不是 base64：按明文处理，注意这里用的是未压缩的原文。
	return extractLinks(raw)
}

// IsProxyLink reports whether the trimmed line starts with a known scheme.
func IsProxyLink(line string) bool {
	for _, scheme := range KnownSchemes {
		if strings.HasPrefix(line, scheme) {
			return true
		}
	}
	return false
}

func padBase64(s string) string {
	if rem := len(s) % 4; rem != 0 {
		return s + strings.Repeat("=", 4-rem)
	}
	return s
}

func extractLinks(text string) []string {
	lines := strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == '\r'
	})
	links := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if IsProxyLink(trimmed) {
			links = append(links, trimmed)
		}
	}
	return links
}
