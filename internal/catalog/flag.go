// 文件路径: internal/catalog/flag.go
package catalog

// GlobeFlag is returned for missing or malformed country codes.
const GlobeFlag = "🌐"

const regionalIndicatorA = 0x1F1E6

// Flag converts a two-letter country code into its regional-indicator emoji pair.
// The code is matched case-insensitively.
func Flag(countryCode string) string {
	if len(countryCode) != 2 {
		return GlobeFlag
	}
	runes := make([]rune, 0, 2)
	for i := 0; i < 2; i++ {
		c := countryCode[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		if c < 'A' || c > 'Z' {
			return GlobeFlag
		}
		runes = append(runes, rune(regionalIndicatorA+int(c-'A')))
	}
	return string(runes)
}
