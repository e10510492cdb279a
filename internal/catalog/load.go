// 文件路径: internal/catalog/load.go
// 模块说明: 负载百分比与质量等级。没有配置容量的 squad 视为空闲（质量 5）。
package catalog

// LoadPercent returns floor(current/max*100) capped at 100; 0 when max is unset or not positive.
func LoadPercent(current int64, max *int64) int {
	if max == nil || *max <= 0 {
		return 0
	}
	if current <= 0 {
		return 0
	}
	pct := current * 100 / *max
	if pct > 100 {
		return 100
	}
	return int(pct)
}

// QualityLevel maps the load ratio onto 1..5 where 5 is best.
func QualityLevel(current int64, max *int64) int {
	if max == nil || *max <= 0 {
		return 5
	}
	ratio := float64(current) / float64(*max)
	switch {
	case ratio < 0.3:
		return 5
	case ratio < 0.5:
		return 4
	case ratio < 0.7:
		return 3
	case ratio < 0.9:
		return 2
	default:
		return 1
	}
}
