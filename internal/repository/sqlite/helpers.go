// 文件路径: internal/repository/sqlite/helpers.go
package sqlite

import (
	"database/sql"
	"encoding/json"
	"strconv"
	"time"
)

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func optionalInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableIntPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	value := v.Int64
	return &value
}

// nullableTime 把 unix 秒转换为 UTC 时间；NULL 或 0 视为未设置。
func nullableTime(v sql.NullInt64) *time.Time {
	if !v.Valid || v.Int64 == 0 {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}

// decodePeriodPrices 解析 {"30": 19900, "90": 49900} 形式的 JSON；空串返回空 map。
func decodePeriodPrices(raw sql.NullString) (map[string]int64, error) {
	prices := map[string]int64{}
	if !raw.Valid || raw.String == "" {
		return prices, nil
	}
	if err := json.Unmarshal([]byte(raw.String), &prices); err != nil {
		return nil, err
	}
	return prices, nil
}

// decodePeriodDiscounts 解析 {"30": 10} 形式的 JSON，key 必须是整数天数。
func decodePeriodDiscounts(raw sql.NullString) (map[int]int, error) {
	discounts := map[int]int{}
	if !raw.Valid || raw.String == "" {
		return discounts, nil
	}
	var decoded map[string]int
	if err := json.Unmarshal([]byte(raw.String), &decoded); err != nil {
		return nil, err
	}
	for key, pct := range decoded {
		days, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		discounts[days] = pct
	}
	return discounts, nil
}
