// 文件路径: internal/migrations/sqlite_embed.go
// 模块说明: 内嵌 SQLite 迁移脚本。
package migrations

import "embed"

// SQLite embeds all SQLite-specific migration files.
//
//go:embed sqlite/*.sql
var SQLite embed.FS
