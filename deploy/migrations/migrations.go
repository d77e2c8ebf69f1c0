// Package migrations embeds the SQL schema used by the SQL task backend.
package migrations

import "embed"

// Files 暴露建表语句，按文件名顺序执行。
//
//go:embed *.sql
var Files embed.FS
