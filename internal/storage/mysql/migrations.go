package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"taskpad/deploy/migrations"
)

var embeddedSchema = migrations.Files

// ensureSchema 按文件名顺序执行内嵌的建表语句，语句本身必须幂等。
func ensureSchema(ctx context.Context, db *sql.DB) error {
	statements, err := loadSchemaStatements()
	if err != nil {
		return err
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("初始化表结构失败: %w", err)
		}
	}
	return nil
}

func loadSchemaStatements() ([]string, error) {
	entries, err := fs.ReadDir(embeddedSchema, ".")
	if err != nil {
		return nil, fmt.Errorf("读取建表语句失败: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var statements []string
	for _, name := range names {
		content, err := embeddedSchema.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("读取 %s 失败: %w", name, err)
		}
		statements = append(statements, splitSQLStatements(string(content))...)
	}
	return statements, nil
}

func splitSQLStatements(content string) []string {
	var statements []string
	for _, stmt := range strings.Split(content, ";") {
		if trimmed := strings.TrimSpace(stmt); trimmed != "" {
			statements = append(statements, trimmed)
		}
	}
	return statements
}
