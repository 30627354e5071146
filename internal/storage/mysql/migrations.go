package mysql

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"storefront/deploy/migrations"
	"storefront/pkg/logger"
)

// 账号库迁移记录表。
const (
	createSchemaTable = `CREATE TABLE IF NOT EXISTS storefront_schema (
        version VARCHAR(32) NOT NULL PRIMARY KEY,
        name VARCHAR(255) NOT NULL,
        checksum CHAR(64) NOT NULL,
        applied_at BIGINT NOT NULL
)`
	selectSchemaRows = `SELECT version, checksum FROM storefront_schema`
	insertSchemaRow  = `INSERT INTO storefront_schema (version, name, checksum, applied_at) VALUES (?, ?, ?, ?)`
)

type schemaStep struct {
	version    string
	name       string
	checksum   string
	statements []string
}

type migrator struct {
	db     *sql.DB
	source fs.FS
	now    func() time.Time
	log    *slog.Logger
}

func newMigrator(db *sql.DB, source fs.FS) *migrator {
	return &migrator{db: db, source: source, now: time.Now, log: logger.Named("mysql")}
}

// runMigrations 把 deploy/migrations 中的建表脚本应用到账号库。
func runMigrations(ctx context.Context, db *sql.DB) error {
	applied, err := newMigrator(db, migrations.Files).run(ctx)
	if err != nil {
		return err
	}
	if applied > 0 {
		logger.Named("mysql").Info("账号库结构已更新", "applied", applied)
	}
	return nil
}

// run 返回本次新执行的步骤数。已执行步骤的脚本被改动时拒绝继续。
func (m *migrator) run(ctx context.Context) (int, error) {
	if _, err := m.db.ExecContext(ctx, createSchemaTable); err != nil {
		return 0, fmt.Errorf("创建 storefront_schema 表失败: %w", err)
	}

	recorded, err := m.recorded(ctx)
	if err != nil {
		return 0, err
	}
	steps, err := m.steps()
	if err != nil {
		return 0, err
	}

	count := 0
	for _, step := range steps {
		if sum, ok := recorded[step.version]; ok {
			if sum != step.checksum {
				return count, fmt.Errorf("迁移 %s 已执行但脚本内容被修改", step.name)
			}
			continue
		}
		if err := m.apply(ctx, step); err != nil {
			return count, err
		}
		m.log.Debug("迁移已执行", "version", step.version, "name", step.name)
		count++
	}
	return count, nil
}

// recorded 返回 version -> checksum。
func (m *migrator) recorded(ctx context.Context) (map[string]string, error) {
	rows, err := m.db.QueryContext(ctx, selectSchemaRows)
	if err != nil {
		return nil, fmt.Errorf("查询 storefront_schema 失败: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var version, checksum string
		if err := rows.Scan(&version, &checksum); err != nil {
			return nil, fmt.Errorf("解析 storefront_schema 失败: %w", err)
		}
		out[version] = checksum
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历 storefront_schema 失败: %w", err)
	}
	return out, nil
}

func (m *migrator) apply(ctx context.Context, step schemaStep) (err error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开启迁移事务失败: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i, stmt := range step.statements {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("迁移 %s 第 %d 条语句失败: %w", step.name, i+1, err)
		}
	}
	if _, err = tx.ExecContext(ctx, insertSchemaRow, step.version, step.name, step.checksum, m.now().Unix()); err != nil {
		return fmt.Errorf("记录迁移 %s 失败: %w", step.name, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("提交迁移 %s 失败: %w", step.name, err)
	}
	return nil
}

// steps 只读取 .sql 文件，按版本号排序。
func (m *migrator) steps() ([]schemaStep, error) {
	entries, err := fs.ReadDir(m.source, ".")
	if err != nil {
		return nil, fmt.Errorf("读取迁移目录失败: %w", err)
	}

	var steps []schemaStep
	seen := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || path.Ext(name) != ".sql" {
			continue
		}
		content, err := fs.ReadFile(m.source, name)
		if err != nil {
			return nil, fmt.Errorf("读取迁移文件 %s 失败: %w", name, err)
		}
		statements := splitSQLStatements(string(content))
		if len(statements) == 0 {
			continue
		}
		version := parseMigrationVersion(name)
		if other, dup := seen[version]; dup {
			return nil, fmt.Errorf("迁移 %s 与 %s 版本号重复", name, other)
		}
		seen[version] = name

		sum := sha256.Sum256(content)
		steps = append(steps, schemaStep{
			version:    version,
			name:       name,
			checksum:   hex.EncodeToString(sum[:]),
			statements: statements,
		})
	}

	sort.Slice(steps, func(i, j int) bool { return steps[i].version < steps[j].version })
	return steps, nil
}

// splitSQLStatements 去掉整行 "--" 注释后按分号切分。
func splitSQLStatements(content string) []string {
	var kept []string
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		kept = append(kept, line)
	}

	var statements []string
	for _, stmt := range strings.Split(strings.Join(kept, "\n"), ";") {
		if trimmed := strings.TrimSpace(stmt); trimmed != "" {
			statements = append(statements, trimmed)
		}
	}
	return statements
}

// parseMigrationVersion 取文件名中第一个 "_" 或扩展名之前的部分。
func parseMigrationVersion(name string) string {
	base := strings.TrimSuffix(name, path.Ext(name))
	if idx := strings.IndexRune(base, '_'); idx > 0 {
		return base[:idx]
	}
	return base
}
