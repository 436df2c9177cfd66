// Package sqlite SQLite 数据库驱动
//
// 提供 SQLite 连接管理、方言实现和自动 Schema 迁移。
// 适用于开发、测试和轻量级部署场景。
package sqlite

import (
	"database/sql"
	"fmt"

	"ir-api/internal/shared/storage/dbutil"

	_ "modernc.org/sqlite"
)

// Dialect SQLite 方言实现
type Dialect struct{}

var _ dbutil.Dialect = (*Dialect)(nil)

func (d *Dialect) DriverType() dbutil.DriverType {
	return dbutil.DriverSQLite
}

func (d *Dialect) Rebind(query string) string {
	return dbutil.StripPgCasts(dbutil.RebindToQuestion(query))
}

func (d *Dialect) UnboundedLimit() string {
	return "-1"
}

func (d *Dialect) AutoMigrate(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

// Open 创建 SQLite 数据库连接
// dsn 示例: "file:test.db?cache=shared&mode=rwc" 或 ":memory:"
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	// 内存库每个连接都是独立数据库，限制为单连接
	if dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// SQLite 优化设置
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("failed to set pragma %s: %w", p, err)
		}
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite: %w", err)
	}

	return db, nil
}

// NewDialect 创建 SQLite 方言
func NewDialect() *Dialect {
	return &Dialect{}
}

// schema SQLite 完整建表语句（等价于 PostgreSQL 版本）
const schema = `
-- instruments
CREATE TABLE IF NOT EXISTS instruments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    instrument_name VARCHAR NOT NULL
);

-- scripts
CREATE TABLE IF NOT EXISTS scripts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    script TEXT NOT NULL,
    sha VARCHAR
);

-- runs
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    filename VARCHAR NOT NULL,
    experiment_number INTEGER NOT NULL,
    title VARCHAR NOT NULL,
    users VARCHAR NOT NULL,
    run_start DATETIME NOT NULL,
    run_end DATETIME NOT NULL,
    good_frames INTEGER NOT NULL,
    raw_frames INTEGER NOT NULL,
    instrument_id INTEGER NOT NULL REFERENCES instruments(id)
);

-- reductions
CREATE TABLE IF NOT EXISTS reductions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    reduction_start DATETIME,
    reduction_end DATETIME,
    reduction_state VARCHAR(16) NOT NULL DEFAULT 'NOT_STARTED',
    reduction_status_message TEXT,
    reduction_inputs TEXT NOT NULL DEFAULT '{}',
    reduction_outputs TEXT,
    script_id INTEGER REFERENCES scripts(id)
);

-- runs_reductions
CREATE TABLE IF NOT EXISTS runs_reductions (
    run_id INTEGER REFERENCES runs(id),
    reduction_id INTEGER REFERENCES reductions(id)
);

CREATE INDEX IF NOT EXISTS idx_instruments_name ON instruments(instrument_name);
CREATE INDEX IF NOT EXISTS idx_runs_instrument ON runs(instrument_id);
CREATE INDEX IF NOT EXISTS idx_runs_experiment ON runs(experiment_number);
CREATE INDEX IF NOT EXISTS idx_runs_reductions_run ON runs_reductions(run_id);
CREATE INDEX IF NOT EXISTS idx_runs_reductions_reduction ON runs_reductions(reduction_id);
`
