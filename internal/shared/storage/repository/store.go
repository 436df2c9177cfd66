// Package repository 数据库无关的存储层
//
// 通过 dbutil.Dialect 接口屏蔽不同数据库的 SQL 差异，
// 所有 SQL 以 PostgreSQL 风格编写，运行时由 Dialect.Rebind() 转换。
// 查询条件由 specification 包描述，本包负责把规格翻译为 SQL 并执行。
package repository

import (
	"context"
	"database/sql"
	"time"

	"ir-api/internal/shared/storage/dbutil"
	"ir-api/pkg/logging"
)

// QueryObserver 查询耗时观察者（Prometheus 指标）
type QueryObserver interface {
	RecordDBQuery(operation, table string, duration time.Duration)
}

// Store 通用存储实现
type Store struct {
	db       *sql.DB
	dialect  dbutil.Dialect
	observer QueryObserver
	logger   *logging.Logger
}

// NewStore 创建通用存储
func NewStore(db *sql.DB, dialect dbutil.Dialect) *Store {
	return &Store{db: db, dialect: dialect, logger: logging.Default("repository")}
}

// SetObserver 设置查询观察者
func (s *Store) SetObserver(o QueryObserver) {
	s.observer = o
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	return s.db.Close()
}

// DB 返回底层数据库连接（仅用于测试）
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect 返回当前方言
func (s *Store) Dialect() dbutil.Dialect {
	return s.dialect
}

// Ping 检查数据库连接
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// rebind 快捷方法：将 PG 风格 SQL 转换为当前方言
func (s *Store) rebind(query string) string {
	return s.dialect.Rebind(query)
}

// observe 记录一次查询
func (s *Store) observe(operation, table string, start time.Time, err error) {
	d := time.Since(start)
	if s.observer != nil {
		s.observer.RecordDBQuery(operation, table, d)
	}
	s.logger.DBQueryLog(operation, table, d, err)
}

// rowScanner 兼容 *sql.Row 与 *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}
