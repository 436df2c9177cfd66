// Package infra 关系型存储初始化
package infra

import (
	"database/sql"
	"fmt"
	"log"

	"ir-api/internal/shared/storage/dbutil"
	pgdriver "ir-api/internal/shared/storage/driver/postgres"
	sqlitedriver "ir-api/internal/shared/storage/driver/sqlite"
	"ir-api/internal/shared/storage/repository"
)

// OpenStore 按驱动名打开数据库并建表
//
// driverName 为空时按 postgres 处理。
func OpenStore(driverName, url string) (*repository.Store, error) {
	if driverName == "" {
		driverName = string(dbutil.DriverPostgres)
	}
	driverType, err := dbutil.ParseDriverType(driverName)
	if err != nil {
		return nil, err
	}

	var (
		db      *sql.DB
		dialect dbutil.Dialect
	)
	switch driverType {
	case dbutil.DriverSQLite:
		db, err = sqlitedriver.Open(url)
		dialect = sqlitedriver.NewDialect()
	default:
		db, err = pgdriver.Open(url)
		dialect = pgdriver.NewDialect()
	}
	if err != nil {
		return nil, err
	}

	if err := dialect.AutoMigrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate %s schema: %w", driverType, err)
	}

	log.Printf("[Infra] Connected to %s", describe("database", string(driverType)))
	return repository.NewStore(db, dialect), nil
}
