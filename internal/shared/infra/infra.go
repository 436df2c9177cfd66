// Package infra 基础设施聚合层
//
// 按配置初始化并聚合各基础设施组件：
//   - Store：关系型存储（PostgreSQL / SQLite）
//   - Revisions：最新脚本版本缓存（内存 / Redis / etcd）
//   - Scripts：本地脚本存储（文件系统 / MinIO / S3）
package infra

import (
	"context"
	"fmt"
	"log"

	"ir-api/internal/config"
	"ir-api/internal/script/scriptstore"
	"ir-api/internal/shared/cache"
	"ir-api/internal/shared/storage/repository"
)

// Infrastructure 基础设施聚合结构
type Infrastructure struct {
	// Store 关系型存储
	Store *repository.Store

	// Revisions 最新脚本版本缓存
	Revisions cache.RevisionCache

	// Scripts 本地脚本存储
	Scripts scriptstore.Store

	closers []func() error
}

// New 按配置初始化全部基础设施，任一组件失败时关闭已创建的组件
func New(ctx context.Context, cfg *config.Config) (*Infrastructure, error) {
	i := &Infrastructure{}

	store, err := OpenStore(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	i.Store = store
	i.closers = append(i.closers, store.Close)

	revisions, closeRevisions, err := NewRevisionCache(cfg)
	if err != nil {
		i.Close()
		return nil, err
	}
	i.Revisions = revisions
	if closeRevisions != nil {
		i.closers = append(i.closers, closeRevisions)
	}

	scripts, err := NewScriptStore(ctx, cfg)
	if err != nil {
		i.Close()
		return nil, err
	}
	i.Scripts = scripts

	return i, nil
}

// Close 关闭所有基础设施连接，返回最后一个错误
func (i *Infrastructure) Close() error {
	var lastErr error
	for j := len(i.closers) - 1; j >= 0; j-- {
		if err := i.closers[j](); err != nil {
			log.Printf("[Infra] Close error: %v", err)
			lastErr = err
		}
	}
	i.closers = nil
	return lastErr
}

// NewForTest 使用给定组件组装基础设施（用于测试）
func NewForTest(store *repository.Store, scripts scriptstore.Store) *Infrastructure {
	return &Infrastructure{
		Store:     store,
		Revisions: cache.NewMemoryRevisionCache(),
		Scripts:   scripts,
	}
}

// describe 组件描述，用于日志
func describe(kind, backend string) string {
	return fmt.Sprintf("%s=%s", kind, backend)
}
