// Package infra 缓存与脚本存储后端初始化
package infra

import (
	"context"
	"fmt"
	"log"

	"ir-api/internal/config"
	"ir-api/internal/script/scriptstore"
	"ir-api/internal/shared/cache"
	cacheetcd "ir-api/internal/shared/cache/etcd"
	cacheredis "ir-api/internal/shared/cache/redis"
	"ir-api/internal/shared/objstore"
)

// NewRevisionCache 按 scripts.revision_cache 创建版本缓存
//
// 返回的 closer 可能为 nil。
func NewRevisionCache(cfg *config.Config) (cache.RevisionCache, func() error, error) {
	switch cfg.Scripts.RevisionCache {
	case config.RevisionCacheRedis:
		store, err := cacheredis.NewStoreFromURL(cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("[Infra] Using %s", describe("revision_cache", "redis"))
		return store, store.Close, nil

	case config.RevisionCacheEtcd:
		rc, err := cacheetcd.NewRevisionCache(cacheetcd.Config{
			Endpoints:   cfg.Etcd.Endpoints,
			DialTimeout: cfg.Etcd.DialTimeout,
			Prefix:      cfg.Etcd.Prefix,
		})
		if err != nil {
			return nil, nil, err
		}
		log.Printf("[Infra] Using %s", describe("revision_cache", "etcd"))
		return rc, rc.Close, nil

	case config.RevisionCacheMemory, "":
		log.Printf("[Infra] Using %s", describe("revision_cache", "memory"))
		return cache.NewMemoryRevisionCache(), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown revision cache %q", cfg.Scripts.RevisionCache)
	}
}

// NewScriptStore 按 scripts.store 创建本地脚本存储
func NewScriptStore(ctx context.Context, cfg *config.Config) (scriptstore.Store, error) {
	switch cfg.Scripts.Store {
	case config.ScriptStoreMinIO:
		client, err := objstore.NewClient(cfg.MinIO)
		if err != nil {
			return nil, err
		}
		if err := client.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure bucket %s: %w", client.Bucket(), err)
		}
		log.Printf("[Infra] Using %s (bucket %s)", describe("scripts_store", "minio"), client.Bucket())
		return scriptstore.NewMinIOStore(client, ""), nil

	case config.ScriptStoreS3:
		store, err := scriptstore.NewS3Store(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		log.Printf("[Infra] Using %s (bucket %s)", describe("scripts_store", "s3"), cfg.S3.Bucket)
		return store, nil

	case config.ScriptStoreFS, "":
		log.Printf("[Infra] Using %s (dir %s)", describe("scripts_store", "fs"), cfg.Scripts.Dir)
		return scriptstore.NewFSStore(cfg.Scripts.Dir), nil

	default:
		return nil, fmt.Errorf("unknown scripts store %q", cfg.Scripts.Store)
	}
}
