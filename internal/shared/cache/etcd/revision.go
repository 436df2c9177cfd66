// Package etcd 基于 etcd 的最新脚本版本缓存
//
// 多副本部署时可以共享同一个 sha 槽位。
package etcd

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"ir-api/internal/shared/cache"
)

// Config etcd 配置
type Config struct {
	Endpoints   []string
	DialTimeout time.Duration
	Prefix      string
}

// RevisionCache etcd 实现
type RevisionCache struct {
	client *clientv3.Client
	key    string
}

var _ cache.RevisionCache = (*RevisionCache)(nil)

// NewRevisionCache 连接 etcd 并创建缓存
func NewRevisionCache(cfg Config) (*RevisionCache, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("etcd endpoints are required")
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "/ir-api"
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := client.Status(ctx, cfg.Endpoints[0]); err != nil {
		client.Close()
		return nil, fmt.Errorf("etcd health check failed: %w", err)
	}

	log.Printf("[etcd] Connected to %v", cfg.Endpoints)
	return NewRevisionCacheFromClient(client, cfg.Prefix), nil
}

// NewRevisionCacheFromClient 从现有客户端创建缓存
func NewRevisionCacheFromClient(client *clientv3.Client, prefix string) *RevisionCache {
	return &RevisionCache{client: client, key: revisionKey(prefix)}
}

// revisionKey 将缓存 key 挂在前缀下，如 /ir-api/scripts/latest_sha
func revisionKey(prefix string) string {
	name := strings.ReplaceAll(strings.TrimPrefix(cache.KeyLatestRevision, "ir:"), ":", "/")
	return strings.TrimRight(prefix, "/") + "/" + name
}

// Get 实现 cache.RevisionCache
func (c *RevisionCache) Get(ctx context.Context) (string, bool) {
	resp, err := c.client.Get(ctx, c.key)
	if err != nil {
		log.Printf("[etcd] Failed to read latest revision: %v", err)
		return "", false
	}
	if len(resp.Kvs) == 0 {
		return "", false
	}
	return string(resp.Kvs[0].Value), true
}

// Set 实现 cache.RevisionCache
func (c *RevisionCache) Set(ctx context.Context, sha string) error {
	if _, err := c.client.Put(ctx, c.key, sha); err != nil {
		return fmt.Errorf("failed to put latest revision: %w", err)
	}
	return nil
}

// Close 关闭连接
func (c *RevisionCache) Close() error {
	return c.client.Close()
}
