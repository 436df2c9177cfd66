// Package redis 最新脚本版本缓存
package redis

import (
	"context"
	"errors"
	"log"

	"github.com/redis/go-redis/v9"

	"ir-api/internal/shared/cache"
)

var _ cache.RevisionCache = (*Store)(nil)

// Get 读取最新 sha
//
// Redis 不可用时按未命中处理，只记录日志。
func (s *Store) Get(ctx context.Context) (string, bool) {
	sha, err := s.client.Get(ctx, s.key(cache.KeyLatestRevision)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		log.Printf("[Redis/Cache] Failed to read latest revision: %v", err)
		return "", false
	}
	return sha, true
}

// Set 写入最新 sha
func (s *Store) Set(ctx context.Context, sha string) error {
	return s.client.Set(ctx, s.key(cache.KeyLatestRevision), sha, cache.TTLLatestRevision).Err()
}
