// Package cache 缓存层常量定义
package cache

import "time"

// ============================================================================
// Key 与 TTL
// ============================================================================

const (
	// KeyLatestRevision 最新脚本 sha 的缓存 key
	KeyLatestRevision = "ir:scripts:latest_sha"

	// TTLLatestRevision 最新 sha 的过期时间，0 表示永不过期
	TTLLatestRevision time.Duration = 0
)
