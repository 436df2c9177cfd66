// Package cache 缓存层 mock 实现
package cache

import (
	"context"
)

// ============================================================================
// NoOpRevisionCache - 空操作的 RevisionCache 实现
// ============================================================================

// NoOpRevisionCache 不保存任何值，未配置缓存时使用
type NoOpRevisionCache struct{}

var _ RevisionCache = NoOpRevisionCache{}

// Get 总是返回未命中
func (NoOpRevisionCache) Get(context.Context) (string, bool) { return "", false }

// Set 丢弃写入
func (NoOpRevisionCache) Set(context.Context, string) error { return nil }
