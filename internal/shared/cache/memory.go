package cache

import (
	"context"
	"sync/atomic"
)

// MemoryRevisionCache 进程内实现
type MemoryRevisionCache struct {
	sha atomic.Pointer[string]
}

var _ RevisionCache = (*MemoryRevisionCache)(nil)

// NewMemoryRevisionCache 创建进程内缓存
func NewMemoryRevisionCache() *MemoryRevisionCache {
	return &MemoryRevisionCache{}
}

// Get 实现 RevisionCache
func (c *MemoryRevisionCache) Get(_ context.Context) (string, bool) {
	p := c.sha.Load()
	if p == nil {
		return "", false
	}
	return *p, true
}

// Set 实现 RevisionCache
func (c *MemoryRevisionCache) Set(_ context.Context, sha string) error {
	c.sha.Store(&sha)
	return nil
}
