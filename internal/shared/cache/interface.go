// Package cache 缓存层抽象接口
//
// 目前只有一个缓存槽：脚本仓库最近一次解析到的 commit sha。
// 由内存、Redis 或 etcd 实现，按配置注入。
package cache

import (
	"context"
)

// ============================================================================
// 缓存接口定义
// ============================================================================

// RevisionCache 最新脚本版本缓存
//
// 单槽位，尽力而为：读到的值可能已经过期，仅用于本地兜底脚本的版本标注。
// 实现必须可以被多个请求并发访问。
type RevisionCache interface {
	// Get 返回缓存的 sha，从未写入时 ok 为 false
	Get(ctx context.Context) (sha string, ok bool)
	// Set 覆盖缓存的 sha
	Set(ctx context.Context, sha string) error
}
