// Package storage 定义存储层领域错误
//
// 这些错误用于隔离业务层与底层存储引擎的错误类型，
// 通过 containerd/errdefs 的错误分类供 HTTP 边界统一映射状态码。
package storage

import (
	"fmt"

	"github.com/containerd/errdefs"
)

var (
	// ErrMissingRecord 引用的记录不存在（reduction、sha 等）
	ErrMissingRecord = fmt.Errorf("missing record: %w", errdefs.ErrNotFound)

	// ErrNonUniqueRecord 期望唯一的查询命中多行，属于数据完整性问题
	ErrNonUniqueRecord = fmt.Errorf("non unique record: %w", errdefs.ErrInternal)

	// ErrUnknownField 查询规格引用了不存在的字段
	ErrUnknownField = fmt.Errorf("unknown field: %w", errdefs.ErrInvalidArgument)
)
