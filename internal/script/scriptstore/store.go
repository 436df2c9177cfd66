// Package scriptstore 本地脚本存储
//
// 远程脚本仓库不可用时，从这里读取上一次成功获取的脚本；
// 每次成功获取最新脚本后写回，覆盖旧内容（后写者胜）。
package scriptstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/containerd/errdefs"
)

// ErrNotFound 本地没有该仪器的脚本
var ErrNotFound = fmt.Errorf("local script not found: %w", errdefs.ErrNotFound)

// Store 本地脚本存储接口
//
// instrument 按调用方传入的原样作为 key，调用方负责路径安全检查。
type Store interface {
	Read(ctx context.Context, instrument string) (string, error)
	Write(ctx context.Context, instrument, content string) error
}

// FileName 返回仪器脚本的文件名
func FileName(instrument string) string {
	return instrument + ".py"
}

// IsNotFound 判断错误是否为脚本不存在
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
