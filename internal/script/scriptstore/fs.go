package scriptstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FSStore 本地文件系统实现，脚本保存为 <dir>/<instrument>.py
type FSStore struct {
	dir string
}

var _ Store = (*FSStore)(nil)

// NewFSStore 创建文件系统存储
func NewFSStore(dir string) *FSStore {
	return &FSStore{dir: dir}
}

// Dir 返回存储目录
func (s *FSStore) Dir() string {
	return s.dir
}

func (s *FSStore) path(instrument string) string {
	return filepath.Join(s.dir, FileName(instrument))
}

// Read 读取脚本
func (s *FSStore) Read(_ context.Context, instrument string) (string, error) {
	data, err := os.ReadFile(s.path(instrument))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%s: %w", FileName(instrument), ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", FileName(instrument), err)
	}
	return string(data), nil
}

// Write 写入脚本，已存在时覆盖
//
// 先写入同目录临时文件再 rename，并发读取只会看到旧内容或完整的新内容。
func (s *FSStore) Write(_ context.Context, instrument, content string) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create script dir: %w", err)
	}
	name := FileName(instrument)
	tmp, err := os.CreateTemp(s.dir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), s.path(instrument)); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
