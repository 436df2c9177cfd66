package scriptstore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"ir-api/internal/shared/objstore"
)

// MinIOStore 对象存储实现，脚本保存为 <prefix><instrument>.py
type MinIOStore struct {
	client *objstore.Client
	prefix string
}

var _ Store = (*MinIOStore)(nil)

// NewMinIOStore 创建 MinIO 存储，prefix 为空时使用 scripts/
func NewMinIOStore(client *objstore.Client, prefix string) *MinIOStore {
	if prefix == "" {
		prefix = "scripts/"
	}
	return &MinIOStore{client: client, prefix: prefix}
}

func (s *MinIOStore) key(instrument string) string {
	return s.prefix + FileName(instrument)
}

// Read 读取脚本
func (s *MinIOStore) Read(ctx context.Context, instrument string) (string, error) {
	rc, err := s.client.Download(ctx, s.key(instrument))
	if err != nil {
		if objstore.IsNotFound(err) {
			return "", fmt.Errorf("%s: %w", s.key(instrument), ErrNotFound)
		}
		return "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", s.key(instrument), err)
	}
	return string(data), nil
}

// Write 写入脚本
func (s *MinIOStore) Write(ctx context.Context, instrument, content string) error {
	return s.client.Upload(ctx, s.key(instrument), strings.NewReader(content), int64(len(content)), "text/x-python")
}
