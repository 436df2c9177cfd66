package redis

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore 连接 TEST_REDIS_URL 指向的 Redis，未设置时跳过
func newTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("Redis not available")
	}
	s, err := NewStoreFromURL(url, "test:"+t.Name()+":")
	require.NoError(t, err)
	t.Cleanup(func() {
		s.client.Del(context.Background(), s.key("ir:scripts:latest_sha"))
		s.Close()
	})
	return s
}

func TestRevisionCache(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, ok := s.Get(ctx)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "abc123"))
	sha, ok := s.Get(ctx)
	assert.True(t, ok)
	assert.Equal(t, "abc123", sha)
}

func TestNewStoreFromURLInvalid(t *testing.T) {
	_, err := NewStoreFromURL("not-a-url", "")
	assert.Error(t, err)
}

func TestKeyPrefix(t *testing.T) {
	s := &Store{prefix: "dev:"}
	assert.Equal(t, "dev:ir:scripts:latest_sha", s.key("ir:scripts:latest_sha"))
}
