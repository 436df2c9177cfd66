package scriptstore

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/containerd/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ir-api/internal/config"
)

// ============================================================================
// FSStore
// ============================================================================

func TestFSStoreReadWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "local_scripts")
	s := NewFSStore(dir)
	ctx := context.Background()

	_, err := s.Read(ctx, "MARI")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.True(t, errdefs.IsNotFound(err))

	require.NoError(t, s.Write(ctx, "MARI", "from mantid.simpleapi import *\n"))
	got, err := s.Read(ctx, "MARI")
	require.NoError(t, err)
	assert.Equal(t, "from mantid.simpleapi import *\n", got)

	// 覆盖写
	require.NoError(t, s.Write(ctx, "MARI", "x = 1"))
	got, err = s.Read(ctx, "MARI")
	require.NoError(t, err)
	assert.Equal(t, "x = 1", got)

	_, err = os.Stat(filepath.Join(dir, "MARI.py"))
	assert.NoError(t, err)
}

func TestFSStoreKeepsInstrumentCase(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mari.py"), []byte("lower"), 0644))
	s := NewFSStore(dir)

	got, err := s.Read(context.Background(), "mari")
	require.NoError(t, err)
	assert.Equal(t, "lower", got)
	assert.Equal(t, dir, s.Dir())
}

func TestFSStoreConcurrentReadSeesWholeScript(t *testing.T) {
	dir := t.TempDir()
	s := NewFSStore(dir)
	ctx := context.Background()
	a := strings.Repeat("a", 256<<10)
	b := strings.Repeat("b", 128<<10)
	require.NoError(t, s.Write(ctx, "MARI", a))

	done := make(chan error, 1)
	go func() {
		for i := 0; i < 200; i++ {
			content := a
			if i%2 == 0 {
				content = b
			}
			if err := s.Write(ctx, "MARI", content); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()

	for {
		select {
		case err := <-done:
			require.NoError(t, err)
			// 不残留临时文件
			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, "MARI.py", entries[0].Name())
			return
		default:
		}
		got, err := s.Read(ctx, "MARI")
		require.NoError(t, err)
		if got != a && got != b {
			t.Fatalf("torn read: %d bytes", len(got))
		}
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "TOSCA.py", FileName("TOSCA"))
}

// ============================================================================
// S3Store（内存假传输层）
// ============================================================================

// fakeS3 只实现 GetObject / PutObject
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	// path-style: /<bucket>/<key>
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	switch req.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		f.objects[key] = body
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{"ETag": {"\"etag\""}}}, nil
	case http.MethodGet:
		if body, ok := f.objects[key]; ok {
			return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(body)), Header: http.Header{
				"Content-Type": {"text/x-python"},
			}}, nil
		}
		msg := `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`
		return &http.Response{StatusCode: http.StatusNotFound, Body: io.NopCloser(strings.NewReader(msg)), Header: http.Header{
			"Content-Type": {"application/xml"},
		}}, nil
	}
	return &http.Response{StatusCode: http.StatusNotImplemented, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}}, nil
}

func newFakeS3Store(t *testing.T) (*S3Store, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: map[string][]byte{}}
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion("eu-west-2"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	require.NoError(t, err)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: fake}
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String("https://mock.s3.local")
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})
	return NewS3StoreFromClient(client, "scripts-bucket", "scripts/"), fake
}

func TestS3StoreReadWrite(t *testing.T) {
	s, fake := newFakeS3Store(t)
	ctx := context.Background()

	_, err := s.Read(ctx, "OSIRIS")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	require.NoError(t, s.Write(ctx, "OSIRIS", "cycle = \"cycle_19_4\""))
	assert.Contains(t, fake.objects, "scripts/OSIRIS.py")

	got, err := s.Read(ctx, "OSIRIS")
	require.NoError(t, err)
	assert.Equal(t, "cycle = \"cycle_19_4\"", got)
}

func TestNewS3StoreRequiresBucket(t *testing.T) {
	_, err := NewS3Store(context.Background(), config.S3Config{Region: "eu-west-2"})
	assert.Error(t, err)
}
