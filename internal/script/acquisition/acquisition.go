// Package acquisition 获取处理脚本
//
// 脚本优先从远程脚本仓库获取，远程返回非 200 时退回本地缓存副本；
// 网络不可达视为致命错误，不做兜底。成功获取的最新脚本在响应之后
// 异步写回本地存储。
package acquisition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/containerd/errdefs"

	"ir-api/internal/config"
	"ir-api/internal/script/scriptstore"
	"ir-api/internal/shared/cache"
	"ir-api/internal/shared/model"
	"ir-api/internal/shared/storage"
	"ir-api/pkg/logging"
)

var (
	// ErrUnsafePath 仪器名包含路径字符
	ErrUnsafePath = fmt.Errorf("unsafe path: %w", errdefs.ErrInvalidArgument)

	// ErrMissingScript 远程和本地都没有可用脚本
	ErrMissingScript = fmt.Errorf("missing script: %w", errdefs.ErrNotFound)

	// ErrEmptyScript 待写回的脚本内容为空
	ErrEmptyScript = fmt.Errorf("empty script: %w", errdefs.ErrFailedPrecondition)
)

// 获取来源，用于日志和指标
const (
	SourceRemote = "remote"
	SourceLocal  = "local"
	SourceSHA    = "sha"
)

const writeBackTimeout = 30 * time.Second

// Recorder 获取结果观察者（Prometheus 指标）
type Recorder interface {
	RecordScriptFetch(source string, err error, duration time.Duration)
	RecordWriteBack(err error)
}

type noopRecorder struct{}

func (noopRecorder) RecordScriptFetch(string, error, time.Duration) {}
func (noopRecorder) RecordWriteBack(error)                          {}

// Acquirer 脚本获取器
type Acquirer struct {
	client    *http.Client
	rawBase   string
	branch    string
	commitURL string

	store     scriptstore.Store
	revisions cache.RevisionCache
	recorder  Recorder
	logger    *logging.Logger

	pending sync.WaitGroup
}

// New 创建脚本获取器
//
// revisions 为 nil 时不缓存版本号。
func New(cfg config.ScriptsConfig, store scriptstore.Store, revisions cache.RevisionCache) *Acquirer {
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if revisions == nil {
		revisions = cache.NoOpRevisionCache{}
	}
	branch := cfg.Branch
	if branch == "" {
		branch = "main"
	}
	return &Acquirer{
		client:    &http.Client{Timeout: timeout},
		rawBase:   strings.TrimRight(cfg.RawBaseURL, "/"),
		branch:    branch,
		commitURL: cfg.CommitURL,
		store:     store,
		revisions: revisions,
		recorder:  noopRecorder{},
		logger:    logging.Default("acquisition"),
	}
}

// SetRecorder 设置指标观察者
func (a *Acquirer) SetRecorder(r Recorder) {
	if r == nil {
		r = noopRecorder{}
	}
	a.recorder = r
}

// SetHTTPClient 替换 HTTP 客户端
func (a *Acquirer) SetHTTPClient(c *http.Client) {
	a.client = c
}

// CheckPath 拒绝包含 . / \ 的名称，必须在任何 I/O 之前调用
func CheckPath(name string) error {
	if strings.ContainsAny(name, `./\`) {
		return fmt.Errorf("%q: %w", name, ErrUnsafePath)
	}
	return nil
}

// ============================================================================
// 获取
// ============================================================================

// Latest 获取仪器的最新脚本
//
// 远程返回 200 时 IsLatest 为 true，并尽力解析最新 commit sha；
// 其他状态码退回本地副本，本地副本的 SHA 取版本缓存中的值（可能已过期）。
func (a *Acquirer) Latest(ctx context.Context, instrument string) (*model.PreScript, error) {
	if err := CheckPath(instrument); err != nil {
		return nil, err
	}

	start := time.Now()
	url := a.scriptURL(a.branch, instrument)
	body, status, err := a.get(ctx, url)
	if err != nil {
		err = fmt.Errorf("fetch %s script from remote: %w", instrument, err)
		a.fetched(instrument, SourceRemote, start, err)
		return nil, err
	}

	if status != http.StatusOK {
		a.logger.WithInstrument(instrument).Warn("Could not get script from remote",
			"status", status, "url", url)
		return a.local(ctx, instrument)
	}

	script := model.NewPreScript(body, true, nil)
	if sha, ok := a.LatestRevision(ctx); ok {
		script.SHA = &sha
		if err := a.revisions.Set(ctx, sha); err != nil {
			a.logger.WithInstrument(instrument).WithError(err).Warn("Failed to cache latest revision")
		}
	}
	a.fetched(instrument, SourceRemote, start, nil)
	return script, nil
}

// local 从本地存储读取脚本
func (a *Acquirer) local(ctx context.Context, instrument string) (*model.PreScript, error) {
	start := time.Now()
	content, err := a.store.Read(ctx, instrument)
	if err != nil {
		if scriptstore.IsNotFound(err) {
			err = fmt.Errorf("no script for instrument %s: %w", instrument, ErrMissingScript)
		} else {
			err = fmt.Errorf("read local %s script: %w", instrument, err)
		}
		a.fetched(instrument, SourceLocal, start, err)
		return nil, err
	}

	script := model.NewPreScript(content, false, nil)
	if sha, ok := a.revisions.Get(ctx); ok {
		script.SHA = &sha
	}
	a.fetched(instrument, SourceLocal, start, nil)
	return script, nil
}

// BySHA 获取指定 commit 的脚本，不做本地兜底
func (a *Acquirer) BySHA(ctx context.Context, instrument, sha string) (*model.PreScript, error) {
	if err := CheckPath(instrument); err != nil {
		return nil, err
	}
	if err := CheckPath(sha); err != nil {
		return nil, err
	}

	start := time.Now()
	body, status, err := a.get(ctx, a.scriptURL(sha, instrument))
	switch {
	case err != nil:
		err = fmt.Errorf("fetch %s script at %s: %w", instrument, sha, err)
	case status == http.StatusNotFound:
		err = fmt.Errorf("no %s script at %s: %w", instrument, sha, storage.ErrMissingRecord)
	case status != http.StatusOK:
		err = fmt.Errorf("fetch %s script at %s: unexpected status %d", instrument, sha, status)
	}
	a.fetched(instrument, SourceSHA, start, err)
	if err != nil {
		return nil, err
	}

	pinned := sha
	return model.NewPreScript(body, false, &pinned), nil
}

// LatestRevision 查询脚本仓库最新 commit sha，任何失败都返回 false
func (a *Acquirer) LatestRevision(ctx context.Context) (string, bool) {
	if a.commitURL == "" {
		return "", false
	}
	body, status, err := a.get(ctx, a.commitURL)
	if err != nil || status != http.StatusOK {
		a.logger.WithError(err).Warn("Could not get latest commit sha", "status", status)
		return "", false
	}

	var commit struct {
		SHA string `json:"sha"`
	}
	if err := json.Unmarshal([]byte(body), &commit); err != nil || commit.SHA == "" {
		a.logger.WithError(err).Warn("Could not decode latest commit sha")
		return "", false
	}
	return commit.SHA, true
}

// scriptURL {raw_base}/{ref}/{INSTRUMENT}/reduce.py
func (a *Acquirer) scriptURL(ref, instrument string) string {
	return fmt.Sprintf("%s/%s/%s/reduce.py", a.rawBase, ref, strings.ToUpper(instrument))
}

// get 发起 GET 请求，返回响应体与状态码；err 仅表示连接层失败
func (a *Acquirer) get(ctx context.Context, url string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resp.StatusCode, err
	}
	return string(data), resp.StatusCode, nil
}

// fetched 记录一次获取
func (a *Acquirer) fetched(instrument, source string, start time.Time, err error) {
	d := time.Since(start)
	a.recorder.RecordScriptFetch(source, err, d)
	a.logger.ScriptFetchLog(instrument, source, d, err)
}

// ============================================================================
// 写回
// ============================================================================

// WriteBack 将最新脚本的原始文本写回本地存储
//
// 原始文本为空返回 ErrEmptyScript；非最新脚本直接返回。
func (a *Acquirer) WriteBack(ctx context.Context, instrument string, script *model.PreScript) error {
	if script.OriginalValue() == "" {
		return fmt.Errorf("write back %s script: %w", instrument, ErrEmptyScript)
	}
	if !script.IsLatest {
		return nil
	}
	if err := CheckPath(instrument); err != nil {
		return err
	}
	return a.store.Write(ctx, instrument, script.OriginalValue())
}

// WriteBackAsync 在后台执行 WriteBack，失败只记录日志和指标
func (a *Acquirer) WriteBackAsync(instrument string, script *model.PreScript) {
	a.pending.Add(1)
	go func() {
		defer a.pending.Done()

		ctx, cancel := context.WithTimeout(context.Background(), writeBackTimeout)
		defer cancel()

		err := a.WriteBack(ctx, instrument, script)
		a.recorder.RecordWriteBack(err)
		if err != nil {
			a.logger.WithInstrument(instrument).WithError(err).Error("Failed to write back script")
		}
	}()
}

// Wait 等待所有后台写回完成
func (a *Acquirer) Wait() {
	a.pending.Wait()
}

// IsUnsafePath 判断错误是否为 ErrUnsafePath
func IsUnsafePath(err error) bool {
	return errors.Is(err, ErrUnsafePath)
}

// IsMissingScript 判断错误是否为 ErrMissingScript
func IsMissingScript(err error) bool {
	return errors.Is(err, ErrMissingScript)
}
