// Package run Run 领域 - Handler 单元测试
//
// 使用 Mock 隔离存储层，验证路由、参数绑定和查询规格的构造。
package run

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ir-api/internal/shared/model"
	"ir-api/internal/shared/storage"
	"ir-api/internal/shared/storage/specification"
)

// ============================================================================
// Mock 实现（实现 RunRepo 接口）
// ============================================================================

// mockRunRepo 记录最近一次收到的查询规格
type mockRunRepo struct {
	runs  []*model.Run
	count int64
	err   error

	calls int
	last  specification.Specification[model.Run]
}

func (m *mockRunRepo) Find(_ context.Context, spec specification.Specification[model.Run]) ([]*model.Run, error) {
	m.calls++
	m.last = spec
	if m.err != nil {
		return nil, m.err
	}
	return m.runs, nil
}

func (m *mockRunRepo) Count(_ context.Context, spec specification.Specification[model.Run]) (int64, error) {
	m.calls++
	m.last = spec
	if m.err != nil {
		return 0, m.err
	}
	return m.count, nil
}

func serve(t *testing.T, repo *mockRunRepo, target string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	NewHandler(repo).RegisterRoutes(mux)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

// ============================================================================
// 列表
// ============================================================================

func TestListByInstrument(t *testing.T) {
	start := time.Date(2023, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := &mockRunRepo{runs: []*model.Run{{
		ID:               1,
		Filename:         "/archive/NDXMARI/MAR25581.nxs",
		ExperimentNumber: 1000,
		Title:            "Sample",
		Users:            "Smith",
		RunStart:         start,
		RunEnd:           start.Add(time.Hour),
		GoodFrames:       10,
		RawFrames:        12,
		Instrument:       &model.Instrument{ID: 1, Name: "MARI"},
	}}}

	w := serve(t, repo, "/instrument/mari/runs?limit=2&offset=1&order_by=run_end&order_direction=asc")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body []map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Len(t, body, 1)
	assert.Equal(t, "MARI", body[0]["instrument_name"])
	assert.Equal(t, "/archive/NDXMARI/MAR25581.nxs", body[0]["filename"])
	assert.NotContains(t, body[0], "id")

	// 仪器名统一为大写
	filters := repo.last.Filters()
	require.Len(t, filters, 1)
	assert.Equal(t, "MARI", filters[0].Value)
	assert.Equal(t, 2, repo.last.Limit())
	assert.Equal(t, 1, repo.last.Offset())
	order, ok := repo.last.Order()
	require.True(t, ok)
	assert.Equal(t, "run_end", order.Field.Name)
	assert.Equal(t, specification.Asc, order.Direction)
}

func TestListByInstrumentDefaults(t *testing.T) {
	repo := &mockRunRepo{}
	w := serve(t, repo, "/instrument/LET/runs")
	require.Equal(t, http.StatusOK, w.Code)
	// 空结果为 [] 而非 null
	assert.JSONEq(t, `[]`, w.Body.String())

	assert.Zero(t, repo.last.Limit())
	assert.Zero(t, repo.last.Offset())
	order, ok := repo.last.Order()
	require.True(t, ok)
	assert.Equal(t, "run_start", order.Field.Name)
	assert.Equal(t, specification.Desc, order.Direction)
}

func TestListByInstrumentInvalidPage(t *testing.T) {
	for _, query := range []string{"limit=-1", "offset=-2", "limit=abc", "order_direction=up"} {
		t.Run(query, func(t *testing.T) {
			repo := &mockRunRepo{}
			w := serve(t, repo, "/instrument/MARI/runs?"+query)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Zero(t, repo.calls)
		})
	}
}

// ============================================================================
// 计数
// ============================================================================

func TestCount(t *testing.T) {
	repo := &mockRunRepo{count: 7}
	w := serve(t, repo, "/runs/count")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count": 7}`, w.Body.String())
	assert.Empty(t, repo.last.Filters())
}

func TestCountByInstrumentIgnoresPaging(t *testing.T) {
	repo := &mockRunRepo{count: 3}
	w := serve(t, repo, "/instrument/tosca/runs/count?limit=1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count": 3}`, w.Body.String())

	filters := repo.last.Filters()
	require.Len(t, filters, 1)
	assert.Equal(t, "TOSCA", filters[0].Value)
	assert.Zero(t, repo.last.Limit())
}

// ============================================================================
// 错误映射
// ============================================================================

func TestRepoErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"未知排序字段", storage.ErrUnknownField, http.StatusBadRequest, storage.ErrUnknownField.Error()},
		{"数据库故障", errors.New("connection reset"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, &mockRunRepo{err: tt.err}, "/instrument/MARI/runs")
			assert.Equal(t, tt.wantStatus, w.Code)

			var body map[string]string
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, tt.wantMsg, body["message"])
		})
	}
}
