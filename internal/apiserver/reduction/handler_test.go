// Package reduction Reduction 领域 - Handler 单元测试
package reduction

import (
	"context"
	"encoding/json"
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
// Mock 实现（实现 ReductionRepo 接口）
// ============================================================================

type mockReductionRepo struct {
	reductions []*model.Reduction
	one        *model.Reduction
	count      int64
	err        error

	calls int
	last  specification.Specification[model.Reduction]
}

func (m *mockReductionRepo) Find(_ context.Context, spec specification.Specification[model.Reduction]) ([]*model.Reduction, error) {
	m.calls++
	m.last = spec
	return m.reductions, m.err
}

func (m *mockReductionRepo) FindOne(_ context.Context, spec specification.Specification[model.Reduction]) (*model.Reduction, error) {
	m.calls++
	m.last = spec
	return m.one, m.err
}

func (m *mockReductionRepo) Count(_ context.Context, spec specification.Specification[model.Reduction]) (int64, error) {
	m.calls++
	m.last = spec
	return m.count, m.err
}

func serve(t *testing.T, repo *mockReductionRepo, target string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	NewHandler(repo).RegisterRoutes(mux)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func sampleReduction() *model.Reduction {
	start := time.Date(2023, 3, 1, 9, 0, 0, 0, time.UTC)
	return &model.Reduction{
		ID:              42,
		ReductionState:  model.ReductionStateNotStarted,
		ReductionInputs: model.ReductionInputs{"runno": 25581},
		Script:          &model.Script{ID: 3, Script: "x = 1"},
		Runs: []*model.Run{{
			ID:               7,
			Filename:         "/archive/NDXMARI/MAR25581.nxs",
			ExperimentNumber: 1000,
			RunStart:         start,
			RunEnd:           start.Add(time.Hour),
			Instrument:       &model.Instrument{ID: 1, Name: "MARI"},
		}},
	}
}

// ============================================================================
// 详情
// ============================================================================

func TestGet(t *testing.T) {
	repo := &mockReductionRepo{one: sampleReduction()}
	w := serve(t, repo, "/reduction/42")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		ID              int64          `json:"id"`
		ReductionState  string         `json:"reduction_state"`
		ReductionInputs map[string]any `json:"reduction_inputs"`
		Script          struct {
			Value string `json:"value"`
		} `json:"script"`
		Runs []map[string]any `json:"runs"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, int64(42), body.ID)
	assert.Equal(t, string(model.ReductionStateNotStarted), body.ReductionState)
	assert.EqualValues(t, 25581, body.ReductionInputs["runno"])
	assert.Equal(t, "x = 1", body.Script.Value)
	require.Len(t, body.Runs, 1)
	assert.Equal(t, "MARI", body.Runs[0]["instrument_name"])

	filters := repo.last.Filters()
	require.Len(t, filters, 1)
	assert.Equal(t, "id", filters[0].Field.Name)
	assert.Equal(t, int64(42), filters[0].Value)
}

func TestGetMissing(t *testing.T) {
	w := serve(t, &mockReductionRepo{}, "/reduction/9999")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"message": "Resource not found"}`, w.Body.String())
}

func TestGetInvalidID(t *testing.T) {
	repo := &mockReductionRepo{}
	w := serve(t, repo, "/reduction/abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, repo.calls)
}

func TestGetNonUnique(t *testing.T) {
	w := serve(t, &mockReductionRepo{err: storage.ErrNonUniqueRecord}, "/reduction/1")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"message": "Internal server error"}`, w.Body.String())
}

// ============================================================================
// 列表
// ============================================================================

func TestListByInstrumentJoinedOrder(t *testing.T) {
	repo := &mockReductionRepo{reductions: []*model.Reduction{sampleReduction()}}
	w := serve(t, repo, "/instrument/mari/reductions?order_by=run_start&order_direction=asc&limit=5")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body []map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Len(t, body, 1)
	// 列表不含 runs
	assert.NotContains(t, body[0], "runs")

	filters := repo.last.Filters()
	require.Len(t, filters, 1)
	assert.Equal(t, "MARI", filters[0].Value)
	assert.Equal(t, 5, repo.last.Limit())
	order, ok := repo.last.Order()
	require.True(t, ok)
	assert.Equal(t, model.KindRun, order.Field.Kind)
	assert.Equal(t, "run_start", order.Field.Name)
	assert.Equal(t, specification.Asc, order.Direction)
}

func TestListByInstrumentDefaultOrder(t *testing.T) {
	repo := &mockReductionRepo{}
	w := serve(t, repo, "/instrument/MARI/reductions")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	order, ok := repo.last.Order()
	require.True(t, ok)
	assert.Equal(t, model.KindReduction, order.Field.Kind)
	assert.Equal(t, "id", order.Field.Name)
	assert.Equal(t, specification.Desc, order.Direction)
}

func TestListByExperiment(t *testing.T) {
	repo := &mockReductionRepo{}
	w := serve(t, repo, "/experiment/1000/reductions?offset=2")
	require.Equal(t, http.StatusOK, w.Code)

	filters := repo.last.Filters()
	require.Len(t, filters, 1)
	assert.Equal(t, "experiment_number", filters[0].Field.Name)
	assert.Equal(t, int64(1000), filters[0].Value)
	assert.Equal(t, 2, repo.last.Offset())

	w = serve(t, repo, "/experiment/abc/reductions")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListUnknownOrderField(t *testing.T) {
	w := serve(t, &mockReductionRepo{err: storage.ErrUnknownField}, "/instrument/MARI/reductions?order_by=nope")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ============================================================================
// 计数
// ============================================================================

func TestCounts(t *testing.T) {
	repo := &mockReductionRepo{count: 12}
	w := serve(t, repo, "/reductions/count")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count": 12}`, w.Body.String())
	assert.Empty(t, repo.last.Filters())

	w = serve(t, repo, "/instrument/let/reductions/count")
	require.Equal(t, http.StatusOK, w.Code)
	filters := repo.last.Filters()
	require.Len(t, filters, 1)
	assert.Equal(t, "LET", filters[0].Value)
	assert.Zero(t, repo.last.Limit())
}
