// Package repository SQLite 集成测试
//
// 使用 SQLite 内存数据库验证规格执行、计数和唯一性检查。
// 无需外部数据库依赖，可在任何环境下运行。
package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"ir-api/internal/shared/model"
	"ir-api/internal/shared/storage"
	"ir-api/internal/shared/storage/dbutil"
	sqlitedriver "ir-api/internal/shared/storage/driver/sqlite"
	"ir-api/internal/shared/storage/specification"

	"github.com/containerd/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore 创建用于测试的 SQLite 内存数据库 Store
func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sqlitedriver.Open(":memory:")
	require.NoError(t, err)
	dialect := sqlitedriver.NewDialect()
	require.NoError(t, dialect.AutoMigrate(db))
	store := NewStore(db, dialect)
	t.Cleanup(func() { store.Close() })
	return store
}

// fixture 测试数据
type fixture struct {
	mari, tosca *model.Instrument
	runs        []*model.Run
}

var baseTime = time.Date(2023, 3, 1, 9, 0, 0, 0, time.UTC)

// seed 写入 MARI 5 个 Run、TOSCA 2 个 Run
//
// MARI Run 的 run_start 依次递增 1 小时，实验编号按奇偶分为 1000/1001。
func seed(t *testing.T, s *Store) fixture {
	t.Helper()
	ctx := context.Background()
	f := fixture{
		mari:  &model.Instrument{Name: "MARI"},
		tosca: &model.Instrument{Name: "TOSCA"},
	}
	require.NoError(t, s.CreateInstrument(ctx, f.mari))
	require.NoError(t, s.CreateInstrument(ctx, f.tosca))

	for i := 0; i < 5; i++ {
		run := &model.Run{
			Filename:         fmt.Sprintf("/archive/NDXMARI/MAR%d.nxs", 25580+i),
			ExperimentNumber: 1000 + int64(i%2),
			Title:            fmt.Sprintf("Sample %c", 'E'-i),
			Users:            "Smith, Jones",
			RunStart:         baseTime.Add(time.Duration(i) * time.Hour),
			RunEnd:           baseTime.Add(time.Duration(i)*time.Hour + 30*time.Minute),
			GoodFrames:       int64(1000 * (i + 1)),
			RawFrames:        int64(1200 * (i + 1)),
			InstrumentID:     f.mari.ID,
		}
		require.NoError(t, s.CreateRun(ctx, run))
		f.runs = append(f.runs, run)
	}
	for i := 0; i < 2; i++ {
		run := &model.Run{
			Filename:         fmt.Sprintf("/archive/NDXTOSCA/TSC%d.nxs", 25240+i),
			ExperimentNumber: 2000,
			Title:            "Tosca sample",
			Users:            "Brown",
			RunStart:         baseTime.Add(-time.Duration(i+1) * time.Hour),
			RunEnd:           baseTime,
			GoodFrames:       10,
			RawFrames:        12,
			InstrumentID:     f.tosca.ID,
		}
		require.NoError(t, s.CreateRun(ctx, run))
		f.runs = append(f.runs, run)
	}
	return f
}

// createReduction 创建 Reduction 并关联 Run
func createReduction(t *testing.T, s *Store, script *model.Script, inputs model.ReductionInputs, runs ...*model.Run) *model.Reduction {
	t.Helper()
	ctx := context.Background()
	r := &model.Reduction{ReductionInputs: inputs}
	if script != nil {
		r.ScriptID = &script.ID
	}
	require.NoError(t, s.CreateReduction(ctx, r))
	for _, run := range runs {
		require.NoError(t, s.LinkRunReduction(ctx, run.ID, r.ID))
	}
	return r
}

func runIDs(runs []*model.Run) []int64 {
	ids := make([]int64, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	return ids
}

func reductionIDs(reductions []*model.Reduction) []int64 {
	ids := make([]int64, len(reductions))
	for i, r := range reductions {
		ids[i] = r.ID
	}
	return ids
}

// ============================================================================
// Dialect 基础测试
// ============================================================================

func TestDialectTypes(t *testing.T) {
	d := sqlitedriver.NewDialect()
	assert.Equal(t, dbutil.DriverSQLite, d.DriverType())
	assert.Equal(t, "-1", d.UnboundedLimit())
}

func TestRebind(t *testing.T) {
	d := sqlitedriver.NewDialect()
	assert.Equal(t, "SELECT * FROM t WHERE id = ? AND name = ?",
		d.Rebind("SELECT * FROM t WHERE id = $1 AND name = $2"))
	// 应去除 PG 类型转换
	assert.Equal(t, "INSERT INTO t (inputs) VALUES (?)",
		d.Rebind("INSERT INTO t (inputs) VALUES ($1::jsonb)"))
}

// ============================================================================
// Run 查询测试
// ============================================================================

func TestRunsByInstrument(t *testing.T) {
	s := newTestStore(t)
	f := seed(t, s)
	repo := NewRunRepo(s)
	ctx := context.Background()

	runs, err := repo.Find(ctx, specification.RunsByInstrument("MARI", specification.Page{}))
	require.NoError(t, err)
	require.Len(t, runs, 5)

	// 默认按 run_start 倒序
	assert.Equal(t, f.runs[4].ID, runs[0].ID)
	assert.Equal(t, f.runs[0].ID, runs[4].ID)
	for _, r := range runs {
		require.NotNil(t, r.Instrument)
		assert.Equal(t, "MARI", r.InstrumentName())
	}
	assert.True(t, runs[0].RunStart.Equal(f.runs[4].RunStart))

	none, err := repo.Find(ctx, specification.RunsByInstrument("LET", specification.Page{}))
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestRunsOrderDirectionReverses(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	repo := NewRunRepo(s)
	ctx := context.Background()

	for _, field := range specification.RunOrderFields {
		t.Run(field, func(t *testing.T) {
			asc, err := repo.Find(ctx, specification.RunsByInstrument("MARI",
				specification.Page{OrderBy: field, Direction: specification.Asc}))
			require.NoError(t, err)
			desc, err := repo.Find(ctx, specification.RunsByInstrument("MARI",
				specification.Page{OrderBy: field, Direction: specification.Desc}))
			require.NoError(t, err)

			require.Len(t, asc, 5)
			reversed := runIDs(desc)
			for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
				reversed[i], reversed[j] = reversed[j], reversed[i]
			}
			assert.Equal(t, runIDs(asc), reversed)
		})
	}
}

func TestRunsPagination(t *testing.T) {
	s := newTestStore(t)
	f := seed(t, s)
	repo := NewRunRepo(s)
	ctx := context.Background()

	page := specification.Page{Limit: 2, Offset: 1, OrderBy: "id", Direction: specification.Asc}
	runs, err := repo.Find(ctx, specification.RunsByInstrument("MARI", page))
	require.NoError(t, err)
	assert.Equal(t, []int64{f.runs[1].ID, f.runs[2].ID}, runIDs(runs))

	// 只有 offset
	runs, err = repo.Find(ctx, specification.RunsByInstrument("MARI",
		specification.Page{Offset: 3, OrderBy: "id", Direction: specification.Asc}))
	require.NoError(t, err)
	assert.Equal(t, []int64{f.runs[3].ID, f.runs[4].ID}, runIDs(runs))

	// limit=0 等价于不分页
	all, err := repo.Find(ctx, specification.RunsByInstrument("MARI", specification.Page{Limit: 0}))
	require.NoError(t, err)
	n, err := repo.Count(ctx, specification.RunsByInstrument("MARI", specification.Page{}))
	require.NoError(t, err)
	assert.Equal(t, int64(len(all)), n)
}

func TestRunsCountIgnoresPagination(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	repo := NewRunRepo(s)
	ctx := context.Background()

	pages := []specification.Page{
		{},
		{Limit: 1},
		{Limit: 2, Offset: 4},
		{Offset: 100, OrderBy: "filename", Direction: specification.Asc},
	}
	for _, p := range pages {
		n, err := repo.Count(ctx, specification.RunsByInstrument("MARI", p))
		require.NoError(t, err)
		assert.Equal(t, int64(5), n, "page %+v", p)
	}

	total, err := repo.Count(ctx, specification.All[model.Run](specification.Page{Limit: 1}))
	require.NoError(t, err)
	assert.Equal(t, int64(7), total)
}

func TestRunsByExperimentNumber(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	repo := NewRunRepo(s)

	runs, err := repo.Find(context.Background(), specification.RunsByExperimentNumber(1000, specification.Page{}))
	require.NoError(t, err)
	assert.Len(t, runs, 3)
	for _, r := range runs {
		assert.Equal(t, int64(1000), r.ExperimentNumber)
	}
}

func TestUnknownOrderField(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	repo := NewRunRepo(s)

	_, err := repo.Find(context.Background(),
		specification.RunsByInstrument("MARI", specification.Page{OrderBy: "title; DROP TABLE runs"}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrUnknownField))
	assert.True(t, errdefs.IsInvalidArgument(err))
}

// ============================================================================
// FindOne 测试
// ============================================================================

func TestFindOne(t *testing.T) {
	s := newTestStore(t)
	f := seed(t, s)
	repo := NewRunRepo(s)
	ctx := context.Background()

	t.Run("single match", func(t *testing.T) {
		run, err := repo.FindOne(ctx, specification.ByID[model.Run](f.runs[2].ID))
		require.NoError(t, err)
		require.NotNil(t, run)
		assert.Equal(t, f.runs[2].Filename, run.Filename)
		assert.Equal(t, "MARI", run.InstrumentName())
	})

	t.Run("absent", func(t *testing.T) {
		run, err := repo.FindOne(ctx, specification.ByID[model.Run](9999))
		require.NoError(t, err)
		assert.Nil(t, run)
	})

	t.Run("non unique", func(t *testing.T) {
		_, err := repo.FindOne(ctx, specification.RunsByExperimentNumber(2000, specification.Page{}))
		require.Error(t, err)
		assert.True(t, errors.Is(err, storage.ErrNonUniqueRecord))
		assert.True(t, errdefs.IsInternal(err))
	})
}

// ============================================================================
// Reduction 查询测试
// ============================================================================

func TestReductionHydration(t *testing.T) {
	s := newTestStore(t)
	f := seed(t, s)
	ctx := context.Background()

	sha := "a1b2c3d"
	script := &model.Script{Script: "print('hello')", SHA: &sha}
	require.NoError(t, s.CreateScript(ctx, script))

	inputs := model.ReductionInputs{"ei": "'auto'", "sam_mass": 0.0, "runno": 25581}
	created := createReduction(t, s, script, inputs, f.runs[1], f.runs[0])

	repo := NewReductionRepo(s)
	r, err := repo.FindOne(ctx, specification.ByID[model.Reduction](created.ID))
	require.NoError(t, err)
	require.NotNil(t, r)

	assert.Equal(t, model.ReductionStateNotStarted, r.ReductionState)
	assert.Nil(t, r.ReductionStart)
	assert.Nil(t, r.ReductionOutputs)
	require.NotNil(t, r.Script)
	assert.Equal(t, "print('hello')", r.Script.Script)
	require.NotNil(t, r.Script.SHA)
	assert.Equal(t, sha, *r.Script.SHA)

	ei, ok := r.ReductionInputs.Lookup("ei")
	require.True(t, ok)
	assert.Equal(t, "'auto'", ei)
	runno, _ := r.ReductionInputs.Lookup("runno")
	assert.Equal(t, "25581", fmt.Sprint(runno))

	// 关联 Run 按 id 升序，并带有仪器
	require.Len(t, r.Runs, 2)
	assert.Equal(t, []int64{f.runs[0].ID, f.runs[1].ID}, runIDs(r.Runs))
	assert.Equal(t, "MARI", r.Runs[0].InstrumentName())
}

func TestReductionWithoutScript(t *testing.T) {
	s := newTestStore(t)
	f := seed(t, s)
	created := createReduction(t, s, nil, nil, f.runs[5])

	r, err := NewReductionRepo(s).FindOne(context.Background(), specification.ByID[model.Reduction](created.ID))
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Nil(t, r.Script)
	assert.Empty(t, r.ReductionInputs)
	require.Len(t, r.Runs, 1)
	assert.Equal(t, "TOSCA", r.Runs[0].InstrumentName())
}

func TestReductionsByInstrument(t *testing.T) {
	s := newTestStore(t)
	f := seed(t, s)
	repo := NewReductionRepo(s)
	ctx := context.Background()

	var mari []*model.Reduction
	for i := 0; i < 5; i++ {
		mari = append(mari, createReduction(t, s, nil, nil, f.runs[i]))
	}
	createReduction(t, s, nil, nil, f.runs[5])

	n, err := repo.Count(ctx, specification.ReductionsByInstrument("MARI", specification.Page{Limit: 2}))
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	// 按关联 Run 的 run_start 正序
	got, err := repo.Find(ctx, specification.ReductionsByInstrument("MARI",
		specification.Page{OrderBy: "run_start", Direction: specification.Asc}))
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i, r := range got {
		assert.Equal(t, mari[i].ID, r.ID)
	}

	// experiment_title 映射到 Run.title，标题依次为 E D C B A
	got, err = repo.Find(ctx, specification.ReductionsByInstrument("MARI",
		specification.Page{OrderBy: "experiment_title", Direction: specification.Asc, Limit: 1}))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, mari[4].ID, got[0].ID)

	// 分页后倒序
	got, err = repo.Find(ctx, specification.ReductionsByInstrument("MARI",
		specification.Page{OrderBy: "run_start", Direction: specification.Desc, Limit: 2, Offset: 1}))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, mari[3].ID, got[0].ID)
	assert.Equal(t, mari[2].ID, got[1].ID)
}

func TestReductionsOrderDirectionReverses(t *testing.T) {
	s := newTestStore(t)
	f := seed(t, s)
	repo := NewReductionRepo(s)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		createReduction(t, s, nil, nil, f.runs[i])
	}

	for _, field := range specification.ReductionByInstrumentOrderFields() {
		t.Run(field, func(t *testing.T) {
			asc, err := repo.Find(ctx, specification.ReductionsByInstrument("MARI",
				specification.Page{OrderBy: field, Direction: specification.Asc}))
			require.NoError(t, err)
			desc, err := repo.Find(ctx, specification.ReductionsByInstrument("MARI",
				specification.Page{OrderBy: field, Direction: specification.Desc}))
			require.NoError(t, err)

			require.Len(t, asc, 5)
			reversed := reductionIDs(desc)
			slices.Reverse(reversed)
			assert.Equal(t, reductionIDs(asc), reversed)
		})
	}
}

func TestReductionsByExperimentNumber(t *testing.T) {
	s := newTestStore(t)
	f := seed(t, s)
	repo := NewReductionRepo(s)
	ctx := context.Background()

	a := createReduction(t, s, nil, nil, f.runs[0])
	b := createReduction(t, s, nil, nil, f.runs[2])
	createReduction(t, s, nil, nil, f.runs[1])

	got, err := repo.Find(ctx, specification.ReductionsByExperimentNumber(1000, specification.Page{}))
	require.NoError(t, err)
	require.Len(t, got, 2)
	// 默认按 id 倒序
	assert.Equal(t, b.ID, got[0].ID)
	assert.Equal(t, a.ID, got[1].ID)

	n, err := repo.Count(ctx, specification.ReductionsByExperimentNumber(1000, specification.Page{Limit: 1}))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestScriptRepo(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	script := &model.Script{Script: "x = 1"}
	require.NoError(t, s.CreateScript(ctx, script))

	got, err := NewScriptRepo(s).FindOne(ctx, specification.ByID[model.Script](script.ID))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.SHA)

	n, err := NewInstrumentRepo(s).Count(ctx, specification.All[model.Instrument](specification.Page{}))
	require.NoError(t, err)
	assert.Zero(t, n)
}

// ============================================================================
// 观察者
// ============================================================================

type recordingObserver struct {
	ops []string
}

func (o *recordingObserver) RecordDBQuery(operation, table string, _ time.Duration) {
	o.ops = append(o.ops, operation+":"+table)
}

func TestQueryObserver(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	obs := &recordingObserver{}
	s.SetObserver(obs)

	_, err := NewRunRepo(s).Count(context.Background(), specification.All[model.Run](specification.Page{}))
	require.NoError(t, err)
	assert.Equal(t, []string{"count:runs"}, obs.ops)
}

// TestHydrationBeyondBindLimit 超过 SQLite 绑定参数上限的不分页查询
func TestHydrationBeyondBindLimit(t *testing.T) {
	s := newTestStore(t)
	f := seed(t, s)
	ctx := context.Background()
	const total = 33000

	tx, err := s.DB().BeginTx(ctx, nil)
	require.NoError(t, err)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO scripts (script)
		WITH RECURSIVE seq(n) AS (SELECT 1 UNION ALL SELECT n + 1 FROM seq WHERE n < ?)
		SELECT 'x = ' || n FROM seq`, total)
	require.NoError(t, err)
	_, err = tx.ExecContext(ctx, `INSERT INTO reductions (reduction_inputs, script_id) SELECT '{}', id FROM scripts`)
	require.NoError(t, err)
	_, err = tx.ExecContext(ctx, `INSERT INTO runs_reductions (run_id, reduction_id) SELECT ?, id FROM reductions`, f.runs[0].ID)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	obs := &recordingObserver{}
	s.SetObserver(obs)
	repo := NewReductionRepo(s)
	all := specification.All[model.Reduction](specification.Page{})

	n, err := repo.Count(ctx, all)
	require.NoError(t, err)
	assert.Equal(t, int64(total), n)

	got, err := repo.Find(ctx, all)
	require.NoError(t, err)
	require.Len(t, got, total)
	for _, r := range got {
		require.NotNil(t, r.Script)
		require.Len(t, r.Runs, 1)
		require.Equal(t, "MARI", r.Runs[0].InstrumentName())
	}

	batches := (total + hydrateBatchSize - 1) / hydrateBatchSize
	counts := map[string]int{}
	for _, op := range obs.ops {
		counts[op]++
	}
	assert.Equal(t, batches, counts["hydrate:scripts"])
	assert.Equal(t, batches, counts["hydrate:runs"])
	assert.Equal(t, 1, counts["hydrate:instruments"])
}

func TestUniqueIDs(t *testing.T) {
	assert.Equal(t, []int64{3, 1, 2}, uniqueIDs([]int64{3, 1, 3, 2, 1}))
	assert.Empty(t, uniqueIDs(nil))
}
