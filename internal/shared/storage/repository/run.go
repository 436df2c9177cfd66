// Package repository Instrument / Run 相关的存储操作
package repository

import (
	"context"
	"fmt"
	"slices"
	"time"

	"ir-api/internal/shared/model"
	"ir-api/internal/shared/storage/dbutil"
)

// ============================================================================
// Instrument
// ============================================================================

// CreateInstrument 创建仪器，回填 ID
func (s *Store) CreateInstrument(ctx context.Context, inst *model.Instrument) error {
	query := s.rebind(`INSERT INTO instruments (instrument_name) VALUES ($1) RETURNING id`)
	return s.db.QueryRowContext(ctx, query, inst.Name).Scan(&inst.ID)
}

// scanInstrument 辅助函数
func scanInstrument(scanner rowScanner) (*model.Instrument, error) {
	inst := &model.Instrument{}
	if err := scanner.Scan(&inst.ID, &inst.Name); err != nil {
		return nil, err
	}
	return inst, nil
}

// instrumentsByID 批量加载仪器，按 hydrateBatchSize 分批查询
func (s *Store) instrumentsByID(ctx context.Context, ids []int64) (map[int64]*model.Instrument, error) {
	result := make(map[int64]*model.Instrument, len(ids))
	for batch := range slices.Chunk(ids, hydrateBatchSize) {
		if err := s.loadInstruments(ctx, batch, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *Store) loadInstruments(ctx context.Context, ids []int64, result map[int64]*model.Instrument) error {
	query := s.rebind(fmt.Sprintf(`SELECT id, instrument_name FROM instruments WHERE id IN (%s)`,
		dbutil.PlaceholderList(1, len(ids))))

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, int64Args(ids)...)
	s.observe("hydrate", "instruments", start, err)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		inst, err := scanInstrument(rows)
		if err != nil {
			return err
		}
		result[inst.ID] = inst
	}
	return rows.Err()
}

// ============================================================================
// Run
// ============================================================================

// CreateRun 创建 Run，回填 ID
func (s *Store) CreateRun(ctx context.Context, run *model.Run) error {
	query := s.rebind(`
		INSERT INTO runs (filename, experiment_number, title, users, run_start, run_end, good_frames, raw_frames, instrument_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`)
	return s.db.QueryRowContext(ctx, query,
		run.Filename, run.ExperimentNumber, run.Title, run.Users, run.RunStart, run.RunEnd,
		run.GoodFrames, run.RawFrames, run.InstrumentID).Scan(&run.ID)
}

// scanRun 辅助函数，列顺序与 tables[KindRun] 一致
func scanRun(scanner rowScanner) (*model.Run, error) {
	run := &model.Run{}
	err := scanner.Scan(
		&run.ID, &run.Filename, &run.ExperimentNumber, &run.Title, &run.Users,
		&run.RunStart, &run.RunEnd, &run.GoodFrames, &run.RawFrames, &run.InstrumentID)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// hydrateRuns 为 Run 填充 Instrument
func hydrateRuns(ctx context.Context, s *Store, runs []*model.Run) error {
	ids := make([]int64, 0, len(runs))
	for _, r := range runs {
		ids = append(ids, r.InstrumentID)
	}

	instruments, err := s.instrumentsByID(ctx, uniqueIDs(ids))
	if err != nil {
		return fmt.Errorf("load instruments: %w", err)
	}
	for _, r := range runs {
		r.Instrument = instruments[r.InstrumentID]
	}
	return nil
}

// hydrateBatchSize 单条 IN 查询的最大 ID 数
//
// SQLite 默认最多 32766 个绑定参数，PostgreSQL 为 65535。
const hydrateBatchSize = 500

// uniqueIDs 去重并保持首次出现的顺序
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// int64Args 转换为查询参数
func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
