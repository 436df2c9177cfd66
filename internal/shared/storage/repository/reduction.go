// Package repository Reduction / Script 相关的存储操作
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"ir-api/internal/shared/model"
	"ir-api/internal/shared/storage/dbutil"
)

// ============================================================================
// Script
// ============================================================================

// CreateScript 创建脚本快照，回填 ID
func (s *Store) CreateScript(ctx context.Context, script *model.Script) error {
	query := s.rebind(`INSERT INTO scripts (script, sha) VALUES ($1, $2) RETURNING id`)
	return s.db.QueryRowContext(ctx, query, script.Script, script.SHA).Scan(&script.ID)
}

// scanScript 辅助函数
func scanScript(scanner rowScanner) (*model.Script, error) {
	script := &model.Script{}
	if err := scanner.Scan(&script.ID, &script.Script, &script.SHA); err != nil {
		return nil, err
	}
	return script, nil
}

// ============================================================================
// Reduction
// ============================================================================

// CreateReduction 创建 Reduction，回填 ID
func (s *Store) CreateReduction(ctx context.Context, r *model.Reduction) error {
	if r.ReductionState == "" {
		r.ReductionState = model.ReductionStateNotStarted
	}
	inputs := r.ReductionInputs
	if inputs == nil {
		inputs = model.ReductionInputs{}
	}
	data, err := json.Marshal(inputs)
	if err != nil {
		return fmt.Errorf("encode reduction inputs: %w", err)
	}

	query := s.rebind(`
		INSERT INTO reductions (reduction_start, reduction_end, reduction_state, reduction_status_message,
			reduction_inputs, reduction_outputs, script_id)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7)
		RETURNING id
	`)
	return s.db.QueryRowContext(ctx, query,
		r.ReductionStart, r.ReductionEnd, string(r.ReductionState), r.ReductionStatusMessage,
		string(data), r.ReductionOutputs, r.ScriptID).Scan(&r.ID)
}

// LinkRunReduction 关联 Run 与 Reduction
func (s *Store) LinkRunReduction(ctx context.Context, runID, reductionID int64) error {
	query := s.rebind(`INSERT INTO runs_reductions (run_id, reduction_id) VALUES ($1, $2)`)
	_, err := s.db.ExecContext(ctx, query, runID, reductionID)
	return err
}

// scanReduction 辅助函数，列顺序与 tables[KindReduction] 一致
func scanReduction(scanner rowScanner) (*model.Reduction, error) {
	r := &model.Reduction{}
	var state string
	var inputs []byte
	err := scanner.Scan(
		&r.ID, &r.ReductionStart, &r.ReductionEnd, &state,
		&r.ReductionStatusMessage, &inputs, &r.ReductionOutputs, &r.ScriptID)
	if err != nil {
		return nil, err
	}
	r.ReductionState = model.ReductionState(state)
	if r.ReductionInputs, err = model.ParseReductionInputs(inputs); err != nil {
		return nil, fmt.Errorf("reduction %d: %w", r.ID, err)
	}
	return r, nil
}

// hydrateReductions 为 Reduction 填充 Script 与 Runs（含 Instrument）
func hydrateReductions(ctx context.Context, s *Store, reductions []*model.Reduction) error {
	byID := make(map[int64]*model.Reduction, len(reductions))
	ids := make([]int64, 0, len(reductions))
	var scriptIDs []int64
	for _, r := range reductions {
		if _, ok := byID[r.ID]; !ok {
			ids = append(ids, r.ID)
		}
		byID[r.ID] = r
		r.Runs = []*model.Run{}
		if r.ScriptID != nil {
			scriptIDs = append(scriptIDs, *r.ScriptID)
		}
	}

	scripts, err := s.scriptsByID(ctx, uniqueIDs(scriptIDs))
	if err != nil {
		return fmt.Errorf("load scripts: %w", err)
	}

	runs, err := s.runsByReduction(ctx, ids)
	if err != nil {
		return fmt.Errorf("load runs: %w", err)
	}
	var allRuns []*model.Run
	for _, linked := range runs {
		allRuns = append(allRuns, linked...)
	}
	if err := hydrateRuns(ctx, s, allRuns); err != nil {
		return err
	}

	// 同一 Reduction 可能因关联多个 Run 在结果中出现多次，共享同一份关联数据
	for _, r := range reductions {
		if r.ScriptID != nil {
			r.Script = scripts[*r.ScriptID]
		}
		if linked, ok := runs[r.ID]; ok {
			r.Runs = linked
		}
	}
	return nil
}

// scriptsByID 批量加载脚本，按 hydrateBatchSize 分批查询
func (s *Store) scriptsByID(ctx context.Context, ids []int64) (map[int64]*model.Script, error) {
	result := make(map[int64]*model.Script, len(ids))
	for batch := range slices.Chunk(ids, hydrateBatchSize) {
		if err := s.loadScripts(ctx, batch, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *Store) loadScripts(ctx context.Context, ids []int64, result map[int64]*model.Script) error {
	query := s.rebind(fmt.Sprintf(`SELECT id, script, sha FROM scripts WHERE id IN (%s)`,
		dbutil.PlaceholderList(1, len(ids))))

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, int64Args(ids)...)
	s.observe("hydrate", "scripts", start, err)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		script, err := scanScript(rows)
		if err != nil {
			return err
		}
		result[script.ID] = script
	}
	return rows.Err()
}

// runsByReduction 按 Reduction 批量加载关联 Run，按 Run ID 升序
//
// 按 Reduction 分批，同一 Reduction 的 Run 总在同一批内，批内排序即最终顺序。
func (s *Store) runsByReduction(ctx context.Context, reductionIDs []int64) (map[int64][]*model.Run, error) {
	result := make(map[int64][]*model.Run, len(reductionIDs))
	for batch := range slices.Chunk(reductionIDs, hydrateBatchSize) {
		if err := s.loadLinkedRuns(ctx, batch, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *Store) loadLinkedRuns(ctx context.Context, reductionIDs []int64, result map[int64][]*model.Run) error {
	query := s.rebind(fmt.Sprintf(`
		SELECT rr.reduction_id, %s
		FROM runs_reductions rr JOIN runs ru ON ru.id = rr.run_id
		WHERE rr.reduction_id IN (%s)
		ORDER BY ru.id ASC`,
		tables[model.KindRun].selectColumns(), dbutil.PlaceholderList(1, len(reductionIDs))))

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, int64Args(reductionIDs)...)
	s.observe("hydrate", "runs", start, err)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var reductionID int64
		run := &model.Run{}
		err := rows.Scan(&reductionID,
			&run.ID, &run.Filename, &run.ExperimentNumber, &run.Title, &run.Users,
			&run.RunStart, &run.RunEnd, &run.GoodFrames, &run.RawFrames, &run.InstrumentID)
		if err != nil {
			return err
		}
		result[reductionID] = append(result[reductionID], run)
	}
	return rows.Err()
}
