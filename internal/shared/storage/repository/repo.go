package repository

import (
	"context"
	"fmt"
	"time"

	"ir-api/internal/shared/model"
	"ir-api/internal/shared/storage"
	"ir-api/internal/shared/storage/specification"
)

// mapper 实体的行扫描与关联填充
type mapper[T model.Entity] struct {
	scan    func(rowScanner) (*T, error)
	hydrate func(ctx context.Context, s *Store, items []*T) error
}

// Repo 执行查询规格的泛型仓储
type Repo[T model.Entity] struct {
	store  *Store
	mapper mapper[T]
}

// NewInstrumentRepo 创建 Instrument 仓储
func NewInstrumentRepo(s *Store) *Repo[model.Instrument] {
	return &Repo[model.Instrument]{store: s, mapper: mapper[model.Instrument]{scan: scanInstrument}}
}

// NewRunRepo 创建 Run 仓储，结果附带 Instrument
func NewRunRepo(s *Store) *Repo[model.Run] {
	return &Repo[model.Run]{store: s, mapper: mapper[model.Run]{scan: scanRun, hydrate: hydrateRuns}}
}

// NewReductionRepo 创建 Reduction 仓储，结果附带 Script 与 Runs
func NewReductionRepo(s *Store) *Repo[model.Reduction] {
	return &Repo[model.Reduction]{store: s, mapper: mapper[model.Reduction]{scan: scanReduction, hydrate: hydrateReductions}}
}

// NewScriptRepo 创建 Script 仓储
func NewScriptRepo(s *Store) *Repo[model.Script] {
	return &Repo[model.Script]{store: s, mapper: mapper[model.Script]{scan: scanScript}}
}

// Find 返回全部匹配项，顺序与规格一致；无匹配时返回空切片
func (r *Repo[T]) Find(ctx context.Context, spec specification.Specification[T]) ([]*T, error) {
	p := planOf(spec)
	q, err := p.selectQuery(r.store.dialect)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	items, err := r.query(ctx, q, 0)
	r.store.observe("find", tables[p.target].name, start, err)
	if err != nil {
		return nil, err
	}
	if err := r.hydrate(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// FindOne 返回唯一匹配项
//
// 无匹配时返回 (nil, nil)；多于一条时返回 storage.ErrNonUniqueRecord。
func (r *Repo[T]) FindOne(ctx context.Context, spec specification.Specification[T]) (*T, error) {
	p := planOf(spec)
	q, err := p.selectQuery(r.store.dialect)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	items, err := r.query(ctx, q, 2)
	r.store.observe("find_one", tables[p.target].name, start, err)
	if err != nil {
		return nil, err
	}

	switch len(items) {
	case 0:
		return nil, nil
	case 1:
		if err := r.hydrate(ctx, items); err != nil {
			return nil, err
		}
		return items[0], nil
	default:
		r.store.logger.Error("non unique record", "entity", string(p.target), "filters", fmt.Sprint(p.filters))
		return nil, fmt.Errorf("%s %v: %w", p.target, p.filters, storage.ErrNonUniqueRecord)
	}
}

// Count 返回匹配总数，与规格中的分页无关
func (r *Repo[T]) Count(ctx context.Context, spec specification.Specification[T]) (int64, error) {
	p := planOf(spec.Unpaginated())
	q, err := p.countQuery(r.store.dialect)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	var n int64
	err = r.store.db.QueryRowContext(ctx, q.sql, q.args...).Scan(&n)
	r.store.observe("count", tables[p.target].name, start, err)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// query 执行查询并扫描结果，maxRows > 0 时最多读取 maxRows 行
func (r *Repo[T]) query(ctx context.Context, q query, maxRows int) ([]*T, error) {
	rows, err := r.store.db.QueryContext(ctx, q.sql, q.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []*T{}
	for rows.Next() {
		item, err := r.mapper.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if maxRows > 0 && len(items) >= maxRows {
			break
		}
	}
	return items, rows.Err()
}

// hydrate 填充关联实体
func (r *Repo[T]) hydrate(ctx context.Context, items []*T) error {
	if r.mapper.hydrate == nil || len(items) == 0 {
		return nil
	}
	return r.mapper.hydrate(ctx, r.store, items)
}
