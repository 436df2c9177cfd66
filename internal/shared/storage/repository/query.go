package repository

import (
	"fmt"
	"slices"
	"strings"

	"ir-api/internal/shared/model"
	"ir-api/internal/shared/storage"
	"ir-api/internal/shared/storage/dbutil"
	"ir-api/internal/shared/storage/specification"
)

// ============================================================================
// 表与关联定义（字段白名单）
// ============================================================================

// table 实体对应的表
type table struct {
	name    string
	alias   string
	columns []string
}

var tables = map[model.Kind]table{
	model.KindInstrument: {
		name:    "instruments",
		alias:   "i",
		columns: []string{"id", "instrument_name"},
	},
	model.KindRun: {
		name:  "runs",
		alias: "ru",
		columns: []string{
			"id", "filename", "experiment_number", "title", "users",
			"run_start", "run_end", "good_frames", "raw_frames", "instrument_id",
		},
	},
	model.KindReduction: {
		name:  "reductions",
		alias: "re",
		columns: []string{
			"id", "reduction_start", "reduction_end", "reduction_state",
			"reduction_status_message", "reduction_inputs", "reduction_outputs", "script_id",
		},
	},
	model.KindScript: {
		name:    "scripts",
		alias:   "s",
		columns: []string{"id", "script", "sha"},
	},
}

// relation 关联路径对应的 JOIN
type relation struct {
	from model.Kind
	to   model.Kind
	sql  string
}

var relations = map[specification.Relation]relation{
	specification.RunInstrument: {
		from: model.KindRun,
		to:   model.KindInstrument,
		sql:  "JOIN instruments i ON i.id = ru.instrument_id",
	},
	specification.ReductionRuns: {
		from: model.KindReduction,
		to:   model.KindRun,
		sql:  "JOIN runs_reductions rr ON rr.reduction_id = re.id JOIN runs ru ON ru.id = rr.run_id",
	},
}

// selectColumns 返回带别名的列列表
func (t table) selectColumns() string {
	cols := make([]string, len(t.columns))
	for i, c := range t.columns {
		cols[i] = t.alias + "." + c
	}
	return strings.Join(cols, ", ")
}

// ============================================================================
// 查询计划
// ============================================================================

// plan 规格的非泛型视图
type plan struct {
	target  model.Kind
	joins   []specification.Relation
	filters []specification.Filter
	order   *specification.Order
	limit   int
	offset  int
}

// planOf 从规格提取查询计划
func planOf[T model.Entity](spec specification.Specification[T]) plan {
	p := plan{
		target:  spec.Target(),
		joins:   spec.Joins(),
		filters: spec.Filters(),
		limit:   spec.Limit(),
		offset:  spec.Offset(),
	}
	if o, ok := spec.Order(); ok {
		p.order = &o
	}
	return p
}

// query 渲染后的 SQL
type query struct {
	sql  string
	args []any
}

// from 渲染 FROM / JOIN / WHERE 部分，并校验所有引用
func (p plan) from() (string, []any, error) {
	base, ok := tables[p.target]
	if !ok {
		return "", nil, fmt.Errorf("%w: entity %q", storage.ErrUnknownField, p.target)
	}

	reachable := []model.Kind{p.target}
	var b strings.Builder
	fmt.Fprintf(&b, "FROM %s %s", base.name, base.alias)

	for _, j := range p.joins {
		rel, ok := relations[j]
		if !ok || !slices.Contains(reachable, rel.from) {
			return "", nil, fmt.Errorf("%w: relation %q from %s", storage.ErrUnknownField, j, p.target)
		}
		b.WriteString(" ")
		b.WriteString(rel.sql)
		reachable = append(reachable, rel.to)
	}

	var conds []string
	var args []any
	for _, f := range p.filters {
		col, err := column(f.Field, reachable)
		if err != nil {
			return "", nil, err
		}
		args = append(args, f.Value)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}

	if err := p.checkOrder(reachable); err != nil {
		return "", nil, err
	}
	return b.String(), args, nil
}

// checkOrder 校验排序字段
func (p plan) checkOrder(reachable []model.Kind) error {
	if p.order == nil {
		return nil
	}
	_, err := column(p.order.Field, reachable)
	return err
}

// column 将字段引用解析为 alias.column
func column(f specification.Field, reachable []model.Kind) (string, error) {
	t, ok := tables[f.Kind]
	if !ok || !slices.Contains(reachable, f.Kind) || !slices.Contains(t.columns, f.Name) {
		return "", fmt.Errorf("%w: %s", storage.ErrUnknownField, f)
	}
	return t.alias + "." + f.Name, nil
}

// selectQuery 渲染带排序和分页的 SELECT
func (p plan) selectQuery(d dbutil.Dialect) (query, error) {
	from, args, err := p.from()
	if err != nil {
		return query{}, err
	}
	base := tables[p.target]

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s %s", base.selectColumns(), from)

	if p.order != nil {
		col, _ := column(p.order.Field, p.reachable())
		dir := "DESC"
		if p.order.Direction == specification.Asc {
			dir = "ASC"
		}
		fmt.Fprintf(&b, " ORDER BY %s %s", col, dir)
		// 以主键作为次序键，保证同值行顺序稳定
		if pk := base.alias + ".id"; col != pk {
			fmt.Fprintf(&b, ", %s %s", pk, dir)
		}
	}

	if p.limit > 0 {
		args = append(args, p.limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	if p.offset > 0 {
		if p.limit <= 0 {
			fmt.Fprintf(&b, " LIMIT %s", d.UnboundedLimit())
		}
		args = append(args, p.offset)
		fmt.Fprintf(&b, " OFFSET $%d", len(args))
	}

	return query{sql: d.Rebind(b.String()), args: args}, nil
}

// countQuery 渲染计数查询
//
// 只使用过滤与关联条件，排序和分页一律忽略。
func (p plan) countQuery(d dbutil.Dialect) (query, error) {
	p.order = nil
	p.limit = 0
	p.offset = 0
	from, args, err := p.from()
	if err != nil {
		return query{}, err
	}
	base := tables[p.target]
	sql := fmt.Sprintf("SELECT COUNT(*) FROM (SELECT %s.id %s) matched", base.alias, from)
	return query{sql: d.Rebind(sql), args: args}, nil
}

// reachable 返回规格可引用的实体类型
func (p plan) reachable() []model.Kind {
	kinds := []model.Kind{p.target}
	for _, j := range p.joins {
		if rel, ok := relations[j]; ok {
			kinds = append(kinds, rel.to)
		}
	}
	return kinds
}
