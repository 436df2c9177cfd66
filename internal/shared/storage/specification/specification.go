// Package specification 查询规格
//
// Specification 是对"查哪类实体、如何过滤、如何关联、如何排序、如何分页"
// 的纯数据描述，不包含任何 SQL。构造永远不会失败，也不会修改已有实例：
// 每一步都返回新的值，同一个规格可以安全地在多个请求间复用。
//
// 执行由 repository 包负责。
package specification

import (
	"slices"

	"ir-api/internal/shared/model"
)

// Direction 排序方向
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection 解析排序方向，非 asc 一律视为 desc
func ParseDirection(s string) Direction {
	if Direction(s) == Asc {
		return Asc
	}
	return Desc
}

// Relation 实体间的关联路径
type Relation string

const (
	// RunInstrument runs -> instruments
	RunInstrument Relation = "run.instrument"
	// ReductionRuns reductions -> runs_reductions -> runs
	ReductionRuns Relation = "reduction.runs"
)

// Field 实体字段引用
type Field struct {
	Kind model.Kind
	Name string
}

// String 返回 kind.name 形式
func (f Field) String() string {
	return string(f.Kind) + "." + f.Name
}

// Filter 等值过滤条件
type Filter struct {
	Field Field
	Value any
}

// Order 排序条件
type Order struct {
	Field     Field
	Direction Direction
}

// Page 分页与排序参数
//
// Limit/Offset 为 0 表示不分页，这是约定的哨兵值而不是错误。
type Page struct {
	Limit     int
	Offset    int
	OrderBy   string
	Direction Direction
}

// orderOr 返回 OrderBy，为空时使用默认字段
func (p Page) orderOr(def string) string {
	if p.OrderBy == "" {
		return def
	}
	return p.OrderBy
}

// Specification 针对实体类型 T 的查询规格
type Specification[T model.Entity] struct {
	joins   []Relation
	filters []Filter
	order   *Order
	limit   int
	offset  int
}

// kindOf 返回 T 对应的实体类型
func kindOf[T model.Entity]() model.Kind {
	var zero T
	return zero.Kind()
}

// Target 返回目标实体类型
func (s Specification[T]) Target() model.Kind {
	return kindOf[T]()
}

// Joins 返回关联路径（副本）
func (s Specification[T]) Joins() []Relation {
	return slices.Clone(s.joins)
}

// Filters 返回过滤条件（副本）
func (s Specification[T]) Filters() []Filter {
	return slices.Clone(s.filters)
}

// Order 返回排序条件
func (s Specification[T]) Order() (Order, bool) {
	if s.order == nil {
		return Order{}, false
	}
	return *s.order, true
}

// Limit 返回行数限制，0 表示不限制
func (s Specification[T]) Limit() int { return s.limit }

// Offset 返回跳过行数，0 表示不跳过
func (s Specification[T]) Offset() int { return s.offset }

// Join 追加关联路径，重复的关联只保留一次
func (s Specification[T]) Join(r Relation) Specification[T] {
	if slices.Contains(s.joins, r) {
		return s
	}
	s.joins = append(slices.Clone(s.joins), r)
	return s
}

// Where 追加等值过滤条件
func (s Specification[T]) Where(f Field, value any) Specification[T] {
	s.filters = append(slices.Clone(s.filters), Filter{Field: f, Value: value})
	return s
}

// OrderBy 设置排序条件
func (s Specification[T]) OrderBy(f Field, d Direction) Specification[T] {
	s.order = &Order{Field: f, Direction: ParseDirection(string(d))}
	return s
}

// Paginate 设置分页，0 值不改变对应设置
func (s Specification[T]) Paginate(limit, offset int) Specification[T] {
	if limit > 0 {
		s.limit = limit
	}
	if offset > 0 {
		s.offset = offset
	}
	return s
}

// Unpaginated 返回去掉分页和排序的同条件规格，用于计数
func (s Specification[T]) Unpaginated() Specification[T] {
	s.order = nil
	s.limit = 0
	s.offset = 0
	return s
}

// apply 依次应用分页和排序
func (s Specification[T]) apply(p Page, order Field) Specification[T] {
	return s.Paginate(p.Limit, p.Offset).OrderBy(order, p.Direction)
}

// ============================================================================
// 通用规格
// ============================================================================

// All 选择 T 的全部实例，默认按 id 倒序
func All[T model.Entity](p Page) Specification[T] {
	kind := kindOf[T]()
	return Specification[T]{}.apply(p, Field{Kind: kind, Name: p.orderOr("id")})
}

// ByID 选择 id 等于给定值的实例
func ByID[T model.Entity](id int64) Specification[T] {
	return Specification[T]{}.Where(Field{Kind: kindOf[T](), Name: "id"}, id)
}

// OrderFields 返回实体自身允许的排序字段，未声明的实体返回 nil
func OrderFields(kind model.Kind) []string {
	switch kind {
	case model.KindRun:
		return slices.Clone(RunOrderFields)
	case model.KindReduction:
		return slices.Clone(ReductionOrderFields)
	}
	return nil
}
