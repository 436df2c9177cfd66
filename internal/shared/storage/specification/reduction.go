package specification

import "ir-api/internal/shared/model"

// ReductionOrderFields Reduction 自身允许的排序字段
var ReductionOrderFields = []string{
	"id", "reduction_start", "reduction_end", "reduction_state", "reduction_outputs",
}

// joinedRunOrderFields 按仪器查询 Reduction 时可使用的关联 Run 排序字段
//
// experiment_title 对应 Run 的 title 列。只支持这几个字段。
var joinedRunOrderFields = map[string]string{
	"run_start":         "run_start",
	"run_end":           "run_end",
	"experiment_number": "experiment_number",
	"experiment_title":  "title",
}

// ReductionByInstrumentOrderFields 按仪器查询 Reduction 时允许的全部排序字段
func ReductionByInstrumentOrderFields() []string {
	fields := append([]string{}, ReductionOrderFields...)
	return append(fields, "run_start", "run_end", "experiment_number", "experiment_title")
}

// ReductionsByInstrument 按仪器名称筛选 Reduction
//
// 经由 runs_reductions 关联到 Run，再关联到 Instrument。
// 排序字段为关联 Run 字段时按 Run 列排序，其余按 Reduction 自身字段排序。
func ReductionsByInstrument(name string, p Page) Specification[model.Reduction] {
	spec := Specification[model.Reduction]{}.
		Join(ReductionRuns).
		Join(RunInstrument).
		Where(Field{Kind: model.KindInstrument, Name: "instrument_name"}, name)

	orderBy := p.orderOr("id")
	if column, ok := joinedRunOrderFields[orderBy]; ok {
		return spec.apply(p, Field{Kind: model.KindRun, Name: column})
	}
	return spec.apply(p, Field{Kind: model.KindReduction, Name: orderBy})
}

// ReductionsByExperimentNumber 按关联 Run 的实验编号筛选 Reduction
//
// 只能按 Reduction 自身字段排序。
func ReductionsByExperimentNumber(number int64, p Page) Specification[model.Reduction] {
	return Specification[model.Reduction]{}.
		Join(ReductionRuns).
		Where(Field{Kind: model.KindRun, Name: "experiment_number"}, number).
		apply(p, Field{Kind: model.KindReduction, Name: p.orderOr("id")})
}
