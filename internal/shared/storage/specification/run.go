package specification

import "ir-api/internal/shared/model"

// RunOrderFields Run 允许的排序字段
var RunOrderFields = []string{
	"experiment_number", "run_end", "run_start", "good_frames", "raw_frames", "id", "filename",
}

// RunsByInstrument 按仪器名称筛选 Run
//
// name 按原样比较，大小写由调用方统一。默认按 run_start 倒序。
func RunsByInstrument(name string, p Page) Specification[model.Run] {
	return Specification[model.Run]{}.
		Join(RunInstrument).
		Where(Field{Kind: model.KindInstrument, Name: "instrument_name"}, name).
		apply(p, Field{Kind: model.KindRun, Name: p.orderOr("run_start")})
}

// RunsByExperimentNumber 按实验编号筛选 Run
func RunsByExperimentNumber(number int64, p Page) Specification[model.Run] {
	return Specification[model.Run]{}.
		Where(Field{Kind: model.KindRun, Name: "experiment_number"}, number).
		apply(p, Field{Kind: model.KindRun, Name: p.orderOr("run_start")})
}
