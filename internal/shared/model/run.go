// Package model 定义核心数据模型
//
// run.go 包含运行（Run）和仪器（Instrument）的数据模型定义：
//   - Instrument：采集数据的仪器，名称统一为大写
//   - Run：一次仪器数据采集，固定属于一台仪器
package model

import "time"

// Kind 实体类型标识
type Kind string

const (
	KindInstrument Kind = "instrument"
	KindRun        Kind = "run"
	KindReduction  Kind = "reduction"
	KindScript     Kind = "script"
)

// Entity 可被查询规格（Specification）描述的实体
type Entity interface {
	Kind() Kind
}

// Instrument 仪器
type Instrument struct {
	ID   int64  `json:"id"`
	Name string `json:"instrument_name"`
}

// Kind 实现 Entity
func (Instrument) Kind() Kind { return KindInstrument }

// Run 一次数据采集
//
// Run 与 Reduction 通过 runs_reductions 关联表多对多关联。
type Run struct {
	ID               int64     `json:"id"`
	Filename         string    `json:"filename"`
	ExperimentNumber int64     `json:"experiment_number"`
	Title            string    `json:"title"`
	Users            string    `json:"users"`
	RunStart         time.Time `json:"run_start"`
	RunEnd           time.Time `json:"run_end"`
	GoodFrames       int64     `json:"good_frames"`
	RawFrames        int64     `json:"raw_frames"`
	InstrumentID     int64     `json:"instrument_id"`

	// Instrument 查询后填充
	Instrument *Instrument `json:"instrument,omitempty"`
}

// Kind 实现 Entity
func (Run) Kind() Kind { return KindRun }

// InstrumentName 返回关联仪器名称，未加载时返回空字符串
func (r *Run) InstrumentName() string {
	if r.Instrument == nil {
		return ""
	}
	return r.Instrument.Name
}
