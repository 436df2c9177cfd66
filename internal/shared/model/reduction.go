package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ============================================================================
// ReductionState - 数据处理状态
// ============================================================================

// ReductionState 数据处理（Reduction）状态
type ReductionState string

const (
	ReductionStateNotStarted   ReductionState = "NOT_STARTED"
	ReductionStateSuccessful   ReductionState = "SUCCESSFUL"
	ReductionStateUnsuccessful ReductionState = "UNSUCCESSFUL"
	ReductionStateError        ReductionState = "ERROR"
)

// IsValid 检查状态是否合法
func (s ReductionState) IsValid() bool {
	switch s {
	case ReductionStateNotStarted, ReductionStateSuccessful, ReductionStateUnsuccessful, ReductionStateError:
		return true
	}
	return false
}

// ============================================================================
// ReductionInputs - 处理输入参数
// ============================================================================

// ReductionInputs 处理输入参数
//
// 键由各仪器自行定义，转换层只解释认识的键。
// 数值以 json.Number 保存，保留原始字面量（如 0.0 不会变成 0）。
type ReductionInputs map[string]any

// ParseReductionInputs 解析 JSON 输入参数
func ParseReductionInputs(data []byte) (ReductionInputs, error) {
	inputs := ReductionInputs{}
	if len(bytes.TrimSpace(data)) == 0 {
		return inputs, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&inputs); err != nil {
		return nil, fmt.Errorf("decode reduction inputs: %w", err)
	}
	if inputs == nil {
		inputs = ReductionInputs{}
	}
	return inputs, nil
}

// Lookup 获取输入参数
func (in ReductionInputs) Lookup(key string) (any, bool) {
	if in == nil {
		return nil, false
	}
	v, ok := in[key]
	return v, ok
}

// ============================================================================
// Reduction - 数据处理记录
// ============================================================================

// Reduction 对一个或多个 Run 的数据处理记录
type Reduction struct {
	ID                     int64           `json:"id"`
	ReductionStart         *time.Time      `json:"reduction_start"`
	ReductionEnd           *time.Time      `json:"reduction_end"`
	ReductionState         ReductionState  `json:"reduction_state"`
	ReductionStatusMessage *string         `json:"reduction_status_message"`
	ReductionInputs        ReductionInputs `json:"reduction_inputs"`
	ReductionOutputs       *string         `json:"reduction_outputs"`
	ScriptID               *int64          `json:"script_id,omitempty"`

	// 以下字段查询后填充
	Script *Script `json:"script,omitempty"`
	Runs   []*Run  `json:"runs,omitempty"`
}

// Kind 实现 Entity
func (Reduction) Kind() Kind { return KindReduction }

// Script 处理脚本快照，与源码仓库的某个 commit 对应
type Script struct {
	ID     int64   `json:"id"`
	Script string  `json:"script"`
	SHA    *string `json:"sha"`
}

// Kind 实现 Entity
func (Script) Kind() Kind { return KindScript }
