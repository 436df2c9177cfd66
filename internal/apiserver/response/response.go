// Package response API 响应结构
//
// 与存储模型解耦：只暴露对外约定的字段，Run 以仪器名代替仪器 ID。
package response

import (
	"encoding/json"
	"net/http"
	"time"

	"ir-api/internal/shared/model"
)

// CountResponse 计数
type CountResponse struct {
	Count int64 `json:"count"`
}

// ScriptResponse Reduction 关联的脚本
type ScriptResponse struct {
	Value string `json:"value"`
}

// PreScriptResponse 预处理脚本
type PreScriptResponse struct {
	Value    string  `json:"value"`
	IsLatest bool    `json:"is_latest"`
	SHA      *string `json:"sha"`
}

// RunResponse Run
type RunResponse struct {
	Filename         string    `json:"filename"`
	ExperimentNumber int64     `json:"experiment_number"`
	Title            string    `json:"title"`
	Users            string    `json:"users"`
	RunStart         time.Time `json:"run_start"`
	RunEnd           time.Time `json:"run_end"`
	GoodFrames       int64     `json:"good_frames"`
	RawFrames        int64     `json:"raw_frames"`
	InstrumentName   string    `json:"instrument_name"`
}

// ReductionResponse 不含 Run 的 Reduction
type ReductionResponse struct {
	ID                     int64                 `json:"id"`
	ReductionStart         *time.Time            `json:"reduction_start"`
	ReductionEnd           *time.Time            `json:"reduction_end"`
	ReductionState         model.ReductionState  `json:"reduction_state"`
	ReductionStatusMessage *string               `json:"reduction_status_message"`
	ReductionInputs        model.ReductionInputs `json:"reduction_inputs"`
	ReductionOutputs       *string               `json:"reduction_outputs"`
	Script                 *ScriptResponse       `json:"script"`
}

// ReductionWithRunsResponse 含关联 Run 的 Reduction
type ReductionWithRunsResponse struct {
	ReductionResponse
	Runs []RunResponse `json:"runs"`
}

// FromPreScript 转换预处理脚本
func FromPreScript(p *model.PreScript) PreScriptResponse {
	return PreScriptResponse{Value: p.Value, IsLatest: p.IsLatest, SHA: p.SHA}
}

// FromRun 转换 Run
func FromRun(run *model.Run) RunResponse {
	resp := RunResponse{
		Filename:         run.Filename,
		ExperimentNumber: run.ExperimentNumber,
		Title:            run.Title,
		Users:            run.Users,
		RunStart:         run.RunStart,
		RunEnd:           run.RunEnd,
		GoodFrames:       run.GoodFrames,
		RawFrames:        run.RawFrames,
	}
	if run.Instrument != nil {
		resp.InstrumentName = run.Instrument.Name
	}
	return resp
}

// FromRuns 转换 Run 列表，结果不为 nil
func FromRuns(runs []*model.Run) []RunResponse {
	out := make([]RunResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, FromRun(run))
	}
	return out
}

// FromReduction 转换 Reduction
func FromReduction(r *model.Reduction) ReductionResponse {
	resp := ReductionResponse{
		ID:                     r.ID,
		ReductionStart:         r.ReductionStart,
		ReductionEnd:           r.ReductionEnd,
		ReductionState:         r.ReductionState,
		ReductionStatusMessage: r.ReductionStatusMessage,
		ReductionInputs:        r.ReductionInputs,
		ReductionOutputs:       r.ReductionOutputs,
	}
	if resp.ReductionInputs == nil {
		resp.ReductionInputs = model.ReductionInputs{}
	}
	if r.Script != nil {
		resp.Script = &ScriptResponse{Value: r.Script.Script}
	}
	return resp
}

// FromReductions 转换 Reduction 列表，结果不为 nil
func FromReductions(reductions []*model.Reduction) []ReductionResponse {
	out := make([]ReductionResponse, 0, len(reductions))
	for _, r := range reductions {
		out = append(out, FromReduction(r))
	}
	return out
}

// FromReductionWithRuns 转换含 Run 的 Reduction
func FromReductionWithRuns(r *model.Reduction) ReductionWithRunsResponse {
	return ReductionWithRunsResponse{
		ReductionResponse: FromReduction(r),
		Runs:              FromRuns(r.Runs),
	}
}

// WriteJSON 写入 JSON 响应
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
