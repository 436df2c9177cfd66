// Package reduction Reduction 领域 - HTTP 处理
package reduction

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"ir-api/internal/apiserver/apierror"
	"ir-api/internal/apiserver/params"
	"ir-api/internal/apiserver/response"
	"ir-api/internal/shared/model"
	"ir-api/internal/shared/storage"
	"ir-api/internal/shared/storage/specification"
)

// ReductionRepo 定义 reduction handler 需要的查询接口
type ReductionRepo interface {
	Find(ctx context.Context, spec specification.Specification[model.Reduction]) ([]*model.Reduction, error)
	FindOne(ctx context.Context, spec specification.Specification[model.Reduction]) (*model.Reduction, error)
	Count(ctx context.Context, spec specification.Specification[model.Reduction]) (int64, error)
}

// Handler Reduction 领域 HTTP 处理器
type Handler struct {
	reductions ReductionRepo
}

// NewHandler 创建 Reduction 处理器
func NewHandler(reductions ReductionRepo) *Handler {
	return &Handler{reductions: reductions}
}

// RegisterRoutes 注册 Reduction 相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /reduction/{reduction_id}", h.Get)
	mux.HandleFunc("GET /experiment/{experiment_number}/reductions", h.ListByExperiment)
	mux.HandleFunc("GET /instrument/{instrument}/reductions", h.ListByInstrument)
	mux.HandleFunc("GET /instrument/{instrument}/reductions/count", h.CountByInstrument)
	mux.HandleFunc("GET /reductions/count", h.Count)
}

// Get 获取 Reduction 详情（含 Run）
// GET /reduction/{reduction_id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := params.PathInt64(r, "reduction_id")
	if err != nil {
		apierror.Write(w, r, err)
		return
	}

	reduction, err := h.reductions.FindOne(r.Context(), specification.ByID[model.Reduction](id))
	if err != nil {
		apierror.Write(w, r, err)
		return
	}
	if reduction == nil {
		apierror.Write(w, r, fmt.Errorf("reduction %d: %w", id, storage.ErrMissingRecord))
		return
	}
	response.WriteJSON(w, http.StatusOK, response.FromReductionWithRuns(reduction))
}

// ListByExperiment 列出实验编号下的 Reduction
// GET /experiment/{experiment_number}/reductions
func (h *Handler) ListByExperiment(w http.ResponseWriter, r *http.Request) {
	number, err := params.PathInt64(r, "experiment_number")
	if err != nil {
		apierror.Write(w, r, err)
		return
	}
	page, err := params.BindPage(r)
	if err != nil {
		apierror.Write(w, r, err)
		return
	}
	h.writeList(w, r, specification.ReductionsByExperimentNumber(number, page))
}

// ListByInstrument 列出仪器的 Reduction
// GET /instrument/{instrument}/reductions
func (h *Handler) ListByInstrument(w http.ResponseWriter, r *http.Request) {
	instrument, err := params.PathString(r, "instrument")
	if err != nil {
		apierror.Write(w, r, err)
		return
	}
	page, err := params.BindPage(r)
	if err != nil {
		apierror.Write(w, r, err)
		return
	}
	h.writeList(w, r, specification.ReductionsByInstrument(strings.ToUpper(instrument), page))
}

// CountByInstrument 统计仪器的 Reduction 数
// GET /instrument/{instrument}/reductions/count
func (h *Handler) CountByInstrument(w http.ResponseWriter, r *http.Request) {
	instrument, err := params.PathString(r, "instrument")
	if err != nil {
		apierror.Write(w, r, err)
		return
	}
	h.writeCount(w, r, specification.ReductionsByInstrument(strings.ToUpper(instrument), specification.Page{}))
}

// Count 统计全部 Reduction
// GET /reductions/count
func (h *Handler) Count(w http.ResponseWriter, r *http.Request) {
	h.writeCount(w, r, specification.All[model.Reduction](specification.Page{}))
}

func (h *Handler) writeList(w http.ResponseWriter, r *http.Request, spec specification.Specification[model.Reduction]) {
	reductions, err := h.reductions.Find(r.Context(), spec)
	if err != nil {
		apierror.Write(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, response.FromReductions(reductions))
}

func (h *Handler) writeCount(w http.ResponseWriter, r *http.Request, spec specification.Specification[model.Reduction]) {
	count, err := h.reductions.Count(r.Context(), spec)
	if err != nil {
		apierror.Write(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, response.CountResponse{Count: count})
}
