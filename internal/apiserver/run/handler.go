// Package run Run 领域 - HTTP 处理
package run

import (
	"context"
	"net/http"
	"strings"

	"ir-api/internal/apiserver/apierror"
	"ir-api/internal/apiserver/params"
	"ir-api/internal/apiserver/response"
	"ir-api/internal/shared/model"
	"ir-api/internal/shared/storage/specification"
)

// RunRepo 定义 run handler 需要的查询接口
type RunRepo interface {
	Find(ctx context.Context, spec specification.Specification[model.Run]) ([]*model.Run, error)
	Count(ctx context.Context, spec specification.Specification[model.Run]) (int64, error)
}

// Handler Run 领域 HTTP 处理器
type Handler struct {
	runs RunRepo
}

// NewHandler 创建 Run 处理器
func NewHandler(runs RunRepo) *Handler {
	return &Handler{runs: runs}
}

// RegisterRoutes 注册 Run 相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /instrument/{instrument}/runs", h.ListByInstrument)
	mux.HandleFunc("GET /instrument/{instrument}/runs/count", h.CountByInstrument)
	mux.HandleFunc("GET /runs/count", h.Count)
}

// ListByInstrument 列出仪器的 Run
// GET /instrument/{instrument}/runs
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

	runs, err := h.runs.Find(r.Context(), specification.RunsByInstrument(strings.ToUpper(instrument), page))
	if err != nil {
		apierror.Write(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, response.FromRuns(runs))
}

// CountByInstrument 统计仪器的 Run 数
// GET /instrument/{instrument}/runs/count
func (h *Handler) CountByInstrument(w http.ResponseWriter, r *http.Request) {
	instrument, err := params.PathString(r, "instrument")
	if err != nil {
		apierror.Write(w, r, err)
		return
	}
	h.writeCount(w, r, specification.RunsByInstrument(strings.ToUpper(instrument), specification.Page{}))
}

// Count 统计全部 Run
// GET /runs/count
func (h *Handler) Count(w http.ResponseWriter, r *http.Request) {
	h.writeCount(w, r, specification.All[model.Run](specification.Page{}))
}

func (h *Handler) writeCount(w http.ResponseWriter, r *http.Request, spec specification.Specification[model.Run]) {
	count, err := h.runs.Count(r.Context(), spec)
	if err != nil {
		apierror.Write(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, response.CountResponse{Count: count})
}
