// Package script 预处理脚本 - HTTP 处理
package script

import (
	"context"
	"log"
	"net/http"

	"ir-api/internal/apiserver/apierror"
	"ir-api/internal/apiserver/params"
	"ir-api/internal/apiserver/response"
	"ir-api/internal/shared/model"
)

// ScriptService 定义 script handler 需要的服务接口
type ScriptService interface {
	ForReduction(ctx context.Context, instrument string, reductionID *int64) (*model.PreScript, error)
	BySHA(ctx context.Context, instrument, sha string, reductionID *int64) (*model.PreScript, error)
	WriteBackAsync(instrument string, script *model.PreScript)
}

// Handler 预处理脚本 HTTP 处理器
type Handler struct {
	service ScriptService
}

// NewHandler 创建脚本处理器
func NewHandler(service ScriptService) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes 注册脚本相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /instrument/{instrument}/script", h.GetLatest)
	mux.HandleFunc("GET /instrument/{instrument}/script/sha/{sha}", h.GetBySHA)
}

// GetLatest 获取仪器最新的预处理脚本
// GET /instrument/{instrument}/script?reduction_id=
//
// 响应写出之后安排写回；获取失败时写回的是空脚本，只记录失败。
func (h *Handler) GetLatest(w http.ResponseWriter, r *http.Request) {
	instrument, err := params.PathString(r, "instrument")
	if err != nil {
		apierror.Write(w, r, err)
		return
	}

	script := model.NewPreScript("", false, nil)
	defer func() { h.service.WriteBackAsync(instrument, script) }()

	reductionID, err := params.ReductionID(r)
	if err != nil {
		apierror.Write(w, r, err)
		return
	}

	log.Printf("[script.get.start] instrument=%s", instrument)
	fetched, err := h.service.ForReduction(r.Context(), instrument, reductionID)
	if err != nil {
		log.Printf("[script.get.failed] instrument=%s error=%v", instrument, err)
		apierror.Write(w, r, err)
		return
	}
	script = fetched
	response.WriteJSON(w, http.StatusOK, response.FromPreScript(script))
}

// GetBySHA 获取指定版本的预处理脚本
// GET /instrument/{instrument}/script/sha/{sha}?reduction_id=
func (h *Handler) GetBySHA(w http.ResponseWriter, r *http.Request) {
	instrument, err := params.PathString(r, "instrument")
	if err != nil {
		apierror.Write(w, r, err)
		return
	}
	sha, err := params.PathString(r, "sha")
	if err != nil {
		apierror.Write(w, r, err)
		return
	}
	reductionID, err := params.ReductionID(r)
	if err != nil {
		apierror.Write(w, r, err)
		return
	}

	script, err := h.service.BySHA(r.Context(), instrument, sha, reductionID)
	if err != nil {
		log.Printf("[script.sha.failed] instrument=%s sha=%s error=%v", instrument, sha, err)
		apierror.Write(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, response.FromPreScript(script))
}
