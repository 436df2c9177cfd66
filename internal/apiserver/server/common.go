// Package server 组装 ir-api 的 HTTP 服务
//
// 文件组织：
//   - common.go: Handler 定义、健康检查和请求日志
//   - handler.go: 路由与 CORS
//   - openapi.go: 基于 OpenAPI 文档的请求校验
//   - metrics.go: Prometheus 指标
package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"time"

	"ir-api/api"
	"ir-api/internal/apiserver/reduction"
	"ir-api/internal/apiserver/response"
	"ir-api/internal/apiserver/run"
	scriptapi "ir-api/internal/apiserver/script"
	"ir-api/pkg/logging"
)

// Deps Handler 依赖
//
// Metrics 为 nil 时使用独立 Registry 创建；Logger 为 nil 时使用默认日志器。
type Deps struct {
	Runs       run.RunRepo
	Reductions reduction.ReductionRepo
	Scripts    scriptapi.ScriptService
	Metrics    *Metrics
	Logger     *logging.Logger
}

// Handler API 处理器
//
// Handler 是所有 HTTP API 的入口，各领域路由由子包注册。
type Handler struct {
	runs       *run.Handler
	reductions *reduction.Handler
	scripts    *scriptapi.Handler

	metrics   *Metrics
	validator *Validator
	logger    *logging.Logger
}

// NewHandler 创建 API 处理器
func NewHandler(deps Deps) (*Handler, error) {
	if deps.Runs == nil || deps.Reductions == nil || deps.Scripts == nil {
		return nil, fmt.Errorf("server: runs, reductions and scripts are required")
	}
	validator, err := NewValidator(api.OpenAPIYAML)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = NewMetrics("ir_api", nil)
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default("api")
	}
	return &Handler{
		runs:       run.NewHandler(deps.Runs),
		reductions: reduction.NewHandler(deps.Reductions),
		scripts:    scriptapi.NewHandler(deps.Scripts),
		metrics:    metrics,
		validator:  validator,
		logger:     logger,
	}, nil
}

// Metrics 返回 Handler 使用的指标
func (h *Handler) Metrics() *Metrics {
	return h.metrics
}

// Health 健康检查
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusOK, "ok")
}

// OpenAPIDocument 返回内嵌的 OpenAPI 文档
// GET /openapi.yaml
func (h *Handler) OpenAPIDocument(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	w.Write(api.OpenAPIYAML)
}

// requestLogger 为请求分配 ID 并记录访问日志
func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = generateID()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), logging.RequestIDKey, id)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r.WithContext(ctx))

		h.logger.WithContext(ctx).HTTPRequestLog(r.Method, r.URL.Path, wrapped.statusCode, time.Since(start), clientIP(r))
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func generateID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}
