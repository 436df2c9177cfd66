package server

import (
	"net/http"
)

// Router 创建 HTTP 路由
//
// 路由列表：
//   - GET /healthz                                        - 健康检查
//   - GET /metrics                                        - Prometheus 指标
//   - GET /openapi.yaml                                   - OpenAPI 文档
//   - GET /instrument/{instrument}/script                 - 最新预处理脚本
//   - GET /instrument/{instrument}/script/sha/{sha}       - 指定版本预处理脚本
//   - GET /reduction/{reduction_id}                       - Reduction 详情
//   - GET /experiment/{experiment_number}/reductions      - 实验的 Reduction 列表
//   - GET /instrument/{instrument}/reductions             - 仪器的 Reduction 列表
//   - GET /instrument/{instrument}/reductions/count       - 仪器的 Reduction 数量
//   - GET /reductions/count                               - Reduction 总数
//   - GET /instrument/{instrument}/runs                   - 仪器的 Run 列表
//   - GET /instrument/{instrument}/runs/count             - 仪器的 Run 数量
//   - GET /runs/count                                     - Run 总数
//
// 中间件从外到内：CORS、请求日志、指标、OpenAPI 校验。
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	// 健康检查
	mux.HandleFunc("GET /healthz", h.Health)

	// Prometheus 指标端点
	mux.Handle("GET /metrics", h.metrics.Handler())

	// OpenAPI 文档
	mux.HandleFunc("GET /openapi.yaml", h.OpenAPIDocument)

	h.scripts.RegisterRoutes(mux)
	h.reductions.RegisterRoutes(mux)
	h.runs.RegisterRoutes(mux)

	validated := h.validator.Middleware(mux)
	measured := h.metrics.MetricsMiddleware(validated)
	logged := h.requestLogger(measured)
	return corsMiddleware(logged)
}

// corsMiddleware 添加 CORS 头支持跨域请求
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "*")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
