// Package server 组装 Workio API 的所有 HTTP 处理器
//
// 文件组织：
//   - server.go: 路由组装与通用端点
//   - metrics.go: Prometheus 指标
package server

import (
	"encoding/json"
	"net/http"

	"workio/internal/apiserver/application"
	"workio/internal/apiserver/auth"
	"workio/internal/apiserver/job"
	"workio/internal/shared/cache"
	"workio/internal/shared/media"
)

// Store API 全量存储接口（mongostore.Store 实现）
type Store interface {
	auth.UserStore
	job.JobStore
	application.ApplicationStore
}

// Handler API 处理器：路由请求到各领域处理器
type Handler struct {
	authHandler *auth.Handler
	jobHandler  *job.Handler
	appHandler  *application.Handler
	authn       *auth.Authenticator
	metrics     *Metrics
}

// NewHandler 创建 Handler 实例
//
// listCache 可为 nil（无 Redis 模式），职位列表直接走存储层。
func NewHandler(store Store, mediaStore media.Store, listCache cache.JobListCache, authCfg auth.Config, appCfg application.Config) *Handler {
	return &Handler{
		authHandler: auth.NewHandler(store, mediaStore, authCfg),
		jobHandler:  job.NewHandler(store, listCache),
		appHandler:  application.NewHandler(store, appCfg),
		authn:       auth.NewAuthenticator(store, authCfg),
		metrics:     NewMetrics("workio"),
	}
}

// Router 构建完整路由
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	h.authHandler.RegisterRoutes(mux, h.authn)
	h.jobHandler.RegisterRoutes(mux, h.authn)
	h.appHandler.RegisterRoutes(mux, h.authn)

	mux.HandleFunc("GET /health", h.Health)
	mux.Handle("GET /metrics", h.metrics.MetricsHandler())

	return h.metrics.MetricsMiddleware(mux)
}

// Health 健康检查接口
// 路由: GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
