package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.HandleHandler(pattern, h)
}

// HandleHandler 支持 http.Handler 接口
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
	r.logger.Debug("route registered", zap.String("pattern", pattern))
}

// ServeHTTP 未匹配的路径记一条日志，便于排查前端调用了不存在的接口
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if _, pattern := r.mux.Handler(req); pattern == "" {
		r.logger.Info("no route", zap.String("method", req.Method), zap.String("path", req.URL.Path))
	}
	r.mux.ServeHTTP(w, req)
}

// RegisterDashboardRoutes 管理页面接口统一由 DashboardHandler 分发
func (r *Router) RegisterDashboardRoutes(h *DashboardHandler) {
	r.HandleHandler(apiPrefix+"/", h)
}

// RegisterHealthRoutes 存活检查
func (r *Router) RegisterHealthRoutes() {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, Ok("ok"))
	})
}
