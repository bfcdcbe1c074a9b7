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
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterObservationRoutes 注册设备观测相关路由
func (r *Router) RegisterObservationRoutes(h *ObservationHandler) {
	r.Handle("/update_observations", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.UpdateObservations(w, req)
	})

	get := func(pattern string, fn http.HandlerFunc) {
		r.Handle(pattern, func(w http.ResponseWriter, req *http.Request) {
			if req.Method != http.MethodGet {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			fn(w, req)
		})
	}

	get("/get_observations", h.GetObservations)
	get("/log_data", h.GetLogData)
	get("/last_request_data", h.GetLastRequestData)
	get("/get_time", h.GetTime)
	get("/vitals", h.GetLatestVitals)
	get("/health", h.Health)
}

// RegisterSubscriptionRoute 注册实时订阅端点（WebSocket 升级）
func (r *Router) RegisterSubscriptionRoute(handleWS http.HandlerFunc) {
	r.Handle("/observations", handleWS)
}
