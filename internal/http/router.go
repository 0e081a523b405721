package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
// 所有 /api 路由在这里注册，方法检查放在注册闭包里。
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

// ServeHTTP CORS 全放行（客户端 App/网页直接访问）
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if req.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	r.mux.ServeHTTP(w, req)
}

// RegisterAPIRoutes 注册全部 /api 路由
func (r *Router) RegisterAPIRoutes(
	samples *SamplesHandler,
	correlation *CorrelationHandler,
	dashboard *DashboardHandler,
	status *StatusHandler,
) {
	// hello
	r.Handle("/api/", func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/api/" && req.URL.Path != "/api" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Hello World"})
	})

	// samples ingest
	r.Handle("/api/samples", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		samples.IngestSamples(w, req)
	})

	// latest cached vitals
	r.Handle("/api/samples/latest", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		samples.GetLatestVitals(w, req)
	})

	// cgm sync
	r.Handle("/api/cgm/sync", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		samples.SyncCGM(w, req)
	})

	// correlation
	r.Handle("/api/correlation/run", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		correlation.RunCorrelation(w, req)
	})
	r.Handle("/api/correlation/events", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		correlation.GetRecentEvents(w, req)
	})

	// dashboard
	r.Handle("/api/dashboard/24h", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		dashboard.GetDashboard24h(w, req)
	})
	r.Handle("/api/dashboard/24h/export", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		dashboard.ExportDashboard24h(w, req)
	})

	// status checks
	r.Handle("/api/status", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodPost:
			status.CreateStatusCheck(w, req)
		case http.MethodGet:
			status.ListStatusChecks(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}
