package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter assembles the storefront routes: the session-scoped JSON API, the
// rate-limited /api proxy and the operational endpoints.
func NewRouter(h *Handler, p *Proxy, requestsPerMinute int) *mux.Router {
	r := mux.NewRouter()

	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/healthz", Health).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(mux.MiddlewareFunc(RateLimit(requestsPerMinute)))
	p.Register(api)

	h.RegisterRoutes(r.NewRoute().Subrouter())
	return r
}

// Health handles GET /healthz
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
