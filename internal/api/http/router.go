package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"assettracker-backend/internal/security"
	"assettracker-backend/internal/service"
)

// Deps holds everything the HTTP surface needs.
type Deps struct {
	Auth     service.AuthService
	Assets   service.AssetService
	Requests service.RequestService
	Tokens   security.TokenManager
	Store    Pinger

	// Metrics and MetricsHandler are optional; /metrics is only mounted with a handler.
	Metrics        HTTPMetrics
	MetricsHandler http.Handler

	CORSAllowedOrigins []string
	// RateLimiter is optional.
	RateLimiter *RateLimiter
}

// NewRouter builds the API router with its full middleware chain.
func NewRouter(d Deps) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	if d.Metrics != nil {
		r.Use(instrument(d.Metrics))
	}
	r.Use(authenticate(d.Tokens))

	r.HandleFunc("/healthz", healthHandler(d.Store)).Methods(http.MethodGet)
	if d.MetricsHandler != nil {
		r.Handle("/metrics", d.MetricsHandler).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()

	auth := NewAuthHandler(d.Auth)
	api.HandleFunc("/auth/register", auth.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", auth.Login).Methods(http.MethodPost)

	assets := NewAssetHandler(d.Assets)
	api.HandleFunc("/assets", assets.Create).Methods(http.MethodPost)
	api.HandleFunc("/assets", assets.List).Methods(http.MethodGet)
	api.HandleFunc("/assets/my", assets.ListMine).Methods(http.MethodGet)

	// Literal paths are registered before {requestId} so they win the match.
	requests := NewRequestHandler(d.Requests)
	api.HandleFunc("/requests", requests.Create).Methods(http.MethodPost)
	api.HandleFunc("/requests", requests.ListAll).Methods(http.MethodGet)
	api.HandleFunc("/requests/my", requests.ListMine).Methods(http.MethodGet)
	api.HandleFunc("/requests/return/{requestId}", requests.Return).Methods(http.MethodPatch)
	api.HandleFunc("/requests/{requestId}", requests.Decide).Methods(http.MethodPatch)

	return wrap(r, d)
}

// wrap applies the outer middleware. recovery runs inside accessLog so a panic is
// still logged with its 500.
func wrap(h http.Handler, d Deps) http.Handler {
	if d.RateLimiter != nil {
		h = d.RateLimiter.Handler(h)
	}
	h = cors(d.CORSAllowedOrigins)(h)
	h = recovery(h)
	h = accessLog(h)
	return requestID(h)
}
