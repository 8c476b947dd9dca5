package management

import (
	"encoding/json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.lumeweb.com/monitoring-registrar/pkg/config"
	"golang.org/x/time/rate"
	"net/http"
)

// Config holds management endpoint configuration
type Config struct {
	Registration config.RegistrationSettings
	Gatherer     prometheus.Gatherer

	EnableHealth     bool
	EnablePrometheus bool
}

// HealthStatus is the body served by the health endpoint
type HealthStatus struct {
	Status string `json:"status"`
}

// NewHandler serves the health and metrics endpoints under the management base path.
// Request paths are matched exactly, so configured paths are never parsed as mux patterns.
func NewHandler(cfg Config) http.Handler {
	routes := make(map[string]http.Handler, 2)

	healthPath := cfg.Registration.HealthPath()
	if cfg.EnableHealth && healthPath != "" {
		routes[healthPath] = http.HandlerFunc(healthHandler)
	}

	// The health endpoint wins when both resolve to the same path.
	if path := cfg.Registration.MetricsPath(); cfg.EnablePrometheus && path != "" && routes[path] == nil {
		gatherer := cfg.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		routes[path] = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		handler.ServeHTTP(w, r)
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(HealthStatus{Status: "UP"})
}

// WithBasicAuth wraps a handler with basic auth. An empty password leaves the handler open.
func WithBasicAuth(handler http.Handler, password string) http.Handler {
	if password == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, pass, ok := r.BasicAuth()
		if !ok || pass != password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}

// WithRateLimit rejects requests with 429 once limiter is exhausted. A nil limiter disables limiting.
func WithRateLimit(handler http.Handler, limiter *rate.Limiter) http.Handler {
	if limiter == nil {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
