package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/metrics"
)

// CORS allows the configured browser origins to call the API with cookies.
// Without configured origins no CORS headers are sent.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	var origins []string
	for _, origin := range strings.Split(cfg.Origins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	// cors treats an empty list as "allow all"; with credentials that must never happen.
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           cfg.MaxAge,
	})
}

// GlobalLimit caps requests per client address across every route it wraps.
// A non-positive request budget disables it.
func GlobalLimit(cfg config.RateLimitConfig, clients *ClientIP) func(http.Handler) http.Handler {
	if cfg.GlobalRequests <= 0 || cfg.GlobalWindow <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	retryAfter := strconv.Itoa(int(cfg.GlobalWindow.Seconds()) + 1)
	return httprate.Limit(
		cfg.GlobalRequests,
		cfg.GlobalWindow,
		httprate.WithKeyFuncs(clients.Key),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			metrics.RateLimited.WithLabelValues("global").Inc()
			w.Header().Set("Retry-After", retryAfter)
			writeFailure(w, http.StatusTooManyRequests, "too many requests, try again later")
		}),
	)
}
