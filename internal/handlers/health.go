package handlers

import (
	"context"
	"net/http"
	"time"
)

// HealthHandler responds with service health information.
type HealthHandler struct {
	DB HealthChecker
}

// Handle implements GET /healthz.
func (h HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{"status": "ok", "database": "skipped"}
	if h.DB != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := h.DB.Ping(pingCtx); err != nil {
			status["status"] = "degraded"
			status["database"] = "unreachable"
			respondData(ctx, w, http.StatusServiceUnavailable, status, "database unreachable")
			return
		}
		status["database"] = "ok"
	}

	respondData(ctx, w, http.StatusOK, status, "healthy")
}
