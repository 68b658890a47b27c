package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Version is reported by the health endpoint.
var Version = "1.0.0"

// Pinger is a store the health check can ping.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	// Stores maps a component name to its health check.
	Stores map[string]Pinger
	Logger *slog.Logger
}

func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: "Welcome to Ideal Transportation Solutions API"})
}

type healthResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	Components map[string]string `json:"components"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := healthResponse{Status: "healthy", Version: Version, Components: map[string]string{}}
	status := http.StatusOK
	for name, store := range h.Stores {
		if err := store.Ping(ctx); err != nil {
			h.Logger.ErrorContext(ctx, "health check failed", slog.String("component", name), slog.Any("error", err))
			resp.Components[name] = "unavailable"
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Components[name] = "connected"
	}
	writeJSON(w, status, resp)
}
