package http

import (
	"context"
	"net/http"
	"time"

	"github.com/IgorGrieder/shorty/internal/infrastructure/logger"
	"github.com/IgorGrieder/shorty/pkg/httputils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const healthPingTimeout = 2 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse represents the health check response
type HealthResponse struct {
	OK      bool   `json:"ok" example:"true"`
	Version string `json:"version" example:"1.0"`
	Storage string `json:"storage" example:"up"`
}

// HealthHandler handles health and metrics endpoints
type HealthHandler struct {
	storage Pinger
	version string
}

func NewHealthHandler(storage Pinger, version string) *HealthHandler {
	return &HealthHandler{storage: storage, version: version}
}

// Health reports the service version and whether storage answers a ping.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()

	resp := HealthResponse{OK: true, Version: h.version, Storage: "up"}
	status := http.StatusOK

	if err := h.storage.Ping(ctx); err != nil {
		logger.Warn("storage health check failed", zap.Error(err))
		resp.OK = false
		resp.Storage = "down"
		status = http.StatusServiceUnavailable
	}

	httputils.WriteJSON(w, r, status, resp)
}

// Metrics returns Prometheus metrics
func (h *HealthHandler) Metrics() http.Handler {
	return promhttp.Handler()
}
