package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	apperrors "fnopulse/internal/errors"
	"fnopulse/internal/services"
)

// MetricsHandler serves the Prometheus scrape endpoint and a JSON view of
// process and dataset statistics.
type MetricsHandler struct {
	prometheus   http.Handler
	health       *services.HealthService
	logger       *slog.Logger
	errorHandler *apperrors.ErrorHandler
}

// NewMetricsHandler creates a metrics handler. prometheus may be nil when
// metrics export is disabled.
func NewMetricsHandler(prometheus http.Handler, health *services.HealthService, logger *slog.Logger, errorHandler *apperrors.ErrorHandler) *MetricsHandler {
	return &MetricsHandler{
		prometheus:   prometheus,
		health:       health,
		logger:       logger.With(slog.String("handler", "metrics")),
		errorHandler: errorHandler,
	}
}

// Metrics handles GET /metrics
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.prometheus == nil {
		h.errorHandler.HandleError(w, r, apperrors.NotFoundError("metrics endpoint"))
		return
	}
	h.prometheus.ServeHTTP(w, r)
}

// Stats handles GET /api/stats
func (h *MetricsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.health.SystemStats(r.Context())
	if err != nil {
		h.logger.WarnContext(r.Context(), "system stats unavailable",
			slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, apperrors.ErrServiceUnavailable)
		return
	}
	render.JSON(w, r, stats)
}
