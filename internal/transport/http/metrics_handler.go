package http

import (
	"net/http"

	apierrors "campaignclean/internal/errors"
)

// MetricsHandler serves the Prometheus exposition when metrics are enabled
type MetricsHandler struct {
	exposition   http.Handler
	errorHandler *apierrors.ErrorHandler
}

// NewMetricsHandler creates a new metrics handler. A nil exposition handler
// means metrics are disabled and the endpoint answers 503.
func NewMetricsHandler(exposition http.Handler, errorHandler *apierrors.ErrorHandler) *MetricsHandler {
	return &MetricsHandler{
		exposition:   exposition,
		errorHandler: errorHandler,
	}
}

// ServeHTTP handles GET /metrics
func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.exposition == nil {
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusServiceUnavailable,
			"SERVICE_UNAVAILABLE",
			"Metrics are disabled",
			map[string]interface{}{"setting": "telemetry.enable_metrics"},
		))
		return
	}
	h.exposition.ServeHTTP(w, r)
}
