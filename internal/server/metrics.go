package server

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/desertthunder/plylist/internal/manager"
)

// MetricsHandler serves a Prometheus registry.
type MetricsHandler struct {
	http.Handler
}

// NewMetricsHandler exposes g in the Prometheus text format.
func NewMetricsHandler(g prometheus.Gatherer) *MetricsHandler {
	return &MetricsHandler{Handler: promhttp.HandlerFor(g, promhttp.HandlerOpts{})}
}

func (h *MetricsHandler) Routes() []string {
	return []string{"/metrics"}
}

// StatsSource reports library totals.
type StatsSource interface {
	Stats() (manager.Stats, error)
}

// StatusHandler reports library totals as JSON.
type StatusHandler struct {
	source StatsSource
}

func NewStatusHandler(source StatsSource) *StatusHandler {
	return &StatusHandler{source: source}
}

func (h *StatusHandler) Routes() []string {
	return []string{"/healthz"}
}

type statusResponse struct {
	Status string         `json:"status"`
	Stats  *manager.Stats `json:"stats,omitempty"`
	Error  string         `json:"error,omitempty"`
}

func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	stats, err := h.source.Stats()
	if err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(statusResponse{Status: "unavailable", Error: err.Error()})
		return
	}
	json.NewEncoder(w).Encode(statusResponse{Status: "ok", Stats: &stats})
}
