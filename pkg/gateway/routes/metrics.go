package routes

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/AndresDavidVV/ClinicaIA/pkg/common/logger"
	"github.com/AndresDavidVV/ClinicaIA/pkg/llm"
	"github.com/AndresDavidVV/ClinicaIA/pkg/observability/metrics"
	"github.com/gorilla/mux"
)

type HealthStatus struct {
	Status    string    `json:"status"`
	Mode      string    `json:"mode"`
	Timestamp time.Time `json:"timestamp"`
}

type MetricsHandler struct {
	live bool
}

// NewMetricsHandler reports the provider mode in health checks.
func NewMetricsHandler(provider llm.ResponseProvider) *MetricsHandler {
	_, live := provider.(*llm.LiveProvider)
	return &MetricsHandler{live: live}
}

func (h *MetricsHandler) Register(r *mux.Router) {
	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/metrics", h.handleMetrics).Methods(http.MethodGet)
}

func (h *MetricsHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	mode := "fallback"
	if h.live {
		mode = "live"
	}
	writeJSON(w, http.StatusOK, HealthStatus{Status: "ok", Mode: mode, Timestamp: time.Now().UTC()})
}

func (h *MetricsHandler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	metrics.WritePrometheus(w)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Log.WithError(err).Error("failed to write json response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
