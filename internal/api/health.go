package api

import (
	"net/http"
	"time"
)

// ModelStats reports which models are resident in memory.
type ModelStats interface {
	Loaded() []string
}

// DecoderCheck reports whether the audio decoder binary can be run.
type DecoderCheck interface {
	Available() bool
}

type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Backend       string            `json:"backend"`
	DefaultModel  string            `json:"default_model"`
	LoadedModels  []string          `json:"loaded_models"`
	Checks        map[string]string `json:"checks"`
}

type HealthHandler struct {
	models        ModelStats
	decoder       DecoderCheck
	backend       string
	defaultModel  string
	hasDefaultKey bool
	version       string
	startTime     time.Time
}

// NewHealthHandler creates the health handler. decoder may be nil when the
// backend does not decode audio locally.
func NewHealthHandler(models ModelStats, decoder DecoderCheck, backend, defaultModel string, hasDefaultKey bool, version string, startTime time.Time) *HealthHandler {
	return &HealthHandler{
		models:        models,
		decoder:       decoder,
		backend:       backend,
		defaultModel:  defaultModel,
		hasDefaultKey: hasDefaultKey,
		version:       version,
		startTime:     startTime,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	status := "healthy"
	httpStatus := http.StatusOK

	// Without ffmpeg the local engine cannot transcribe anything.
	if h.decoder != nil {
		if h.decoder.Available() {
			checks["ffmpeg"] = "ok"
		} else {
			checks["ffmpeg"] = "missing"
			status = "unhealthy"
			httpStatus = http.StatusServiceUnavailable
		}
	} else {
		checks["ffmpeg"] = "not_required"
	}

	// Summaries still work with a caller-supplied key.
	if h.hasDefaultKey {
		checks["summary_key"] = "ok"
	} else {
		checks["summary_key"] = "not_configured"
	}

	loaded := []string{}
	if h.models != nil {
		if l := h.models.Loaded(); l != nil {
			loaded = l
		}
	}

	WriteJSON(w, httpStatus, HealthResponse{
		Status:        status,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Backend:       h.backend,
		DefaultModel:  h.defaultModel,
		LoadedModels:  loaded,
		Checks:        checks,
	})
}
