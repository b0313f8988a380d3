package api

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/rs/zerolog/hlog"
	"github.com/snarg/scribe/internal/transcribe"
)

type indexData struct {
	Models           []transcribe.ModelInfo
	DefaultModel     string
	SummaryModel     string
	HasDefaultOpenAI bool
	Version          string
}

type modelsResponse struct {
	Models       []transcribe.ModelInfo `json:"models"`
	DefaultModel string                 `json:"default_model"`
}

// PageHandler renders the upload page and lists model options.
type PageHandler struct {
	tmpl *template.Template
	data indexData
}

// NewPageHandler parses index.html from webFS. The page data is fixed at
// startup since the model catalog never changes.
func NewPageHandler(webFS fs.FS, catalog *transcribe.Catalog, summaryModel string, hasDefaultKey bool, version string) (*PageHandler, error) {
	tmpl, err := template.ParseFS(webFS, "index.html")
	if err != nil {
		return nil, fmt.Errorf("parse index template: %w", err)
	}
	return &PageHandler{
		tmpl: tmpl,
		data: indexData{
			Models:           catalog.Models(),
			DefaultModel:     catalog.Default().ID,
			SummaryModel:     summaryModel,
			HasDefaultOpenAI: hasDefaultKey,
			Version:          version,
		},
	}, nil
}

// Index handles GET /.
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	// Render into a buffer so a template error never produces a half page.
	var buf bytes.Buffer
	if err := h.tmpl.Execute(&buf, h.data); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("render index")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// Models handles GET /api/models.
func (h *PageHandler) Models(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, modelsResponse{
		Models:       h.data.Models,
		DefaultModel: h.data.DefaultModel,
	})
}
