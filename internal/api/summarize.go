package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/snarg/scribe/internal/summarize"
)

// Summarizer produces a short recap of a transcript.
type Summarizer interface {
	Summarize(ctx context.Context, req summarize.Request) (string, error)
	Model() string
}

type summarizeRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	APIKey   string `json:"openai_api_key"`
}

type summarizeResponse struct {
	Summary      string `json:"summary"`
	SummaryModel string `json:"summary_model"`
}

// SummarizeHandler serves POST /summarize.
type SummarizeHandler struct {
	summarizer Summarizer
	defaultKey string
	log        zerolog.Logger
}

func NewSummarizeHandler(summarizer Summarizer, defaultKey string, log zerolog.Logger) *SummarizeHandler {
	return &SummarizeHandler{
		summarizer: summarizer,
		defaultKey: defaultKey,
		log:        log.With().Str("handler", "summarize").Logger(),
	}
}

func (h *SummarizeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequest
	if err := DecodeJSON(r, &req); err != nil {
		// A body that is not a JSON object is treated as an empty payload.
		h.log.Debug().Err(err).Msg("ignoring undecodable summarize body")
		req = summarizeRequest{}
	}

	key := strings.TrimSpace(req.APIKey)
	if key == "" {
		key = h.defaultKey
	}

	summary, err := h.summarizer.Summarize(r.Context(), summarize.Request{
		Text:     req.Text,
		Language: strings.TrimSpace(req.Language),
		APIKey:   key,
	})
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = "Unable to create a summary."
		}
		WriteError(w, http.StatusBadRequest, msg)
		return
	}

	WriteJSON(w, http.StatusOK, summarizeResponse{
		Summary:      summary,
		SummaryModel: h.summarizer.Model(),
	})
}
