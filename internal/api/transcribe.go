package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/snarg/scribe/internal/metrics"
	"github.com/snarg/scribe/internal/transcribe"
)

// Transcriber runs a model over a spooled file and removes the file when done.
type Transcriber interface {
	Transcribe(ctx context.Context, modelID, audioPath, language string) (*transcribe.Result, error)
}

// TranscribeHandler serves POST /transcribe.
type TranscribeHandler struct {
	catalog         *transcribe.Catalog
	transcriber     Transcriber
	defaultLanguage string
	maxBytes        int64
	uploadDir       string
	log             zerolog.Logger
}

func NewTranscribeHandler(catalog *transcribe.Catalog, transcriber Transcriber, defaultLanguage string, maxBytes int64, uploadDir string, log zerolog.Logger) *TranscribeHandler {
	return &TranscribeHandler{
		catalog:         catalog,
		transcriber:     transcriber,
		defaultLanguage: defaultLanguage,
		maxBytes:        maxBytes,
		uploadDir:       uploadDir,
		log:             log.With().Str("handler", "transcribe").Logger(),
	}
}

func (h *TranscribeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}
	mr, err := r.MultipartReader()
	if err != nil {
		// Anything that is not a multipart body carries no file.
		h.log.Debug().Err(err).Msg("not a multipart body")
		WriteError(w, http.StatusBadRequest, "No audio file provided")
		return
	}
	up, err := ReadUpload(mr, h.uploadDir)
	if err != nil {
		var ve *ValidationError
		switch {
		case errors.As(err, &ve):
			WriteError(w, http.StatusBadRequest, ve.Message)
		case isTooLarge(err):
			WriteError(w, http.StatusRequestEntityTooLarge, "File too large")
		case errors.Is(err, errSpool):
			h.log.Error().Err(err).Msg("failed to spool upload")
			WriteError(w, http.StatusInternalServerError, "failed to store upload")
		case errors.Is(err, errFieldTooLarge):
			WriteError(w, http.StatusBadRequest, "Form field too large")
		default:
			h.log.Debug().Err(err).Msg("unreadable multipart body")
			WriteError(w, http.StatusBadRequest, "No audio file provided")
		}
		return
	}

	// Only an absent or empty value selects the default; anything else,
	// whitespace included, must name a catalog model.
	rawModel := up.Fields.Get("model")
	if rawModel == "" {
		rawModel = h.catalog.Default().ID
	}
	modelID := strings.TrimSpace(rawModel)
	if !h.catalog.Has(modelID) {
		up.Remove()
		WriteError(w, http.StatusBadRequest, "Unsupported model '"+modelID+"'")
		return
	}

	// A request value, even "auto", takes precedence over the process default.
	rawLanguage := up.Fields.Get("language")
	if rawLanguage == "" {
		rawLanguage = h.defaultLanguage
	}
	language := transcribe.NormalizeLanguage(rawLanguage)
	metrics.UploadSize.Observe(float64(up.Size))

	log := h.log.With().Str("model", modelID).Str("file", up.Filename).Int64("bytes", up.Size).Logger()
	log.Info().Str("language", language).Msg("transcription requested")

	// From here the invoker owns the spool file and removes it on every return.
	result, err := h.transcriber.Transcribe(r.Context(), modelID, up.Path, language)
	if err != nil {
		if errors.Is(err, transcribe.ErrUnknownModel) {
			WriteError(w, http.StatusBadRequest, "Unsupported model '"+modelID+"'")
			return
		}
		log.Error().Err(err).Msg("transcription failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Info().
		Str("detected_language", result.Language).
		Int("segments", len(result.Segments)).
		Int("chars", len(result.Text)).
		Msg("transcription complete")
	WriteJSON(w, http.StatusOK, result)
}
