package transcribe

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/snarg/scribe/internal/metrics"
)

// Result is the normalized transcription returned to clients.
type Result struct {
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Segments []Segment `json:"segments"`
}

// Failure wraps any error raised while loading or running a model.
type Failure struct {
	Err error
}

func (f *Failure) Error() string { return f.Err.Error() }
func (f *Failure) Unwrap() error { return f.Err }

// Invoker runs a cached model against a spooled audio file.
type Invoker struct {
	registry *Registry
	log      zerolog.Logger
}

// NewInvoker creates an invoker backed by the registry.
func NewInvoker(registry *Registry, log zerolog.Logger) *Invoker {
	return &Invoker{registry: registry, log: log}
}

// Transcribe runs model modelID on audioPath. The file at audioPath is owned by
// the invoker from this point on and is removed before Transcribe returns, on
// every path. language "" means auto-detect. Model errors come back as *Failure;
// identifiers outside the catalog as ErrUnknownModel.
func (inv *Invoker) Transcribe(ctx context.Context, modelID, audioPath, language string) (res *Result, err error) {
	log := inv.log.With().Str("job", uuid.NewString()).Str("model", modelID).Logger()
	defer removeSpool(log, audioPath)
	defer func() {
		if rv := recover(); rv != nil {
			res, err = nil, &Failure{Err: fmt.Errorf("model panic: %v", rv)}
		}
	}()

	model, err := inv.registry.Get(ctx, modelID)
	if err != nil {
		if errors.Is(err, ErrUnknownModel) {
			return nil, err
		}
		return nil, &Failure{Err: err}
	}

	if language != "" {
		log.Info().Str("language", language).Msg("using language override")
	}
	log.Info().Msg("starting transcription")

	start := time.Now()
	resp, err := model.Transcribe(ctx, audioPath, Options{
		Language: language,
		FP16:     false,
		Verbose:  true,
	})
	metrics.TranscriptionDuration.WithLabelValues(modelID).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.TranscriptionsTotal.WithLabelValues(modelID, "error").Inc()
		log.Error().Err(err).Msg("transcription failed")
		return nil, &Failure{Err: err}
	}
	metrics.TranscriptionsTotal.WithLabelValues(modelID, "ok").Inc()

	res = normalize(resp)
	log.Info().
		Int("segments", len(res.Segments)).
		Str("detected_language", res.Language).
		Dur("took", time.Since(start)).
		Msg("completed transcription")
	return res, nil
}

// normalize rounds timestamps to centiseconds and trims all text.
func normalize(resp *Response) *Result {
	segments := make([]Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		segments = append(segments, Segment{
			Start: round2(s.Start),
			End:   round2(s.End),
			Text:  strings.TrimSpace(s.Text),
		})
	}
	return &Result{
		Text:     strings.TrimSpace(resp.Text),
		Language: resp.Language,
		Segments: segments,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func removeSpool(log zerolog.Logger, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("path", path).Msg("failed to remove upload")
	}
}
