package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// WhisperClient calls an OpenAI-compatible /v1/audio/transcriptions endpoint
// (speaches, faster-whisper-server, whisper.cpp server) for one model.
type WhisperClient struct {
	url     string
	model   string
	timeout time.Duration
	client  *http.Client
	log     zerolog.Logger
}

// WhisperResponse is the parsed response from the Whisper API (verbose_json format).
type WhisperResponse struct {
	Text     string           `json:"text"`
	Language string           `json:"language"`
	Duration float64          `json:"duration"`
	Segments []WhisperSegment `json:"segments"`
}

// WhisperSegment is a segment with start/end timestamps from Whisper.
type WhisperSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// NewWhisperClient creates a new Whisper HTTP client.
func NewWhisperClient(url, model string, timeout time.Duration, log zerolog.Logger) *WhisperClient {
	return &WhisperClient{
		url:     url,
		model:   model,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

// RemoteLoader returns a Loader that binds each model identifier to a
// WhisperClient on the given endpoint.
func RemoteLoader(url string, timeout time.Duration, log zerolog.Logger) Loader {
	return LoaderFunc(func(ctx context.Context, id string) (Model, error) {
		if url == "" {
			return nil, fmt.Errorf("no whisper endpoint configured")
		}
		return NewWhisperClient(url, id, timeout, log.With().Str("model", id).Logger()), nil
	})
}

func (wc *WhisperClient) Name() string { return "remote" }
func (wc *WhisperClient) Close() error { wc.client.CloseIdleConnections(); return nil }

// Transcribe sends an audio file to the Whisper API and returns the result.
// Language is omitted when empty so the server auto-detects.
func (wc *WhisperClient) Transcribe(ctx context.Context, audioPath string, opts Options) (*Response, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("copy audio data: %w", err)
	}

	w.WriteField("model", wc.model)
	if opts.Language != "" {
		w.WriteField("language", isoLanguage(opts.Language))
	}
	w.WriteField("temperature", "0.00")
	w.WriteField("response_format", "verbose_json")
	w.WriteField("timestamp_granularities[]", "segment")
	w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wc.url, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := wc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whisper request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("whisper API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result WhisperResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	segments := make([]Segment, len(result.Segments))
	for i, s := range result.Segments {
		segments[i] = Segment{Start: s.Start, End: s.End, Text: s.Text}
		if opts.Verbose {
			wc.log.Debug().Float64("start", s.Start).Float64("end", s.End).Str("text", s.Text).Msg("segment")
		}
	}

	// An explicit language is reported as requested, not as the ISO code
	// the server echoes back.
	language := result.Language
	if opts.Language != "" {
		language = opts.Language
	}

	return &Response{
		Text:     result.Text,
		Language: language,
		Duration: result.Duration,
		Segments: segments,
	}, nil
}

// OpenAI-compatible servers take ISO-639-1 codes; the normalizer produces
// full names for the common aliases.
var isoLanguages = map[string]string{
	"english":    "en",
	"indonesian": "id",
}

func isoLanguage(lang string) string {
	if code, ok := isoLanguages[lang]; ok {
		return code
	}
	return lang
}
