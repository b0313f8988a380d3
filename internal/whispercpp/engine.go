// Package whispercpp runs ggml Whisper models in-process through the
// whisper.cpp Go bindings. It needs cgo and libwhisper at build time, so only
// the binary imports it; everything else talks to transcribe.Model.
package whispercpp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/rs/zerolog"
	"github.com/snarg/scribe/internal/transcribe"
)

// Loader loads ggml-<id>.bin from Dir.
type Loader struct {
	Dir     string
	Threads uint // 0 = library default
	Decoder *transcribe.Decoder
	Log     zerolog.Logger
}

// ModelPath returns the ggml file expected for id.
func (l *Loader) ModelPath(id string) string {
	return filepath.Join(l.Dir, "ggml-"+id+".bin")
}

// Load implements transcribe.Loader.
func (l *Loader) Load(ctx context.Context, id string) (transcribe.Model, error) {
	path := l.ModelPath(id)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}
	model, err := whisper.New(path)
	if err != nil {
		return nil, fmt.Errorf("whisper init %s: %w", path, err)
	}
	return &Engine{
		id:      id,
		model:   model,
		threads: l.Threads,
		decoder: l.Decoder,
		log:     l.Log.With().Str("model", id).Logger(),
	}, nil
}

// Engine is one loaded whisper.cpp model.
type Engine struct {
	id      string
	model   whisper.Model
	threads uint
	decoder *transcribe.Decoder
	log     zerolog.Logger

	// whisper.cpp is not thread safe: concurrent Process calls on the same
	// backend state crash, so inference is serialized per model.
	mu sync.Mutex
}

func (e *Engine) Name() string { return "whispercpp" }

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.model.Close()
}

// Transcribe decodes audioPath to PCM and runs full inference. The context is
// checked before decoding and at encoder start; a running decode pass cannot be
// interrupted.
func (e *Engine) Transcribe(ctx context.Context, audioPath string, opts transcribe.Options) (*transcribe.Response, error) {
	if opts.FP16 {
		return nil, errors.New("half-precision compute is not supported")
	}

	// cpu bound, parallel safe: decode outside the lock
	samples, err := e.decoder.Decode(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	wctx, err := e.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("create whisper context: %w", err)
	}

	if lang, ok := languageSetting(opts.Language, e.model.IsMultilingual()); ok {
		if err := wctx.SetLanguage(lang); err != nil {
			return nil, fmt.Errorf("set language %q: %w", lang, err)
		}
	}
	wctx.SetTranslate(false)
	if e.threads > 0 {
		wctx.SetThreads(e.threads)
	}

	var onProgress whisper.ProgressCallback
	if opts.Verbose {
		onProgress = func(p int) {
			e.log.Trace().Int("progress", p).Msg("decoding")
		}
	}
	onEncoderBegin := func() bool {
		return ctx.Err() == nil
	}

	// No segment callback: passing one switches the bindings to single-segment
	// mode. Segments are read back with NextSegment instead.
	if err := wctx.Process(samples, onEncoderBegin, nil, onProgress); err != nil {
		return nil, fmt.Errorf("whisper process: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text, segments, err := collectSegments(wctx.NextSegment, opts.Verbose, e.log)
	if err != nil {
		return nil, err
	}

	return &transcribe.Response{
		Text:     text,
		Language: reportedLanguage(opts.Language, wctx.DetectedLanguage),
		Duration: float64(len(samples)) / transcribe.SampleRate,
		Segments: segments,
	}, nil
}

// languageSetting returns the value for SetLanguage and whether to call it at
// all. English-only models reject every setting, "auto" included, so with no
// explicit language they are left alone.
func languageSetting(requested string, multilingual bool) (string, bool) {
	if requested != "" {
		return requested, true
	}
	if !multilingual {
		return "", false
	}
	return "auto", true
}

// reportedLanguage echoes an explicit language as requested and otherwise
// asks the context what it detected.
func reportedLanguage(requested string, detected func() string) string {
	if requested != "" {
		return requested
	}
	return detected()
}

// collectSegments drains next until io.EOF, concatenating segment text and
// converting timestamps to seconds.
func collectSegments(next func() (whisper.Segment, error), verbose bool, log zerolog.Logger) (string, []transcribe.Segment, error) {
	var (
		text     strings.Builder
		segments []transcribe.Segment
	)
	for {
		s, err := next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", nil, fmt.Errorf("read segment %d: %w", len(segments), err)
		}
		text.WriteString(s.Text)
		segments = append(segments, transcribe.Segment{
			Start: s.Start.Seconds(),
			End:   s.End.Seconds(),
			Text:  s.Text,
		})
		if verbose {
			log.Debug().
				Float64("start", s.Start.Seconds()).
				Float64("end", s.End.Seconds()).
				Str("text", s.Text).
				Msg("segment")
		}
	}
	return text.String(), segments, nil
}
