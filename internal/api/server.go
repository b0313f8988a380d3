package api

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/snarg/scribe/internal/config"
	"github.com/snarg/scribe/internal/metrics"
	"github.com/snarg/scribe/internal/transcribe"
)

type ServerOptions struct {
	Config      *config.Config
	Catalog     *transcribe.Catalog
	Models      ModelStats
	Decoder     DecoderCheck
	Transcriber Transcriber
	Summarizer  Summarizer
	WebFS       fs.FS
	Version     string
	StartTime   time.Time
	Log         zerolog.Logger
}

type Server struct {
	http *http.Server
	log  zerolog.Logger
}

func NewServer(opts ServerOptions) (*Server, error) {
	cfg := opts.Config
	hasDefaultKey := cfg.OpenAIKey != ""

	pages, err := NewPageHandler(opts.WebFS, opts.Catalog, opts.Summarizer.Model(), hasDefaultKey, opts.Version)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(RequestID)
	r.Use(Logger(opts.Log))
	r.Use(Recoverer)
	r.Use(metrics.InstrumentHandler)
	r.Use(CORS)

	r.Get("/", pages.Index)
	r.Handle("/static/*", http.FileServerFS(opts.WebFS))
	r.Get("/api/models", pages.Models)

	health := NewHealthHandler(opts.Models, opts.Decoder, cfg.WhisperBackend, opts.Catalog.Default().ID, hasDefaultKey, opts.Version, opts.StartTime)
	r.Get("/healthz", health.ServeHTTP)

	r.Method(http.MethodPost, "/transcribe", NewTranscribeHandler(
		opts.Catalog, opts.Transcriber, cfg.WhisperLanguage, cfg.MaxUploadBytes, cfg.UploadDir, opts.Log,
	))
	r.Method(http.MethodPost, "/summarize", NewSummarizeHandler(opts.Summarizer, cfg.OpenAIKey, opts.Log))

	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return &Server{
		http: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      r,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: opts.Log,
	}, nil
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.http.Handler }

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server starting")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return fmt.Errorf("http server: %w", err)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}
