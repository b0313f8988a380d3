package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/snarg/scribe"
	"github.com/snarg/scribe/internal/api"
	"github.com/snarg/scribe/internal/config"
	"github.com/snarg/scribe/internal/metrics"
	"github.com/snarg/scribe/internal/spool"
	"github.com/snarg/scribe/internal/summarize"
	"github.com/snarg/scribe/internal/transcribe"
	"github.com/snarg/scribe/internal/whispercpp"
)

var version = "dev"

func main() {
	startTime := time.Now()

	var overrides config.Overrides
	flag.StringVar(&overrides.EnvFile, "env-file", "", "path to .env file (default .env)")
	flag.StringVar(&overrides.Listen, "listen", "", "listen address, overrides HOST/PORT")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	flag.StringVar(&overrides.Models, "models", "", "comma-separated model allow-list, overrides WHISPER_MODELS")
	flag.StringVar(&overrides.ModelDir, "model-dir", "", "directory holding ggml-<model>.bin files")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	// Config
	cfg, err := config.Load(overrides)
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	// Logger
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().
		Str("version", version).
		Str("backend", cfg.WhisperBackend).
		Strs("models", cfg.WhisperModels).
		Str("default_model", cfg.WhisperModel).
		Msg("scribe starting")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := transcribe.NewCatalog(cfg.WhisperModels, cfg.WhisperModel)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid model configuration")
	}

	// Transcription backend
	engineLog := log.With().Str("component", "transcribe").Logger()
	var (
		loader  transcribe.Loader
		decoder api.DecoderCheck
	)
	switch cfg.WhisperBackend {
	case "local":
		dec := transcribe.NewDecoder(cfg.FFmpegPath)
		if !dec.Available() {
			log.Warn().Str("ffmpeg", cfg.FFmpegPath).Msg("ffmpeg not found, transcription requests will fail")
		}
		loader = &whispercpp.Loader{
			Dir:     cfg.WhisperModelDir,
			Threads: cfg.WhisperThreads,
			Decoder: dec,
			Log:     engineLog,
		}
		decoder = dec
	case "remote":
		loader = transcribe.RemoteLoader(cfg.WhisperURL, cfg.WhisperTimeout, engineLog)
	}

	registry := transcribe.NewRegistry(catalog, loader, engineLog)
	defer func() {
		if err := registry.Close(); err != nil {
			log.Error().Err(err).Msg("failed to release models")
		}
	}()
	invoker := transcribe.NewInvoker(registry, engineLog)

	sweeper := spool.NewSweeper(cfg.UploadDir, cfg.SpoolRetention, 10*time.Minute, log)
	sweeper.Start()
	defer sweeper.Stop()

	summarizer := summarize.New(summarize.Options{
		BaseURL:     cfg.OpenAIBaseURL,
		Model:       cfg.SummaryModel,
		Temperature: 0.4,
		MaxTokens:   cfg.SummaryMaxTokens,
		Timeout:     cfg.SummaryTimeout,
		Log:         log.With().Str("component", "summarize").Logger(),
	})

	if cfg.MetricsEnabled {
		prometheus.MustRegister(metrics.NewCollector(registry))
	}

	webFS, err := fs.Sub(scribe.WebFiles, "web")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open embedded web files")
	}

	// HTTP Server
	httpLog := log.With().Str("component", "http").Logger()
	srv, err := api.NewServer(api.ServerOptions{
		Config:      cfg,
		Catalog:     catalog,
		Models:      registry,
		Decoder:     decoder,
		Transcriber: invoker,
		Summarizer:  summarizer,
		WebFS:       webFS,
		Version:     version,
		StartTime:   startTime,
		Log:         httpLog,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build http server")
	}

	// Start HTTP server in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	// Graceful shutdown with 10s timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	log.Info().Msg("scribe stopped")
}
