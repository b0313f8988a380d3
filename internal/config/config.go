package config

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	WhisperModels   []string      `env:"WHISPER_MODELS" envSeparator:"," envDefault:"tiny,base,small,medium,large-v2,large-v3"`
	WhisperModel    string        `env:"WHISPER_MODEL"`
	WhisperLanguage string        `env:"WHISPER_LANGUAGE"`
	WhisperBackend  string        `env:"WHISPER_BACKEND" envDefault:"local"`
	WhisperModelDir string        `env:"WHISPER_MODEL_DIR" envDefault:"./models"`
	WhisperURL      string        `env:"WHISPER_URL" envDefault:"http://localhost:8000/v1/audio/transcriptions"`
	WhisperTimeout  time.Duration `env:"WHISPER_TIMEOUT" envDefault:"10m"`
	WhisperThreads  uint          `env:"WHISPER_THREADS" envDefault:"0"`
	FFmpegPath      string        `env:"FFMPEG_PATH" envDefault:"ffmpeg"`

	SummaryModel     string        `env:"OPENAI_SUMMARY_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIKey        string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string        `env:"OPENAI_API_BASE" envDefault:"https://api.openai.com/v1"`
	SummaryTimeout   time.Duration `env:"SUMMARY_TIMEOUT" envDefault:"60s"`
	SummaryMaxTokens int           `env:"SUMMARY_MAX_TOKENS" envDefault:"320"`

	MaxUploadBytes int64         `env:"MAX_UPLOAD_BYTES" envDefault:"41943040"` // 40 MiB
	UploadDir      string        `env:"UPLOAD_DIR"`
	SpoolRetention time.Duration `env:"SPOOL_RETENTION" envDefault:"6h"`

	Host         string        `env:"HOST" envDefault:"0.0.0.0"`
	Port         int           `env:"PORT" envDefault:"5000"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15m"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`

	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	Debug          bool   `env:"DEBUG" envDefault:"false"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`

	// Listen overrides Host/Port when set (e.g. from -listen).
	Listen string
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile  string
	Listen   string
	LogLevel string
	Models   string
	ModelDir string
}

// Load reads configuration from .env file, environment variables, and CLI overrides.
// Priority: CLI flags > environment variables > .env file > struct defaults.
func Load(overrides Overrides) (*Config, error) {
	// Load .env file (silent if missing)
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Apply CLI overrides (non-empty values win)
	if overrides.Listen != "" {
		cfg.Listen = overrides.Listen
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.Models != "" {
		cfg.WhisperModels = strings.Split(overrides.Models, ",")
	}
	if overrides.ModelDir != "" {
		cfg.WhisperModelDir = overrides.ModelDir
	}

	cfg.WhisperModels = cleanList(cfg.WhisperModels)
	if len(cfg.WhisperModels) == 0 {
		return nil, fmt.Errorf("WHISPER_MODELS must list at least one model")
	}
	cfg.WhisperModel = strings.TrimSpace(cfg.WhisperModel)
	if cfg.WhisperModel == "" {
		cfg.WhisperModel = cfg.WhisperModels[len(cfg.WhisperModels)-1]
	}

	switch cfg.WhisperBackend {
	case "local", "remote":
	default:
		return nil, fmt.Errorf("invalid WHISPER_BACKEND %q: must be local or remote", cfg.WhisperBackend)
	}

	if cfg.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_BYTES %d: must be > 0", cfg.MaxUploadBytes)
	}

	cfg.OpenAIBaseURL = strings.TrimRight(cfg.OpenAIBaseURL, "/")

	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	return cfg, nil
}

// Addr returns the address the HTTP server binds to.
func (c *Config) Addr() string {
	if c.Listen != "" {
		return c.Listen
	}
	return net.JoinHostPort(c.Host, fmt.Sprint(c.Port))
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
