package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var configEnvs = []string{
	"WHISPER_MODELS", "WHISPER_MODEL", "WHISPER_LANGUAGE", "WHISPER_BACKEND",
	"OPENAI_API_KEY", "OPENAI_API_BASE", "DEBUG", "LOG_LEVEL", "MAX_UPLOAD_BYTES",
	"HOST", "PORT", "SPOOL_RETENTION",
}

func TestLoad(t *testing.T) {
	cleanup := setEnvs(t, nil)
	defer cleanup()

	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load(Overrides{EnvFile: "nonexistent.env"})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		want := []string{"tiny", "base", "small", "medium", "large-v2", "large-v3"}
		if len(cfg.WhisperModels) != len(want) {
			t.Fatalf("WhisperModels = %v, want %v", cfg.WhisperModels, want)
		}
		for i := range want {
			if cfg.WhisperModels[i] != want[i] {
				t.Errorf("WhisperModels[%d] = %q, want %q", i, cfg.WhisperModels[i], want[i])
			}
		}
		if cfg.WhisperModel != "large-v3" {
			t.Errorf("WhisperModel = %q, want large-v3 (last listed)", cfg.WhisperModel)
		}
		if cfg.SummaryModel != "gpt-4o-mini" {
			t.Errorf("SummaryModel = %q, want gpt-4o-mini", cfg.SummaryModel)
		}
		if cfg.OpenAIBaseURL != "https://api.openai.com/v1" {
			t.Errorf("OpenAIBaseURL = %q", cfg.OpenAIBaseURL)
		}
		if cfg.SummaryTimeout != 60*time.Second {
			t.Errorf("SummaryTimeout = %v, want 60s", cfg.SummaryTimeout)
		}
		if cfg.MaxUploadBytes != 40*1024*1024 {
			t.Errorf("MaxUploadBytes = %d, want 40 MiB", cfg.MaxUploadBytes)
		}
		if cfg.SpoolRetention != 6*time.Hour {
			t.Errorf("SpoolRetention = %v, want 6h", cfg.SpoolRetention)
		}
		if cfg.Addr() != "0.0.0.0:5000" {
			t.Errorf("Addr() = %q, want 0.0.0.0:5000", cfg.Addr())
		}
		if cfg.LogLevel != "info" {
			t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
		}
	})

	t.Run("models_trimmed_and_default_from_env", func(t *testing.T) {
		os.Setenv("WHISPER_MODELS", " tiny , ,base ")
		os.Setenv("WHISPER_MODEL", "tiny")
		defer os.Unsetenv("WHISPER_MODELS")
		defer os.Unsetenv("WHISPER_MODEL")

		cfg, err := Load(Overrides{EnvFile: "nonexistent.env"})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if len(cfg.WhisperModels) != 2 || cfg.WhisperModels[0] != "tiny" || cfg.WhisperModels[1] != "base" {
			t.Errorf("WhisperModels = %v, want [tiny base]", cfg.WhisperModels)
		}
		if cfg.WhisperModel != "tiny" {
			t.Errorf("WhisperModel = %q, want tiny", cfg.WhisperModel)
		}
	})

	t.Run("cli_overrides_take_priority", func(t *testing.T) {
		cfg, err := Load(Overrides{
			EnvFile:  "nonexistent.env",
			Listen:   "127.0.0.1:9090",
			LogLevel: "warn",
			Models:   "small,medium",
			ModelDir: "/srv/models",
		})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.Addr() != "127.0.0.1:9090" {
			t.Errorf("Addr() = %q, want 127.0.0.1:9090", cfg.Addr())
		}
		if cfg.LogLevel != "warn" {
			t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
		}
		if cfg.WhisperModel != "medium" {
			t.Errorf("WhisperModel = %q, want medium", cfg.WhisperModel)
		}
		if cfg.WhisperModelDir != "/srv/models" {
			t.Errorf("WhisperModelDir = %q, want /srv/models", cfg.WhisperModelDir)
		}
	})

	t.Run("debug_forces_debug_level", func(t *testing.T) {
		os.Setenv("DEBUG", "true")
		defer os.Unsetenv("DEBUG")

		cfg, err := Load(Overrides{EnvFile: "nonexistent.env"})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.LogLevel != "debug" {
			t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
		}
	})

	t.Run("base_url_trailing_slash_trimmed", func(t *testing.T) {
		os.Setenv("OPENAI_API_BASE", "http://llm.local/v1/")
		defer os.Unsetenv("OPENAI_API_BASE")

		cfg, err := Load(Overrides{EnvFile: "nonexistent.env"})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.OpenAIBaseURL != "http://llm.local/v1" {
			t.Errorf("OpenAIBaseURL = %q, want http://llm.local/v1", cfg.OpenAIBaseURL)
		}
	})

	t.Run("env_file_read", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.env")
		if err := os.WriteFile(path, []byte("OPENAI_API_KEY=sk-from-file\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		defer os.Unsetenv("OPENAI_API_KEY")

		cfg, err := Load(Overrides{EnvFile: path})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.OpenAIKey != "sk-from-file" {
			t.Errorf("OpenAIKey = %q, want sk-from-file", cfg.OpenAIKey)
		}
	})
}

func TestLoadInvalid(t *testing.T) {
	cleanup := setEnvs(t, nil)
	defer cleanup()

	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"empty_model_list", "WHISPER_MODELS", " , "},
		{"bad_backend", "WHISPER_BACKEND", "gpu-cluster"},
		{"zero_upload_limit", "MAX_UPLOAD_BYTES", "0"},
		{"bad_port", "PORT", "http"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Setenv(tt.key, tt.val)
			defer os.Unsetenv(tt.key)
			if _, err := Load(Overrides{EnvFile: "nonexistent.env"}); err == nil {
				t.Errorf("expected error for %s=%q", tt.key, tt.val)
			}
		})
	}
}

// setEnvs clears the config variables, applies envs, and returns a cleanup function.
func setEnvs(t *testing.T, envs map[string]string) func() {
	t.Helper()
	originals := make(map[string]string)
	for _, k := range configEnvs {
		if orig, ok := os.LookupEnv(k); ok {
			originals[k] = orig
		}
		os.Unsetenv(k)
	}
	for k, v := range envs {
		os.Setenv(k, v)
	}

	return func() {
		for _, k := range configEnvs {
			os.Unsetenv(k)
		}
		for k, v := range originals {
			os.Setenv(k, v)
		}
	}
}
