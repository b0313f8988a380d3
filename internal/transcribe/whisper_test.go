package transcribe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestWhisperClient_Transcribe(t *testing.T) {
	var gotFields map[string][]string
	var gotFilename string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
		}
		gotFields = r.MultipartForm.Value
		if fh := r.MultipartForm.File["file"]; len(fh) == 1 {
			gotFilename = fh[0].Filename
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":" halo semua ","language":"id","duration":3.2,
			"segments":[{"start":0.0,"end":1.5,"text":" halo"},{"start":1.5,"end":3.2,"text":" semua"}]}`))
	}))
	defer srv.Close()

	wc := NewWhisperClient(srv.URL, "small", 5*time.Second, zerolog.Nop())
	resp, err := wc.Transcribe(context.Background(), spoolFile(t), Options{Language: "indonesian", Verbose: true})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	if gotFilename != "upload.wav" {
		t.Errorf("filename = %q, want upload.wav", gotFilename)
	}
	checks := map[string]string{
		"model":           "small",
		"language":        "id",
		"response_format": "verbose_json",
	}
	for k, want := range checks {
		if v := gotFields[k]; len(v) != 1 || v[0] != want {
			t.Errorf("field %s = %v, want %q", k, v, want)
		}
	}

	if resp.Language != "indonesian" || resp.Duration != 3.2 {
		t.Errorf("resp = %+v", resp)
	}
	if len(resp.Segments) != 2 || resp.Segments[1].Start != 1.5 || resp.Segments[1].Text != " semua" {
		t.Errorf("segments = %+v", resp.Segments)
	}
}

func TestWhisperClient_OmitsLanguageForAutoDetect(t *testing.T) {
	var sawLanguage bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseMultipartForm(1 << 20)
		_, sawLanguage = r.MultipartForm.Value["language"]
		w.Write([]byte(`{"text":"hi","language":"en","segments":[]}`))
	}))
	defer srv.Close()

	wc := NewWhisperClient(srv.URL, "tiny", 5*time.Second, zerolog.Nop())
	resp, err := wc.Transcribe(context.Background(), spoolFile(t), Options{})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if resp.Language != "en" {
		t.Errorf("language = %q, want detected %q", resp.Language, "en")
	}
	if sawLanguage {
		t.Error("language field sent for auto-detect")
	}
}

func TestWhisperClient_Errors(t *testing.T) {
	t.Run("http_status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not installed", http.StatusNotFound)
		}))
		defer srv.Close()

		wc := NewWhisperClient(srv.URL, "tiny", 5*time.Second, zerolog.Nop())
		_, err := wc.Transcribe(context.Background(), spoolFile(t), Options{})
		if err == nil || !strings.Contains(err.Error(), "status 404") {
			t.Errorf("err = %v, want status 404", err)
		}
	})

	t.Run("bad_json", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>`))
		}))
		defer srv.Close()

		wc := NewWhisperClient(srv.URL, "tiny", 5*time.Second, zerolog.Nop())
		_, err := wc.Transcribe(context.Background(), spoolFile(t), Options{})
		if err == nil || !strings.Contains(err.Error(), "decode response") {
			t.Errorf("err = %v, want decode error", err)
		}
	})

	t.Run("missing_file", func(t *testing.T) {
		wc := NewWhisperClient("http://127.0.0.1:1", "tiny", time.Second, zerolog.Nop())
		_, err := wc.Transcribe(context.Background(), "/nonexistent/clip.wav", Options{})
		if err == nil || !strings.Contains(err.Error(), "open audio file") {
			t.Errorf("err = %v, want open error", err)
		}
	})
}

func TestRemoteLoader(t *testing.T) {
	m, err := RemoteLoader("http://whisper.local/v1/audio/transcriptions", time.Minute, zerolog.Nop()).
		Load(context.Background(), "large-v3")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	wc, ok := m.(*WhisperClient)
	if !ok {
		t.Fatalf("model type = %T, want *WhisperClient", m)
	}
	if wc.model != "large-v3" || wc.Name() != "remote" {
		t.Errorf("client = %+v", wc)
	}

	if _, err := RemoteLoader("", time.Minute, zerolog.Nop()).Load(context.Background(), "tiny"); err == nil {
		t.Error("expected error with no endpoint")
	}
}
