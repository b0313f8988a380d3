package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
)

const testIndex = `<!DOCTYPE html>
<select id="model">{{range .Models}}
<option value="{{.ID}}"{{if eq .ID $.DefaultModel}} selected{{end}}>{{.Label}}{{if .Recommended}} (recommended){{end}}</option>{{end}}
</select>
<section id="summary-block" data-has-default-openai="{{.HasDefaultOpenAI}}"></section>`

func newTestPageHandler(t *testing.T, hasKey bool) *PageHandler {
	t.Helper()
	fs := fstest.MapFS{"index.html": &fstest.MapFile{Data: []byte(testIndex)}}
	h, err := NewPageHandler(fs, newTestCatalog(t), "gpt-4o-mini", hasKey, "test")
	if err != nil {
		t.Fatalf("NewPageHandler: %v", err)
	}
	return h
}

func TestPageHandler_Index(t *testing.T) {
	h := newTestPageHandler(t, true)

	rec := httptest.NewRecorder()
	h.Index(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`<option value="tiny">Tiny · Fastest speed · lowest accuracy</option>`,
		`<option value="base" selected>Base · Very fast speed · moderate accuracy</option>`,
		`<option value="medium">Medium · Moderate speed · high accuracy (recommended)</option>`,
		`data-has-default-openai="true"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q\n%s", want, body)
		}
	}
}

func TestPageHandler_MissingTemplate(t *testing.T) {
	if _, err := NewPageHandler(fstest.MapFS{}, newTestCatalog(t), "gpt-4o-mini", false, "test"); err == nil {
		t.Fatal("expected error when index.html is absent")
	}
}

func TestPageHandler_Models(t *testing.T) {
	h := newTestPageHandler(t, false)

	rec := httptest.NewRecorder()
	h.Models(rec, httptest.NewRequest("GET", "/api/models", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Models []struct {
			Value         string `json:"value"`
			Label         string `json:"label"`
			Description   string `json:"description"`
			IsRecommended bool   `json:"is_recommended"`
		} `json:"models"`
		DefaultModel string `json:"default_model"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("JSON decode: %v", err)
	}
	if body.DefaultModel != "base" {
		t.Errorf("default_model = %q, want base", body.DefaultModel)
	}
	var order []string
	for _, m := range body.Models {
		order = append(order, m.Value)
		if m.IsRecommended != (m.Value == "medium") {
			t.Errorf("%s is_recommended = %v", m.Value, m.IsRecommended)
		}
	}
	if strings.Join(order, ",") != "tiny,base,medium" {
		t.Errorf("order = %v, want configured order", order)
	}
}
