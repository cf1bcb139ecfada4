package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/wolfman30/novatech-assistant/internal/dynamic"
	"github.com/wolfman30/novatech-assistant/internal/knowledge"
)

func newTempLoader(t *testing.T) *knowledge.Loader {
	t.Helper()
	dir := t.TempDir()
	files, err := filepath.Glob("../../../knowledge_base/*.json")
	if err != nil || len(files) == 0 {
		t.Fatalf("knowledge fixtures not found: %v", err)
	}
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if err := os.WriteFile(filepath.Join(dir, filepath.Base(f)), data, 0o644); err != nil {
			t.Fatalf("write %s: %v", f, err)
		}
	}
	loader, err := knowledge.NewLoader(dir, knowledge.Options{})
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	return loader
}

type stubDynamic struct {
	latest    map[string]knowledge.Value
	latestErr error
	report    dynamic.Report
	err       error
	kinds     []string
}

func (s *stubDynamic) Latest(_ context.Context, category string) (knowledge.Value, error) {
	if s.latestErr != nil {
		return knowledge.Null(), s.latestErr
	}
	v, ok := s.latest[category]
	if !ok {
		return knowledge.Null(), dynamic.ErrNoData
	}
	return v, nil
}

func (s *stubDynamic) Refresh(_ context.Context, kinds ...string) (dynamic.Report, error) {
	s.kinds = append(s.kinds, kinds...)
	return s.report, s.err
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v (%s)", err, rec.Body.String())
	}
	return body
}

func TestJSONError(t *testing.T) {
	rec := httptest.NewRecorder()
	jsonError(rec, "oops", http.StatusTeapot)

	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected content type application/json, got %q", ct)
	}
	if body := decodeBody(t, rec); body["error"] != "oops" {
		t.Fatalf("unexpected error message %v", body["error"])
	}
}
