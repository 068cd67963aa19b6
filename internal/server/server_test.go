package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/contentops/pdfmoderation/internal/moderr"
	"github.com/contentops/pdfmoderation/internal/models"
	"github.com/contentops/pdfmoderation/internal/store/memory"
)

type stubRasterizer struct {
	refs  []models.PageRef
	err   error
	calls int
}

func (s *stubRasterizer) Rasterize(_ context.Context, _ string, _ []byte) ([]models.PageRef, error) {
	s.calls++
	return s.refs, s.err
}

type stubAnalyzer struct {
	report *models.DocumentReport
	err    error
	calls  int
}

func (s *stubAnalyzer) Analyze(_ context.Context, _ string, _ int) (*models.DocumentReport, error) {
	s.calls++
	return s.report, s.err
}

type stubImageModerator struct {
	labels      []models.ModerationLabel
	description string
	err         error
	calls       int

	gotMinConfidence float32
}

func (s *stubImageModerator) DetectModerationLabels(_ context.Context, _ []byte, minConfidence float32) ([]models.ModerationLabel, error) {
	s.calls++
	s.gotMinConfidence = minConfidence
	return s.labels, s.err
}

func (s *stubImageModerator) DescribeInOneLine(_ context.Context, _ []byte) (string, error) {
	s.calls++
	return s.description, s.err
}

type testEnv struct {
	rasterizer *stubRasterizer
	analyzer   *stubAnalyzer
	visual     *stubImageModerator
	handler    http.Handler
}

func newTestEnv() *testEnv {
	env := &testEnv{
		rasterizer: &stubRasterizer{},
		analyzer:   &stubAnalyzer{},
		visual:     &stubImageModerator{},
	}
	srv := New(memory.NewObjectStore(), env.rasterizer, env.analyzer, env.visual, 70)
	env.handler = srv.Router()
	return env
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestImageModerationValidation(t *testing.T) {
	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing imageBase64", map[string]string{"fileName": "a.jpg"}},
		{"missing fileName", map[string]string{"imageBase64": base64.StdEncoding.EncodeToString([]byte("img"))}},
		{"empty body", map[string]string{}},
		{"invalid base64", map[string]string{"imageBase64": "!!not-base64!!", "fileName": "a.jpg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			rec := postJSON(t, env.handler, "/moderation/image", tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status %d, want 400", rec.Code)
			}
			if env.visual.calls != 0 {
				t.Error("validation failures must not reach downstream services")
			}
			var resp models.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Message == "" {
				t.Errorf("expected {message} envelope, got %s", rec.Body.String())
			}
		})
	}
}

func TestImageModerationSuccess(t *testing.T) {
	env := newTestEnv()
	env.visual.labels = []models.ModerationLabel{{Name: "Suggestive", Confidence: 81.3}}
	env.visual.description = "This image contains Person, and Beach."

	rec := postJSON(t, env.handler, "/moderation/image", map[string]string{
		"imageBase64": base64.StdEncoding.EncodeToString([]byte("jpeg bytes")),
		"fileName":    "holiday.jpg",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp models.ImageModerationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.ModerationInfo) != 1 || resp.ModerationInfo[0].Name != "Suggestive" {
		t.Errorf("moderationInfo wrong: %+v", resp.ModerationInfo)
	}
	if resp.ImageDescription != "This image contains Person, and Beach." {
		t.Errorf("imageDescription wrong: %q", resp.ImageDescription)
	}
	if env.visual.gotMinConfidence != 70 {
		t.Errorf("image endpoint must use its configured threshold, got %v", env.visual.gotMinConfidence)
	}
}

func TestImageModerationDownstreamFailure(t *testing.T) {
	env := newTestEnv()
	env.visual.err = &moderr.ModerationDetectionError{Err: errors.New("service down")}

	rec := postJSON(t, env.handler, "/moderation/image", map[string]string{
		"imageBase64": base64.StdEncoding.EncodeToString([]byte("jpeg bytes")),
		"fileName":    "holiday.jpg",
	})
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status %d, want 502", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "service down") {
		t.Error("internal detail leaked to the caller")
	}
}

func TestDocumentModerationValidation(t *testing.T) {
	env := newTestEnv()
	rec := postJSON(t, env.handler, "/moderation/document", map[string]string{"fileName": "doc.pdf"})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status %d, want 400", rec.Code)
	}
	if env.rasterizer.calls != 0 || env.analyzer.calls != 0 {
		t.Error("validation failures must not start the pipeline")
	}
}

func TestDocumentModerationSuccess(t *testing.T) {
	env := newTestEnv()
	env.rasterizer.refs = []models.PageRef{
		{Index: 1, Key: "doc.pdf/00001.png"},
		{Index: 2, Key: "doc.pdf/00002.png"},
	}
	env.analyzer.report = &models.DocumentReport{
		DocumentID: "doc.pdf",
		PageCount:  2,
		Pages: []models.PageReport{
			{Index: 1, Page: models.PageLabel(1), CheckImages: []models.ModerationLabel{}},
			{Index: 2, Page: models.PageLabel(2), Error: "failed to fetch moderation labels"},
		},
	}

	rec := postJSON(t, env.handler, "/moderation/document", map[string]string{
		"pdfBase64": base64.StdEncoding.EncodeToString([]byte("%PDF-1.4")),
		"fileName":  "doc.pdf",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var pages []map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &pages); err != nil {
		t.Fatalf("response is not a JSON array: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 page entries, got %d", len(pages))
	}
	if string(pages[0]["page"]) != `"Page No 1"` {
		t.Errorf("first entry page label wrong: %s", pages[0]["page"])
	}
	if _, ok := pages[1]["error"]; !ok {
		t.Error("failed page must carry its marker in the response")
	}
}

func TestDocumentModerationRasterizationFailure(t *testing.T) {
	env := newTestEnv()
	env.rasterizer.err = &moderr.RasterizationError{Msg: "document has no pages"}

	rec := postJSON(t, env.handler, "/moderation/document", map[string]string{
		"pdfBase64": base64.StdEncoding.EncodeToString([]byte("junk")),
		"fileName":  "doc.pdf",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status %d, want 422", rec.Code)
	}
	if env.analyzer.calls != 0 {
		t.Error("analysis must not run when rasterization failed")
	}
}

func TestDocumentModerationConsistencyFault(t *testing.T) {
	env := newTestEnv()
	env.rasterizer.refs = []models.PageRef{{Index: 1, Key: "doc.pdf/00001.png"}}
	env.analyzer.err = &moderr.ConsistencyFault{DocumentID: "doc.pdf", Expected: 1, Actual: 0}

	rec := postJSON(t, env.handler, "/moderation/document", map[string]string{
		"pdfBase64": base64.StdEncoding.EncodeToString([]byte("%PDF-1.4")),
		"fileName":  "doc.pdf",
	})
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status %d, want 500", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv()
	req := httptest.NewRequest(http.MethodOptions, "/moderation/image", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Error("preflight response missing Access-Control-Allow-Origin")
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("credentials must be allowed, got %q", got)
	}
}
