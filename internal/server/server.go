// Package server implements the HTTP ingress for the moderation service:
// an image-only moderation endpoint and a multi-page document endpoint.
package server

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"

	"github.com/contentops/pdfmoderation/internal/moderr"
	"github.com/contentops/pdfmoderation/internal/models"
	"github.com/contentops/pdfmoderation/internal/store"
)

// DocumentRasterizer converts a document into stored page images.
type DocumentRasterizer interface {
	Rasterize(ctx context.Context, documentID string, documentBytes []byte) ([]models.PageRef, error)
}

// DocumentAnalyzer produces the per-document moderation report.
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, documentID string, expectedPages int) (*models.DocumentReport, error)
}

// ImageModerator is the visual capability used by the image-only endpoint.
type ImageModerator interface {
	DetectModerationLabels(ctx context.Context, image []byte, minConfidence float32) ([]models.ModerationLabel, error)
	DescribeInOneLine(ctx context.Context, image []byte) (string, error)
}

// Server holds the handler dependencies.
type Server struct {
	store              store.ObjectStore
	rasterizer         DocumentRasterizer
	analyzer           DocumentAnalyzer
	visual             ImageModerator
	imageMinConfidence float32
}

// New creates a Server.
func New(objectStore store.ObjectStore, rasterizer DocumentRasterizer, analyzer DocumentAnalyzer, visual ImageModerator, imageMinConfidence float32) *Server {
	return &Server{
		store:              objectStore,
		rasterizer:         rasterizer,
		analyzer:           analyzer,
		visual:             visual,
		imageMinConfidence: imageMinConfidence,
	}
}

// Router builds the chi router with the permissive cross-origin policy both
// endpoints expose.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "Origin"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/moderation/image", s.handleImageModeration)
	r.Post("/moderation/document", s.handleDocumentModeration)
	return r
}

func (s *Server) handleImageModeration(w http.ResponseWriter, r *http.Request) {
	var req models.ImageModerationRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, &moderr.ValidationError{Msg: "request body must be valid JSON"})
		return
	}
	if req.ImageBase64 == "" || req.FileName == "" {
		writeError(w, r, &moderr.ValidationError{Msg: "both 'imageBase64' and 'fileName' are required"})
		return
	}
	image, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		writeError(w, r, &moderr.ValidationError{Msg: "'imageBase64' is not valid base64"})
		return
	}

	ctx := r.Context()
	if err := s.store.Put(ctx, req.FileName, image, "image/jpeg"); err != nil {
		slog.Error("Failed to persist image.", "fileName", req.FileName, "error", err)
		writeError(w, r, &moderr.InternalError{Err: err})
		return
	}
	stored, err := s.store.Get(ctx, req.FileName)
	if err != nil {
		slog.Error("Failed to read back image.", "fileName", req.FileName, "error", err)
		writeError(w, r, &moderr.InternalError{Err: err})
		return
	}

	labels, err := s.visual.DetectModerationLabels(ctx, stored, s.imageMinConfidence)
	if err != nil {
		writeError(w, r, err)
		return
	}
	description, err := s.visual.DescribeInOneLine(ctx, stored)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, models.ImageModerationResponse{
		ModerationInfo:   labels,
		ImageDescription: description,
	})
}

func (s *Server) handleDocumentModeration(w http.ResponseWriter, r *http.Request) {
	var req models.DocumentModerationRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, &moderr.ValidationError{Msg: "request body must be valid JSON"})
		return
	}
	if req.PDFBase64 == "" || req.FileName == "" {
		writeError(w, r, &moderr.ValidationError{Msg: "both 'pdfBase64' and 'fileName' are required"})
		return
	}
	document, err := base64.StdEncoding.DecodeString(req.PDFBase64)
	if err != nil {
		writeError(w, r, &moderr.ValidationError{Msg: "'pdfBase64' is not valid base64"})
		return
	}

	ctx := r.Context()
	refs, err := s.rasterizer.Rasterize(ctx, req.FileName, document)
	if err != nil {
		writeError(w, r, err)
		return
	}
	report, err := s.analyzer.Analyze(ctx, req.FileName, len(refs))
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, report.Pages)
}

// writeError resolves a failure to its status code and short message. The
// full error stays in the logs.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := moderr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed.", "status", status, "error", err)
	} else {
		slog.Warn("Request rejected.", "status", status, "error", err)
	}
	render.Status(r, status)
	render.JSON(w, r, models.ErrorResponse{Message: moderr.Message(err)})
}
