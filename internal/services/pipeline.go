package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/contentops/pdfmoderation/internal/moderr"
	"github.com/contentops/pdfmoderation/internal/models"
	"github.com/contentops/pdfmoderation/internal/store"
)

// PageTextExtractor extracts embedded text from one page image.
type PageTextExtractor interface {
	ExtractText(ctx context.Context, image []byte) (string, error)
}

// PageVisualModerator classifies one page image for moderation labels.
type PageVisualModerator interface {
	DetectModerationLabels(ctx context.Context, image []byte, minConfidence float32) ([]models.ModerationLabel, error)
}

// PageTextModerator checks extracted text against the text-check service.
type PageTextModerator interface {
	CheckText(ctx context.Context, text string) (*models.TextModerationVerdict, error)
}

// PipelineConfig carries the per-document analysis settings.
type PipelineConfig struct {
	// MinConfidence is the moderation-label floor applied to every page.
	MinConfidence float32
	// CallTimeout bounds each individual remote call.
	CallTimeout time.Duration
	// Concurrency bounds the number of pages analyzed in parallel.
	Concurrency int
}

// Pipeline orchestrates per-page analysis across all pages of one document
// and assembles the document report.
//
// Failure isolation: one page's failure never aborts the document. The failed
// page is recorded as an explicit error marker in its report slot and every
// sibling page runs to completion, so the report always carries one entry per
// page. Only listing and consistency faults fail the whole call.
type Pipeline struct {
	store     store.ObjectStore
	extractor PageTextExtractor
	visual    PageVisualModerator
	textMod   PageTextModerator
	config    PipelineConfig
}

// NewPipeline creates a Pipeline.
func NewPipeline(objectStore store.ObjectStore, extractor PageTextExtractor, visual PageVisualModerator, textMod PageTextModerator, config PipelineConfig) *Pipeline {
	if config.Concurrency <= 0 {
		config.Concurrency = 10
	}
	if config.CallTimeout <= 0 {
		config.CallTimeout = 30 * time.Second
	}
	return &Pipeline{
		store:     objectStore,
		extractor: extractor,
		visual:    visual,
		textMod:   textMod,
		config:    config,
	}
}

// Analyze lists the page images stored under the document's prefix, analyzes
// all pages concurrently, and returns the report ordered by page index.
// expectedPages is the page count reported by rasterization; a diverging
// object count is a consistency fault.
func (p *Pipeline) Analyze(ctx context.Context, documentID string, expectedPages int) (*models.DocumentReport, error) {
	logCtx := slog.With("documentId", documentID)

	keys, err := p.store.List(ctx, documentID+"/")
	if err != nil {
		logCtx.Error("Failed to list page objects.", "error", err)
		return nil, fmt.Errorf("failed to list page images: %w", err)
	}
	if len(keys) != expectedPages {
		logCtx.Error("Page object count diverges from rasterized page count.",
			"expected", expectedPages, "actual", len(keys))
		return nil, &moderr.ConsistencyFault{DocumentID: documentID, Expected: expectedPages, Actual: len(keys)}
	}
	// Page file names encode the page order, so lexical key order is page
	// order even if the backend returned keys unsorted.
	sort.Strings(keys)

	logCtx.Info("Starting page analysis fan-out.", "pageCount", len(keys))

	reports := make([]models.PageReport, len(keys))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(p.config.Concurrency)

	for i, key := range keys {
		slot := i
		ref := models.PageRef{Index: i + 1, Key: key}
		eg.Go(func() error {
			// Results are index-addressed; completion order never
			// affects report order. Page failures stay inside the
			// report, so the group error is always nil.
			reports[slot] = p.analyzePage(gctx, documentID, ref)
			return nil
		})
	}
	_ = eg.Wait()

	failed := 0
	for _, report := range reports {
		if report.Error != "" {
			failed++
		}
	}
	logCtx.Info("Page analysis complete.", "pageCount", len(reports), "failedPages", failed)

	return &models.DocumentReport{
		DocumentID: documentID,
		PageCount:  len(reports),
		Pages:      reports,
	}, nil
}

// analyzePage runs the sequential per-page chain: load bytes, extract text,
// detect moderation labels, then check the text when any was found.
func (p *Pipeline) analyzePage(ctx context.Context, documentID string, ref models.PageRef) models.PageReport {
	logCtx := slog.With("documentId", documentID, "page", ref.Index)
	report := models.PageReport{Index: ref.Index, Page: models.PageLabel(ref.Index)}

	image, err := p.loadPage(ctx, ref.Key)
	if err != nil {
		logCtx.Error("Failed to load page image.", "key", ref.Key, "error", err)
		report.Error = "failed to load page image"
		return report
	}

	text, err := p.extractPageText(ctx, image)
	if err != nil {
		logCtx.Error("Text extraction failed.", "error", err)
		report.Error = moderr.Message(err)
		return report
	}
	report.Text = text

	labels, err := p.detectPageLabels(ctx, image)
	if err != nil {
		logCtx.Error("Moderation detection failed.", "error", err)
		report.Error = moderr.Message(err)
		return report
	}
	report.CheckImages = labels

	if text != "" {
		verdict, err := p.checkPageText(ctx, text)
		if err != nil {
			logCtx.Error("Text moderation failed.", "error", err)
			report.Error = moderr.Message(err)
			return report
		}
		report.CheckText = verdict
	}
	return report
}

func (p *Pipeline) loadPage(ctx context.Context, key string) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.config.CallTimeout)
	defer cancel()
	return p.store.Get(callCtx, key)
}

func (p *Pipeline) extractPageText(ctx context.Context, image []byte) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.config.CallTimeout)
	defer cancel()
	return p.extractor.ExtractText(callCtx, image)
}

func (p *Pipeline) detectPageLabels(ctx context.Context, image []byte) ([]models.ModerationLabel, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.config.CallTimeout)
	defer cancel()
	return p.visual.DetectModerationLabels(callCtx, image, p.config.MinConfidence)
}

func (p *Pipeline) checkPageText(ctx context.Context, text string) (*models.TextModerationVerdict, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.config.CallTimeout)
	defer cancel()
	return p.textMod.CheckText(callCtx, text)
}
