package services

import (
	"context"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gen2brain/go-fitz"
	"github.com/oklog/ulid/v2"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/sync/errgroup"

	"github.com/contentops/pdfmoderation/internal/moderr"
	"github.com/contentops/pdfmoderation/internal/models"
	"github.com/contentops/pdfmoderation/internal/store"
)

// Rasterizer converts a PDF into per-page PNG images and persists them to the
// object store under {documentID}/{page}.png.
type Rasterizer struct {
	store       store.ObjectStore
	concurrency int
}

// NewRasterizer creates a Rasterizer. concurrency bounds the parallel page
// uploads.
func NewRasterizer(objectStore store.ObjectStore, concurrency int) *Rasterizer {
	if concurrency <= 0 {
		concurrency = 10
	}
	return &Rasterizer{store: objectStore, concurrency: concurrency}
}

// Rasterize renders every page of the document to a PNG image and uploads the
// images concurrently. The returned refs are ordered by page index. All
// intermediate files live in a scratch directory unique to this invocation
// and are removed on every path.
func (r *Rasterizer) Rasterize(ctx context.Context, documentID string, documentBytes []byte) ([]models.PageRef, error) {
	logCtx := slog.With("documentId", documentID)

	if len(documentBytes) == 0 {
		return nil, &moderr.RasterizationError{Msg: "document payload is empty"}
	}

	tempDir, err := os.MkdirTemp("", fmt.Sprintf("rasterize-%s-", ulid.Make()))
	if err != nil {
		return nil, &moderr.RasterizationError{Msg: "failed to create scratch directory", Err: err}
	}
	defer os.RemoveAll(tempDir)

	sourcePath := filepath.Join(tempDir, "source.pdf")
	if err := os.WriteFile(sourcePath, documentBytes, 0o600); err != nil {
		return nil, &moderr.RasterizationError{Msg: "failed to stage document", Err: err}
	}

	// Best-effort repair pass with relaxed validation so protected or
	// slightly malformed documents still reach the renderer.
	renderPath := filepath.Join(tempDir, "optimized.pdf")
	if err := optimizePDF(sourcePath, renderPath); err != nil {
		logCtx.Warn("PDF optimization failed, rendering source as-is.", "error", err)
		renderPath = sourcePath
	}

	pagePaths, err := r.renderPages(renderPath, tempDir)
	if err != nil {
		return nil, err
	}
	logCtx.Info("Rendered document pages.", "pageCount", len(pagePaths))

	refs := make([]models.PageRef, len(pagePaths))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(r.concurrency)

	for i, pagePath := range pagePaths {
		pageNumber := i + 1
		localPath := pagePath
		key := fmt.Sprintf("%s/%05d.png", documentID, pageNumber)
		refs[i] = models.PageRef{Index: pageNumber, Key: key}

		eg.Go(func() error {
			data, err := os.ReadFile(localPath)
			if err != nil {
				return fmt.Errorf("page %d: %w", pageNumber, err)
			}
			if err := r.store.Put(gctx, key, data, "image/png"); err != nil {
				return fmt.Errorf("page %d: %w", pageNumber, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		logCtx.Error("One or more pages failed to upload.", "error", err)
		return nil, &moderr.RasterizationError{Msg: "failed to persist page images", Err: err}
	}

	logCtx.Info("All pages uploaded.", "pageCount", len(refs))
	return refs, nil
}

// renderPages rasterizes each page to a PNG file in the scratch directory and
// returns the file paths in page order.
func (r *Rasterizer) renderPages(pdfPath, tempDir string) ([]string, error) {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, &moderr.RasterizationError{Msg: "failed to decode document", Err: err}
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount == 0 {
		return nil, &moderr.RasterizationError{Msg: "document has no pages"}
	}

	pagePaths := make([]string, 0, pageCount)
	for pageNum := 0; pageNum < pageCount; pageNum++ {
		img, err := doc.Image(pageNum)
		if err != nil {
			return nil, &moderr.RasterizationError{Msg: fmt.Sprintf("failed to render page %d", pageNum+1), Err: err}
		}

		outputPath := filepath.Join(tempDir, fmt.Sprintf("%05d.png", pageNum+1))
		outputFile, err := os.Create(outputPath)
		if err != nil {
			return nil, &moderr.RasterizationError{Msg: fmt.Sprintf("failed to create image file for page %d", pageNum+1), Err: err}
		}
		err = png.Encode(outputFile, img)
		outputFile.Close()
		if err != nil {
			return nil, &moderr.RasterizationError{Msg: fmt.Sprintf("failed to encode page %d", pageNum+1), Err: err}
		}
		pagePaths = append(pagePaths, outputPath)
	}
	return pagePaths, nil
}

func optimizePDF(inPath, outPath string) error {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return api.OptimizeFile(inPath, outPath, cfg)
}
