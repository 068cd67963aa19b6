package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"strings"
	"testing"

	"github.com/contentops/pdfmoderation/internal/moderr"
	"github.com/contentops/pdfmoderation/internal/store"
	"github.com/contentops/pdfmoderation/internal/store/memory"
)

// buildPDF writes a minimal but well-formed PDF with the given number of
// empty pages, including a correct xref table.
func buildPDF(t *testing.T, pages int) []byte {
	t.Helper()
	var buf bytes.Buffer
	var offsets []int

	addObject := func(body string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(body)
	}

	buf.WriteString("%PDF-1.4\n")
	addObject("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	var kids []string
	for i := 0; i < pages; i++ {
		kids = append(kids, fmt.Sprintf("%d 0 R", 3+i))
	}
	addObject(fmt.Sprintf("2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n",
		strings.Join(kids, " "), pages))
	for i := 0; i < pages; i++ {
		addObject(fmt.Sprintf("%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 72 72] >>\nendobj\n", 3+i))
	}

	xrefPos := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, offset := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offset)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(offsets)+1, xrefPos)
	return buf.Bytes()
}

func TestRasterizeStoresOrderedPages(t *testing.T) {
	const docID = "manual.pdf"
	objectStore := memory.NewObjectStore()
	rasterizer := NewRasterizer(objectStore, 4)

	refs, err := rasterizer.Rasterize(context.Background(), docID, buildPDF(t, 3))
	if err != nil {
		t.Fatalf("Rasterize returned error: %v", err)
	}
	if len(refs) != 3 {
		t.Fatalf("expected 3 page refs, got %d", len(refs))
	}
	for i, ref := range refs {
		if ref.Index != i+1 {
			t.Errorf("ref %d: wrong index %d", i, ref.Index)
		}
		wantKey := fmt.Sprintf("%s/%05d.png", docID, i+1)
		if ref.Key != wantKey {
			t.Errorf("ref %d: key %q, want %q", i, ref.Key, wantKey)
		}
	}

	keys, err := objectStore.List(context.Background(), docID+"/")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(keys) != 3 {
		t.Fatalf("expected 3 stored objects, got %d", len(keys))
	}
	for _, key := range keys {
		data, err := objectStore.Get(context.Background(), key)
		if err != nil {
			t.Fatalf("Get %s returned error: %v", key, err)
		}
		if _, err := png.Decode(bytes.NewReader(data)); err != nil {
			t.Errorf("object %s is not a valid PNG: %v", key, err)
		}
	}
}

func TestRasterizeEmptyPayload(t *testing.T) {
	objectStore := memory.NewObjectStore()
	rasterizer := NewRasterizer(objectStore, 4)

	_, err := rasterizer.Rasterize(context.Background(), "empty.pdf", nil)
	var typed *moderr.RasterizationError
	if !errors.As(err, &typed) {
		t.Fatalf("expected RasterizationError, got %v", err)
	}
	assertNoObjects(t, objectStore, "empty.pdf/")
}

func TestRasterizeUndecodableDocument(t *testing.T) {
	objectStore := memory.NewObjectStore()
	rasterizer := NewRasterizer(objectStore, 4)

	_, err := rasterizer.Rasterize(context.Background(), "garbage.pdf", []byte("this is not a pdf"))
	var typed *moderr.RasterizationError
	if !errors.As(err, &typed) {
		t.Fatalf("expected RasterizationError, got %v", err)
	}
	assertNoObjects(t, objectStore, "garbage.pdf/")
}

type failingStore struct {
	store.ObjectStore
}

func (failingStore) Put(context.Context, string, []byte, string) error {
	return errors.New("bucket unavailable")
}

func TestRasterizeWrapsUploadFailure(t *testing.T) {
	rasterizer := NewRasterizer(failingStore{memory.NewObjectStore()}, 4)

	_, err := rasterizer.Rasterize(context.Background(), "doc.pdf", buildPDF(t, 2))
	var typed *moderr.RasterizationError
	if !errors.As(err, &typed) {
		t.Fatalf("expected RasterizationError, got %v", err)
	}
}

func assertNoObjects(t *testing.T, objectStore store.ObjectStore, prefix string) {
	t.Helper()
	keys, err := objectStore.List(context.Background(), prefix)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("no objects should be written on failure, found %v", keys)
	}
}
