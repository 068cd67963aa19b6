package services

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/contentops/pdfmoderation/internal/moderr"
)

// TextDetector is the slice of the image-analysis capability the extractor
// needs.
type TextDetector interface {
	DetectText(ctx context.Context, image []byte) ([]types.TextDetection, error)
}

// TextExtractor extracts embedded text from a page image.
type TextExtractor struct {
	detector TextDetector
}

// NewTextExtractor creates a TextExtractor.
func NewTextExtractor(detector TextDetector) *TextExtractor {
	return &TextExtractor{detector: detector}
}

// ExtractText concatenates the line-level detections in detection order,
// separated by single spaces. A page with no detectable text returns an empty
// string, not an error; only a failing detection call is an error.
func (e *TextExtractor) ExtractText(ctx context.Context, image []byte) (string, error) {
	detections, err := e.detector.DetectText(ctx, image)
	if err != nil {
		return "", &moderr.TextExtractionError{Err: err}
	}

	var paragraph strings.Builder
	for _, detection := range detections {
		if detection.Type != types.TextTypesLine {
			continue
		}
		paragraph.WriteString(aws.ToString(detection.DetectedText))
		paragraph.WriteString(" ")
	}
	return strings.TrimSpace(paragraph.String()), nil
}
