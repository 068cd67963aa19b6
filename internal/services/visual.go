package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/contentops/pdfmoderation/internal/moderr"
	"github.com/contentops/pdfmoderation/internal/models"
)

const (
	descriptionMaxLabels       = 5
	descriptionConfidenceFloor = 70
)

const unidentifiedDescription = "The image content could not be identified with confidence."

// LabelDetector is the slice of the image-analysis capability the visual
// moderator needs.
type LabelDetector interface {
	DetectModerationLabels(ctx context.Context, image []byte, minConfidence float32) ([]types.ModerationLabel, error)
	DetectLabels(ctx context.Context, image []byte, maxLabels int32, minConfidence float32) ([]types.Label, error)
}

// VisualModerator classifies page images for moderation labels.
type VisualModerator struct {
	detector LabelDetector
}

// NewVisualModerator creates a VisualModerator.
func NewVisualModerator(detector LabelDetector) *VisualModerator {
	return &VisualModerator{detector: detector}
}

// DetectModerationLabels returns the moderation labels at or above
// minConfidence, in the order the capability reports them. An empty result is
// a successful "nothing found".
func (m *VisualModerator) DetectModerationLabels(ctx context.Context, image []byte, minConfidence float32) ([]models.ModerationLabel, error) {
	detected, err := m.detector.DetectModerationLabels(ctx, image, minConfidence)
	if err != nil {
		return nil, &moderr.ModerationDetectionError{Err: err}
	}

	labels := make([]models.ModerationLabel, 0, len(detected))
	for _, label := range detected {
		labels = append(labels, models.ModerationLabel{
			Name:       aws.ToString(label.Name),
			Confidence: aws.ToFloat32(label.Confidence),
			ParentName: aws.ToString(label.ParentName),
		})
	}
	return labels, nil
}

// DescribeInOneLine renders the top general labels into a single sentence of
// the form "This image contains A, B, and C.". When no label clears the
// confidence floor it returns a fixed fallback sentence; only a failing
// detection call is an error.
func (m *VisualModerator) DescribeInOneLine(ctx context.Context, image []byte) (string, error) {
	detected, err := m.detector.DetectLabels(ctx, image, descriptionMaxLabels, descriptionConfidenceFloor)
	if err != nil {
		return "", &moderr.ModerationDetectionError{Err: err}
	}
	if len(detected) == 0 {
		return unidentifiedDescription, nil
	}

	names := make([]string, 0, len(detected))
	for _, label := range detected {
		names = append(names, aws.ToString(label.Name))
	}
	if len(names) == 1 {
		return fmt.Sprintf("This image contains %s.", names[0]), nil
	}
	return fmt.Sprintf("This image contains %s, and %s.",
		strings.Join(names[:len(names)-1], ", "), names[len(names)-1]), nil
}
