// Package moderr defines the typed failure taxonomy for the moderation
// pipeline and its mapping onto HTTP status codes. Each remote capability
// failure is wrapped in an error type naming the capability that failed;
// "no content found" outcomes are plain successful results, never errors.
package moderr

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError reports missing or malformed caller input. It is detected
// at ingress and never retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// RasterizationError reports that a document could not be decoded or
// rendered into page images, or that persisting a rendered page failed.
type RasterizationError struct {
	Msg string
	Err error
}

func (e *RasterizationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rasterization failed: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("rasterization failed: %s", e.Msg)
}

func (e *RasterizationError) Unwrap() error { return e.Err }

// TextExtractionError wraps a failure of the text-detection capability.
type TextExtractionError struct {
	Err error
}

func (e *TextExtractionError) Error() string {
	return fmt.Sprintf("text extraction failed: %v", e.Err)
}

func (e *TextExtractionError) Unwrap() error { return e.Err }

// ModerationDetectionError wraps a failure of the visual moderation
// capability.
type ModerationDetectionError struct {
	Err error
}

func (e *ModerationDetectionError) Error() string {
	return fmt.Sprintf("moderation detection failed: %v", e.Err)
}

func (e *ModerationDetectionError) Unwrap() error { return e.Err }

// TextModerationError wraps a failure of the remote text-check service.
// Body holds the service's structured error payload when one was returned.
type TextModerationError struct {
	Msg  string
	Body []byte
	Err  error
}

func (e *TextModerationError) Error() string {
	if len(e.Body) > 0 {
		return fmt.Sprintf("text moderation failed: %s: %s", e.Msg, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("text moderation failed: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("text moderation failed: %s", e.Msg)
}

func (e *TextModerationError) Unwrap() error { return e.Err }

// ConsistencyFault reports that the number of page objects listed in the
// store diverges from the page count reported by rasterization.
type ConsistencyFault struct {
	DocumentID string
	Expected   int
	Actual     int
}

func (e *ConsistencyFault) Error() string {
	return fmt.Sprintf("document %s: expected %d page objects, found %d", e.DocumentID, e.Expected, e.Actual)
}

// InternalError is the unclassified catch-all for failures that fit no other
// category.
type InternalError struct {
	Err error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error: %v", e.Err)
}

func (e *InternalError) Unwrap() error { return e.Err }

// HTTPStatus maps an error to the response status for the ingress layer.
// Validation failures are the caller's to fix (400), undecodable documents
// are unprocessable input (422), remote capability failures surface as bad
// gateway (502), and everything else is a plain 500.
func HTTPStatus(err error) int {
	var (
		validation *ValidationError
		raster     *RasterizationError
		extraction *TextExtractionError
		detection  *ModerationDetectionError
		textMod    *TextModerationError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &raster):
		return http.StatusUnprocessableEntity
	case errors.As(err, &extraction), errors.As(err, &detection), errors.As(err, &textMod):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the short human-readable message for a failure response.
// Internal detail stays in the logs; only classification reaches the caller.
func Message(err error) string {
	var (
		validation *ValidationError
		raster     *RasterizationError
		extraction *TextExtractionError
		detection  *ModerationDetectionError
		textMod    *TextModerationError
		fault      *ConsistencyFault
	)
	switch {
	case errors.As(err, &validation):
		return validation.Msg
	case errors.As(err, &raster):
		return "failed to convert document to page images"
	case errors.As(err, &extraction):
		return "failed to fetch text from image"
	case errors.As(err, &detection):
		return "failed to fetch moderation labels"
	case errors.As(err, &textMod):
		return "failed to check text"
	case errors.As(err, &fault):
		return "document page set is inconsistent"
	default:
		return "internal server error"
	}
}
