package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/contentops/pdfmoderation/internal/moderr"
	"github.com/contentops/pdfmoderation/internal/models"
)

// TextChecker is the transport contract to the remote text-check service.
type TextChecker interface {
	CheckText(ctx context.Context, text, lang, categories string) (json.RawMessage, error)
}

// TextModerator submits extracted text for category-based moderation.
type TextModerator struct {
	checker TextChecker
	lang    string
}

// NewTextModerator creates a TextModerator. lang is the language hint sent
// with every check.
func NewTextModerator(checker TextChecker, lang string) *TextModerator {
	if lang == "" {
		lang = "en"
	}
	return &TextModerator{checker: checker, lang: lang}
}

// CheckText returns the remote verdict for the given text. Empty or
// whitespace-only text short-circuits to a nil verdict without a remote call;
// submitting nothing to the classifier is wasted work, and callers treat nil
// as "no verdict for this page".
func (m *TextModerator) CheckText(ctx context.Context, text string) (*models.TextModerationVerdict, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	raw, err := m.checker.CheckText(ctx, text, m.lang, strings.Join(models.TextModerationCategories, ","))
	if err != nil {
		var typed *moderr.TextModerationError
		if errors.As(err, &typed) {
			return nil, err
		}
		return nil, &moderr.TextModerationError{Msg: "text check failed", Err: err}
	}
	return &models.TextModerationVerdict{Raw: raw}, nil
}
