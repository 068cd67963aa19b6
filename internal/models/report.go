package models

import (
	"encoding/json"
	"fmt"
)

// ModerationLabel is a single visual moderation finding for a page or image.
type ModerationLabel struct {
	Name       string  `json:"Name"`
	Confidence float32 `json:"Confidence"`
	ParentName string  `json:"ParentName,omitempty"`
}

// TextModerationVerdict is the raw verdict body returned by the text-check
// service. The pipeline treats it as opaque; only FlaggedCategories inspects it.
type TextModerationVerdict struct {
	Raw json.RawMessage
}

func (v *TextModerationVerdict) MarshalJSON() ([]byte, error) {
	if v == nil || len(v.Raw) == 0 {
		return []byte("null"), nil
	}
	return v.Raw, nil
}

func (v *TextModerationVerdict) UnmarshalJSON(data []byte) error {
	v.Raw = append(v.Raw[:0], data...)
	return nil
}

// FlaggedCategories returns the category keys that carry at least one match in
// the verdict body. Unknown keys and non-category fields are ignored.
func (v *TextModerationVerdict) FlaggedCategories() []string {
	if v == nil || len(v.Raw) == 0 {
		return nil
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(v.Raw, &body); err != nil {
		return nil
	}
	var flagged []string
	for _, category := range TextModerationCategories {
		raw, ok := body[category]
		if !ok {
			continue
		}
		var section struct {
			Matches []json.RawMessage `json:"matches"`
		}
		if err := json.Unmarshal(raw, &section); err != nil {
			continue
		}
		if len(section.Matches) > 0 {
			flagged = append(flagged, category)
		}
	}
	return flagged
}

// TextModerationCategories is the fixed category set submitted with every
// text-check call. It is configuration, not a per-call parameter.
var TextModerationCategories = []string{
	"profanity",
	"personal",
	"link",
	"drug",
	"weapon",
	"spam",
	"content-trade",
	"money-transaction",
	"extremism",
	"violence",
	"self-harm",
	"medical",
}

// PageRef points at one rasterized page persisted in the object store.
// Index is 1-based and follows the source document's natural page order.
type PageRef struct {
	Index int    `json:"index"`
	Key   string `json:"key"`
}

// PageReport is the per-page analysis result. When a page's analysis failed,
// Error carries the failure marker and the remaining fields are zero; a failed
// page is never silently dropped from the document report.
type PageReport struct {
	Index       int                    `json:"-"`
	Page        string                 `json:"page"`
	Text        string                 `json:"-"`
	CheckText   *TextModerationVerdict `json:"checktext"`
	CheckImages []ModerationLabel      `json:"checkImages"`
	Error       string                 `json:"error,omitempty"`
}

// PageLabel renders the wire-format page name for a 1-based page index.
func PageLabel(index int) string {
	return fmt.Sprintf("Page No %d", index)
}

// DocumentReport is the aggregated result for one document, ordered by
// ascending page index.
type DocumentReport struct {
	DocumentID string       `json:"documentId"`
	PageCount  int          `json:"pageCount"`
	Pages      []PageReport `json:"pages"`
}
