// Package sightengine implements the multipart HTTP client for the
// Sightengine text moderation endpoint.
package sightengine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/contentops/pdfmoderation/internal/moderr"
)

// Config holds the credentials and endpoint for the text-check service.
type Config struct {
	APIUser   string
	APISecret string
	Endpoint  string
}

// Client submits text-check requests to Sightengine.
type Client struct {
	httpClient *http.Client
	config     Config
}

// NewClient creates a Sightengine client. A nil httpClient falls back to
// http.DefaultClient.
func NewClient(config Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{httpClient: httpClient, config: config}
}

// CheckText posts the text to the text-check endpoint with the given language
// and category list and returns the raw JSON verdict body. Error responses
// surface as TextModerationError carrying the service's structured error body.
func (c *Client) CheckText(ctx context.Context, text, lang, categories string) (json.RawMessage, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	fields := map[string]string{
		"text":       text,
		"lang":       lang,
		"categories": categories,
		"mode":       "rules",
		"api_user":   c.config.APIUser,
		"api_secret": c.config.APISecret,
	}
	for name, value := range fields {
		if err := form.WriteField(name, value); err != nil {
			return nil, &moderr.TextModerationError{Msg: "failed to encode request form", Err: err}
		}
	}
	if err := form.Close(); err != nil {
		return nil, &moderr.TextModerationError{Msg: "failed to finalize request form", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, &body)
	if err != nil {
		return nil, &moderr.TextModerationError{Msg: "failed to build request", Err: err}
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &moderr.TextModerationError{Msg: "request failed", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &moderr.TextModerationError{Msg: "failed to read response", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &moderr.TextModerationError{
			Msg:  fmt.Sprintf("text check returned status %d", resp.StatusCode),
			Body: respBody,
		}
	}
	return respBody, nil
}
