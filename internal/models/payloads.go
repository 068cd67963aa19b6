package models

// These structs define the JSON payloads for the two moderation ingress paths.

// ImageModerationRequest is the input for the image-only moderation endpoint.
type ImageModerationRequest struct {
	ImageBase64 string `json:"imageBase64"`
	FileName    string `json:"fileName"`
}

// ImageModerationResponse is the output of the image-only moderation endpoint.
type ImageModerationResponse struct {
	ModerationInfo   []ModerationLabel `json:"moderationInfo"`
	ImageDescription string            `json:"imageDescription"`
}

// DocumentModerationRequest is the input for the document moderation endpoint.
type DocumentModerationRequest struct {
	PDFBase64 string `json:"pdfBase64"`
	FileName  string `json:"fileName"`
}

// ErrorResponse is the failure envelope shared by both endpoints.
type ErrorResponse struct {
	Message string `json:"message"`
}
