package services

import (
	"bytes"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// TextExtractor turns a document byte stream into plain text. Unsupported or
// corrupt input yields an empty string, never an error: empty documents are
// a normal, recoverable outcome for the indexing pipeline.
type TextExtractor interface {
	Extract(r io.Reader, mime string) string
}

type textExtractor struct{}

func NewTextExtractor() TextExtractor {
	return &textExtractor{}
}

// GuessMime refines a generic mime hint from the storage path extension.
func GuessMime(mime, storagePath string) string {
	m := strings.ToLower(mime)
	if m != "" && m != "application/octet-stream" {
		return m
	}
	p := strings.ToLower(storagePath)
	switch {
	case strings.HasSuffix(p, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(p, ".txt"), strings.HasSuffix(p, ".md"):
		return "text/plain"
	}
	if m == "" {
		return "application/octet-stream"
	}
	return m
}

func (e *textExtractor) Extract(r io.Reader, mime string) string {
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}

	m := strings.ToLower(mime)
	switch {
	case strings.Contains(m, "pdf"):
		return extractPDF(data)
	case strings.HasPrefix(m, "text/"), strings.Contains(m, "json"):
		return strings.TrimSpace(string(data))
	}

	// Best effort for unknown types that happen to be valid text.
	if utf8.Valid(data) {
		return strings.TrimSpace(string(data))
	}
	return ""
}

func extractPDF(data []byte) string {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}

	var textBuilder strings.Builder
	totalPage := reader.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip unreadable pages, keep the rest.
			continue
		}

		textBuilder.WriteString(text)
		textBuilder.WriteString("\n\n")
	}

	return strings.TrimSpace(textBuilder.String())
}
