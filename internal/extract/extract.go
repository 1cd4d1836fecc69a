// Package extract turns uploaded file bytes into plain text. The engine
// consumes extracted text only; callers skip documents whose extraction
// fails or yields nothing.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/documentloaders"

	"github.com/shashi-deop/insightfinder/internal/domain"
)

// Extract dispatches on the file extension of name and returns the extracted
// plain text. Unsupported extensions fail with domain.ErrUnsupportedFormat;
// extraction that produces no text fails with domain.ErrEmptyDocument.
func Extract(ctx context.Context, name string, data []byte) (string, error) {
	var (
		text string
		err  error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md", ".markdown":
		text = decodeText(data)
	case ".pdf":
		text, err = extractPDF(ctx, data)
	default:
		return "", fmt.Errorf("%s: %w", name, domain.ErrUnsupportedFormat)
	}
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%s: %w", name, domain.ErrEmptyDocument)
	}
	return text, nil
}

// decodeText interprets data as UTF-8, falling back to Latin-1 when the bytes
// are not valid UTF-8.
func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}

// extractPDF extracts text from all pages, joined by newlines.
func extractPDF(ctx context.Context, data []byte) (string, error) {
	loader := documentloaders.NewPDF(bytes.NewReader(data), int64(len(data)))
	docs, err := loader.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load pdf: %w", err)
	}

	pages := make([]string, 0, len(docs))
	for _, d := range docs {
		pages = append(pages, d.PageContent)
	}
	return strings.Join(pages, "\n"), nil
}
