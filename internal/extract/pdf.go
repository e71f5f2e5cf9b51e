package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/docask/docask/internal/pkg/errors"
)

// PageText is the extracted text of a single page; Index is 0-based.
type PageText struct {
	Index int
	Text  string
}

// TextExtractor turns raw document bytes into ordered page texts.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte) ([]PageText, error)
}

type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Extract parses the byte stream as a PDF and returns one entry per
// page. A stream that does not parse, or parses to no text at all,
// yields ErrExtraction: extraction is deterministic, so the caller
// must not retry.
func (e *PDFExtractor) Extract(ctx context.Context, data []byte) ([]PageText, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: parse pdf: %v", appErr.ErrExtraction, err)
	}
	total := reader.NumPage()
	pages := make([]PageText, 0, total)
	nonEmpty := 0
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, PageText{Index: i - 1})
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			logutil.GetLogger(ctx).Warn("page text extraction failed",
				zap.Int("page", i), zap.Error(err))
			pages = append(pages, PageText{Index: i - 1})
			continue
		}
		text = strings.TrimSpace(text)
		if text != "" {
			nonEmpty++
		}
		pages = append(pages, PageText{Index: i - 1, Text: text})
	}
	if nonEmpty == 0 {
		return nil, fmt.Errorf("%w: no extractable text (scanned document without text layer?)", appErr.ErrExtraction)
	}
	return pages, nil
}

// JoinPages concatenates page texts with blank-line separators,
// preserving page order.
func JoinPages(pages []PageText) string {
	parts := make([]string, 0, len(pages))
	for _, page := range pages {
		if page.Text == "" {
			continue
		}
		parts = append(parts, page.Text)
	}
	return strings.Join(parts, "\n\n")
}
