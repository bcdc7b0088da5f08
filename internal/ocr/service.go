// Package ocr extracts the text of PDF documents page by page.
//
// FitzExtractor reads the embedded text layer locally with MuPDF. Scanned
// invoices have no text layer; VisionExtractor sends those to Google Cloud
// Vision document text detection. Fallback combines the two so only blank
// pages are sent to the cloud.
//
// Cloud Vision limits for synchronous file annotation:
//   - Maximum file size: 20MB
//   - Maximum pages per request: 5 (longer files are requested in batches)
package ocr

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"faktura/internal/logger"
)

// TextExtractor returns the text of every page of a PDF, in page order. A
// page without text yields "".
type TextExtractor interface {
	PageTexts(ctx context.Context, path string) ([]string, error)
}

// Fallback reads pages with Primary and asks Secondary for the pages that
// came back blank.
type Fallback struct {
	Primary   TextExtractor
	Secondary TextExtractor
	log       zerolog.Logger
}

// WithFallback combines primary and secondary.
func WithFallback(primary, secondary TextExtractor) *Fallback {
	return &Fallback{
		Primary:   primary,
		Secondary: secondary,
		log:       logger.WithComponent("ocr"),
	}
}

// PageTexts implements TextExtractor.
func (f *Fallback) PageTexts(ctx context.Context, path string) ([]string, error) {
	pages, err := f.Primary.PageTexts(ctx, path)
	if err != nil {
		f.log.Warn().Err(err).Str("file", path).Msg("Text layer unreadable, trying OCR")
		return f.Secondary.PageTexts(ctx, path)
	}
	if !hasBlank(pages) {
		return pages, nil
	}

	scanned, err := f.Secondary.PageTexts(ctx, path)
	if err != nil {
		f.log.Warn().Err(err).Str("file", path).Msg("OCR failed, keeping text layer")
		return pages, nil
	}
	for i := range pages {
		if strings.TrimSpace(pages[i]) == "" && i < len(scanned) {
			pages[i] = scanned[i]
		}
	}
	return pages, nil
}

func hasBlank(pages []string) bool {
	if len(pages) == 0 {
		return true
	}
	for _, p := range pages {
		if strings.TrimSpace(p) == "" {
			return true
		}
	}
	return false
}
