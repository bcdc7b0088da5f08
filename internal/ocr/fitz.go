package ocr

import (
	"context"

	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog"

	"faktura/internal/logger"
)

// FitzExtractor reads the text layer of a PDF with MuPDF.
type FitzExtractor struct {
	log zerolog.Logger
}

// NewFitzExtractor creates a local extractor.
func NewFitzExtractor() *FitzExtractor {
	return &FitzExtractor{log: logger.WithComponent("ocr")}
}

// PageTexts implements TextExtractor. Pages that fail to extract are logged
// and returned blank.
func (f *FitzExtractor) PageTexts(ctx context.Context, path string) ([]string, error) {
	const op = "PageTexts"

	doc, err := fitz.New(path)
	if err != nil {
		return nil, wrap(op, path, ErrInvalidPDF, err.Error())
	}
	defer doc.Close()

	pages := make([]string, doc.NumPage())
	for i := range pages {
		if err := ctx.Err(); err != nil {
			return nil, wrap(op, path, err, "")
		}
		text, err := doc.Text(i)
		if err != nil {
			f.log.Warn().Err(err).Str("file", path).Int("page", i+1).Msg("Failed to extract page text")
			continue
		}
		pages[i] = text
	}
	return pages, nil
}
