package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"faktura/internal/fsutil"
	"faktura/internal/logger"
	"faktura/internal/ocr"
)

var extractCmd = &cobra.Command{
	Use:   "extract [pdf-file]",
	Short: "Print the text of a PDF page by page",
	Long: `Print the text the search command sees in a PDF, one block per page.

Text is read from the PDF itself. With --ocr, pages without a text layer are
sent to Google Cloud Vision (files up to 20MB).`,
	Example: `  # Show the text of an invoice
  faktura extract invoices/faktura_785_20250929.pdf

  # Scanned document, saved as JSON
  faktura extract scan.pdf --ocr --json -o scan.json`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

// extractOutput is the JSON written with --json.
type extractOutput struct {
	FileName           string    `json:"file_name"`
	FileSize           int64     `json:"file_size"`
	Pages              []string  `json:"pages"`
	ProcessedAt        time.Time `json:"processed_at"`
	ProcessingDuration string    `json:"processing_duration"`
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	extractCmd.Flags().Bool("json", false, "Output as JSON")
	extractCmd.Flags().Bool("ocr", false, "Use Google Cloud Vision for pages without text")
}

func runExtract(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("extract")

	outputPath, _ := cmd.Flags().GetString("output")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	withOCR, _ := cmd.Flags().GetBool("ocr")
	pdfPath := args[0]

	log.Info().
		Str("file", pdfPath).
		Str("output", outputPath).
		Bool("json", jsonOutput).
		Bool("ocr", withOCR).
		Msg("Starting text extraction")

	info, err := validatePDFFile(pdfPath, log)
	if err != nil {
		return err
	}

	a, err := newApp(log)
	if err != nil {
		return err
	}
	ctx, cancel := createCommandContext(log)
	defer cancel()

	extractor, closeFn, err := a.extractor(ctx, withOCR)
	if err != nil {
		return handleCommandError(err, log)
	}
	defer closeFn()

	start := time.Now()
	pages, err := extractor.PageTexts(ctx, pdfPath)
	if err != nil {
		return handleExtractError(err, log)
	}
	log.Info().
		Int("page_count", len(pages)).
		Dur("duration", time.Since(start)).
		Msg("Text extraction completed")

	var data []byte
	if jsonOutput {
		data, err = json.MarshalIndent(extractOutput{
			FileName:           filepath.Base(info.Name()),
			FileSize:           info.Size(),
			Pages:              pages,
			ProcessedAt:        time.Now(),
			ProcessingDuration: time.Since(start).String(),
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
	} else {
		data = []byte(formatPages(pages))
	}

	if outputPath == "" {
		_, err := cmd.OutOrStdout().Write(append(data, '\n'))
		return err
	}
	if err := fsutil.WriteFileAtomic(outputPath, data); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	log.Info().
		Str("output_file", outputPath).
		Int("bytes", len(data)).
		Msg("Extracted text written to file")
	return nil
}

func formatPages(pages []string) string {
	var b strings.Builder
	for i, text := range pages {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "=== Page %d ===\n", i+1)
		if strings.TrimSpace(text) == "" {
			b.WriteString("(no text)\n")
			continue
		}
		b.WriteString(strings.TrimRight(text, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}

// validatePDFFile checks that the path is a non-empty regular file.
func validatePDFFile(pdfPath string, log zerolog.Logger) (os.FileInfo, error) {
	info, err := os.Stat(pdfPath)
	switch {
	case os.IsNotExist(err):
		return nil, fmt.Errorf("PDF file not found: %s", pdfPath)
	case os.IsPermission(err):
		return nil, fmt.Errorf("permission denied accessing PDF file: %s", pdfPath)
	case err != nil:
		return nil, fmt.Errorf("error accessing PDF file: %w", err)
	}

	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("path is not a regular file: %s", pdfPath)
	}
	if !strings.HasSuffix(strings.ToLower(pdfPath), ".pdf") {
		log.Warn().Str("file", pdfPath).Msg("File does not have .pdf extension")
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("PDF file is empty: %s", pdfPath)
	}
	return info, nil
}

func handleExtractError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Text extraction failed")

	switch {
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("text extraction was canceled")
	case errors.Is(err, ocr.ErrPDFTooLarge):
		return fmt.Errorf("PDF file is too large for OCR (maximum 20MB). Try splitting the file")
	case errors.Is(err, ocr.ErrInvalidPDF):
		return fmt.Errorf("invalid or corrupted PDF file. Please check the file integrity")
	case errors.Is(err, ocr.ErrOCRFailed):
		return fmt.Errorf("OCR processing failed. This may be due to network issues, API quota limits, or service unavailability: %w", err)
	default:
		return handleCommandError(err, log)
	}
}
