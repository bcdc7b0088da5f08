package ocr

import (
	"errors"
	"fmt"
)

// Common extraction errors
var (
	// ErrPDFTooLarge is returned when a file exceeds the Vision size limit.
	ErrPDFTooLarge = errors.New("PDF file size exceeds the maximum limit (20MB)")

	// ErrInvalidPDF is returned when the data does not start with a PDF header.
	ErrInvalidPDF = errors.New("invalid or corrupted PDF document")

	// ErrOCRFailed is returned when Cloud Vision cannot process the document.
	ErrOCRFailed = errors.New("OCR processing failed")
)

// ExtractError wraps a failure with the file and step it happened in.
type ExtractError struct {
	Op      string
	Path    string
	Err     error
	Details string
}

func (e *ExtractError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s %s: %s: %v", e.Op, e.Path, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}

// wrap returns err as an *ExtractError unless it already is one.
func wrap(op, path string, err error, details string) error {
	if err == nil {
		return nil
	}
	var extractErr *ExtractError
	if errors.As(err, &extractErr) {
		return err
	}
	return &ExtractError{Op: op, Path: path, Err: err, Details: details}
}
