package sheets

import (
	"errors"
	"fmt"
)

// Common store errors
var (
	// ErrInvalidRange is returned when an A1 range cannot be parsed.
	ErrInvalidRange = errors.New("invalid A1 range")

	// ErrSheetNotFound is returned when the range names a sheet that does not
	// exist yet. Callers reading optional data treat it as "no rows".
	ErrSheetNotFound = errors.New("sheet not found")

	// ErrPermissionDenied is returned when the credentials cannot access the spreadsheet.
	ErrPermissionDenied = errors.New("permission denied for spreadsheet")

	// ErrInvalidSpreadsheetURL is returned when no spreadsheet ID can be extracted.
	ErrInvalidSpreadsheetURL = errors.New("invalid Google Sheets URL format")
)

// StoreError wraps a failed remote or file operation with the range involved.
type StoreError struct {
	// Op is the operation that failed (e.g., "Read", "Append").
	Op string

	// Range is the A1 range the operation addressed.
	Range string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Range != "" {
		return fmt.Sprintf("sheets: %s %s failed: %v", e.Op, e.Range, e.Err)
	}
	return fmt.Sprintf("sheets: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func newStoreError(op, rng string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Range: rng, Err: err}
}
