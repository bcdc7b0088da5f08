package invoice

import (
	"errors"
	"fmt"
)

// Common invoice generation errors
var (
	// ErrMissingCompanyName is returned when the company details lack the
	// name printed in the header and footer.
	ErrMissingCompanyName = errors.New("company details have no company name")

	// ErrNoTasks is returned when an invoice is requested without any tasks.
	ErrNoTasks = errors.New("no tasks selected")

	// ErrMissingCustomer is returned when the customer snapshot has no name.
	ErrMissingCustomer = errors.New("customer has no name")

	// ErrNumberingFailed is returned when no invoice number could be allocated.
	ErrNumberingFailed = errors.New("invoice number allocation failed")

	// ErrRenderFailed is returned when the PDF could not be written.
	ErrRenderFailed = errors.New("invoice rendering failed")
)

// InvoiceError wraps errors with the operation and invoice they concern.
type InvoiceError struct {
	// Op is the operation that failed (e.g., "Issue", "Render").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string

	// Number is the invoice number involved, zero before allocation.
	Number int
}

// Error implements the error interface.
func (e *InvoiceError) Error() string {
	switch {
	case e.Details != "" && e.Number > 0:
		return fmt.Sprintf("invoice: %s failed (invoice %d): %s: %v", e.Op, e.Number, e.Details, e.Err)
	case e.Details != "":
		return fmt.Sprintf("invoice: %s failed: %s: %v", e.Op, e.Details, e.Err)
	case e.Number > 0:
		return fmt.Sprintf("invoice: %s failed (invoice %d): %v", e.Op, e.Number, e.Err)
	}
	return fmt.Sprintf("invoice: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *InvoiceError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *InvoiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewInvoiceError creates a new InvoiceError for the given operation.
func NewInvoiceError(op string, err error, details string) *InvoiceError {
	return &InvoiceError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// ValidationError describes one invalid field of an invoice request.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}
