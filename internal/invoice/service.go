// Package invoice turns a customer and a selection of tasks into a numbered,
// rendered invoice or credit memo.
//
// Amounts are computed by the Calculator in exact decimal arithmetic with a
// fixed 25% VAT rate. The Direction decides the sign of every amount: a
// credit memo is the same calculation with all amounts negative.
//
// Generation runs in three steps so callers can report progress and stop
// between them:
//   - Draft validates inputs and computes amounts (no side effects)
//   - AssignNumber allocates the next invoice number (persisted)
//   - Render writes the PDF
package invoice

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"faktura/internal/logger"
	"faktura/pkg/models"
)

// NumberAllocator hands out invoice numbers.
type NumberAllocator interface {
	Peek() int
	Allocate() (int, error)
}

// Renderer writes an invoice document and returns its path.
type Renderer interface {
	Render(inv *models.Invoice) (string, error)
}

// Request is everything needed to draft an invoice.
type Request struct {
	Company   models.CompanyDetails
	Customer  models.Customer
	Tasks     []models.Task
	Direction Direction
	IssueDate time.Time

	// DefaultTermsDays is the configured payment term used when the company
	// details do not set one.
	DefaultTermsDays int
}

// Service drafts, numbers and renders invoices.
type Service struct {
	calc      *Calculator
	validate  *Validation
	allocator NumberAllocator
	renderer  Renderer
	log       zerolog.Logger
}

// NewService creates an invoice service
func NewService(allocator NumberAllocator, renderer Renderer) *Service {
	return &Service{
		calc:      NewCalculator(),
		validate:  NewValidation(),
		allocator: allocator,
		renderer:  renderer,
		log:       logger.WithComponent("invoice"),
	}
}

// Summarize computes amounts without validating or drafting.
func (s *Service) Summarize(req Request) Summary {
	return s.calc.Calculate(req.Tasks, req.Customer.HourlyRate, req.Direction)
}

// NextNumber is the number the next invoice would get.
func (s *Service) NextNumber() int {
	return s.allocator.Peek()
}

// Draft validates the request and computes the unnumbered invoice.
func (s *Service) Draft(req Request) (*models.Invoice, error) {
	const op = "Draft"

	if err := s.validate.ValidateRequest(req.Company, req.Customer, req.Tasks); err != nil {
		return nil, NewInvoiceError(op, err, "invalid invoice request")
	}

	summary := s.Summarize(req)

	issue := req.IssueDate
	if issue.IsZero() {
		issue = time.Now()
	}
	terms := PaymentTermsDays(req.Company, req.DefaultTermsDays)

	return &models.Invoice{
		CreditMemo: req.Direction.IsCreditMemo(),
		IssueDate:  issue,
		DueDate:    issue.AddDate(0, 0, terms),
		Company:    req.Company,
		Customer:   req.Customer,
		Lines:      summary.Lines,
		Subtotal:   summary.Subtotal,
		VAT:        summary.VAT,
		Total:      summary.Total,
	}, nil
}

// AssignNumber allocates and sets the invoice number. Allocation is durable,
// so a failure later leaves a gap in the sequence rather than a reuse.
func (s *Service) AssignNumber(inv *models.Invoice) error {
	const op = "AssignNumber"

	if inv.Number > 0 {
		return nil
	}
	n, err := s.allocator.Allocate()
	if err != nil {
		return NewInvoiceError(op, errors.Join(ErrNumberingFailed, err), "")
	}
	inv.Number = n
	return nil
}

// Render writes the PDF for a numbered invoice.
func (s *Service) Render(inv *models.Invoice) error {
	const op = "Render"

	if inv.Number <= 0 {
		return NewInvoiceError(op, ErrNumberingFailed, "invoice has no number")
	}
	path, err := s.renderer.Render(inv)
	if err != nil {
		return &InvoiceError{Op: op, Err: errors.Join(ErrRenderFailed, err), Number: inv.Number}
	}
	inv.FilePath = path

	s.log.Info().
		Int("invoice_number", inv.Number).
		Bool("credit_memo", inv.CreditMemo).
		Str("customer", inv.Customer.Name).
		Str("total", FormatAmount(inv.Total)).
		Str("file", path).
		Msg("Invoice rendered")
	return nil
}

// Issue numbers and renders a drafted invoice.
func (s *Service) Issue(inv *models.Invoice) error {
	if err := s.AssignNumber(inv); err != nil {
		return err
	}
	return s.Render(inv)
}
