package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is derived from a customer and a selection of tasks. It is never
// stored as a record; the rendered PDF named by number and issue date is the
// only persisted form.
type Invoice struct {
	// Core identifiers
	Number     int  // Sequential invoice number from the allocator
	CreditMemo bool // Kreditnota instead of Faktura

	// Dates
	IssueDate time.Time // Date the invoice was issued
	DueDate   time.Time // IssueDate plus payment terms

	// Parties (snapshots at generation time)
	Company  CompanyDetails
	Customer Customer

	// Lines carry amounts already signed for the document direction
	Lines []InvoiceLine

	// Amounts in DKK, exact
	Subtotal decimal.Decimal // Sum of line amounts before VAT
	VAT      decimal.Decimal // 25% of Subtotal
	Total    decimal.Decimal // Subtotal + VAT

	// Output
	FilePath string // Rendered PDF
}

// InvoiceLine is one table row on the invoice.
type InvoiceLine struct {
	Task      Task
	Minutes   int
	UnitPrice decimal.Decimal // Task price, or the hourly rate for time-based lines
	Discount  decimal.Decimal // Percentage 0-100
	Amount    decimal.Decimal // Line sum
}

// PaymentTermsDays returns the number of days between issue and due date.
func (i *Invoice) PaymentTermsDays() int {
	return int(i.DueDate.Sub(i.IssueDate).Hours() / 24)
}
