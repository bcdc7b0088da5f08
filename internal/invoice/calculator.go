package invoice

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"faktura/internal/logger"
	"faktura/pkg/models"
)

// VATRate is the fixed Danish VAT rate (moms).
var VATRate = decimal.RequireFromString("0.25")

var sixty = decimal.NewFromInt(60)

// Direction tells whether a document bills the customer or credits them.
type Direction int

const (
	// Invoice bills the customer; amounts are positive.
	Invoice Direction = iota
	// CreditMemo credits the customer; every amount is negative.
	CreditMemo
)

// Title is the document heading printed on the PDF.
func (d Direction) Title() string {
	if d == CreditMemo {
		return "Kreditnota"
	}
	return "Faktura"
}

func (d Direction) String() string {
	if d == CreditMemo {
		return "credit_memo"
	}
	return "invoice"
}

// IsCreditMemo reports whether d is CreditMemo
func (d Direction) IsCreditMemo() bool {
	return d == CreditMemo
}

// sign applies the direction to an amount. Credit memo amounts are always
// negative regardless of the sign they arrive with.
func (d Direction) sign(v decimal.Decimal) decimal.Decimal {
	if d == CreditMemo {
		return v.Abs().Neg()
	}
	return v
}

// Summary holds the monetary result of a calculation.
type Summary struct {
	Lines    []models.InvoiceLine
	Minutes  int
	Subtotal decimal.Decimal
	VAT      decimal.Decimal
	Total    decimal.Decimal
}

// Calculator computes line amounts, VAT and totals. All amounts are exact
// decimals; rounding happens only when formatting.
type Calculator struct {
	log zerolog.Logger
}

// NewCalculator creates a new calculation engine
func NewCalculator() *Calculator {
	return &Calculator{
		log: logger.WithComponent("calculator"),
	}
}

// Calculate prices every task and totals them for the given direction.
//
// A task's own sum is used when the sheet holds one; otherwise the line is
// minutes/60 times the hourly rate. The rate's sign is ignored: the direction
// alone decides the sign of every amount.
func (c *Calculator) Calculate(tasks []models.Task, hourlyRate decimal.Decimal, dir Direction) Summary {
	rate := hourlyRate.Abs()
	summary := Summary{
		Lines:    make([]models.InvoiceLine, 0, len(tasks)),
		Subtotal: decimal.Zero,
	}

	for _, t := range tasks {
		line := models.InvoiceLine{
			Task:     t,
			Minutes:  t.Minutes,
			Discount: t.Discount,
		}

		if t.Sum.Valid {
			line.Amount = dir.sign(t.Sum.Decimal)
			line.UnitPrice = dir.sign(t.Price)
		} else {
			line.Amount = dir.sign(decimal.NewFromInt(int64(t.Minutes)).Mul(rate).Div(sixty))
			line.UnitPrice = dir.sign(rate)
		}

		summary.Lines = append(summary.Lines, line)
		summary.Minutes += t.Minutes
		summary.Subtotal = summary.Subtotal.Add(line.Amount)
	}

	summary.VAT = summary.Subtotal.Mul(VATRate)
	summary.Total = summary.Subtotal.Add(summary.VAT)

	c.log.Debug().
		Str("direction", dir.String()).
		Int("lines", len(summary.Lines)).
		Str("subtotal", summary.Subtotal.String()).
		Str("vat", summary.VAT.String()).
		Str("total", summary.Total.String()).
		Msg("Calculated invoice amounts")

	return summary
}

// FormatAmount renders an amount with two decimals and a dot separator.
func FormatAmount(v decimal.Decimal) string {
	return v.StringFixed(2)
}
