package invoice

import (
	"strings"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"faktura/internal/logger"
	"faktura/pkg/models"
)

// Validation checks invoice inputs before any number is allocated. Task rows
// are already cleaned up when they are read from the sheet.
type Validation struct {
	log zerolog.Logger
}

// NewValidation creates a new validation service
func NewValidation() *Validation {
	return &Validation{
		log: logger.WithComponent("invoice-validation"),
	}
}

// ValidateRequest reports every problem with the inputs at once.
func (v *Validation) ValidateRequest(company models.CompanyDetails, customer models.Customer, tasks []models.Task) error {
	var err error

	if strings.TrimSpace(company.Name) == "" {
		err = multierr.Append(err, ErrMissingCompanyName)
	}
	if strings.TrimSpace(customer.Name) == "" {
		err = multierr.Append(err, ErrMissingCustomer)
	}
	if len(tasks) == 0 {
		err = multierr.Append(err, ErrNoTasks)
	}
	if customer.HourlyRate.IsNegative() {
		err = multierr.Append(err, NewValidationError("hourly_rate", customer.HourlyRate, "must not be negative"))
	}

	if err != nil {
		v.log.Warn().
			Int("problems", len(multierr.Errors(err))).
			Str("customer", customer.Name).
			Msg("Invoice request rejected")
	}
	return err
}

// PaymentTermsDays picks the payment term: the company's own setting, then
// the configured default, then DefaultPaymentTermsDays.
func PaymentTermsDays(company models.CompanyDetails, configured int) int {
	if company.PaymentTerms > 0 {
		return int(company.PaymentTerms)
	}
	if configured > 0 {
		return configured
	}
	return models.DefaultPaymentTermsDays
}
