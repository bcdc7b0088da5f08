package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"faktura/pkg/models"
)

var (
	// ErrRequiredField is returned for every required field left empty.
	ErrRequiredField = errors.New("required field is empty")

	// ErrInvalidEmail is returned when an email address has no '@'.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrDuplicateCustomerID is returned when the customer id is taken.
	ErrDuplicateCustomerID = errors.New("customer id already exists")

	// ErrInvalidRate is returned when an hourly rate is not positive.
	ErrInvalidRate = errors.New("hourly rate must be greater than 0")

	// ErrInvalidMinutes is returned when a new task has no time.
	ErrInvalidMinutes = errors.New("task time must be greater than 0 minutes")

	// ErrInvalidDiscount is returned when a discount is outside 0-100.
	ErrInvalidDiscount = errors.New("discount must be between 0 and 100")

	// ErrEmptyTaskType is returned when a task type name is blank.
	ErrEmptyTaskType = errors.New("task type is empty")
)

var hundred = decimal.NewFromInt(100)

func required(err error, label, value string) error {
	if strings.TrimSpace(value) == "" {
		return multierr.Append(err, fmt.Errorf("%w: %s", ErrRequiredField, label))
	}
	return err
}

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	at := strings.Index(s, "@")
	return at > 0 && at < len(s)-1 && !strings.ContainsAny(s, " ,;")
}

// ValidateCustomer returns every problem with c at once.
func ValidateCustomer(c models.Customer, existing []models.Customer) error {
	var err error
	err = required(err, "Customer ID", c.ID)
	err = required(err, "Company Name", c.Name)
	err = required(err, "Company Address", c.Address)
	err = required(err, "Company CVR", c.CVR)
	err = required(err, "Company Zip", c.Zip)
	err = required(err, "Company Town", c.Town)
	err = required(err, "Company Phone", c.Phone)
	err = required(err, "Company Email", c.Email)

	if c.Email != "" && !ValidEmail(c.Email) {
		err = multierr.Append(err, fmt.Errorf("%w: %q", ErrInvalidEmail, c.Email))
	}
	if !c.HourlyRate.IsPositive() {
		err = multierr.Append(err, fmt.Errorf("%w: %s", ErrInvalidRate, c.HourlyRate))
	}
	for _, e := range existing {
		if c.ID != "" && strings.EqualFold(strings.TrimSpace(e.ID), strings.TrimSpace(c.ID)) {
			err = multierr.Append(err, fmt.Errorf("%w: %s (%s)", ErrDuplicateCustomerID, c.ID, e.Name))
			break
		}
	}
	return err
}

// ValidateTask returns every problem with a new task at once.
func ValidateTask(t models.Task) error {
	var err error
	err = required(err, "Date", t.Date)
	err = required(err, "Customer Name", t.Customer)
	err = required(err, "Tasktype", t.TaskType)
	err = required(err, "Task Description", t.Description)

	if t.Minutes <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: %d", ErrInvalidMinutes, t.Minutes))
	}
	if t.Discount.IsNegative() || t.Discount.GreaterThan(hundred) {
		err = multierr.Append(err, fmt.Errorf("%w: %s", ErrInvalidDiscount, t.Discount))
	}
	return err
}

// TaskSum computes the sum of a new task: hourly tasks are minutes/60 times
// the rate, fixed tasks their price; the discount is then deducted.
func TaskSum(pricingType string, minutes int, price, rate, discount decimal.Decimal) decimal.Decimal {
	base := price
	if pricingType == models.PricingHourly {
		base = decimal.NewFromInt(int64(minutes)).Mul(rate).Div(decimal.NewFromInt(60))
	}
	factor := hundred.Sub(discount).Div(hundred)
	return base.Mul(factor).Round(2)
}
