// Package company loads and saves the invoicing company's own details.
//
// The local JSON file is the base; the company sheet row overrides it field
// by field wherever the sheet has a value.
package company

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"faktura/internal/fsutil"
	"faktura/internal/logger"
	"faktura/internal/repository"
	"faktura/pkg/models"
)

var (
	// ErrMissingName is returned when neither file nor sheet names the company.
	ErrMissingName = errors.New("company name missing in both file and sheet")

	// ErrSheetSync is returned when the file was saved but the sheet was not.
	ErrSheetSync = errors.New("company details saved locally but not to the sheet")
)

// RowStore reads and writes the company sheet row.
type RowStore interface {
	CompanyRow(ctx context.Context) (models.CompanyDetails, bool, error)
	SaveCompanyRow(ctx context.Context, c models.CompanyDetails) error
}

// Service owns the company details file and, optionally, the sheet row.
type Service struct {
	path string
	rows RowStore
	log  zerolog.Logger
}

// NewService creates a service for the file at path. rows may be nil when no
// spreadsheet is configured.
func NewService(path string, rows RowStore) *Service {
	return &Service{
		path: path,
		rows: rows,
		log:  logger.WithComponent("company"),
	}
}

// LoadFile reads the local file. A missing file yields empty details.
func (s *Service) LoadFile() (models.CompanyDetails, error) {
	const op = "LoadFile"

	var c models.CompanyDetails
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.log.Info().Str("file", s.path).Msg("No local company details file")
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("%s: %w", op, err)
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("%s: %s is not valid JSON: %w", op, s.path, err)
	}
	return c, nil
}

// Load merges the file and the sheet row. Failing to read either source is
// logged and the other source is used; the result must name the company.
func (s *Service) Load(ctx context.Context) (models.CompanyDetails, error) {
	base, err := s.LoadFile()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed reading local company details")
		base = models.CompanyDetails{}
	}

	if s.rows != nil {
		sheet, ok, err := s.rows.CompanyRow(ctx)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Msg("Failed to read company details from sheet")
		case ok:
			base = base.Merge(sheet)
			s.log.Info().Msg("Company details overridden with sheet values")
		default:
			s.log.Info().Msg("Company details sheet row empty or missing; using file values only")
		}
	}

	if strings.TrimSpace(base.Name) == "" {
		s.log.Error().Msg("Company name missing in both file and sheet")
		return base, ErrMissingName
	}
	return base, nil
}

// Save validates c, writes the file and then the sheet row.
func (s *Service) Save(ctx context.Context, c models.CompanyDetails) error {
	const op = "Save"

	if err := Validate(c); err != nil {
		return err
	}
	if err := fsutil.WriteJSON(s.path, c); err != nil {
		return fmt.Errorf("%s: failed to write %s: %w", op, s.path, err)
	}
	s.log.Info().Str("file", s.path).Msg("Company details saved")

	if s.rows == nil {
		return nil
	}
	if err := s.rows.SaveCompanyRow(ctx, c); err != nil {
		return fmt.Errorf("%w: %v", ErrSheetSync, err)
	}
	return nil
}

// Validate reports every missing required field and a malformed email.
func Validate(c models.CompanyDetails) error {
	fields := []struct {
		label string
		value string
	}{
		{"company_name", c.Name},
		{"company_address", c.Address},
		{"company_cvr", c.CVR},
		{"company_zip", c.Zip},
		{"company_town", c.Town},
		{"company_phone", c.Phone},
		{"company_email", c.Email},
		{"bank_name", c.BankName},
		{"bank_account", c.BankAccount},
		{"iban", c.IBAN},
		{"swift", c.SWIFT},
	}

	var err error
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			err = multierr.Append(err, fmt.Errorf("%w: %s", repository.ErrRequiredField, f.label))
		}
	}
	if email := strings.TrimSpace(c.Email); email != "" && !repository.ValidEmail(email) {
		err = multierr.Append(err, fmt.Errorf("%w: %q", repository.ErrInvalidEmail, email))
	}
	return err
}
