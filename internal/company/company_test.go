package company

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"faktura/internal/repository"
	"faktura/pkg/models"
)

type memoryRows struct {
	row     models.CompanyDetails
	ok      bool
	readErr error
	saveErr error
	saved   []models.CompanyDetails
}

func (m *memoryRows) CompanyRow(context.Context) (models.CompanyDetails, bool, error) {
	return m.row, m.ok, m.readErr
}

func (m *memoryRows) SaveCompanyRow(_ context.Context, c models.CompanyDetails) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, c)
	return nil
}

func complete() models.CompanyDetails {
	return models.CompanyDetails{
		Name:        "ST Digital",
		Address:     "Hovedgaden 1",
		CVR:         "12345678",
		Zip:         "8000",
		Town:        "Aarhus C",
		Phone:       "12345678",
		Email:       "hej@stdigital.dk",
		BankName:    "Lunar",
		BankAccount: "6695/2000123456",
		IBAN:        "DK5066952000123456",
		SWIFT:       "LUNADK2B",
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "st-faktura.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSheetOverridesFile(t *testing.T) {
	path := writeFile(t, `{"company_name": "ST Digital", "company_phone": "111", "bank_name": "Lunar", "payment_terms_days": "14"}`)
	rows := &memoryRows{ok: true, row: models.CompanyDetails{Name: "ST Digital ApS", Phone: ""}}

	c, err := NewService(path, rows).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "ST Digital ApS", c.Name)
	assert.Equal(t, "111", c.Phone, "empty sheet cells keep file values")
	assert.Equal(t, "Lunar", c.BankName)
	assert.Equal(t, models.TermsDays(14), c.PaymentTerms)
}

func TestLoadFallsBackWhenSheetFails(t *testing.T) {
	path := writeFile(t, `{"company_name": "ST Digital"}`)
	rows := &memoryRows{readErr: errors.New("network down")}

	c, err := NewService(path, rows).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ST Digital", c.Name)
}

func TestLoadRequiresName(t *testing.T) {
	svc := NewService(filepath.Join(t.TempDir(), "missing.json"), &memoryRows{})

	_, err := svc.Load(context.Background())
	assert.ErrorIs(t, err, ErrMissingName)

	corrupt := writeFile(t, `{not json`)
	_, err = NewService(corrupt, nil).Load(context.Background())
	assert.ErrorIs(t, err, ErrMissingName)
}

func TestSaveWritesFileAndSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "st-faktura.json")
	rows := &memoryRows{}
	svc := NewService(path, rows)

	require.NoError(t, svc.Save(context.Background(), complete()))

	loaded, err := svc.LoadFile()
	require.NoError(t, err)
	assert.Equal(t, complete(), loaded)
	require.Len(t, rows.saved, 1)
}

func TestSaveReportsSheetFailureAfterFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "st-faktura.json")
	svc := NewService(path, &memoryRows{saveErr: errors.New("403")})

	err := svc.Save(context.Background(), complete())
	assert.ErrorIs(t, err, ErrSheetSync)

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(complete()))

	c := complete()
	c.IBAN = ""
	c.SWIFT = " "
	c.Email = "no-at-sign"

	err := Validate(c)
	assert.Len(t, multierr.Errors(err), 3)
	assert.ErrorIs(t, err, repository.ErrInvalidEmail)
	assert.ErrorIs(t, err, repository.ErrRequiredField)
}
