package pdf

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"faktura/pkg/models"
)

func company() models.CompanyDetails {
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

func sampleInvoice(lines int, credit bool) *models.Invoice {
	issued := time.Date(2025, 9, 29, 10, 0, 0, 0, time.UTC)
	sign := decimal.NewFromInt(1)
	if credit {
		sign = decimal.NewFromInt(-1)
	}

	inv := &models.Invoice{
		Number:     785,
		CreditMemo: credit,
		IssueDate:  issued,
		DueDate:    issued.AddDate(0, 0, 8),
		Company:    company(),
		Customer:   models.Customer{Name: "Acme ApS", Address: "Vejen 1", Zip: "8200", Town: "Aarhus N"},
	}
	subtotal := decimal.Zero
	for i := 0; i < lines; i++ {
		amount := decimal.NewFromInt(500).Mul(sign)
		inv.Lines = append(inv.Lines, models.InvoiceLine{
			Task: models.Task{
				TaskType:    "Support",
				Description: fmt.Sprintf("Opgave %d med en lang beskrivelse der skal ombrydes over flere linjer i tabellen", i+1),
			},
			Minutes:   60,
			UnitPrice: decimal.NewFromInt(500).Mul(sign),
			Discount:  decimal.Zero,
			Amount:    amount,
		})
		subtotal = subtotal.Add(amount)
	}
	inv.Subtotal = subtotal
	inv.VAT = subtotal.Mul(decimal.RequireFromString("0.25"))
	inv.Total = inv.Subtotal.Add(inv.VAT)
	return inv
}

func render(t *testing.T, inv *models.Invoice, logo string) []byte {
	t.Helper()
	r := NewRenderer(filepath.Join(t.TempDir(), "invoices"), logo)
	r.compress = false

	path, err := r.Render(inv)
	require.NoError(t, err)
	assert.Equal(t, FileName(inv.Number, inv.IssueDate), filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	return data
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "faktura_785_20250929.pdf", FileName(785, time.Date(2025, 9, 29, 23, 59, 0, 0, time.UTC)))
}

func TestRenderInvoice(t *testing.T) {
	data := render(t, sampleInvoice(2, false), "")

	assert.Contains(t, string(data), "Faktura")
	assert.NotContains(t, string(data), "Kreditnota")
	assert.Contains(t, string(data), "Fakturanr.: 785")
	assert.Contains(t, string(data), "Fakturadato: 29.09.2025")
	assert.Contains(t, string(data), "1250.00")
	assert.Contains(t, string(data), "forfalden 07.10.2025")
}

func TestRenderCreditMemo(t *testing.T) {
	data := render(t, sampleInvoice(1, true), "")

	assert.Contains(t, string(data), "Kreditnota")
	assert.Contains(t, string(data), "-500.00")
	assert.Contains(t, string(data), "-625.00")
}

func TestFooterOnEveryPage(t *testing.T) {
	data := render(t, sampleInvoice(60, false), "")

	footer := "Tlf.: 12345678 - Mail: hej@stdigital.dk"
	assert.GreaterOrEqual(t, bytes.Count(data, []byte(footer)), 2)
	assert.GreaterOrEqual(t, bytes.Count(data, []byte("Task description")), 2, "table header repeats on new pages")
}

func TestRenderWithLogo(t *testing.T) {
	logo := filepath.Join(t.TempDir(), "logo.png")
	f, err := os.Create(logo)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewGray(image.Rect(0, 0, 40, 20))))
	require.NoError(t, f.Close())

	data := render(t, sampleInvoice(1, false), logo)
	assert.Contains(t, string(data), "/Subtype /Image")
}

func TestRenderFallsBackOnBrokenLogo(t *testing.T) {
	logo := filepath.Join(t.TempDir(), "logo.gif")
	require.NoError(t, os.WriteFile(logo, []byte("not a gif"), 0o644))

	data := render(t, sampleInvoice(1, false), logo)
	assert.NotContains(t, string(data), "/Subtype /Image")
}

func TestFooterLines(t *testing.T) {
	assert.Equal(t, []string{
		"ST Digital - Hovedgaden 1 - 8000 Aarhus C - CVR: 12345678",
		"Tlf.: 12345678 - Mail: hej@stdigital.dk",
		"Bank: Lunar - Konto: 6695/2000123456 - IBAN: DK5066952000123456 - SWIFT: LUNADK2B",
	}, FooterLines(company()))

	sparse := models.CompanyDetails{Name: "ST Digital", Town: "Aarhus C", AdditionalInfo: "Tak for handlen"}
	assert.Equal(t, []string{"ST Digital - Aarhus C", "Tak for handlen"}, FooterLines(sparse))
}

func TestRegistrationNumber(t *testing.T) {
	assert.Equal(t, "6695", registrationNumber("6695/2000123456"))
	assert.Equal(t, "6695", registrationNumber(" 6695 / 2000123456"))
	assert.Equal(t, "", registrationNumber("2000123456"))
	assert.Equal(t, "", registrationNumber("DK50/123"))
}
