package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DefaultPaymentTermsDays applies when neither the company details nor the
// environment name a payment term.
const DefaultPaymentTermsDays = 8

// CompanyDetails describes the invoicing company. It is stored as a local
// JSON file and optionally as the second row of the company sheet.
type CompanyDetails struct {
	Name           string    `json:"company_name"`
	Address        string    `json:"company_address"`
	CVR            string    `json:"company_cvr"`
	Zip            string    `json:"company_zip"`
	Town           string    `json:"company_town"`
	Phone          string    `json:"company_phone"`
	Email          string    `json:"company_email"`
	BankName       string    `json:"bank_name"`
	BankAccount    string    `json:"bank_account"`
	IBAN           string    `json:"iban"`
	SWIFT          string    `json:"swift"`
	AdditionalInfo string    `json:"additional_info"`
	PaymentTerms   TermsDays `json:"payment_terms_days,omitempty"`
}

// CompanyHeaders is the header row of the company sheet.
var CompanyHeaders = []string{
	"Company Name", "Address", "CVR", "Zip Code", "Town", "Phone", "Email",
	"Bank Name", "Bank Account", "IBAN", "SWIFT", "Additional Information",
	"Payment Terms (Days)",
}

// Row returns the details in company sheet column order.
func (c CompanyDetails) Row() []string {
	terms := ""
	if c.PaymentTerms > 0 {
		terms = strconv.Itoa(int(c.PaymentTerms))
	}
	return []string{
		c.Name, c.Address, c.CVR, c.Zip, c.Town, c.Phone, c.Email,
		c.BankName, c.BankAccount, c.IBAN, c.SWIFT, c.AdditionalInfo, terms,
	}
}

// Merge returns c with every non-empty field of other applied on top.
func (c CompanyDetails) Merge(other CompanyDetails) CompanyDetails {
	pick := func(base, over string) string {
		if strings.TrimSpace(over) != "" {
			return over
		}
		return base
	}
	merged := CompanyDetails{
		Name:           pick(c.Name, other.Name),
		Address:        pick(c.Address, other.Address),
		CVR:            pick(c.CVR, other.CVR),
		Zip:            pick(c.Zip, other.Zip),
		Town:           pick(c.Town, other.Town),
		Phone:          pick(c.Phone, other.Phone),
		Email:          pick(c.Email, other.Email),
		BankName:       pick(c.BankName, other.BankName),
		BankAccount:    pick(c.BankAccount, other.BankAccount),
		IBAN:           pick(c.IBAN, other.IBAN),
		SWIFT:          pick(c.SWIFT, other.SWIFT),
		AdditionalInfo: pick(c.AdditionalInfo, other.AdditionalInfo),
		PaymentTerms:   c.PaymentTerms,
	}
	if other.PaymentTerms > 0 {
		merged.PaymentTerms = other.PaymentTerms
	}
	return merged
}

// TermsDays is a payment term in days. The JSON file has held it both as a
// number and as a string, so both decode.
type TermsDays int

func (d *TermsDays) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*d = TermsDays(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("payment_terms_days: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*d = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("payment_terms_days: %q is not a number", s)
	}
	*d = TermsDays(n)
	return nil
}
