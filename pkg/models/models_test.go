package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTermsDaysAcceptsNumberAndString(t *testing.T) {
	tests := []struct {
		name string
		json string
		want TermsDays
	}{
		{"number", `{"payment_terms_days": 14}`, 14},
		{"string", `{"payment_terms_days": "30"}`, 30},
		{"blank string", `{"payment_terms_days": ""}`, 0},
		{"absent", `{}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c CompanyDetails
			require.NoError(t, json.Unmarshal([]byte(tt.json), &c))
			assert.Equal(t, tt.want, c.PaymentTerms)
		})
	}

	var c CompanyDetails
	assert.Error(t, json.Unmarshal([]byte(`{"payment_terms_days": "soon"}`), &c))
}

func TestCompanyMergeOverridesNonEmptyOnly(t *testing.T) {
	file := CompanyDetails{Name: "ST Digital", Phone: "12345678", BankName: "Lunar", PaymentTerms: 8}
	sheet := CompanyDetails{Name: "ST Digital ApS", Phone: "  ", Email: "hej@st.dk"}

	merged := file.Merge(sheet)

	assert.Equal(t, "ST Digital ApS", merged.Name)
	assert.Equal(t, "12345678", merged.Phone)
	assert.Equal(t, "hej@st.dk", merged.Email)
	assert.Equal(t, "Lunar", merged.BankName)
	assert.Equal(t, TermsDays(8), merged.PaymentTerms)
}

func TestTaskBelongsTo(t *testing.T) {
	acme := Customer{ID: "C1", Name: "Acme"}

	assert.True(t, Task{CustomerID: "C1", Customer: "Renamed Acme"}.BelongsTo(acme))
	assert.False(t, Task{CustomerID: "C2", Customer: "Acme"}.BelongsTo(acme))
	assert.True(t, Task{Customer: "Acme"}.BelongsTo(acme), "legacy rows match on name")
}

func TestTaskRowOrder(t *testing.T) {
	task := Task{
		Date:        "2025-09-29",
		CustomerID:  "C1",
		Customer:    "Acme",
		TaskType:    "Support",
		PricingType: PricingFixed,
		Description: "Printer",
		Minutes:     45,
		Price:       decimal.RequireFromString("300"),
		Discount:    decimal.Zero,
		Sum:         decimal.NewNullDecimal(decimal.RequireFromString("300")),
	}

	assert.Equal(t, []string{"2025-09-29", "Acme", "Support", "Fastpris", "Printer", "45", "300", "0", "300", "C1"}, task.Row())
	assert.Len(t, TaskHeaders, len(task.Row()))
}
