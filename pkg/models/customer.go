package models

import "github.com/shopspring/decimal"

// Customer is one row of the customers sheet.
type Customer struct {
	ID         string
	Name       string
	Address    string
	CVR        string // Danish company registration number
	Zip        string
	Town       string
	Phone      string
	Email      string
	HourlyRate decimal.Decimal // DKK per hour
}

// CustomerHeaders is the header row written to an empty customers sheet.
var CustomerHeaders = []string{
	"Customer ID", "Company Name", "Company Address", "Company CVR",
	"Company Zip", "Company Town", "Company Phone", "Company Email",
	"Hourly Rate (DKK)",
}

// Row returns the customer in sheet column order.
func (c Customer) Row() []string {
	return []string{
		c.ID,
		c.Name,
		c.Address,
		c.CVR,
		c.Zip,
		c.Town,
		c.Phone,
		c.Email,
		c.HourlyRate.String(),
	}
}
