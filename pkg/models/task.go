package models

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Pricing types offered when registering a task. The sheet column is free
// text, so other values may appear in existing rows.
const (
	PricingHourly = "Timepris"
	PricingFixed  = "Fastpris"
)

// TaskDateLayout is the date format of the task sheet.
const TaskDateLayout = "2006-01-02"

// Task is one billable row of the tasks sheet.
type Task struct {
	Date        string
	CustomerID  string // empty on rows written before the id column existed
	Customer    string
	TaskType    string
	PricingType string
	Description string
	Minutes     int
	Price       decimal.Decimal
	Discount    decimal.Decimal     // percentage 0-100
	Sum         decimal.NullDecimal // invalid when the cell is blank or not a number

	// SheetRow is the 1-based spreadsheet row the task was read from.
	SheetRow int

	// Cells is the trimmed sheet text behind the numeric fields. Nil for
	// tasks that were not read from a sheet.
	Cells *TaskCells
}

// TaskCells is the cell text of the numeric task columns as it was read.
type TaskCells struct {
	Minutes  string
	Price    string
	Discount string
	Sum      string
}

// TaskHeaders is the header row written to an empty tasks sheet.
var TaskHeaders = []string{
	"Date", "Customer Name", "Tasktype", "Pricing Type", "Task Description",
	"Task Time (Minutes)", "Price", "Discount %", "Sum", "Customer ID",
}

// Row returns the task in sheet column order.
func (t Task) Row() []string {
	sum := ""
	if t.Sum.Valid {
		sum = t.Sum.Decimal.String()
	}
	return []string{
		t.Date,
		t.Customer,
		t.TaskType,
		t.PricingType,
		t.Description,
		strconv.Itoa(t.Minutes),
		t.Price.String(),
		t.Discount.String(),
		sum,
		t.CustomerID,
	}
}

// BelongsTo reports whether the task was registered for the customer. Rows
// carrying a customer id are matched on it; older rows fall back to the name.
func (t Task) BelongsTo(c Customer) bool {
	if t.CustomerID != "" && c.ID != "" {
		return t.CustomerID == c.ID
	}
	return t.Customer == c.Name
}
