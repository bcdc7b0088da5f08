// Package repository maps spreadsheet rows to customers, tasks, task types
// and company details.
//
// Rows are read positionally. Row 1 holds headers and is skipped; short rows
// are padded with empty cells; numbers that cannot be parsed become zero with
// a warning naming the sheet row.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"faktura/internal/logger"
	"faktura/internal/sheets"
	"faktura/pkg/models"
)

// SheetNames names the sheets of the spreadsheet.
type SheetNames struct {
	Customers string
	Tasks     string
	TaskTypes string
	Company   string
}

// DefaultSheetNames are the Danish sheet names the spreadsheet has always used.
var DefaultSheetNames = SheetNames{
	Customers: "Kunder",
	Tasks:     "Opgave",
	TaskTypes: "Tasktype",
	Company:   "Company Details",
}

const (
	customerColumns = "A:I"
	taskColumns     = "A:J"
	taskTypeColumns = "A:A"
	companyRow      = "A2:M2"
)

// Repository reads and writes typed records through a sheets.Store.
type Repository struct {
	store       sheets.Store
	names       SheetNames
	defaultRate decimal.Decimal
	log         zerolog.Logger
}

// New creates a repository. defaultRate applies to customers whose rate cell
// is blank or unreadable.
func New(store sheets.Store, names SheetNames, defaultRate decimal.Decimal) *Repository {
	return &Repository{
		store:       store,
		names:       names,
		defaultRate: defaultRate,
		log:         logger.WithComponent("repository"),
	}
}

// readRows reads a range and treats a missing sheet as empty.
func (r *Repository) readRows(ctx context.Context, rng string) ([][]string, error) {
	rows, err := r.store.Read(ctx, rng)
	if errors.Is(err, sheets.ErrSheetNotFound) {
		r.log.Info().Str("range", rng).Msg("Sheet does not exist yet")
		return nil, nil
	}
	return rows, err
}

// Customers returns every customer with a name.
func (r *Repository) Customers(ctx context.Context) ([]models.Customer, error) {
	const op = "Customers"

	values, err := r.readRows(ctx, sheets.A1(r.names.Customers, customerColumns))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read customers: %w", op, err)
	}
	if len(values) <= 1 {
		return nil, nil
	}

	var customers []models.Customer
	for i, row := range values[1:] {
		rowNum := i + 2
		c, ok := r.parseCustomer(row, rowNum)
		if !ok {
			continue
		}
		customers = append(customers, c)
	}

	r.log.Debug().Int("customers", len(customers)).Msg("Loaded customers")
	return customers, nil
}

func (r *Repository) parseCustomer(row []string, rowNum int) (models.Customer, bool) {
	c := models.Customer{
		ID:      cell(row, 0),
		Name:    cell(row, 1),
		Address: cell(row, 2),
		CVR:     cell(row, 3),
		Zip:     cell(row, 4),
		Town:    cell(row, 5),
		Phone:   cell(row, 6),
		Email:   cell(row, 7),
	}
	if c.Name == "" {
		if c.ID != "" {
			r.log.Warn().Int("row", rowNum).Str("id", c.ID).Msg("Skipping customer without name")
		}
		return c, false
	}

	rate, ok := parseNumber(cell(row, 8))
	if !ok {
		if cell(row, 8) != "" {
			r.log.Warn().Int("row", rowNum).Str("value", cell(row, 8)).Msg("Hourly rate is not a number, using default")
		}
		rate = r.defaultRate
	}
	c.HourlyRate = rate
	return c, true
}

// AddCustomer validates c against the existing customers and appends it.
func (r *Repository) AddCustomer(ctx context.Context, c models.Customer) error {
	const op = "AddCustomer"

	existing, err := r.Customers(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := ValidateCustomer(c, existing); err != nil {
		return err
	}

	if _, err := r.store.EnsureHeaders(ctx, r.names.Customers, models.CustomerHeaders); err != nil {
		return fmt.Errorf("%s: failed to prepare sheet: %w", op, err)
	}
	if err := r.store.Append(ctx, sheets.A1(r.names.Customers, customerColumns), [][]string{c.Row()}); err != nil {
		return fmt.Errorf("%s: failed to append customer: %w", op, err)
	}

	r.log.Info().Str("id", c.ID).Str("name", c.Name).Msg("Customer added")
	return nil
}

// Tasks returns every task row that names a customer.
func (r *Repository) Tasks(ctx context.Context) ([]models.Task, error) {
	const op = "Tasks"

	values, err := r.readRows(ctx, sheets.A1(r.names.Tasks, taskColumns))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read tasks: %w", op, err)
	}
	if len(values) <= 1 {
		return nil, nil
	}

	var tasks []models.Task
	for i, row := range values[1:] {
		rowNum := i + 2
		if cell(row, 1) == "" {
			continue
		}
		tasks = append(tasks, r.parseTask(row, rowNum))
	}
	return tasks, nil
}

func (r *Repository) parseTask(row []string, rowNum int) models.Task {
	cells := &models.TaskCells{
		Minutes:  cell(row, 5),
		Price:    cell(row, 6),
		Discount: cell(row, 7),
		Sum:      cell(row, 8),
	}
	return models.Task{
		Date:        cell(row, 0),
		Customer:    cell(row, 1),
		TaskType:    cell(row, 2),
		PricingType: cell(row, 3),
		Description: cell(row, 4),
		Minutes:     clampMinutes(r.log, minutesOrZero(r.log, cells.Minutes, rowNum), rowNum),
		Price:       numberOrZero(r.log, cells.Price, "price", rowNum),
		Discount:    clampDiscount(r.log, numberOrZero(r.log, cells.Discount, "discount", rowNum), rowNum),
		Sum:         nullNumber(r.log, cells.Sum, "sum", rowNum),
		CustomerID:  cell(row, 9),
		SheetRow:    rowNum,
		Cells:       cells,
	}
}

// TasksFor returns the tasks registered for customer.
func (r *Repository) TasksFor(ctx context.Context, customer models.Customer) ([]models.Task, error) {
	all, err := r.Tasks(ctx)
	if err != nil {
		return nil, err
	}

	var tasks []models.Task
	for _, t := range all {
		if t.BelongsTo(customer) {
			tasks = append(tasks, t)
		}
	}

	r.log.Debug().Str("customer", customer.Name).Int("tasks", len(tasks)).Msg("Loaded customer tasks")
	return tasks, nil
}

// AddTask appends a task row.
func (r *Repository) AddTask(ctx context.Context, t models.Task) error {
	const op = "AddTask"

	if err := ValidateTask(t); err != nil {
		return err
	}
	if _, err := r.store.EnsureHeaders(ctx, r.names.Tasks, models.TaskHeaders); err != nil {
		return fmt.Errorf("%s: failed to prepare sheet: %w", op, err)
	}
	if err := r.store.Append(ctx, sheets.A1(r.names.Tasks, taskColumns), [][]string{t.Row()}); err != nil {
		return fmt.Errorf("%s: failed to append task: %w", op, err)
	}

	r.log.Info().
		Str("customer", t.Customer).
		Str("tasktype", t.TaskType).
		Int("minutes", t.Minutes).
		Msg("Task added")
	return nil
}

// TaskTypes returns the task type vocabulary. A first cell reading
// "Tasktype" is treated as a header.
func (r *Repository) TaskTypes(ctx context.Context) ([]string, error) {
	const op = "TaskTypes"

	values, err := r.readRows(ctx, sheets.A1(r.names.TaskTypes, taskTypeColumns))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read task types: %w", op, err)
	}

	var types []string
	for i, row := range values {
		v := cell(row, 0)
		if v == "" {
			continue
		}
		if i == 0 && strings.EqualFold(v, "tasktype") {
			continue
		}
		types = append(types, v)
	}
	return types, nil
}

// AddTaskType appends name unless it already exists, ignoring case. It
// reports whether the vocabulary changed.
func (r *Repository) AddTaskType(ctx context.Context, name string) (bool, error) {
	const op = "AddTaskType"

	name = strings.TrimSpace(name)
	if name == "" {
		return false, fmt.Errorf("%s: %w", op, ErrEmptyTaskType)
	}

	existing, err := r.TaskTypes(ctx)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	for _, t := range existing {
		if strings.EqualFold(t, name) {
			return false, nil
		}
	}

	if _, err := r.store.EnsureHeaders(ctx, r.names.TaskTypes, []string{"Tasktype"}); err != nil {
		return false, fmt.Errorf("%s: failed to prepare sheet: %w", op, err)
	}
	if err := r.store.Append(ctx, sheets.A1(r.names.TaskTypes, taskTypeColumns), [][]string{{name}}); err != nil {
		return false, fmt.Errorf("%s: failed to append task type: %w", op, err)
	}

	r.log.Info().Str("tasktype", name).Msg("Task type added")
	return true, nil
}

// CompanyRow reads the company details row. ok is false when the sheet or
// row does not exist.
func (r *Repository) CompanyRow(ctx context.Context) (models.CompanyDetails, bool, error) {
	const op = "CompanyRow"

	values, err := r.readRows(ctx, sheets.A1(r.names.Company, companyRow))
	if err != nil {
		return models.CompanyDetails{}, false, fmt.Errorf("%s: failed to read company details: %w", op, err)
	}
	if len(values) == 0 {
		return models.CompanyDetails{}, false, nil
	}

	row := values[0]
	c := models.CompanyDetails{
		Name:           cell(row, 0),
		Address:        cell(row, 1),
		CVR:            cell(row, 2),
		Zip:            cell(row, 3),
		Town:           cell(row, 4),
		Phone:          cell(row, 5),
		Email:          cell(row, 6),
		BankName:       cell(row, 7),
		BankAccount:    cell(row, 8),
		IBAN:           cell(row, 9),
		SWIFT:          cell(row, 10),
		AdditionalInfo: cell(row, 11),
	}
	if days, ok := parseNumber(cell(row, 12)); ok && days.IsPositive() {
		c.PaymentTerms = models.TermsDays(days.IntPart())
	}
	return c, true, nil
}

// SaveCompanyRow writes the company details to row 2 of the company sheet.
func (r *Repository) SaveCompanyRow(ctx context.Context, c models.CompanyDetails) error {
	const op = "SaveCompanyRow"

	if _, err := r.store.EnsureHeaders(ctx, r.names.Company, models.CompanyHeaders); err != nil {
		return fmt.Errorf("%s: failed to prepare sheet: %w", op, err)
	}
	if err := r.store.Write(ctx, sheets.A1(r.names.Company, companyRow), [][]string{c.Row()}); err != nil {
		return fmt.Errorf("%s: failed to write company details: %w", op, err)
	}

	r.log.Info().Str("company", c.Name).Msg("Company details saved to sheet")
	return nil
}
