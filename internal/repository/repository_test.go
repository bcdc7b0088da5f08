package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"faktura/internal/sheets"
	"faktura/pkg/models"
)

func newTestRepo(t *testing.T) (*Repository, *sheets.Workbook) {
	t.Helper()
	wb := sheets.NewWorkbook(filepath.Join(t.TempDir(), "faktura.xlsx"))
	return New(wb, DefaultSheetNames, decimal.NewFromInt(500)), wb
}

func acme() models.Customer {
	return models.Customer{
		ID:         "C1",
		Name:       "Acme ApS",
		Address:    "Vejen 1",
		CVR:        "12345678",
		Zip:        "8000",
		Town:       "Aarhus C",
		Phone:      "12 34 56 78",
		Email:      "faktura@acme.dk",
		HourlyRate: decimal.NewFromInt(650),
	}
}

func TestCustomersEmptyWhenSheetMissing(t *testing.T) {
	repo, _ := newTestRepo(t)

	customers, err := repo.Customers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, customers)
}

func TestCustomersParseDefensively(t *testing.T) {
	ctx := context.Background()
	repo, wb := newTestRepo(t)

	require.NoError(t, wb.Append(ctx, "Kunder!A:I", [][]string{
		models.CustomerHeaders,
		{"C1", "Acme ApS", "Vejen 1", "12345678", "8000", "Aarhus C", "12345678", "a@acme.dk", "650"},
		{"C2", "Short Row"},
		{"C3", "Bad Rate", "", "", "", "", "", "", "lots"},
		{"C4", ""},
		{"C5", "Comma Rate", "", "", "", "", "", "", "612,50"},
	}))

	customers, err := repo.Customers(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 4)

	assert.Equal(t, "Acme ApS", customers[0].Name)
	assert.True(t, customers[0].HourlyRate.Equal(decimal.NewFromInt(650)))

	assert.Equal(t, "Short Row", customers[1].Name)
	assert.Equal(t, "", customers[1].Email)
	assert.True(t, customers[1].HourlyRate.Equal(decimal.NewFromInt(500)), "blank rate uses the default")

	assert.True(t, customers[2].HourlyRate.Equal(decimal.NewFromInt(500)), "unreadable rate uses the default")
	assert.True(t, customers[3].HourlyRate.Equal(decimal.RequireFromString("612.5")))
}

func TestAddCustomer(t *testing.T) {
	ctx := context.Background()
	repo, wb := newTestRepo(t)

	require.NoError(t, repo.AddCustomer(ctx, acme()))

	rows, err := wb.Read(ctx, "Kunder!A:I")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, models.CustomerHeaders, rows[0])
	assert.Equal(t, acme().Row(), rows[1])

	dup := acme()
	dup.Name = "Other"
	err = repo.AddCustomer(ctx, dup)
	assert.ErrorIs(t, err, ErrDuplicateCustomerID)
}

func TestValidateCustomerCollectsAllProblems(t *testing.T) {
	c := models.Customer{ID: "C9", Name: "Half Filled", Email: "not-an-email"}

	err := ValidateCustomer(c, nil)
	require.Error(t, err)

	errs := multierr.Errors(err)
	// address, cvr, zip, town, phone missing; bad email; rate not positive
	assert.Len(t, errs, 7)
	assert.ErrorIs(t, err, ErrRequiredField)
	assert.ErrorIs(t, err, ErrInvalidEmail)
	assert.ErrorIs(t, err, ErrInvalidRate)
}

func TestTasksParseAndDegrade(t *testing.T) {
	ctx := context.Background()
	repo, wb := newTestRepo(t)

	require.NoError(t, wb.Append(ctx, "Opgave!A:J", [][]string{
		models.TaskHeaders,
		{"2025-09-01", "Acme ApS", "Support", "Timepris", "Printer", "120", "", "", ""},
		{"2025-09-02", "Acme ApS", "Projekt", "Fastpris", "Website", "abc", "450,25", "0", "450,25", "C1"},
		{"2025-09-03", "", "Support", "", "Orphan", "30"},
		{"2025-09-04", "Beta", "Support", "Timepris", "Other", "120.0", "", "", "n/a"},
	}))

	tasks, err := repo.Tasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	assert.Equal(t, 120, tasks[0].Minutes)
	assert.False(t, tasks[0].Sum.Valid)
	assert.Equal(t, 2, tasks[0].SheetRow)

	assert.Equal(t, 0, tasks[1].Minutes, "non-numeric minutes degrade to zero")
	assert.True(t, tasks[1].Sum.Valid)
	assert.True(t, tasks[1].Sum.Decimal.Equal(decimal.RequireFromString("450.25")))
	assert.Equal(t, "C1", tasks[1].CustomerID)

	assert.Equal(t, 120, tasks[2].Minutes)
	assert.False(t, tasks[2].Sum.Valid)
}

func TestTasksClampOutOfRangeValues(t *testing.T) {
	ctx := context.Background()
	repo, wb := newTestRepo(t)

	require.NoError(t, wb.Append(ctx, "Opgave!A:J", [][]string{
		models.TaskHeaders,
		{"2025-09-01", "Acme ApS", "Support", "Timepris", "Refund", "-30", "500", "150", ""},
		{"2025-09-02", "Acme ApS", "Support", "Timepris", "Goodwill", "60", "500", "-5", ""},
		{"2025-09-03", "Acme ApS", "Support", "Timepris", "Normal", " 45 ", "500.00", "10", "337,50"},
	}))

	tasks, err := repo.Tasks(ctx)
	require.NoError(t, err, "out of range values must not reject the sheet")
	require.Len(t, tasks, 3)

	tests := []struct {
		minutes  int
		discount string
		cells    models.TaskCells
	}{
		{0, "100", models.TaskCells{Minutes: "-30", Price: "500", Discount: "150"}},
		{60, "0", models.TaskCells{Minutes: "60", Price: "500", Discount: "-5"}},
		{45, "10", models.TaskCells{Minutes: "45", Price: "500.00", Discount: "10", Sum: "337,50"}},
	}
	for i, tt := range tests {
		task := tasks[i]
		assert.Equal(t, tt.minutes, task.Minutes, task.Description)
		assert.True(t, decimal.RequireFromString(tt.discount).Equal(task.Discount), "%s: discount %s", task.Description, task.Discount)
		require.NotNil(t, task.Cells)
		assert.Equal(t, tt.cells, *task.Cells, "sheet text is kept as read")
	}
}

func TestTasksForMatchesIDThenName(t *testing.T) {
	ctx := context.Background()
	repo, wb := newTestRepo(t)

	require.NoError(t, wb.Append(ctx, "Opgave!A:J", [][]string{
		models.TaskHeaders,
		{"2025-09-01", "Acme ApS", "Support", "", "legacy row", "60"},
		{"2025-09-02", "Acme (old name)", "Support", "", "id row", "60", "", "", "", "C1"},
		{"2025-09-03", "Acme ApS", "Support", "", "other customer id", "60", "", "", "", "C2"},
	}))

	tasks, err := repo.TasksFor(ctx, acme())
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "legacy row", tasks[0].Description)
	assert.Equal(t, "id row", tasks[1].Description)
}

func TestAddTaskRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	task := models.Task{
		Date:        "2025-09-29",
		CustomerID:  "C1",
		Customer:    "Acme ApS",
		TaskType:    "Support",
		PricingType: models.PricingHourly,
		Description: "Opsætning",
		Minutes:     90,
		Price:       decimal.NewFromInt(650),
		Discount:    decimal.NewFromInt(10),
		Sum:         decimal.NewNullDecimal(decimal.RequireFromString("877.5")),
	}
	require.NoError(t, repo.AddTask(ctx, task))

	tasks, err := repo.Tasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, task.Description, tasks[0].Description)
	assert.True(t, tasks[0].Sum.Decimal.Equal(task.Sum.Decimal))
	assert.True(t, tasks[0].BelongsTo(acme()))

	rejected := []struct {
		minutes  int
		discount int64
		want     error
	}{
		{0, 10, ErrInvalidMinutes},
		{-30, 10, ErrInvalidMinutes},
		{90, 150, ErrInvalidDiscount},
		{90, -5, ErrInvalidDiscount},
	}
	for _, tt := range rejected {
		bad := task
		bad.Minutes = tt.minutes
		bad.Discount = decimal.NewFromInt(tt.discount)
		assert.ErrorIs(t, repo.AddTask(ctx, bad), tt.want)
	}

	tasks, err = repo.Tasks(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestTaskTypes(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	added, err := repo.AddTaskType(ctx, "Support")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repo.AddTaskType(ctx, "  support ")
	require.NoError(t, err)
	assert.False(t, added, "task types are unique ignoring case")

	_, err = repo.AddTaskType(ctx, "Projekt")
	require.NoError(t, err)

	types, err := repo.TaskTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Support", "Projekt"}, types)
}

func TestTaskTypesWithoutHeader(t *testing.T) {
	ctx := context.Background()
	repo, wb := newTestRepo(t)
	require.NoError(t, wb.Append(ctx, "Tasktype!A:A", [][]string{{"Support"}, {"Møde"}}))

	types, err := repo.TaskTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Support", "Møde"}, types)
}

func TestCompanyRowRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	_, ok, err := repo.CompanyRow(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	details := models.CompanyDetails{Name: "ST Digital", Email: "hej@st.dk", BankAccount: "1234/5678901", PaymentTerms: 14}
	require.NoError(t, repo.SaveCompanyRow(ctx, details))
	details.Phone = "87654321"
	require.NoError(t, repo.SaveCompanyRow(ctx, details))

	got, ok, err := repo.CompanyRow(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, details, got)
}

func TestTaskSum(t *testing.T) {
	rate := decimal.NewFromInt(500)

	assert.True(t, TaskSum(models.PricingHourly, 120, decimal.Zero, rate, decimal.Zero).Equal(decimal.NewFromInt(1000)))
	assert.True(t, TaskSum(models.PricingHourly, 90, decimal.Zero, rate, decimal.NewFromInt(10)).Equal(decimal.NewFromInt(675)))
	assert.True(t, TaskSum(models.PricingFixed, 30, decimal.RequireFromString("450.25"), rate, decimal.Zero).Equal(decimal.RequireFromString("450.25")))
	assert.True(t, TaskSum(models.PricingHourly, 10, decimal.Zero, rate, decimal.Zero).Equal(decimal.RequireFromString("83.33")))
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"500", "500", true},
		{"180.0", "180", true},
		{"612,50", "612.5", true},
		{"1.234,50", "1234.5", true},
		{"650 DKK", "650", true},
		{"1,234.50", "1234.5", true},
		{"1.234.567", "1234567", true},
		{"1,234,567.89", "1234567.89", true},
		{"0.125", "0.125", true},
		{"1234.500", "1234.5", true},
		{"1.500", "0", false},
		{"2,250", "0", false},
		{"-1.500", "0", false},
		{"1.2.3", "0", false},
		{"12,5.3", "0", false},
		{"", "0", false},
		{"abc", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseNumber(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}

	_, err := readNumber("1.500")
	assert.ErrorIs(t, err, errAmbiguousGroup)

	assert.Equal(t, 0, minutesOrZero(zerolog.Nop(), "abc", 3))
	assert.Equal(t, 45, minutesOrZero(zerolog.Nop(), "45.9", 3))
}
