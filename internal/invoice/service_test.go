package invoice

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"faktura/pkg/models"
)

type stubAllocator struct {
	next int
	err  error
}

func (a *stubAllocator) Peek() int { return a.next }

func (a *stubAllocator) Allocate() (int, error) {
	if a.err != nil {
		return 0, a.err
	}
	n := a.next
	a.next++
	return n, nil
}

type stubRenderer struct {
	dir      string
	rendered []*models.Invoice
	err      error
}

func (r *stubRenderer) Render(inv *models.Invoice) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.rendered = append(r.rendered, inv)
	return filepath.Join(r.dir, "faktura.pdf"), nil
}

func request() Request {
	return Request{
		Company:   models.CompanyDetails{Name: "ST Digital"},
		Customer:  models.Customer{ID: "C1", Name: "Acme", HourlyRate: d("500")},
		Tasks:     []models.Task{hourly(120)},
		Direction: Invoice,
		IssueDate: time.Date(2025, 9, 29, 0, 0, 0, 0, time.UTC),
	}
}

func TestDraftComputesDatesAndAmounts(t *testing.T) {
	svc := NewService(&stubAllocator{next: 785}, &stubRenderer{})

	inv, err := svc.Draft(request())
	require.NoError(t, err)

	assert.Equal(t, 0, inv.Number)
	assert.Equal(t, time.Date(2025, 10, 7, 0, 0, 0, 0, time.UTC), inv.DueDate)
	assert.Equal(t, 8, inv.PaymentTermsDays())
	assert.True(t, inv.Total.Equal(d("1250")))
	assert.False(t, inv.CreditMemo)
}

func TestDraftCollectsAllValidationErrors(t *testing.T) {
	svc := NewService(&stubAllocator{next: 785}, &stubRenderer{})
	req := request()
	req.Company.Name = ""
	req.Customer.Name = ""
	req.Tasks = nil

	_, err := svc.Draft(req)
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrMissingCompanyName)
	assert.ErrorIs(t, err, ErrMissingCustomer)
	assert.ErrorIs(t, err, ErrNoTasks)

	var invErr *InvoiceError
	require.True(t, errors.As(err, &invErr))
	assert.Len(t, multierr.Errors(invErr.Err), 3)
}

func TestIssueNumbersThenRenders(t *testing.T) {
	alloc := &stubAllocator{next: 785}
	renderer := &stubRenderer{dir: t.TempDir()}
	svc := NewService(alloc, renderer)

	assert.Equal(t, 785, svc.NextNumber())

	inv, err := svc.Draft(request())
	require.NoError(t, err)
	require.NoError(t, svc.Issue(inv))

	assert.Equal(t, 785, inv.Number)
	assert.Equal(t, filepath.Join(renderer.dir, "faktura.pdf"), inv.FilePath)
	assert.Len(t, renderer.rendered, 1)
	assert.Equal(t, 786, svc.NextNumber())
}

func TestAssignNumberFailure(t *testing.T) {
	svc := NewService(&stubAllocator{err: errors.New("disk full")}, &stubRenderer{})

	inv, err := svc.Draft(request())
	require.NoError(t, err)

	err = svc.Issue(inv)
	assert.ErrorIs(t, err, ErrNumberingFailed)
	assert.Equal(t, 0, inv.Number)
}

func TestRenderFailureKeepsNumber(t *testing.T) {
	svc := NewService(&stubAllocator{next: 900}, &stubRenderer{err: errors.New("no space")})

	inv, err := svc.Draft(request())
	require.NoError(t, err)

	err = svc.Issue(inv)
	assert.ErrorIs(t, err, ErrRenderFailed)
	assert.Equal(t, 900, inv.Number)
	assert.Contains(t, err.Error(), "invoice 900")
}

func TestPaymentTermsPrecedence(t *testing.T) {
	assert.Equal(t, 14, PaymentTermsDays(models.CompanyDetails{PaymentTerms: 14}, 30))
	assert.Equal(t, 30, PaymentTermsDays(models.CompanyDetails{}, 30))
	assert.Equal(t, 8, PaymentTermsDays(models.CompanyDetails{}, 0))
}

func TestDraftAmountsAddUp(t *testing.T) {
	tests := []struct {
		name  string
		tasks []models.Task
		dir   Direction
		total string
	}{
		{"hourly", []models.Task{hourly(45), hourly(20)}, Invoice, "677.083333333333333333333333"},
		{"sheet sums", []models.Task{priced("612.50"), priced("0.01")}, Invoice, "765.6375"},
		{"credit memo", []models.Task{hourly(60), priced("100")}, CreditMemo, "-750"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(&stubAllocator{next: 785}, &stubRenderer{})
			req := request()
			req.Tasks = tt.tasks
			req.Direction = tt.dir

			inv, err := svc.Draft(req)
			require.NoError(t, err)

			lines := decimal.Zero
			for _, l := range inv.Lines {
				lines = lines.Add(l.Amount)
			}
			assert.True(t, lines.Equal(inv.Subtotal), "lines %s, subtotal %s", lines, inv.Subtotal)
			assert.True(t, inv.Subtotal.Mul(VATRate).Equal(inv.VAT))
			assert.True(t, inv.Subtotal.Add(inv.VAT).Equal(inv.Total))
			assert.Equal(t, d(tt.total).Round(4).String(), inv.Total.Round(4).String())
		})
	}
}

func TestDraftAcceptsRowsFromSheet(t *testing.T) {
	svc := NewService(&stubAllocator{next: 785}, &stubRenderer{})
	task := hourly(0)
	task.Discount = decimal.NewFromInt(100)
	task.SheetRow = 7
	req := request()
	req.Tasks = []models.Task{task, hourly(60)}

	inv, err := svc.Draft(req)
	require.NoError(t, err)
	assert.Len(t, inv.Lines, 2)
	assert.True(t, inv.Subtotal.Equal(d("500")))
}

func TestValidateRequestRejectsNegativeRate(t *testing.T) {
	v := NewValidation()
	customer := models.Customer{Name: "Acme", HourlyRate: d("-500")}

	err := v.ValidateRequest(models.CompanyDetails{Name: "ST"}, customer, []models.Task{hourly(60)})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "hourly_rate", verr.Field)
}
