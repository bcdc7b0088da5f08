// Package flow runs the interactive invoice creation from the credit memo
// question to the bookkeeping copy.
//
// Each step is bound to a workflow state and returns the trigger that moves
// the machine on. Steps after the invoice is numbered never fail the run:
// upload, ledger and email problems are reported and the flow continues.
package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"faktura/internal/drive"
	"faktura/internal/invoice"
	"faktura/internal/ledger"
	"faktura/internal/logger"
	"faktura/internal/mail"
	"faktura/internal/prompt"
	"faktura/internal/workflow"
	"faktura/pkg/models"
)

var (
	// ErrNoCustomers is returned when the customer sheet is empty.
	ErrNoCustomers = errors.New("no customers available")

	// ErrNoTasks is returned when the selected customer has no tasks.
	ErrNoTasks = errors.New("no tasks available for customer")
)

const rule = "============================================================"
const thinRule = "------------------------------------------------------------"

// Repository supplies customers and their tasks.
type Repository interface {
	Customers(ctx context.Context) ([]models.Customer, error)
	TasksFor(ctx context.Context, customer models.Customer) ([]models.Task, error)
}

// CompanyLoader supplies the issuing company's details.
type CompanyLoader interface {
	Load(ctx context.Context) (models.CompanyDetails, error)
}

// Ledger remembers invoiced tasks.
type Ledger interface {
	Check(tasks []models.Task) ([]ledger.Hit, error)
	Record(tasks []models.Task, n int) error
}

// Uploader stores a copy of the rendered PDF.
type Uploader interface {
	Upload(ctx context.Context, path string) (string, error)
}

// Sender delivers one invoice email.
type Sender interface {
	Send(ctx context.Context, env mail.Envelope) error
}

// Deps are the collaborators of a run. Uploader and Mailer may be nil to
// leave out the Drive copy and the emails.
type Deps struct {
	Repo     Repository
	Company  CompanyLoader
	Invoices *invoice.Service
	Ledger   Ledger
	Uploader Uploader
	Mailer   Sender
	Prompt   *prompt.Prompter
}

// Options change how much the run asks.
type Options struct {
	NoPreview bool // skip the detailed preview
	Preview   bool // show the preview even with NoPreview
	Yes       bool // assume yes to every confirmation

	Bookkeeping      string // address for the internal copy; empty disables it
	DefaultTermsDays int

	Now func() time.Time
}

// Result describes how a run ended.
type Result struct {
	State           workflow.State
	Invoice         *models.Invoice
	DriveFileID     string
	CustomerEmailed bool
	BookkeepingSent bool
}

// Cancelled reports whether the user quit before the flow finished.
func (r *Result) Cancelled() bool {
	return r.State == workflow.StateCancelled
}

// Flow is one invoice creation run. It is not reusable.
type Flow struct {
	deps    Deps
	opts    Options
	machine *workflow.Machine
	p       *prompt.Prompter
	log     zerolog.Logger

	direction invoice.Direction
	company   models.CompanyDetails
	customer  models.Customer
	available []models.Task
	selected  []models.Task
	inv       *models.Invoice
	recorded  bool
	envelope  mail.Envelope
	result    Result
}

// New prepares a run.
func New(deps Deps, opts Options) *Flow {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Flow{
		deps:    deps,
		opts:    opts,
		machine: workflow.NewInvoiceFlow(),
		p:       deps.Prompt,
		log:     logger.WithComponent("flow"),
	}
}

// Run drives the machine to a terminal state. Quitting at a prompt or
// cancelling ctx ends in StateCancelled with a nil error; other errors stop
// the run in the state that failed.
func (f *Flow) Run(ctx context.Context) (*Result, error) {
	steps := map[workflow.State]func(context.Context) (workflow.Trigger, error){
		workflow.StateSelectingCreditMemo:  f.selectDirection,
		workflow.StateSelectingCustomer:    f.selectCustomer,
		workflow.StateSelectingTasks:       f.selectTasks,
		workflow.StateReviewingSummary:     f.review,
		workflow.StateCheckingDuplicates:   f.checkDuplicates,
		workflow.StateConfirmingGeneration: f.confirm,
		workflow.StateGenerating:           f.generate,
		workflow.StateNumbering:            f.number,
		workflow.StateRendering:            f.render,
		workflow.StateUploadingCopy:        f.upload,
		workflow.StateRecordingLedger:      f.record,
		workflow.StateSendingCustomerEmail: f.sendCustomer,
		workflow.StateSendingInternalCopy:  f.sendBookkeeping,
	}

	for !f.machine.State().IsTerminal() {
		state := f.machine.State()
		if ctx.Err() != nil {
			return f.cancel(ctx)
		}

		trigger, err := steps[state](ctx)
		if errors.Is(err, prompt.ErrCancelled) || errors.Is(err, context.Canceled) {
			return f.cancel(ctx)
		}
		if err != nil {
			f.log.Error().Err(err).Str("state", state.String()).Msg("Invoice creation failed")
			f.result.State = state
			return &f.result, err
		}

		if err := f.machine.Fire(ctx, trigger); err != nil {
			return &f.result, err
		}
		f.log.Debug().Str("from", state.String()).Str("to", f.machine.State().String()).Msg("Flow transition")
	}

	f.result.State = f.machine.State()
	f.p.Println("\n🎉 Invoice creation completed successfully!")
	f.log.Info().Str("customer", f.customer.Name).Int("invoice_number", f.inv.Number).Msg("Invoice creation completed")
	return &f.result, nil
}

func (f *Flow) cancel(ctx context.Context) (*Result, error) {
	at := f.machine.State()
	if err := f.machine.Cancel(context.WithoutCancel(ctx)); err != nil {
		return &f.result, err
	}
	f.result.State = f.machine.State()
	if f.inv != nil && f.inv.Number > 0 {
		// The number is spent, so the tasks count as invoiced.
		f.recordLedger()
		f.p.Printf("\n⏭️ Remaining steps skipped. Invoice %d was already created.\n", f.inv.Number)
	} else {
		f.p.Println("\n⏭️ Invoice creation cancelled.")
	}
	f.log.Info().Str("state", at.String()).Msg("Invoice creation cancelled by user")
	return &f.result, nil
}

// confirmed answers yes without asking when Options.Yes is set.
func (f *Flow) confirmed(ctx context.Context, question, auto string) (bool, error) {
	if f.opts.Yes {
		f.p.Printf("\n--yes supplied: %s\n", auto)
		return true, nil
	}
	return f.p.Confirm(ctx, "\n"+question, false)
}

func (f *Flow) selectDirection(ctx context.Context) (workflow.Trigger, error) {
	credit, err := f.p.Confirm(ctx, "Generate a Credit Memo instead of an Invoice?", false)
	if err != nil {
		return "", err
	}
	if credit {
		f.direction = invoice.CreditMemo
	}

	title := "INVOICE CREATION"
	if credit {
		title = "KREDITNOTA"
	}
	f.p.Println("\n" + rule)
	f.p.Printf("ST_FAKTURA - %s\n", title)
	f.p.Println(rule)
	return workflow.TriggerNext, nil
}

func (f *Flow) selectCustomer(ctx context.Context) (workflow.Trigger, error) {
	company, err := f.deps.Company.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("company details: %w", err)
	}
	f.company = company

	f.p.Println("\nStep 1: Select Customer")
	customers, err := f.deps.Repo.Customers(ctx)
	if err != nil {
		return "", err
	}
	if len(customers) == 0 {
		return "", ErrNoCustomers
	}

	f.p.Println("\n" + rule)
	f.p.Println("AVAILABLE CUSTOMERS")
	f.p.Println(rule)
	for i, c := range customers {
		f.p.Printf("%2d. %s (ID: %s)\n", i+1, c.Name, c.ID)
		if c.Town != "" || c.Email != "" {
			f.p.Printf("     %s - %s\n", c.Town, c.Email)
		}
	}
	f.p.Println(rule)

	i, err := f.p.Choose(ctx, "\nSelect customer", len(customers))
	if err != nil {
		return "", err
	}
	f.customer = customers[i]
	f.p.Printf("\n✅ Selected: %s\n", f.customer.Name)
	return workflow.TriggerNext, nil
}

func (f *Flow) selectTasks(ctx context.Context) (workflow.Trigger, error) {
	if f.available == nil {
		f.p.Printf("\nStep 2: Select Tasks for %s\n", f.customer.Name)
		tasks, err := f.deps.Repo.TasksFor(ctx, f.customer)
		if err != nil {
			return "", err
		}
		if len(tasks) == 0 {
			return "", fmt.Errorf("%w %s", ErrNoTasks, f.customer.Name)
		}
		f.available = tasks
	}

	f.p.Println("\n" + rule + "====================")
	f.p.Println("AVAILABLE TASKS")
	f.p.Println(rule + "====================")
	total := 0
	for i, t := range f.available {
		total += t.Minutes
		f.p.Printf("%2d. %s - %s\n", i+1, t.Date, t.TaskType)
		f.p.Printf("    %s\n", shorten(t.Description, 60))
		f.p.Printf("    Time: %s hours (%d minutes)\n\n", hours(t.Minutes), t.Minutes)
	}
	f.p.Printf("Total time for all tasks: %s hours (%d minutes)\n", hours(total), total)

	f.p.Println("\nSelect tasks to include in invoice:")
	f.p.Println("Enter task numbers separated by commas (e.g., 1,3,5) or 'all' for all tasks")
	idx, err := f.p.Select(ctx, "Selection", len(f.available))
	if err != nil {
		return "", err
	}

	f.selected = make([]models.Task, 0, len(idx))
	for _, i := range idx {
		f.selected = append(f.selected, f.available[i])
	}
	f.p.Printf("\n✅ Selected %d tasks\n", len(f.selected))
	return workflow.TriggerNext, nil
}

func (f *Flow) request() invoice.Request {
	return invoice.Request{
		Company:          f.company,
		Customer:         f.customer,
		Tasks:            f.selected,
		Direction:        f.direction,
		IssueDate:        f.opts.Now(),
		DefaultTermsDays: f.opts.DefaultTermsDays,
	}
}

func (f *Flow) review(_ context.Context) (workflow.Trigger, error) {
	req := f.request()
	summary := f.deps.Invoices.Summarize(req)

	f.p.Printf("\nUsing customer's hourly rate: %s DKK\n", invoice.FormatAmount(f.customer.HourlyRate))
	f.p.Println("\n" + rule)
	f.p.Println("INVOICE SUMMARY")
	f.p.Println(rule)
	f.p.Printf("Number of tasks:   %d\n", len(f.selected))
	f.p.Printf("Total time:        %s hours (%d minutes)\n", hours(summary.Minutes), summary.Minutes)
	f.p.Printf("Hourly rate:       %s DKK\n", invoice.FormatAmount(f.customer.HourlyRate))
	f.p.Printf("Subtotal:          %s DKK\n", invoice.FormatAmount(summary.Subtotal))
	f.p.Printf("VAT (25%%):         %s DKK\n", invoice.FormatAmount(summary.VAT))
	f.p.Printf("Total incl. VAT:   %s DKK\n", invoice.FormatAmount(summary.Total))
	f.p.Println(rule)

	if f.opts.NoPreview && !f.opts.Preview {
		f.p.Println("(Preview skipped) Use --preview to force showing it.")
		return workflow.TriggerNext, nil
	}

	terms := invoice.PaymentTermsDays(f.company, f.opts.DefaultTermsDays)
	issue := req.IssueDate
	f.p.Println("\n" + thinRule)
	f.p.Println("INVOICE PREVIEW (Not yet generated)")
	f.p.Println(thinRule)
	f.p.Printf("Prospective invoice number: %d\n", f.deps.Invoices.NextNumber())
	f.p.Printf("Issue date: %s  |  Due date (net %d): %s\n",
		issue.Format("02.01.2006"), terms, issue.AddDate(0, 0, terms).Format("02.01.2006"))
	f.p.Printf("Customer: %s  CVR: %s\n", f.customer.Name, f.customer.CVR)
	f.p.Println("Tasks:")
	for i, line := range summary.Lines {
		t := line.Task
		f.p.Printf(" %2d. %s | %s | %d min | Sum: %s | %s\n",
			i+1, t.Date, t.TaskType, t.Minutes, invoice.FormatAmount(line.Amount), shorten(t.Description, 70))
	}
	f.p.Println(thinRule)
	f.p.Printf("Subtotal:                  %s DKK\n", invoice.FormatAmount(summary.Subtotal))
	f.p.Printf("VAT 25%%:                   %s DKK\n", invoice.FormatAmount(summary.VAT))
	f.p.Printf("TOTAL incl. VAT:           %s DKK\n", invoice.FormatAmount(summary.Total))
	f.p.Println(thinRule)
	return workflow.TriggerNext, nil
}

func (f *Flow) checkDuplicates(ctx context.Context) (workflow.Trigger, error) {
	hits, err := f.deps.Ledger.Check(f.selected)
	if err != nil {
		f.log.Warn().Err(err).Msg("Could not check invoiced tasks ledger")
		return workflow.TriggerNext, nil
	}
	if len(hits) == 0 {
		return workflow.TriggerNext, nil
	}

	f.p.Println("\n⚠️  The following selected tasks have already been invoiced:")
	for i, h := range hits {
		f.p.Printf(" %d. %s - %s (%s) -> Faktura #%d on %s\n",
			i+1, h.Task.Date, h.Task.TaskType, shorten(h.Task.Description, 40), h.Entry.InvoiceNumber, h.Entry.Date)
	}

	include, err := f.confirmed(ctx, "Proceed anyway and include them again?", "including already invoiced tasks.")
	if err != nil {
		return "", err
	}
	if include {
		f.log.Warn().Int("tasks", len(hits)).Msg("Invoicing tasks that were invoiced before")
		return workflow.TriggerNext, nil
	}

	f.p.Println("\nYou chose NOT to include already invoiced tasks.")
	f.p.Println("You can now re-select tasks (exclude duplicates) or 'q' to abort.")
	return workflow.TriggerReselect, nil
}

func (f *Flow) confirm(ctx context.Context) (workflow.Trigger, error) {
	generate, err := f.confirmed(ctx, "Do you want to generate this invoice?", "proceeding without interactive confirmation.")
	if err != nil {
		return "", err
	}
	if generate {
		return workflow.TriggerNext, nil
	}

	adjust, err := f.p.Confirm(ctx, "Would you like to adjust the task selection instead?", false)
	if err != nil {
		return "", err
	}
	if adjust {
		return workflow.TriggerReselect, nil
	}
	return "", prompt.ErrCancelled
}

func (f *Flow) generate(_ context.Context) (workflow.Trigger, error) {
	f.p.Println("\nStep 4: Generating Invoice...")
	inv, err := f.deps.Invoices.Draft(f.request())
	if err != nil {
		return "", err
	}
	f.inv = inv
	f.result.Invoice = inv
	return workflow.TriggerNext, nil
}

func (f *Flow) number(_ context.Context) (workflow.Trigger, error) {
	if err := f.deps.Invoices.AssignNumber(f.inv); err != nil {
		return "", err
	}
	f.log.Info().Int("invoice_number", f.inv.Number).Msg("Invoice number allocated")
	return workflow.TriggerNext, nil
}

func (f *Flow) render(_ context.Context) (workflow.Trigger, error) {
	if err := f.deps.Invoices.Render(f.inv); err != nil {
		f.p.Println("❌ Failed to generate invoice PDF")
		return "", err
	}
	f.p.Printf("✅ Invoice PDF generated: %s\n", f.inv.FilePath)

	f.envelope = mail.Envelope{
		To:            strings.TrimSpace(f.customer.Email),
		RecipientName: f.customer.Name,
		InvoiceNumber: f.inv.Number,
		TermsDays:     f.inv.PaymentTermsDays(),
		PDFPath:       f.inv.FilePath,
	}

	if f.deps.Uploader == nil {
		return workflow.TriggerSkip, nil
	}
	return workflow.TriggerNext, nil
}

func (f *Flow) upload(ctx context.Context) (workflow.Trigger, error) {
	id, err := f.deps.Uploader.Upload(ctx, f.inv.FilePath)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		f.p.Printf("❌ Drive upload failed: %v\n", err)
		if hint := drive.Hint(err); hint != "" {
			f.p.Printf("   %s\n", hint)
		}
		return workflow.TriggerNext, nil
	}
	f.result.DriveFileID = id
	f.p.Println("✅ Copy saved to Google Drive")
	return workflow.TriggerNext, nil
}

func (f *Flow) record(_ context.Context) (workflow.Trigger, error) {
	f.recordLedger()

	switch {
	case f.deps.Mailer == nil:
		return workflow.TriggerFinish, nil
	case f.envelope.To == "":
		f.p.Printf("\n%s has no email address; skipping customer email.\n", f.customer.Name)
		return workflow.TriggerSkip, nil
	}
	return workflow.TriggerNext, nil
}

// recordLedger stores the selected tasks under the invoice number once.
// Failures are reported and otherwise ignored.
func (f *Flow) recordLedger() {
	if f.recorded {
		return
	}
	f.recorded = true
	if err := f.deps.Ledger.Record(f.selected, f.inv.Number); err != nil {
		f.log.Error().Err(err).Int("invoice_number", f.inv.Number).Msg("Failed to record invoiced tasks")
		f.p.Printf("⚠️  Could not record invoiced tasks: %v\n", err)
	}
}

func (f *Flow) sendCustomer(ctx context.Context) (workflow.Trigger, error) {
	send, err := f.confirmed(ctx,
		fmt.Sprintf("Send invoice to %s?", f.envelope.To),
		fmt.Sprintf("auto-sending to %s", f.envelope.To))
	if err != nil {
		return "", err
	}

	if send {
		if !f.opts.Yes {
			cc, err := f.p.Ask(ctx, "Enter additional CC email(s) (comma separated) or press Enter to skip", "")
			if err != nil {
				return "", err
			}
			f.envelope.Cc = mail.CleanCC(f.envelope.To, mail.ParseCC(cc))
		}

		if err := f.deps.Mailer.Send(ctx, f.envelope); err != nil {
			f.p.Printf("❌ Failed to send invoice email: %v\n", err)
		} else {
			target := f.envelope.To
			if len(f.envelope.Cc) > 0 {
				target += fmt.Sprintf(" (CC: %s)", strings.Join(f.envelope.Cc, ", "))
			}
			f.p.Printf("✅ Invoice sent to %s\n", target)
			f.result.CustomerEmailed = true
		}
	}

	if _, ok := mail.BookkeepingCopy(f.envelope, f.opts.Bookkeeping); !ok {
		return workflow.TriggerFinish, nil
	}
	return workflow.TriggerNext, nil
}

func (f *Flow) sendBookkeeping(ctx context.Context) (workflow.Trigger, error) {
	env, ok := mail.BookkeepingCopy(f.envelope, f.opts.Bookkeeping)
	if !ok {
		return workflow.TriggerNext, nil
	}

	send, err := f.confirmed(ctx,
		fmt.Sprintf("Send a copy to bookkeeping (%s)?", env.To),
		fmt.Sprintf("auto-sending bookkeeping copy to %s", env.To))
	if err != nil {
		return "", err
	}
	if !send {
		return workflow.TriggerNext, nil
	}

	if err := f.deps.Mailer.Send(ctx, env); err != nil {
		f.p.Printf("❌ Failed to send copy to %s: %v\n", env.To, err)
	} else {
		f.p.Printf("✅ Copy sent to %s\n", env.To)
		f.result.BookkeepingSent = true
	}
	return workflow.TriggerNext, nil
}

func hours(minutes int) string {
	return decimal.NewFromInt(int64(minutes)).Div(decimal.NewFromInt(60)).StringFixed(2)
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
