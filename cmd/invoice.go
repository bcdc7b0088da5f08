package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"faktura/internal/flow"
	"faktura/internal/invoice"
	"faktura/internal/ledger"
	"faktura/internal/logger"
	"faktura/internal/numbering"
	"faktura/internal/pdf"
	"faktura/internal/prompt"
)

var invoiceCmd = &cobra.Command{
	Use:     "invoice",
	Aliases: []string{"create-invoice"},
	Short:   "Create, number and send an invoice or credit memo",
	Long: `Walk through invoice creation interactively:

  1. Choose between an invoice and a credit memo (kreditnota)
  2. Select the customer and the tasks to bill
  3. Review the summary and preview, with a warning for tasks invoiced before
  4. Generate the numbered PDF (the first number is 785)
  5. Save a copy to Google Drive, record the tasks as invoiced
  6. Email the customer (optional CC) and send a copy to bookkeeping

Enter 'q' at any prompt or press Ctrl+C to cancel. Nothing is numbered or
written before the final confirmation.`,
	Example: `  # Create an invoice interactively
  faktura invoice

  # Skip the detailed preview
  faktura invoice --no-preview

  # Answer yes to every confirmation (customer and bookkeeping emails included)
  faktura invoice -y`,
	Args: cobra.NoArgs,
	RunE: runInvoice,
}

func init() {
	rootCmd.AddCommand(invoiceCmd)

	invoiceCmd.Flags().Bool("no-preview", false, "Skip the detailed invoice preview (still asks for confirmation unless --yes)")
	invoiceCmd.Flags().Bool("preview", false, "Force the detailed invoice preview")
	invoiceCmd.Flags().BoolP("yes", "y", false, "Assume yes to all confirmations")
}

func runInvoice(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("invoice")

	noPreview, _ := cmd.Flags().GetBool("no-preview")
	preview, _ := cmd.Flags().GetBool("preview")
	yes, _ := cmd.Flags().GetBool("yes")

	log.Info().
		Bool("no_preview", noPreview).
		Bool("preview", preview).
		Bool("yes", yes).
		Msg("Starting invoice creation")

	a, err := newApp(log)
	if err != nil {
		return err
	}

	ctx, cancel := createCommandContext(log)
	defer cancel()

	repo, err := a.repository(ctx)
	if err != nil {
		return handleCommandError(err, log)
	}

	deps := flow.Deps{
		Repo:     repo,
		Company:  a.company(repo),
		Invoices: invoice.NewService(numbering.NewAllocator(a.cfg.NumberingFile), pdf.NewRenderer(a.cfg.InvoicesDir, a.cfg.LogoPath)),
		Ledger:   ledger.New(a.cfg.InvoicedTasksFile),
		Prompt:   prompt.New(os.Stdin, cmd.OutOrStdout()),
	}
	if u := a.uploader(ctx); u != nil {
		deps.Uploader = u
	}
	mailer, err := a.mailer(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Email disabled")
		fmt.Fprintf(cmd.OutOrStdout(), "⚠️  Email sending disabled: %v\n", err)
	} else {
		deps.Mailer = mailer
	}

	result, err := flow.New(deps, flow.Options{
		NoPreview:        noPreview,
		Preview:          preview,
		Yes:              yes,
		Bookkeeping:      a.cfg.BookkeepingEmail,
		DefaultTermsDays: a.cfg.PaymentTermsDays,
	}).Run(ctx)
	if err != nil {
		return handleCommandError(err, log)
	}

	if result.Cancelled() {
		return nil
	}
	log.Info().
		Int("invoice_number", result.Invoice.Number).
		Str("file", result.Invoice.FilePath).
		Str("drive_file_id", result.DriveFileID).
		Bool("customer_emailed", result.CustomerEmailed).
		Bool("bookkeeping_sent", result.BookkeepingSent).
		Msg("Invoice creation finished")
	return nil
}
