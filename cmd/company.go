package cmd

import (
	"context"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"faktura/internal/company"
	"faktura/internal/logger"
	"faktura/internal/prompt"
	"faktura/internal/repository"
	"faktura/pkg/models"
)

var companyCmd = &cobra.Command{
	Use:   "company",
	Short: "Show or edit your company details",
	Long: `Show or edit the details printed in every invoice header and footer:
name, address, CVR, contact information, bank account and payment terms.

Details are kept in COMPANY_DETAILS_FILE and mirrored to the company sheet;
values in the sheet override the file when both exist.`,
	Args: cobra.NoArgs,
	RunE: runCompanyEdit,
}

var companyEditCmd = &cobra.Command{
	Use:     "edit",
	Short:   "Edit company details interactively",
	Example: `  faktura company edit`,
	Args:    cobra.NoArgs,
	RunE:    runCompanyEdit,
}

var companyShowCmd = &cobra.Command{
	Use:     "show",
	Short:   "Print the current company details",
	Example: `  faktura company show`,
	Args:    cobra.NoArgs,
	RunE:    runCompanyShow,
}

func init() {
	rootCmd.AddCommand(companyCmd)
	companyCmd.AddCommand(companyEditCmd)
	companyCmd.AddCommand(companyShowCmd)
}

// companyService opens the company details with the sheet when the store is
// reachable, and the file alone otherwise.
func companyService(ctx context.Context, a *app) *company.Service {
	repo, err := a.repository(ctx)
	if err != nil {
		a.log.Warn().Err(err).Msg("Company sheet unavailable, using the local file only")
		return a.company(nil)
	}
	return a.company(repo)
}

func runCompanyShow(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("company")

	a, err := newApp(log)
	if err != nil {
		return err
	}
	ctx, cancel := createCommandContext(log)
	defer cancel()

	details, err := companyService(ctx, a).Load(ctx)
	if err != nil && !errors.Is(err, company.ErrMissingName) {
		return handleCommandError(err, log)
	}
	printCompany(cmd.OutOrStdout(), details)
	if errors.Is(err, company.ErrMissingName) {
		return handleCommandError(err, log)
	}
	return nil
}

func runCompanyEdit(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("company")
	log.Info().Msg("Starting company details editor")

	a, err := newApp(log)
	if err != nil {
		return err
	}
	ctx, cancel := createCommandContext(log)
	defer cancel()

	p := prompt.New(os.Stdin, cmd.OutOrStdout())
	if _, err := editCompany(ctx, p, companyService(ctx, a)); err != nil {
		return handleCommandError(err, log)
	}
	return nil
}

type companyEditor interface {
	Load(ctx context.Context) (models.CompanyDetails, error)
	Save(ctx context.Context, c models.CompanyDetails) error
}

// editCompany prompts for every field with the current value as default and
// saves the result. It reports whether the details were saved.
func editCompany(ctx context.Context, p *prompt.Prompter, svc companyEditor) (bool, error) {
	current, err := svc.Load(ctx)
	if err != nil && !errors.Is(err, company.ErrMissingName) {
		return false, err
	}

	p.Println("\n" + rule)
	p.Println("ST_FAKTURA - COMPANY DETAILS")
	p.Println(rule)
	p.Println("Press Enter to keep the value in brackets.")
	p.Println()

	for {
		edited, err := askCompany(ctx, p, current)
		if errors.Is(err, prompt.ErrCancelled) {
			p.Println("\n⏭️ Company details not changed.")
			return false, nil
		}
		if err != nil {
			return false, err
		}

		if problems := company.Validate(edited); problems != nil {
			printProblems(p, problems)
			again, err := p.Confirm(ctx, "\nEdit the details again?", true)
			if err != nil || !again {
				p.Println("\n⏭️ Company details not changed.")
				return false, nil
			}
			current = edited
			continue
		}

		err = svc.Save(ctx, edited)
		if errors.Is(err, company.ErrSheetSync) {
			p.Printf("\n⚠️  Saved locally, but the company sheet was not updated: %v\n", err)
			return true, nil
		}
		if err != nil {
			return false, err
		}
		p.Println("\n✅ Company details saved.")
		return true, nil
	}
}

func askCompany(ctx context.Context, p *prompt.Prompter, c models.CompanyDetails) (models.CompanyDetails, error) {
	fields := []struct {
		label string
		dst   *string
	}{
		{"Company Name", &c.Name},
		{"Address", &c.Address},
		{"CVR", &c.CVR},
		{"Zip Code", &c.Zip},
		{"Town", &c.Town},
		{"Phone", &c.Phone},
		{"Email", &c.Email},
		{"Bank Name", &c.BankName},
		{"Bank Account (reg. nr / konto nr)", &c.BankAccount},
		{"IBAN", &c.IBAN},
		{"SWIFT", &c.SWIFT},
		{"Additional Information", &c.AdditionalInfo},
	}
	for _, f := range fields {
		v, err := p.Ask(ctx, f.label, *f.dst)
		if err != nil {
			return c, err
		}
		if isQuit(v) {
			return c, prompt.ErrCancelled
		}
		*f.dst = strings.TrimSpace(v)
	}

	def := ""
	if c.PaymentTerms > 0 {
		def = strconv.Itoa(int(c.PaymentTerms))
	}
	for {
		v, err := p.Ask(ctx, "Payment Terms (Days, empty for default)", def)
		if err != nil {
			return c, err
		}
		if v == "" {
			c.PaymentTerms = 0
			return c, nil
		}
		days, err := strconv.Atoi(v)
		if err == nil && days > 0 {
			c.PaymentTerms = models.TermsDays(days)
			return c, nil
		}
		p.Println("❌ Please enter a whole number of days greater than 0.")
	}
}

func isQuit(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "q")
}

func printCompany(w io.Writer, c models.CompanyDetails) {
	p := prompt.New(nil, w)
	terms := "default"
	if c.PaymentTerms > 0 {
		terms = strconv.Itoa(int(c.PaymentTerms)) + " days"
	}
	p.Println("\n" + rule)
	p.Println("COMPANY DETAILS")
	p.Println(rule)
	p.Printf("Company Name:    %s\n", c.Name)
	p.Printf("Address:         %s\n", c.Address)
	p.Printf("Zip / Town:      %s %s\n", c.Zip, c.Town)
	p.Printf("CVR:             %s\n", c.CVR)
	p.Printf("Phone:           %s\n", c.Phone)
	p.Printf("Email:           %s\n", c.Email)
	p.Printf("Bank:            %s\n", c.BankName)
	p.Printf("Account:         %s\n", c.BankAccount)
	p.Printf("IBAN:            %s\n", c.IBAN)
	p.Printf("SWIFT:           %s\n", c.SWIFT)
	p.Printf("Additional Info: %s\n", c.AdditionalInfo)
	p.Printf("Payment Terms:   %s\n", terms)
	p.Println(rule)
}

var _ companyEditor = (*company.Service)(nil)
var _ taskStore = (*repository.Repository)(nil)
var _ customerStore = (*repository.Repository)(nil)
