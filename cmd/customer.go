package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"faktura/internal/logger"
	"faktura/internal/prompt"
	"faktura/internal/repository"
	"faktura/pkg/models"
)

var customerCmd = &cobra.Command{
	Use:   "customer",
	Short: "Manage customers",
	Long: `Manage the customers sheet.

Running the command without a subcommand registers a new customer.`,
	Args: cobra.NoArgs,
	RunE: runCustomerCreate,
}

var customerCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a new customer",
	Long: `Register a new customer interactively.

All fields are required, the email must look like an address, the hourly
rate must be greater than 0 and the customer ID must be unused. Every
problem is reported at once before anything is written.`,
	Example: `  faktura customer create`,
	Args:    cobra.NoArgs,
	RunE:    runCustomerCreate,
}

func init() {
	rootCmd.AddCommand(customerCmd)
	customerCmd.AddCommand(customerCreateCmd)
}

func runCustomerCreate(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("customer")
	log.Info().Msg("Starting customer registration")

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
	rate, _ := decimal.NewFromString(a.cfg.DefaultHourlyRate)

	p := prompt.New(os.Stdin, cmd.OutOrStdout())
	if _, err := createCustomer(ctx, p, repo, rate); err != nil {
		return handleCommandError(err, log)
	}
	return nil
}

type customerStore interface {
	Customers(ctx context.Context) ([]models.Customer, error)
	AddCustomer(ctx context.Context, c models.Customer) error
}

// createCustomer collects a customer and saves it after confirmation. It
// reports whether a customer was added.
func createCustomer(ctx context.Context, p *prompt.Prompter, repo customerStore, defaultRate decimal.Decimal) (bool, error) {
	log := logger.WithComponent("customer")

	p.Println("\n" + banner)
	p.Println("ST_FAKTURA - NEW CUSTOMER REGISTRATION")
	p.Println(banner)
	p.Println("Please enter the customer information:")
	p.Println()

	c, err := askCustomer(ctx, p, defaultRate)
	if errors.Is(err, prompt.ErrCancelled) {
		p.Println("\n⏭️ Customer creation cancelled.")
		return false, nil
	}
	if err != nil {
		return false, err
	}

	p.Println("\n" + banner)
	p.Println("CUSTOMER INFORMATION SUMMARY")
	p.Println(banner)
	p.Printf("Customer ID:      %s\n", c.ID)
	p.Printf("Company Name:     %s\n", c.Name)
	p.Printf("Company Address:  %s\n", c.Address)
	p.Printf("Company CVR:      %s\n", c.CVR)
	p.Printf("Company Zip:      %s\n", c.Zip)
	p.Printf("Company Town:     %s\n", c.Town)
	p.Printf("Company Phone:    %s\n", c.Phone)
	p.Printf("Company Email:    %s\n", c.Email)
	p.Printf("Hourly Rate:      %s DKK\n", c.HourlyRate.StringFixed(2))
	p.Println(banner)

	save, err := p.Confirm(ctx, "\nDo you want to save this customer?", false)
	if err != nil || !save {
		p.Println("\n⏭️ Customer creation cancelled.")
		return false, nil
	}

	if err := repo.AddCustomer(ctx, c); err != nil {
		if printProblems(p, err) {
			log.Warn().Int("problems", len(multierr.Errors(err))).Msg("Customer rejected")
			return false, nil
		}
		p.Println("\n❌ Failed to add customer.")
		return false, err
	}

	p.Printf("\n✅ Customer '%s' added successfully!\n", c.Name)
	return true, nil
}

func askCustomer(ctx context.Context, p *prompt.Prompter, defaultRate decimal.Decimal) (models.Customer, error) {
	var c models.Customer
	fields := []struct {
		label string
		dst   *string
	}{
		{"Customer ID", &c.ID},
		{"Company Name", &c.Name},
		{"Company Address", &c.Address},
		{"Company CVR", &c.CVR},
		{"Company Zip Code", &c.Zip},
		{"Company Town", &c.Town},
		{"Company Phone", &c.Phone},
		{"Company Email", &c.Email},
	}
	for _, f := range fields {
		v, err := p.Required(ctx, f.label, "")
		if err != nil {
			return c, err
		}
		*f.dst = v
	}

	for {
		rate, err := p.Decimal(ctx, "Hourly Rate (DKK)", defaultRate)
		if err != nil {
			return c, err
		}
		if rate.IsPositive() {
			c.HourlyRate = rate
			return c, nil
		}
		p.Println("❌ Hourly rate must be greater than 0.")
	}
}

// printProblems lists validation problems. It reports false when err is not
// a validation failure.
func printProblems(p *prompt.Prompter, err error) bool {
	validation := []error{
		repository.ErrRequiredField,
		repository.ErrInvalidEmail,
		repository.ErrDuplicateCustomerID,
		repository.ErrInvalidRate,
		repository.ErrInvalidMinutes,
		repository.ErrInvalidDiscount,
	}
	isValidation := false
	for _, target := range validation {
		if errors.Is(err, target) {
			isValidation = true
			break
		}
	}
	if !isValidation {
		return false
	}

	p.Println("\n❌ Please correct the following:")
	for _, e := range multierr.Errors(err) {
		p.Printf("   - %v\n", e)
	}
	return true
}

const banner = "=================================================="
