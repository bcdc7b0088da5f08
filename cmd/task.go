package cmd

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"faktura/internal/logger"
	"faktura/internal/prompt"
	"faktura/internal/repository"
	"faktura/pkg/models"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage billable tasks",
	Long: `Manage the tasks sheet.

Running the command without a subcommand registers a new task.`,
	Args: cobra.NoArgs,
	RunE: runTaskCreate,
}

var taskCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a billable task for a customer",
	Long: `Register a task interactively: pick the customer and task type (or
create a new type), choose hourly or fixed pricing, describe the work and
enter the time spent, unit price and discount.

The sum is computed before saving: hourly tasks bill minutes/60 times the
rate, fixed tasks their price, both less the discount. The task is dated
today.`,
	Example: `  faktura task create`,
	Args:    cobra.NoArgs,
	RunE:    runTaskCreate,
}

func init() {
	rootCmd.AddCommand(taskCmd)
	taskCmd.AddCommand(taskCreateCmd)
}

func runTaskCreate(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("task")
	log.Info().Msg("Starting task registration")

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

	p := prompt.New(os.Stdin, cmd.OutOrStdout())
	if _, err := createTask(ctx, p, repo, time.Now()); err != nil {
		return handleCommandError(err, log)
	}
	return nil
}

type taskStore interface {
	Customers(ctx context.Context) ([]models.Customer, error)
	TaskTypes(ctx context.Context) ([]string, error)
	AddTaskType(ctx context.Context, name string) (bool, error)
	AddTask(ctx context.Context, t models.Task) error
}

// createTask collects a task and saves it after confirmation. It reports
// whether a task was added.
func createTask(ctx context.Context, p *prompt.Prompter, repo taskStore, today time.Time) (bool, error) {
	p.Println("\n" + rule)
	p.Println("ST_FAKTURA - NEW TASK CREATION")
	p.Println(rule)

	t, err := askTask(ctx, p, repo, today)
	if errors.Is(err, prompt.ErrCancelled) {
		p.Println("\n⏭️ Task creation cancelled.")
		return false, nil
	}
	if err != nil {
		return false, err
	}

	p.Println("\n" + rule)
	p.Println("TASK INFORMATION SUMMARY")
	p.Println(rule)
	p.Printf("Date:             %s\n", t.Date)
	p.Printf("Customer:         %s\n", t.Customer)
	p.Printf("Task Type:        %s\n", t.TaskType)
	p.Printf("Pricing Type:     %s\n", t.PricingType)
	p.Printf("Description:      %s\n", t.Description)
	p.Printf("Time (Minutes):   %d\n", t.Minutes)
	p.Printf("Price:            %s\n", t.Price.StringFixed(2))
	p.Printf("Discount %%:       %s\n", t.Discount.String())
	p.Printf("Sum:              %s DKK\n", t.Sum.Decimal.StringFixed(2))
	p.Println(rule)

	save, err := p.Confirm(ctx, "\nDo you want to save this task?", false)
	if err != nil || !save {
		p.Println("\n⏭️ Task creation cancelled.")
		return false, nil
	}

	if err := repo.AddTask(ctx, t); err != nil {
		if printProblems(p, err) {
			return false, nil
		}
		p.Println("\n❌ Failed to add task.")
		return false, err
	}

	p.Println("\n✅ Task added successfully!")
	p.Printf("Customer: %s\n", t.Customer)
	p.Printf("Task Type: %s\n", t.TaskType)
	p.Printf("Time: %d minutes\n", t.Minutes)
	return true, nil
}

func askTask(ctx context.Context, p *prompt.Prompter, repo taskStore, today time.Time) (models.Task, error) {
	var t models.Task

	p.Println("\nStep 1: Select Customer")
	customer, err := chooseCustomer(ctx, p, repo)
	if err != nil {
		return t, err
	}

	p.Println("\nStep 2: Select Task Type")
	taskType, err := chooseTaskType(ctx, p, repo)
	if err != nil {
		return t, err
	}

	p.Println("\nStep 3: Pricing Type")
	p.Printf(" 1. %s (minutes x hourly rate)\n", models.PricingHourly)
	p.Printf(" 2. %s\n", models.PricingFixed)
	pricing, err := p.Choose(ctx, "Select pricing type", 2)
	if err != nil {
		return t, err
	}

	p.Println("\nStep 4: Task Description")
	description, err := p.Required(ctx, "Enter task description", "")
	if err != nil {
		return t, err
	}

	p.Println("\nStep 5: Task Time")
	minutes, err := p.Int(ctx, "Enter task time in minutes", 1)
	if err != nil {
		return t, err
	}

	t = models.Task{
		Date:        today.Format(models.TaskDateLayout),
		CustomerID:  customer.ID,
		Customer:    customer.Name,
		TaskType:    taskType,
		PricingType: models.PricingHourly,
		Description: description,
		Minutes:     minutes,
	}

	p.Println("\nStep 6: Price and Discount")
	if pricing == 1 {
		t.PricingType = models.PricingFixed
		if t.Price, err = askAmount(ctx, p, "Fixed price (DKK)", decimal.Zero, false); err != nil {
			return t, err
		}
	} else {
		if t.Price, err = askAmount(ctx, p, "Hourly rate (DKK)", customer.HourlyRate, false); err != nil {
			return t, err
		}
	}
	if t.Discount, err = askAmount(ctx, p, "Discount %", decimal.Zero, true); err != nil {
		return t, err
	}

	t.Sum = decimal.NewNullDecimal(repository.TaskSum(t.PricingType, t.Minutes, t.Price, t.Price, t.Discount))
	return t, nil
}

// askAmount asks for a non-negative amount; percent caps it at 100.
func askAmount(ctx context.Context, p *prompt.Prompter, label string, def decimal.Decimal, percent bool) (decimal.Decimal, error) {
	for {
		v, err := p.Decimal(ctx, label, def)
		if err != nil {
			return decimal.Zero, err
		}
		switch {
		case v.IsNegative():
			p.Println("❌ The amount must not be negative.")
		case percent && v.GreaterThan(decimal.NewFromInt(100)):
			p.Println("❌ Discount must be between 0 and 100.")
		default:
			return v, nil
		}
	}
}

func chooseCustomer(ctx context.Context, p *prompt.Prompter, repo taskStore) (models.Customer, error) {
	customers, err := repo.Customers(ctx)
	if err != nil {
		return models.Customer{}, err
	}
	if len(customers) == 0 {
		p.Println("❌ No customers available. Please add customers first using 'faktura customer create'")
		return models.Customer{}, prompt.ErrCancelled
	}

	p.Println("\n" + rule)
	p.Println("AVAILABLE CUSTOMERS")
	p.Println(rule)
	for i, c := range customers {
		p.Printf("%2d. %s (ID: %s)\n", i+1, c.Name, c.ID)
		if c.Town != "" {
			p.Printf("     %s\n", c.Town)
		}
	}
	p.Println(rule)

	i, err := p.Choose(ctx, "\nSelect customer", len(customers))
	if err != nil {
		return models.Customer{}, err
	}
	p.Printf("\n✅ Selected: %s\n", customers[i].Name)
	return customers[i], nil
}

// chooseTaskType offers the existing types plus an entry that creates a new
// one.
func chooseTaskType(ctx context.Context, p *prompt.Prompter, repo taskStore) (string, error) {
	types, err := repo.TaskTypes(ctx)
	if err != nil {
		return "", err
	}

	p.Println("\n" + rule)
	p.Println("AVAILABLE TASK TYPES")
	p.Println(rule)
	for i, name := range types {
		p.Printf("%2d. %s\n", i+1, name)
	}
	p.Printf("%2d. [CREATE NEW TASK TYPE]\n", len(types)+1)
	p.Println(rule)

	i, err := p.Choose(ctx, "\nSelect task type", len(types)+1)
	if err != nil {
		return "", err
	}
	if i < len(types) {
		p.Printf("\n✅ Selected: %s\n", types[i])
		return types[i], nil
	}

	p.Println("\n" + rule)
	p.Println("CREATE NEW TASK TYPE")
	p.Println(rule)
	for {
		name, err := p.Required(ctx, "Enter new task type name", "")
		if err != nil {
			return "", err
		}
		add, err := p.Confirm(ctx, "Add this task type?", true)
		if err != nil {
			return "", err
		}
		if !add {
			continue
		}
		created, err := repo.AddTaskType(ctx, name)
		if err != nil {
			return "", err
		}
		if created {
			p.Printf("\n✅ Task type '%s' created successfully!\n", name)
		} else {
			p.Printf("\nTask type '%s' already exists; using it.\n", name)
		}
		return name, nil
	}
}

const rule = "============================================================"
