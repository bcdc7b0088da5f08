package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"faktura/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "faktura",
	Short: "Faktura - invoicing for a small Danish consultancy",
	Long: `Faktura registers customers and billable tasks in a Google Sheets
spreadsheet (or a local workbook), turns selected tasks into numbered PDF
invoices or credit memos with 25% VAT, and emails them to the customer and
the bookkeeper.

Run without arguments to open the interactive launcher.`,
	Version: version,
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("Launcher started")

		runLauncher(os.Stdin, cmd.OutOrStdout())
	},
}

// launcherItem is one workflow offered by the launcher.
type launcherItem struct {
	key  string
	args []string
	desc string
}

var launcherItems = []launcherItem{
	{"1", []string{"task", "create"}, "Create a new task"},
	{"2", []string{"invoice"}, "Create and send an invoice"},
	{"3", []string{"customer", "create"}, "Create a new customer"},
	{"4", []string{"search"}, "Search existing invoice PDFs"},
	{"5", []string{"company", "edit"}, "Edit company details"},
}

// runLauncher shows the menu until the user quits. Each workflow runs as a
// child process sharing the terminal; extra words after the choice are
// passed on, e.g. "2 --preview".
func runLauncher(in io.Reader, out io.Writer) {
	log := logger.WithComponent("launcher")
	reader := bufio.NewReader(in)

	exe, err := os.Executable()
	if err != nil {
		log.Error().Err(err).Msg("Cannot locate executable")
		fmt.Fprintf(out, "❌ Cannot start workflows: %v\n", err)
		return
	}

	for {
		printLauncherMenu(out)
		fmt.Fprint(out, "Select an option (e.g., 2 or '2 --preview') or 'q' to quit: ")

		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(out, "\nExiting launcher.")
			return
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch strings.ToLower(fields[0]) {
		case "q", "quit", "exit":
			fmt.Fprintln(out, "Goodbye.")
			return
		}

		item, ok := findLauncherItem(fields[0])
		if !ok {
			fmt.Fprintf(out, "Unknown option: %s\n", fields[0])
			continue
		}

		args := append(append([]string(nil), item.args...), fields[1:]...)
		fmt.Fprintf(out, "\n--- Running: faktura %s ---\n\n", strings.Join(args, " "))
		if err := runChild(exe, args); err != nil {
			log.Warn().Err(err).Strs("args", args).Msg("Workflow ended with an error")
		}

		fmt.Fprint(out, "\nPress Enter to return to menu...")
		if _, err := reader.ReadString('\n'); err != nil {
			fmt.Fprintln(out)
			return
		}
	}
}

func printLauncherMenu(out io.Writer) {
	fmt.Fprintln(out, "\nST_FAKTURA LAUNCHER")
	fmt.Fprintln(out, strings.Repeat("=", 60))
	for _, item := range launcherItems {
		fmt.Fprintf(out, " %s. %-25s - %s\n", item.key, strings.Join(item.args, " "), item.desc)
	}
	fmt.Fprintln(out, " q. Quit")
	fmt.Fprintln(out, strings.Repeat("=", 60))
}

func findLauncherItem(key string) (launcherItem, bool) {
	for _, item := range launcherItems {
		if item.key == key {
			return item, true
		}
	}
	return launcherItem{}, false
}

// runChild runs a workflow in the foreground. Interrupts reach the child
// and return to the menu instead of ending the launcher.
func runChild(exe string, args []string) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	defer signal.Stop(sigChan)

	child := exec.Command(exe, args...)
	child.Stdin = os.Stdin
	child.Stdout = os.Stdout
	child.Stderr = os.Stderr
	return child.Run()
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
}
