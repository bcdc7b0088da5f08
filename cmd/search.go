package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"faktura/internal/logger"
	"faktura/internal/prompt"
	"faktura/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search text in archived invoice PDFs",
	Long: `Search the PDFs in ARCHIVE_DIR and INVOICES_DIR for a word, phrase or
regular expression and print the matching pages with highlighted snippets.

Text is read from the PDF itself. With --ocr, pages without a text layer are
sent to Google Cloud Vision.

Without a query the command asks for one repeatedly; enter 'q' or an empty
line to stop.`,
	Example: `  # Find an invoice number
  faktura search 785

  # Regular expression, case sensitive, full page text
  faktura search --regex --case --full 'Faktura #7[0-9]{2}'

  # Include scanned documents
  faktura search --ocr kreditnota`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().Bool("regex", false, "Treat the query as a regular expression")
	searchCmd.Flags().Bool("case", false, "Match case sensitively")
	searchCmd.Flags().Bool("full", false, "Print the whole text of matching pages")
	searchCmd.Flags().Bool("no-links", false, "Print plain file paths instead of terminal hyperlinks")
	searchCmd.Flags().Bool("ocr", false, "Use Google Cloud Vision for pages without text")
}

type searchOptions struct {
	regex bool
	cased bool
	full  bool
	links bool
}

func runSearch(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("search")

	regex, _ := cmd.Flags().GetBool("regex")
	cased, _ := cmd.Flags().GetBool("case")
	full, _ := cmd.Flags().GetBool("full")
	noLinks, _ := cmd.Flags().GetBool("no-links")
	withOCR, _ := cmd.Flags().GetBool("ocr")
	opts := searchOptions{regex: regex, cased: cased, full: full, links: !noLinks}

	a, err := newApp(log)
	if err != nil {
		return err
	}
	ctx, cancel := createCommandContext(log)
	defer cancel()

	extractor, closeFn, err := a.extractor(ctx, withOCR)
	if err != nil {
		return handleCommandError(err, log)
	}
	defer closeFn()

	searcher := search.NewSearcher(extractor, a.cfg.ArchiveDir, a.cfg.InvoicesDir)
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		_, err := runQuery(ctx, out, searcher, args[0], opts, log)
		return err
	}

	p := prompt.New(os.Stdin, out)
	p.Printf("Searching in: %s\n", strings.Join(searcher.Dirs(), ", "))
	for {
		query, err := p.Line(ctx, "\nSearch for (empty or 'q' to quit): ")
		if errors.Is(err, prompt.ErrCancelled) || query == "" || isQuit(query) {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := runQuery(ctx, out, searcher, query, opts, log); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			p.Printf("❌ %v\n", err)
		}
	}
}

// runQuery runs one search and prints the results. It returns the number of
// matching pages.
func runQuery(ctx context.Context, out io.Writer, searcher *search.Searcher, query string, opts searchOptions, log zerolog.Logger) (int, error) {
	re, err := search.Compile(query, opts.regex, opts.cased)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	hits, err := searcher.Search(ctx, re, opts.full)
	if err != nil {
		return 0, fmt.Errorf("search failed: %w", err)
	}
	total := search.Print(out, hits, opts.links)

	log.Info().
		Str("query", query).
		Int("files", len(hits)).
		Int("pages", total).
		Dur("elapsed", time.Since(start)).
		Msg("Search finished")
	return total, nil
}
