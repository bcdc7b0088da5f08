// Package search finds text in archived invoice PDFs.
//
// Every PDF in the configured folders is read page by page through an
// ocr.TextExtractor. Matching pages are reported with short highlighted
// snippets, or with the whole page when full output is requested.
package search

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"faktura/internal/logger"
	"faktura/internal/ocr"
)

// Terminal escapes
const (
	HighlightStart = "\x1b[43;30m" // yellow background, black text
	HighlightEnd   = "\x1b[0m"

	osc8Start = "\x1b]8;;%s\x1b\\"
	osc8End   = "\x1b]8;;\x1b\\"
)

const (
	maxSnippets    = 3
	snippetContext = 40
)

// Compile builds the search pattern. A literal query is escaped; matching
// ignores case unless caseSensitive is set.
func Compile(query string, regex, caseSensitive bool) (*regexp.Regexp, error) {
	expr := query
	if !regex {
		expr = regexp.QuoteMeta(query)
	}
	if !caseSensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", query, err)
	}
	return re, nil
}

// PageHit is one matching page.
type PageHit struct {
	Page     int
	Snippets []string
}

// FileHit is a PDF with at least one matching page.
type FileHit struct {
	Path  string
	Pages []PageHit
}

// Searcher scans folders of PDFs.
type Searcher struct {
	dirs      []string
	extractor ocr.TextExtractor
	log       zerolog.Logger
}

// NewSearcher scans dirs in order. Missing folders are skipped.
func NewSearcher(extractor ocr.TextExtractor, dirs ...string) *Searcher {
	return &Searcher{
		dirs:      dirs,
		extractor: extractor,
		log:       logger.WithComponent("search"),
	}
}

// Dirs returns the folders the searcher scans.
func (s *Searcher) Dirs() []string {
	return s.dirs
}

// Files lists the PDFs of every folder, each folder sorted by name. A file
// reachable through two folders is listed once.
func (s *Searcher) Files() ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, dir := range s.dirs {
		entries, err := os.ReadDir(dir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
				continue
			}
			path := filepath.Join(dir, e.Name())
			abs, err := filepath.Abs(path)
			if err != nil {
				abs = path
			}
			if seen[abs] {
				continue
			}
			seen[abs] = true
			files = append(files, abs)
		}
	}
	return files, nil
}

// Search returns the files with pages matching re. Unreadable files are
// logged and skipped.
func (s *Searcher) Search(ctx context.Context, re *regexp.Regexp, full bool) ([]FileHit, error) {
	files, err := s.Files()
	if err != nil {
		return nil, err
	}

	var hits []FileHit
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return hits, err
		}

		pages, err := s.extractor.PageTexts(ctx, path)
		if err != nil {
			s.log.Warn().Err(err).Str("file", path).Msg("Skipping unreadable PDF")
			continue
		}

		hit := FileHit{Path: path}
		for i, text := range pages {
			if text == "" || !re.MatchString(text) {
				continue
			}
			var snippets []string
			if full {
				snippets = []string{HighlightAll(text, re)}
			} else {
				snippets = Snippets(text, re)
			}
			hit.Pages = append(hit.Pages, PageHit{Page: i + 1, Snippets: snippets})
		}
		if len(hit.Pages) > 0 {
			hits = append(hits, hit)
		}
	}

	s.log.Debug().Int("files", len(files)).Int("hits", len(hits)).Str("pattern", re.String()).Msg("Search complete")
	return hits, nil
}

// Snippets returns up to three single-line excerpts around the first
// matches, each with 40 characters of context on both sides.
func Snippets(text string, re *regexp.Regexp) []string {
	var out []string
	for _, m := range re.FindAllStringIndex(text, maxSnippets) {
		start, end := m[0], m[1]
		left := runesBack(text, start, snippetContext)
		right := runesForward(text, end, snippetContext)
		seg := text[left:start] + HighlightStart + text[start:end] + HighlightEnd + text[end:right]
		out = append(out, flatten(seg))
	}
	return out
}

// HighlightAll marks every match of re in text and flattens it to one line.
func HighlightAll(text string, re *regexp.Regexp) string {
	return flatten(re.ReplaceAllStringFunc(text, func(m string) string {
		return HighlightStart + m + HighlightEnd
	}))
}

// Hyperlink wraps path in an OSC 8 terminal link to its file URI.
func Hyperlink(path string, enable bool) string {
	if !enable {
		return path
	}
	uri := filepath.ToSlash(path)
	if !strings.HasPrefix(uri, "file://") {
		if !strings.HasPrefix(uri, "/") {
			uri = "/" + uri
		}
		uri = "file://" + uri
	}
	return fmt.Sprintf(osc8Start, uri) + path + osc8End
}

// Print writes hits the way the search command shows them and returns the
// number of matching pages.
func Print(w io.Writer, hits []FileHit, links bool) int {
	total := 0
	for _, h := range hits {
		fmt.Fprintf(w, "\n==> %s\n", Hyperlink(h.Path, links))
		for _, p := range h.Pages {
			total++
			if len(p.Snippets) == 0 {
				fmt.Fprintf(w, "  Page %d: (match)\n", p.Page)
				continue
			}
			for _, snip := range p.Snippets {
				fmt.Fprintf(w, "  Page %d: %s\n", p.Page, snip)
			}
		}
	}
	if total == 0 {
		fmt.Fprintln(w, "No matches found.")
	} else {
		fmt.Fprintf(w, "\nTotal matching pages: %d\n", total)
	}
	return total
}

func flatten(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}

// runesBack returns the byte offset n runes before i.
func runesBack(s string, i, n int) int {
	for ; n > 0 && i > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
	}
	return i
}

// runesForward returns the byte offset n runes after i.
func runesForward(s string, i, n int) int {
	for ; n > 0 && i < len(s); n-- {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return i
}
