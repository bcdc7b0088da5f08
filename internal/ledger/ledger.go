// Package ledger remembers which tasks have been invoiced, keyed by a
// fingerprint of the task content.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"faktura/internal/fsutil"
	"faktura/internal/logger"
	"faktura/pkg/models"
)

const (
	// DescriptionPrefix is the number of description characters that take
	// part in the fingerprint.
	DescriptionPrefix = 120

	separator = "|"

	// TimestampLayout is the format of Entry.Date.
	TimestampLayout = "2006-01-02 15:04:05"
)

// Entry records the invoice a task was last billed on.
type Entry struct {
	InvoiceNumber int    `json:"invoice_number"`
	Date          string `json:"date"`
}

// Hit is a task found in the ledger.
type Hit struct {
	Task  models.Task
	Entry Entry
}

// Ledger is the JSON file of invoiced task fingerprints. It is advisory: a
// hit is a warning the user may override.
type Ledger struct {
	path string
	now  func() time.Time
	log  zerolog.Logger
}

// New creates a ledger backed by the file at path.
func New(path string) *Ledger {
	return &Ledger{
		path: path,
		now:  time.Now,
		log:  logger.WithComponent("ledger"),
	}
}

// Fingerprint derives the deterministic key of a task. Text fields are
// trimmed and the description is cut to DescriptionPrefix characters. The
// numeric fields use the sheet cell text when the task was read from a
// sheet, so keys written by earlier versions of the tool still match.
func Fingerprint(t models.Task) string {
	desc := []rune(strings.TrimSpace(t.Description))
	if len(desc) > DescriptionPrefix {
		desc = desc[:DescriptionPrefix]
	}

	return strings.Join(append([]string{
		strings.TrimSpace(t.Customer),
		strings.TrimSpace(t.Date),
		strings.TrimSpace(t.TaskType),
		strings.TrimSpace(t.PricingType),
		string(desc),
	}, numericFields(t)...), separator)
}

// numericFields returns minutes, price, discount and sum as key text.
func numericFields(t models.Task) []string {
	if c := t.Cells; c != nil {
		return []string{c.Minutes, c.Price, c.Discount, c.Sum}
	}
	sum := ""
	if t.Sum.Valid {
		sum = t.Sum.Decimal.String()
	}
	return []string{strconv.Itoa(t.Minutes), t.Price.String(), t.Discount.String(), sum}
}

// canonicalKey rewrites the numeric tail of a key so that "500.00" and
// "500" compare equal. Parts that are blank or not numbers are kept as is.
func canonicalKey(key string) string {
	parts := strings.Split(key, separator)
	if len(parts) < 9 {
		return key
	}
	for i := len(parts) - 4; i < len(parts); i++ {
		if d, err := decimal.NewFromString(strings.TrimSpace(parts[i])); err == nil {
			parts[i] = d.String()
		}
	}
	return strings.Join(parts, separator)
}

// Check returns the tasks that already appear in the ledger, in input order.
// A task matches on its exact key first, then on the canonical form of it.
func (l *Ledger) Check(tasks []models.Task) ([]Hit, error) {
	entries, err := l.load()
	if err != nil {
		return nil, err
	}

	canonical := make(map[string]Entry, len(entries))
	for key, e := range entries {
		ck := canonicalKey(key)
		if prev, ok := canonical[ck]; !ok || e.InvoiceNumber > prev.InvoiceNumber {
			canonical[ck] = e
		}
	}

	var hits []Hit
	for _, t := range tasks {
		key := Fingerprint(t)
		e, ok := entries[key]
		if !ok {
			e, ok = canonical[canonicalKey(key)]
		}
		if ok {
			hits = append(hits, Hit{Task: t, Entry: e})
		}
	}
	return hits, nil
}

// Record stores every task under invoice number n. Existing entries are
// overwritten so the most recent invoice wins.
func (l *Ledger) Record(tasks []models.Task, n int) error {
	const op = "Record"

	entries, err := l.load()
	if err != nil {
		// A damaged ledger must not block recording the invoice just issued.
		l.log.Warn().Err(err).Str("file", l.path).Msg("Starting a fresh ledger")
		entries = make(map[string]Entry)
	}

	stamp := l.now().Format(TimestampLayout)
	for _, t := range tasks {
		entries[Fingerprint(t)] = Entry{InvoiceNumber: n, Date: stamp}
	}

	if err := fsutil.WriteJSON(l.path, entries); err != nil {
		return fmt.Errorf("%s: failed to save ledger: %w", op, err)
	}

	l.log.Info().Int("invoice_number", n).Int("tasks", len(tasks)).Msg("Recorded invoiced tasks")
	return nil
}

func (l *Ledger) load() (map[string]Entry, error) {
	const op = "load"

	entries := make(map[string]Entry)
	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read ledger: %w", op, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%s: ledger %s is not valid JSON: %w", op, l.path, err)
	}
	return entries, nil
}
