package ledger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"faktura/pkg/models"
)

func task(desc string, minutes int) models.Task {
	return models.Task{
		Date:        "2025-09-29",
		Customer:    "Acme ApS",
		TaskType:    "Support",
		PricingType: models.PricingHourly,
		Description: desc,
		Minutes:     minutes,
		Price:       decimal.Zero,
		Discount:    decimal.Zero,
	}
}

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l := New(filepath.Join(t.TempDir(), "invoiced_tasks.json"))
	l.now = func() time.Time { return time.Date(2025, 9, 29, 14, 30, 5, 0, time.UTC) }
	return l
}

func TestFingerprintIsDeterministic(t *testing.T) {
	a := task("Printer setup", 60)
	b := task("  Printer setup ", 60)
	b.Customer = " Acme ApS"

	assert.Equal(t, Fingerprint(a), Fingerprint(b))
	assert.NotEqual(t, Fingerprint(a), Fingerprint(task("Printer setup", 61)))
	assert.Equal(t, "Acme ApS|2025-09-29|Support|Timepris|Printer setup|60|0|0|", Fingerprint(a))
}

func TestFingerprintNormalisesNumbers(t *testing.T) {
	a := task("x", 60)
	a.Price = decimal.RequireFromString("180.0")
	b := task("x", 60)
	b.Price = decimal.RequireFromString("180")

	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprintUsesCellText(t *testing.T) {
	a := task("Fix printer", 120)
	a.Cells = &models.TaskCells{Minutes: "120", Price: "500.00", Sum: "1000.00"}

	assert.Equal(t, "Acme ApS|2025-09-29|Support|Timepris|Fix printer|120|500.00||1000.00", Fingerprint(a))
}

func TestFingerprintUsesDescriptionPrefix(t *testing.T) {
	prefix := strings.Repeat("å", DescriptionPrefix)

	assert.Equal(t,
		Fingerprint(task(prefix+" first tail", 30)),
		Fingerprint(task(prefix+" another tail", 30)))
}

func TestCheckAndRecordRoundTrip(t *testing.T) {
	l := newTestLedger(t)
	tasks := []models.Task{task("a", 30), task("b", 45)}

	hits, err := l.Check(tasks)
	require.NoError(t, err)
	assert.Empty(t, hits)

	require.NoError(t, l.Record(tasks, 900))

	hits, err = l.Check(append(tasks, task("c", 15)))
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.Equal(t, 900, h.Entry.InvoiceNumber)
		assert.Equal(t, "2025-09-29 14:30:05", h.Entry.Date)
	}
}

func TestRecordMostRecentWins(t *testing.T) {
	l := newTestLedger(t)
	tasks := []models.Task{task("a", 30)}

	require.NoError(t, l.Record(tasks, 900))
	require.NoError(t, l.Record(tasks, 901))

	hits, err := l.Check(tasks)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 901, hits[0].Entry.InvoiceNumber)
}

func TestCorruptLedger(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, os.WriteFile(l.path, []byte("{broken"), 0o644))

	_, err := l.Check([]models.Task{task("a", 30)})
	assert.Error(t, err)

	require.NoError(t, l.Record([]models.Task{task("a", 30)}, 902))
	hits, err := l.Check([]models.Task{task("a", 30)})
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

// legacyLedger is invoiced_tasks.json as the earlier tool wrote it.
const legacyLedger = `{
  "Acme|2025-09-01|Support|Timepris|Fix printer|120|500.00||1000.00": {
    "invoice_number": 785,
    "date": "2025-09-02 09:15:00"
  },
  "Acme|2025-09-03|Support|Timepris|Skærm|abc|500.00||": {
    "invoice_number": 786,
    "date": "2025-09-04 10:00:00"
  }
}`

func TestCheckReadsLegacyLedger(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, os.WriteFile(l.path, []byte(legacyLedger), 0o644))

	cells := func(minutes, price, discount, sum string) models.TaskCells {
		return models.TaskCells{Minutes: minutes, Price: price, Discount: discount, Sum: sum}
	}
	legacy := func(date, desc string, c models.TaskCells) models.Task {
		return models.Task{
			Date:        date,
			Customer:    "Acme",
			TaskType:    "Support",
			PricingType: models.PricingHourly,
			Description: desc,
			Cells:       &c,
		}
	}

	tests := []struct {
		name   string
		task   models.Task
		number int
	}{
		{"same cell text", legacy("2025-09-01", "Fix printer", cells("120", "500.00", "", "1000.00")), 785},
		{"unformatted numbers", legacy("2025-09-01", "Fix printer", cells("120", "500", "", "1000")), 785},
		{"text cell kept", legacy("2025-09-03", "Skærm", cells("abc", "500", "", "")), 786},
		{"blank is not zero", legacy("2025-09-01", "Fix printer", cells("120", "500", "0", "1000")), 0},
		{"other minutes", legacy("2025-09-01", "Fix printer", cells("90", "500.00", "", "1000.00")), 0},
		{"text is not blank", legacy("2025-09-03", "Skærm", cells("", "500", "", "")), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits, err := l.Check([]models.Task{tt.task})
			require.NoError(t, err)
			if tt.number == 0 {
				assert.Empty(t, hits)
				return
			}
			require.Len(t, hits, 1)
			assert.Equal(t, tt.number, hits[0].Entry.InvoiceNumber)
		})
	}
}

func TestRecordKeepsLegacyEntries(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, os.WriteFile(l.path, []byte(legacyLedger), 0o644))

	fresh := task("New work", 30)
	require.NoError(t, l.Record([]models.Task{fresh}, 787))

	entries, err := l.load()
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	assert.Equal(t, 785, entries["Acme|2025-09-01|Support|Timepris|Fix printer|120|500.00||1000.00"].InvoiceNumber)
	assert.Equal(t, Entry{InvoiceNumber: 787, Date: "2025-09-29 14:30:05"}, entries[Fingerprint(fresh)])
}

func TestCanonicalKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"A|d|t|p|desc|120.0|500.00||1000.50", "A|d|t|p|desc|120|500||1000.5"},
		{"A|d|t|p|a|b|120|abc| 0 |", "A|d|t|p|a|b|120|abc|0|"},
		{"short|key", "short|key"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, canonicalKey(tt.in))
	}
}
