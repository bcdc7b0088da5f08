package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"faktura/internal/logger"
)

// Workbook is a Store backed by a local .xlsx file. Each call opens, edits
// and saves the file, so it can be edited in a spreadsheet program between
// runs.
type Workbook struct {
	path string
	log  zerolog.Logger
}

// NewWorkbook creates a workbook store for the file at path. The file is
// created on first write.
func NewWorkbook(path string) *Workbook {
	return &Workbook{
		path: path,
		log:  logger.WithComponent("workbook"),
	}
}

func (w *Workbook) open() (*excelize.File, error) {
	f, err := excelize.OpenFile(w.path)
	if errors.Is(err, os.ErrNotExist) {
		return excelize.NewFile(), nil
	}
	return f, err
}

func (w *Workbook) save(f *excelize.File) error {
	return f.SaveAs(w.path)
}

func hasSheet(f *excelize.File, sheet string) bool {
	idx, err := f.GetSheetIndex(sheet)
	return err == nil && idx >= 0
}

// Read returns the values of rng.
func (w *Workbook) Read(_ context.Context, rng string) ([][]string, error) {
	const op = "Read"

	r, err := ParseRange(rng)
	if err != nil {
		return nil, newStoreError(op, rng, err)
	}

	f, err := w.open()
	if err != nil {
		return nil, newStoreError(op, rng, err)
	}
	defer f.Close()

	if !hasSheet(f, r.Sheet) {
		return nil, newStoreError(op, rng, ErrSheetNotFound)
	}

	all, err := f.GetRows(r.Sheet)
	if err != nil {
		return nil, newStoreError(op, rng, err)
	}

	rows := r.clip(all)
	w.log.Debug().Str("range", rng).Int("rows", len(rows)).Msg("Read range")
	return rows, nil
}

// Write overwrites the cells starting at the top-left corner of rng.
func (w *Workbook) Write(_ context.Context, rng string, rows [][]string) error {
	const op = "Write"

	r, err := ParseRange(rng)
	if err != nil {
		return newStoreError(op, rng, err)
	}

	f, err := w.open()
	if err != nil {
		return newStoreError(op, rng, err)
	}
	defer f.Close()

	if err := ensureSheet(f, r.Sheet); err != nil {
		return newStoreError(op, rng, err)
	}
	if err := setRows(f, r.Sheet, r.StartCol, r.FirstRow(), rows); err != nil {
		return newStoreError(op, rng, err)
	}
	if err := w.save(f); err != nil {
		return newStoreError(op, rng, err)
	}

	w.log.Info().Str("range", rng).Int("rows", len(rows)).Msg("Wrote range")
	return nil
}

// Append adds rows below the last non-empty row of the sheet.
func (w *Workbook) Append(_ context.Context, rng string, rows [][]string) error {
	const op = "Append"

	r, err := ParseRange(rng)
	if err != nil {
		return newStoreError(op, rng, err)
	}

	f, err := w.open()
	if err != nil {
		return newStoreError(op, rng, err)
	}
	defer f.Close()

	if err := ensureSheet(f, r.Sheet); err != nil {
		return newStoreError(op, rng, err)
	}

	existing, err := f.GetRows(r.Sheet)
	if err != nil {
		return newStoreError(op, rng, err)
	}
	next := len(existing) + 1
	if next < r.FirstRow() {
		next = r.FirstRow()
	}

	if err := setRows(f, r.Sheet, r.StartCol, next, rows); err != nil {
		return newStoreError(op, rng, err)
	}
	if err := w.save(f); err != nil {
		return newStoreError(op, rng, err)
	}

	w.log.Info().Str("range", rng).Int("rows_written", len(rows)).Int("first_row", next).Msg("Appended rows")
	return nil
}

// EnsureHeaders creates the sheet if needed and writes bold headers to row 1
// when it is empty.
func (w *Workbook) EnsureHeaders(_ context.Context, sheet string, headers []string) (bool, error) {
	const op = "EnsureHeaders"

	f, err := w.open()
	if err != nil {
		return false, newStoreError(op, sheet, err)
	}
	defer f.Close()

	if err := ensureSheet(f, sheet); err != nil {
		return false, newStoreError(op, sheet, err)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return false, newStoreError(op, sheet, err)
	}
	if len(rows) > 0 && !isBlank(rows[0]) {
		return false, nil
	}

	w.log.Info().Str("sheet", sheet).Msg("Adding headers to sheet")

	if err := setRows(f, sheet, 1, 1, [][]string{headers}); err != nil {
		return false, newStoreError(op, sheet, err)
	}

	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"E6E6E6"}, Pattern: 1},
	})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		err = f.SetCellStyle(sheet, "A1", last, style)
	}
	if err != nil {
		w.log.Warn().Err(err).Msg("Failed to format headers, continuing anyway")
	}

	if err := w.save(f); err != nil {
		return false, newStoreError(op, sheet, err)
	}
	return true, nil
}

func ensureSheet(f *excelize.File, sheet string) error {
	if hasSheet(f, sheet) {
		return nil
	}
	// A fresh workbook starts with an unused default sheet; reuse it.
	if sheets := f.GetSheetList(); len(sheets) == 1 && sheets[0] == "Sheet1" {
		if rows, err := f.GetRows("Sheet1"); err == nil && len(rows) == 0 {
			return f.SetSheetName("Sheet1", sheet)
		}
	}
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %q: %w", sheet, err)
	}
	return nil
}

func setRows(f *excelize.File, sheet string, col, row int, rows [][]string) error {
	for i, values := range rows {
		cell, err := excelize.CoordinatesToCellName(col, row+i)
		if err != nil {
			return err
		}
		cells := make([]interface{}, len(values))
		for j, v := range values {
			cells[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return err
		}
	}
	return nil
}
