// Package sheets reads and writes rectangular string ranges of a spreadsheet.
//
// Two backends implement Store: Service talks to Google Sheets, Workbook
// keeps the same sheets in a local .xlsx file. Ranges use A1 notation with a
// sheet prefix, for example "Kunder!A:I" or "'Company Details'!A2:L2".
package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"faktura/internal/logger"
)

// Store is the narrow spreadsheet interface the repositories depend on.
type Store interface {
	// Read returns the rows of the range. Rows may be shorter than the range.
	Read(ctx context.Context, rng string) ([][]string, error)

	// Write overwrites the cells starting at the range's top-left corner.
	Write(ctx context.Context, rng string, rows [][]string) error

	// Append adds rows after the last non-empty row of the range.
	Append(ctx context.Context, rng string, rows [][]string) error

	// EnsureHeaders creates the sheet if needed and writes headers to row 1
	// when it is empty. It reports whether headers were written.
	EnsureHeaders(ctx context.Context, sheet string, headers []string) (bool, error)
}

// Scope grants read and write access to spreadsheets.
const Scope = sheets.SpreadsheetsScope

var spreadsheetIDPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)

// Service handles Google Sheets operations
type Service struct {
	sheetsService *sheets.Service
	spreadsheetID string
	timeout       time.Duration
	log           zerolog.Logger
}

// NewSheetsService creates a Google Sheets store. ref is either a spreadsheet
// URL or a bare spreadsheet ID; client carries the credentials.
func NewSheetsService(ctx context.Context, ref string, client *http.Client, timeout time.Duration) (*Service, error) {
	const op = "NewSheetsService"

	log := logger.WithComponent("sheets")

	spreadsheetID, err := extractSpreadsheetID(ref)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to extract spreadsheet ID: %w", op, err)
	}

	log.Debug().Str("spreadsheet_id", spreadsheetID).Msg("Extracted spreadsheet ID")

	sheetsService, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create sheets service: %w", op, err)
	}

	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Service{
		sheetsService: sheetsService,
		spreadsheetID: spreadsheetID,
		timeout:       timeout,
		log:           log,
	}, nil
}

// extractSpreadsheetID extracts the spreadsheet ID from a Google Sheets URL.
// A value without slashes is taken as the ID itself.
func extractSpreadsheetID(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref != "" && !strings.Contains(ref, "/") {
		return ref, nil
	}

	matches := spreadsheetIDPattern.FindStringSubmatch(ref)
	if len(matches) < 2 {
		return "", ErrInvalidSpreadsheetURL
	}

	return matches[1], nil
}

// cellText renders an unformatted cell value. Numbers are written out in
// full so ids and phone numbers stored as numbers keep every digit.
func cellText(v interface{}) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		return x
	default:
		return fmt.Sprint(v)
	}
}

// Read returns the values of rng as strings. Numbers come back without the
// sheet's number format, so thousands separators and currency display never
// reach the parser; dates keep their formatted text.
func (s *Service) Read(ctx context.Context, rng string) ([][]string, error) {
	const op = "Read"

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.sheetsService.Spreadsheets.Values.Get(s.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).
		Do()
	if err != nil {
		return nil, newStoreError(op, rng, classify(err))
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = cellText(v)
		}
		rows = append(rows, cells)
	}

	s.log.Debug().Str("range", rng).Int("rows", len(rows)).Msg("Read range")
	return rows, nil
}

// Write overwrites rng with rows.
func (s *Service) Write(ctx context.Context, rng string, rows [][]string) error {
	const op = "Write"

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.sheetsService.Spreadsheets.Values.Update(
		s.spreadsheetID,
		rng,
		&sheets.ValueRange{Values: toValues(rows)},
	).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return newStoreError(op, rng, classify(err))
	}

	s.log.Info().Str("range", rng).Int("rows", len(rows)).Msg("Wrote range")
	return nil
}

// Append adds rows after the existing data of rng.
func (s *Service) Append(ctx context.Context, rng string, rows [][]string) error {
	const op = "Append"

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.sheetsService.Spreadsheets.Values.Append(
		s.spreadsheetID,
		rng,
		&sheets.ValueRange{Values: toValues(rows)},
	).ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return newStoreError(op, rng, classify(err))
	}

	s.log.Info().Str("range", rng).Int("rows_written", len(rows)).Msg("Appended rows")
	return nil
}

// EnsureHeaders ensures the sheet exists and has headers in row 1
func (s *Service) EnsureHeaders(ctx context.Context, sheetName string, headers []string) (bool, error) {
	const op = "EnsureHeaders"

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	spreadsheet, err := s.sheetsService.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return false, newStoreError(op, "", classify(err))
	}

	var sheetExists bool
	var sheetID int64
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties.Title == sheetName {
			sheetExists = true
			sheetID = sheet.Properties.SheetId
			break
		}
	}

	if !sheetExists {
		s.log.Info().Str("sheet", sheetName).Msg("Creating new sheet")

		batchUpdateReq := &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{
				{AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: sheetName},
				}},
			},
		}

		resp, err := s.sheetsService.Spreadsheets.BatchUpdate(s.spreadsheetID, batchUpdateReq).Context(ctx).Do()
		if err != nil {
			return false, newStoreError(op, sheetName, classify(err))
		}
		sheetID = resp.Replies[0].AddSheet.Properties.SheetId
	}

	lastCol, err := columnName(len(headers))
	if err != nil {
		return false, newStoreError(op, sheetName, err)
	}
	headerRange := A1(sheetName, "A1:"+lastCol+"1")

	resp, err := s.sheetsService.Spreadsheets.Values.Get(s.spreadsheetID, headerRange).Context(ctx).Do()
	if err != nil {
		return false, newStoreError(op, headerRange, classify(err))
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return false, nil
	}

	s.log.Info().Str("sheet", sheetName).Msg("Adding headers to sheet")

	_, err = s.sheetsService.Spreadsheets.Values.Update(
		s.spreadsheetID,
		headerRange,
		&sheets.ValueRange{Values: toValues([][]string{headers})},
	).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return false, newStoreError(op, headerRange, classify(err))
	}

	if err := s.formatHeaders(ctx, sheetID, int64(len(headers))); err != nil {
		s.log.Warn().Err(err).Msg("Failed to format headers, continuing anyway")
	}

	return true, nil
}

// formatHeaders makes the header row bold and sizes the columns
func (s *Service) formatHeaders(ctx context.Context, sheetID, columns int64) error {
	const op = "formatHeaders"

	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   columns,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat: &sheets.TextFormat{Bold: true},
						BackgroundColor: &sheets.Color{
							Red:   0.9,
							Green: 0.9,
							Blue:  0.9,
						},
					},
				},
				Fields: "userEnteredFormat(textFormat,backgroundColor)",
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   columns,
				},
			},
		},
	}

	_, err := s.sheetsService.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to format headers: %w", op, err)
	}
	return nil
}

// classify maps Google API errors onto the package's sentinel errors.
func classify(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	switch {
	case gerr.Code == http.StatusForbidden:
		return errors.Join(ErrPermissionDenied, err)
	case gerr.Code == http.StatusBadRequest && strings.Contains(gerr.Message, "Unable to parse range"):
		return errors.Join(ErrSheetNotFound, err)
	}
	return err
}

func toValues(rows [][]string) [][]interface{} {
	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		values[i] = make([]interface{}, len(row))
		for j, v := range row {
			values[i][j] = v
		}
	}
	return values
}
