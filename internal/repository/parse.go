package repository

import (
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// cell returns row[i] trimmed, or "" when the row is too short.
func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

var (
	errNotNumber      = errors.New("not a number")
	errAmbiguousGroup = errors.New("ambiguous separator, could be a thousands group or decimals")
)

// parseNumber reads a sheet number; see readNumber.
func parseNumber(s string) (decimal.Decimal, bool) {
	d, err := readNumber(s)
	return d, err == nil
}

// readNumber reads a sheet number written with either convention:
// "1234.50", "1,234.50" and the Danish "1.234,50" all give 1234.5. When
// both separators appear the last one is the decimal mark. A single
// separator followed by exactly three digits ("1.500", "2,250") cannot be
// told apart and is rejected with errAmbiguousGroup. A trailing currency
// label is ignored.
func readNumber(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	for _, suffix := range []string{"DKK", "dkk", "kr.", "kr"} {
		s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
	}
	s = strings.NewReplacer(" ", "", "\u00a0", "").Replace(s)
	if s == "" {
		return decimal.Zero, errNotNumber
	}

	dot, comma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	var ok bool
	switch {
	case dot >= 0 && comma >= 0:
		group, mark := ",", "."
		if comma > dot {
			group, mark = ".", ","
		}
		i := strings.LastIndex(s, mark)
		var whole string
		if whole, ok = ungroup(s[:i], group); !ok || strings.Contains(s[i+1:], group) {
			return decimal.Zero, errNotNumber
		}
		s = whole + "." + s[i+1:]
	case dot >= 0 || comma >= 0:
		sep := "."
		if comma >= 0 {
			sep = ","
		}
		if strings.Count(s, sep) > 1 {
			if s, ok = ungroup(s, sep); !ok {
				return decimal.Zero, errNotNumber
			}
			break
		}
		whole, frac, _ := strings.Cut(s, sep)
		if len(frac) == 3 && looksGrouped(whole) {
			return decimal.Zero, errAmbiguousGroup
		}
		s = whole + "." + frac
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errNotNumber
	}
	return d, nil
}

// ungroup removes thousands separators, requiring three digits per group.
func ungroup(s, sep string) (string, bool) {
	parts := strings.Split(s, sep)
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return "", false
		}
	}
	return strings.Join(parts, ""), true
}

// looksGrouped reports whether whole could be the leading group of a
// thousands-separated number.
func looksGrouped(whole string) bool {
	whole = strings.TrimPrefix(whole, "-")
	return len(whole) >= 1 && len(whole) <= 3 && whole[0] != '0'
}

// numberOrZero parses s and degrades to zero with a warning when the cell
// holds something that is not a number. Blank cells are zero silently.
func numberOrZero(log zerolog.Logger, s, field string, rowNum int) decimal.Decimal {
	d, err := readNumber(s)
	if err != nil && strings.TrimSpace(s) != "" {
		log.Warn().
			Err(err).
			Int("row", rowNum).
			Str("field", field).
			Str("value", s).
			Msg("Value is not a number, using 0")
	}
	return d
}

// minutesOrZero reads whole minutes; "120.0" is 120.
func minutesOrZero(log zerolog.Logger, s string, rowNum int) int {
	d := numberOrZero(log, s, "minutes", rowNum)
	return int(d.IntPart())
}

// clampMinutes turns negative minutes into zero with a warning.
func clampMinutes(log zerolog.Logger, m, rowNum int) int {
	if m >= 0 {
		return m
	}
	log.Warn().Int("row", rowNum).Int("minutes", m).Msg("Negative minutes, using 0")
	return 0
}

// clampDiscount keeps a discount percentage within 0-100 with a warning.
func clampDiscount(log zerolog.Logger, d decimal.Decimal, rowNum int) decimal.Decimal {
	clamped := decimal.Max(decimal.Zero, decimal.Min(d, hundred))
	if !clamped.Equal(d) {
		log.Warn().
			Int("row", rowNum).
			Str("discount", d.String()).
			Str("using", clamped.String()).
			Msg("Discount outside 0-100")
	}
	return clamped
}

// nullNumber parses an optional amount: blank or non-numeric cells are invalid.
func nullNumber(log zerolog.Logger, s, field string, rowNum int) decimal.NullDecimal {
	d, err := readNumber(s)
	if err != nil {
		if strings.TrimSpace(s) != "" {
			log.Warn().
				Err(err).
				Int("row", rowNum).
				Str("field", field).
				Str("value", s).
				Msg("Value is not a number, ignoring it")
		}
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}
