package parsers

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"github.com/xuri/excelize/v2"
)

// DateLayouts are tried in order before falling back to an Excel serial number
var DateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02/01/2006",
	"2/1/2006",
	"02/01/2006 15:04:05",
	"01-02-06",
	"02-01-2006",
}

// Excel serial day numbers accepted as dates (1900-01-01 to 9999-12-31)
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465
)

// ParseDate parses a settlement or ledger date cell
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date is empty")
	}

	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	serial, err := cast.ToFloat64E(s)
	if err == nil && serial >= minExcelSerial && serial <= maxExcelSerial {
		return excelize.ExcelDateToTime(serial, false)
	}

	return time.Time{}, fmt.Errorf("unable to parse date '%s'", s)
}

// ParseAmount parses a money cell. An empty cell is zero.
//
// Currency symbols and spaces are removed and a value in parentheses is
// negative. When both '.' and ',' appear the last one is the decimal
// separator. A single separator followed by exactly three digits is read
// as a thousands separator, as is any separator that repeats.
func ParseAmount(s string) (decimal.Decimal, error) {
	original := s
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	s = strings.NewReplacer("$", "", "COP", "", " ", "", "\u00a0", "").Replace(s)
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = s[1:]
	}
	if s == "" {
		return decimal.Zero, fmt.Errorf("invalid amount '%s'", original)
	}

	s = normalizeSeparators(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount '%s': %w", original, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

var canonicalNumber = regexp.MustCompile(`^-?\d+(\.\d+)?([eE][-+]?\d+)?$`)

// ParseCellAmount parses an amount read from a workbook. Numeric cells hold
// canonical numbers and are taken as they are, so "2850.095" keeps its three
// decimals; anything else goes through ParseAmount.
func ParseCellAmount(s string) (decimal.Decimal, error) {
	if v := strings.TrimSpace(s); canonicalNumber.MatchString(v) {
		return decimal.NewFromString(v)
	}
	return ParseAmount(s)
}

func normalizeSeparators(s string) string {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if isThousands(s, ",") {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.Replace(s, ",", ".", 1)
	case lastDot >= 0:
		if isThousands(s, ".") {
			return strings.ReplaceAll(s, ".", "")
		}
	}
	return s
}

func isThousands(s, sep string) bool {
	if strings.Count(s, sep) > 1 {
		return true
	}
	idx := strings.Index(s, sep)
	whole, frac := s[:idx], s[idx+1:]
	return len(frac) == 3 && whole != "" && whole != "0"
}
