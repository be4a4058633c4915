package matcher

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	thousandsGrouped = regexp.MustCompile(`^\d{1,3}(\.\d{3})+$`)
	integralFloat    = regexp.MustCompile(`^(\d+)\.0+$`)
	scientific       = regexp.MustCompile(`^\d+(\.\d+)?[eE]\+?\d+$`)
)

// CanonicalKey turns an identity or document cell into the string form used
// for equality across sources. Spreadsheets hand back the same id as
// "12345678", "12345678.0", "12.345.678" or "1.2345678E7" depending on how
// the cell was typed; all of them become "12345678". Leading zeros are kept.
func CanonicalKey(value string) string {
	s := strings.TrimSpace(value)
	switch {
	case s == "":
		return ""
	case thousandsGrouped.MatchString(s):
		return strings.ReplaceAll(s, ".", "")
	case integralFloat.MatchString(s):
		return integralFloat.FindStringSubmatch(s)[1]
	case scientific.MatchString(s):
		d, err := decimal.NewFromString(s)
		if err == nil && d.Equal(d.Truncate(0)) {
			return d.Truncate(0).String()
		}
	}
	return s
}
