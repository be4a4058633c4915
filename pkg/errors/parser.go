package errors

import (
	"fmt"
	"strings"
)

// CellIssue describes a non-fatal problem found while decoding one cell.
// Decoding keeps going; the cell falls back to a zero or missing value.
type CellIssue struct {
	Table  string    `json:"table"`
	Row    int       `json:"row"`
	Column string    `json:"column"`
	Value  string    `json:"value"`
	Code   ErrorCode `json:"code"`
	Reason string    `json:"reason"`
}

// Error implements the error interface
func (c *CellIssue) Error() string {
	return fmt.Sprintf("%s row %d column '%s': %s ('%s')", c.Table, c.Row, c.Column, c.Reason, c.Value)
}

// AsReconcilerError converts the issue into a parse error
func (c *CellIssue) AsReconcilerError() *ReconcilerError {
	return ParseError(c.Code, c.Table, c.Row, c.Column, c.Value, nil)
}

// IssueCollector accumulates cell issues up to a retention limit while
// still counting every issue reported.
type IssueCollector struct {
	maxKept int
	total   int
	issues  []*CellIssue
	byCode  map[ErrorCode]int
}

// NewIssueCollector creates a collector keeping at most maxKept issues (0 keeps all)
func NewIssueCollector(maxKept int) *IssueCollector {
	return &IssueCollector{
		maxKept: maxKept,
		byCode:  make(map[ErrorCode]int),
	}
}

// Add records an issue
func (c *IssueCollector) Add(issue *CellIssue) {
	c.total++
	c.byCode[issue.Code]++
	if c.maxKept == 0 || len(c.issues) < c.maxKept {
		c.issues = append(c.issues, issue)
	}
}

// Count returns the number of issues reported, including ones not retained
func (c *IssueCollector) Count() int {
	return c.total
}

// CountByCode returns the number of issues reported with code
func (c *IssueCollector) CountByCode(code ErrorCode) int {
	return c.byCode[code]
}

// Issues returns the retained issues
func (c *IssueCollector) Issues() []*CellIssue {
	return c.issues
}

// Summary renders the retained issues for a log line or console output
func (c *IssueCollector) Summary() string {
	if c.total == 0 {
		return "no issues"
	}

	lines := make([]string, 0, len(c.issues)+1)
	lines = append(lines, fmt.Sprintf("%d cell issue(s)", c.total))
	for _, issue := range c.issues {
		lines = append(lines, "  - "+issue.Error())
	}
	if hidden := c.total - len(c.issues); hidden > 0 {
		lines = append(lines, fmt.Sprintf("  ... and %d more", hidden))
	}
	return strings.Join(lines, "\n")
}
