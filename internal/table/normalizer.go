package table

import (
	"github.com/schollz/closestmatch"

	"recaudo-reconciliation-service/pkg/logger"
)

// Normalizer canonicalizes headers and projects raw tables to an expected
// column list, logging every expected column it could not find.
type Normalizer struct {
	logger logger.Logger
}

// Projection is the outcome of normalizing one table
type Projection struct {
	Table   *Table
	Missing []string
	Hints   map[string]string
}

// NewNormalizer creates a normalizer logging through log
func NewNormalizer(log logger.Logger) *Normalizer {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Normalizer{logger: log.WithComponent("normalizer")}
}

// Normalize canonicalizes raw's headers and projects it onto expected
func (n *Normalizer) Normalize(raw *Table, expected []string) *Projection {
	if raw == nil {
		raw = New("", nil)
	}

	canonical := raw.Canonicalize()
	projected, missing := canonical.Project(expected)

	result := &Projection{Table: projected, Missing: missing}
	if len(missing) == 0 {
		return result
	}

	unused := unusedHeaders(canonical.Columns, expected)
	result.Hints = make(map[string]string, len(missing))
	for _, col := range missing {
		hint := ClosestHeader(col, unused)
		if hint != "" {
			result.Hints[col] = hint
		}
		n.logger.WithFields(logger.Fields{
			"table":   raw.Name,
			"column":  col,
			"closest": hint,
		}).Warn("Expected column not found")
	}
	return result
}

// ClosestHeader suggests which present header was probably meant for a
// missing one, or "" when nothing is close.
func ClosestHeader(missing string, present []string) string {
	if len(present) == 0 {
		return ""
	}
	cm := closestmatch.New(present, []int{2, 3})
	return cm.Closest(Canonical(missing))
}

func unusedHeaders(columns, expected []string) []string {
	wanted := make(map[string]bool, len(expected))
	for _, col := range expected {
		wanted[Canonical(col)] = true
	}

	var unused []string
	for _, col := range columns {
		if col != "" && !wanted[col] {
			unused = append(unused, col)
		}
	}
	return unused
}
