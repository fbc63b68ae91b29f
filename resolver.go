package gtfssql

import (
	"strings"

	"github.com/transitfeeds/gtfssql/domain/model"
)

// Unresolved is the position returned for a schema column that no header matches.
const Unresolved = -1

// ColumnMatcher returns the header position matching column, or Unresolved.
type ColumnMatcher func(header model.Header, column string) int

// ContainsMatcher returns the first header position, scanning left to right,
// whose text contains column. Stray bytes around a header name, such as a
// mis-decoded byte order mark, do not prevent a match.
func ContainsMatcher(header model.Header, column string) int {
	for i, h := range header {
		if strings.Contains(h, column) {
			return i
		}
	}
	return Unresolved
}

// ExactMatcher returns the first header position equal to column once
// surrounding whitespace and a byte order mark are removed.
func ExactMatcher(header model.Header, column string) int {
	for i, h := range header {
		if strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) == column {
			return i
		}
	}
	return Unresolved
}

// resolveColumns maps each column to its header position. The mapping is
// computed once per file.
func resolveColumns(columns []string, header model.Header, matcher ColumnMatcher) []int {
	if matcher == nil {
		matcher = ContainsMatcher
	}
	positions := make([]int, len(columns))
	for i, column := range columns {
		positions[i] = matcher(header, column)
	}
	return positions
}

// unresolvedColumns returns the columns whose position is Unresolved.
func unresolvedColumns(columns []string, positions []int) []string {
	var missing []string
	for i, pos := range positions {
		if pos == Unresolved {
			missing = append(missing, columns[i])
		}
	}
	return missing
}

// resolveRow aligns row to the schema column order. Unresolved columns and
// positions past the end of a short row become nil, stored as NULL.
func resolveRow(row model.Row, positions []int) []any {
	return resolveRowInto(make([]any, len(positions)), row, positions)
}

// resolveRowInto is resolveRow writing into values, which must have one
// element per position.
func resolveRowInto(values []any, row model.Row, positions []int) []any {
	for i, pos := range positions {
		values[i] = nil
		if v, ok := row.Field(pos); ok {
			values[i] = v
		}
	}
	return values
}
