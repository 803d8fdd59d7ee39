// Package layout implements the column model of forms and steps.
//
// A step lays its fields out on a grid of 1 to 4 columns and every field
// occupies ColumnSpan of them. Invalid counts and spans are never rejected:
// they are clamped to the nearest valid value.
package layout

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/solatis/formkeeper/internal/types"
)

// ClampColumnCount maps any number to a valid column count.
// NaN yields DefaultColumns; everything else is floored and clamped to
// [MinColumns, MaxColumns].
func ClampColumnCount(columns float64) int {
	if math.IsNaN(columns) {
		return types.DefaultColumns
	}
	columns = math.Floor(columns)
	if columns < types.MinColumns {
		return types.MinColumns
	}
	if columns > types.MaxColumns {
		return types.MaxColumns
	}
	return int(columns)
}

// ResolveColumns reads a column count from a raw JSON value.
// ok is false when v is absent or not numeric so the caller can fall back.
func ResolveColumns(v any) (int, bool) {
	n, ok := number(v)
	if !ok {
		return 0, false
	}
	return ClampColumnCount(n), true
}

// ClampSpan clamps span to [1, columns].
func ClampSpan(span, columns int) int {
	columns = ClampColumnCount(float64(columns))
	if span < 1 {
		return 1
	}
	if span > columns {
		return columns
	}
	return span
}

// ResolveSpan reads a column span from a raw JSON value. Absent or invalid
// spans fill the full row.
func ResolveSpan(v any, columns int) int {
	n, ok := number(v)
	if !ok || math.IsNaN(n) {
		return ClampColumnCount(float64(columns))
	}
	if math.IsInf(n, 1) {
		n = types.MaxColumns
	}
	if math.IsInf(n, -1) {
		n = 1
	}
	return ClampSpan(int(math.Floor(n)), columns)
}

// Pack flows spans into rows, left to right. A span that does not fit the
// remaining width of the current row starts a new one. Rows hold indexes into
// spans.
func Pack(spans []int, columns int) [][]int {
	columns = ClampColumnCount(float64(columns))

	var rows [][]int
	var row []int
	used := 0
	for i, span := range spans {
		span = ClampSpan(span, columns)
		if used+span > columns && len(row) > 0 {
			rows = append(rows, row)
			row, used = nil, 0
		}
		row = append(row, i)
		used += span
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
