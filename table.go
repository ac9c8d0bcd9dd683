package main

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Table is an in-memory sheet: a header row and string cells in original order
type Table struct {
	Columns []string
	Rows    [][]string
}

// NewTable builds a table from a header and rows. Header names are made
// unique and rows are padded or cut to the header width.
func NewTable(header []string, rows [][]string) *Table {
	t := &Table{Columns: uniqueHeader(header)}
	width := len(t.Columns)
	for _, r := range rows {
		row := make([]string, width)
		copy(row, r)
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Len returns the number of data rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of name, or -1
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Value returns the cell text at row, col
func (t *Table) Value(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}

// IsBlank reports whether the cell holds only whitespace
func (t *Table) IsBlank(row, col int) bool {
	return strings.TrimSpace(t.Value(row, col)) == ""
}

// NormalizeIdentifiers rewrites the named columns so long numeric IDs read
// back as plain digits.
func (t *Table) NormalizeIdentifiers(columns []string) {
	for _, name := range columns {
		col := t.ColumnIndex(name)
		if col < 0 {
			continue
		}
		for _, row := range t.Rows {
			row[col] = normalizeIdentifier(row[col])
		}
	}
}

var trailingZeroFraction = regexp.MustCompile(`^(-?\d+)\.0+$`)

func normalizeIdentifier(v string) string {
	v = strings.TrimSpace(v)
	switch strings.ToLower(v) {
	case "nan", "none", "null":
		return ""
	}
	if m := trailingZeroFraction.FindStringSubmatch(v); m != nil {
		return m[1]
	}
	if strings.ContainsAny(v, "eE") {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return strconv.FormatFloat(f, 'f', 0, 64)
		}
	}
	return v
}

func uniqueHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		name := h
		if n, ok := seen[h]; ok {
			name = fmt.Sprintf("%s.%d", h, n)
			seen[h] = n + 1
		} else {
			seen[h] = 1
		}
		out[i] = name
	}
	return out
}
