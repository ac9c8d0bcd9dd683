package main

import (
	"fmt"
	"strconv"
	"strings"
)

// SelectColumns resolves a selection expression against the available
// columns. The expression is "all", a list of 1-based indices and ranges
// ("1,3,5-7"), or a list of column names. The result keeps selection order
// without duplicates. Warnings describe the parts that were ignored.
func SelectColumns(expr string, available []string) ([]string, []string) {
	expr = strings.TrimSpace(expr)
	if strings.EqualFold(expr, "all") {
		return append([]string(nil), available...), nil
	}

	parts := strings.Split(expr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	var selected, warnings []string
	if isNumericSelection(parts) {
		for _, part := range parts {
			if start, end, ok := parseRange(part); ok {
				for i := start; i <= end; i++ {
					if i >= 1 && i <= len(available) {
						selected = append(selected, available[i-1])
					}
				}
				continue
			}
			n, _ := strconv.Atoi(part)
			if n < 1 || n > len(available) {
				warnings = append(warnings, fmt.Sprintf("column index out of range: %d", n))
				continue
			}
			selected = append(selected, available[n-1])
		}
	} else {
		known := make(map[string]bool, len(available))
		for _, c := range available {
			known[c] = true
		}
		for _, name := range parts {
			if !known[name] {
				warnings = append(warnings, fmt.Sprintf("column %q does not exist", name))
				continue
			}
			selected = append(selected, name)
		}
	}

	return uniqueStrings(selected), warnings
}

func isNumericSelection(parts []string) bool {
	for _, part := range parts {
		if _, _, ok := parseRange(part); ok {
			continue
		}
		if _, err := strconv.Atoi(part); err != nil {
			return false
		}
	}
	return true
}

func parseRange(part string) (int, int, bool) {
	lo, hi, found := strings.Cut(part, "-")
	if !found {
		return 0, 0, false
	}
	start, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return 0, 0, false
	}
	end, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return 0, 0, false
	}
	return start, end, true
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// LayoutColumns moves imageColumn to the front when images are requested.
// All other columns keep their relative order.
func LayoutColumns(selected []string, imageColumn string, withImages bool) []string {
	out := append([]string(nil), selected...)
	if !withImages || imageColumn == "" {
		return out
	}
	idx := -1
	for i, c := range out {
		if c == imageColumn {
			idx = i
			break
		}
	}
	if idx <= 0 {
		return out
	}
	layout := make([]string, 0, len(out))
	layout = append(layout, imageColumn)
	layout = append(layout, out[:idx]...)
	layout = append(layout, out[idx+1:]...)
	return layout
}
