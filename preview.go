package main

import (
	"fmt"
	"html"
	"io"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
)

// PreviewMarkdown renders the first limit rows of the selected columns as a
// markdown table.
func PreviewMarkdown(table *Table, columns []string, limit int) (string, error) {
	if limit <= 0 || limit > table.Len() {
		limit = table.Len()
	}

	var b strings.Builder
	b.WriteString("<table><thead><tr>")
	for _, c := range columns {
		fmt.Fprintf(&b, "<th>%s</th>", html.EscapeString(c))
	}
	b.WriteString("</tr></thead><tbody>")
	for r := 0; r < limit; r++ {
		b.WriteString("<tr>")
		for _, c := range columns {
			fmt.Fprintf(&b, "<td>%s</td>", html.EscapeString(table.Value(r, table.ColumnIndex(c))))
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody></table>")

	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.Table())
	markdown, err := converter.ConvertString(b.String())
	if err != nil {
		return "", fmt.Errorf("converting preview to markdown: %w", err)
	}
	return markdown, nil
}

// PrintColumns lists the available columns with their 1-based indices
func PrintColumns(w io.Writer, table *Table) {
	fmt.Fprintln(w, "\nAvailable columns:")
	fmt.Fprintln(w, strings.Repeat("=", 60))
	for i, c := range table.Columns {
		fmt.Fprintf(w, "%2d. %s\n", i+1, c)
	}
	fmt.Fprintln(w, strings.Repeat("=", 60))
}
