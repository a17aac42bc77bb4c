// Package table prints query results as plain-text tables.
package table

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Konsultn-Engineering/quest/database"
	"github.com/gertd/go-pluralize"
)

// Null is printed for SQL NULL values.
const Null = "NULL"

// Printer writes results to an io.Writer.
type Printer struct {
	w      io.Writer
	plural *pluralize.Client
}

// NewPrinter creates a printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, plural: pluralize.NewClient()}
}

// Print renders res followed by a row count footer. Results without columns
// only print the number of affected rows.
func (p *Printer) Print(res *database.Result) error {
	if res == nil || len(res.Fields) == 0 {
		var affected int64
		if res != nil {
			affected = res.RowsAffected
		}
		_, err := fmt.Fprintf(p.w, "%s affected\n", p.plural.Pluralize("row", int(affected), true))
		return err
	}

	rows := make([][]string, res.Len())
	for i := range rows {
		values := res.Values(i)
		rows[i] = make([]string, len(values))
		for j, v := range values {
			rows[i][j] = Cell(v)
		}
	}

	var b strings.Builder
	widths := columnWidths(res.Fields, rows)
	sep := separator(widths)

	b.WriteString(sep)
	b.WriteString(formatRow(res.Fields, widths))
	b.WriteString(sep)
	for _, row := range rows {
		b.WriteString(formatRow(row, widths))
	}
	b.WriteString(sep)
	fmt.Fprintf(&b, "(%s)\n", p.plural.Pluralize("row", len(rows), true))

	_, err := io.WriteString(p.w, b.String())
	return err
}

// Cell formats a single value for display.
func Cell(v any) string {
	switch v := v.(type) {
	case nil:
		return Null
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func columnWidths(headers []string, rows [][]string) []int {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = max(utf8.RuneCountInString(h), 1)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], utf8.RuneCountInString(cell))
			}
		}
	}
	return widths
}

func separator(widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		parts[i] = strings.Repeat("-", w+2)
	}
	return "+" + strings.Join(parts, "+") + "+\n"
}

func formatRow(row []string, widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		parts[i] = " " + cell + strings.Repeat(" ", w-utf8.RuneCountInString(cell)+1)
	}
	return "|" + strings.Join(parts, "|") + "|\n"
}
