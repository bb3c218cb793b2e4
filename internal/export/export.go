// Package export writes table rows as CSV or JSON and renders cell values
// as display strings.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sadopc/supadmin/internal/backend"
	"github.com/sadopc/supadmin/internal/errs"
	"github.com/sadopc/supadmin/internal/schema"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat accepts "csv" or "json" in any case.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", errs.Newf(errs.ErrKindInvalidInput, "unsupported export format %q", s)
}

// FormatFromPath guesses the format from the file extension, defaulting
// to CSV.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatCSV
}

// Columns returns the column order for rows: field order first, then any
// extra keys found in the rows, sorted.
func Columns(fields []schema.TableField, rows []backend.Row) []string {
	seen := make(map[string]bool)
	cols := make([]string, 0, len(fields))
	for _, f := range fields {
		if !seen[f.Name] {
			seen[f.Name] = true
			cols = append(cols, f.Name)
		}
	}
	var extra []string
	for _, r := range rows {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				extra = append(extra, k)
			}
		}
	}
	sort.Strings(extra)
	return append(cols, extra...)
}

// Value renders a cell. Nil is empty, objects and arrays are compact JSON.
func Value(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		if x {
			return "true"
		}
		return "false"
	case map[string]any, []any:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(data)
	default:
		return fmt.Sprint(x)
	}
}

// WriteCSV writes a header row and one line per row.
func WriteCSV(w io.Writer, columns []string, rows []backend.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	record := make([]string, len(columns))
	for _, row := range rows {
		for i, c := range columns {
			record[i] = Value(row[c])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes rows as an indented JSON array keeping native values.
// Only the listed columns are written; a nil columns slice keeps all keys.
func WriteJSON(w io.Writer, columns []string, rows []backend.Row) error {
	out := make([]backend.Row, 0, len(rows))
	for _, row := range rows {
		if columns == nil {
			out = append(out, row)
			continue
		}
		obj := make(backend.Row, len(columns))
		for _, c := range columns {
			obj[c] = row[c]
		}
		out = append(out, obj)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// Write dispatches on format.
func Write(w io.Writer, format Format, columns []string, rows []backend.Row) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, columns, rows)
	case FormatCSV:
		return WriteCSV(w, columns, rows)
	}
	return errs.Newf(errs.ErrKindInvalidInput, "unsupported export format %q", format)
}

// ToFile creates path and writes rows in format.
func ToFile(path string, format Format, columns []string, rows []backend.Row) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, format, columns, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
