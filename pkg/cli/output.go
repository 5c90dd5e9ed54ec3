package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is aligned plain text output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is indented JSON output.
	FormatJSON OutputFormat = "json"
	// FormatCSV is CSV output.
	FormatCSV OutputFormat = "csv"
)

// ParseOutputFormat validates a --format flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatCSV:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or csv)", s)
	}
}

// Table is tabular command output. Rows shorter than Headers are padded.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Tabular is implemented by results that can render as a Table.
type Tabular interface {
	Table() Table
}

// Formatter formats command output.
type Formatter interface {
	FormatTo(w io.Writer, data interface{}) error
}

// TextFormatter writes Tabular data as aligned columns and anything else
// with %v.
type TextFormatter struct{}

// FormatTo writes data to writer in text format.
func (f *TextFormatter) FormatTo(w io.Writer, data interface{}) error {
	tab, ok := data.(Tabular)
	if !ok {
		_, err := fmt.Fprintf(w, "%v\n", data)
		return err
	}

	table := tab.Table()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if len(table.Headers) > 0 {
		fmt.Fprintln(tw, strings.Join(table.Headers, "\t"))
	}
	for _, row := range table.Rows {
		fmt.Fprintln(tw, strings.Join(pad(row, len(table.Headers)), "\t"))
	}
	return tw.Flush()
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatTo writes data to writer in JSON format.
func (f *JSONFormatter) FormatTo(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// CSVFormatter formats Tabular output as CSV.
type CSVFormatter struct{}

// FormatTo writes data to writer in CSV format. Non-tabular data is an
// error.
func (f *CSVFormatter) FormatTo(w io.Writer, data interface{}) error {
	tab, ok := data.(Tabular)
	if !ok {
		return fmt.Errorf("CSV output requires tabular data, got %T", data)
	}

	table := tab.Table()
	csvWriter := csv.NewWriter(w)
	if len(table.Headers) > 0 {
		if err := csvWriter.Write(table.Headers); err != nil {
			return err
		}
	}
	for _, row := range table.Rows {
		if err := csvWriter.Write(pad(row, len(table.Headers))); err != nil {
			return err
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

// NewFormatter creates a new formatter for the specified format.
func NewFormatter(format OutputFormat) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatCSV:
		return &CSVFormatter{}
	default:
		return &TextFormatter{}
	}
}

func pad(row []string, n int) []string {
	if len(row) >= n {
		return row
	}
	out := make([]string, n)
	copy(out, row)
	return out
}
