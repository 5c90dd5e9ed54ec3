package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

type fakeTable struct{}

func (fakeTable) Table() Table {
	return Table{
		Headers: []string{"KEY", "MODEL", "REQUESTS"},
		Rows: [][]string{
			{"sk-abc...", "gpt-4o", "12"},
			{"sk-defghij...", "gpt-4o-mini"},
		},
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{"csv", FormatCSV, false},
		{"junit", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOutputFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTextFormatter(t *testing.T) {
	t.Run("plain value", func(t *testing.T) {
		buf := &bytes.Buffer{}
		if err := (&TextFormatter{}).FormatTo(buf, "test message"); err != nil {
			t.Fatal(err)
		}
		if buf.String() != "test message\n" {
			t.Errorf("got %q", buf.String())
		}
	})

	t.Run("table", func(t *testing.T) {
		buf := &bytes.Buffer{}
		if err := (&TextFormatter{}).FormatTo(buf, fakeTable{}); err != nil {
			t.Fatal(err)
		}

		lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
		if len(lines) != 3 {
			t.Fatalf("got %d lines: %q", len(lines), buf.String())
		}
		// Columns are aligned: MODEL starts at the same offset on every line.
		col := strings.Index(lines[0], "MODEL")
		if strings.Index(lines[1], "gpt-4o") != col || strings.Index(lines[2], "gpt-4o-mini") != col {
			t.Errorf("columns not aligned:\n%s", buf.String())
		}
	})
}

func TestJSONFormatter(t *testing.T) {
	buf := &bytes.Buffer{}
	data := map[string]int{"requests": 3}
	if err := NewFormatter(FormatJSON).FormatTo(buf, data); err != nil {
		t.Fatal(err)
	}

	var out map[string]int
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if out["requests"] != 3 {
		t.Errorf("got %v", out)
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("expected indented output")
	}
}

func TestCSVFormatter(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewFormatter(FormatCSV).FormatTo(buf, fakeTable{}); err != nil {
		t.Fatal(err)
	}

	want := "KEY,MODEL,REQUESTS\nsk-abc...,gpt-4o,12\nsk-defghij...,gpt-4o-mini,\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}

	if err := NewFormatter(FormatCSV).FormatTo(buf, "not a table"); err == nil {
		t.Error("expected error for non-tabular data")
	}
}
