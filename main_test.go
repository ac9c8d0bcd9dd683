package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOutputFilename(t *testing.T) {
	tests := []struct {
		name, dir, want string
	}{
		{"", ".", "output.xlsx"},
		{"report", ".", "report.xlsx"},
		{"report.XLSX", ".", "report.XLSX"},
		{"report.xlsx", "exports", filepath.Join("exports", "report.xlsx")},
		{filepath.Join("sub", "r.xlsx"), "exports", filepath.Join("sub", "r.xlsx")},
		{"/tmp/r", "exports", "/tmp/r.xlsx"},
	}
	for _, tt := range tests {
		if got := outputFilename(tt.name, tt.dir); got != tt.want {
			t.Errorf("outputFilename(%q, %q) = %q, want %q", tt.name, tt.dir, got, tt.want)
		}
	}
}

func writeCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.csv")
	if err := os.WriteFile(path, []byte("编号,平台,商品图片\n1,淘宝,\n2,京东,\n"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunExportListColumns(t *testing.T) {
	var out bytes.Buffer
	err := runExport(context.Background(), cliOptions{
		inputPath:   writeCSV(t),
		listColumns: true,
	}, &out)
	if err != nil {
		t.Fatalf("runExport() error = %v", err)
	}
	if !strings.Contains(out.String(), "2. 平台") {
		t.Errorf("output:\n%s", out.String())
	}
}

func TestRunExportWritesWorkbook(t *testing.T) {
	output := filepath.Join(t.TempDir(), "out.xlsx")
	var out bytes.Buffer
	err := runExport(context.Background(), cliOptions{
		inputPath:  writeCSV(t),
		outputPath: output,
		columns:    "1,2",
	}, &out)
	if err != nil {
		t.Fatalf("runExport() error = %v", err)
	}
	if _, err := os.Stat(output); err != nil {
		t.Errorf("output not written: %v", err)
	}
	if !strings.Contains(out.String(), "Export complete") {
		t.Errorf("output:\n%s", out.String())
	}
}

func TestRunExportNoValidColumns(t *testing.T) {
	err := runExport(context.Background(), cliOptions{
		inputPath:  writeCSV(t),
		outputPath: filepath.Join(t.TempDir(), "out.xlsx"),
		columns:    "9,10",
	}, &bytes.Buffer{})
	if !errors.Is(err, ErrNoColumns) {
		t.Errorf("error = %v, want ErrNoColumns", err)
	}
}

func TestRunExportMissingInput(t *testing.T) {
	err := runExport(context.Background(), cliOptions{inputPath: filepath.Join(t.TempDir(), "nope.csv")}, &bytes.Buffer{})
	if err == nil {
		t.Error("expected error for missing input")
	}
}
