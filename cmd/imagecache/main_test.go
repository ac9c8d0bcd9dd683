package main

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const key = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestScanCache(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, key+".jpg", []byte("abc"))
	writeFile(t, dir, strings.Replace(key, "0", "1", 1)+".png", []byte("abcd"))
	empty := writeFile(t, dir, strings.Replace(key, "0", "2", 1)+".gif", nil)
	partial := writeFile(t, dir, key+"-123.part", []byte("x"))
	writeFile(t, dir, "notes.txt", []byte("hi"))

	stats, err := scanCache(dir)
	if err != nil {
		t.Fatalf("scanCache() error = %v", err)
	}
	if stats.Entries != 2 || stats.Bytes != 7 {
		t.Errorf("entries = %d bytes = %d, want 2 and 7", stats.Entries, stats.Bytes)
	}
	if stats.ByExt["jpg"] != 1 || stats.ByExt["png"] != 1 {
		t.Errorf("ByExt = %v", stats.ByExt)
	}
	if len(stats.Empty) != 1 || stats.Empty[0] != empty {
		t.Errorf("Empty = %v, want [%s]", stats.Empty, empty)
	}
	if len(stats.Partial) != 1 || stats.Partial[0] != partial {
		t.Errorf("Partial = %v, want [%s]", stats.Partial, partial)
	}
	if stats.Foreign != 1 {
		t.Errorf("Foreign = %d, want 1", stats.Foreign)
	}

	var out bytes.Buffer
	printStats(&out, dir, stats)
	if !strings.Contains(out.String(), "Entries: 2 (7 bytes)") {
		t.Errorf("printStats() output = %q", out.String())
	}
}

func TestConfirmDelete(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"yes\n", true},
		{"\n", false},
		{"n\n", false},
		{"maybe\ny\n", true},
		{"", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		got := confirmDelete(bufio.NewReader(strings.NewReader(tt.input)), &out, "/tmp/x.jpg")
		if got != tt.want {
			t.Errorf("confirmDelete(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
