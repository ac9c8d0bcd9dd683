package main

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/xuri/excelize/v2"
)

// oleMagic starts every binary (BIFF) .xls file.
var oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0}

// TableHandler reads one kind of input file
type TableHandler interface {
	CanHandle(path string, head []byte) bool
	Read(path string) (*Table, error)
}

// TableReader picks the first handler that accepts a file
type TableReader struct {
	handlers  []TableHandler
	idColumns []string
}

// NewTableReader creates a reader with the default handlers
func NewTableReader(idColumns []string) *TableReader {
	r := &TableReader{idColumns: idColumns}

	// Register handlers (most specific first)
	r.AddHandler(&BinaryXLSHandler{})
	r.AddHandler(&XLSXHandler{})
	r.AddHandler(&HTMLTableHandler{})
	r.AddHandler(&CSVHandler{})

	return r
}

// AddHandler adds a handler to the chain
func (r *TableReader) AddHandler(h TableHandler) {
	r.handlers = append(r.handlers, h)
}

// ReadTable loads path and cleans identifier columns
func (r *TableReader) ReadTable(path string) (*Table, error) {
	head, err := readHead(path, 512)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	for _, h := range r.handlers {
		if h.CanHandle(path, head) {
			t, err := h.Read(path)
			if err != nil {
				return nil, err
			}
			t.NormalizeIdentifiers(r.idColumns)
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedInput, path)
}

func readHead(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return buf[:read], nil
}

func hasExt(path string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// BinaryXLSHandler rejects legacy BIFF workbooks with a useful message
type BinaryXLSHandler struct{}

func (h *BinaryXLSHandler) CanHandle(path string, head []byte) bool {
	return bytes.HasPrefix(head, oleMagic)
}

func (h *BinaryXLSHandler) Read(path string) (*Table, error) {
	return nil, fmt.Errorf("%w: %s is a binary .xls workbook, save it as .xlsx first", ErrUnsupportedInput, path)
}

// XLSXHandler reads the first sheet of an OOXML workbook
type XLSXHandler struct{}

func (h *XLSXHandler) CanHandle(path string, head []byte) bool {
	return hasExt(path, ".xlsx", ".xlsm") || bytes.HasPrefix(head, []byte("PK\x03\x04"))
}

func (h *XLSXHandler) Read(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return NewTable(nil, nil), nil
	}
	return NewTable(rows[0], rows[1:]), nil
}

// HTMLTableHandler reads the first <table> of an HTML export. Many systems
// emit these with an .xls extension.
type HTMLTableHandler struct{}

func (h *HTMLTableHandler) CanHandle(path string, head []byte) bool {
	if hasExt(path, ".html", ".htm") {
		return true
	}
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(head, []byte("\xef\xbb\xbf")), " \t\r\n")
	return hasExt(path, ".xls") && bytes.HasPrefix(trimmed, []byte("<"))
}

func (h *HTMLTableHandler) Read(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML %s: %w", path, err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("%w: no <table> in %s", ErrUnsupportedInput, path)
	}

	var records [][]string
	carried := make(map[int]*spannedCell)
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var record []string
		fill := func() {
			for {
				c, ok := carried[len(record)]
				if !ok {
					return
				}
				record = append(record, c.text)
				if c.rows--; c.rows == 0 {
					delete(carried, len(record)-1)
				}
			}
		}

		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			fill()
			text := strings.TrimSpace(cell.Text())
			rows := spanAttr(cell, "rowspan")
			for i := spanAttr(cell, "colspan"); i > 0; i-- {
				if rows > 1 {
					carried[len(record)] = &spannedCell{text: text, rows: rows - 1}
				}
				record = append(record, text)
			}
		})
		fill()
		if len(record) > 0 {
			records = append(records, record)
		}
	})
	if len(records) == 0 {
		return NewTable(nil, nil), nil
	}
	return NewTable(records[0], records[1:]), nil
}

// spannedCell is a rowspan cell still owed to the rows below it
type spannedCell struct {
	text string
	rows int
}

// spanAttr reads a colspan or rowspan attribute, defaulting to 1
func spanAttr(cell *goquery.Selection, name string) int {
	v, ok := cell.Attr(name)
	if !ok {
		return 1
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 1 {
		return 1
	}
	if n > 1000 {
		n = 1000
	}
	return n
}

// CSVHandler reads comma separated files
type CSVHandler struct{}

func (h *CSVHandler) CanHandle(path string, head []byte) bool {
	return hasExt(path, ".csv")
}

func (h *CSVHandler) Read(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}
	if len(records) == 0 {
		return NewTable(nil, nil), nil
	}
	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	return NewTable(header, records[1:]), nil
}
