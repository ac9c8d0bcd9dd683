package main

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// textNumFmt is the built-in "@" (text) number format.
const textNumFmt = 49

// ExportOptions controls layout of the output workbook
type ExportOptions struct {
	SheetName      string
	ImageColumn    string
	IDColumns      []string
	MaxDisplaySize int
	RowHeight      float64
	ColumnWidth    float64

	// ScratchRoot holds the per-run scratch directory. Empty means os.TempDir().
	ScratchRoot string
}

// ExportSummary reports what one export produced
type ExportSummary struct {
	OutputPath      string
	Columns         []string
	Rows            int
	ImagesRequested bool
	ImageColumn     string

	Attempted    int
	Succeeded    int
	Failed       int
	CacheHits    int
	Duplicates   int
	Blank        int
	Invalid      int
	Inserted     int
	InsertFailed int
}

// Exporter writes selected table columns into a new workbook
type Exporter struct {
	opts       ExportOptions
	downloader ImageDownloader
	normalizer Normalizer
	log        zerolog.Logger
}

// NewExporter creates an exporter. downloader and normalizer are only used
// when images are requested.
func NewExporter(opts ExportOptions, downloader ImageDownloader, normalizer Normalizer, log zerolog.Logger) *Exporter {
	if opts.SheetName == "" {
		opts.SheetName = "Sheet1"
	}
	if opts.MaxDisplaySize <= 0 {
		opts.MaxDisplaySize = 100
	}
	if opts.RowHeight <= 0 {
		opts.RowHeight = 80
	}
	if opts.ColumnWidth <= 0 {
		opts.ColumnWidth = 15
	}
	return &Exporter{opts: opts, downloader: downloader, normalizer: normalizer, log: log}
}

// Export writes the selected columns of table to outputPath. It returns an
// error only when no document can be produced; per-image problems are
// reported in the summary.
func (e *Exporter) Export(ctx context.Context, table *Table, selected []string, outputPath string, downloadImages bool) (*ExportSummary, error) {
	runID := xid.New().String()
	log := e.log.With().Str("run_id", runID).Logger()

	var columns []string
	for _, c := range selected {
		if table.ColumnIndex(c) >= 0 {
			columns = append(columns, c)
		} else {
			log.Warn().Str("column", c).Msg("Skipping unknown column")
		}
	}
	columns = uniqueStrings(columns)
	if len(columns) == 0 {
		return nil, ErrNoColumns
	}

	withImages := downloadImages && e.opts.ImageColumn != "" && containsString(columns, e.opts.ImageColumn)
	columns = LayoutColumns(columns, e.opts.ImageColumn, withImages)

	summary := &ExportSummary{
		OutputPath:      outputPath,
		Columns:         columns,
		Rows:            table.Len(),
		ImagesRequested: downloadImages,
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := e.opts.SheetName
	if def := f.GetSheetName(0); def != sheet {
		if err := f.SetSheetName(def, sheet); err != nil {
			return nil, fmt.Errorf("naming sheet: %w", err)
		}
	}

	if err := e.writeData(f, sheet, table, columns); err != nil {
		return nil, err
	}
	if err := e.applyTextFormat(f, sheet, table, columns); err != nil {
		return nil, err
	}

	if withImages {
		if e.downloader == nil || e.normalizer == nil {
			return nil, fmt.Errorf("image export requested without a downloader")
		}
		scratchDir, err := os.MkdirTemp(e.opts.ScratchRoot, "column-export-"+runID+"-")
		if err != nil {
			return nil, fmt.Errorf("creating scratch directory: %w", err)
		}
		var scratch []string
		defer func() {
			for _, p := range scratch {
				os.Remove(p)
			}
			os.RemoveAll(scratchDir)
		}()

		summary.ImageColumn = e.opts.ImageColumn
		scratch, err = e.embedImages(ctx, log, f, sheet, table, summary, scratchDir)
		if err != nil {
			return nil, err
		}
	}

	if dir := filepath.Dir(outputPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := f.SaveAs(outputPath); err != nil {
		return nil, fmt.Errorf("writing %s: %w", outputPath, err)
	}

	log.Info().Str("output", outputPath).Int("rows", summary.Rows).Int("columns", len(columns)).Msg("Export written")
	return summary, nil
}

// writeData writes the header and rows. Identifier columns are always written
// as strings; other numeric-looking values are written as numbers.
func (e *Exporter) writeData(f *excelize.File, sheet string, table *Table, columns []string) error {
	for c, name := range columns {
		cell, err := excelize.CoordinatesToCellName(c+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(sheet, cell, name); err != nil {
			return fmt.Errorf("writing header %s: %w", name, err)
		}
	}

	for c, name := range columns {
		src := table.ColumnIndex(name)
		isID := containsString(e.opts.IDColumns, name)
		for r := 0; r < table.Len(); r++ {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			v := table.Value(r, src)
			if !isID {
				if n, ok := numericValue(v); ok {
					if err := f.SetCellValue(sheet, cell, n); err != nil {
						return fmt.Errorf("writing %s: %w", cell, err)
					}
					continue
				}
			}
			if err := f.SetCellStr(sheet, cell, v); err != nil {
				return fmt.Errorf("writing %s: %w", cell, err)
			}
		}
	}
	return nil
}

// applyTextFormat forces the "@" format on every data cell of identifier columns
func (e *Exporter) applyTextFormat(f *excelize.File, sheet string, table *Table, columns []string) error {
	if table.Len() == 0 {
		return nil
	}
	var style int
	for c, name := range columns {
		if !containsString(e.opts.IDColumns, name) {
			continue
		}
		if style == 0 {
			var err error
			style, err = f.NewStyle(&excelize.Style{NumFmt: textNumFmt})
			if err != nil {
				return fmt.Errorf("creating text style: %w", err)
			}
		}
		top, _ := excelize.CoordinatesToCellName(c+1, 2)
		bottom, _ := excelize.CoordinatesToCellName(c+1, table.Len()+1)
		if err := f.SetCellStyle(sheet, top, bottom, style); err != nil {
			return fmt.Errorf("formatting column %s: %w", name, err)
		}
	}
	return nil
}

// embedImages downloads the image column and anchors a picture in each row
// that resolved. It returns the scratch files it created. A cancelled context
// aborts the export once the downloads return.
func (e *Exporter) embedImages(ctx context.Context, log zerolog.Logger, f *excelize.File, sheet string, table *Table, summary *ExportSummary, scratchDir string) ([]string, error) {
	src := table.ColumnIndex(e.opts.ImageColumn)

	var urls []string
	for r := 0; r < table.Len(); r++ {
		u := strings.TrimSpace(table.Value(r, src))
		switch {
		case u == "":
			summary.Blank++
		case !IsImageURL(u):
			summary.Invalid++
		default:
			urls = append(urls, u)
		}
	}

	// The image column is at position 1 after layout.
	colName, _ := excelize.ColumnNumberToName(1)
	if err := f.SetColWidth(sheet, colName, colName, e.opts.ColumnWidth); err != nil {
		log.Warn().Err(err).Msg("Failed to set image column width")
	}

	if len(urls) == 0 {
		log.Info().Msg("No valid image URLs found")
		e.clearImageCells(f, sheet, table.Len())
		return nil, nil
	}

	report := e.downloader.FetchAll(ctx, urls)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("export interrupted: %w", err)
	}
	summary.Attempted = report.Attempted
	summary.Succeeded = report.Succeeded
	summary.Failed = len(report.Failed)
	summary.CacheHits = report.CacheHits
	summary.Duplicates = report.Duplicates

	var scratch []string
	for r := 0; r < table.Len(); r++ {
		row := r + 2
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetCellStr(sheet, cell, ""); err != nil {
			log.Warn().Err(err).Str("cell", cell).Msg("Failed to clear image cell")
		}

		u := strings.TrimSpace(table.Value(r, src))
		path, ok := report.Paths[u]
		if !ok {
			continue
		}

		norm := e.normalizer.Normalize(path, scratchDir)
		if norm.ScratchPath != "" {
			scratch = append(scratch, norm.ScratchPath)
		}
		if err := e.insertImage(f, sheet, cell, row, u, norm); err != nil {
			summary.InsertFailed++
			log.Warn().Err(err).Str("url", u).Str("cell", cell).Msg("Failed to insert image")
			continue
		}
		summary.Inserted++
	}

	log.Info().Int("inserted", summary.Inserted).Int("failed", summary.InsertFailed).Msg("Images embedded")
	return scratch, nil
}

func (e *Exporter) insertImage(f *excelize.File, sheet, cell string, row int, rawURL string, img NormalizedImage) error {
	if _, err := os.Stat(img.EmbedPath); err != nil {
		return fmt.Errorf("image file missing: %w", err)
	}

	w, h := img.Width, img.Height
	if w == 0 || h == 0 {
		var err error
		w, h, err = imageSize(img.EmbedPath)
		if err != nil {
			return err
		}
	}

	dw, dh := fitWithin(w, h, e.opts.MaxDisplaySize)
	opts := &excelize.GraphicOptions{
		ScaleX:          float64(dw) / float64(w),
		ScaleY:          float64(dh) / float64(h),
		Positioning:     "oneCell",
		LockAspectRatio: true,
		AltText:         rawURL,
	}
	if err := f.AddPicture(sheet, cell, img.EmbedPath, opts); err != nil {
		return fmt.Errorf("adding picture: %w", err)
	}
	if err := f.SetRowHeight(sheet, row, e.opts.RowHeight); err != nil {
		return fmt.Errorf("setting row height: %w", err)
	}
	return nil
}

func (e *Exporter) clearImageCells(f *excelize.File, sheet string, rows int) {
	for r := 0; r < rows; r++ {
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		f.SetCellStr(sheet, cell, "")
	}
}

func imageSize(path string) (int, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer file.Close()

	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return 0, 0, fmt.Errorf("reading image size: %w", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return 0, 0, fmt.Errorf("image %s has no size", path)
	}
	return cfg.Width, cfg.Height, nil
}

// numericValue parses v as a number when it is safe to store as one: no
// leading zeros and at most 15 significant digits.
func numericValue(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	digits := strings.TrimLeft(v, "+-")
	if len(digits) > 1 && digits[0] == '0' && digits[1] != '.' {
		return 0, false
	}
	if strings.Trim(digits, "0123456789.") != "" || len(strings.ReplaceAll(digits, ".", "")) > 15 {
		return 0, false
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Print writes a human-readable summary
func (s *ExportSummary) Print(w io.Writer) {
	fmt.Fprintf(w, "\nExport complete\n")
	fmt.Fprintf(w, "Output file: %s\n", s.OutputPath)
	fmt.Fprintf(w, "Columns:     %d\n", len(s.Columns))
	fmt.Fprintf(w, "Rows:        %d\n", s.Rows)
	fmt.Fprintf(w, "Exported:    %s\n", strings.Join(s.Columns, ", "))
	if s.ImagesRequested && s.ImageColumn != "" {
		fmt.Fprintf(w, "Images from %q: attempted %d, succeeded %d, failed %d, cached %d, duplicates %d, blank %d, invalid %d\n",
			s.ImageColumn, s.Attempted, s.Succeeded, s.Failed, s.CacheHits, s.Duplicates, s.Blank, s.Invalid)
		fmt.Fprintf(w, "Embedded:    %d (insert failures: %d)\n", s.Inserted, s.InsertFailed)
	} else if s.ImagesRequested {
		fmt.Fprintf(w, "Images:      no image column selected\n")
	}
}
