package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// cliOptions holds the parsed command-line flags
type cliOptions struct {
	inputPath      string
	outputPath     string
	columns        string
	listColumns    bool
	downloadImages bool
	preview        int
	configFile     string
	imagesDir      string
	workers        int
	debugMode      bool
}

var opts cliOptions

var rootCmd = &cobra.Command{
	Use:   "column-export",
	Short: "Export selected spreadsheet columns, optionally embedding images",
	Long: `Export a subset of columns from a spreadsheet into a new .xlsx file.

Examples:
  column-export -i input.xls -o output.xlsx -c "1,2,5,10-15"
  column-export -i input.xls -o output.xlsx -c "编号,平台,站点"
  column-export -i input.xls -c all
  column-export -i input.xls --list-columns
  column-export -i input.xls -o output.xlsx -c "编号,商品图片,商品标题" --download-images`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if opts.inputPath == "" {
			return cmd.Help()
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runExport(ctx, opts, cmd.OutOrStdout())
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default settings file to " + GetConfigPath("settings.yaml"),
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := ensureConfigExists()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Settings: %s\n", path)
		return nil
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&opts.inputPath, "input", "i", "", "Input spreadsheet (.xlsx, .xls HTML export, .csv)")
	f.StringVarP(&opts.outputPath, "output", "o", "", "Output .xlsx path (default: output.xlsx)")
	f.StringVarP(&opts.columns, "columns", "c", "", `Columns to export: indices (1,2,5,10-15) | names (编号,平台) | all`)
	f.BoolVar(&opts.listColumns, "list-columns", false, "Only list the available columns")
	f.BoolVar(&opts.downloadImages, "download-images", false, "Download the image column and embed thumbnails")
	f.IntVar(&opts.preview, "preview", 0, "Print the first N selected rows as markdown instead of exporting")
	f.StringVar(&opts.configFile, "config", "", "Path to settings file (default: "+GetConfigPath("settings.yaml")+")")
	f.StringVar(&opts.imagesDir, "images-dir", "", "Image cache directory (overrides settings)")
	f.IntVar(&opts.workers, "workers", 0, "Parallel image downloads (overrides settings)")
	f.BoolVar(&opts.debugMode, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(initCmd)
}

func runExport(ctx context.Context, o cliOptions, stdout io.Writer) error {
	log := newLogger(o.debugMode)

	var settings *Settings
	var err error
	if o.configFile != "" {
		settings, err = loadSettingsRequired(o.configFile)
	} else {
		settings, err = loadSettings(GetConfigPath("settings.yaml"))
	}
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	if o.imagesDir != "" {
		settings.Images.Dir = o.imagesDir
	}
	if o.workers > 0 {
		settings.Images.Workers = o.workers
	}

	if _, err := os.Stat(o.inputPath); err != nil {
		return fmt.Errorf("input file %q: %w", o.inputPath, err)
	}

	table, err := NewTableReader(settings.IDColumns).ReadTable(o.inputPath)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	fmt.Fprintf(stdout, "Read %s: %d rows x %d columns\n", o.inputPath, table.Len(), len(table.Columns))

	if o.listColumns {
		PrintColumns(stdout, table)
		return nil
	}
	if o.columns == "" {
		PrintColumns(stdout, table)
		return fmt.Errorf("no columns given: use -c or --list-columns")
	}

	selected, warnings := SelectColumns(o.columns, table.Columns)
	for _, w := range warnings {
		log.Warn().Msg(w)
	}
	if len(selected) == 0 {
		return ErrNoColumns
	}

	if o.preview > 0 {
		markdown, err := PreviewMarkdown(table, selected, o.preview)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, markdown)
		return nil
	}

	exporter := newExporter(settings, stdout, log)
	summary, err := exporter.Export(ctx, table, selected, outputFilename(o.outputPath, settings.OutputDirectory), o.downloadImages)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	summary.Print(stdout)
	return nil
}

// newExporter wires the image pipeline from settings
func newExporter(settings *Settings, progress io.Writer, log zerolog.Logger) *Exporter {
	img := settings.Images
	fetcher := NewImageFetcher(&http.Client{}, FetchOptions{
		OutputDir:    img.Dir,
		Timeout:      img.Timeout,
		MaxRetries:   img.MaxRetries,
		RetryBackoff: img.RetryBackoff,
		UserAgent:    img.UserAgent,
	}, log)
	coordinator := NewDownloadCoordinator(fetcher, img.Workers, progress, log)
	capability := DetectImageCapability(img.Normalize)
	log.Debug().Bool("enabled", capability.Enabled).Str("reason", capability.Reason).Msg("Image normalization")
	normalizer := NewImageNormalizer(capability, NormalizeOptions{
		MaxPixels: img.ThumbnailMaxPx,
		Quality:   img.JPEGQuality,
	}, log)

	return NewExporter(ExportOptions{
		SheetName:      settings.SheetName,
		ImageColumn:    settings.ImageColumn,
		IDColumns:      settings.IDColumns,
		MaxDisplaySize: img.MaxDisplaySize,
		RowHeight:      img.RowHeight,
		ColumnWidth:    img.ColumnWidth,
	}, coordinator, normalizer, log)
}

// outputFilename defaults to output.xlsx and forces the .xlsx extension.
// Relative names without a directory land in outputDir.
func outputFilename(name, outputDir string) string {
	if name == "" {
		name = "output.xlsx"
	}
	if !strings.HasSuffix(strings.ToLower(name), ".xlsx") {
		name += ".xlsx"
	}
	if outputDir != "" && outputDir != "." && !filepath.IsAbs(name) && filepath.Dir(name) == "." {
		name = filepath.Join(outputDir, name)
	}
	return name
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
