// Command imagecache inspects and tidies the URL-keyed image cache written by
// column-export.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// cacheEntryPattern matches <sha256 hex>.<ext> cache files.
var cacheEntryPattern = regexp.MustCompile(`^[0-9a-f]{64}\.(jpg|png|gif|webp)$`)

// partialPattern matches temp files left by interrupted downloads.
var partialPattern = regexp.MustCompile(`^[0-9a-f]{64}-.*\.part$`)

// Stats summarizes a cache directory
type Stats struct {
	Entries int
	Bytes   int64
	ByExt   map[string]int
	Empty   []string
	Partial []string
	Foreign int
}

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	var assumeYes bool

	root := &cobra.Command{
		Use:           "imagecache",
		Short:         "Inspect and clean the column-export image cache",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	statsCmd := &cobra.Command{
		Use:   "stats <images-dir>",
		Short: "Report cache entries by extension",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := scanCache(args[0])
			if err != nil {
				return err
			}
			printStats(cmd.OutOrStdout(), args[0], stats)
			return nil
		},
	}

	cleanCmd := &cobra.Command{
		Use:   "clean <images-dir>",
		Short: "Remove partial downloads and zero-byte entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := scanCache(args[0])
			if err != nil {
				return err
			}
			reader := bufio.NewReader(cmd.InOrStdin())
			removed := 0
			for _, path := range append(stats.Partial, stats.Empty...) {
				if !assumeYes && !confirmDelete(reader, cmd.OutOrStdout(), path) {
					fmt.Fprintf(cmd.OutOrStdout(), "  SKIP: %s\n", filepath.Base(path))
					continue
				}
				if err := os.Remove(path); err != nil {
					log.Error().Err(err).Str("path", path).Msg("Error removing file")
					continue
				}
				removed++
				fmt.Fprintf(cmd.OutOrStdout(), "  REMOVED: %s\n", filepath.Base(path))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nRemoved %d files\n", removed)
			return nil
		},
	}
	cleanCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Delete without asking")

	root.AddCommand(statsCmd, cleanCmd)

	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("imagecache failed")
	}
}

func scanCache(dir string) (*Stats, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading cache directory: %w", err)
	}

	stats := &Stats{ByExt: make(map[string]int)}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		path := filepath.Join(dir, name)
		switch {
		case partialPattern.MatchString(name):
			stats.Partial = append(stats.Partial, path)
		case cacheEntryPattern.MatchString(name):
			info, err := e.Info()
			if err != nil {
				continue
			}
			if info.Size() == 0 {
				stats.Empty = append(stats.Empty, path)
				continue
			}
			stats.Entries++
			stats.Bytes += info.Size()
			stats.ByExt[strings.TrimPrefix(filepath.Ext(name), ".")]++
		default:
			stats.Foreign++
		}
	}
	return stats, nil
}

func printStats(w io.Writer, dir string, s *Stats) {
	fmt.Fprintf(w, "Cache: %s\n", dir)
	fmt.Fprintf(w, "Entries: %d (%d bytes)\n", s.Entries, s.Bytes)

	exts := make([]string, 0, len(s.ByExt))
	for ext := range s.ByExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	for _, ext := range exts {
		fmt.Fprintf(w, "  %-5s %d\n", ext, s.ByExt[ext])
	}
	fmt.Fprintf(w, "Empty: %d | Partial: %d | Other files: %d\n", len(s.Empty), len(s.Partial), s.Foreign)
}

func confirmDelete(reader *bufio.Reader, w io.Writer, path string) bool {
	for {
		fmt.Fprintf(w, "  DELETE %s? [y/N]: ", filepath.Base(path))
		input, err := reader.ReadString('\n')
		if err != nil && input == "" {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(input)) {
		case "y", "yes":
			return true
		case "", "n", "no":
			return false
		default:
			fmt.Fprintln(w, "  Please enter y or n.")
		}
	}
}
