// Copyright (c) 2025 Neomantra Corp

package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/neomantra/ymdflag"
	"github.com/relvacode/iso8601"
	"github.com/segmentio/encoding/json"
	"github.com/spf13/cobra"

	nexus_file "github.com/skywalkerx28/nexus-sub000/internal/file"

	nexus "github.com/skywalkerx28/nexus-sub000"
	"github.com/skywalkerx28/nexus-sub000/eventlog"
)

///////////////////////////////////////////////////////////////////////////////

var (
	verbose bool

	destDir string // destination directory for split

	outFilename string // output filename for json export, "-" for stdout
	forceZstd   bool   // force zstd on the export output

	lsSymbol string
	lsDate   ymdflag.YMDFlag

	scanStart  string // ISO 8601 start of the time filter
	scanEnd    string // ISO 8601 end of the time filter
	scanSeqMin uint64
	scanSeqMax uint64
)

func requireNoError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		os.Exit(1)
	}
}

func requireNoErrorWithoutPrint(err error) {
	if err != nil {
		os.Exit(1)
	}
}

///////////////////////////////////////////////////////////////////////////////

func main() {
	cobra.OnInitialize()

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(printMetadataCmd)

	rootCmd.AddCommand(jsonPrintCmd)
	jsonPrintCmd.Flags().StringVarP(&outFilename, "out", "o", "-", "Output filename ('-' for stdout, '.zst' suffix compresses)")
	jsonPrintCmd.Flags().BoolVarP(&forceZstd, "zstd", "z", false, "Force zstd compression of the output")

	rootCmd.AddCommand(splitFilesCmd)
	splitFilesCmd.Flags().StringVarP(&destDir, "dest", "d", "", "Destination directory")
	splitFilesCmd.MarkFlagRequired("dest")

	rootCmd.AddCommand(lsCmd)
	lsCmd.Flags().StringVarP(&lsSymbol, "symbol", "s", "", "Restrict to one symbol")
	lsCmd.Flags().VarP(&lsDate, "date", "t", "Restrict to one YYYYMMDD date")

	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVar(&scanStart, "start", "", "Start of ts_event filter, ISO 8601")
	scanCmd.Flags().StringVar(&scanEnd, "end", "", "End of ts_event filter, ISO 8601")
	scanCmd.Flags().Uint64Var(&scanSeqMin, "seq-min", 0, "Minimum seq (inclusive)")
	scanCmd.Flags().Uint64Var(&scanSeqMax, "seq-max", 0, "Maximum seq (inclusive)")

	err := rootCmd.Execute()
	requireNoErrorWithoutPrint(err)
}

///////////////////////////////////////////////////////////////////////////////

var rootCmd = &cobra.Command{
	Use:   "nexus-file",
	Short: "nexus-file processes nexus event log files",
	Long:  "nexus-file processes nexus event log files",
}

///////////////////////////////////////////////////////////////////////////////

var printMetadataCmd = &cobra.Command{
	Use:   "metadata file...",
	Short: `Prints the specified file's metadata as JSON`,
	Long:  `Prints the specified file's metadata as JSON`,
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		for _, sourceFile := range args {
			if err := printMetadata(sourceFile); err != nil {
				fmt.Fprintf(os.Stderr, "error: reading %s: %s\n", sourceFile, err.Error())
			}
		}
	},
}

func printMetadata(sourceFile string) error {
	reader, err := nexus_eventlog.OpenReader(sourceFile, nexus_eventlog.ReaderOptions{})
	if err != nil {
		return err
	}
	defer reader.Close()

	info := struct {
		Metadata  *nexus.FileMetadata `json:"metadata"`
		Rows      int64               `json:"rows"`
		RowGroups int                 `json:"row_groups"`
		FileSize  string              `json:"file_size"`
	}{
		Metadata:  reader.Metadata(),
		Rows:      reader.NumRows(),
		RowGroups: reader.RowGroupCount(),
	}
	if st, err := os.Stat(sourceFile); err == nil {
		info.FileSize = humanize.Bytes(uint64(st.Size()))
	}

	jstr, err := json.Marshal(&info)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	fmt.Printf("%s\n", jstr)
	return nil
}

///////////////////////////////////////////////////////////////////////////////

var jsonPrintCmd = &cobra.Command{
	Use:   "json file...",
	Short: `Prints the specified file's events as NDJSON`,
	Long:  `Prints the specified file's events as NDJSON (works on .partial files too)`,
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		writer, closer, err := nexus.MakeCompressedWriter(outFilename, forceZstd)
		requireNoError(err)
		defer closer()

		for _, sourceFile := range args {
			if err := nexus_file.WriteEventLogAsJson(sourceFile, writer); err != nil {
				fmt.Fprintf(os.Stderr, "error: exporting %s: %s\n", sourceFile, err.Error())
			}
		}
	},
}

///////////////////////////////////////////////////////////////////////////////

var splitFilesCmd = &cobra.Command{
	Use:   "split file...",
	Short: `Splits event log files into "<dest>/<SYMBOL>/YYYY/MM/DD.parquet"`,
	Long: `Splits event log files into "<dest>/<SYMBOL>/YYYY/MM/DD.parquet"
Useful for re-bucketing a salvaged .partial capture into the canonical layout.
`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := os.MkdirAll(destDir, os.ModePerm); err != nil {
			fmt.Fprintf(os.Stderr, "error: dest directory creation failed with: %s\n", err.Error())
			os.Exit(1)
		}
		for _, sourceFile := range args {
			if err := nexus_file.SplitFile(sourceFile, destDir, verbose); err != nil {
				fmt.Fprintf(os.Stderr, "error: splitting %s: %s\n", sourceFile, err.Error())
			}
		}
	},
}

///////////////////////////////////////////////////////////////////////////////

var lsCmd = &cobra.Command{
	Use:   "ls base_dir",
	Short: `Lists published partitions and flags orphaned .partial files`,
	Long:  `Lists published partitions and flags orphaned .partial files`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		base := args[0]

		var files []string
		var err error
		if lsSymbol != "" {
			files, err = nexus_eventlog.ListSymbolFiles(base, lsSymbol)
		} else {
			files, err = nexus_eventlog.ListFiles(base)
		}
		requireNoError(err)

		wantYMD := 0
		if !lsDate.IsZero() {
			wantYMD = lsDate.AsYMD()
		}
		for _, path := range files {
			symbol, year, month, day, perr := nexus_eventlog.ParsePartitionPath(path)
			if perr != nil {
				continue
			}
			if wantYMD != 0 && wantYMD != year*10000+month*100+day {
				continue
			}
			if verbose {
				fmt.Printf("%s %s %04d-%02d-%02d\n", path, symbol, year, month, day)
			} else {
				fmt.Println(path)
			}
		}

		partials, err := nexus_eventlog.ListPartialFiles(base)
		requireNoError(err)
		for _, path := range partials {
			fmt.Fprintf(os.Stderr, "warning: orphaned partial file: %s\n", path)
		}
	},
}

///////////////////////////////////////////////////////////////////////////////

var scanCmd = &cobra.Command{
	Use:   "scan file...",
	Short: `Scans files under time/seq filters, printing events as NDJSON`,
	Long: `Scans files under time/seq filters, printing events as NDJSON.
Reports row group pruning effectiveness on stderr with --verbose.
`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		for _, sourceFile := range args {
			if err := scanFile(sourceFile); err != nil {
				fmt.Fprintf(os.Stderr, "error: scanning %s: %s\n", sourceFile, err.Error())
			}
		}
	},
}

func scanFile(sourceFile string) error {
	reader, err := nexus_eventlog.OpenReader(sourceFile, nexus_eventlog.ReaderOptions{})
	if err != nil {
		return err
	}
	defer reader.Close()

	if scanStart != "" || scanEnd != "" {
		startNs := nexus.MinSaneTimestampNs
		endNs := nexus.MaxSaneTimestampNs
		if scanStart != "" {
			t, err := iso8601.ParseString(scanStart)
			if err != nil {
				return fmt.Errorf("failed to parse --start as ISO 8601 time: %w", err)
			}
			startNs = t.UnixNano()
		}
		if scanEnd != "" {
			t, err := iso8601.ParseString(scanEnd)
			if err != nil {
				return fmt.Errorf("failed to parse --end as ISO 8601 time: %w", err)
			}
			endNs = t.UnixNano()
		}
		reader.SetTimeRange(startNs, endNs)
	}
	if scanSeqMin != 0 || scanSeqMax != 0 {
		max := scanSeqMax
		if max == 0 {
			max = ^uint64(0)
		}
		reader.SetSeqRange(scanSeqMin, max)
	}

	visitor := nexus_file.NewJsonWriterVisitor(os.Stdout)
	for reader.Next() {
		if err := reader.Event().Visit(visitor); err != nil {
			return err
		}
	}
	if err := reader.Err(); err != nil {
		return err
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "%s: touched %d of %d row groups\n",
			sourceFile, reader.RowGroupsTouched(), reader.RowGroupCount())
	}
	return nil
}
