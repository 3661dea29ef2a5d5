// Copyright (c) 2025 Neomantra Corp

package file

import (
	"fmt"

	"github.com/neomantra/ymdflag"

	nexus "github.com/skywalkerx28/nexus-sub000"
	"github.com/skywalkerx28/nexus-sub000/eventlog"
)

// SplitFile re-buckets an arbitrary event log file into the canonical
// partition layout under destDir: one output file per (symbol, UTC day)
// encountered, each carrying the source file's session id and feed mode.
// Useful for repairing a salvaged `.partial` or a hand-assembled capture.
func SplitFile(sourceFilename string, destDir string, verbose bool) error {
	reader, err := nexus_eventlog.OpenReader(sourceFilename, nexus_eventlog.ReaderOptions{})
	if err != nil {
		return fmt.Errorf("failed to open '%s' for reading: %w", sourceFilename, err)
	}
	defer reader.Close()
	sourceMeta := reader.Metadata()

	type splitKey struct {
		symbol string
		ymd    int
	}
	writerMap := make(map[splitKey]*nexus_eventlog.Writer)
	defer func() {
		for _, w := range writerMap {
			w.Close()
		}
	}()

	var rows int64
	for reader.Next() {
		ev := reader.Event()
		recordTime := nexus.TimestampToTime(ev.Header.TsEventNs)
		key := splitKey{symbol: ev.Header.Symbol, ymd: ymdflag.TimeToYMD(recordTime)}

		w, ok := writerMap[key]
		if !ok {
			path := nexus_eventlog.PartitionPath(destDir, ev.Header.Symbol, ev.Header.TsEventNs)
			w, err = nexus_eventlog.NewWriter(path, nexus_eventlog.WriterOptions{})
			if err != nil {
				return fmt.Errorf("failed to create writer for %s: %w", path, err)
			}
			if sourceMeta != nil {
				if sourceMeta.IngestSessionID != "" {
					w.SetIngestSessionID(sourceMeta.IngestSessionID)
				}
				if sourceMeta.FeedMode.IsValid() {
					w.SetFeedMode(sourceMeta.FeedMode)
				}
			}
			writerMap[key] = w
		}
		w.Append(ev)
		rows++
	}
	if err := reader.Err(); err != nil {
		return fmt.Errorf("reader error on '%s': %w", sourceFilename, err)
	}

	for key, w := range writerMap {
		if err := w.Close(); err != nil {
			return fmt.Errorf("failed to close %s: %w", w.Path(), err)
		}
		if verbose {
			fmt.Printf("%s %d rows -> %s\n", key.symbol, w.Rows(), w.Path())
		}
	}
	return nil
}
