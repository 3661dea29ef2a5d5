// Copyright (c) 2025 Neomantra Corp
//
// Stateless partition path helpers. One (symbol, UTC date) partition maps
// to `{base}/{symbol}/{YYYY}/{MM}/{DD}.parquet`; month and day are
// zero-padded so lexicographic order equals chronological order.

package nexus_eventlog

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	nexus "github.com/skywalkerx28/nexus-sub000"
)

// FileSuffix is the extension of published event log files.
const FileSuffix = ".parquet"

// PartialSuffix marks a file that is in progress or crashed mid-write.
const PartialSuffix = ".partial"

// PartitionPath returns the canonical path for a symbol and event timestamp.
// The date fields come from tsEventNs interpreted in UTC.
func PartitionPath(base string, symbol string, tsEventNs int64) string {
	t := nexus.TimestampToTime(tsEventNs)
	return filepath.Join(base, symbol,
		fmt.Sprintf("%04d", t.Year()),
		fmt.Sprintf("%02d", int(t.Month())),
		fmt.Sprintf("%02d%s", t.Day(), FileSuffix))
}

// PartialPath returns the in-progress sibling for a canonical path.
func PartialPath(path string) string {
	return path + PartialSuffix
}

// ParsePartitionPath parses a canonical path back into its
// (symbol, year, month, day) coordinates. The base prefix, if any, is
// ignored. Returns ErrNotPartitionPath for anything else.
func ParsePartitionPath(path string) (symbol string, year int, month int, day int, err error) {
	name := filepath.Base(path)
	if !strings.HasSuffix(name, FileSuffix) {
		return "", 0, 0, 0, nexus.ErrNotPartitionPath
	}
	dayStr := strings.TrimSuffix(name, FileSuffix)

	monthDir := filepath.Dir(path)
	yearDir := filepath.Dir(monthDir)
	symbolDir := filepath.Dir(yearDir)
	if monthDir == "." || yearDir == "." || symbolDir == "." {
		return "", 0, 0, 0, nexus.ErrNotPartitionPath
	}

	day, err = strconv.Atoi(dayStr)
	if err != nil || len(dayStr) != 2 || day < 1 || day > 31 {
		return "", 0, 0, 0, nexus.ErrNotPartitionPath
	}
	monthStr := filepath.Base(monthDir)
	month, err = strconv.Atoi(monthStr)
	if err != nil || len(monthStr) != 2 || month < 1 || month > 12 {
		return "", 0, 0, 0, nexus.ErrNotPartitionPath
	}
	yearStr := filepath.Base(yearDir)
	year, err = strconv.Atoi(yearStr)
	if err != nil || len(yearStr) != 4 {
		return "", 0, 0, 0, nexus.ErrNotPartitionPath
	}
	symbol = filepath.Base(symbolDir)
	if symbol == "" || symbol == "." || symbol == string(filepath.Separator) {
		return "", 0, 0, 0, nexus.ErrNotPartitionPath
	}
	return symbol, year, month, day, nil
}

// ListSymbolFiles returns every published file for one symbol under base,
// sorted lexicographically (which is chronological). `.partial` files are
// excluded: in-progress or crashed output is invisible to normal readers.
func ListSymbolFiles(base string, symbol string) ([]string, error) {
	return listFiles(filepath.Join(base, symbol))
}

// ListFiles returns every published file for all symbols under base,
// sorted lexicographically.
func ListFiles(base string) ([]string, error) {
	return listFiles(base)
}

// ListPartialFiles returns orphaned `.partial` files under base — the
// primary forensic signal after a crash.
func ListPartialFiles(base string) ([]string, error) {
	var partials []string
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, FileSuffix+PartialSuffix) {
			partials = append(partials, path)
		}
		return nil
	})
	if os.IsNotExist(err) {
		return nil, nil
	}
	sort.Strings(partials)
	return partials, err
}

func listFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, FileSuffix) {
			files = append(files, path)
		}
		return nil
	})
	if os.IsNotExist(err) {
		return nil, nil
	}
	sort.Strings(files)
	return files, err
}
