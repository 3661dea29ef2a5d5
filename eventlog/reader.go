// Copyright (c) 2025 Neomantra Corp
//
// Streaming event log reader with row-group statistics pruning.
//
// The reader walks row groups in file order. A group is skipped only when
// its ts_event_ns / seq statistics prove that no row can satisfy the active
// filters; groups without statistics are never pruned. Surviving groups are
// decoded column-wise (dictionary columns through their per-file
// dictionary) and filtered row by row.
//
// Structural corruption (unreadable footer, truncated column chunks) is an
// error. A missing or false write_complete marker is only a warning: the
// caller decides whether to treat the file as usable or suspect.

package nexus_eventlog

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	pqfile "github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/metadata"

	nexus "github.com/skywalkerx28/nexus-sub000"
)

// ReaderOptions tunes a Reader. The zero value selects all defaults.
type ReaderOptions struct {
	// PreferDecimal reconstructs numeric fields from the fixed-point
	// decimal columns instead of the float columns.
	PreferDecimal bool
	Logger        *slog.Logger
}

type rowGroupStats struct {
	numRows int64
	hasTs   bool
	tsMin   int64
	tsMax   int64
	hasSeq  bool
	seqMin  uint64
	seqMax  uint64
}

// Reader streams events back out of one event log file.
type Reader struct {
	path   string
	file   *os.File
	pf     *pqfile.Reader
	logger *slog.Logger
	opts   ReaderOptions

	meta    *nexus.FileMetadata
	metaMap map[string]string
	stats   []rowGroupStats

	timeActive bool
	timeLo     int64
	timeHi     int64
	seqActive  bool
	seqLo      uint64
	seqHi      uint64

	groupIdx int // next row group to consider
	group    *decodedGroup
	rowIdx   int
	touched  int

	cur    *nexus.Event
	err    error
	closed bool
}

// OpenReader opens an event log file (canonical or `.partial` path), reads
// its footer and metadata, and indexes per-row-group statistics for the
// ts_event_ns and seq columns.
func OpenReader(path string, opts ReaderOptions) (*Reader, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	pf, err := pqfile.NewParquetReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read footer of %s: %w", path, err)
	}

	r := &Reader{
		path:   path,
		file:   f,
		pf:     pf,
		logger: opts.Logger,
		opts:   opts,
	}
	if err := r.loadMetadata(); err != nil {
		r.Close()
		return nil, err
	}
	if err := r.loadStats(); err != nil {
		r.Close()
		return nil, err
	}
	if r.meta != nil && !r.meta.WriteComplete {
		r.logger.Warn("file is not write-complete, treat as suspect",
			"path", path, "session", r.meta.IngestSessionID)
	}
	return r, nil
}

func (r *Reader) loadMetadata() error {
	r.metaMap = make(map[string]string)
	kv := r.pf.MetaData().KeyValueMetadata()
	if kv != nil {
		keys, values := kv.Keys(), kv.Values()
		for i := range keys {
			r.metaMap[keys[i]] = values[i]
		}
	}
	meta, err := nexus.FileMetadataFromMap(r.metaMap)
	if err != nil {
		// A file without our metadata is still scannable; callers that
		// need the contract check Metadata() for nil.
		r.logger.Warn("no event log metadata in footer", "path", r.path)
		return nil
	}
	if !strings.HasPrefix(meta.SchemaVersion, "1.") {
		return fmt.Errorf("%s: schema version %s is not readable by this library (wants 1.x)",
			r.path, meta.SchemaVersion)
	}
	r.meta = meta
	return nil
}

func (r *Reader) loadStats() error {
	md := r.pf.MetaData()
	r.stats = make([]rowGroupStats, r.pf.NumRowGroups())
	for i := 0; i < r.pf.NumRowGroups(); i++ {
		rgmd := md.RowGroup(i)
		gs := rowGroupStats{numRows: rgmd.NumRows()}

		if min, max, ok := int64ChunkStats(rgmd, Col_TsEventNs); ok {
			gs.hasTs, gs.tsMin, gs.tsMax = true, min, max
		}
		if min, max, ok := int64ChunkStats(rgmd, Col_Seq); ok {
			gs.hasSeq, gs.seqMin, gs.seqMax = true, uint64(min), uint64(max)
		}
		r.stats[i] = gs
	}
	return nil
}

// int64ChunkStats pulls min/max for an int64 column chunk, if present.
func int64ChunkStats(rgmd *metadata.RowGroupMetaData, col int) (int64, int64, bool) {
	ccmd, err := rgmd.ColumnChunk(col)
	if err != nil {
		return 0, 0, false
	}
	set, err := ccmd.StatsSet()
	if err != nil || !set {
		return 0, 0, false
	}
	stats, err := ccmd.Statistics()
	if err != nil || stats == nil {
		return 0, 0, false
	}
	typed, ok := stats.(*metadata.Int64Statistics)
	if !ok || !typed.HasMinMax() {
		return 0, 0, false
	}
	return typed.Min(), typed.Max(), true
}

// SetTimeRange filters subsequent reads to ts_event_ns in [startNs, endNs].
func (r *Reader) SetTimeRange(startNs int64, endNs int64) {
	r.timeActive = true
	r.timeLo, r.timeHi = startNs, endNs
}

// SetSeqRange filters subsequent reads to seq in [min, max].
func (r *Reader) SetSeqRange(min uint64, max uint64) {
	r.seqActive = true
	r.seqLo, r.seqHi = min, max
}

// ClearFilters removes all active filters.
func (r *Reader) ClearFilters() {
	r.timeActive = false
	r.seqActive = false
}

// pruned reports whether group i provably contains no matching row.
func (r *Reader) pruned(i int) bool {
	gs := &r.stats[i]
	if r.timeActive && gs.hasTs && (gs.tsMax < r.timeLo || gs.tsMin > r.timeHi) {
		return true
	}
	if r.seqActive && gs.hasSeq && (gs.seqMax < r.seqLo || gs.seqMin > r.seqHi) {
		return true
	}
	return false
}

// match applies the per-row predicate after pruning.
func (r *Reader) match(i int) bool {
	if r.timeActive {
		ts := r.group.tsEvent[i]
		if ts < r.timeLo || ts > r.timeHi {
			return false
		}
	}
	if r.seqActive {
		seq := uint64(r.group.seq[i])
		if seq < r.seqLo || seq > r.seqHi {
			return false
		}
	}
	return true
}

// Next advances to the next event passing the active filters. It returns
// false at end of stream or on error; check Err afterwards.
func (r *Reader) Next() bool {
	if r.closed || r.err != nil {
		return false
	}
	for {
		if r.group != nil && r.rowIdx < int(r.group.numRows) {
			i := r.rowIdx
			r.rowIdx++
			if r.match(i) {
				r.cur = r.group.event(i, r.opts.PreferDecimal)
				return true
			}
			continue
		}

		r.group = nil
		for r.groupIdx < len(r.stats) && r.pruned(r.groupIdx) {
			r.groupIdx++
		}
		if r.groupIdx >= len(r.stats) {
			r.cur = nil
			return false
		}
		group, err := decodeGroup(r.pf.RowGroup(r.groupIdx), r.stats[r.groupIdx].numRows)
		if err != nil {
			r.err = fmt.Errorf("failed to decode row group %d of %s: %w", r.groupIdx, r.path, err)
			return false
		}
		r.touched++
		r.groupIdx++
		r.group = group
		r.rowIdx = 0
	}
}

// Event returns the event produced by the last successful Next.
func (r *Reader) Event() *nexus.Event {
	return r.cur
}

// Err returns the first structural error encountered, if any.
func (r *Reader) Err() error {
	return r.err
}

// Reset rewinds the reader to the first matching row group under the
// current filters and zeroes the RowGroupsTouched counter.
func (r *Reader) Reset() {
	r.groupIdx = 0
	r.group = nil
	r.rowIdx = 0
	r.touched = 0
	r.cur = nil
}

// Metadata returns the typed footer metadata, or nil if the file carries
// none.
func (r *Reader) Metadata() *nexus.FileMetadata {
	return r.meta
}

// MetadataMap returns the raw footer key/value metadata.
func (r *Reader) MetadataMap() map[string]string {
	return r.metaMap
}

// NumRows returns the total row count of the file.
func (r *Reader) NumRows() int64 {
	return r.pf.NumRows()
}

// RowGroupCount returns how many row groups the file contains.
func (r *Reader) RowGroupCount() int {
	return r.pf.NumRowGroups()
}

// RowGroupsTouched returns how many row groups have been decoded since the
// last Reset — the observability hook for pruning effectiveness.
func (r *Reader) RowGroupsTouched() int {
	return r.touched
}

// Close releases the underlying file. The reader is unusable afterwards.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	err := r.pf.Close()
	// The parquet reader may already have closed the underlying file.
	if cerr := r.file.Close(); cerr != nil && !errors.Is(cerr, os.ErrClosed) && err == nil {
		err = cerr
	}
	return err
}
