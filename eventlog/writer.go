// Copyright (c) 2025 Neomantra Corp
//
// Batched, validated, atomic event log writer.
//
// All bytes go to a `path.partial` sibling; the canonical path appears in a
// single rename once the footer (carrying write_complete=true) is on disk.
// A crash at any earlier point leaves only the `.partial` file, which normal
// readers never see. The writer owns its file exclusively until close and
// is not safe for concurrent use; each (symbol, date) partition gets its
// own writer instance.

package nexus_eventlog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	pqfile "github.com/apache/arrow-go/v18/parquet/file"
	"github.com/google/uuid"

	nexus "github.com/skywalkerx28/nexus-sub000"
)

const (
	DefaultBatchSize          = 10_000
	DefaultRowGroupTargetRows = 250_000
	DefaultCompressionLevel   = 3
	DefaultDataPageSize       = 1024 * 1024
)

// WriterOptions tunes a Writer. The zero value selects all defaults.
type WriterOptions struct {
	BatchSize          int   // rows buffered in memory before a batch write
	RowGroupTargetRows int64 // rows per row group before rotation
	CompressionLevel   int   // zstd level applied to all columns
	DataPageSize       int64 // bytes per data page within a row group
	Logger             *slog.Logger
}

func (o *WriterOptions) setDefaults() {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.RowGroupTargetRows <= 0 {
		o.RowGroupTargetRows = DefaultRowGroupTargetRows
	}
	if o.CompressionLevel <= 0 {
		o.CompressionLevel = DefaultCompressionLevel
	}
	if o.DataPageSize <= 0 {
		o.DataPageSize = DefaultDataPageSize
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Writer appends validated events to one event log file.
type Writer struct {
	path    string // canonical path, appears only after Close
	partial string // the .partial sibling receiving all writes
	opts    WriterOptions
	logger  *slog.Logger

	file *os.File
	pw   *pqfile.Writer
	rgw  pqfile.BufferedRowGroupWriter

	batch       *eventBatch
	pending     int   // rows in the in-memory batch
	rowsInGroup int64 // rows flushed into the open row group

	meta       nexus.FileMetadata
	lastHeader *nexus.EventHeader // last accepted header, for ordering checks

	rows       int64
	rejections int64
	closed     bool
	failed     bool
}

// NewWriter reserves `path` by opening its `.partial` sibling, creating any
// missing parent directories, and prepares the columnar builders. Metadata
// is stamped with a fresh ingest session id, the local hostname, and the
// current wall clock; SetIngestSessionID and SetFeedMode may override the
// defaults before the first Append.
func NewWriter(path string, opts WriterOptions) (*Writer, error) {
	opts.setDefaults()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create partition directory: %w", err)
	}
	partial := PartialPath(path)
	f, err := os.OpenFile(partial, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", partial, err)
	}

	props := parquet.NewWriterProperties(
		parquet.WithVersion(parquet.V2_LATEST),
		parquet.WithCompression(compress.Codecs.Zstd),
		parquet.WithCompressionLevel(opts.CompressionLevel),
		parquet.WithDictionaryDefault(true),
		parquet.WithDataPageSize(opts.DataPageSize),
	)
	pw := pqfile.NewParquetWriter(f, EventGroupNode(), pqfile.WithWriterProps(props))

	hostname, _ := os.Hostname()
	w := &Writer{
		path:    path,
		partial: partial,
		opts:    opts,
		logger:  opts.Logger,
		file:    f,
		pw:      pw,
		rgw:     pw.AppendBufferedRowGroup(),
		batch:   newEventBatch(opts.BatchSize),
		meta: nexus.FileMetadata{
			SchemaVersion:   nexus.SchemaVersion,
			NexusVersion:    nexus.NexusVersion,
			IngestSessionID: uuid.NewString(),
			IngestStartNs:   time.Now().UnixNano(),
			IngestHost:      hostname,
			FeedMode:        nexus.FeedMode_Live,
			WriteComplete:   false,
		},
	}
	return w, nil
}

// SetIngestSessionID overrides the generated session id. Must be called
// before the first Append; afterwards the call is ignored with a warning
// because metadata is already partly populated.
func (w *Writer) SetIngestSessionID(id string) {
	if w.rows > 0 {
		w.logger.Warn("ignoring late SetIngestSessionID, metadata already populated",
			"path", w.path)
		return
	}
	w.meta.IngestSessionID = id
}

// SetFeedMode records the upstream feed mode in file metadata. Must be
// called before the first Append; late calls are ignored with a warning.
func (w *Writer) SetFeedMode(mode nexus.FeedMode) {
	if w.rows > 0 {
		w.logger.Warn("ignoring late SetFeedMode, metadata already populated",
			"path", w.path)
		return
	}
	w.meta.FeedMode = mode
}

// Append validates the event against the last accepted header and, on
// acceptance, buffers one row across all columns. Rejected events are
// logged with their broken invariant, counted, and dropped; file state is
// untouched and Append returns false. A full batch triggers an internal
// flush; an I/O failure there poisons the writer.
func (w *Writer) Append(ev *nexus.Event) bool {
	if w.closed || w.failed {
		w.logger.Warn("append on closed writer", "path", w.path)
		return false
	}

	if err := nexus.Validate(ev, w.lastHeader); err != nil {
		if ve, ok := err.(*nexus.ValidationError); ok {
			w.rejections++
			w.logger.Warn("event rejected",
				"invariant", ve.Invariant,
				"reason", ve.Reason,
				"symbol", ev.Header.Symbol,
				"seq", ev.Header.Seq,
			)
		} else {
			// Malformed variant: programmer error upstream, not bad data.
			w.logger.Error("malformed event", "error", err, "type", ev.Header.Type)
		}
		return false
	}

	if w.rows == 0 {
		if w.meta.Symbol == "" {
			w.meta.Symbol = ev.Header.Symbol
		}
		if w.meta.Venue == "" {
			w.meta.Venue = ev.Header.Venue
		}
		if w.meta.Source == "" {
			w.meta.Source = ev.Header.Source
		}
	}

	w.batch.appendEvent(ev)
	w.pending++
	w.rows++
	hdr := ev.Header
	w.lastHeader = &hdr
	w.meta.IngestEndNs = ev.Header.TsReceiveNs

	if w.pending >= w.opts.BatchSize {
		if err := w.Flush(); err != nil {
			w.logger.Error("batch flush failed", "path", w.path, "error", err)
			return false
		}
	}
	return true
}

// Flush writes the in-memory batch into the open row group and resets the
// builders. The file stays open and subsequent Appends continue. Flushing
// an empty batch is a no-op, so repeated calls are idempotent.
func (w *Writer) Flush() error {
	if w.failed {
		return nexus.ErrWriterFailed
	}
	if w.closed {
		return nexus.ErrWriterClosed
	}
	if w.pending == 0 {
		return nil
	}

	// Rotate lazily, before the batch lands, so a file never ends in an
	// empty trailing row group.
	if w.rowsInGroup >= w.opts.RowGroupTargetRows {
		if err := w.rgw.Close(); err != nil {
			w.poison()
			return fmt.Errorf("failed to close row group: %w", err)
		}
		w.rgw = w.pw.AppendBufferedRowGroup()
		w.rowsInGroup = 0
	}

	if err := w.batch.writeTo(w.rgw); err != nil {
		w.poison()
		return fmt.Errorf("failed to write batch: %w", err)
	}
	w.rowsInGroup += int64(w.pending)
	w.pending = 0
	w.batch.reset()
	return nil
}

// Close flushes any remaining batch, marks write_complete=true in the
// footer metadata, finishes the file, and atomically publishes it by
// renaming `.partial` to the canonical path followed by an fsync of the
// parent directory. A second call is a no-op.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	if w.failed {
		return nexus.ErrWriterFailed
	}
	if err := w.seal(true); err != nil {
		return err
	}
	if err := os.Rename(w.partial, w.path); err != nil {
		w.failed = true
		return fmt.Errorf("failed to publish %s: %w", w.path, err)
	}
	syncDir(filepath.Dir(w.path), w.logger)
	return nil
}

// Abort finalizes the footer into the `.partial` file without the
// write_complete marker and without publishing. The result is exactly what
// a crashed writer leaves behind: invisible to normal readers, salvageable
// by opening the partial path, detectable by its false marker.
func (w *Writer) Abort() error {
	if w.closed {
		return nil
	}
	return w.seal(false)
}

func (w *Writer) seal(complete bool) error {
	if err := w.Flush(); err != nil {
		return err
	}
	w.meta.WriteComplete = complete
	if complete {
		w.meta.IngestEndNs = time.Now().UnixNano()
	}
	for key, value := range w.meta.ToMap() {
		if err := w.pw.AppendKeyValueMetadata(key, value); err != nil {
			w.poison()
			return fmt.Errorf("failed to append metadata %s: %w", key, err)
		}
	}
	if err := w.rgw.Close(); err != nil {
		w.poison()
		return fmt.Errorf("failed to close row group: %w", err)
	}
	if err := w.pw.FlushWithFooter(); err != nil {
		w.poison()
		return fmt.Errorf("failed to write footer: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		w.poison()
		return fmt.Errorf("failed to sync %s: %w", w.partial, err)
	}
	if err := w.file.Close(); err != nil {
		w.failed = true
		w.closed = true
		return fmt.Errorf("failed to close %s: %w", w.partial, err)
	}
	w.closed = true
	return nil
}

// poison marks the writer dead after an I/O failure. The .partial file
// remains on disk as the forensic artifact; further appends are refused.
func (w *Writer) poison() {
	w.failed = true
	w.closed = true
	w.file.Close()
}

// syncDir fsyncs a directory so the rename itself is durable. Some
// platforms cannot fsync directories; that is a warning, not a failure.
func syncDir(dir string, logger *slog.Logger) {
	d, err := os.Open(dir)
	if err != nil {
		logger.Warn("cannot open directory for fsync", "dir", dir, "error", err)
		return
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		logger.Warn("directory fsync unsupported", "dir", dir, "error", err)
	}
}

// Rows returns the count of accepted events.
func (w *Writer) Rows() int64 { return w.rows }

// Rejections returns the count of validation rejections.
func (w *Writer) Rejections() int64 { return w.rejections }

// Failed reports whether a prior I/O error poisoned the writer.
func (w *Writer) Failed() bool { return w.failed }

// Closed reports whether the writer has been closed or aborted.
func (w *Writer) Closed() bool { return w.closed }

// Path returns the canonical path this writer publishes to.
func (w *Writer) Path() string { return w.path }

// Metadata returns a copy of the current file metadata.
func (w *Writer) Metadata() nexus.FileMetadata { return w.meta }
