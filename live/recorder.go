// Copyright (c) 2025 Neomantra Corp
//
// The ingestion recorder: turns raw broker ticks into validated events in
// per-symbol daily log files.
//
// One recorder owns one ingest session (a fresh 128-bit session id, seq
// counters restarting at 1). Sequence counters survive reconnects — a
// session spans them — but not process restarts; consumers dedupe across
// sessions with the session id in file metadata.
//
// OnTick runs to completion for each tick before the next is dispatched.
// The periodic clock loop (time-based flushes, UTC rollover) shares the
// recorder mutex with OnTick, so writers are never touched concurrently.

package nexus_live

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	nexus "github.com/skywalkerx28/nexus-sub000"
	"github.com/skywalkerx28/nexus-sub000/eventlog"
)

const (
	DefaultFlushRows          = 2_000
	DefaultFlushInterval      = 2 * time.Second
	DefaultBaseReconnectDelay = 5 * time.Second
	DefaultMaxReconnectDelay  = 60 * time.Second
)

// RecorderConfig configures a Recorder.
type RecorderConfig struct {
	BaseDirectory      string
	Symbols            []string
	Source             string // stream source tag stamped into every header
	Venue              string // venue used when a tick does not carry one
	FlushRows          int
	FlushInterval      time.Duration
	BaseReconnectDelay time.Duration
	MaxReconnectDelay  time.Duration
	Writer             nexus_eventlog.WriterOptions
	Logger             *slog.Logger
}

func (c *RecorderConfig) validate() error {
	if c.BaseDirectory == "" {
		return fmt.Errorf("field BaseDirectory is unset")
	}
	if len(c.Symbols) == 0 {
		return fmt.Errorf("field Symbols is empty")
	}
	if c.Source == "" {
		return fmt.Errorf("field Source is unset")
	}
	return nil
}

func (c *RecorderConfig) setDefaults() {
	if c.FlushRows <= 0 {
		c.FlushRows = DefaultFlushRows
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = DefaultFlushInterval
	}
	if c.BaseReconnectDelay <= 0 {
		c.BaseReconnectDelay = DefaultBaseReconnectDelay
	}
	if c.MaxReconnectDelay <= 0 {
		c.MaxReconnectDelay = DefaultMaxReconnectDelay
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// writerEntry tracks one symbol's open writer and its flush bookkeeping.
type writerEntry struct {
	w             *nexus_eventlog.Writer
	dateYMD       uint32
	rowsSinceFlush int
	lastFlush     time.Time
}

// Recorder consumes raw ticks and drives per-partition writers.
type Recorder struct {
	cfg     RecorderConfig
	logger  *slog.Logger
	metrics *Metrics

	feed     Feed
	fallback Feed // optional delayed fallback

	mu        sync.Mutex
	writers   map[string]*writerEntry
	seqs      map[string]uint64
	received  map[string]uint64
	written   map[string]uint64
	rejected  map[string]uint64
	malformed map[string]uint64

	sessionID    string
	feedMode     nexus.FeedMode
	monoBase     time.Time
	lastDateYMD  uint32
	connected    bool
	everUp       bool
	reconnects   uint64
	connErrors   uint64
	closed       bool
}

// NewRecorder builds a recorder over a primary feed and an optional
// delayed fallback. The session id is generated here, once per lifetime.
func NewRecorder(cfg RecorderConfig, feed Feed, fallback Feed) (*Recorder, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cfg.setDefaults()
	now := time.Now()
	return &Recorder{
		cfg:         cfg,
		logger:      cfg.Logger.With("component", "recorder"),
		metrics:     NewMetrics(),
		feed:        feed,
		fallback:    fallback,
		writers:     make(map[string]*writerEntry),
		seqs:        make(map[string]uint64),
		received:    make(map[string]uint64),
		written:     make(map[string]uint64),
		rejected:    make(map[string]uint64),
		malformed:   make(map[string]uint64),
		sessionID:   uuid.NewString(),
		feedMode:    feed.Mode(),
		monoBase:    now,
		lastDateYMD: nexus.TimeToYMD(now.UTC()),
	}, nil
}

// SessionID returns this recorder lifetime's ingest session id.
func (r *Recorder) SessionID() string { return r.sessionID }

// Metrics returns the recorder's prometheus collectors.
func (r *Recorder) Metrics() *Metrics { return r.metrics }

// OnTick is the adapter-facing entry point: normalize, sequence, append,
// and apply the flush policy, all under the recorder lock.
func (r *Recorder) OnTick(symbol string, tick RawTick) {
	start := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	mode := string(r.feedMode)
	r.received[symbol]++
	r.metrics.EventsReceived.WithLabelValues(symbol, mode).Inc()

	ev, ok := r.normalize(symbol, tick)
	if !ok {
		r.malformed[symbol]++
		r.metrics.MalformedTicks.WithLabelValues(symbol, mode).Inc()
		return
	}

	entry := r.writerFor(symbol, ev.Header.TsEventNs)
	if entry == nil {
		return // storage failure, already escalated in the log
	}

	r.seqs[symbol]++
	ev.Header.Seq = r.seqs[symbol]
	r.metrics.CurrentSeq.WithLabelValues(symbol).Set(float64(r.seqs[symbol]))

	if entry.w.Append(ev) {
		r.written[symbol]++
		r.metrics.EventsWritten.WithLabelValues(symbol, mode).Inc()
		entry.rowsSinceFlush++
	} else {
		r.rejected[symbol]++
		r.metrics.EventsRejected.WithLabelValues(symbol, mode).Inc()
	}

	// Flush when either bound trips: row count or elapsed time. This caps
	// worst-case loss on an abrupt crash at roughly the flush interval.
	if entry.rowsSinceFlush >= r.cfg.FlushRows ||
		time.Since(entry.lastFlush) >= r.cfg.FlushInterval {
		r.flushEntry(symbol, entry)
	}

	latency := time.Duration(ev.Header.TsReceiveNs - ev.Header.TsEventNs)
	if latency > 0 {
		r.metrics.LatencySeconds.WithLabelValues(symbol, mode).Observe(latency.Seconds())
	}
	r.metrics.TickSeconds.WithLabelValues(symbol, mode).Observe(time.Since(start).Seconds())
}

// normalize builds a canonical event from a raw tick. Ticks with missing
// or non-finite numerics are skipped here, before they can burn a writer
// rejection.
func (r *Recorder) normalize(symbol string, tick RawTick) (*nexus.Event, bool) {
	wallNs := time.Now().UnixNano()
	monoNs := time.Since(r.monoBase).Nanoseconds()

	// Best-effort event time: trust the source timestamp only inside the
	// sanity window, otherwise fall back to the local wall clock.
	tsEventNs := wallNs
	if tick.TsEventNs != 0 && nexus.IsSaneTimestamp(tick.TsEventNs) {
		tsEventNs = tick.TsEventNs
	}

	venue := tick.Venue
	if venue == "" {
		venue = r.cfg.Venue
	}
	header := nexus.EventHeader{
		TsEventNs:     tsEventNs,
		TsReceiveNs:   wallNs,
		TsMonotonicNs: monoNs,
		Venue:         venue,
		Symbol:        symbol,
		Source:        r.cfg.Source,
	}

	switch tick.Kind {
	case RawTick_Trade:
		price, size := tick.Price.InexactFloat64(), tick.Size.InexactFloat64()
		if !finitePositive(price) || !finitePositive(size) {
			return nil, false
		}
		return nexus.NewTrade(header, nexus.Trade{
			Price:     price,
			Size:      size,
			Aggressor: InferAggressor(price, tick.Bid, tick.Ask),
		}), true

	case RawTick_Depth:
		price, size := tick.Price.InexactFloat64(), tick.Size.InexactFloat64()
		if !finite(price) || !finite(size) || size < 0 {
			return nil, false
		}
		if tick.Op != string(nexus.DepthOp_Delete) && price <= 0 {
			return nil, false
		}
		return nexus.NewDepthUpdate(header, nexus.DepthUpdate{
			Side:  nexus.Side(tick.Side),
			Price: price,
			Size:  size,
			Level: tick.Level,
			Op:    nexus.DepthOp(tick.Op),
		}), true

	case RawTick_Order:
		price := tick.Price.InexactFloat64()
		size := tick.Size.InexactFloat64()
		filled := tick.Filled.InexactFloat64()
		if !finite(price) || !finite(size) || !finite(filled) {
			return nil, false
		}
		return nexus.NewOrderEvent(header, nexus.OrderEvent{
			OrderID: tick.OrderID,
			State:   nexus.OrderState(tick.State),
			Price:   price,
			Size:    size,
			Filled:  filled,
			Reason:  tick.Reason,
		}), true

	case RawTick_Bar:
		bar := nexus.Bar{
			TsOpenNs:  tick.TsOpenNs,
			TsCloseNs: tick.TsCloseNs,
			Open:      tick.Open.InexactFloat64(),
			High:      tick.High.InexactFloat64(),
			Low:       tick.Low.InexactFloat64(),
			Close:     tick.Close.InexactFloat64(),
			Volume:    tick.Volume.InexactFloat64(),
		}
		if !finite(bar.Open) || !finite(bar.High) || !finite(bar.Low) ||
			!finite(bar.Close) || !finite(bar.Volume) {
			return nil, false
		}
		return nexus.NewBar(header, bar), true

	case RawTick_Heartbeat:
		return nexus.NewHeartbeat(header), true

	default:
		return nil, false
	}
}

// InferAggressor labels a trade from contemporaneous quote context. At or
// through the ask is a buy, at or through the bid a sell; inside the
// spread the price is compared to mid with a tolerance of
// max(0.1 × spread, 1 bp of price).
func InferAggressor(price float64, bid, ask decimal.NullDecimal) nexus.Aggressor {
	if !bid.Valid || !ask.Valid {
		return nexus.Aggressor_Unknown
	}
	b := bid.Decimal.InexactFloat64()
	a := ask.Decimal.InexactFloat64()
	if b <= 0 || a <= 0 || a < b {
		return nexus.Aggressor_Unknown
	}
	if price >= a {
		return nexus.Aggressor_Buy
	}
	if price <= b {
		return nexus.Aggressor_Sell
	}
	mid := (a + b) / 2
	tol := math.Max(0.1*(a-b), 0.0001*price)
	switch {
	case price > mid+tol:
		return nexus.Aggressor_Buy
	case price < mid-tol:
		return nexus.Aggressor_Sell
	default:
		return nexus.Aggressor_Unknown
	}
}

// writerFor returns the open writer for (symbol, event date), rotating the
// previous day's writer if the event time crossed UTC midnight. A storage
// failure here is fatal for the partition and returns nil.
func (r *Recorder) writerFor(symbol string, tsEventNs int64) *writerEntry {
	ymd := nexus.TimeToYMD(nexus.TimestampToTime(tsEventNs))
	entry, ok := r.writers[symbol]
	if ok && entry.dateYMD == ymd {
		return entry
	}
	if ok {
		r.closeEntry(symbol, entry)
	}

	path := nexus_eventlog.PartitionPath(r.cfg.BaseDirectory, symbol, tsEventNs)
	opts := r.cfg.Writer
	if opts.Logger == nil {
		opts.Logger = r.logger
	}
	w, err := nexus_eventlog.NewWriter(path, opts)
	if err != nil {
		r.logger.Error("cannot create partition writer, escalate to operator",
			"symbol", symbol, "path", path, "error", err)
		return nil
	}
	w.SetIngestSessionID(r.sessionID)
	w.SetFeedMode(r.feedMode)

	entry = &writerEntry{w: w, dateYMD: ymd, lastFlush: time.Now()}
	r.writers[symbol] = entry
	r.logger.Info("opened partition writer", "symbol", symbol, "path", path,
		"feed_mode", r.feedMode)
	return entry
}

// flushEntry flushes one writer and resets its flush bookkeeping.
// Caller holds the lock.
func (r *Recorder) flushEntry(symbol string, entry *writerEntry) {
	start := time.Now()
	if err := entry.w.Flush(); err != nil {
		r.logger.Error("flush failed", "symbol", symbol, "error", err)
	}
	entry.rowsSinceFlush = 0
	entry.lastFlush = time.Now()
	r.metrics.FlushSeconds.WithLabelValues(symbol, string(r.feedMode)).
		Observe(time.Since(start).Seconds())
}

// closeEntry closes one writer, publishing its file, and removes its map
// entry. Caller holds the lock.
func (r *Recorder) closeEntry(symbol string, entry *writerEntry) {
	if err := entry.w.Close(); err != nil {
		r.logger.Error("writer close failed, partial file left on disk",
			"symbol", symbol, "path", entry.w.Path(), "error", err)
	} else {
		r.logger.Info("published partition", "symbol", symbol,
			"path", entry.w.Path(), "rows", entry.w.Rows(),
			"rejections", entry.w.Rejections())
	}
	delete(r.writers, symbol)
}

// closeAllLocked closes every open writer in sequence. Caller holds the lock.
func (r *Recorder) closeAllLocked() {
	for symbol, entry := range r.writers {
		r.closeEntry(symbol, entry)
	}
}

// clockTick runs the periodic duties: time-based flushes and the UTC date
// rollover check.
func (r *Recorder) clockTick(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	today := nexus.TimeToYMD(now.UTC())
	if today != r.lastDateYMD {
		r.logger.Info("UTC date rollover, rotating all writers",
			"from", r.lastDateYMD, "to", today)
		r.closeAllLocked()
		r.lastDateYMD = today
		return
	}

	for symbol, entry := range r.writers {
		if entry.rowsSinceFlush > 0 && now.Sub(entry.lastFlush) >= r.cfg.FlushInterval {
			r.flushEntry(symbol, entry)
		}
	}
}

// SetFeedMode rotates every open file when the upstream regime changes, so
// each file stays homogeneous in feed mode.
func (r *Recorder) SetFeedMode(mode nexus.FeedMode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if mode == r.feedMode || r.closed {
		return
	}
	r.logger.Info("feed mode transition, rotating files",
		"from", r.feedMode, "to", mode)
	r.closeAllLocked()
	r.feedMode = mode
}

// Run drives the connect/subscribe/record loop with exponential backoff
// reconnects until ctx ends, then closes every writer. When the primary
// feed cannot be established by the time backoff hits its ceiling and a
// fallback feed exists, recording continues in delayed mode.
func (r *Recorder) Run(ctx context.Context) error {
	clockCtx, clockCancel := context.WithCancel(ctx)
	defer clockCancel()
	go r.clockLoop(clockCtx)

	feed := r.feed
	attempts := 0
	for ctx.Err() == nil {
		if err := feed.Connect(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			r.noteConnError("connect failed", err)
			delay := r.backoff(attempts)
			attempts++
			if r.fallback != nil && feed == r.feed && delay >= r.cfg.MaxReconnectDelay {
				r.logger.Warn("live feed unreachable, falling back to delayed")
				feed = r.fallback
				r.SetFeedMode(feed.Mode())
				attempts = 0
				continue
			}
			if !sleepCtx(ctx, delay) {
				break
			}
			continue
		}

		if err := feed.Subscribe(r.cfg.Symbols); err != nil {
			r.noteConnError("subscribe failed", err)
			feed.Close()
			delay := r.backoff(attempts)
			attempts++
			if !sleepCtx(ctx, delay) {
				break
			}
			continue
		}

		r.setConnected(true)
		attempts = 0

		err := feed.Run(ctx, r.OnTick)
		r.setConnected(false)
		feed.Close()
		if ctx.Err() != nil {
			break
		}
		r.noteConnError("feed dropped", err)
		delay := r.backoff(attempts)
		attempts++
		if !sleepCtx(ctx, delay) {
			break
		}
	}

	r.Close()
	return ctx.Err()
}

func (r *Recorder) clockLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.clockTick(now)
		}
	}
}

// backoff returns min(base × 2^attempts, ceiling).
func (r *Recorder) backoff(attempts int) time.Duration {
	delay := r.cfg.BaseReconnectDelay
	for i := 0; i < attempts; i++ {
		delay *= 2
		if delay >= r.cfg.MaxReconnectDelay {
			return r.cfg.MaxReconnectDelay
		}
	}
	if delay > r.cfg.MaxReconnectDelay {
		delay = r.cfg.MaxReconnectDelay
	}
	return delay
}

func (r *Recorder) noteConnError(msg string, err error) {
	r.mu.Lock()
	r.connErrors++
	r.mu.Unlock()
	r.metrics.ConnectionErrors.Inc()
	r.logger.Warn(msg, "error", err)
}

func (r *Recorder) setConnected(up bool) {
	r.mu.Lock()
	r.connected = up
	if up {
		if r.everUp {
			r.reconnects++
			r.metrics.Reconnects.Inc()
		}
		r.everUp = true
	}
	r.mu.Unlock()
	if up {
		r.metrics.Connected.Set(1)
	} else {
		r.metrics.Connected.Set(0)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// Close flushes and closes every open writer and ends the session.
// Idempotent; safe after Run returns.
func (r *Recorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closeAllLocked()
	r.closed = true
	r.logger.Info("recorder closed", "session", r.sessionID)
}

// Snapshot assembles the operator-facing state under the lock.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := Snapshot{
		Connected:        r.connected,
		FeedMode:         r.feedMode,
		IngestSessionID:  r.sessionID,
		Reconnects:       r.reconnects,
		ConnectionErrors: r.connErrors,
		Symbols:          make(map[string]SymbolStats, len(r.received)),
	}
	for symbol := range r.received {
		snap.Symbols[symbol] = SymbolStats{
			Received:   r.received[symbol],
			Written:    r.written[symbol],
			Rejected:   r.rejected[symbol],
			Malformed:  r.malformed[symbol],
			CurrentSeq: r.seqs[symbol],
		}
	}
	return snap
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finitePositive(v float64) bool {
	return finite(v) && v > 0
}
