// Copyright (c) 2025 Neomantra Corp
//
// Broker feed adapters. The recorder only knows the Feed interface; the
// concrete implementations here cover the two upstream regimes:
//
//   - WSFeed: a websocket stream of JSON tick frames (live data), with a
//     ping loop and a read deadline so silent server failures surface as
//     disconnects.
//   - DelayedFeed: periodic HTTP polling of a snapshot endpoint (delayed
//     data) through a retrying client.
//
// Session negotiation, authentication and venue-specific subscription
// grammar belong to the adapter shell, not here.

package nexus_live

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/shopspring/decimal"
	"github.com/valyala/fastjson"

	nexus "github.com/skywalkerx28/nexus-sub000"
)

const (
	pingInterval = 50 * time.Second // keep-alive cadence
	readTimeout  = 90 * time.Second // ~2 missed pings triggers reconnect
	writeTimeout = 10 * time.Second
)

// RawTickKind discriminates the upstream tick payloads.
type RawTickKind string

const (
	RawTick_Trade     RawTickKind = "trade"
	RawTick_Depth     RawTickKind = "depth"
	RawTick_Order     RawTickKind = "order"
	RawTick_Bar       RawTickKind = "bar"
	RawTick_Heartbeat RawTickKind = "heartbeat"
)

// RawTick is one upstream message before normalization. Prices and sizes
// stay as exact wire decimals until the recorder converts them once.
type RawTick struct {
	Kind   RawTickKind
	Symbol string
	Venue  string

	Price decimal.Decimal
	Size  decimal.Decimal
	Bid   decimal.NullDecimal // contemporaneous best bid, if the feed sends it
	Ask   decimal.NullDecimal // contemporaneous best ask, if the feed sends it

	TsEventNs int64 // source timestamp, 0 when absent

	// depth
	Side  string
	Level int32
	Op    string

	// order
	OrderID string
	State   string
	Filled  decimal.Decimal
	Reason  string

	// bar
	TsOpenNs  int64
	TsCloseNs int64
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
}

// OnTickFunc receives each raw tick; it must return before the next tick
// is dispatched.
type OnTickFunc func(symbol string, tick RawTick)

// Feed is the seam between the broker adapter and the recorder.
type Feed interface {
	// Connect establishes the upstream session.
	Connect(ctx context.Context) error
	// Subscribe registers symbols; it may be called after Connect and is
	// replayed by the recorder after every reconnect.
	Subscribe(symbols []string) error
	// Run dispatches ticks until the context ends or the upstream drops.
	Run(ctx context.Context, onTick OnTickFunc) error
	// Mode reports whether this feed delivers live or delayed data.
	Mode() nexus.FeedMode
	// Close tears the session down.
	Close() error
}

///////////////////////////////////////////////////////////////////////////////

// WSFeedConfig configures a websocket feed.
type WSFeedConfig struct {
	URL    string
	Venue  string
	Logger *slog.Logger
}

func (c *WSFeedConfig) validate() error {
	if c.URL == "" {
		return fmt.Errorf("field URL is unset")
	}
	if c.Venue == "" {
		return fmt.Errorf("field Venue is unset")
	}
	return nil
}

// WSFeed is the live websocket implementation of Feed.
type WSFeed struct {
	config WSFeedConfig
	logger *slog.Logger

	connMu sync.Mutex // protects conn writes
	conn   *websocket.Conn

	subscribedMu sync.Mutex
	subscribed   []string

	parserPool fastjson.ParserPool
}

// NewWSFeed creates a websocket feed; Connect establishes the session.
func NewWSFeed(config WSFeedConfig) (*WSFeed, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &WSFeed{
		config: config,
		logger: logger.With("component", "ws_feed", "venue", config.Venue),
	}, nil
}

func (f *WSFeed) Mode() nexus.FeedMode { return nexus.FeedMode_Live }

func (f *WSFeed) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.config.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", f.config.URL, err)
	}
	f.connMu.Lock()
	f.conn = conn
	f.connMu.Unlock()
	f.logger.Info("websocket connected", "url", f.config.URL)
	return nil
}

// Subscribe sends a subscription frame and remembers the symbols so a
// reconnect can replay them.
func (f *WSFeed) Subscribe(symbols []string) error {
	f.subscribedMu.Lock()
	f.subscribed = append([]string(nil), symbols...)
	f.subscribedMu.Unlock()

	return f.writeJSON(map[string]any{
		"op":      "subscribe",
		"symbols": symbols,
	})
}

// Run reads frames until the connection drops or ctx ends. Each frame is
// parsed and handed to onTick synchronously.
func (f *WSFeed) Run(ctx context.Context, onTick OnTickFunc) error {
	f.connMu.Lock()
	conn := f.conn
	f.connMu.Unlock()
	if conn == nil {
		return fmt.Errorf("websocket not connected")
	}

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go f.pingLoop(pingCtx)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		tick, ok := f.parseFrame(frame)
		if !ok {
			continue
		}
		onTick(tick.Symbol, tick)
	}
}

func (f *WSFeed) Close() error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn != nil {
		err := f.conn.Close()
		f.conn = nil
		return err
	}
	return nil
}

func (f *WSFeed) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := f.writeMessage(websocket.PingMessage, nil); err != nil {
				f.logger.Warn("ping failed", "error", err)
				return
			}
		}
	}
}

// parseFrame decodes one JSON frame into a RawTick. Unknown or partial
// frames are skipped; the recorder counts malformed ticks downstream.
func (f *WSFeed) parseFrame(frame []byte) (RawTick, bool) {
	parser := f.parserPool.Get()
	defer f.parserPool.Put(parser)

	val, err := parser.ParseBytes(frame)
	if err != nil {
		f.logger.Debug("ignoring non-json frame", "error", err)
		return RawTick{}, false
	}

	tick := RawTick{
		Kind:      RawTickKind(string(val.GetStringBytes("type"))),
		Symbol:    string(val.GetStringBytes("symbol")),
		Venue:     f.config.Venue,
		TsEventNs: val.GetInt64("ts_event_ns"),
	}
	if tick.Symbol == "" {
		return RawTick{}, false
	}

	switch tick.Kind {
	case RawTick_Trade:
		tick.Price = jsonDecimal(val, "price")
		tick.Size = jsonDecimal(val, "size")
		tick.Bid = jsonNullDecimal(val, "bid")
		tick.Ask = jsonNullDecimal(val, "ask")
	case RawTick_Depth:
		tick.Price = jsonDecimal(val, "price")
		tick.Size = jsonDecimal(val, "size")
		tick.Side = string(val.GetStringBytes("side"))
		tick.Level = int32(val.GetInt("level"))
		tick.Op = string(val.GetStringBytes("op"))
	case RawTick_Order:
		tick.Price = jsonDecimal(val, "price")
		tick.Size = jsonDecimal(val, "size")
		tick.Filled = jsonDecimal(val, "filled")
		tick.OrderID = string(val.GetStringBytes("order_id"))
		tick.State = string(val.GetStringBytes("state"))
		tick.Reason = string(val.GetStringBytes("reason"))
	case RawTick_Bar:
		tick.TsOpenNs = val.GetInt64("ts_open_ns")
		tick.TsCloseNs = val.GetInt64("ts_close_ns")
		tick.Open = jsonDecimal(val, "open")
		tick.High = jsonDecimal(val, "high")
		tick.Low = jsonDecimal(val, "low")
		tick.Close = jsonDecimal(val, "close")
		tick.Volume = jsonDecimal(val, "volume")
	case RawTick_Heartbeat:
		// header only
	default:
		f.logger.Debug("unknown tick type", "type", string(tick.Kind))
		return RawTick{}, false
	}
	return tick, true
}

// jsonDecimal reads a numeric or string field as an exact decimal.
// A missing or unparseable field yields a zero decimal.
func jsonDecimal(val *fastjson.Value, key string) decimal.Decimal {
	field := val.Get(key)
	if field == nil {
		return decimal.Decimal{}
	}
	var raw string
	if field.Type() == fastjson.TypeString {
		raw = string(field.GetStringBytes())
	} else {
		raw = field.String()
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}
	}
	return d
}

func jsonNullDecimal(val *fastjson.Value, key string) decimal.NullDecimal {
	if val.Get(key) == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: jsonDecimal(val, key), Valid: true}
}

func (f *WSFeed) writeJSON(v any) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn == nil {
		return fmt.Errorf("websocket not connected")
	}
	f.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return f.conn.WriteJSON(v)
}

func (f *WSFeed) writeMessage(msgType int, data []byte) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn == nil {
		return fmt.Errorf("websocket not connected")
	}
	f.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return f.conn.WriteMessage(msgType, data)
}

///////////////////////////////////////////////////////////////////////////////

// DelayedFeedConfig configures the HTTP polling fallback.
type DelayedFeedConfig struct {
	URL          string // snapshot endpoint, GET ?symbols=a,b,c
	Venue        string
	PollInterval time.Duration
	Logger       *slog.Logger
}

// DelayedFeed polls a snapshot endpoint for delayed data. It exists so a
// recorder can keep capturing (marked feed_mode=delayed) when the live
// websocket is unavailable.
type DelayedFeed struct {
	config DelayedFeedConfig
	logger *slog.Logger
	client *retryablehttp.Client

	subscribedMu sync.Mutex
	subscribed   []string

	parserPool fastjson.ParserPool
}

// NewDelayedFeed creates an HTTP polling feed.
func NewDelayedFeed(config DelayedFeedConfig) (*DelayedFeed, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("invalid config: field URL is unset")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.PollInterval <= 0 {
		config.PollInterval = time.Second
	}
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.Logger = nil
	return &DelayedFeed{
		config: config,
		logger: logger.With("component", "delayed_feed", "venue", config.Venue),
		client: client,
	}, nil
}

func (f *DelayedFeed) Mode() nexus.FeedMode { return nexus.FeedMode_Delayed }

func (f *DelayedFeed) Connect(ctx context.Context) error {
	// Stateless transport; probe the endpoint so a dead upstream fails fast.
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, f.config.URL, nil)
	if err != nil {
		return err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("probe %s: %w", f.config.URL, err)
	}
	resp.Body.Close()
	f.logger.Info("delayed feed reachable", "url", f.config.URL)
	return nil
}

func (f *DelayedFeed) Subscribe(symbols []string) error {
	f.subscribedMu.Lock()
	f.subscribed = append([]string(nil), symbols...)
	f.subscribedMu.Unlock()
	return nil
}

func (f *DelayedFeed) Run(ctx context.Context, onTick OnTickFunc) error {
	ticker := time.NewTicker(f.config.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := f.poll(ctx, onTick); err != nil {
				return err
			}
		}
	}
}

func (f *DelayedFeed) poll(ctx context.Context, onTick OnTickFunc) error {
	f.subscribedMu.Lock()
	symbols := append([]string(nil), f.subscribed...)
	f.subscribedMu.Unlock()
	if len(symbols) == 0 {
		return nil
	}

	url := f.config.URL + "?symbols=" + strings.Join(symbols, ",")
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("poll: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("poll: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("poll: %w", err)
	}

	parser := f.parserPool.Get()
	defer f.parserPool.Put(parser)
	val, err := parser.ParseBytes(body)
	if err != nil {
		f.logger.Warn("bad snapshot payload", "error", err)
		return nil
	}
	for _, item := range val.GetArray("ticks") {
		symbol := string(item.GetStringBytes("symbol"))
		if symbol == "" {
			continue
		}
		onTick(symbol, RawTick{
			Kind:      RawTick_Trade,
			Symbol:    symbol,
			Venue:     f.config.Venue,
			TsEventNs: item.GetInt64("ts_event_ns"),
			Price:     jsonDecimal(item, "price"),
			Size:      jsonDecimal(item, "size"),
			Bid:       jsonNullDecimal(item, "bid"),
			Ask:       jsonNullDecimal(item, "ask"),
		})
	}
	return nil
}

func (f *DelayedFeed) Close() error { return nil }
