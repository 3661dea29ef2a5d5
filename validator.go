// Copyright (c) 2025 Neomantra Corp
//
// Pure event validation. Validate holds no state of its own: ordering
// checks come from the optional previous-header argument supplied by the
// caller (the writer passes its last accepted header).

package nexus

import "math"

// Validate checks an event against the recording invariants. prev is the
// header of the last event accepted by the same writer, or nil for the
// first event. A nil return means the event is acceptable; otherwise the
// returned *ValidationError names the broken invariant and the offending
// value. Malformed input (a payload-bearing type with no payload) is a
// programmer error and returns ErrMalformedEvent instead.
func Validate(ev *Event, prev *EventHeader) error {
	if !ev.Header.Type.IsValid() {
		return ErrUnknownEventType
	}
	if !ev.Payload() {
		return ErrMalformedEvent
	}

	h := &ev.Header
	if !IsSaneTimestamp(h.TsEventNs) {
		return rejectf("event_time_range", "ts_event_ns %d outside sane range", h.TsEventNs)
	}
	if !IsSaneTimestamp(h.TsReceiveNs) {
		return rejectf("receive_time_range", "ts_receive_ns %d outside sane range", h.TsReceiveNs)
	}
	if h.TsReceiveNs < h.TsEventNs-MaxClockSkewNs {
		return rejectf("clock_skew", "ts_receive_ns %d trails ts_event_ns %d by more than 60s",
			h.TsReceiveNs, h.TsEventNs)
	}
	if h.Seq == 0 {
		return rejectf("seq_positive", "seq must be > 0")
	}
	if h.Venue == "" {
		return rejectf("venue_empty", "venue is empty")
	}
	if h.Symbol == "" {
		return rejectf("symbol_empty", "symbol is empty")
	}
	if h.Source == "" {
		return rejectf("source_empty", "source is empty")
	}

	if prev != nil {
		if h.TsMonotonicNs < prev.TsMonotonicNs {
			return rejectf("monotonic_order", "ts_monotonic_ns %d precedes previous %d",
				h.TsMonotonicNs, prev.TsMonotonicNs)
		}
		if h.SameStream(prev) && h.Seq <= prev.Seq {
			return rejectf("seq_order", "seq %d not greater than previous %d for (%s, %s)",
				h.Seq, prev.Seq, h.Source, h.Symbol)
		}
	}

	switch h.Type {
	case EventType_DepthUpdate:
		return validateDepth(ev.Depth)
	case EventType_Trade:
		return validateTrade(ev.Trade)
	case EventType_OrderEvent:
		return validateOrder(ev.Order)
	case EventType_Bar:
		return validateBar(ev.Bar)
	}
	// HEARTBEAT carries the header only.
	return nil
}

func validateDepth(d *DepthUpdate) error {
	if !d.Side.IsValid() {
		return rejectf("depth_level", "invalid side %q", d.Side)
	}
	if !d.Op.IsValid() {
		return rejectf("depth_level", "invalid op %q", d.Op)
	}
	if d.Level < 0 || d.Level >= MaxDepthLevel {
		return rejectf("depth_level", "level %d outside [0, %d)", d.Level, MaxDepthLevel)
	}
	if !isFinite(d.Price) {
		return rejectf("price_finite", "depth price %v not finite", d.Price)
	}
	if !isFinite(d.Size) || d.Size < 0 {
		return rejectf("size_negative", "depth size %v not finite and non-negative", d.Size)
	}
	// Delete updates may carry a zero price; adds and updates may not.
	if d.Op != DepthOp_Delete && d.Price <= 0 {
		return rejectf("price_finite", "depth %s price %v must be positive", d.Op, d.Price)
	}
	return nil
}

func validateTrade(t *Trade) error {
	if !isFinite(t.Price) {
		return rejectf("price_finite", "trade price %v not finite", t.Price)
	}
	if !isFinite(t.Size) {
		return rejectf("size_negative", "trade size %v not finite", t.Size)
	}
	if t.Price <= 0 {
		return rejectf("trade_positive", "trade price %v must be > 0", t.Price)
	}
	if t.Size <= 0 {
		return rejectf("trade_positive", "trade size %v must be > 0", t.Size)
	}
	if !t.Aggressor.IsValid() {
		return rejectf("trade_positive", "invalid aggressor %q", t.Aggressor)
	}
	return nil
}

func validateOrder(o *OrderEvent) error {
	if !o.State.IsValid() {
		return rejectf("order_overfill", "invalid order state %q", o.State)
	}
	if !isFinite(o.Price) {
		return rejectf("price_finite", "order price %v not finite", o.Price)
	}
	if !isFinite(o.Size) || o.Size < 0 {
		return rejectf("size_negative", "order size %v not finite and non-negative", o.Size)
	}
	if !isFinite(o.Filled) || o.Filled < 0 {
		return rejectf("size_negative", "order filled %v not finite and non-negative", o.Filled)
	}
	if o.Filled > o.Size {
		return rejectf("order_overfill", "filled %v exceeds size %v", o.Filled, o.Size)
	}
	return nil
}

func validateBar(b *Bar) error {
	for _, px := range [4]float64{b.Open, b.High, b.Low, b.Close} {
		if !isFinite(px) {
			return rejectf("price_finite", "bar price %v not finite", px)
		}
	}
	if !isFinite(b.Volume) || b.Volume < 0 {
		return rejectf("size_negative", "bar volume %v not finite and non-negative", b.Volume)
	}
	if b.TsCloseNs < b.TsOpenNs {
		return rejectf("bar_ohlc", "bar close ts %d precedes open ts %d", b.TsCloseNs, b.TsOpenNs)
	}
	if b.High < b.Low || b.High < b.Open || b.High < b.Close {
		return rejectf("bar_ohlc", "bar high %v below open %v / close %v / low %v",
			b.High, b.Open, b.Close, b.Low)
	}
	if b.Low > b.Open || b.Low > b.Close {
		return rejectf("bar_ohlc", "bar low %v above open %v / close %v", b.Low, b.Open, b.Close)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
