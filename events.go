// Copyright (c) 2025 Neomantra Corp
//
// Canonical market event model.
//
// Every event carries an EventHeader with three clocks:
//   - TsEventNs:     event time at the source (partitioning, display)
//   - TsReceiveNs:   local wall clock on arrival (audit, replay)
//   - TsMonotonicNs: local monotonic clock on arrival (ordering, latency
//     arithmetic immune to NTP jumps)
//
// The variant payloads form a tagged union: exactly one of the pointer
// fields is set, selected by Header.Type. Heartbeats carry the header only.

package nexus

// EventHeader is the common header shared by all event kinds.
type EventHeader struct {
	TsEventNs     int64     `json:"ts_event_ns"`     // event-time at source, ns since Unix epoch
	TsReceiveNs   int64     `json:"ts_receive_ns"`   // local wall clock at ingest
	TsMonotonicNs int64     `json:"ts_monotonic_ns"` // local monotonic clock at ingest
	Type          EventType `json:"event_type"`
	Venue         string    `json:"venue"`
	Symbol        string    `json:"symbol"`
	Source        string    `json:"source"`
	Seq           uint64    `json:"seq"` // monotone per (source, symbol, session)
}

// SameStream reports whether two headers belong to the same
// (source, symbol) sequence stream.
func (h *EventHeader) SameStream(other *EventHeader) bool {
	return h.Source == other.Source && h.Symbol == other.Symbol
}

// DepthUpdate is a change to a single order book level.
type DepthUpdate struct {
	Side  Side    `json:"side"`
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
	Level int32   `json:"level"` // 0 is top of book
	Op    DepthOp `json:"op"`
}

// Trade is an executed trade with its inferred aggressor.
type Trade struct {
	Price     float64   `json:"price"`
	Size      float64   `json:"size"`
	Aggressor Aggressor `json:"aggressor"`
}

// OrderEvent is an order lifecycle transition.
type OrderEvent struct {
	OrderID string     `json:"order_id"`
	State   OrderState `json:"state"`
	Price   float64    `json:"price"`
	Size    float64    `json:"size"`
	Filled  float64    `json:"filled"`
	Reason  string     `json:"reason,omitempty"`
}

// Bar is an aggregated OHLCV bar over [TsOpenNs, TsCloseNs].
type Bar struct {
	TsOpenNs  int64   `json:"ts_open_ns"`
	TsCloseNs int64   `json:"ts_close_ns"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Event is the tagged union over the five event kinds.
type Event struct {
	Header EventHeader `json:"hd"`

	Depth *DepthUpdate `json:"depth,omitempty"`
	Trade *Trade       `json:"trade,omitempty"`
	Order *OrderEvent  `json:"order,omitempty"`
	Bar   *Bar         `json:"bar,omitempty"`
}

// NewDepthUpdate builds a DEPTH_UPDATE event.
func NewDepthUpdate(header EventHeader, depth DepthUpdate) *Event {
	header.Type = EventType_DepthUpdate
	return &Event{Header: header, Depth: &depth}
}

// NewTrade builds a TRADE event.
func NewTrade(header EventHeader, trade Trade) *Event {
	header.Type = EventType_Trade
	return &Event{Header: header, Trade: &trade}
}

// NewOrderEvent builds an ORDER_EVENT event.
func NewOrderEvent(header EventHeader, order OrderEvent) *Event {
	header.Type = EventType_OrderEvent
	return &Event{Header: header, Order: &order}
}

// NewBar builds a BAR event.
func NewBar(header EventHeader, bar Bar) *Event {
	header.Type = EventType_Bar
	return &Event{Header: header, Bar: &bar}
}

// NewHeartbeat builds a HEARTBEAT event.
func NewHeartbeat(header EventHeader) *Event {
	header.Type = EventType_Heartbeat
	return &Event{Header: header}
}

// Payload returns whether the variant payload matching Header.Type is
// present. A false return is a programming error upstream, not bad data.
func (e *Event) Payload() bool {
	switch e.Header.Type {
	case EventType_DepthUpdate:
		return e.Depth != nil
	case EventType_Trade:
		return e.Trade != nil
	case EventType_OrderEvent:
		return e.Order != nil
	case EventType_Bar:
		return e.Bar != nil
	case EventType_Heartbeat:
		return true
	default:
		return false
	}
}

// Visit dispatches the event to the matching Visitor callback.
func (e *Event) Visit(v Visitor) error {
	switch e.Header.Type {
	case EventType_DepthUpdate:
		return v.OnDepthUpdate(e)
	case EventType_Trade:
		return v.OnTrade(e)
	case EventType_OrderEvent:
		return v.OnOrderEvent(e)
	case EventType_Bar:
		return v.OnBar(e)
	case EventType_Heartbeat:
		return v.OnHeartbeat(e)
	default:
		return ErrUnknownEventType
	}
}
