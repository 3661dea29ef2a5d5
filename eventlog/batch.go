// Copyright (c) 2025 Neomantra Corp
//
// In-memory column builders for one write batch. Values are accumulated
// dense (non-null only) alongside 0/1 definition levels, which is the form
// the Parquet column chunk writers take directly.

package nexus_eventlog

import (
	"fmt"

	"github.com/apache/arrow-go/v18/parquet"
	pqfile "github.com/apache/arrow-go/v18/parquet/file"

	nexus "github.com/skywalkerx28/nexus-sub000"
)

type int64Column struct {
	vals []int64
	defs []int16
}

func newInt64Column(capacity int) *int64Column {
	return &int64Column{vals: make([]int64, 0, capacity), defs: make([]int16, 0, capacity)}
}

func (c *int64Column) append(v int64) {
	c.vals = append(c.vals, v)
	c.defs = append(c.defs, 1)
}

func (c *int64Column) appendNull() {
	c.defs = append(c.defs, 0)
}

func (c *int64Column) reset() {
	c.vals = c.vals[:0]
	c.defs = c.defs[:0]
}

func (c *int64Column) writeTo(cw pqfile.ColumnChunkWriter) error {
	tw, ok := cw.(*pqfile.Int64ColumnChunkWriter)
	if !ok {
		return fmt.Errorf("column %s is not int64", cw.Descr().Name())
	}
	_, err := tw.WriteBatch(c.vals, c.defs, nil)
	return err
}

type int32Column struct {
	vals []int32
	defs []int16
}

func newInt32Column(capacity int) *int32Column {
	return &int32Column{vals: make([]int32, 0, capacity), defs: make([]int16, 0, capacity)}
}

func (c *int32Column) append(v int32) {
	c.vals = append(c.vals, v)
	c.defs = append(c.defs, 1)
}

func (c *int32Column) appendNull() {
	c.defs = append(c.defs, 0)
}

func (c *int32Column) reset() {
	c.vals = c.vals[:0]
	c.defs = c.defs[:0]
}

func (c *int32Column) writeTo(cw pqfile.ColumnChunkWriter) error {
	tw, ok := cw.(*pqfile.Int32ColumnChunkWriter)
	if !ok {
		return fmt.Errorf("column %s is not int32", cw.Descr().Name())
	}
	_, err := tw.WriteBatch(c.vals, c.defs, nil)
	return err
}

type float64Column struct {
	vals []float64
	defs []int16
}

func newFloat64Column(capacity int) *float64Column {
	return &float64Column{vals: make([]float64, 0, capacity), defs: make([]int16, 0, capacity)}
}

func (c *float64Column) append(v float64) {
	c.vals = append(c.vals, v)
	c.defs = append(c.defs, 1)
}

func (c *float64Column) appendNull() {
	c.defs = append(c.defs, 0)
}

func (c *float64Column) reset() {
	c.vals = c.vals[:0]
	c.defs = c.defs[:0]
}

func (c *float64Column) writeTo(cw pqfile.ColumnChunkWriter) error {
	tw, ok := cw.(*pqfile.Float64ColumnChunkWriter)
	if !ok {
		return fmt.Errorf("column %s is not float64", cw.Descr().Name())
	}
	_, err := tw.WriteBatch(c.vals, c.defs, nil)
	return err
}

type stringColumn struct {
	vals []parquet.ByteArray
	defs []int16
}

func newStringColumn(capacity int) *stringColumn {
	return &stringColumn{vals: make([]parquet.ByteArray, 0, capacity), defs: make([]int16, 0, capacity)}
}

func (c *stringColumn) append(s string) {
	c.vals = append(c.vals, parquet.ByteArray(s))
	c.defs = append(c.defs, 1)
}

func (c *stringColumn) appendNull() {
	c.defs = append(c.defs, 0)
}

func (c *stringColumn) reset() {
	c.vals = c.vals[:0]
	c.defs = c.defs[:0]
}

func (c *stringColumn) writeTo(cw pqfile.ColumnChunkWriter) error {
	tw, ok := cw.(*pqfile.ByteArrayColumnChunkWriter)
	if !ok {
		return fmt.Errorf("column %s is not byte array", cw.Descr().Name())
	}
	_, err := tw.WriteBatch(c.vals, c.defs, nil)
	return err
}

// eventBatch is one in-memory batch across all schema columns.
type eventBatch struct {
	tsEvent     *int64Column
	tsReceive   *int64Column
	tsMonotonic *int64Column
	eventType   *stringColumn
	venue       *stringColumn
	symbol      *stringColumn
	source      *stringColumn
	seq         *int64Column

	side       *stringColumn
	price      *float64Column
	size       *float64Column
	level      *int32Column
	op         *stringColumn
	aggressor  *stringColumn
	orderID    *stringColumn
	orderState *stringColumn
	filled     *float64Column
	reason     *stringColumn
	tsOpen     *int64Column
	tsClose    *int64Column
	open       *float64Column
	high       *float64Column
	low        *float64Column
	closePx    *float64Column
	volume     *float64Column

	priceDec  *int64Column
	sizeDec   *int64Column
	filledDec *int64Column
	openDec   *int64Column
	highDec   *int64Column
	lowDec    *int64Column
	closeDec  *int64Column
	volumeDec *int64Column
}

func newEventBatch(capacity int) *eventBatch {
	return &eventBatch{
		tsEvent:     newInt64Column(capacity),
		tsReceive:   newInt64Column(capacity),
		tsMonotonic: newInt64Column(capacity),
		eventType:   newStringColumn(capacity),
		venue:       newStringColumn(capacity),
		symbol:      newStringColumn(capacity),
		source:      newStringColumn(capacity),
		seq:         newInt64Column(capacity),
		side:        newStringColumn(capacity),
		price:       newFloat64Column(capacity),
		size:        newFloat64Column(capacity),
		level:       newInt32Column(capacity),
		op:          newStringColumn(capacity),
		aggressor:   newStringColumn(capacity),
		orderID:     newStringColumn(capacity),
		orderState:  newStringColumn(capacity),
		filled:      newFloat64Column(capacity),
		reason:      newStringColumn(capacity),
		tsOpen:      newInt64Column(capacity),
		tsClose:     newInt64Column(capacity),
		open:        newFloat64Column(capacity),
		high:        newFloat64Column(capacity),
		low:         newFloat64Column(capacity),
		closePx:     newFloat64Column(capacity),
		volume:      newFloat64Column(capacity),
		priceDec:    newInt64Column(capacity),
		sizeDec:     newInt64Column(capacity),
		filledDec:   newInt64Column(capacity),
		openDec:     newInt64Column(capacity),
		highDec:     newInt64Column(capacity),
		lowDec:      newInt64Column(capacity),
		closeDec:    newInt64Column(capacity),
		volumeDec:   newInt64Column(capacity),
	}
}

// appendEvent fills one row across every column. Header columns are always
// present; variant columns not used by the event's kind get nulls; every
// numeric field lands in both its float column and its fixed-point column.
func (b *eventBatch) appendEvent(ev *nexus.Event) {
	h := &ev.Header
	b.tsEvent.append(h.TsEventNs)
	b.tsReceive.append(h.TsReceiveNs)
	b.tsMonotonic.append(h.TsMonotonicNs)
	b.eventType.append(string(h.Type))
	b.venue.append(h.Venue)
	b.symbol.append(h.Symbol)
	b.source.append(h.Source)
	b.seq.append(int64(h.Seq))

	switch h.Type {
	case nexus.EventType_DepthUpdate:
		d := ev.Depth
		b.side.append(string(d.Side))
		b.price.append(d.Price)
		b.size.append(d.Size)
		b.level.append(d.Level)
		b.op.append(string(d.Op))
		b.priceDec.append(nexus.PriceToFixed(d.Price))
		b.sizeDec.append(nexus.SizeToFixed(d.Size))
		b.nullTrade()
		b.nullOrder()
		b.nullBar()
	case nexus.EventType_Trade:
		t := ev.Trade
		b.price.append(t.Price)
		b.size.append(t.Size)
		b.aggressor.append(string(t.Aggressor))
		b.priceDec.append(nexus.PriceToFixed(t.Price))
		b.sizeDec.append(nexus.SizeToFixed(t.Size))
		b.nullDepth()
		b.nullOrder()
		b.nullBar()
	case nexus.EventType_OrderEvent:
		o := ev.Order
		b.orderID.append(o.OrderID)
		b.orderState.append(string(o.State))
		b.price.append(o.Price)
		b.size.append(o.Size)
		b.filled.append(o.Filled)
		b.reason.append(o.Reason)
		b.priceDec.append(nexus.PriceToFixed(o.Price))
		b.sizeDec.append(nexus.SizeToFixed(o.Size))
		b.filledDec.append(nexus.SizeToFixed(o.Filled))
		b.nullDepth()
		b.aggressor.appendNull()
		b.nullBar()
	case nexus.EventType_Bar:
		bar := ev.Bar
		b.tsOpen.append(bar.TsOpenNs)
		b.tsClose.append(bar.TsCloseNs)
		b.open.append(bar.Open)
		b.high.append(bar.High)
		b.low.append(bar.Low)
		b.closePx.append(bar.Close)
		b.volume.append(bar.Volume)
		b.openDec.append(nexus.PriceToFixed(bar.Open))
		b.highDec.append(nexus.PriceToFixed(bar.High))
		b.lowDec.append(nexus.PriceToFixed(bar.Low))
		b.closeDec.append(nexus.PriceToFixed(bar.Close))
		b.volumeDec.append(nexus.SizeToFixed(bar.Volume))
		b.nullDepth()
		b.nullShared()
		b.aggressor.appendNull()
		b.nullOrder()
	default: // HEARTBEAT
		b.nullDepth()
		b.nullShared()
		b.aggressor.appendNull()
		b.nullOrder()
		b.nullBar()
	}
}

// nullDepth nulls the columns only depth updates use.
func (b *eventBatch) nullDepth() {
	b.side.appendNull()
	b.level.appendNull()
	b.op.appendNull()
}

// nullShared nulls price/size and their decimals (shared by depth, trade, order).
func (b *eventBatch) nullShared() {
	b.price.appendNull()
	b.size.appendNull()
	b.priceDec.appendNull()
	b.sizeDec.appendNull()
}

// nullTrade nulls the columns only trades use.
func (b *eventBatch) nullTrade() {
	b.aggressor.appendNull()
}

// nullOrder nulls the columns only order events use.
func (b *eventBatch) nullOrder() {
	b.orderID.appendNull()
	b.orderState.appendNull()
	b.filled.appendNull()
	b.reason.appendNull()
	b.filledDec.appendNull()
}

// nullBar nulls the columns only bars use.
func (b *eventBatch) nullBar() {
	b.tsOpen.appendNull()
	b.tsClose.appendNull()
	b.open.appendNull()
	b.high.appendNull()
	b.low.appendNull()
	b.closePx.appendNull()
	b.volume.appendNull()
	b.openDec.appendNull()
	b.highDec.appendNull()
	b.lowDec.appendNull()
	b.closeDec.appendNull()
	b.volumeDec.appendNull()
}

// writeTo flushes every column into the open buffered row group, in schema
// column order.
func (b *eventBatch) writeTo(rgw pqfile.BufferedRowGroupWriter) error {
	cols := []interface {
		writeTo(pqfile.ColumnChunkWriter) error
	}{
		b.tsEvent, b.tsReceive, b.tsMonotonic, b.eventType,
		b.venue, b.symbol, b.source, b.seq,
		b.side, b.price, b.size, b.level, b.op, b.aggressor,
		b.orderID, b.orderState, b.filled, b.reason,
		b.tsOpen, b.tsClose, b.open, b.high, b.low, b.closePx, b.volume,
		b.priceDec, b.sizeDec, b.filledDec,
		b.openDec, b.highDec, b.lowDec, b.closeDec, b.volumeDec,
	}
	for i, col := range cols {
		cw, err := rgw.Column(i)
		if err != nil {
			return fmt.Errorf("column %d: %w", i, err)
		}
		if err := col.writeTo(cw); err != nil {
			return fmt.Errorf("column %d: %w", i, err)
		}
	}
	return nil
}

func (b *eventBatch) reset() {
	b.tsEvent.reset()
	b.tsReceive.reset()
	b.tsMonotonic.reset()
	b.eventType.reset()
	b.venue.reset()
	b.symbol.reset()
	b.source.reset()
	b.seq.reset()
	b.side.reset()
	b.price.reset()
	b.size.reset()
	b.level.reset()
	b.op.reset()
	b.aggressor.reset()
	b.orderID.reset()
	b.orderState.reset()
	b.filled.reset()
	b.reason.reset()
	b.tsOpen.reset()
	b.tsClose.reset()
	b.open.reset()
	b.high.reset()
	b.low.reset()
	b.closePx.reset()
	b.volume.reset()
	b.priceDec.reset()
	b.sizeDec.reset()
	b.filledDec.reset()
	b.openDec.reset()
	b.highDec.reset()
	b.lowDec.reset()
	b.closeDec.reset()
	b.volumeDec.reset()
}
