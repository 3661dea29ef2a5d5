// Copyright (c) 2025 Neomantra Corp
//
// Column-wise row group decoding and per-row event reconstruction.

package nexus_eventlog

import (
	"fmt"

	"github.com/apache/arrow-go/v18/parquet"
	pqfile "github.com/apache/arrow-go/v18/parquet/file"

	nexus "github.com/skywalkerx28/nexus-sub000"
)

// decodedGroup holds the materialized columns of one row group. Validity
// is not kept: a null cell reads back as its type's zero value.
type decodedGroup struct {
	numRows int64

	tsEvent     []int64
	tsReceive   []int64
	tsMonotonic []int64
	eventType   []string
	venue       []string
	symbol      []string
	source      []string
	seq         []int64

	side       []string
	price      []float64
	size       []float64
	level      []int32
	op         []string
	aggressor  []string
	orderID    []string
	orderState []string
	filled     []float64
	reason     []string
	tsOpen     []int64
	tsClose    []int64
	open       []float64
	high       []float64
	low        []float64
	closePx    []float64
	volume     []float64

	priceDec  []int64
	sizeDec   []int64
	filledDec []int64
	openDec   []int64
	highDec   []int64
	lowDec    []int64
	closeDec  []int64
	volumeDec []int64
}

// decodeGroup reads every column of one row group into memory. Dictionary
// encoded columns come back through their dictionary as plain values.
func decodeGroup(rg *pqfile.RowGroupReader, numRows int64) (*decodedGroup, error) {
	g := &decodedGroup{numRows: numRows}
	n := int(numRows)
	var err error

	if g.tsEvent, _, err = readInt64Column(rg, Col_TsEventNs, n); err != nil {
		return nil, err
	}
	if g.tsReceive, _, err = readInt64Column(rg, Col_TsReceiveNs, n); err != nil {
		return nil, err
	}
	if g.tsMonotonic, _, err = readInt64Column(rg, Col_TsMonotonicNs, n); err != nil {
		return nil, err
	}
	if g.eventType, _, err = readStringColumn(rg, Col_EventType, n); err != nil {
		return nil, err
	}
	if g.venue, _, err = readStringColumn(rg, Col_Venue, n); err != nil {
		return nil, err
	}
	if g.symbol, _, err = readStringColumn(rg, Col_Symbol, n); err != nil {
		return nil, err
	}
	if g.source, _, err = readStringColumn(rg, Col_Source, n); err != nil {
		return nil, err
	}
	if g.seq, _, err = readInt64Column(rg, Col_Seq, n); err != nil {
		return nil, err
	}
	if g.side, _, err = readStringColumn(rg, Col_Side, n); err != nil {
		return nil, err
	}
	if g.price, _, err = readFloat64Column(rg, Col_Price, n); err != nil {
		return nil, err
	}
	if g.size, _, err = readFloat64Column(rg, Col_Size, n); err != nil {
		return nil, err
	}
	if g.level, _, err = readInt32Column(rg, Col_Level, n); err != nil {
		return nil, err
	}
	if g.op, _, err = readStringColumn(rg, Col_Op, n); err != nil {
		return nil, err
	}
	if g.aggressor, _, err = readStringColumn(rg, Col_Aggressor, n); err != nil {
		return nil, err
	}
	if g.orderID, _, err = readStringColumn(rg, Col_OrderID, n); err != nil {
		return nil, err
	}
	if g.orderState, _, err = readStringColumn(rg, Col_OrderState, n); err != nil {
		return nil, err
	}
	if g.filled, _, err = readFloat64Column(rg, Col_Filled, n); err != nil {
		return nil, err
	}
	if g.reason, _, err = readStringColumn(rg, Col_Reason, n); err != nil {
		return nil, err
	}
	if g.tsOpen, _, err = readInt64Column(rg, Col_TsOpenNs, n); err != nil {
		return nil, err
	}
	if g.tsClose, _, err = readInt64Column(rg, Col_TsCloseNs, n); err != nil {
		return nil, err
	}
	if g.open, _, err = readFloat64Column(rg, Col_Open, n); err != nil {
		return nil, err
	}
	if g.high, _, err = readFloat64Column(rg, Col_High, n); err != nil {
		return nil, err
	}
	if g.low, _, err = readFloat64Column(rg, Col_Low, n); err != nil {
		return nil, err
	}
	if g.closePx, _, err = readFloat64Column(rg, Col_Close, n); err != nil {
		return nil, err
	}
	if g.volume, _, err = readFloat64Column(rg, Col_Volume, n); err != nil {
		return nil, err
	}
	if g.priceDec, _, err = readInt64Column(rg, Col_PriceDec, n); err != nil {
		return nil, err
	}
	if g.sizeDec, _, err = readInt64Column(rg, Col_SizeDec, n); err != nil {
		return nil, err
	}
	if g.filledDec, _, err = readInt64Column(rg, Col_FilledDec, n); err != nil {
		return nil, err
	}
	if g.openDec, _, err = readInt64Column(rg, Col_OpenDec, n); err != nil {
		return nil, err
	}
	if g.highDec, _, err = readInt64Column(rg, Col_HighDec, n); err != nil {
		return nil, err
	}
	if g.lowDec, _, err = readInt64Column(rg, Col_LowDec, n); err != nil {
		return nil, err
	}
	if g.closeDec, _, err = readInt64Column(rg, Col_CloseDec, n); err != nil {
		return nil, err
	}
	if g.volumeDec, _, err = readInt64Column(rg, Col_VolumeDec, n); err != nil {
		return nil, err
	}
	return g, nil
}

// event reconstructs row i as an Event, touching only the columns the
// row's discriminator names. With preferDecimal, numeric fields come from
// the fixed-point columns instead of the floats.
func (g *decodedGroup) event(i int, preferDecimal bool) *nexus.Event {
	header := nexus.EventHeader{
		TsEventNs:     g.tsEvent[i],
		TsReceiveNs:   g.tsReceive[i],
		TsMonotonicNs: g.tsMonotonic[i],
		Type:          nexus.EventType(g.eventType[i]),
		Venue:         g.venue[i],
		Symbol:        g.symbol[i],
		Source:        g.source[i],
		Seq:           uint64(g.seq[i]),
	}

	price := func() float64 {
		if preferDecimal {
			return nexus.FixedToFloat(g.priceDec[i], nexus.PriceScale)
		}
		return g.price[i]
	}
	size := func() float64 {
		if preferDecimal {
			return nexus.FixedToFloat(g.sizeDec[i], nexus.SizeScale)
		}
		return g.size[i]
	}

	switch header.Type {
	case nexus.EventType_DepthUpdate:
		return nexus.NewDepthUpdate(header, nexus.DepthUpdate{
			Side:  nexus.Side(g.side[i]),
			Price: price(),
			Size:  size(),
			Level: g.level[i],
			Op:    nexus.DepthOp(g.op[i]),
		})
	case nexus.EventType_Trade:
		return nexus.NewTrade(header, nexus.Trade{
			Price:     price(),
			Size:      size(),
			Aggressor: nexus.Aggressor(g.aggressor[i]),
		})
	case nexus.EventType_OrderEvent:
		filled := g.filled[i]
		if preferDecimal {
			filled = nexus.FixedToFloat(g.filledDec[i], nexus.SizeScale)
		}
		return nexus.NewOrderEvent(header, nexus.OrderEvent{
			OrderID: g.orderID[i],
			State:   nexus.OrderState(g.orderState[i]),
			Price:   price(),
			Size:    size(),
			Filled:  filled,
			Reason:  g.reason[i],
		})
	case nexus.EventType_Bar:
		bar := nexus.Bar{
			TsOpenNs:  g.tsOpen[i],
			TsCloseNs: g.tsClose[i],
			Open:      g.open[i],
			High:      g.high[i],
			Low:       g.low[i],
			Close:     g.closePx[i],
			Volume:    g.volume[i],
		}
		if preferDecimal {
			bar.Open = nexus.FixedToFloat(g.openDec[i], nexus.PriceScale)
			bar.High = nexus.FixedToFloat(g.highDec[i], nexus.PriceScale)
			bar.Low = nexus.FixedToFloat(g.lowDec[i], nexus.PriceScale)
			bar.Close = nexus.FixedToFloat(g.closeDec[i], nexus.PriceScale)
			bar.Volume = nexus.FixedToFloat(g.volumeDec[i], nexus.SizeScale)
		}
		return nexus.NewBar(header, bar)
	default:
		return nexus.NewHeartbeat(header)
	}
}

// readInt64Column materializes an optional int64 column into row-aligned
// values plus a validity slice.
func readInt64Column(rg *pqfile.RowGroupReader, col int, numRows int) ([]int64, []bool, error) {
	cr, err := rg.Column(col)
	if err != nil {
		return nil, nil, fmt.Errorf("column %d: %w", col, err)
	}
	tcr, ok := cr.(*pqfile.Int64ColumnChunkReader)
	if !ok {
		return nil, nil, fmt.Errorf("column %d is not int64", col)
	}
	out := make([]int64, numRows)
	valid := make([]bool, numRows)
	raw := make([]int64, numRows)
	defs := make([]int16, numRows)
	read := 0
	for read < numRows {
		total, _, err := tcr.ReadBatch(int64(numRows-read), raw, defs, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("column %d: %w", col, err)
		}
		if total == 0 {
			return nil, nil, fmt.Errorf("column %d truncated at row %d of %d", col, read, numRows)
		}
		vi := 0
		for li := 0; li < int(total); li++ {
			if defs[li] == 1 {
				out[read+li] = raw[vi]
				valid[read+li] = true
				vi++
			}
		}
		read += int(total)
	}
	return out, valid, nil
}

func readInt32Column(rg *pqfile.RowGroupReader, col int, numRows int) ([]int32, []bool, error) {
	cr, err := rg.Column(col)
	if err != nil {
		return nil, nil, fmt.Errorf("column %d: %w", col, err)
	}
	tcr, ok := cr.(*pqfile.Int32ColumnChunkReader)
	if !ok {
		return nil, nil, fmt.Errorf("column %d is not int32", col)
	}
	out := make([]int32, numRows)
	valid := make([]bool, numRows)
	raw := make([]int32, numRows)
	defs := make([]int16, numRows)
	read := 0
	for read < numRows {
		total, _, err := tcr.ReadBatch(int64(numRows-read), raw, defs, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("column %d: %w", col, err)
		}
		if total == 0 {
			return nil, nil, fmt.Errorf("column %d truncated at row %d of %d", col, read, numRows)
		}
		vi := 0
		for li := 0; li < int(total); li++ {
			if defs[li] == 1 {
				out[read+li] = raw[vi]
				valid[read+li] = true
				vi++
			}
		}
		read += int(total)
	}
	return out, valid, nil
}

func readFloat64Column(rg *pqfile.RowGroupReader, col int, numRows int) ([]float64, []bool, error) {
	cr, err := rg.Column(col)
	if err != nil {
		return nil, nil, fmt.Errorf("column %d: %w", col, err)
	}
	tcr, ok := cr.(*pqfile.Float64ColumnChunkReader)
	if !ok {
		return nil, nil, fmt.Errorf("column %d is not float64", col)
	}
	out := make([]float64, numRows)
	valid := make([]bool, numRows)
	raw := make([]float64, numRows)
	defs := make([]int16, numRows)
	read := 0
	for read < numRows {
		total, _, err := tcr.ReadBatch(int64(numRows-read), raw, defs, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("column %d: %w", col, err)
		}
		if total == 0 {
			return nil, nil, fmt.Errorf("column %d truncated at row %d of %d", col, read, numRows)
		}
		vi := 0
		for li := 0; li < int(total); li++ {
			if defs[li] == 1 {
				out[read+li] = raw[vi]
				valid[read+li] = true
				vi++
			}
		}
		read += int(total)
	}
	return out, valid, nil
}

func readStringColumn(rg *pqfile.RowGroupReader, col int, numRows int) ([]string, []bool, error) {
	cr, err := rg.Column(col)
	if err != nil {
		return nil, nil, fmt.Errorf("column %d: %w", col, err)
	}
	tcr, ok := cr.(*pqfile.ByteArrayColumnChunkReader)
	if !ok {
		return nil, nil, fmt.Errorf("column %d is not byte array", col)
	}
	out := make([]string, numRows)
	valid := make([]bool, numRows)
	raw := make([]parquet.ByteArray, numRows)
	defs := make([]int16, numRows)
	read := 0
	for read < numRows {
		total, _, err := tcr.ReadBatch(int64(numRows-read), raw, defs, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("column %d: %w", col, err)
		}
		if total == 0 {
			return nil, nil, fmt.Errorf("column %d truncated at row %d of %d", col, read, numRows)
		}
		vi := 0
		for li := 0; li < int(total); li++ {
			if defs[li] == 1 {
				out[read+li] = string(raw[vi])
				valid[read+li] = true
				vi++
			}
		}
		read += int(total)
	}
	return out, valid, nil
}
