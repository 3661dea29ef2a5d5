// Copyright (c) 2025 Neomantra Corp
//
// Physical columnar schema for the unified event log.
//
// One schema serves all five event kinds: eight common header columns,
// variant-specific columns populated only by the kinds that use them, and a
// parallel fixed-point decimal column for every numeric field (prices at
// scale 6, sizes at scale 3, 18 digits of precision). Low-cardinality
// strings (venue, symbol, source) are dictionary-encoded per file.
//
// optional int64  field_id=-1 ts_event_ns (Timestamp(isAdjustedToUTC=true, timeUnit=nanoseconds));
// optional int64  field_id=-1 ts_receive_ns (Timestamp(isAdjustedToUTC=true, timeUnit=nanoseconds));
// optional int64  field_id=-1 ts_monotonic_ns;
// optional binary field_id=-1 event_type (String);
// optional binary field_id=-1 venue (String);
// optional binary field_id=-1 symbol (String);
// optional binary field_id=-1 source (String);
// optional int64  field_id=-1 seq (Int(bitWidth=64, isSigned=false));
// optional binary field_id=-1 side (String);
// optional double field_id=-1 price;
// optional double field_id=-1 size;
// optional int32  field_id=-1 level;
// optional binary field_id=-1 op (String);
// optional binary field_id=-1 aggressor (String);
// optional binary field_id=-1 order_id (String);
// optional binary field_id=-1 order_state (String);
// optional double field_id=-1 filled;
// optional binary field_id=-1 reason (String);
// optional int64  field_id=-1 ts_open_ns (Timestamp(isAdjustedToUTC=true, timeUnit=nanoseconds));
// optional int64  field_id=-1 ts_close_ns (Timestamp(isAdjustedToUTC=true, timeUnit=nanoseconds));
// optional double field_id=-1 open;
// optional double field_id=-1 high;
// optional double field_id=-1 low;
// optional double field_id=-1 close;
// optional double field_id=-1 volume;
// optional int64  field_id=-1 price_dec (Decimal(precision=18, scale=6));
// optional int64  field_id=-1 size_dec (Decimal(precision=18, scale=3));
// optional int64  field_id=-1 filled_dec (Decimal(precision=18, scale=3));
// optional int64  field_id=-1 open_dec (Decimal(precision=18, scale=6));
// optional int64  field_id=-1 high_dec (Decimal(precision=18, scale=6));
// optional int64  field_id=-1 low_dec (Decimal(precision=18, scale=6));
// optional int64  field_id=-1 close_dec (Decimal(precision=18, scale=6));
// optional int64  field_id=-1 volume_dec (Decimal(precision=18, scale=3));

package nexus_eventlog

import (
	"github.com/apache/arrow-go/v18/parquet"
	pqschema "github.com/apache/arrow-go/v18/parquet/schema"

	nexus "github.com/skywalkerx28/nexus-sub000"
)

// Column indices into the unified schema. Writer and reader share these;
// they are the physical contract and only grow.
const (
	Col_TsEventNs = iota
	Col_TsReceiveNs
	Col_TsMonotonicNs
	Col_EventType
	Col_Venue
	Col_Symbol
	Col_Source
	Col_Seq
	Col_Side
	Col_Price
	Col_Size
	Col_Level
	Col_Op
	Col_Aggressor
	Col_OrderID
	Col_OrderState
	Col_Filled
	Col_Reason
	Col_TsOpenNs
	Col_TsCloseNs
	Col_Open
	Col_High
	Col_Low
	Col_Close
	Col_Volume
	Col_PriceDec
	Col_SizeDec
	Col_FilledDec
	Col_OpenDec
	Col_HighDec
	Col_LowDec
	Col_CloseDec
	Col_VolumeDec

	NumColumns
)

func timestampNode(name string) pqschema.Node {
	return pqschema.MustPrimitive(pqschema.NewPrimitiveNodeLogical(name,
		parquet.Repetitions.Optional,
		pqschema.NewTimestampLogicalType(true, pqschema.TimeUnitNanos),
		parquet.Types.Int64, 0, -1))
}

func stringNode(name string) pqschema.Node {
	return pqschema.MustPrimitive(pqschema.NewPrimitiveNodeConverted(name,
		parquet.Repetitions.Optional,
		parquet.Types.ByteArray, pqschema.ConvertedTypes.UTF8, 0, 0, 0, -1))
}

func decimalNode(name string, scale int32) pqschema.Node {
	return pqschema.MustPrimitive(pqschema.NewPrimitiveNodeLogical(name,
		parquet.Repetitions.Optional,
		pqschema.NewDecimalLogicalType(nexus.DecimalPrecision, scale),
		parquet.Types.Int64, 0, -1))
}

// EventGroupNode returns the Parquet schema group node for the unified
// event log. Field order must match the Col_* indices.
func EventGroupNode() *pqschema.GroupNode {
	return pqschema.MustGroup(pqschema.NewGroupNode("schema", parquet.Repetitions.Required, pqschema.FieldList{
		timestampNode("ts_event_ns"),
		timestampNode("ts_receive_ns"),
		pqschema.NewInt64Node("ts_monotonic_ns", parquet.Repetitions.Optional, -1),
		stringNode("event_type"),
		stringNode("venue"),
		stringNode("symbol"),
		stringNode("source"),
		pqschema.MustPrimitive(pqschema.NewPrimitiveNodeLogical("seq",
			parquet.Repetitions.Optional, pqschema.NewIntLogicalType(64, false),
			parquet.Types.Int64, 0, -1)),
		stringNode("side"),
		pqschema.NewFloat64Node("price", parquet.Repetitions.Optional, -1),
		pqschema.NewFloat64Node("size", parquet.Repetitions.Optional, -1),
		pqschema.NewInt32Node("level", parquet.Repetitions.Optional, -1),
		stringNode("op"),
		stringNode("aggressor"),
		stringNode("order_id"),
		stringNode("order_state"),
		pqschema.NewFloat64Node("filled", parquet.Repetitions.Optional, -1),
		stringNode("reason"),
		timestampNode("ts_open_ns"),
		timestampNode("ts_close_ns"),
		pqschema.NewFloat64Node("open", parquet.Repetitions.Optional, -1),
		pqschema.NewFloat64Node("high", parquet.Repetitions.Optional, -1),
		pqschema.NewFloat64Node("low", parquet.Repetitions.Optional, -1),
		pqschema.NewFloat64Node("close", parquet.Repetitions.Optional, -1),
		pqschema.NewFloat64Node("volume", parquet.Repetitions.Optional, -1),
		decimalNode("price_dec", nexus.PriceScale),
		decimalNode("size_dec", nexus.SizeScale),
		decimalNode("filled_dec", nexus.SizeScale),
		decimalNode("open_dec", nexus.PriceScale),
		decimalNode("high_dec", nexus.PriceScale),
		decimalNode("low_dec", nexus.PriceScale),
		decimalNode("close_dec", nexus.PriceScale),
		decimalNode("volume_dec", nexus.SizeScale),
	}, -1))
}
