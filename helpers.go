// Copyright (c) 2025 Neomantra Corp

package nexus

import (
	"math"
	"time"
)

// Fixed-point decimal scales for the dual numeric encoding.
// Prices are stored to micro-unit precision, sizes to milli-unit precision,
// both inside 18 significant decimal digits.
const (
	PriceScale       = 6
	SizeScale        = 3
	DecimalPrecision = 18
)

// scaleMultipliers holds 10^s for s in [0, 9], precomputed for the
// conversion hot path.
var scaleMultipliers = [10]float64{
	1, 1e1, 1e2, 1e3, 1e4, 1e5, 1e6, 1e7, 1e8, 1e9,
}

// FloatToFixed converts a float to a fixed-point integer at the given scale,
// rounding half away from zero. Non-finite inputs yield a decimal zero.
func FloatToFixed(v float64, scale int) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int64(math.Round(v * scaleMultipliers[scale]))
}

// FixedToFloat converts a fixed-point integer at the given scale back to a float.
func FixedToFloat(fixed int64, scale int) float64 {
	return float64(fixed) / scaleMultipliers[scale]
}

// PriceToFixed converts a price to its scale-6 fixed-point encoding.
func PriceToFixed(price float64) int64 {
	return FloatToFixed(price, PriceScale)
}

// SizeToFixed converts a size to its scale-3 fixed-point encoding.
func SizeToFixed(size float64) int64 {
	return FloatToFixed(size, SizeScale)
}

// TimestampToTime converts epoch nanoseconds to a UTC time.Time.
func TimestampToTime(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}

// TimeToYMD returns the YYYYMMDD for the time.Time in that Time's location.
// A zero time returns a 0 value.
func TimeToYMD(t time.Time) uint32 {
	if t.IsZero() {
		return 0
	}
	return uint32(10000*t.Year() + 100*int(t.Month()) + t.Day())
}

// UTCDateOf returns the UTC calendar date containing the given epoch
// nanosecond timestamp, truncated to midnight.
func UTCDateOf(ns int64) time.Time {
	t := TimestampToTime(ns)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// IsSaneTimestamp reports whether ns falls in the 2020..2050 sanity window.
func IsSaneTimestamp(ns int64) bool {
	return ns >= MinSaneTimestampNs && ns < MaxSaneTimestampNs
}
