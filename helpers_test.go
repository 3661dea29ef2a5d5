// Copyright (c) 2025 Neomantra Corp

package nexus_test

import (
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	nexus "github.com/skywalkerx28/nexus-sub000"
)

var _ = Describe("Helpers", func() {
	Context("fixed-point conversion", func() {
		It("converts prices at scale 6", func() {
			Expect(nexus.PriceToFixed(187.234567)).To(Equal(int64(187234567)))
			Expect(nexus.PriceToFixed(0.000001)).To(Equal(int64(1)))
			Expect(nexus.PriceToFixed(-2.5)).To(Equal(int64(-2500000)))
		})

		It("converts sizes at scale 3", func() {
			Expect(nexus.SizeToFixed(100)).To(Equal(int64(100000)))
			Expect(nexus.SizeToFixed(0.001)).To(Equal(int64(1)))
		})

		It("maps non-finite input to decimal zero", func() {
			Expect(nexus.FloatToFixed(math.NaN(), nexus.PriceScale)).To(Equal(int64(0)))
			Expect(nexus.FloatToFixed(math.Inf(1), nexus.PriceScale)).To(Equal(int64(0)))
			Expect(nexus.FloatToFixed(math.Inf(-1), nexus.SizeScale)).To(Equal(int64(0)))
		})

		It("round-trips within half a unit of the last place", func() {
			for _, v := range []float64{0, 0.000001, 1.5, 187.234567, 99999.123456, -41.000004} {
				fixed := nexus.PriceToFixed(v)
				back := nexus.FixedToFloat(fixed, nexus.PriceScale)
				Expect(math.Abs(back - v)).To(BeNumerically("<=", 0.0000005))
			}
			for _, v := range []float64{0, 0.001, 100, 1234.567} {
				fixed := nexus.SizeToFixed(v)
				back := nexus.FixedToFloat(fixed, nexus.SizeScale)
				Expect(math.Abs(back - v)).To(BeNumerically("<=", 0.0005))
			}
		})
	})

	Context("timestamps", func() {
		It("converts epoch nanos to UTC time", func() {
			Expect(nexus.TimestampToTime(0)).To(Equal(time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)))
			Expect(nexus.TimestampToTime(1704067200_000000000)).
				To(Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
		})

		It("converts Times to YMD correctly", func() {
			Expect(nexus.TimeToYMD(time.Time{})).To(Equal(uint32(0)))
			Expect(nexus.TimeToYMD(time.Date(2024, 4, 12, 0, 0, 0, 0, time.UTC))).To(Equal(uint32(20240412)))
		})

		It("truncates to the UTC date", func() {
			ns := time.Date(2025, 11, 10, 23, 59, 59, 999000000, time.UTC).UnixNano()
			Expect(nexus.UTCDateOf(ns)).To(Equal(time.Date(2025, 11, 10, 0, 0, 0, 0, time.UTC)))
		})

		It("bounds the sanity window to 2020..2050", func() {
			Expect(nexus.IsSaneTimestamp(time.Date(2019, 12, 31, 23, 59, 59, 0, time.UTC).UnixNano())).To(BeFalse())
			Expect(nexus.IsSaneTimestamp(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano())).To(BeTrue())
			Expect(nexus.IsSaneTimestamp(time.Date(2049, 12, 31, 0, 0, 0, 0, time.UTC).UnixNano())).To(BeTrue())
			Expect(nexus.IsSaneTimestamp(time.Date(2050, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano())).To(BeFalse())
			Expect(nexus.IsSaneTimestamp(28852)).To(BeFalse())
		})
	})
})
