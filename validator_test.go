// Copyright (c) 2025 Neomantra Corp

package nexus_test

import (
	"math"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	nexus "github.com/skywalkerx28/nexus-sub000"
)

// Test Launcher
func TestNexus(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "nexus suite")
}

func goodHeader(seq uint64) nexus.EventHeader {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano()
	return nexus.EventHeader{
		TsEventNs:     base + int64(seq)*1_000_000,
		TsReceiveNs:   base + int64(seq)*1_000_000 + 50_000,
		TsMonotonicNs: int64(seq) * 1_000_000,
		Venue:         "XNAS",
		Symbol:        "AAPL",
		Source:        "ws",
		Seq:           seq,
	}
}

func goodTrade(seq uint64) *nexus.Event {
	return nexus.NewTrade(goodHeader(seq), nexus.Trade{
		Price: 187.23, Size: 100, Aggressor: nexus.Aggressor_Buy,
	})
}

var _ = Describe("Validator", func() {
	Context("well-formed events", func() {
		It("accepts every kind", func() {
			Expect(nexus.Validate(goodTrade(1), nil)).To(Succeed())
			Expect(nexus.Validate(nexus.NewDepthUpdate(goodHeader(1), nexus.DepthUpdate{
				Side: nexus.Side_Bid, Price: 187.22, Size: 300, Level: 0, Op: nexus.DepthOp_Add,
			}), nil)).To(Succeed())
			Expect(nexus.Validate(nexus.NewOrderEvent(goodHeader(1), nexus.OrderEvent{
				OrderID: "o-1", State: nexus.OrderState_Filled, Price: 187.23, Size: 100, Filled: 100,
			}), nil)).To(Succeed())
			hdr := goodHeader(1)
			Expect(nexus.Validate(nexus.NewBar(hdr, nexus.Bar{
				TsOpenNs: hdr.TsEventNs - int64(time.Minute), TsCloseNs: hdr.TsEventNs,
				Open: 187.0, High: 187.5, Low: 186.9, Close: 187.23, Volume: 125_000,
			}), nil)).To(Succeed())
			Expect(nexus.Validate(nexus.NewHeartbeat(goodHeader(1)), nil)).To(Succeed())
		})

		It("allows zero price on depth deletes only", func() {
			del := nexus.NewDepthUpdate(goodHeader(1), nexus.DepthUpdate{
				Side: nexus.Side_Ask, Price: 0, Size: 0, Level: 3, Op: nexus.DepthOp_Delete,
			})
			Expect(nexus.Validate(del, nil)).To(Succeed())

			add := nexus.NewDepthUpdate(goodHeader(1), nexus.DepthUpdate{
				Side: nexus.Side_Ask, Price: 0, Size: 10, Level: 3, Op: nexus.DepthOp_Add,
			})
			Expect(nexus.Validate(add, nil)).NotTo(Succeed())
		})
	})

	Context("header invariants", func() {
		It("rejects timestamps outside the sanity range", func() {
			ev := goodTrade(1)
			ev.Header.TsEventNs = 28852
			err := nexus.Validate(ev, nil)
			var verr *nexus.ValidationError
			Expect(err).To(BeAssignableToTypeOf(verr))
			Expect(err.(*nexus.ValidationError).Invariant).To(Equal("event_time_range"))
		})

		It("rejects receive time more than 60s behind event time", func() {
			ev := goodTrade(1)
			ev.Header.TsReceiveNs = ev.Header.TsEventNs - 61_000_000_000
			err := nexus.Validate(ev, nil)
			Expect(err).To(HaveOccurred())
			Expect(err.(*nexus.ValidationError).Invariant).To(Equal("clock_skew"))
		})

		It("accepts receive time within the skew bound", func() {
			ev := goodTrade(1)
			ev.Header.TsReceiveNs = ev.Header.TsEventNs - 59_000_000_000
			Expect(nexus.Validate(ev, nil)).To(Succeed())
		})

		It("rejects zero seq and empty identifiers", func() {
			ev := goodTrade(1)
			ev.Header.Seq = 0
			Expect(nexus.Validate(ev, nil).(*nexus.ValidationError).Invariant).To(Equal("seq_positive"))

			ev = goodTrade(1)
			ev.Header.Venue = ""
			Expect(nexus.Validate(ev, nil).(*nexus.ValidationError).Invariant).To(Equal("venue_empty"))

			ev = goodTrade(1)
			ev.Header.Symbol = ""
			Expect(nexus.Validate(ev, nil).(*nexus.ValidationError).Invariant).To(Equal("symbol_empty"))

			ev = goodTrade(1)
			ev.Header.Source = ""
			Expect(nexus.Validate(ev, nil).(*nexus.ValidationError).Invariant).To(Equal("source_empty"))
		})
	})

	Context("ordering against the previous header", func() {
		It("requires strictly increasing seq on the same stream", func() {
			prev := goodHeader(5)
			ev := goodTrade(5)
			err := nexus.Validate(ev, &prev)
			Expect(err).To(HaveOccurred())
			Expect(err.(*nexus.ValidationError).Invariant).To(Equal("seq_order"))

			Expect(nexus.Validate(goodTrade(6), &prev)).To(Succeed())
		})

		It("does not compare seq across streams", func() {
			prev := goodHeader(5)
			prev.Symbol = "MSFT"
			ev := goodTrade(2)
			ev.Header.TsMonotonicNs = prev.TsMonotonicNs // monotonic order holds across streams
			Expect(nexus.Validate(ev, &prev)).To(Succeed())
		})

		It("requires non-decreasing monotonic time on any stream", func() {
			prev := goodHeader(5)
			prev.Symbol = "MSFT"
			ev := goodTrade(6)
			ev.Header.TsMonotonicNs = prev.TsMonotonicNs - 1
			err := nexus.Validate(ev, &prev)
			Expect(err).To(HaveOccurred())
			Expect(err.(*nexus.ValidationError).Invariant).To(Equal("monotonic_order"))

			ev.Header.TsMonotonicNs = prev.TsMonotonicNs
			Expect(nexus.Validate(ev, &prev)).To(Succeed())
		})
	})

	Context("numeric invariants", func() {
		It("rejects NaN and infinite prices", func() {
			ev := goodTrade(1)
			ev.Trade.Price = math.NaN()
			Expect(nexus.Validate(ev, nil).(*nexus.ValidationError).Invariant).To(Equal("price_finite"))

			ev = goodTrade(1)
			ev.Trade.Price = math.Inf(1)
			Expect(nexus.Validate(ev, nil).(*nexus.ValidationError).Invariant).To(Equal("price_finite"))
		})

		It("rejects non-positive trade price and size", func() {
			ev := goodTrade(1)
			ev.Trade.Size = 0
			Expect(nexus.Validate(ev, nil).(*nexus.ValidationError).Invariant).To(Equal("trade_positive"))

			ev = goodTrade(1)
			ev.Trade.Price = -1
			Expect(nexus.Validate(ev, nil).(*nexus.ValidationError).Invariant).To(Equal("trade_positive"))
		})

		It("rejects order fills exceeding size", func() {
			ev := nexus.NewOrderEvent(goodHeader(1), nexus.OrderEvent{
				OrderID: "o-1", State: nexus.OrderState_Filled, Price: 10, Size: 100, Filled: 150,
			})
			Expect(nexus.Validate(ev, nil).(*nexus.ValidationError).Invariant).To(Equal("order_overfill"))
		})

		It("rejects depth levels at or beyond the bound", func() {
			ev := nexus.NewDepthUpdate(goodHeader(1), nexus.DepthUpdate{
				Side: nexus.Side_Bid, Price: 10, Size: 5, Level: 1000, Op: nexus.DepthOp_Add,
			})
			Expect(nexus.Validate(ev, nil).(*nexus.ValidationError).Invariant).To(Equal("depth_level"))
		})

		It("rejects inconsistent bars", func() {
			hdr := goodHeader(1)
			bar := nexus.Bar{
				TsOpenNs: hdr.TsEventNs - 1000, TsCloseNs: hdr.TsEventNs,
				Open: 10, High: 9, Low: 8, Close: 9.5, Volume: 100,
			}
			err := nexus.Validate(nexus.NewBar(hdr, bar), nil)
			Expect(err.(*nexus.ValidationError).Invariant).To(Equal("bar_ohlc"))

			bar = nexus.Bar{
				TsOpenNs: hdr.TsEventNs, TsCloseNs: hdr.TsEventNs - 1,
				Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 100,
			}
			err = nexus.Validate(nexus.NewBar(hdr, bar), nil)
			Expect(err.(*nexus.ValidationError).Invariant).To(Equal("bar_ohlc"))
		})
	})

	Context("malformed input", func() {
		It("flags a payload-bearing type with no payload as programmer error", func() {
			ev := &nexus.Event{Header: goodHeader(1)}
			ev.Header.Type = nexus.EventType_Trade
			Expect(nexus.Validate(ev, nil)).To(MatchError(nexus.ErrMalformedEvent))
		})

		It("flags an unknown type", func() {
			ev := &nexus.Event{Header: goodHeader(1)}
			ev.Header.Type = "BOGUS"
			Expect(nexus.Validate(ev, nil)).To(MatchError(nexus.ErrUnknownEventType))
		})
	})
})
