// Copyright (c) 2025 Neomantra Corp

package nexus_eventlog_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	nexus "github.com/skywalkerx28/nexus-sub000"
	"github.com/skywalkerx28/nexus-sub000/eventlog"
)

// Test Launcher
func TestEventlog(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "eventlog suite")
}

const goldenBaseNs = int64(1704067200_000000000) // 2024-01-01 UTC

// goldenEvents builds a deterministic mix of all five kinds across two
// symbols, seq per (source, symbol) starting at 1, event times advancing
// 1ms per event.
func goldenEvents(n int) []*nexus.Event {
	events := make([]*nexus.Event, 0, n)
	seqs := map[string]uint64{}
	symbols := []string{"AAPL", "MSFT"}
	for i := 0; i < n; i++ {
		symbol := symbols[i%len(symbols)]
		seqs[symbol]++
		header := nexus.EventHeader{
			TsEventNs:     goldenBaseNs + int64(i)*1_000_000,
			TsReceiveNs:   goldenBaseNs + int64(i)*1_000_000 + 250_000,
			TsMonotonicNs: int64(i) * 1_000_000,
			Venue:         "XNAS",
			Symbol:        symbol,
			Source:        "ws",
			Seq:           seqs[symbol],
		}
		switch i % 5 {
		case 0:
			events = append(events, nexus.NewDepthUpdate(header, nexus.DepthUpdate{
				Side: nexus.Side_Bid, Price: 187.22 + float64(i)*0.000001,
				Size: 300.5, Level: int32(i % 10), Op: nexus.DepthOp_Update,
			}))
		case 1:
			events = append(events, nexus.NewTrade(header, nexus.Trade{
				Price: 187.234567, Size: 100.125, Aggressor: nexus.Aggressor_Sell,
			}))
		case 2:
			events = append(events, nexus.NewOrderEvent(header, nexus.OrderEvent{
				OrderID: "o-42", State: nexus.OrderState_Ack,
				Price: 187.20, Size: 250, Filled: 0, Reason: "",
			}))
		case 3:
			events = append(events, nexus.NewBar(header, nexus.Bar{
				TsOpenNs: header.TsEventNs - int64(time.Second), TsCloseNs: header.TsEventNs,
				Open: 187.1, High: 187.5, Low: 187.0, Close: 187.3, Volume: 52_341.75,
			}))
		default:
			events = append(events, nexus.NewHeartbeat(header))
		}
	}
	return events
}

func writeAll(w *nexus_eventlog.Writer, events []*nexus.Event) {
	for _, ev := range events {
		Expect(w.Append(ev)).To(BeTrue())
	}
}

func readAll(r *nexus_eventlog.Reader) []*nexus.Event {
	var events []*nexus.Event
	for r.Next() {
		events = append(events, r.Event())
	}
	Expect(r.Err()).To(BeNil())
	return events
}

var _ = Describe("Writer and Reader", func() {
	var dir string

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "eventlog-test-*")
		Expect(err).To(BeNil())
		DeferCleanup(func() { os.RemoveAll(dir) })
	})

	Context("golden round trip", func() {
		It("reads back exactly what was written, field for field", func() {
			written := goldenEvents(100)
			path := filepath.Join(dir, "AAPL", "2024", "01", "01.parquet")
			w, err := nexus_eventlog.NewWriter(path, nexus_eventlog.WriterOptions{})
			Expect(err).To(BeNil())
			w.SetIngestSessionID("7f4df2a1-21a8-4b3e-9f2e-a52f0e3f9f10")
			writeAll(w, written)
			Expect(w.Rows()).To(Equal(int64(100)))
			Expect(w.Close()).To(Succeed())

			r, err := nexus_eventlog.OpenReader(path, nexus_eventlog.ReaderOptions{})
			Expect(err).To(BeNil())
			defer r.Close()

			got := readAll(r)
			Expect(got).To(HaveLen(len(written)))
			for i := range written {
				Expect(*got[i]).To(Equal(*written[i]))
			}

			meta := r.Metadata()
			Expect(meta).NotTo(BeNil())
			Expect(meta.WriteComplete).To(BeTrue())
			Expect(meta.SchemaVersion).To(Equal(nexus.SchemaVersion))
			Expect(meta.IngestSessionID).To(Equal("7f4df2a1-21a8-4b3e-9f2e-a52f0e3f9f10"))
			Expect(meta.Symbol).To(Equal("AAPL"))
		})

		It("spans multiple batches and row groups intact", func() {
			written := goldenEvents(5_000)
			path := filepath.Join(dir, "multi.parquet")
			w, err := nexus_eventlog.NewWriter(path, nexus_eventlog.WriterOptions{
				BatchSize:          512,
				RowGroupTargetRows: 1_024,
			})
			Expect(err).To(BeNil())
			writeAll(w, written)
			Expect(w.Close()).To(Succeed())

			r, err := nexus_eventlog.OpenReader(path, nexus_eventlog.ReaderOptions{})
			Expect(err).To(BeNil())
			defer r.Close()
			Expect(r.RowGroupCount()).To(BeNumerically(">", 1))

			got := readAll(r)
			Expect(got).To(HaveLen(len(written)))
			for i := range written {
				Expect(*got[i]).To(Equal(*written[i]))
			}
		})
	})

	Context("dual numeric encoding", func() {
		It("agrees with the float columns to half a unit in the last place", func() {
			written := goldenEvents(50)
			path := filepath.Join(dir, "dual.parquet")
			w, err := nexus_eventlog.NewWriter(path, nexus_eventlog.WriterOptions{})
			Expect(err).To(BeNil())
			writeAll(w, written)
			Expect(w.Close()).To(Succeed())

			r, err := nexus_eventlog.OpenReader(path, nexus_eventlog.ReaderOptions{PreferDecimal: true})
			Expect(err).To(BeNil())
			defer r.Close()

			const priceTol = 0.0000005 // 10^-6 / 2
			const sizeTol = 0.0005     // 10^-3 / 2
			decoded := readAll(r)
			Expect(decoded).To(HaveLen(len(written)))
			for i, got := range decoded {
				want := written[i]
				switch want.Header.Type {
				case nexus.EventType_DepthUpdate:
					Expect(math.IsNaN(got.Depth.Price)).To(BeFalse())
					Expect(got.Depth.Price).To(BeNumerically("~", want.Depth.Price, priceTol))
					Expect(got.Depth.Size).To(BeNumerically("~", want.Depth.Size, sizeTol))
				case nexus.EventType_Trade:
					Expect(math.IsNaN(got.Trade.Price)).To(BeFalse())
					Expect(got.Trade.Price).To(BeNumerically("~", want.Trade.Price, priceTol))
					Expect(got.Trade.Size).To(BeNumerically("~", want.Trade.Size, sizeTol))
				case nexus.EventType_OrderEvent:
					Expect(got.Order.Price).To(BeNumerically("~", want.Order.Price, priceTol))
					Expect(got.Order.Size).To(BeNumerically("~", want.Order.Size, sizeTol))
					Expect(got.Order.Filled).To(BeNumerically("~", want.Order.Filled, sizeTol))
				case nexus.EventType_Bar:
					Expect(got.Bar.Open).To(BeNumerically("~", want.Bar.Open, priceTol))
					Expect(got.Bar.High).To(BeNumerically("~", want.Bar.High, priceTol))
					Expect(got.Bar.Low).To(BeNumerically("~", want.Bar.Low, priceTol))
					Expect(got.Bar.Close).To(BeNumerically("~", want.Bar.Close, priceTol))
					Expect(got.Bar.Volume).To(BeNumerically("~", want.Bar.Volume, sizeTol))
				}
			}
		})
	})

	Context("validation at the writer", func() {
		It("rejects invalid events without touching file state", func() {
			path := filepath.Join(dir, "rejects.parquet")
			w, err := nexus_eventlog.NewWriter(path, nexus_eventlog.WriterOptions{})
			Expect(err).To(BeNil())

			// One good event seeds the last-accepted header.
			seed := goldenEvents(1)[0]
			Expect(w.Append(seed)).To(BeTrue())

			mk := func(seq uint64) *nexus.Event {
				hdr := seed.Header
				hdr.Seq = seq
				hdr.TsMonotonicNs = seed.Header.TsMonotonicNs + int64(seq)
				return nexus.NewTrade(hdr, nexus.Trade{
					Price: 187.23, Size: 100, Aggressor: nexus.Aggressor_Buy,
				})
			}

			belowEpoch := mk(2)
			belowEpoch.Header.TsEventNs = 28852

			zeroSize := mk(3)
			zeroSize.Trade.Size = 0

			nanPrice := mk(4)
			nanPrice.Trade.Price = math.NaN()

			overfill := nexus.NewOrderEvent(mk(5).Header, nexus.OrderEvent{
				OrderID: "o-9", State: nexus.OrderState_Filled,
				Price: 10, Size: 100, Filled: 150,
			})

			dupSeq := mk(seed.Header.Seq) // same (source, symbol, seq)
			for _, ev := range []*nexus.Event{belowEpoch, zeroSize, nanPrice, overfill, dupSeq} {
				Expect(w.Append(ev)).To(BeFalse())
			}
			Expect(w.Rejections()).To(Equal(int64(5)))
			Expect(w.Rows()).To(Equal(int64(1)))
			Expect(w.Close()).To(Succeed())

			r, err := nexus_eventlog.OpenReader(path, nexus_eventlog.ReaderOptions{})
			Expect(err).To(BeNil())
			defer r.Close()
			Expect(r.NumRows()).To(Equal(int64(1))) // none of the five landed
		})
	})

	Context("flush and close semantics", func() {
		It("is idempotent under repeated flushes", func() {
			path := filepath.Join(dir, "flush.parquet")
			w, err := nexus_eventlog.NewWriter(path, nexus_eventlog.WriterOptions{})
			Expect(err).To(BeNil())
			written := goldenEvents(10)
			writeAll(w, written)

			Expect(w.Flush()).To(Succeed())
			Expect(w.Flush()).To(Succeed())
			Expect(w.Flush()).To(Succeed())

			writeAll(w, goldenEvents(20)[10:]) // appends continue after flush
			Expect(w.Close()).To(Succeed())

			r, err := nexus_eventlog.OpenReader(path, nexus_eventlog.ReaderOptions{})
			Expect(err).To(BeNil())
			defer r.Close()
			Expect(r.NumRows()).To(Equal(int64(20)))
		})

		It("treats a second close as a no-op", func() {
			path := filepath.Join(dir, "close.parquet")
			w, err := nexus_eventlog.NewWriter(path, nexus_eventlog.WriterOptions{})
			Expect(err).To(BeNil())
			writeAll(w, goldenEvents(5))
			Expect(w.Close()).To(Succeed())
			Expect(w.Close()).To(Succeed())
			Expect(w.Append(goldenEvents(6)[5])).To(BeFalse())
		})

		It("publishes atomically", func() {
			path := filepath.Join(dir, "atomic.parquet")
			w, err := nexus_eventlog.NewWriter(path, nexus_eventlog.WriterOptions{})
			Expect(err).To(BeNil())
			writeAll(w, goldenEvents(5))
			Expect(w.Flush()).To(Succeed())

			// Before close: only the .partial sibling exists.
			_, err = os.Stat(path)
			Expect(os.IsNotExist(err)).To(BeTrue())
			_, err = os.Stat(nexus_eventlog.PartialPath(path))
			Expect(err).To(BeNil())

			Expect(w.Close()).To(Succeed())

			// After close: only the canonical path exists.
			_, err = os.Stat(path)
			Expect(err).To(BeNil())
			_, err = os.Stat(nexus_eventlog.PartialPath(path))
			Expect(os.IsNotExist(err)).To(BeTrue())
		})
	})

	Context("crash detection", func() {
		It("leaves a salvageable partial with write_complete=false", func() {
			path := filepath.Join(dir, "crash.parquet")
			w, err := nexus_eventlog.NewWriter(path, nexus_eventlog.WriterOptions{
				BatchSize: 1_000,
			})
			Expect(err).To(BeNil())

			events := goldenEvents(8_000)
			writeAll(w, events[:5_000])
			Expect(w.Flush()).To(Succeed())
			writeAll(w, events[5_000:])

			// Terminated before Close: the footer lands in the partial,
			// the canonical name never appears.
			Expect(w.Abort()).To(Succeed())

			_, err = os.Stat(path)
			Expect(os.IsNotExist(err)).To(BeTrue())
			partial := nexus_eventlog.PartialPath(path)
			_, err = os.Stat(partial)
			Expect(err).To(BeNil())

			r, err := nexus_eventlog.OpenReader(partial, nexus_eventlog.ReaderOptions{})
			Expect(err).To(BeNil())
			defer r.Close()
			Expect(r.Metadata().WriteComplete).To(BeFalse())

			got := readAll(r)
			Expect(got).To(HaveLen(8_000))
			for i := range got {
				Expect(got[i].Header.Seq).To(Equal(events[i].Header.Seq))
			}
		})
	})

	Context("filtering and pruning", func() {
		It("prunes row groups by time statistics", func() {
			// 250k trades evenly spaced over 100s, five 50k-row groups.
			const n = 250_000
			const spacingNs = int64(400_000) // 100s / 250k
			start := goldenBaseNs

			path := filepath.Join(dir, "prune.parquet")
			w, err := nexus_eventlog.NewWriter(path, nexus_eventlog.WriterOptions{
				BatchSize:          10_000,
				RowGroupTargetRows: 50_000,
			})
			Expect(err).To(BeNil())
			for i := 0; i < n; i++ {
				ev := nexus.NewTrade(nexus.EventHeader{
					TsEventNs:     start + int64(i)*spacingNs,
					TsReceiveNs:   start + int64(i)*spacingNs + 100_000,
					TsMonotonicNs: int64(i),
					Venue:         "XNAS",
					Symbol:        "AAPL",
					Source:        "ws",
					Seq:           uint64(i + 1),
				}, nexus.Trade{Price: 187.23, Size: 1, Aggressor: nexus.Aggressor_Unknown})
				Expect(w.Append(ev)).To(BeTrue())
			}
			Expect(w.Close()).To(Succeed())

			r, err := nexus_eventlog.OpenReader(path, nexus_eventlog.ReaderOptions{})
			Expect(err).To(BeNil())
			defer r.Close()
			Expect(r.RowGroupCount()).To(Equal(5))

			lo := start + 40*int64(time.Second)
			hi := start + 50*int64(time.Second)
			r.SetTimeRange(lo, hi)

			count := 0
			for r.Next() {
				ts := r.Event().Header.TsEventNs
				Expect(ts).To(BeNumerically(">=", lo))
				Expect(ts).To(BeNumerically("<=", hi))
				count++
			}
			Expect(r.Err()).To(BeNil())
			// [40s, 50s] lies entirely inside the third 20s-wide group.
			Expect(r.RowGroupsTouched()).To(Equal(1))
			Expect(count).To(Equal(25_001))
		})

		It("returns exactly the subset inside a time filter, and resets", func() {
			written := goldenEvents(1_000)
			path := filepath.Join(dir, "subset.parquet")
			w, err := nexus_eventlog.NewWriter(path, nexus_eventlog.WriterOptions{
				BatchSize: 100, RowGroupTargetRows: 200,
			})
			Expect(err).To(BeNil())
			writeAll(w, written)
			Expect(w.Close()).To(Succeed())

			lo := goldenBaseNs + 250*1_000_000
			hi := goldenBaseNs + 499*1_000_000
			var want []*nexus.Event
			for _, ev := range written {
				if ev.Header.TsEventNs >= lo && ev.Header.TsEventNs <= hi {
					want = append(want, ev)
				}
			}

			r, err := nexus_eventlog.OpenReader(path, nexus_eventlog.ReaderOptions{})
			Expect(err).To(BeNil())
			defer r.Close()
			r.SetTimeRange(lo, hi)

			got := readAll(r)
			Expect(got).To(HaveLen(len(want)))
			for i := range want {
				Expect(*got[i]).To(Equal(*want[i]))
			}

			// Reset re-reads the same subset from the start.
			r.Reset()
			Expect(readAll(r)).To(HaveLen(len(want)))

			// Clearing filters yields the full sequence again.
			r.Reset()
			r.ClearFilters()
			Expect(readAll(r)).To(HaveLen(len(written)))
		})

		It("filters by sequence range", func() {
			written := goldenEvents(100)
			path := filepath.Join(dir, "seqfilter.parquet")
			w, err := nexus_eventlog.NewWriter(path, nexus_eventlog.WriterOptions{})
			Expect(err).To(BeNil())
			writeAll(w, written)
			Expect(w.Close()).To(Succeed())

			r, err := nexus_eventlog.OpenReader(path, nexus_eventlog.ReaderOptions{})
			Expect(err).To(BeNil())
			defer r.Close()
			r.SetSeqRange(10, 20)
			for _, ev := range readAll(r) {
				Expect(ev.Header.Seq).To(BeNumerically(">=", 10))
				Expect(ev.Header.Seq).To(BeNumerically("<=", 20))
			}
		})
	})

	Context("failure modes", func() {
		It("raises on a missing file", func() {
			_, err := nexus_eventlog.OpenReader(filepath.Join(dir, "nope.parquet"), nexus_eventlog.ReaderOptions{})
			Expect(err).To(HaveOccurred())
		})

		It("raises on a corrupt footer", func() {
			path := filepath.Join(dir, "garbage.parquet")
			Expect(os.WriteFile(path, []byte("this is not a columnar file"), 0o644)).To(Succeed())
			_, err := nexus_eventlog.OpenReader(path, nexus_eventlog.ReaderOptions{})
			Expect(err).To(HaveOccurred())
		})
	})
})
