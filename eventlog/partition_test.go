// Copyright (c) 2025 Neomantra Corp

package nexus_eventlog_test

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	nexus "github.com/skywalkerx28/nexus-sub000"
	"github.com/skywalkerx28/nexus-sub000/eventlog"
)

var _ = Describe("Partitioner", func() {
	Context("path construction", func() {
		It("builds canonical zero-padded UTC paths", func() {
			ts := time.Date(2024, 3, 7, 15, 4, 5, 0, time.UTC).UnixNano()
			path := nexus_eventlog.PartitionPath("/data/ticks", "AAPL", ts)
			Expect(path).To(Equal("/data/ticks/AAPL/2024/03/07.parquet"))
		})

		It("derives the date from the event time in UTC", func() {
			// 23:30 in UTC-5 is already the next UTC day.
			loc := time.FixedZone("EST", -5*3600)
			ts := time.Date(2024, 12, 31, 23, 30, 0, 0, loc).UnixNano()
			path := nexus_eventlog.PartitionPath("/data", "MSFT", ts)
			Expect(path).To(Equal("/data/MSFT/2025/01/01.parquet"))
		})

		It("orders paths lexicographically equal to chronologically", func() {
			times := []time.Time{
				time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC),
				time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2024, 10, 2, 0, 0, 0, 0, time.UTC),
				time.Date(2024, 11, 12, 0, 0, 0, 0, time.UTC),
				time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
			}
			var paths []string
			for _, t := range times {
				paths = append(paths, nexus_eventlog.PartitionPath("/d", "SPY", t.UnixNano()))
			}
			Expect(sort.StringsAreSorted(paths)).To(BeTrue())
		})

		It("appends the partial suffix", func() {
			Expect(nexus_eventlog.PartialPath("/d/SPY/2024/01/02.parquet")).
				To(Equal("/d/SPY/2024/01/02.parquet.partial"))
		})
	})

	Context("path parsing", func() {
		It("round-trips build and parse", func() {
			ts := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC).UnixNano()
			path := nexus_eventlog.PartitionPath("/data/ticks", "AAPL", ts)
			symbol, year, month, day, err := nexus_eventlog.ParsePartitionPath(path)
			Expect(err).To(BeNil())
			Expect(symbol).To(Equal("AAPL"))
			Expect(year).To(Equal(2024))
			Expect(month).To(Equal(3))
			Expect(day).To(Equal(7))
		})

		It("rejects paths that are not canonical", func() {
			for _, bad := range []string{
				"/data/AAPL/2024/03/07.csv",
				"/data/AAPL/2024/3/07.parquet",
				"/data/AAPL/24/03/07.parquet",
				"/data/AAPL/2024/13/07.parquet",
				"/data/AAPL/2024/03/32.parquet",
				"07.parquet",
			} {
				_, _, _, _, err := nexus_eventlog.ParsePartitionPath(bad)
				Expect(err).To(MatchError(nexus.ErrNotPartitionPath), "path: %s", bad)
			}
		})
	})

	Context("enumeration", func() {
		var base string

		BeforeEach(func() {
			var err error
			base, err = os.MkdirTemp("", "partition-test-*")
			Expect(err).To(BeNil())
			DeferCleanup(func() { os.RemoveAll(base) })

			touch := func(rel string) {
				path := filepath.Join(base, rel)
				Expect(os.MkdirAll(filepath.Dir(path), 0o755)).To(Succeed())
				Expect(os.WriteFile(path, nil, 0o644)).To(Succeed())
			}
			touch("AAPL/2024/01/02.parquet")
			touch("AAPL/2024/01/03.parquet")
			touch("AAPL/2024/01/04.parquet.partial")
			touch("MSFT/2024/01/02.parquet")
		})

		It("lists one symbol's published files in order, hiding partials", func() {
			files, err := nexus_eventlog.ListSymbolFiles(base, "AAPL")
			Expect(err).To(BeNil())
			Expect(files).To(Equal([]string{
				filepath.Join(base, "AAPL/2024/01/02.parquet"),
				filepath.Join(base, "AAPL/2024/01/03.parquet"),
			}))
		})

		It("lists all symbols", func() {
			files, err := nexus_eventlog.ListFiles(base)
			Expect(err).To(BeNil())
			Expect(files).To(HaveLen(3))
		})

		It("surfaces orphaned partials as the forensic signal", func() {
			partials, err := nexus_eventlog.ListPartialFiles(base)
			Expect(err).To(BeNil())
			Expect(partials).To(Equal([]string{
				filepath.Join(base, "AAPL/2024/01/04.parquet.partial"),
			}))
		})

		It("returns nothing for a missing directory", func() {
			files, err := nexus_eventlog.ListSymbolFiles(base, "TSLA")
			Expect(err).To(BeNil())
			Expect(files).To(BeEmpty())
		})
	})
})
