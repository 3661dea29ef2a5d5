// Copyright (c) 2025 Neomantra Corp

package nexus_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	nexus "github.com/skywalkerx28/nexus-sub000"
)

var _ = Describe("FileMetadata", func() {
	It("round-trips through the footer map form", func() {
		meta := nexus.FileMetadata{
			SchemaVersion:   nexus.SchemaVersion,
			NexusVersion:    nexus.NexusVersion,
			IngestSessionID: "0b6cbbea-0a4f-4be4-9e1c-0b0f64b51b0a",
			IngestStartNs:   1704067200_000000000,
			IngestEndNs:     1704067300_000000000,
			Symbol:          "AAPL",
			Venue:           "XNAS",
			Source:          "ws",
			IngestHost:      "cap01",
			FeedMode:        nexus.FeedMode_Live,
			WriteComplete:   true,
		}
		parsed, err := nexus.FileMetadataFromMap(meta.ToMap())
		Expect(err).To(BeNil())
		Expect(*parsed).To(Equal(meta))
	})

	It("serializes booleans and integers as strings", func() {
		meta := nexus.FileMetadata{SchemaVersion: "1.0", IngestStartNs: 42}
		kv := meta.ToMap()
		Expect(kv[nexus.MetaKeyWriteComplete]).To(Equal("false"))
		Expect(kv[nexus.MetaKeyIngestStartNs]).To(Equal("42"))

		meta.WriteComplete = true
		Expect(meta.ToMap()[nexus.MetaKeyWriteComplete]).To(Equal("true"))
	})

	It("refuses a map without the schema version key", func() {
		_, err := nexus.FileMetadataFromMap(map[string]string{"unrelated": "x"})
		Expect(err).To(MatchError(nexus.ErrNoMetadata))
	})

	It("ignores unknown keys", func() {
		kv := (&nexus.FileMetadata{SchemaVersion: "1.0"}).ToMap()
		kv["future_key"] = "whatever"
		parsed, err := nexus.FileMetadataFromMap(kv)
		Expect(err).To(BeNil())
		Expect(parsed.SchemaVersion).To(Equal("1.0"))
	})
})
