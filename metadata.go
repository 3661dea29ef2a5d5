// Copyright (c) 2025 Neomantra Corp
//
// File-level metadata contract. The writer serializes FileMetadata into the
// Parquet footer's key/value map; the reader parses it back. All values are
// UTF-8 strings: booleans as literal "true"/"false", integers as decimal
// strings.

package nexus

import "strconv"

// Metadata keys stored in the file footer.
const (
	MetaKeySchemaVersion   = "schema_version"
	MetaKeyNexusVersion    = "nexus_version"
	MetaKeyIngestSessionID = "ingest_session_id"
	MetaKeyIngestStartNs   = "ingest_start_ns"
	MetaKeyIngestEndNs     = "ingest_end_ns"
	MetaKeySymbol          = "symbol"
	MetaKeyVenue           = "venue"
	MetaKeySource          = "source"
	MetaKeyIngestHost      = "ingest_host"
	MetaKeyFeedMode        = "feed_mode"
	MetaKeyWriteComplete   = "write_complete"
)

// FileMetadata is the typed view of one event log file's footer metadata.
type FileMetadata struct {
	SchemaVersion   string
	NexusVersion    string
	IngestSessionID string // random 128-bit identifier per recorder lifetime
	IngestStartNs   int64
	IngestEndNs     int64
	Symbol          string
	Venue           string
	Source          string
	IngestHost      string
	FeedMode        FeedMode
	WriteComplete   bool // the crash-safety marker
}

// ToMap serializes the metadata into the footer's string map form.
func (m *FileMetadata) ToMap() map[string]string {
	return map[string]string{
		MetaKeySchemaVersion:   m.SchemaVersion,
		MetaKeyNexusVersion:    m.NexusVersion,
		MetaKeyIngestSessionID: m.IngestSessionID,
		MetaKeyIngestStartNs:   strconv.FormatInt(m.IngestStartNs, 10),
		MetaKeyIngestEndNs:     strconv.FormatInt(m.IngestEndNs, 10),
		MetaKeySymbol:          m.Symbol,
		MetaKeyVenue:           m.Venue,
		MetaKeySource:          m.Source,
		MetaKeyIngestHost:      m.IngestHost,
		MetaKeyFeedMode:        string(m.FeedMode),
		MetaKeyWriteComplete:   strconv.FormatBool(m.WriteComplete),
	}
}

// FileMetadataFromMap parses footer metadata back into its typed form.
// Returns ErrNoMetadata if the map lacks the schema version key. Unknown
// keys are ignored; missing optional keys leave zero values.
func FileMetadataFromMap(kv map[string]string) (*FileMetadata, error) {
	if _, ok := kv[MetaKeySchemaVersion]; !ok {
		return nil, ErrNoMetadata
	}
	m := &FileMetadata{
		SchemaVersion:   kv[MetaKeySchemaVersion],
		NexusVersion:    kv[MetaKeyNexusVersion],
		IngestSessionID: kv[MetaKeyIngestSessionID],
		Symbol:          kv[MetaKeySymbol],
		Venue:           kv[MetaKeyVenue],
		Source:          kv[MetaKeySource],
		IngestHost:      kv[MetaKeyIngestHost],
		FeedMode:        FeedMode(kv[MetaKeyFeedMode]),
	}
	m.IngestStartNs, _ = strconv.ParseInt(kv[MetaKeyIngestStartNs], 10, 64)
	m.IngestEndNs, _ = strconv.ParseInt(kv[MetaKeyIngestEndNs], 10, 64)
	m.WriteComplete = kv[MetaKeyWriteComplete] == "true"
	return m, nil
}
