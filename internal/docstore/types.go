package docstore

import "time"

// DocumentMeta is the durable, per-document metadata row: one per
// (namespace, id), created atomically with the document's chunks.
type DocumentMeta struct {
	ID            string
	DocumentName  string
	ContentLength int
	ContentHash   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DocumentList is a page of metadata plus the namespace's total count,
// matching the HTTP DocumentList response in spec §6.
type DocumentList struct {
	Items []DocumentMeta
	Count int
}

// ListOptions models the "dynamic configuration struct ->  explicit
// option record" REDESIGN FLAGS note in spec §9: limit/cursor/offset are
// enumerated fields instead of a loosely-typed kwargs map.
type ListOptions struct {
	Limit  int
	Offset int
	// Cursor, when non-empty, takes precedence over Offset and is
	// interpreted as "id <= cursor" per spec §4.3.
	Cursor string
}

// IngestOptions configures a streaming ingest call.
type IngestOptions struct {
	// MaxBatchBytes bounds the size of the pending chunk buffer before it
	// is flushed with a batch insert. Zero selects DefaultMaxBatchBytes.
	MaxBatchBytes int
}

// DefaultMaxBatchBytes is the default chunk-buffer flush threshold.
const DefaultMaxBatchBytes = 1 << 20 // 1 MiB
