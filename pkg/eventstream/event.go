// Package eventstream publishes ingestion lifecycle events to an event
// stream backend.
package eventstream

import "time"

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeDocumentIngested is emitted after a document and all of its
	// chunks are committed.
	EventTypeDocumentIngested = "stacks.document.ingested"
)

// DocumentIngestedEvent is a transport-neutral event payload for a
// successfully ingested document.
type DocumentIngestedEvent struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	EventID       string       `json:"event_id"`
	EmittedAt     time.Time    `json:"emitted_at"`
	Document      DocumentMeta `json:"document"`
	ChunksStored  int          `json:"chunks_stored"`
	DurationMs    int64        `json:"duration_ms"`
}

// DocumentMeta identifies the ingested document.
type DocumentMeta struct {
	ID       int64  `json:"id"`
	Filename string `json:"filename"`
}
