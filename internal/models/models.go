package models

import "time"

// Document is one ingested source document. General-knowledge documents
// live in Postgres; session documents exist only for the lifetime of the
// session index, so DocumentID on their chunks stays empty.
type Document struct {
	DocumentID   string    `json:"document_id"`
	Filename     string    `json:"filename"`
	SourceType   string    `json:"source_type"`
	Language     string    `json:"language"`
	Jurisdiction string    `json:"jurisdiction"`
	CreatedAt    time.Time `json:"created_at"`
}

// ChunkPayload is the chunker's output unit: text plus the metadata the
// caller supplied for the whole document. The metadata map is shared
// across chunks and must be treated as immutable after the call.
type ChunkPayload struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

// Chunk is a stored chunk row. Position is the chunk's offset in the
// session index vector list; it is nil for general-knowledge chunks.
type Chunk struct {
	ChunkID    string         `json:"chunk_id"`
	DocumentID string         `json:"document_id,omitempty"`
	Text       string         `json:"text"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Position   *int64         `json:"position,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// RetrievedChunk is a search hit from either store.
type RetrievedChunk struct {
	Text       string         `json:"text"`
	DocumentID string         `json:"document_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Score      float64        `json:"score"`
	Source     string         `json:"source"`
}

// QueryLog is the append-only audit record written once per answered
// query. The retrieval path never reads it.
type QueryLog struct {
	QueryID   string    `json:"query_id"`
	QueryText string    `json:"query_text"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"created_at"`
}

// Chunk source markers set by the index manager.
const (
	SourceSession = "session"
	SourceGeneral = "general"
)
