package domain

import "time"

// Document is an ingested document: caller-supplied ID (typically the original
// filename), extracted plain-text content, and the embedding vector computed
// during add. IDs are not required to be unique; re-adding an existing ID
// overwrites the stored content and vector (last-write-wins).
type Document struct {
	ID      string
	Content string
	Vector  []float32 // absent until indexed
}

// SearchResult is a single ranked hit. Derived per query, never stored.
type SearchResult struct {
	ID        string
	Excerpt   string
	Score     float64 // cosine similarity, [-1, 1]
	SourceRef string
}

// DocumentMeta is the per-document metadata surfaced by the debug listing.
// InsertedAt is zero for the in-memory backend, which tracks no timestamps.
type DocumentMeta struct {
	ID            string    `json:"id"`
	ContentLength int       `json:"content_length"`
	InsertedAt    time.Time `json:"inserted_at,omitzero"`
}

// BackendKind identifies which storage backend is active.
type BackendKind string

const (
	// BackendInMemory is the full-scan backend for small corpora.
	BackendInMemory BackendKind = "in_memory"
	// BackendIndexed is the metadata-attaching backend selected once the
	// corpus outgrows the in-memory threshold.
	BackendIndexed BackendKind = "indexed"
)

// EngineStatus is a read-only snapshot of the engine's routing state.
type EngineStatus struct {
	ActiveBackend BackendKind `json:"mode"`
	DocumentCount int         `json:"file_count"`
	Threshold     int         `json:"threshold"`
	ForceIndexed  bool        `json:"force_indexed"`
}
