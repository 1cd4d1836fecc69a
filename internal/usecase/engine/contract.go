package engine

import (
	"context"

	"github.com/shashi-deop/insightfinder/internal/domain"
)

// Backend is the storage contract shared by the in-memory and indexed
// variants. Add embeds documents internally via the backend's document
// embedder; Search takes an already-embedded query vector.
type Backend interface {
	Add(ctx context.Context, docs []domain.Document) (storedIDs []string, err error)
	Search(ctx context.Context, query []float32, topK int) ([]domain.SearchResult, error)
	Get(id string) (domain.Document, bool)
	Len() int
	List() []domain.DocumentMeta
}

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
