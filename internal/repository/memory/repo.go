// Package memory is the full-scan storage backend for small corpora: plain
// maps, no index structure, every search scans all stored vectors.
package memory

import (
	"context"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/shashi-deop/insightfinder/internal/domain"
	"github.com/shashi-deop/insightfinder/internal/domain/rank"
	"github.com/shashi-deop/insightfinder/internal/repository/ingest"
)

// Repo stores (content, vector) pairs keyed by document ID.
type Repo struct {
	embed    domain.Embedder
	pool     *ants.Pool
	logger   *zap.Logger
	minScore float64

	mu    sync.RWMutex
	docs  map[string]domain.Document
	order []string // IDs in first-ingestion order; re-adds keep their slot
}

// New creates an in-memory backend.
func New(embed domain.Embedder, pool *ants.Pool, logger *zap.Logger) *Repo {
	return &Repo{
		embed:    embed,
		pool:     pool,
		logger:   logger,
		minScore: rank.DefaultMinScore,
		docs:     make(map[string]domain.Document),
	}
}

// WithMinScore overrides the relevance cutoff.
func (r *Repo) WithMinScore(s float64) *Repo {
	if s > 0 {
		r.minScore = s
	}
	return r
}

// Add embeds each document once and stores it. Returns the IDs actually
// stored; documents whose embedding failed are dropped from the batch.
func (r *Repo) Add(ctx context.Context, docs []domain.Document) ([]string, error) {
	embedded, err := ingest.EmbedAll(ctx, r.pool, r.embed, r.logger, docs)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(embedded))
	for _, doc := range embedded {
		if _, exists := r.docs[doc.ID]; !exists {
			r.order = append(r.order, doc.ID)
		}
		r.docs[doc.ID] = doc
		ids = append(ids, doc.ID)
	}
	return ids, nil
}

// Search ranks all stored documents against the query vector.
func (r *Repo) Search(ctx context.Context, query []float32, topK int) ([]domain.SearchResult, error) {
	_ = ctx

	r.mu.RLock()
	cands := make([]rank.Candidate, 0, len(r.order))
	for _, id := range r.order {
		doc := r.docs[id]
		cands = append(cands, rank.Candidate{ID: doc.ID, Content: doc.Content, Vector: doc.Vector})
	}
	r.mu.RUnlock()

	return rank.Rank(query, cands, topK, r.minScore)
}

// Get returns a stored document by ID.
func (r *Repo) Get(id string) (domain.Document, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	return doc, ok
}

// Len returns the number of stored documents.
func (r *Repo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}

// List returns per-document metadata in ingestion order. The in-memory
// backend tracks no timestamps, so InsertedAt is always zero.
func (r *Repo) List() []domain.DocumentMeta {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := make([]domain.DocumentMeta, 0, len(r.order))
	for _, id := range r.order {
		entries = append(entries, domain.DocumentMeta{
			ID:            id,
			ContentLength: len(r.docs[id].Content),
		})
	}
	return entries
}
