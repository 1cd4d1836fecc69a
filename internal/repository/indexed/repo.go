// Package indexed is the storage backend selected once the corpus outgrows
// the in-memory threshold. It shares the engine contract with the memory
// backend and additionally attaches per-document metadata; it is the
// substitution point where a real vector index would plug in without
// changing the engine.
package indexed

import (
	"context"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/shashi-deop/insightfinder/internal/domain"
	"github.com/shashi-deop/insightfinder/internal/domain/rank"
	"github.com/shashi-deop/insightfinder/internal/repository/ingest"
)

type record struct {
	doc        domain.Document
	insertedAt time.Time
}

// Repo stores documents with vectors and per-document metadata.
type Repo struct {
	embed    domain.Embedder
	pool     *ants.Pool
	logger   *zap.Logger
	minScore float64
	now      func() time.Time

	mu      sync.RWMutex
	records map[string]record
	order   []string
}

// New creates an indexed backend.
func New(embed domain.Embedder, pool *ants.Pool, logger *zap.Logger) *Repo {
	return &Repo{
		embed:    embed,
		pool:     pool,
		logger:   logger,
		minScore: rank.DefaultMinScore,
		now:      time.Now,
		records:  make(map[string]record),
	}
}

// WithMinScore overrides the relevance cutoff.
func (r *Repo) WithMinScore(s float64) *Repo {
	if s > 0 {
		r.minScore = s
	}
	return r
}

// WithClock overrides the timestamp source (tests).
func (r *Repo) WithClock(now func() time.Time) *Repo {
	r.now = now
	return r
}

// Add embeds each document once and stores it with metadata. Returns the IDs
// actually stored; documents whose embedding failed are dropped from the batch.
func (r *Repo) Add(ctx context.Context, docs []domain.Document) ([]string, error) {
	embedded, err := ingest.EmbedAll(ctx, r.pool, r.embed, r.logger, docs)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(embedded))
	for _, doc := range embedded {
		if _, exists := r.records[doc.ID]; !exists {
			r.order = append(r.order, doc.ID)
		}
		r.records[doc.ID] = record{doc: doc, insertedAt: r.now()}
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
		rec := r.records[id]
		cands = append(cands, rank.Candidate{ID: rec.doc.ID, Content: rec.doc.Content, Vector: rec.doc.Vector})
	}
	r.mu.RUnlock()

	return rank.Rank(query, cands, topK, r.minScore)
}

// Get returns a stored document by ID.
func (r *Repo) Get(id string) (domain.Document, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	return rec.doc, ok
}

// Len returns the number of stored documents.
func (r *Repo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// List returns per-document metadata in ingestion order.
func (r *Repo) List() []domain.DocumentMeta {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := make([]domain.DocumentMeta, 0, len(r.order))
	for _, id := range r.order {
		rec := r.records[id]
		entries = append(entries, domain.DocumentMeta{
			ID:            id,
			ContentLength: len(rec.doc.Content),
			InsertedAt:    rec.insertedAt,
		})
	}
	return entries
}
