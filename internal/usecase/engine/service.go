// Package engine implements the scalable search engine: a two-state routing
// machine that ingests documents into whichever storage backend the corpus
// size selects, and answers semantic queries against the active backend.
//
// Routing contract: the document count is incremented by the full batch size
// before the policy is evaluated, the policy runs once per Add call, and the
// batch is written only into the backend selected for that call. Documents
// ingested before a backend switch stay in the previous backend and are NOT
// copied over; after a switch they are unreachable for Search and Resolve
// until re-added. This partitioning is part of the engine's public contract.
package engine

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/shashi-deop/insightfinder/internal/domain"
	"github.com/shashi-deop/insightfinder/internal/domain/lookup"
	"github.com/shashi-deop/insightfinder/internal/metrics"
)

// DefaultThreshold is the corpus size at which the engine switches from the
// in-memory backend to the indexed backend.
const DefaultThreshold = 100

// DefaultTopK is the result limit used when the caller passes topK == 0.
const DefaultTopK = 10

// Service routes ingestion and search between the two storage backends.
type Service struct {
	memory       Backend
	indexed      Backend
	queryEmbed   Embedder
	logger       *zap.Logger
	threshold    int
	forceIndexed bool
	defaultTopK  int

	// addMu serializes Add calls end to end so the routing decision and the
	// backend write are atomic with respect to each other.
	addMu sync.Mutex

	// mu guards count, active, and the resolver.
	mu       sync.RWMutex
	count    int
	active   domain.BackendKind
	resolver *lookup.Resolver
}

// New creates an engine with the in-memory backend active.
func New(memory, indexed Backend, queryEmbed Embedder, logger *zap.Logger) *Service {
	return &Service{
		memory:      memory,
		indexed:     indexed,
		queryEmbed:  queryEmbed,
		logger:      logger,
		threshold:   DefaultThreshold,
		defaultTopK: DefaultTopK,
		active:      domain.BackendInMemory,
		resolver:    lookup.NewResolver(),
	}
}

// WithThreshold overrides the backend switch point.
func (s *Service) WithThreshold(n int) *Service {
	if n > 0 {
		s.threshold = n
	}
	return s
}

// WithForceIndexed routes every add to the indexed backend regardless of count.
func (s *Service) WithForceIndexed(force bool) *Service {
	s.forceIndexed = force
	return s
}

// WithDefaultTopK overrides the default result limit.
func (s *Service) WithDefaultTopK(k int) *Service {
	if k > 0 {
		s.defaultTopK = k
	}
	return s
}

// Add ingests a batch of documents. Empty batches are a no-op. Documents with
// empty content are skipped. A single document's embedding failure drops only
// that document; domain.ErrProviderUnavailable rolls the engine state back and
// leaves nothing applied.
func (s *Service) Add(ctx context.Context, docs []domain.Document) ([]string, error) {
	batch := make([]domain.Document, 0, len(docs))
	for _, doc := range docs {
		if doc.Content == "" {
			continue
		}
		batch = append(batch, doc)
	}
	if len(batch) == 0 {
		return nil, nil
	}

	s.addMu.Lock()
	defer s.addMu.Unlock()

	s.mu.Lock()
	prevCount, prevActive := s.count, s.active
	s.count += len(batch)
	kind := s.route()
	if kind != s.active {
		s.logger.Info("Switching storage backend",
			zap.String("from", string(s.active)),
			zap.String("to", string(kind)),
			zap.Int("document_count", s.count),
		)
		s.active = kind
	}
	backend := s.backendFor(kind)
	s.mu.Unlock()

	ids, err := backend.Add(ctx, batch)
	if err != nil {
		s.mu.Lock()
		s.count, s.active = prevCount, prevActive
		s.mu.Unlock()
		return nil, fmt.Errorf("add %d documents: %w", len(batch), err)
	}

	s.mu.Lock()
	for _, id := range ids {
		s.resolver.Register(id)
	}
	s.mu.Unlock()

	metrics.DocumentsIngestedTotal.WithLabelValues(string(kind)).Add(float64(len(ids)))
	s.logger.Info("Documents ingested",
		zap.String("backend", string(kind)),
		zap.Int("stored", len(ids)),
		zap.Int("dropped", len(batch)-len(ids)),
	)
	return ids, nil
}

// Search embeds the query once and delegates to the active backend.
// topK == 0 selects the configured default; a never-populated active backend
// yields an empty result list without calling the embedding provider.
func (s *Service) Search(ctx context.Context, query string, topK int) ([]domain.SearchResult, error) {
	if topK < 0 {
		return nil, fmt.Errorf("topK must be non-negative, got %d: %w", topK, domain.ErrInvalidArgument)
	}
	if topK == 0 {
		topK = s.defaultTopK
	}

	s.mu.RLock()
	kind := s.active
	s.mu.RUnlock()
	backend := s.backendFor(kind)

	if backend.Len() == 0 {
		return []domain.SearchResult{}, nil
	}

	res, err := s.queryEmbed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	results, err := backend.Search(ctx, res.Embedding, topK)
	if err != nil {
		return nil, fmt.Errorf("search %s backend: %w", kind, err)
	}

	metrics.SearchesTotal.WithLabelValues(string(kind)).Inc()
	return results, nil
}

// Resolve maps an external document identifier to the stored document via
// multi-key lookup against the active backend.
func (s *Service) Resolve(ctx context.Context, externalID string) (domain.Document, error) {
	_ = ctx

	s.mu.RLock()
	id, ok := s.resolver.Resolve(externalID)
	kind := s.active
	s.mu.RUnlock()

	if !ok {
		return domain.Document{}, fmt.Errorf("resolve %q: %w", externalID, domain.ErrDocumentNotFound)
	}

	doc, ok := s.backendFor(kind).Get(id)
	if !ok {
		// The ID resolved but the document lives in the inactive backend
		// (ingested before a switch).
		return domain.Document{}, fmt.Errorf("document %q not in active backend: %w", id, domain.ErrDocumentNotFound)
	}
	return doc, nil
}

// Status returns a read-only snapshot of the routing state.
func (s *Service) Status() domain.EngineStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.EngineStatus{
		ActiveBackend: s.active,
		DocumentCount: s.count,
		Threshold:     s.threshold,
		ForceIndexed:  s.forceIndexed,
	}
}

// Entries lists per-document metadata from the active backend plus all
// registered lookup keys, for the debug endpoint.
func (s *Service) Entries() ([]domain.DocumentMeta, []string) {
	s.mu.RLock()
	kind := s.active
	keys := s.resolver.Keys()
	s.mu.RUnlock()
	return s.backendFor(kind).List(), keys
}

// route evaluates the routing policy against the current count.
func (s *Service) route() domain.BackendKind {
	if s.count <= s.threshold && !s.forceIndexed {
		return domain.BackendInMemory
	}
	return domain.BackendIndexed
}

func (s *Service) backendFor(kind domain.BackendKind) Backend {
	if kind == domain.BackendIndexed {
		return s.indexed
	}
	return s.memory
}
