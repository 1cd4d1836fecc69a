package insightfinder

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/shashi-deop/insightfinder/internal/domain"
	"github.com/shashi-deop/insightfinder/internal/repository/indexed"
	"github.com/shashi-deop/insightfinder/internal/repository/memory"
	"github.com/shashi-deop/insightfinder/internal/usecase/engine"
)

// Client is the insightfinder SDK entry point. It runs the search engine
// in-process, so no server deployment is needed.
type Client struct {
	engine *engine.Service
	pool   *ants.Pool
	obs    *observer
}

// New creates a Client with the given options. An Embedder is required.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.embedder == nil {
		return nil, errors.New("insightfinder: embedder required (use WithEmbedder)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	poolSize := cfg.poolSize
	if poolSize <= 0 {
		poolSize = runtime.NumCPU() / 2
		if poolSize < 1 {
			poolSize = 1
		}
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("insightfinder: create embed pool: %w", err)
	}

	emb := &embedderAdapter{inner: cfg.embedder}
	log := zap.NewNop()

	memRepo := memory.New(emb, pool, log).WithMinScore(cfg.minScore)
	idxRepo := indexed.New(emb, pool, log).WithMinScore(cfg.minScore)

	eng := engine.New(memRepo, idxRepo, emb, log)
	if cfg.threshold > 0 {
		eng = eng.WithThreshold(cfg.threshold)
	}
	if cfg.forceIndexed {
		eng = eng.WithForceIndexed(true)
	}
	if cfg.defaultTopK > 0 {
		eng = eng.WithDefaultTopK(cfg.defaultTopK)
	}

	return &Client{engine: eng, pool: pool, obs: obs}, nil
}

// Close releases the embedding worker pool.
func (c *Client) Close() {
	if c.pool != nil {
		c.pool.Release()
	}
}

// Add vectorizes and stores the documents, returning the stored names.
// Documents whose embedding fails are dropped; the call errors only when
// every document in the batch fails.
func (c *Client) Add(ctx context.Context, docs []Document) (_ []string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("add", start, err) }()

	in := make([]domain.Document, len(docs))
	for i, d := range docs {
		in[i] = domain.Document{ID: d.Name, Content: d.Content}
	}

	ids, err := c.engine.Add(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("add: %w", err)
	}
	return ids, nil
}

// Search ranks the corpus against the query. topK = 0 uses the default.
func (c *Client) Search(ctx context.Context, query string, topK int) (_ []SearchResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	hits, err := c.engine.Search(ctx, query, topK)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	out := make([]SearchResult, len(hits))
	for i, h := range hits {
		out[i] = SearchResult{Name: h.ID, Excerpt: h.Excerpt, Score: h.Score}
	}
	return out, nil
}

// Get resolves a document by name, tolerating encoded and underscored
// variants of the stored name.
func (c *Client) Get(ctx context.Context, name string) (_ Document, err error) {
	start := time.Now()
	defer func() { c.obs.observe("get", start, err) }()

	doc, err := c.engine.Resolve(ctx, name)
	if err != nil {
		return Document{}, fmt.Errorf("get: %w", err)
	}
	return Document{Name: doc.ID, Content: doc.Content}, nil
}

// Status reports the active backend and corpus size.
func (c *Client) Status() Status {
	st := c.engine.Status()
	return Status{
		Mode:          string(st.ActiveBackend),
		DocumentCount: st.DocumentCount,
		Threshold:     st.Threshold,
		ForceIndexed:  st.ForceIndexed,
	}
}

// embedderAdapter wraps the public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}
