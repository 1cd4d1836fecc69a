package insightfinder

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	embedder Embedder

	threshold    int
	forceIndexed bool
	defaultTopK  int
	minScore     float64
	poolSize     int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithEmbedder sets the text embedding provider. Required.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithThreshold sets the corpus size at which the engine switches from the
// in-memory backend to the indexed backend. Default: 100.
func WithThreshold(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.threshold = n
	})
}

// WithForceIndexed routes all documents to the indexed backend regardless
// of corpus size.
func WithForceIndexed() Option {
	return optionFunc(func(c *clientConfig) {
		c.forceIndexed = true
	})
}

// WithDefaultTopK sets the result count used when Search is called with
// topK = 0. Default: 10.
func WithDefaultTopK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultTopK = k
	})
}

// WithMinScore sets the relevance cutoff below which results are dropped.
// Default: 0.1.
func WithMinScore(s float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.minScore = s
	})
}

// WithPoolSize sets the number of concurrent document embeddings during
// ingest. Default: half the CPU count.
func WithPoolSize(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.poolSize = n
	})
}

// WithLogger enables structured logging for client operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
