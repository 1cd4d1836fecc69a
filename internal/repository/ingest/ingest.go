// Package ingest embeds document batches through a bounded worker pool.
// Both storage backends share it so that ingestion semantics (ordering,
// per-document failure isolation) stay identical across backends.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/shashi-deop/insightfinder/internal/domain"
)

// EmbedAll vectorizes every document concurrently through the pool, preserving
// input order in the returned slice. A document whose embedding fails is
// dropped without affecting its siblings. When every document in a non-empty
// batch fails with a provider error, the provider is considered unreachable
// for the whole call and domain.ErrProviderUnavailable is returned with
// nothing embedded.
func EmbedAll(
	ctx context.Context,
	pool *ants.Pool,
	embed domain.Embedder,
	logger *zap.Logger,
	docs []domain.Document,
) ([]domain.Document, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(docs))
	errs := make([]error, len(docs))

	var wg sync.WaitGroup
	for i := range docs {
		i := i
		wg.Add(1)
		task := func() {
			defer wg.Done()
			res, err := embed.Embed(ctx, docs[i].Content)
			if err != nil {
				errs[i] = err
				return
			}
			vectors[i] = res.Embedding
		}
		if pool == nil || pool.Submit(task) != nil {
			// No pool, or the pool rejected the task: run inline.
			task()
		}
	}
	wg.Wait()

	embedded := make([]domain.Document, 0, len(docs))
	failed := 0
	providerDown := true
	for i := range docs {
		if errs[i] != nil {
			failed++
			if !errors.Is(errs[i], domain.ErrProviderUnavailable) {
				providerDown = false
			}
			logger.Warn("Dropping document: embedding failed",
				zap.String("id", docs[i].ID),
				zap.Error(errs[i]),
			)
			continue
		}
		doc := docs[i]
		doc.Vector = vectors[i]
		embedded = append(embedded, doc)
	}

	if failed == len(docs) && providerDown {
		return nil, fmt.Errorf("embed batch of %d: %w", len(docs), domain.ErrProviderUnavailable)
	}

	return embedded, nil
}
