package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/shashi-deop/insightfinder/internal/domain"
)

// --- Mocks ---

// mockBackend records every Add and Search so tests can assert routing.
type mockBackend struct {
	docs      map[string]domain.Document
	order     []string
	addErr    error
	searchErr error

	addCalls    int
	searchCalls int
	lastTopK    int
}

func newMockBackend() *mockBackend {
	return &mockBackend{docs: make(map[string]domain.Document)}
}

func (m *mockBackend) Add(_ context.Context, docs []domain.Document) ([]string, error) {
	m.addCalls++
	if m.addErr != nil {
		return nil, m.addErr
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		if _, ok := m.docs[d.ID]; !ok {
			m.order = append(m.order, d.ID)
		}
		m.docs[d.ID] = d
		ids = append(ids, d.ID)
	}
	return ids, nil
}

func (m *mockBackend) Search(_ context.Context, _ []float32, topK int) ([]domain.SearchResult, error) {
	m.searchCalls++
	m.lastTopK = topK
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	out := make([]domain.SearchResult, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, domain.SearchResult{ID: id, Score: 0.5})
	}
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (m *mockBackend) Get(id string) (domain.Document, bool) {
	doc, ok := m.docs[id]
	return doc, ok
}

func (m *mockBackend) Len() int { return len(m.docs) }

func (m *mockBackend) List() []domain.DocumentMeta {
	out := make([]domain.DocumentMeta, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, domain.DocumentMeta{ID: id, ContentLength: len(m.docs[id].Content)})
	}
	return out
}

type mockEmbedder struct {
	vec    []float32
	err    error
	called int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.called++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec}, nil
}

func newService(mem, idx *mockBackend) *Service {
	return New(mem, idx, &mockEmbedder{vec: []float32{1, 0}}, zap.NewNop())
}

func makeDocs(n, offset int) []domain.Document {
	docs := make([]domain.Document, n)
	for i := range docs {
		docs[i] = domain.Document{ID: fmt.Sprintf("doc-%03d", offset+i), Content: "content"}
	}
	return docs
}

// --- Routing ---

func TestAdd_StaysInMemoryAtThreshold(t *testing.T) {
	mem, idx := newMockBackend(), newMockBackend()
	svc := newService(mem, idx).WithThreshold(100)

	if _, err := svc.Add(context.Background(), makeDocs(100, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if mem.addCalls != 1 || idx.addCalls != 0 {
		t.Errorf("expected in-memory write only, got mem=%d idx=%d", mem.addCalls, idx.addCalls)
	}
	st := svc.Status()
	if st.ActiveBackend != domain.BackendInMemory {
		t.Errorf("expected in_memory at exactly the threshold, got %s", st.ActiveBackend)
	}
	if st.DocumentCount != 100 {
		t.Errorf("expected count 100, got %d", st.DocumentCount)
	}
}

func TestAdd_SwitchesWhenThresholdExceeded(t *testing.T) {
	mem, idx := newMockBackend(), newMockBackend()
	svc := newService(mem, idx).WithThreshold(100)

	if _, err := svc.Add(context.Background(), makeDocs(101, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if idx.addCalls != 1 || mem.addCalls != 0 {
		t.Errorf("expected indexed write only, got mem=%d idx=%d", mem.addCalls, idx.addCalls)
	}
	if svc.Status().ActiveBackend != domain.BackendIndexed {
		t.Errorf("expected indexed backend after exceeding threshold")
	}
}

func TestAdd_CountedBeforeRouting(t *testing.T) {
	// 99 stored, then a batch of 2: the count reaches 101 before the policy
	// runs, so the whole batch lands in the indexed backend.
	mem, idx := newMockBackend(), newMockBackend()
	svc := newService(mem, idx).WithThreshold(100)

	if _, err := svc.Add(context.Background(), makeDocs(99, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Add(context.Background(), makeDocs(2, 99)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if idx.addCalls != 1 {
		t.Errorf("expected second batch in indexed backend, got %d indexed writes", idx.addCalls)
	}
	if len(idx.docs) != 2 {
		t.Errorf("expected whole batch of 2 in indexed backend, got %d", len(idx.docs))
	}
	if len(mem.docs) != 99 {
		t.Errorf("in-memory corpus must keep its 99 documents, got %d", len(mem.docs))
	}
}

func TestAdd_SwitchIsMonotonic(t *testing.T) {
	// Once indexed, later small batches stay indexed: the count never drops.
	mem, idx := newMockBackend(), newMockBackend()
	svc := newService(mem, idx).WithThreshold(10)

	if _, err := svc.Add(context.Background(), makeDocs(11, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Add(context.Background(), makeDocs(1, 11)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if mem.addCalls != 0 {
		t.Errorf("no batch may land in memory after the switch")
	}
	if idx.addCalls != 2 {
		t.Errorf("expected both batches indexed, got %d", idx.addCalls)
	}
}

func TestAdd_ForceIndexedFromFirstDocument(t *testing.T) {
	mem, idx := newMockBackend(), newMockBackend()
	svc := newService(mem, idx).WithForceIndexed(true)

	if _, err := svc.Add(context.Background(), makeDocs(1, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if mem.addCalls != 0 || idx.addCalls != 1 {
		t.Errorf("force-indexed must bypass memory, got mem=%d idx=%d", mem.addCalls, idx.addCalls)
	}
	if svc.Status().ActiveBackend != domain.BackendIndexed {
		t.Errorf("expected indexed backend")
	}
}

func TestAdd_EmptyBatchNoOp(t *testing.T) {
	mem, idx := newMockBackend(), newMockBackend()
	svc := newService(mem, idx)

	ids, err := svc.Add(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected no ids, got %v", ids)
	}
	if svc.Status().DocumentCount != 0 {
		t.Errorf("empty add must not change the count")
	}
	if mem.addCalls != 0 || idx.addCalls != 0 {
		t.Errorf("empty add must not touch a backend")
	}
}

func TestAdd_SkipsEmptyContent(t *testing.T) {
	mem, idx := newMockBackend(), newMockBackend()
	svc := newService(mem, idx)

	docs := []domain.Document{
		{ID: "empty.txt", Content: ""},
		{ID: "full.txt", Content: "text"},
	}
	ids, err := svc.Add(context.Background(), docs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 1 || ids[0] != "full.txt" {
		t.Errorf("expected only full.txt stored, got %v", ids)
	}
	if svc.Status().DocumentCount != 1 {
		t.Errorf("empty-content documents must not be counted, got %d", svc.Status().DocumentCount)
	}
}

func TestAdd_ProviderUnavailableRollsBack(t *testing.T) {
	mem, idx := newMockBackend(), newMockBackend()
	mem.addErr = fmt.Errorf("embed batch: %w", domain.ErrProviderUnavailable)
	svc := newService(mem, idx).WithThreshold(100)

	_, err := svc.Add(context.Background(), makeDocs(5, 0))
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}

	st := svc.Status()
	if st.DocumentCount != 0 {
		t.Errorf("failed add must roll the count back, got %d", st.DocumentCount)
	}
	if st.ActiveBackend != domain.BackendInMemory {
		t.Errorf("failed add must roll the backend back, got %s", st.ActiveBackend)
	}
}

func TestAdd_RollbackRestoresBackendSwitch(t *testing.T) {
	// A batch that would have caused the switch fails: the engine must stay
	// on the in-memory backend with the old count.
	mem, idx := newMockBackend(), newMockBackend()
	idx.addErr = fmt.Errorf("embed batch: %w", domain.ErrProviderUnavailable)
	svc := newService(mem, idx).WithThreshold(10)

	if _, err := svc.Add(context.Background(), makeDocs(10, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Add(context.Background(), makeDocs(5, 10)); !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}

	st := svc.Status()
	if st.ActiveBackend != domain.BackendInMemory {
		t.Errorf("expected rollback to in_memory, got %s", st.ActiveBackend)
	}
	if st.DocumentCount != 10 {
		t.Errorf("expected count restored to 10, got %d", st.DocumentCount)
	}

	// The engine is still usable afterwards.
	idx.addErr = nil
	if _, err := svc.Add(context.Background(), makeDocs(5, 10)); err != nil {
		t.Fatalf("engine must accept adds after a rollback: %v", err)
	}
	if svc.Status().DocumentCount != 15 {
		t.Errorf("expected count 15, got %d", svc.Status().DocumentCount)
	}
}

func TestAdd_PartialDropStillCountsFullBatch(t *testing.T) {
	// The backend stores fewer documents than submitted (per-document embed
	// failures); the routing count still reflects the full batch.
	mem, idx := newMockBackend(), newMockBackend()
	dropping := &droppingBackend{mockBackend: mem, drop: "doc-001"}
	svc := New(dropping, idx, &mockEmbedder{vec: []float32{1, 0}}, zap.NewNop())

	ids, err := svc.Add(context.Background(), makeDocs(3, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("expected 2 stored ids, got %v", ids)
	}
	if svc.Status().DocumentCount != 3 {
		t.Errorf("count must cover the full batch, got %d", svc.Status().DocumentCount)
	}
}

// droppingBackend stores all but one document, mimicking a per-document
// embedding failure.
type droppingBackend struct {
	*mockBackend
	drop string
}

func (d *droppingBackend) Add(ctx context.Context, docs []domain.Document) ([]string, error) {
	kept := make([]domain.Document, 0, len(docs))
	for _, doc := range docs {
		if doc.ID == d.drop {
			continue
		}
		kept = append(kept, doc)
	}
	return d.mockBackend.Add(ctx, kept)
}

// --- Search ---

func TestSearch_EmptyCorpusSkipsEmbedding(t *testing.T) {
	mem, idx := newMockBackend(), newMockBackend()
	embed := &mockEmbedder{vec: []float32{1, 0}}
	svc := New(mem, idx, embed, zap.NewNop())

	results, err := svc.Search(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("expected empty non-nil result set, got %v", results)
	}
	if embed.called != 0 {
		t.Errorf("empty corpus must not call the embedder")
	}
	if mem.searchCalls != 0 {
		t.Errorf("empty corpus must not hit the backend")
	}
}

func TestSearch_NegativeTopK(t *testing.T) {
	svc := newService(newMockBackend(), newMockBackend())
	_, err := svc.Search(context.Background(), "q", -1)
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestSearch_ZeroTopKUsesDefault(t *testing.T) {
	mem, idx := newMockBackend(), newMockBackend()
	svc := newService(mem, idx).WithDefaultTopK(7)

	if _, err := svc.Add(context.Background(), makeDocs(3, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Search(context.Background(), "q", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mem.lastTopK != 7 {
		t.Errorf("expected default topK 7, got %d", mem.lastTopK)
	}
}

func TestSearch_QueriesActiveBackendOnly(t *testing.T) {
	mem, idx := newMockBackend(), newMockBackend()
	svc := newService(mem, idx).WithThreshold(2)

	// Two documents stay in memory; the third batch switches to indexed.
	if _, err := svc.Add(context.Background(), makeDocs(2, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Add(context.Background(), makeDocs(2, 2)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results, err := svc.Search(context.Background(), "q", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if mem.searchCalls != 0 {
		t.Errorf("inactive backend must not be searched")
	}
	if idx.searchCalls != 1 {
		t.Errorf("expected one indexed search, got %d", idx.searchCalls)
	}
	// Only the documents ingested after the switch are reachable.
	if len(results) != 2 {
		t.Errorf("expected 2 reachable documents, got %d", len(results))
	}
}

func TestSearch_EmbedFailurePropagates(t *testing.T) {
	mem, idx := newMockBackend(), newMockBackend()
	embed := &mockEmbedder{err: fmt.Errorf("api down: %w", domain.ErrProviderUnavailable)}
	svc := New(mem, idx, embed, zap.NewNop())

	if _, err := svc.Add(context.Background(), makeDocs(1, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := svc.Search(context.Background(), "q", 5)
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

// --- Resolve ---

func TestResolve_VariantLookup(t *testing.T) {
	mem, idx := newMockBackend(), newMockBackend()
	svc := newService(mem, idx)

	docs := []domain.Document{{ID: "My Report.txt", Content: "quarterly numbers"}}
	if _, err := svc.Add(context.Background(), docs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, lookup := range []string{"My Report.txt", "My_Report.txt", "My%20Report.txt"} {
		doc, err := svc.Resolve(context.Background(), lookup)
		if err != nil {
			t.Errorf("lookup %q: unexpected error: %v", lookup, err)
			continue
		}
		if doc.Content != "quarterly numbers" {
			t.Errorf("lookup %q: wrong document %q", lookup, doc.ID)
		}
	}
}

func TestResolve_Miss(t *testing.T) {
	svc := newService(newMockBackend(), newMockBackend())
	_, err := svc.Resolve(context.Background(), "nothing.txt")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestResolve_DocumentStrandedAfterSwitch(t *testing.T) {
	// Resolvable ID, but the document lives in the now-inactive backend.
	mem, idx := newMockBackend(), newMockBackend()
	svc := newService(mem, idx).WithThreshold(1)

	if _, err := svc.Add(context.Background(), []domain.Document{{ID: "early.txt", Content: "a"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Add(context.Background(), makeDocs(2, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := svc.Resolve(context.Background(), "early.txt")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound for stranded document, got %v", err)
	}
}

// --- Status ---

func TestStatus_Snapshot(t *testing.T) {
	svc := newService(newMockBackend(), newMockBackend()).WithThreshold(50)

	st := svc.Status()
	if st.ActiveBackend != domain.BackendInMemory || st.DocumentCount != 0 {
		t.Errorf("unexpected initial status: %+v", st)
	}
	if st.Threshold != 50 {
		t.Errorf("expected threshold 50, got %d", st.Threshold)
	}
	if st.ForceIndexed {
		t.Errorf("force_indexed must default to false")
	}

	if _, err := svc.Add(context.Background(), makeDocs(3, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := svc.Status().DocumentCount; got != 3 {
		t.Errorf("expected count 3, got %d", got)
	}
}

func TestEntries_ActiveBackendMetadata(t *testing.T) {
	mem, idx := newMockBackend(), newMockBackend()
	svc := newService(mem, idx)

	if _, err := svc.Add(context.Background(), []domain.Document{{ID: "a.txt", Content: "abcd"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, keys := svc.Entries()
	if len(entries) != 1 || entries[0].ID != "a.txt" || entries[0].ContentLength != 4 {
		t.Errorf("unexpected entries: %+v", entries)
	}
	if len(keys) == 0 {
		t.Errorf("expected registered lookup keys")
	}
}
