package rag

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"bankrm/internal/db/vectorstore"
)

func testRetrieverConfig(t *testing.T, corpusDir string) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.CorpusDir = corpusDir
	cfg.IndexPath = filepath.Join(t.TempDir(), "index.bin")
	cfg.EmbeddingDims = 4
	cfg.DefaultTopK = 2
	return cfg
}

func TestRetrieveWithoutArtifact(t *testing.T) {
	cfg := testRetrieverConfig(t, t.TempDir())
	r := NewRetriever(cfg, newFakeEmbedder(), nil)

	_, err := r.Retrieve(context.Background(), "anything", 2)
	if !errors.Is(err, ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
	if r.Ready() {
		t.Fatal("retriever must not report ready without an index")
	}
}

func TestRebuildAndRetrieve(t *testing.T) {
	dir := t.TempDir()
	writeCorpusFile(t, dir, "account.csv",
		"account_id,frequency\n1,monthly\n2,weekly\n")

	cfg := testRetrieverConfig(t, dir)
	embedder := newFakeEmbedder()
	// 让第一行与查询向量更相似
	embedder.vecs["file:account.csv | account_id: 1 ; frequency: monthly"] = []float32{0, 1, 0, 0}
	embedder.vecs["monthly accounts"] = []float32{0, 1, 0, 0}

	indexer := NewIndexer(cfg, embedder)
	r := NewRetriever(cfg, embedder, indexer)

	if err := r.Rebuild(context.Background(), false); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if !r.Ready() {
		t.Fatal("retriever should be ready after rebuild")
	}

	fragments, err := r.Retrieve(context.Background(), "monthly accounts", 2)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(fragments) != 2 {
		t.Fatalf("got %d fragments, want 2", len(fragments))
	}
	if fragments[0].Source != "account.csv" || fragments[0].Row != 1 {
		t.Fatalf("top fragment = %+v, want account.csv row 1", fragments[0])
	}
	if fragments[0].Score < fragments[1].Score {
		t.Fatal("fragments not ordered by score")
	}
}

func TestRebuildSkipsWhenArtifactPresent(t *testing.T) {
	dir := t.TempDir()
	writeCorpusFile(t, dir, "loan.csv", "loan_id,amount\n7,5000\n")

	cfg := testRetrieverConfig(t, dir)
	embedder := newFakeEmbedder()
	indexer := NewIndexer(cfg, embedder)
	r := NewRetriever(cfg, embedder, indexer)

	if err := r.Rebuild(context.Background(), false); err != nil {
		t.Fatalf("first Rebuild: %v", err)
	}
	buildCalls := embedder.calls

	if err := r.Rebuild(context.Background(), false); err != nil {
		t.Fatalf("second Rebuild: %v", err)
	}
	if embedder.calls != buildCalls {
		t.Fatal("rebuild without force must skip when artifact exists")
	}

	if err := r.Rebuild(context.Background(), true); err != nil {
		t.Fatalf("forced Rebuild: %v", err)
	}
	if embedder.calls == buildCalls {
		t.Fatal("forced rebuild must re-run the pipeline")
	}
}

func TestRetrieveLazyLoadsSavedArtifact(t *testing.T) {
	cfg := testRetrieverConfig(t, t.TempDir())

	store, err := vectorstore.New(4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	entries := []vectorstore.Entry{{ID: "1", Text: "Savings basics", Source: "notes.md"}}
	if err := store.Add(entries, [][]float32{{1, 0, 0, 0}}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := store.Save(cfg.IndexPath); err != nil {
		t.Fatalf("Save: %v", err)
	}

	r := NewRetriever(cfg, newFakeEmbedder(), nil)
	fragments, err := r.Retrieve(context.Background(), "savings", 1)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(fragments) != 1 || fragments[0].Text != "Savings basics" {
		t.Fatalf("unexpected fragments: %+v", fragments)
	}
}

// memoryCache 进程内 QueryCache，用于验证缓存命中与失效
type memoryCache struct {
	mu      sync.Mutex
	items   map[string][]Fragment
	cleared bool
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]Fragment{}}
}

func (c *memoryCache) Get(_ context.Context, query string, k int) ([]Fragment, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.items[cacheTestKey(query, k)]
	return f, ok
}

func (c *memoryCache) Set(_ context.Context, query string, k int, fragments []Fragment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[cacheTestKey(query, k)] = fragments
}

func (c *memoryCache) InvalidateAll(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = map[string][]Fragment{}
	c.cleared = true
}

func cacheTestKey(query string, k int) string {
	return query + "|" + string(rune('0'+k))
}

func TestRetrieveServesFromCache(t *testing.T) {
	cfg := testRetrieverConfig(t, t.TempDir())
	r := NewRetriever(cfg, newFakeEmbedder(), nil)

	cache := newMemoryCache()
	cache.Set(context.Background(), "cached query", 2, []Fragment{{Text: "from cache"}})
	r.SetCache(cache)

	// 索引产物不存在，命中缓存时不应触发加载
	fragments, err := r.Retrieve(context.Background(), "cached query", 2)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(fragments) != 1 || fragments[0].Text != "from cache" {
		t.Fatalf("unexpected fragments: %+v", fragments)
	}
}

func TestRebuildInvalidatesCache(t *testing.T) {
	dir := t.TempDir()
	writeCorpusFile(t, dir, "loan.csv", "loan_id,amount\n7,5000\n")

	cfg := testRetrieverConfig(t, dir)
	embedder := newFakeEmbedder()
	r := NewRetriever(cfg, embedder, NewIndexer(cfg, embedder))

	cache := newMemoryCache()
	r.SetCache(cache)

	if err := r.Rebuild(context.Background(), true); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if !cache.cleared {
		t.Fatal("rebuild must invalidate the query cache")
	}
}
