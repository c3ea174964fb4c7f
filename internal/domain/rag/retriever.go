package rag

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"bankrm/internal/db/vectorstore"
	applog "bankrm/internal/platform/log"
)

// QueryCache 检索结果缓存端口（可选）
type QueryCache interface {
	Get(ctx context.Context, query string, k int) ([]Fragment, bool)
	Set(ctx context.Context, query string, k int, fragments []Fragment)
	InvalidateAll(ctx context.Context)
}

// Retriever 检索层。持有进程级唯一的索引句柄：
// 首次使用时懒加载，之后缓存；重建在互斥锁内串行执行，
// 完成后原子替换句柄——在途检索要么用旧索引要么用新索引。
type Retriever struct {
	config   *Config
	embedder Embedder
	indexer  *Indexer
	cache    QueryCache // 可选

	mu    sync.Mutex // 串行化加载与重建
	store atomic.Pointer[vectorstore.Store]
}

// NewRetriever 创建检索层
func NewRetriever(cfg *Config, embedder Embedder, indexer *Indexer) *Retriever {
	return &Retriever{
		config:   cfg,
		embedder: embedder,
		indexer:  indexer,
	}
}

// SetCache 设置检索缓存
func (r *Retriever) SetCache(c QueryCache) {
	r.cache = c
}

// Retrieve 返回与 query 最相关的前 k 条片段，按相关度降序。
// 索引无法加载时返回 ErrIndexUnavailable；请求路径上从不隐式重建。
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]Fragment, error) {
	if k <= 0 {
		k = r.config.DefaultTopK
	}

	if r.cache != nil {
		if cached, ok := r.cache.Get(ctx, query, k); ok {
			return cached, nil
		}
	}

	store, err := r.currentStore()
	if err != nil {
		return nil, err
	}

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		if errors.Is(err, ErrCredentialMissing) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: embed query: %v", ErrIndexUnavailable, err)
	}
	queryVec := vectors[0]
	vectorstore.Normalize(queryVec)

	hits, err := store.Search(queryVec, k)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", ErrIndexUnavailable, err)
	}

	fragments := make([]Fragment, len(hits))
	for i, h := range hits {
		fragments[i] = Fragment{
			Text:   h.Entry.Text,
			Source: h.Entry.Source,
			Row:    h.Entry.Row,
			Score:  h.Score,
		}
	}

	applog.Debug("[RAG] Retrieved", "query", query, "k", k, "hits", len(fragments))

	if r.cache != nil && len(fragments) > 0 {
		cached := append([]Fragment(nil), fragments...)
		go func() {
			cacheCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			r.cache.Set(cacheCtx, query, k, cached)
		}()
	}

	return fragments, nil
}

// currentStore 返回缓存的索引句柄，必要时懒加载产物
func (r *Retriever) currentStore() (*vectorstore.Store, error) {
	if s := r.store.Load(); s != nil {
		return s, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// double-check：等锁期间可能已有并发加载完成
	if s := r.store.Load(); s != nil {
		return s, nil
	}

	s, err := vectorstore.Load(r.config.IndexPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}
	r.store.Store(s)
	applog.Info("[RAG] Index loaded", "path", r.config.IndexPath, "chunks", s.Size())
	return s, nil
}

// Rebuild 全量重建索引并原子替换句柄。管理操作，幂等。
// force=false 时仅在产物缺失的情况下构建。
func (r *Retriever) Rebuild(ctx context.Context, force bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !force {
		if _, err := os.Stat(r.config.IndexPath); err == nil {
			applog.Info("[RAG] Index artifact present, skipping rebuild", "path", r.config.IndexPath)
			return nil
		}
	}

	start := time.Now()
	store, err := r.indexer.Build(ctx)
	if err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}
	if err := store.Save(r.config.IndexPath); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}

	r.store.Store(store)

	if r.cache != nil {
		r.cache.InvalidateAll(ctx)
	}

	applog.Info("[RAG] Index rebuilt",
		"path", r.config.IndexPath,
		"chunks", store.Size(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Ready 当前是否已有可用索引句柄（不触发加载）
func (r *Retriever) Ready() bool {
	return r.store.Load() != nil
}
