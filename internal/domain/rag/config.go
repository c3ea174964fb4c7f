package rag

// Config RAG 模块配置
type Config struct {
	// 语料与索引产物
	CorpusDir string `json:"corpus_dir"` // CSV / 知识文档目录
	IndexPath string `json:"index_path"` // 索引产物文件

	// 检索配置
	DefaultTopK int `json:"default_top_k"`

	// Embedding
	EmbeddingModel              string `json:"embedding_model"`
	EmbeddingDims               int    `json:"embedding_dims"`
	EmbeddingBatchSize          int    `json:"embedding_batch_size"`
	EmbeddingHTTPTimeoutSeconds int    `json:"embedding_http_timeout_seconds"`

	// Chunker 配置
	ChunkSize    int `json:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap"`

	// 缓存配置
	CacheTTL int `json:"cache_ttl"` // 检索缓存 TTL（秒），0=禁用

	// 启动时若产物缺失是否构建一次（请求路径上永不隐式重建）
	BuildOnStart bool `json:"build_on_start"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		CorpusDir:                   "data",
		IndexPath:                   "embeddings/bank_index.bin",
		DefaultTopK:                 4,
		EmbeddingModel:              "text-embedding-3-small",
		EmbeddingDims:               1536,
		EmbeddingBatchSize:          64,
		EmbeddingHTTPTimeoutSeconds: 60,
		ChunkSize:                   700,
		ChunkOverlap:                50,
		CacheTTL:                    300,
	}
}

// HasCache 是否启用检索缓存
func (c *Config) HasCache() bool {
	return c.CacheTTL > 0
}
