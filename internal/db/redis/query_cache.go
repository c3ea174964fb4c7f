package redisdb

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainrag "bankrm/internal/domain/rag"
	applog "bankrm/internal/platform/log"
)

// QueryCache 检索结果 Redis 缓存
type QueryCache struct {
	redis  *redis.Client
	ttl    time.Duration
	prefix string
}

// NewQueryCache 创建检索缓存
func NewQueryCache(rdb *redis.Client, ttlSeconds int) *QueryCache {
	ttl := 5 * time.Minute
	if ttlSeconds > 0 {
		ttl = time.Duration(ttlSeconds) * time.Second
	}
	return &QueryCache{
		redis:  rdb,
		ttl:    ttl,
		prefix: "rag:cache:",
	}
}

// Get 从缓存获取检索结果
func (c *QueryCache) Get(ctx context.Context, query string, k int) ([]domainrag.Fragment, bool) {
	key := c.cacheKey(query, k)
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}

	var fragments []domainrag.Fragment
	if err := json.Unmarshal(data, &fragments); err != nil {
		applog.Warn("[RAG/Cache] Failed to unmarshal cached result", "error", err)
		return nil, false
	}

	applog.Debug("[RAG/Cache] Hit", "key", key)
	return fragments, true
}

// Set 写入检索结果到缓存
func (c *QueryCache) Set(ctx context.Context, query string, k int, fragments []domainrag.Fragment) {
	key := c.cacheKey(query, k)
	data, err := json.Marshal(fragments)
	if err != nil {
		return
	}

	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		applog.Warn("[RAG/Cache] Failed to set cache", "key", key, "error", err)
	}
}

// InvalidateAll 清除所有检索缓存（索引重建后调用）
func (c *QueryCache) InvalidateAll(ctx context.Context) {
	pattern := c.prefix + "*"
	iter := c.redis.Scan(ctx, 0, pattern, 500).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if len(keys) > 0 {
		c.redis.Del(ctx, keys...)
		applog.Info("[RAG/Cache] All cache invalidated", "keys_deleted", len(keys))
	}
}

// cacheKey 生成缓存 key = hash(query + k)
func (c *QueryCache) cacheKey(query string, k int) string {
	raw := fmt.Sprintf("%s|%d", query, k)
	hash := sha256.Sum256([]byte(raw))
	return c.prefix + fmt.Sprintf("%x", hash[:12])
}
