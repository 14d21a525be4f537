package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/rag"
)

// VectorCache stores embeddings by opaque key.
type VectorCache interface {
	GetVector(ctx context.Context, key string) ([]float32, bool, error)
	SetVector(ctx context.Context, key string, vec []float32) error
}

type EmbeddingCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewEmbeddingCache(client *redisv9.Client, ttl time.Duration) *EmbeddingCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &EmbeddingCache{client: client, ttl: ttl}
}

func (c *EmbeddingCache) GetVector(ctx context.Context, key string) ([]float32, bool, error) {
	raw, err := c.client.Get(ctx, key).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get embedding failed: %w", err)
	}

	var vec []float32
	if err := json.Unmarshal([]byte(raw), &vec); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached embedding failed: %w", err)
	}
	return vec, true, nil
}

func (c *EmbeddingCache) SetVector(ctx context.Context, key string, vec []float32) error {
	payload, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("marshal embedding cache failed: %w", err)
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set embedding failed: %w", err)
	}
	return nil
}

// CachingProvider serves repeated query embeddings from a VectorCache.
// Cache errors are logged and fall through to the wrapped provider.
type CachingProvider struct {
	next  rag.Provider
	cache VectorCache
	model string
}

func NewCachingProvider(next rag.Provider, cache VectorCache, model string) *CachingProvider {
	return &CachingProvider{next: next, cache: cache, model: model}
}

func (p *CachingProvider) Embed(ctx context.Context, apiKey, text string) ([]float32, error) {
	key := EmbeddingKey(p.model, text)

	vec, ok, err := p.cache.GetVector(ctx, key)
	if err != nil {
		log.Printf("embedding cache: get failed: %v", err)
	}
	if ok && len(vec) > 0 {
		return vec, nil
	}

	vec, err = p.next.Embed(ctx, apiKey, text)
	if err != nil {
		return nil, err
	}
	if len(vec) > 0 {
		if err := p.cache.SetVector(ctx, key, vec); err != nil {
			log.Printf("embedding cache: set failed: %v", err)
		}
	}
	return vec, nil
}

// EmbeddingKey is scoped by model so switching models never serves stale dimensions.
func EmbeddingKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("embed:%s:%s", model, hex.EncodeToString(sum[:]))
}
