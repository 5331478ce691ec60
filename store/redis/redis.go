package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/smallnest/raggate/retrieval"
	"github.com/smallnest/raggate/store"
)

// RedisVectorStore keeps documents as JSON values under a shared key
// prefix, with a set indexing the document IDs. Search pulls every record
// and ranks by L2 distance in process, so the store fits shared
// medium-sized corpora; use the pgvector store when the corpus outgrows
// a full fetch.
type RedisVectorStore struct {
	client   *redis.Client
	embedder retrieval.Embedder
	prefix   string
	ttl      time.Duration
}

// RedisOptions configuration for the Redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // Key prefix, default "raggate:"
	TTL      time.Duration // Expiration for documents, default 0 (no expiration)
}

// NewRedisVectorStore connects to Redis. The embedder embeds queries at
// search time and must match the one used for the stored vectors.
func NewRedisVectorStore(opts RedisOptions, embedder retrieval.Embedder) (*RedisVectorStore, error) {
	if embedder == nil {
		return nil, errors.New("redis: embedder is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "raggate:"
	}

	return &RedisVectorStore{
		client:   client,
		embedder: embedder,
		prefix:   prefix,
		ttl:      opts.TTL,
	}, nil
}

// record is the stored JSON shape of one document.
type record struct {
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Embedding []float32      `json:"embedding"`
}

func (s *RedisVectorStore) docKey(id string) string {
	return fmt.Sprintf("%sdoc:%s", s.prefix, id)
}

func (s *RedisVectorStore) indexKey() string {
	return s.prefix + "docs"
}

// Add stores documents with their embeddings, 1:1 by position, in one
// pipelined round trip.
func (s *RedisVectorStore) Add(ctx context.Context, docs []retrieval.Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return fmt.Errorf("redis: %d docs with %d vectors", len(docs), len(vectors))
	}
	if len(docs) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for i, doc := range docs {
		data, err := json.Marshal(record{
			Content:   doc.Content,
			Metadata:  doc.Metadata,
			Embedding: vectors[i],
		})
		if err != nil {
			return fmt.Errorf("failed to marshal document: %w", err)
		}

		id := uuid.NewString()
		pipe.Set(ctx, s.docKey(id), data, s.ttl)
		pipe.SAdd(ctx, s.indexKey(), id)
	}
	if s.ttl > 0 {
		pipe.Expire(ctx, s.indexKey(), s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save documents to redis: %w", err)
	}
	return nil
}

// SimilaritySearchWithScore embeds the query, fetches every stored
// record, and returns the k nearest documents by ascending L2 distance.
func (s *RedisVectorStore) SimilaritySearchWithScore(ctx context.Context, query string, k int) ([]retrieval.ScoredDocument, error) {
	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", retrieval.ErrEmbedding, err)
	}

	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.docKey(id)
	}

	// MGet returns nil for keys that expired after the index read.
	results, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch documents: %w", err)
	}

	var entries []store.Entry
	for _, result := range results {
		if result == nil {
			continue
		}
		strData, ok := result.(string)
		if !ok {
			continue
		}

		var rec record
		if err := json.Unmarshal([]byte(strData), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal document: %w", err)
		}
		entries = append(entries, store.Entry{
			Doc:    retrieval.Document{Content: rec.Content, Metadata: rec.Metadata},
			Vector: rec.Embedding,
		})
	}

	return store.Rank(vec, entries, k), nil
}

// Count returns the number of indexed documents.
func (s *RedisVectorStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.SCard(ctx, s.indexKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return int(n), nil
}

// Clear removes every document under the store's prefix.
func (s *RedisVectorStore) Clear(ctx context.Context) error {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to list documents for clearing: %w", err)
	}

	pipe := s.client.Pipeline()
	for _, id := range ids {
		pipe.Del(ctx, s.docKey(id))
	}
	pipe.Del(ctx, s.indexKey())

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to clear documents: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisVectorStore) Close() error {
	return s.client.Close()
}

var _ store.Store = (*RedisVectorStore)(nil)
