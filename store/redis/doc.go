// Package redis provides Redis-backed storage for raggate document
// vectors.
//
// Documents are stored as JSON values under a shared key prefix with a
// set indexing their IDs, so several pipeline instances can share one
// corpus without sharing a filesystem. Search fetches all records and
// ranks by L2 distance in process.
//
// # Key Features
//
//   - Shared corpus across processes and hosts
//   - Optional TTL for ephemeral corpora (expired documents simply
//     drop out of search results)
//   - Prefix isolation for multiple corpora on one Redis
//   - Pipelined batch writes
//   - Works against miniredis in tests, no server needed
//
// # Basic Usage
//
//	import (
//		"context"
//		"time"
//
//		"github.com/smallnest/raggate/embedding"
//		redisstore "github.com/smallnest/raggate/store/redis"
//	)
//
//	emb, err := embedding.NewOpenAI(embedding.OpenAIOptions{APIKey: key})
//	if err != nil {
//		return err
//	}
//
//	store, err := redisstore.NewRedisVectorStore(redisstore.RedisOptions{
//		Addr:     "localhost:6379",
//		Password: "",          // Optional
//		DB:       0,           // Optional
//		Prefix:   "raggate:",  // Optional key prefix
//		TTL:      time.Hour,   // Optional expiration
//	}, emb)
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
//	scored, err := store.SimilaritySearchWithScore(ctx, "mqtt qos levels", 20)
//
// # Key Layout
//
//	<prefix>doc:<uuid>  JSON {content, metadata, embedding}
//	<prefix>docs        set of document IDs
//
// # When To Use It
//
// The full-fetch scan keeps every query O(corpus). That is fine for
// shared corpora up to a few tens of thousands of chunks; it is the
// wrong trade beyond that. Reach for the pgvector store when search
// itself must be indexed, and the sqlite store when nothing needs to be
// shared.
package redis
