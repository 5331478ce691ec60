// Package store defines the vector document store interface and the
// ranking helpers its backends share.
//
// A Store persists chunks with their embeddings at ingest time and answers
// nearest-neighbor searches at query time. All backends rank by L2
// distance, so a pipeline tuned against one backend keeps its gate
// thresholds when moved to another.
//
// The store package includes implementations for four storage backends:
//   - memory: exact in-process scan, for tests and small corpora
//   - sqlite: single-file persistence, vectors scanned in process
//   - pgvector: PostgreSQL with native vector indexing
//   - redis: key-prefixed document hashes with in-process ranking
//
// # Store Interface
//
// All implementations satisfy the same interface:
//
//	type Store interface {
//	    // Search embeds the query and returns the k nearest chunks
//	    // ascending by L2 distance.
//	    SimilaritySearchWithScore(ctx context.Context, query string, k int) ([]retrieval.ScoredDocument, error)
//
//	    // Add persists documents with their precomputed embeddings,
//	    // 1:1 by position.
//	    Add(ctx context.Context, docs []retrieval.Document, vectors [][]float32) error
//	}
//
// Backends embed the query themselves through the embedder they were
// constructed with, which must match the embedder used at ingest time.
//
// # Choosing a Backend
//
// Use memory when:
//   - You are writing tests or examples
//   - The corpus fits comfortably in RAM and persistence is not needed
//
// Use sqlite when:
//   - You want a zero-configuration single-file index
//   - One process owns the corpus
//
// Use pgvector when:
//   - The corpus is too large for full in-process scans
//   - Multiple processes query the same index
//   - You already run PostgreSQL
//
// Use redis when:
//   - The index should live next to an existing Redis deployment
//   - Corpus entries need TTL-based expiry
//
// Example:
//
//	embedder := embedding.NewHash(256)
//	vectorStore, err := sqlite.NewSqliteVectorStore(sqlite.SqliteOptions{
//	    Path: "./raggate.db",
//	}, embedder)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer vectorStore.Close()
//
//	// Ingest side
//	err = vectorStore.Add(ctx, docs, vectors)
//
//	// Query side
//	hits, err := vectorStore.SimilaritySearchWithScore(ctx, "mqtt qos levels", 20)
package store
