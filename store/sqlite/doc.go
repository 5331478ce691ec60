// Package sqlite provides SQLite-backed storage for raggate document
// vectors.
//
// This package persists corpus chunks and their embeddings in a single
// database file, perfect for workstation corpora and CI pipelines that
// need persistence without a database server.
//
// # Key Features
//
//   - Serverless, file-based database
//   - Zero configuration needed
//   - Embeddings stored as compact float32 BLOBs
//   - Exact (not approximate) L2 search
//   - Transactional batch inserts
//   - Support for custom table names
//
// # Basic Usage
//
//	import (
//		"context"
//
//		"github.com/smallnest/raggate/embedding"
//		"github.com/smallnest/raggate/store/sqlite"
//	)
//
//	emb, err := embedding.NewOpenAI(embedding.OpenAIOptions{APIKey: key})
//	if err != nil {
//		return err
//	}
//
//	store, err := sqlite.NewSqliteVectorStore(sqlite.SqliteOptions{
//		Path:      "./corpus.db", // Database file path
//		TableName: "documents",   // Optional table name
//	}, emb)
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
//	// Fill it through ingestion...
//	vectors, err := emb.EmbedBatch(ctx, texts)
//	if err != nil {
//		return err
//	}
//	if err := store.Add(ctx, docs, vectors); err != nil {
//		return err
//	}
//
//	// ...and search it from the pipeline.
//	scored, err := store.SimilaritySearchWithScore(ctx, "mqtt qos levels", 20)
//
// # Database File Options
//
//	// In-memory database (volatile)
//	store, err := sqlite.NewSqliteVectorStore(sqlite.SqliteOptions{
//		Path: ":memory:",
//	}, emb)
//
//	// Persistent file database
//	store, err := sqlite.NewSqliteVectorStore(sqlite.SqliteOptions{
//		Path: "./data/corpus.db",
//	}, emb)
//
//	// With custom URI options
//	store, err := sqlite.NewSqliteVectorStore(sqlite.SqliteOptions{
//		Path: "file:./corpus.db?cache=shared&mode=rwc",
//	}, emb)
//
// # Search Semantics
//
// SimilaritySearchWithScore embeds the query with the store's embedder,
// loads every row, and ranks by exact Euclidean (L2) distance in process.
// There is no index structure and no approximation: results are the true
// nearest neighbors, at O(n) cost per query. That trade holds up well
// into the hundreds of thousands of chunks; past that, reach for the
// pgvector store.
//
// The embedder handed to the constructor must be the same one (same
// model, same dimensions) used to produce the stored vectors. Rows whose
// vector dimensions do not match the query are skipped rather than
// scored.
//
// # Comparison with Other Stores
//
// | Feature            | Memory     | SQLite       | Redis       | pgvector     |
// |--------------------|------------|--------------|-------------|--------------|
// | Persistence        | No         | Yes          | Optional    | Yes          |
// | Search             | Exact scan | Exact scan   | Exact scan  | Index-backed |
// | Server required    | No         | No           | Yes         | Yes          |
// | Setup complexity   | None       | None         | Low         | Medium       |
// | Best for           | Tests      | Workstations | Shared cache| Production   |
package sqlite
