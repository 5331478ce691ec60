package pgvector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smallnest/raggate/retrieval"
	"github.com/smallnest/raggate/store"
)

// DBPool defines the interface for the database connection pool.
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresVectorStore persists documents in PostgreSQL with the pgvector
// extension. Nearest-neighbor search runs server-side through the `<->`
// L2 operator, so this is the store for corpora too large to scan in
// process.
type PostgresVectorStore struct {
	pool       DBPool
	embedder   retrieval.Embedder
	tableName  string
	dimensions int
}

// PostgresOptions configuration for the Postgres connection.
type PostgresOptions struct {
	ConnString string
	TableName  string // Default "documents"
	// Dimensions is the width of the vector column, which pgvector
	// requires up front. Default 1536 (text-embedding-3-small).
	Dimensions int
}

const defaultDimensions = 1536

// NewPostgresVectorStore connects and ensures the schema exists. The
// embedder embeds queries at search time and must produce vectors of the
// configured dimension.
func NewPostgresVectorStore(ctx context.Context, opts PostgresOptions, embedder retrieval.Embedder) (*PostgresVectorStore, error) {
	if embedder == nil {
		return nil, errors.New("pgvector: embedder is required")
	}
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	s := newWithPool(pool, embedder, opts.TableName, opts.Dimensions)
	if err := s.InitSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresVectorStoreWithPool wraps an existing pool without touching
// the schema. Useful for testing with mocks.
func NewPostgresVectorStoreWithPool(pool DBPool, embedder retrieval.Embedder, tableName string) *PostgresVectorStore {
	return newWithPool(pool, embedder, tableName, 0)
}

func newWithPool(pool DBPool, embedder retrieval.Embedder, tableName string, dimensions int) *PostgresVectorStore {
	if tableName == "" {
		tableName = "documents"
	}
	if dimensions <= 0 {
		dimensions = defaultDimensions
	}
	return &PostgresVectorStore{
		pool:       pool,
		embedder:   embedder,
		tableName:  tableName,
		dimensions: dimensions,
	}
}

// InitSchema enables the pgvector extension and creates the documents
// table if it doesn't exist.
func (s *PostgresVectorStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE EXTENSION IF NOT EXISTS vector;
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			content TEXT NOT NULL,
			metadata JSONB,
			embedding vector(%d) NOT NULL
		);
	`, s.tableName, s.dimensions)

	_, err := s.pool.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *PostgresVectorStore) Close() {
	s.pool.Close()
}

// Add inserts documents with their embeddings, 1:1 by position.
func (s *PostgresVectorStore) Add(ctx context.Context, docs []retrieval.Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return fmt.Errorf("pgvector: %d docs with %d vectors", len(docs), len(vectors))
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (content, metadata, embedding) VALUES ($1, $2, $3::vector)",
		s.tableName,
	)
	for i, doc := range docs {
		metadataJSON, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		if _, err := s.pool.Exec(ctx, query, doc.Content, metadataJSON, FormatVector(vectors[i])); err != nil {
			return fmt.Errorf("failed to insert document: %w", err)
		}
	}
	return nil
}

// SimilaritySearchWithScore embeds the query and lets Postgres order the
// k nearest documents by L2 distance.
func (s *PostgresVectorStore) SimilaritySearchWithScore(ctx context.Context, query string, k int) ([]retrieval.ScoredDocument, error) {
	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", retrieval.ErrEmbedding, err)
	}

	sql := fmt.Sprintf(`
		SELECT content, metadata, embedding <-> $1::vector AS distance
		FROM %s
		ORDER BY embedding <-> $1::vector
		LIMIT $2
	`, s.tableName)

	rows, err := s.pool.Query(ctx, sql, FormatVector(vec), k)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var scored []retrieval.ScoredDocument
	for rows.Next() {
		var content string
		var metadataJSON []byte
		var distance float64

		if err := rows.Scan(&content, &metadataJSON, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}

		doc := retrieval.Document{Content: content}
		if len(metadataJSON) > 0 && string(metadataJSON) != "null" {
			if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		scored = append(scored, retrieval.ScoredDocument{Doc: doc, Score: distance})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document rows: %w", err)
	}

	return scored, nil
}

// Count returns the number of stored documents.
func (s *PostgresVectorStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.tableName)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}

// FormatVector renders a vector in pgvector's text input format,
// e.g. "[0.1,0.2,0.3]".
func FormatVector(vec []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

var _ store.Store = (*PostgresVectorStore)(nil)
