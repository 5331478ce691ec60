package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/smallnest/raggate/retrieval"
	"github.com/smallnest/raggate/store"
)

// SqliteVectorStore persists documents and their embeddings in a single
// SQLite table. Vectors are stored as little-endian float32 BLOBs and
// search is an exact in-process L2 scan, so the store suits corpora up to
// a few hundred thousand chunks. Beyond that, use the pgvector store.
type SqliteVectorStore struct {
	db        *sql.DB
	embedder  retrieval.Embedder
	tableName string
}

// SqliteOptions configuration for the SQLite file.
type SqliteOptions struct {
	Path      string
	TableName string // Default "documents"
}

// NewSqliteVectorStore opens (creating if needed) the database and ensures
// the schema exists. The embedder embeds queries at search time and must
// match the one used for the stored vectors.
func NewSqliteVectorStore(opts SqliteOptions, embedder retrieval.Embedder) (*SqliteVectorStore, error) {
	if embedder == nil {
		return nil, errors.New("sqlite: embedder is required")
	}
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "documents"
	}

	s := &SqliteVectorStore{
		db:        db,
		embedder:  embedder,
		tableName: tableName,
	}

	if err := s.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// InitSchema creates the documents table if it doesn't exist.
func (s *SqliteVectorStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			content TEXT NOT NULL,
			metadata TEXT,
			embedding BLOB NOT NULL
		);
	`, s.tableName)

	_, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SqliteVectorStore) Close() error {
	return s.db.Close()
}

// Add inserts documents with their embeddings, 1:1 by position, in one
// transaction.
func (s *SqliteVectorStore) Add(ctx context.Context, docs []retrieval.Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return fmt.Errorf("sqlite: %d docs with %d vectors", len(docs), len(vectors))
	}
	if len(docs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(
		"INSERT INTO %s (content, metadata, embedding) VALUES (?, ?, ?)",
		s.tableName,
	)
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, doc := range docs {
		metadataJSON, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, doc.Content, string(metadataJSON), store.EncodeVector(vectors[i])); err != nil {
			return fmt.Errorf("failed to insert document: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// SimilaritySearchWithScore embeds the query, scans the full table, and
// returns the k nearest documents by ascending L2 distance.
func (s *SqliteVectorStore) SimilaritySearchWithScore(ctx context.Context, query string, k int) ([]retrieval.ScoredDocument, error) {
	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", retrieval.ErrEmbedding, err)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT content, metadata, embedding FROM %s", s.tableName,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var entries []store.Entry
	for rows.Next() {
		var content string
		var metadataJSON sql.NullString
		var blob []byte
		if err := rows.Scan(&content, &metadataJSON, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}

		doc := retrieval.Document{Content: content}
		if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != "null" {
			if err := json.Unmarshal([]byte(metadataJSON.String), &doc.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		embedded, err := store.DecodeVector(blob)
		if err != nil {
			return nil, err
		}
		entries = append(entries, store.Entry{Doc: doc, Vector: embedded})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document rows: %w", err)
	}

	return store.Rank(vec, entries, k), nil
}

// Count returns the number of stored documents.
func (s *SqliteVectorStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.tableName)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}

var _ store.Store = (*SqliteVectorStore)(nil)
