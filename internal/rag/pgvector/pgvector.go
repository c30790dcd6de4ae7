// Package pgvector is a rag.Index on PostgreSQL with the pgvector extension.
package pgvector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/vbonduro/smartchef/internal/rag"
)

const schema = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS rag_documents (
    namespace TEXT NOT NULL,
    id TEXT NOT NULL,
    content TEXT NOT NULL,
    embedding vector NOT NULL,
    PRIMARY KEY (namespace, id)
);`

type Index struct {
	db *sql.DB
}

// Open connects with a lib/pq DSN and creates the documents table if needed.
func Open(ctx context.Context, dsn string) (*Index, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create rag schema: %w", err)
	}
	return &Index{db: db}, nil
}

func (x *Index) Close() error {
	return x.db.Close()
}

func (x *Index) Upsert(ctx context.Context, docs []rag.Document) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.Error("failed to roll back document upsert", "error", err)
		}
	}()

	for _, d := range docs {
		if len(d.Embedding) == 0 {
			return fmt.Errorf("document %s/%s has no embedding", d.Namespace, d.ID)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO rag_documents (namespace, id, content, embedding) VALUES ($1, $2, $3, $4)
			ON CONFLICT (namespace, id) DO UPDATE SET content = EXCLUDED.content, embedding = EXCLUDED.embedding
		`, d.Namespace, d.ID, d.Text, pgvector.NewVector(d.Embedding))
		if err != nil {
			return fmt.Errorf("failed to upsert document %s/%s: %w", d.Namespace, d.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit documents: %w", err)
	}
	return nil
}

// Query ranks by cosine distance (<=>), matching rag.CosineDistance.
func (x *Index) Query(ctx context.Context, namespace string, vector []float32, k int) ([]rag.Match, error) {
	rows, err := x.db.QueryContext(ctx, `
		SELECT id, namespace, content, embedding <=> $1 AS distance
		FROM rag_documents
		WHERE namespace = $2 AND vector_dims(embedding) = $3
		ORDER BY distance
		LIMIT $4
	`, pgvector.NewVector(vector), namespace, len(vector), k)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	matches := make([]rag.Match, 0, k)
	for rows.Next() {
		var m rag.Match
		if err := rows.Scan(&m.ID, &m.Namespace, &m.Text, &m.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return matches, nil
}
