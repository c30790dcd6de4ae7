// Package sqlite is a rag.Index over the documents table of the application
// database. Queries scan the namespace and rank by cosine distance in memory,
// which suits the few thousand reference documents SmartChef ships with.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/vbonduro/smartchef/internal/rag"
)

type Index struct {
	db *sql.DB
}

func New(db *sql.DB) *Index {
	return &Index{db: db}
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

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (id, namespace, content, embedding, dims) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (namespace, id) DO UPDATE SET
			content = excluded.content, embedding = excluded.embedding, dims = excluded.dims
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			slog.Error("failed to close statement", "error", err)
		}
	}()

	for _, d := range docs {
		if len(d.Embedding) == 0 {
			return fmt.Errorf("document %s/%s has no embedding", d.Namespace, d.ID)
		}
		if _, err := stmt.ExecContext(ctx, d.ID, d.Namespace, d.Text, rag.EncodeVector(d.Embedding), len(d.Embedding)); err != nil {
			return fmt.Errorf("failed to upsert document %s/%s: %w", d.Namespace, d.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit documents: %w", err)
	}
	return nil
}

func (x *Index) Query(ctx context.Context, namespace string, vector []float32, k int) ([]rag.Match, error) {
	rows, err := x.db.QueryContext(ctx, `
		SELECT id, namespace, content, embedding FROM documents WHERE namespace = ? AND dims = ?
	`, namespace, len(vector))
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	matches := make([]rag.Match, 0)
	for rows.Next() {
		var (
			m    rag.Match
			blob []byte
		)
		if err := rows.Scan(&m.ID, &m.Namespace, &m.Text, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		emb, err := rag.DecodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("document %s/%s: %w", m.Namespace, m.ID, err)
		}
		m.Distance = rag.CosineDistance(vector, emb)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Count reports how many documents a namespace holds.
func (x *Index) Count(ctx context.Context, namespace string) (int, error) {
	var n int
	if err := x.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE namespace = ?`, namespace).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}
