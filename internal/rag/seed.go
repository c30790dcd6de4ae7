package rag

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const seedBatchSize = 50

// LoadJSONL reads one {"id","namespace","text"} document per line. Blank
// lines are skipped; a missing namespace defaults to NamespaceRecipes.
func LoadJSONL(r io.Reader) ([]Document, error) {
	var docs []Document
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var d Document
		if err := json.Unmarshal([]byte(text), &d); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if d.ID == "" || strings.TrimSpace(d.Text) == "" {
			return nil, fmt.Errorf("line %d: id and text are required", line)
		}
		if d.Namespace == "" {
			d.Namespace = NamespaceRecipes
		}
		docs = append(docs, d)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read documents: %w", err)
	}
	return docs, nil
}

// Seed embeds docs and upserts them into idx in batches. It returns the
// number of documents written.
func Seed(ctx context.Context, embedder Embedder, idx Index, docs []Document) (int, error) {
	written := 0
	for start := 0; start < len(docs); start += seedBatchSize {
		end := min(start+seedBatchSize, len(docs))
		batch := make([]Document, 0, end-start)
		for _, d := range docs[start:end] {
			vec, err := embedder.Embed(ctx, d.Text)
			if err != nil {
				return written, fmt.Errorf("embed %s/%s: %w", d.Namespace, d.ID, err)
			}
			d.Embedding = vec
			batch = append(batch, d)
		}
		if err := idx.Upsert(ctx, batch); err != nil {
			return written, fmt.Errorf("upsert batch at %d: %w", start, err)
		}
		written += len(batch)
		slog.Info("seeded documents", "written", written, "total", len(docs))
	}
	return written, nil
}
