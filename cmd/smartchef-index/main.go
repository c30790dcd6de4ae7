// Command smartchef-index seeds the retrieval index from a JSONL file of
// {"id","namespace","text"} documents. Backend settings come from the same
// environment as the server; RAG_BACKEND must be sqlite or pgvector.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/sashabaranov/go-openai"

	"github.com/vbonduro/smartchef/internal/config"
	"github.com/vbonduro/smartchef/internal/db"
	"github.com/vbonduro/smartchef/internal/logging"
	"github.com/vbonduro/smartchef/internal/rag"
	openairag "github.com/vbonduro/smartchef/internal/rag/openai"
	"github.com/vbonduro/smartchef/internal/rag/pgvector"
	sqliterag "github.com/vbonduro/smartchef/internal/rag/sqlite"
)

func main() {
	file := flag.String("file", "-", "JSONL documents to index, - for stdin")
	flag.Parse()

	cfg := config.Load()
	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	if err := run(context.Background(), cfg, *file, logger); err != nil {
		logger.Error("indexing failed", "error", err)
		cleanup()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, file string, logger *slog.Logger) error {
	if cfg.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required to embed documents")
	}

	docs, err := readDocuments(file)
	if err != nil {
		return err
	}
	logger.Info("documents loaded", "file", file, "documents", len(docs))

	idx, closeIndex, err := openIndex(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeIndex(); err != nil {
			logger.Error("failed to close index", "error", err)
		}
	}()

	oc := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		oc.BaseURL = cfg.OpenAIBaseURL
	}
	embedder := openairag.NewEmbedder(openai.NewClientWithConfig(oc), cfg.OpenAIEmbeddingModel)

	written, err := rag.Seed(ctx, embedder, idx, docs)
	if err != nil {
		return fmt.Errorf("seeded %d of %d documents: %w", written, len(docs), err)
	}
	logger.Info("index seeded", "backend", cfg.RAGBackend, "documents", written, "model", embedder.Model())
	return nil
}

func readDocuments(file string) ([]rag.Document, error) {
	var r io.Reader = os.Stdin
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open documents: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	return rag.LoadJSONL(r)
}

func openIndex(ctx context.Context, cfg *config.Config) (rag.Index, func() error, error) {
	switch cfg.RAGBackend {
	case "sqlite":
		database, err := db.Open(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return sqliterag.New(database), database.Close, nil
	case "pgvector":
		pg, err := pgvector.Open(ctx, cfg.PGVectorDSN)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	default:
		return nil, nil, fmt.Errorf("RAG_BACKEND must be sqlite or pgvector, got %q", cfg.RAGBackend)
	}
}
