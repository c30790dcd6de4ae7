package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/vbonduro/smartchef/internal/chef"
	claudechef "github.com/vbonduro/smartchef/internal/chef/claude"
	openaichef "github.com/vbonduro/smartchef/internal/chef/openai"
	"github.com/vbonduro/smartchef/internal/config"
	"github.com/vbonduro/smartchef/internal/db"
	"github.com/vbonduro/smartchef/internal/logging"
	openaimedia "github.com/vbonduro/smartchef/internal/media/openai"
	"github.com/vbonduro/smartchef/internal/mediastore"
	"github.com/vbonduro/smartchef/internal/mediastore/local"
	"github.com/vbonduro/smartchef/internal/mediastore/s3"
	"github.com/vbonduro/smartchef/internal/rag"
	openairag "github.com/vbonduro/smartchef/internal/rag/openai"
	"github.com/vbonduro/smartchef/internal/rag/pgvector"
	"github.com/vbonduro/smartchef/internal/rag/rediscache"
	sqliterag "github.com/vbonduro/smartchef/internal/rag/sqlite"
	"github.com/vbonduro/smartchef/internal/recipe"
	"github.com/vbonduro/smartchef/internal/service"
	"github.com/vbonduro/smartchef/internal/store"
	"github.com/vbonduro/smartchef/internal/vision"
	claudevision "github.com/vbonduro/smartchef/internal/vision/claude"
	"github.com/vbonduro/smartchef/internal/vision/clip"
	ollamavision "github.com/vbonduro/smartchef/internal/vision/ollama"
	openaivision "github.com/vbonduro/smartchef/internal/vision/openai"
	"github.com/vbonduro/smartchef/internal/web"
)

const embeddingCacheTTL = 30 * 24 * time.Hour

func main() {
	cfg := config.Load()

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	if err := run(cfg, logger); err != nil {
		logger.Error("smartchef stopped", "error", err)
		cleanup()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx := context.Background()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	format, err := chef.ParseFormat(cfg.ResponseFormat)
	if err != nil {
		return err
	}
	custom, labels, err := loadLabels(cfg, logger)
	if err != nil {
		return err
	}

	oa := newOpenAIClient(cfg)

	mediaStg, err := newMediaStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	opts := service.Options{Format: format, Labels: labels}
	retriever, closeIndex, err := newRetriever(ctx, cfg, database, oa, logger)
	if err != nil {
		return err
	}
	defer closeIndex()
	if retriever != nil {
		opts.Retriever = retriever
	}
	if cfg.Illustrate {
		opts.Illustrator = openaimedia.NewIllustrator(oa, cfg.OpenAIImageModel)
		logger.Info("recipe illustrations enabled", "model", cfg.OpenAIImageModel)
	}
	if cfg.SpeakTip {
		opts.Narrator = openaimedia.NewNarrator(oa, cfg.OpenAISpeechModel, cfg.OpenAISpeechVoice)
		logger.Info("chef tip narration enabled", "model", cfg.OpenAISpeechModel, "voice", cfg.OpenAISpeechVoice)
	}

	chefService := service.NewChefService(
		store.NewPantryStore(database),
		store.NewPhotoStore(database),
		store.NewIngredientStore(database),
		store.NewSuggestionStore(database),
		newDetector(cfg, oa, logger),
		newGenerator(cfg, oa, logger),
		mediaStg,
		opts,
		logger,
	)

	server := web.NewServer(chefService, custom, logger)
	return server.ListenAndServe(cfg.ListenAddr)
}

func newOpenAIClient(cfg *config.Config) *openai.Client {
	oc := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		oc.BaseURL = cfg.OpenAIBaseURL
	}
	return openai.NewClientWithConfig(oc)
}

// loadLabels reads the custom label file, if any, and resolves the label set
// the parser should use. A nil set means the format's default.
func loadLabels(cfg *config.Config, logger *slog.Logger) (map[string]recipe.LabelSet, *recipe.LabelSet, error) {
	var custom map[string]recipe.LabelSet
	if cfg.LabelsFile != "" {
		sets, err := recipe.LoadLabelSets(cfg.LabelsFile)
		if err != nil {
			return nil, nil, err
		}
		custom = sets
		logger.Info("loaded custom label sets", "file", cfg.LabelsFile, "sets", recipe.Names(custom))
	}
	if cfg.LabelSet == "" {
		return custom, nil, nil
	}
	ls, ok := recipe.Lookup(cfg.LabelSet, custom)
	if !ok {
		return nil, nil, fmt.Errorf("unknown LABEL_SET %q, have %s", cfg.LabelSet, strings.Join(recipe.Names(custom), ", "))
	}
	return custom, &ls, nil
}

func newDetector(cfg *config.Config, oa *openai.Client, logger *slog.Logger) vision.Detector {
	switch cfg.VisionBackend {
	case "claude":
		logger.Info("using Claude vision backend", "model", cfg.ClaudeModel)
		return claudevision.NewDetector(cfg.ClaudeAPIKey, cfg.ClaudeModel, "")
	case "ollama":
		logger.Info("using Ollama vision backend", "model", cfg.OllamaModel)
		return ollamavision.NewDetector(cfg.OllamaHost, cfg.OllamaModel)
	case "clip":
		logger.Info("using CLIP vision backend", "endpoint", cfg.ClipEndpoint, "threshold", cfg.ClipThreshold)
		return clip.NewDetector(cfg.ClipEndpoint, cfg.ClipToken, cfg.ClipThreshold)
	default:
		logger.Info("using OpenAI vision backend", "model", cfg.OpenAIVisionModel)
		return openaivision.NewDetector(oa, cfg.OpenAIVisionModel)
	}
}

func newGenerator(cfg *config.Config, oa *openai.Client, logger *slog.Logger) chef.Generator {
	if cfg.ChefBackend == "claude" {
		logger.Info("using Claude chef backend", "model", cfg.ClaudeModel, "format", cfg.ResponseFormat)
		return claudechef.NewGenerator(cfg.ClaudeAPIKey, cfg.ClaudeModel, "")
	}
	logger.Info("using OpenAI chef backend", "model", cfg.OpenAIChatModel, "format", cfg.ResponseFormat)
	return openaichef.NewGenerator(oa, cfg.OpenAIChatModel)
}

func newMediaStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (mediastore.Store, error) {
	if cfg.MediaBackend == "s3" {
		logger.Info("using S3 media store", "bucket", cfg.S3Bucket, "endpoint", cfg.S3Endpoint)
		return s3.New(ctx, s3.Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	}
	logger.Info("using local media store", "path", cfg.MediaPath)
	return local.New(cfg.MediaPath)
}

// newRetriever builds the retrieval pipeline. The returned func releases the
// index and cache connections and is never nil.
func newRetriever(ctx context.Context, cfg *config.Config, database *sql.DB, oa *openai.Client, logger *slog.Logger) (*rag.Retriever, func(), error) {
	noop := func() {}

	var idx rag.Index
	closeIndex := noop
	switch cfg.RAGBackend {
	case "sqlite":
		sq := sqliterag.New(database)
		if n, err := sq.Count(ctx, rag.NamespaceRecipes); err == nil && n == 0 {
			logger.Warn("retrieval index has no recipes, seed it with smartchef-index")
		}
		idx = sq
	case "pgvector":
		pg, err := pgvector.Open(ctx, cfg.PGVectorDSN)
		if err != nil {
			return nil, noop, err
		}
		idx = pg
		closeIndex = func() {
			if err := pg.Close(); err != nil {
				logger.Error("failed to close vector index", "error", err)
			}
		}
	default:
		return nil, noop, nil
	}

	var embedder rag.Embedder = openairag.NewEmbedder(oa, cfg.OpenAIEmbeddingModel)
	if cfg.RedisURL != "" {
		client, err := rediscache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			closeIndex()
			return nil, noop, err
		}
		embedder = rediscache.New(embedder, client, embeddingCacheTTL)
		closeDB := closeIndex
		closeIndex = func() {
			if err := client.Close(); err != nil {
				logger.Error("failed to close embedding cache", "error", err)
			}
			closeDB()
		}
		logger.Info("embedding cache enabled")
	}

	logger.Info("retrieval enabled", "backend", cfg.RAGBackend, "top_k", cfg.RAGTopK)
	return rag.NewRetriever(embedder, idx, cfg.RAGTopK), closeIndex, nil
}
