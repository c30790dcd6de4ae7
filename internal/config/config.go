package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr string
	DBPath     string
	LogLevel   string
	LogFile    string

	// Ingredient detection.
	VisionBackend string
	OllamaHost    string
	OllamaModel   string
	ClaudeAPIKey  string
	ClaudeModel   string
	ClipEndpoint  string
	ClipToken     string
	ClipThreshold float64

	// Recipe generation.
	ChefBackend    string
	ResponseFormat string
	LabelSet       string
	LabelsFile     string

	OpenAIAPIKey         string
	OpenAIBaseURL        string
	OpenAIChatModel      string
	OpenAIVisionModel    string
	OpenAIEmbeddingModel string
	OpenAIImageModel     string
	OpenAISpeechModel    string
	OpenAISpeechVoice    string

	// Retrieval.
	RAGBackend  string
	RAGTopK     int
	PGVectorDSN string
	RedisURL    string

	// Media.
	MediaBackend string
	MediaPath    string
	S3Bucket     string
	S3Region     string
	S3Endpoint   string
	S3AccessKey  string
	S3SecretKey  string
	Illustrate   bool
	SpeakTip     bool
}

// Load reads configuration from the environment. Outside production a .env
// file in the working directory is loaded first; real environment variables
// win over it.
func Load() *Config {
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}

	return &Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
		DBPath:     getEnv("DB_PATH", "/data/smartchef.db"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogFile:    getEnv("LOG_FILE", ""),

		VisionBackend: getEnv("VISION_BACKEND", "openai"),
		OllamaHost:    getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:   getEnv("OLLAMA_MODEL", "moondream"),
		ClaudeAPIKey:  getEnv("CLAUDE_API_KEY", ""),
		ClaudeModel:   getEnv("CLAUDE_MODEL", "claude-3-5-sonnet-20241022"),
		ClipEndpoint:  getEnv("CLIP_ENDPOINT", "https://api-inference.huggingface.co/models/openai/clip-vit-base-patch32"),
		ClipToken:     getEnv("CLIP_API_TOKEN", ""),
		ClipThreshold: getFloat("CLIP_THRESHOLD", 0.01),

		ChefBackend:    getEnv("CHEF_BACKEND", "openai"),
		ResponseFormat: strings.ToLower(getEnv("RESPONSE_FORMAT", "english")),
		LabelSet:       getEnv("LABEL_SET", ""),
		LabelsFile:     getEnv("LABELS_FILE", ""),

		OpenAIAPIKey:         getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:        getEnv("OPENAI_BASE_URL", ""),
		OpenAIChatModel:      getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
		OpenAIVisionModel:    getEnv("OPENAI_VISION_MODEL", "gpt-4o-mini"),
		OpenAIEmbeddingModel: getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-ada-002"),
		OpenAIImageModel:     getEnv("OPENAI_IMAGE_MODEL", "dall-e-3"),
		OpenAISpeechModel:    getEnv("OPENAI_SPEECH_MODEL", "tts-1"),
		OpenAISpeechVoice:    getEnv("OPENAI_SPEECH_VOICE", "alloy"),

		RAGBackend:  getEnv("RAG_BACKEND", "none"),
		RAGTopK:     getInt("RAG_TOP_K", 3),
		PGVectorDSN: getEnv("PGVECTOR_DSN", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		MediaBackend: getEnv("MEDIA_BACKEND", "local"),
		MediaPath:    getEnv("MEDIA_LOCAL_PATH", "/data/media"),
		S3Bucket:     getEnv("S3_BUCKET", ""),
		S3Region:     getEnv("S3_REGION", "auto"),
		S3Endpoint:   getEnv("S3_ENDPOINT", ""),
		S3AccessKey:  getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:  getEnv("S3_SECRET_KEY", ""),
		Illustrate:   getBool("ILLUSTRATE_RECIPES", false),
		SpeakTip:     getBool("SPEAK_CHEF_TIP", false),
	}
}

// Validate reports the first setting the selected backends cannot run without.
func (c *Config) Validate() error {
	needsOpenAI := c.VisionBackend == "openai" || c.ChefBackend == "openai" ||
		c.RAGBackend != "none" || c.Illustrate || c.SpeakTip
	if needsOpenAI && c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required for the selected backends")
	}
	if (c.VisionBackend == "claude" || c.ChefBackend == "claude") && c.ClaudeAPIKey == "" {
		return fmt.Errorf("CLAUDE_API_KEY is required when a backend is claude")
	}

	switch c.VisionBackend {
	case "openai", "claude", "ollama", "clip":
	default:
		return fmt.Errorf("unknown VISION_BACKEND %q", c.VisionBackend)
	}
	switch c.ChefBackend {
	case "openai", "claude":
	default:
		return fmt.Errorf("unknown CHEF_BACKEND %q", c.ChefBackend)
	}
	switch c.ResponseFormat {
	case "english", "korean", "json":
	default:
		return fmt.Errorf("unknown RESPONSE_FORMAT %q", c.ResponseFormat)
	}
	switch c.RAGBackend {
	case "none", "sqlite":
	case "pgvector":
		if c.PGVectorDSN == "" {
			return fmt.Errorf("PGVECTOR_DSN is required when RAG_BACKEND=pgvector")
		}
	default:
		return fmt.Errorf("unknown RAG_BACKEND %q", c.RAGBackend)
	}
	switch c.MediaBackend {
	case "local":
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when MEDIA_BACKEND=s3")
		}
	default:
		return fmt.Errorf("unknown MEDIA_BACKEND %q", c.MediaBackend)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultVal
	}
	return n
}

func getFloat(key string, defaultVal float64) float64 {
	f, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getBool(key string, defaultVal bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultVal
	}
	return b
}
