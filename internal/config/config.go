package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	APIPort   string
	LogLevel  slog.Level
	LogFormat string
	DBPath    string

	// IndexBackend selects the vector index: "qdrant" or "memory".
	IndexBackend     string
	QdrantURL        string
	QdrantCollection string
	VectorSize       int

	EmbeddingBaseURL string
	EmbeddingAPIKey  string
	EmbeddingModel   string

	// LocalEmbeddingModel is the fastembed model used as the fallback
	// provider. Empty disables the fallback.
	LocalEmbeddingModel string
	LocalEmbeddingCache string

	LLMProvider string
	LLMAPIKey   string
	LLMModel    string
	LLMBaseURL  string

	TokenizerEncoding  string
	QualityThreshold   float64
	MaxImproveAttempts int
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	// Check current directory first, then walk up to find project root (where go.mod is)
	_ = godotenv.Load() // Try current directory

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ { // Limit search depth
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break // Reached filesystem root
			}
			dir = parent
		}
	}

	cfg := &Config{
		APIPort:             getEnv("API_PORT", "9000"),
		LogFormat:           getEnv("LOG_FORMAT", "text"),
		DBPath:              getEnv("DB_PATH", "./data/playbookwiz.db"),
		IndexBackend:        getEnv("INDEX_BACKEND", "qdrant"),
		QdrantURL:           getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:    getEnv("QDRANT_COLLECTION", "guidelines"),
		EmbeddingBaseURL:    getEnv("EMBEDDING_BASE_URL", "https://api.openai.com"),
		EmbeddingAPIKey:     getEnv("EMBEDDING_API_KEY", ""),
		EmbeddingModel:      getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		LocalEmbeddingModel: getEnv("LOCAL_EMBEDDING_MODEL", "BAAI/bge-small-en-v1.5"),
		LocalEmbeddingCache: getEnv("LOCAL_EMBEDDING_CACHE", "./local_cache"),
		LLMProvider:         getEnv("LLM_PROVIDER", "openai"),
		LLMAPIKey:           getEnv("LLM_API_KEY", ""),
		LLMModel:            getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMBaseURL:          getEnv("LLM_BASE_URL", ""),
		TokenizerEncoding:   getEnv("TOKENIZER_ENCODING", "cl100k_base"),
	}

	level, err := parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	if cfg.IndexBackend != "qdrant" && cfg.IndexBackend != "memory" {
		return nil, fmt.Errorf("INDEX_BACKEND must be \"qdrant\" or \"memory\", got %q", cfg.IndexBackend)
	}

	// Note: this must match the output vector size of the embeddings model.
	// For text-embedding-3-small this is 1536 dimensions. If the vector
	// size changes, the Qdrant collection must be recreated.
	vectorSizeStr := getEnv("VECTOR_SIZE", "")
	if vectorSizeStr == "" {
		return nil, fmt.Errorf("VECTOR_SIZE is required")
	}
	vectorSize, err := strconv.Atoi(vectorSizeStr)
	if err != nil {
		return nil, fmt.Errorf("VECTOR_SIZE must be a valid integer: %w", err)
	}
	if vectorSize <= 0 {
		return nil, fmt.Errorf("VECTOR_SIZE must be greater than 0")
	}
	cfg.VectorSize = vectorSize

	if cfg.LLMProvider != "openai" && cfg.LLMProvider != "anthropic" {
		return nil, fmt.Errorf("LLM_PROVIDER must be \"openai\" or \"anthropic\", got %q", cfg.LLMProvider)
	}

	threshold, err := parseFloat("QUALITY_THRESHOLD", 0.9)
	if err != nil {
		return nil, err
	}
	if threshold <= 0 || threshold > 1 {
		return nil, fmt.Errorf("QUALITY_THRESHOLD must be in (0, 1]")
	}
	cfg.QualityThreshold = threshold

	attempts, err := parseInt("MAX_IMPROVE_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}
	if attempts < 1 {
		return nil, fmt.Errorf("MAX_IMPROVE_ATTEMPTS must be at least 1")
	}
	cfg.MaxImproveAttempts = attempts

	// Create ./data directory if it doesn't exist (for future DB file)
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

func parseLogLevel(value string) (slog.Level, error) {
	switch value {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", value)
	}
}

func parseFloat(key string, defaultValue float64) (float64, error) {
	str := os.Getenv(key)
	if str == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid number: %w", key, err)
	}
	return value, nil
}

func parseInt(key string, defaultValue int) (int, error) {
	str := os.Getenv(key)
	if str == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return value, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
