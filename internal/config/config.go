// Package config provides configuration for the chat backend.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the chat backend configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// Ollama settings
	OllamaBaseURL string
	OllamaModel   string
	EmbedModel    string
	OllamaTimeout time.Duration

	// Vector index settings
	WeaviateURL   string
	WeaviateClass string
	EmbeddingDim  int

	// Context retrieval settings
	RetrievalTopK    int
	ScoreThreshold   float64
	MaxContextLength int
	SessionListLimit int

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		HTTPPort:         getEnvInt("HTTP_PORT", 8080),
		DatabaseURL:      getEnv("DATABASE_URL", "file:kontext.db?cache=shared&mode=rwc&_foreign_keys=on"),
		OllamaBaseURL:    getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:      getEnv("OLLAMA_MODEL", "llama3"),
		EmbedModel:       getEnv("OLLAMA_EMBED_MODEL", "all-minilm"),
		OllamaTimeout:    time.Duration(getEnvInt("OLLAMA_TIMEOUT_MS", 60000)) * time.Millisecond,
		WeaviateURL:      getEnv("WEAVIATE_URL", "http://localhost:8090"),
		WeaviateClass:    getEnv("WEAVIATE_CLASS", "ChatMessage"),
		EmbeddingDim:     getEnvInt("EMBEDDING_DIM", 384),
		RetrievalTopK:    getEnvInt("RETRIEVAL_TOP_K", 5),
		ScoreThreshold:   getEnvFloat("RETRIEVAL_SCORE_THRESHOLD", 0.5),
		MaxContextLength: getEnvInt("RETRIEVAL_MAX_CONTEXT_LENGTH", 2000),
		SessionListLimit: getEnvInt("SESSION_LIST_LIMIT", 20),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if floatVal, err := strconv.ParseFloat(val, 64); err == nil {
			return floatVal
		}
	}
	return defaultVal
}
