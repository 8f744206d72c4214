// Package config loads service configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Vector    VectorConfig
	Embedding EmbeddingConfig
	Chunking  ChunkingConfig
	Rerank    RerankConfig
	Context   ContextConfig
	LLM       LLMConfig
	Cache     CacheConfig
	Upload    UploadConfig
	Inference InferenceConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	Mode         string // gin mode: "debug" or "release"
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	PoolSize int
}

// Addr returns the host:port form go-redis expects.
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type VectorConfig struct {
	BaseURL   string
	Timeout   time.Duration
	Algorithm string // "hnsw" or "bruteforce"
}

type EmbeddingConfig struct {
	BaseURL   string
	Model     string
	APIKey    string
	Dimension int
	Timeout   time.Duration
}

type ChunkingConfig struct {
	ChunkSize    int
	ChunkOverlap int
	MinChunkSize int
}

type RerankConfig struct {
	Endpoint  string
	Model     string
	APIKey    string
	BatchSize int
	Timeout   time.Duration
}

type ContextConfig struct {
	MaxContextTokens int
	TopKRetrieval    int // candidates fetched from the vector index
	TopKFinal        int // default documents kept after reranking
	Encoding         string
}

type LLMConfig struct {
	GroqAPIKey       string
	GroqModel        string
	GeminiAPIKey     string
	GeminiModel      string
	PerplexityAPIKey string
	PerplexityModel  string
	HuggingFaceToken string
	HuggingFaceModel string
	MaxTokens        int
	Temperature      float64
	Timeout          time.Duration
}

type CacheConfig struct {
	QueryTTL     time.Duration
	EmbeddingTTL time.Duration
	TaskTTL      time.Duration
	DocumentTTL  time.Duration
}

type UploadConfig struct {
	MaxFileSizeMB     int
	AllowedExtensions []string
}

type InferenceConfig struct {
	// MaxConcurrent bounds CPU-bound scoring/embedding dispatch
	// independently of request concurrency.
	MaxConcurrent int
}

// Load reads configuration from the environment, applying defaults that
// mirror a local single-node deployment.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("PORT", "8000"),
			Mode:         getEnv("GIN_MODE", "release"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 60*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
			PoolSize: getIntEnv("REDIS_POOL_SIZE", 10),
		},
		Vector: VectorConfig{
			BaseURL:   getEnv("VECTOR_SERVICE_URL", "http://localhost:8001"),
			Timeout:   getDurationEnv("VECTOR_SERVICE_TIMEOUT", 30*time.Second),
			Algorithm: getEnv("VECTOR_SEARCH_ALGORITHM", "hnsw"),
		},
		Embedding: EmbeddingConfig{
			BaseURL:   getEnv("EMBEDDING_SERVICE_URL", "http://localhost:8002"),
			Model:     getEnv("EMBEDDING_MODEL", "all-MiniLM-L6-v2"),
			APIKey:    getEnv("EMBEDDING_API_KEY", ""),
			Dimension: getIntEnv("EMBEDDING_DIMENSIONS", 384),
			Timeout:   getDurationEnv("EMBEDDING_TIMEOUT", 30*time.Second),
		},
		Chunking: ChunkingConfig{
			ChunkSize:    getIntEnv("CHUNK_SIZE", 512),
			ChunkOverlap: getIntEnv("CHUNK_OVERLAP", 50),
			MinChunkSize: getIntEnv("MIN_CHUNK_SIZE", 100),
		},
		Rerank: RerankConfig{
			Endpoint:  getEnv("RERANKER_ENDPOINT", "http://localhost:8003/score"),
			Model:     getEnv("RERANKER_MODEL", "cross-encoder/ms-marco-MiniLM-L-6-v2"),
			APIKey:    getEnv("RERANKER_API_KEY", ""),
			BatchSize: getIntEnv("RERANKER_BATCH_SIZE", 32),
			Timeout:   getDurationEnv("RERANKER_TIMEOUT", 30*time.Second),
		},
		Context: ContextConfig{
			MaxContextTokens: getIntEnv("MAX_CONTEXT_TOKENS", 2048),
			TopKRetrieval:    getIntEnv("TOP_K_RETRIEVAL", 20),
			TopKFinal:        getIntEnv("TOP_K_FINAL", 5),
			Encoding:         getEnv("TOKENIZER_ENCODING", "cl100k_base"),
		},
		LLM: LLMConfig{
			GroqAPIKey:       getEnv("GROQ_API_KEY", ""),
			GroqModel:        getEnv("GROQ_MODEL", "llama-3.1-8b-instant"),
			GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
			GeminiModel:      getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
			PerplexityAPIKey: getEnv("PERPLEXITY_API_KEY", ""),
			PerplexityModel:  getEnv("PERPLEXITY_MODEL", "llama-3.1-sonar-small-128k-online"),
			HuggingFaceToken: getEnv("HF_TOKEN", ""),
			HuggingFaceModel: getEnv("HF_MODEL", "mistralai/Mistral-7B-Instruct-v0.1"),
			MaxTokens:        getIntEnv("LLM_MAX_TOKENS", 500),
			Temperature:      getFloatEnv("LLM_TEMPERATURE", 0.7),
			Timeout:          getDurationEnv("LLM_TIMEOUT", 60*time.Second),
		},
		Cache: CacheConfig{
			QueryTTL:     getDurationEnv("CACHE_TTL_QUERIES", time.Hour),
			EmbeddingTTL: getDurationEnv("CACHE_TTL_EMBEDDINGS", 24*time.Hour),
			TaskTTL:      getDurationEnv("CACHE_TTL_TASKS", time.Hour),
			DocumentTTL:  getDurationEnv("CACHE_TTL_DOCUMENTS", 7*24*time.Hour),
		},
		Upload: UploadConfig{
			MaxFileSizeMB:     getIntEnv("MAX_FILE_SIZE_MB", 50),
			AllowedExtensions: getEnvSlice("ALLOWED_EXTENSIONS", []string{".pdf", ".txt"}),
		},
		Inference: InferenceConfig{
			MaxConcurrent: getIntEnv("INFERENCE_MAX_CONCURRENT", 4),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
