package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL     string
	CatalogSnapshot bool

	RedisAddr      string
	RedisPassword  string
	RedisTLS       bool
	MemoryMaxTurns int
	MemoryTTL      time.Duration

	// Language understanding
	LLMProvider             string
	LLMFallbackProvider     string
	LLMTemperature          float64
	LLMTimeout              time.Duration
	BedrockModelID          string
	BedrockEmbeddingModelID string
	GeminiAPIKey            string
	GeminiModelID           string

	EmbeddingTimeout    time.Duration
	EmbeddingDimensions int
	WorkerPoolSize      int

	// Image search
	BedrockImageEmbeddingModelID string
	ImageEmbeddingDimensions     int
	ImageFetchTimeout            time.Duration

	// Retrieval and recommendation
	SearchLimit         int
	RetrievalTimeout    time.Duration
	SearchOrder         string
	BookOrder           string
	RecommendTopK       int
	RecommendModelPath  string
	CheckoutPath        string
	DefaultGuestsAdults int

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8008"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL:     getEnv("DATABASE_URL", ""),
		CatalogSnapshot: getEnvAsBool("CATALOG_SNAPSHOT", true),

		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisTLS:       getEnvAsBool("REDIS_TLS", false),
		MemoryMaxTurns: getEnvAsInt("MEMORY_MAX_TURNS", 20),
		MemoryTTL:      getEnvAsDuration("MEMORY_TTL", 30*time.Minute),

		LLMProvider:             strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", "bedrock"))),
		LLMFallbackProvider:     strings.ToLower(strings.TrimSpace(getEnv("LLM_FALLBACK_PROVIDER", ""))),
		LLMTemperature:          getEnvAsFloat("LLM_TEMPERATURE", 0.1),
		LLMTimeout:              getEnvAsDuration("LLM_TIMEOUT", 20*time.Second),
		BedrockModelID:          getEnv("BEDROCK_MODEL_ID", ""),
		BedrockEmbeddingModelID: getEnv("BEDROCK_EMBEDDING_MODEL_ID", "amazon.titan-embed-text-v2:0"),
		GeminiAPIKey:            getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:           getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),

		EmbeddingTimeout:    getEnvAsDuration("EMBEDDING_TIMEOUT", 5*time.Second),
		EmbeddingDimensions: getEnvAsInt("EMBEDDING_DIMENSIONS", 0),
		WorkerPoolSize:      getEnvAsInt("WORKER_POOL_SIZE", 8),

		BedrockImageEmbeddingModelID: getEnv("BEDROCK_IMAGE_EMBEDDING_MODEL_ID", "amazon.titan-embed-image-v1"),
		ImageEmbeddingDimensions:     getEnvAsInt("IMAGE_EMBEDDING_DIMENSIONS", 0),
		ImageFetchTimeout:            getEnvAsDuration("IMAGE_FETCH_TIMEOUT", 10*time.Second),

		SearchLimit:         getEnvAsInt("SEARCH_LIMIT", 5),
		RetrievalTimeout:    getEnvAsDuration("RETRIEVAL_TIMEOUT", 5*time.Second),
		SearchOrder:         getEnv("SEARCH_ORDER", "rating_desc"),
		BookOrder:           getEnv("BOOK_ORDER", "price_asc"),
		RecommendTopK:       getEnvAsInt("RECOMMEND_TOP_K", 5),
		RecommendModelPath:  getEnv("RECOMMEND_MODEL_PATH", ""),
		CheckoutPath:        getEnv("CHECKOUT_PATH", "/checkout"),
		DefaultGuestsAdults: getEnvAsInt("DEFAULT_GUESTS_ADULTS", 2),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blank entries.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
