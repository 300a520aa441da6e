package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "LOG_LEVEL", "BEDROCK_MODEL_ID", "MEMORY_MAX_TURNS", "MEMORY_TTL", "SEARCH_ORDER", "BOOK_ORDER", "CORS_ALLOWED_ORIGINS", "LLM_TEMPERATURE", "RETRIEVAL_TIMEOUT", "BEDROCK_IMAGE_EMBEDDING_MODEL_ID"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8008" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.BedrockModelID != "" {
		t.Fatalf("expected default bedrock model empty, got %s", cfg.BedrockModelID)
	}
	if cfg.MemoryMaxTurns != 20 {
		t.Fatalf("expected 20 memory turns, got %d", cfg.MemoryMaxTurns)
	}
	if cfg.MemoryTTL != 30*time.Minute {
		t.Fatalf("expected 30m memory ttl, got %s", cfg.MemoryTTL)
	}
	if cfg.SearchOrder != "rating_desc" || cfg.BookOrder != "price_asc" {
		t.Fatalf("unexpected default orders: %s / %s", cfg.SearchOrder, cfg.BookOrder)
	}
	if cfg.LLMTemperature != 0.1 {
		t.Fatalf("expected low temperature default, got %v", cfg.LLMTemperature)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("expected wildcard CORS default, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.RetrievalTimeout != 5*time.Second {
		t.Fatalf("expected 5s retrieval timeout, got %s", cfg.RetrievalTimeout)
	}
	if cfg.BedrockImageEmbeddingModelID != "amazon.titan-embed-image-v1" {
		t.Fatalf("expected titan multimodal default, got %s", cfg.BedrockImageEmbeddingModelID)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("MEMORY_MAX_TURNS", "10")
	t.Setenv("MEMORY_TTL", "45m")
	t.Setenv("LLM_PROVIDER", " Gemini ")
	t.Setenv("LLM_TEMPERATURE", "0")
	t.Setenv("CATALOG_SNAPSHOT", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://stazy.vn, ,http://localhost:3000")
	t.Setenv("RECOMMEND_MODEL_PATH", "s3://models/recsys.json")
	t.Setenv("RETRIEVAL_TIMEOUT", "750ms")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Fatalf("expected env override, got %s", cfg.Env)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.MemoryMaxTurns != 10 || cfg.MemoryTTL != 45*time.Minute {
		t.Fatalf("expected memory overrides, got %d / %s", cfg.MemoryMaxTurns, cfg.MemoryTTL)
	}
	if cfg.LLMProvider != "gemini" {
		t.Fatalf("expected normalized provider, got %q", cfg.LLMProvider)
	}
	if cfg.LLMTemperature != 0 {
		t.Fatalf("expected zero temperature, got %v", cfg.LLMTemperature)
	}
	if cfg.CatalogSnapshot {
		t.Fatalf("expected catalog snapshot disabled")
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "http://localhost:3000" {
		t.Fatalf("expected two origins, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.RecommendModelPath != "s3://models/recsys.json" {
		t.Fatalf("expected model path override, got %s", cfg.RecommendModelPath)
	}
	if cfg.RetrievalTimeout != 750*time.Millisecond {
		t.Fatalf("expected retrieval timeout override, got %s", cfg.RetrievalTimeout)
	}
}

func TestInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("MEMORY_MAX_TURNS", "lots")
	t.Setenv("MEMORY_TTL", "soon")
	t.Setenv("RATE_LIMIT_RPS", "fast")
	cfg := Load()
	if cfg.MemoryMaxTurns != 20 {
		t.Fatalf("expected fallback turns, got %d", cfg.MemoryMaxTurns)
	}
	if cfg.MemoryTTL != 30*time.Minute {
		t.Fatalf("expected fallback ttl, got %s", cfg.MemoryTTL)
	}
	if cfg.RateLimitRPS != 5 {
		t.Fatalf("expected fallback rps, got %v", cfg.RateLimitRPS)
	}
}
