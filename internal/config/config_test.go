package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.APIPort != "8080" {
		t.Fatalf("unexpected default api port: %s", cfg.APIPort)
	}
	if cfg.EmbedModel != "text-embedding-3-small" {
		t.Fatalf("unexpected default embed model: %s", cfg.EmbedModel)
	}
	if cfg.MaxEmbedTokens != 300000 {
		t.Fatalf("unexpected default token ceiling: %d", cfg.MaxEmbedTokens)
	}
	if cfg.ChunkSize != 1000 || cfg.ChunkOverlap != 200 || cfg.MinChunkSize != 100 {
		t.Fatalf("unexpected chunking defaults: %d/%d/%d", cfg.ChunkSize, cfg.ChunkOverlap, cfg.MinChunkSize)
	}
	if cfg.RAGTopK != 5 {
		t.Fatalf("unexpected default top k: %d", cfg.RAGTopK)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "500")
	t.Setenv("BOOK_URL1", "https://example.com/a.pdf")
	t.Setenv("BOOK_URL2", "")
	t.Setenv("HTTP_RATE_LIMIT_RPS", "2.5")

	cfg := Load()
	if cfg.ChunkSize != 500 {
		t.Fatalf("override not applied: %d", cfg.ChunkSize)
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Fatalf("float override not applied: %f", cfg.RateLimitRPS)
	}
	urls := cfg.BookURLs()
	if len(urls) != 1 || urls[0] != "https://example.com/a.pdf" {
		t.Fatalf("unexpected book urls: %v", urls)
	}
}

func TestInvalidIntFallsBack(t *testing.T) {
	t.Setenv("RAG_TOP_K", "not-a-number")
	if got := Load().RAGTopK; got != 5 {
		t.Fatalf("expected fallback top k, got %d", got)
	}
}
