package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("SITE_BASE_URL", "https://example.com/")
	t.Setenv("SERVER_READ_TIMEOUT", "5s")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Postgres.Host != "db.internal" {
		t.Fatalf("expected postgres host from env, got %q", cfg.Postgres.Host)
	}
	if cfg.Site.BaseURL != "https://example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Site.BaseURL)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Fatalf("expected read timeout 5s, got %v", cfg.Server.ReadTimeout)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected CORS origins: %v", cfg.Server.CORSOrigins)
	}
}

func TestValidateRejectsBadAddr(t *testing.T) {
	cfg := &Config{
		Server:   ServerConfig{Addr: "8080"},
		Postgres: PostgresConfig{Host: "localhost", Database: "koreanow"},
		Site:     SiteConfig{BaseURL: "https://koreanow.pages.dev"},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected invalid address error")
	}

	cfg.Server.Addr = ":8080"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg.Postgres.Database = ""
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected missing database error")
	}
}

func TestYouTubeEnabledRequiresKey(t *testing.T) {
	cfg := &Config{YouTube: YouTubeConfig{Enabled: true}}
	if cfg.YouTubeEnabled() {
		t.Fatalf("expected youtube disabled without API key")
	}
	cfg.YouTube.APIKey = "key"
	if !cfg.YouTubeEnabled() {
		t.Fatalf("expected youtube enabled")
	}
}
